package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-auctions/app/controller"
	grpcserver "github.com/vibast-solutions/ms-go-auctions/app/grpc"
	"github.com/vibast-solutions/ms-go-auctions/app/lock"
	"github.com/vibast-solutions/ms-go-auctions/app/queue"
	"github.com/vibast-solutions/ms-go-auctions/app/repository"
	"github.com/vibast-solutions/ms-go-auctions/app/service"
	"github.com/vibast-solutions/ms-go-auctions/config"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	Long:  "Start both HTTP (Echo) and gRPC servers for the auctions service.",
	Run:   runServe,
}

// init registers the serve command.
func init() {
	rootCmd.AddCommand(serveCmd)
}

// runServe wires dependencies and starts HTTP and gRPC servers.
func runServe(_ *cobra.Command, _ []string) {
	cfg, logger := bootstrap()

	rdb := connectRedis(cfg, logger)
	defer rdb.Close()

	searchIndex := repository.NewSearchIndex(rdb, cfg.SearchIndexName)
	if cfg.SearchIndexEnsure {
		if err := searchIndex.Ensure(context.Background()); err != nil {
			logger.WithError(err).WithField("index", cfg.SearchIndexName).Warn("Search index unavailable, most expensive listing will fail")
		}
	}

	products := repository.NewProductRepository(rdb, logger)
	locker := lock.NewRedisLocker(rdb, lock.WithLogger(logger))
	auctions := service.NewAuctionService(products, locker, logger,
		service.WithPublisher(queue.NewBidProducer(rdb)),
		service.WithBidConfig(service.BidConfig{
			Lease: cfg.BidLockLease,
			Retry: lock.RetryPolicy{MaxRetries: cfg.BidLockMaxRetries, Delay: cfg.BidLockRetryDelay},
		}),
	)
	catalog := service.NewCatalogService(repository.NewCatalogReader(rdb, cfg.SearchIndexName, logger), nil)

	productController := controller.NewProductController(auctions, catalog, logger)
	adminController := controller.NewAdminController(searchIndex, logger)
	grpcAuctionServer := grpcserver.NewServer(auctions, catalog, logger)

	e := setupHTTPServer(productController, adminController, logger)
	grpcServer, lis, err := setupGRPCServer(cfg, grpcAuctionServer, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to listen on gRPC port")
	}

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTPHost, cfg.HTTPPort)
		logger.Infof("Starting HTTP server on %s", httpAddr)
		if err := e.Start(httpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("HTTP server error")
		}
	}()

	go func() {
		logger.Infof("Starting gRPC server on %s", lis.Addr())
		if err := grpcServer.Serve(lis); err != nil {
			logger.WithError(err).Fatal("gRPC server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("HTTP shutdown error")
	}
	grpcServer.GracefulStop()

	logger.Info("Server stopped")
}

// setupHTTPServer configures the Echo HTTP server and routes.
func setupHTTPServer(products *controller.ProductController, admin *controller.AdminController, logger logrus.FieldLogger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			entry := logger.WithFields(logrus.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency_ms": v.Latency.Milliseconds(),
			})
			if v.Error != nil {
				entry.WithError(v.Error).Warn("request")
				return nil
			}
			entry.Info("request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(controller.Username())

	p := e.Group("/products")
	p.POST("", products.Create)
	p.GET("/ending-soonest", products.EndingSoonest)
	p.GET("/most-viewed", products.MostViewed)
	p.GET("/most-expensive", products.MostExpensive)
	p.GET("/:id", products.Get)
	p.PATCH("/:id", products.Update)
	p.POST("/:id/bid", products.Bid)
	p.GET("/:id/bids", products.BidHistory)

	a := e.Group("/admin")
	a.POST("/search-index", admin.CreateSearchIndex)
	a.DELETE("/search-index", admin.DropSearchIndex)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}

// setupGRPCServer builds the gRPC server, its health service and the listener.
func setupGRPCServer(cfg *config.Config, auctionServer grpcserver.AuctionServiceServer, logger logrus.FieldLogger) (*grpc.Server, net.Listener, error) {
	grpcAddr := net.JoinHostPort(cfg.GRPCHost, cfg.GRPCPort)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return nil, nil, err
	}

	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(
		grpcserver.UsernameInterceptor(),
		grpcserver.LoggingInterceptor(logger),
	))
	grpcserver.RegisterAuctionServiceServer(grpcServer, auctionServer)

	healthServer := health.NewServer()
	healthServer.SetServingStatus(grpcserver.AuctionServiceDesc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	return grpcServer, lis, nil
}
