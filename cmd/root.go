package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-auctions/app/logging"
	"github.com/vibast-solutions/ms-go-auctions/config"
)

var rootCmd = &cobra.Command{
	Use:   "auctions",
	Short: "Auctions microservice",
	Long:  "An auction marketplace microservice: product listings, unique view tracking and serialized bidding over HTTP and gRPC.",
}

// Execute runs the root Cobra command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and builds the logger every command starts from.
func bootstrap() (*config.Config, *logrus.Logger) {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	return cfg, logging.New(cfg.LogLevel, cfg.LogFormat)
}

// connectRedis opens and pings the Redis client. Search replies are parsed in
// the RESP2 layout, so the client is pinned to protocol 2.
func connectRedis(cfg *config.Config, logger logrus.FieldLogger) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Protocol: 2,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	return rdb
}
