package cmd

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-auctions/app/queue"
	"github.com/vibast-solutions/ms-go-auctions/app/repository"
)

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Consume queued messages",
	Long:  "Consume queued messages from Redis streams.",
}

// init registers consume subcommands.
func init() {
	consumeCmd.AddCommand(consumeBidsCmd)
	rootCmd.AddCommand(consumeCmd)
}

var consumeBidsCmd = &cobra.Command{
	Use:   "bids [consumer_name]",
	Short: "Start the accepted bid archiver",
	Long:  "Start a worker that reads accepted bids from the Redis stream and archives them in MySQL.",
	Args:  cobra.ExactArgs(1),
	Run:   runConsumeBids,
}

// runConsumeBids starts the bid archive worker.
func runConsumeBids(_ *cobra.Command, args []string) {
	consumerName := args[0]
	cfg, logger := bootstrap()

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.MySQLMaxOpen)
	db.SetMaxIdleConns(cfg.MySQLMaxIdle)
	db.SetConnMaxLifetime(cfg.MySQLMaxLife)

	if err := db.Ping(); err != nil {
		logger.WithError(err).Fatal("Failed to ping database")
	}

	rdb := connectRedis(cfg, logger)
	defer rdb.Close()

	consumer := queue.NewBidConsumer(rdb, repository.NewBidArchiveRepository(db), consumerName, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Received shutdown signal, stopping consumer...")
		cancel()
	}()

	if err := consumer.Run(ctx); err != nil {
		logger.WithError(err).Fatal("Consumer error")
	}

	logger.Info("Consumer stopped")
}
