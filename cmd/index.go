package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-auctions/app/repository"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the product search index",
}

var indexCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the product search index",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		runIndex("create", (*repository.SearchIndex).Create)
	},
}

var indexDropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Drop the product search index, keeping the product records",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		runIndex("drop", (*repository.SearchIndex).Drop)
	},
}

// init registers index subcommands.
func init() {
	indexCmd.AddCommand(indexCreateCmd, indexDropCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndex(action string, op func(*repository.SearchIndex, context.Context) error) {
	cfg, logger := bootstrap()

	rdb := connectRedis(cfg, logger)
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entry := logger.WithField("index", cfg.SearchIndexName)
	if err := op(repository.NewSearchIndex(rdb, cfg.SearchIndexName), ctx); err != nil {
		entry.WithError(err).Fatalf("Search index %s failed", action)
	}
	entry.Infof("Search index %s done", action)
}
