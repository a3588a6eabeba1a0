package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cwu339-pixel/web3-job-collector/internal/store"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Fetch postings from all sources once",
	Long:  "Runs one collection pass: fetch every enabled source, filter by keyword, normalize, merge into the table, and notify about new matches.",
	RunE:  runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)
}

func runCollect(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cmd.Context())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	lock, err := acquireLock(cfg.Storage.OutputPath)
	if err != nil {
		logger.Error("table is locked", "error", err)
		os.Exit(1)
	}
	defer lock.Unlock()

	seen, err := store.NewSQLiteStore(cfg.Storage.DBPath)
	if err != nil {
		logger.Error("failed to open seen store", "error", err)
		os.Exit(1)
	}
	defer seen.Close()

	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	collector, err := buildCollector(cfg, seen, httpClient, logger)
	if err != nil {
		logger.Error("failed to build sources", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := collector.Run(ctx); err != nil {
		logger.Error("collection failed", "error", err)
		os.Exit(1)
	}
	return nil
}
