package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cwu339-pixel/web3-job-collector/internal/config"
	"github.com/cwu339-pixel/web3-job-collector/internal/pipeline"
	"github.com/cwu339-pixel/web3-job-collector/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Collect new postings and score them in one pass",
	Long:  "Runs one collection pass followed by one scoring pass. This is also what a bare `web3jobs` does.",
	RunE:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
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

	if !cfg.Scoring.Enabled {
		logger.Info("scoring disabled, skipping score pass")
		return nil
	}

	profile, err := config.LoadProfile(cfg.Scoring.ProfilePath)
	if err != nil {
		logger.Error("failed to load profile", "error", err)
		os.Exit(1)
	}

	runner := buildScoreRunner(cfg, logger)
	opts := pipeline.ScoreOptions{
		BatchSize:   cfg.Scoring.BatchSize,
		Parallelism: cfg.Scoring.Parallelism,
		Profile:     profile,
	}
	if _, err := runner.Run(ctx, opts); err != nil {
		logger.Error("scoring failed", "error", err)
		os.Exit(1)
	}
	return nil
}
