package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cwu339-pixel/web3-job-collector/internal/config"
	"github.com/cwu339-pixel/web3-job-collector/internal/pipeline"
)

var (
	scoreOffset      int
	scoreLimit       int
	scoreBatchSize   int
	scoreParallelism int
	scoreRescore     bool
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score unscored postings against your profile",
	Long:  "Loads the table, sends a window of unscored rows to the LLM backend in batches, and merges the scores back. Interrupted runs resume where they stopped.",
	RunE:  runScore,
}

func init() {
	scoreCmd.Flags().IntVar(&scoreOffset, "offset", 0, "skip this many unscored rows")
	scoreCmd.Flags().IntVar(&scoreLimit, "limit", 0, "score at most this many rows (0 = all)")
	scoreCmd.Flags().IntVar(&scoreBatchSize, "batch-size", 0, "records per backend call (default from config)")
	scoreCmd.Flags().IntVar(&scoreParallelism, "parallelism", 0, "concurrent backend calls (default from config)")
	scoreCmd.Flags().BoolVar(&scoreRescore, "rescore", false, "re-score rows that already have a score")
	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cmd.Context())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if !cfg.Scoring.Enabled {
		logger.Error("scoring is disabled, set scoring.enabled: true in config")
		os.Exit(1)
	}

	lock, err := acquireLock(cfg.Storage.OutputPath)
	if err != nil {
		logger.Error("table is locked", "error", err)
		os.Exit(1)
	}
	defer lock.Unlock()

	profile, err := config.LoadProfile(cfg.Scoring.ProfilePath)
	if err != nil {
		logger.Error("failed to load profile", "error", err)
		os.Exit(1)
	}

	runner := buildScoreRunner(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := runner.Run(ctx, scoreOptions(cfg, profile)); err != nil {
		logger.Error("scoring failed", "error", err)
		os.Exit(1)
	}
	return nil
}

// scoreOptions merges the score flags over the config defaults.
func scoreOptions(cfg *config.Config, profile string) pipeline.ScoreOptions {
	opts := pipeline.ScoreOptions{
		Offset:      scoreOffset,
		Limit:       scoreLimit,
		BatchSize:   cfg.Scoring.BatchSize,
		Parallelism: cfg.Scoring.Parallelism,
		Rescore:     scoreRescore,
		Profile:     profile,
	}
	if scoreBatchSize > 0 {
		opts.BatchSize = scoreBatchSize
	}
	if scoreParallelism > 0 {
		opts.Parallelism = scoreParallelism
	}
	return opts
}
