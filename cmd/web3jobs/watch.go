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
	"github.com/cwu339-pixel/web3-job-collector/internal/scheduler"
	"github.com/cwu339-pixel/web3-job-collector/internal/store"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll sources on an interval and score as postings arrive",
	Long:  "Starts the long-running loop: every poll interval it collects from all sources, then scores whatever is still unscored. Stop it with Ctrl-C.",
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
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

	tasks := []scheduler.Task{
		{
			Name: "collect",
			Run: func(ctx context.Context) error {
				_, err := collector.Run(ctx)
				return err
			},
		},
	}

	if cfg.Scoring.Enabled {
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
		tasks = append(tasks, scheduler.Task{
			Name: "score",
			Run: func(ctx context.Context) error {
				_, err := runner.Run(ctx, opts)
				return err
			},
		})
	} else {
		logger.Info("scoring disabled, watch will only collect")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.NewScheduler(tasks, cfg.PollInterval, logger)
	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler stopped", "error", err)
		os.Exit(1)
	}

	logger.Info("goodbye")
	return nil
}
