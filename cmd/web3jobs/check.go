package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cwu339-pixel/web3-job-collector/internal/filter"
	"github.com/cwu339-pixel/web3-job-collector/internal/notifier"
	"github.com/cwu339-pixel/web3-job-collector/internal/pipeline"
	"github.com/cwu339-pixel/web3-job-collector/internal/store"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Fetch once, print matches, exit",
	Long:  "One-shot collection: fetches every enabled source, prints matched postings, exits. Does not write the table or the seen store.",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cmd.Context())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("check mode: nothing will be persisted")

	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	sources, err := buildSources(cfg, httpClient, logger)
	if err != nil {
		logger.Error("failed to build sources", "error", err)
		os.Exit(1)
	}
	keywordFilter := filter.NewKeywordFilter(cfg.Filters.TopicKeywords, cfg.Filters.RoleKeywords)

	// A throwaway table plus a nop seen store: every match looks new, prints
	// via the log notifier, and leaves no trace on disk afterwards.
	tmpPath := filepath.Join(os.TempDir(), fmt.Sprintf("web3jobs-check-%d.csv", os.Getpid()))
	defer os.Remove(tmpPath)

	collector := pipeline.NewCollector(
		sources,
		keywordFilter,
		store.NewNopStore(),
		notifier.NewLogNotifier(logger),
		tmpPath,
		cfg.MaxPerSource,
		cfg.RequestTimeout,
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := collector.Run(ctx); err != nil {
		logger.Error("check failed", "error", err)
		os.Exit(1)
	}

	logger.Info("check complete")
	return nil
}
