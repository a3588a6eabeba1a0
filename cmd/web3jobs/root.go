package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/cwu339-pixel/web3-job-collector/internal/ai"
	"github.com/cwu339-pixel/web3-job-collector/internal/config"
	"github.com/cwu339-pixel/web3-job-collector/internal/filter"
	"github.com/cwu339-pixel/web3-job-collector/internal/model"
	"github.com/cwu339-pixel/web3-job-collector/internal/notifier"
	"github.com/cwu339-pixel/web3-job-collector/internal/pipeline"
	"github.com/cwu339-pixel/web3-job-collector/internal/ratelimit"
	"github.com/cwu339-pixel/web3-job-collector/internal/retry"
	"github.com/cwu339-pixel/web3-job-collector/internal/score"
	"github.com/cwu339-pixel/web3-job-collector/internal/source"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "web3jobs",
	Short: "Collect and score web3 job postings",
	Long:  "web3jobs pulls postings from web3 job boards, filters them by keyword, and scores them against your profile with an LLM.",
	// Default to `run` so that a bare `web3jobs` does a full collect-and-score pass.
	RunE: runRun,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: WEB3JOBS_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: --config flag > WEB3JOBS_CONFIG env var > "./config.yaml"
func loadConfig(ctx context.Context) (*config.Config, error) {
	env, err := config.LoadEnv(ctx)
	if err != nil {
		return nil, err
	}

	path := cfgPath
	if path == "" {
		if env.ConfigPath != "" {
			path = env.ConfigPath
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path, env)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Notifier {
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, logger)
	default:
		return notifier.NewLogNotifier(logger)
	}
}

// buildSources constructs every enabled source, each wrapped with the shared
// per-host rate limiter.
func buildSources(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) ([]model.PostingSource, error) {
	limiter := ratelimit.NewHostLimiter(cfg.RateLimit.MinDelay)

	var sources []model.PostingSource
	for _, sc := range cfg.EnabledSources() {
		var src model.PostingSource
		switch sc.Type {
		case "rss":
			src = source.NewRSSSource(sc.Name, sc.URL, sc.Company, httpClient)
		case "json":
			jsonSrc, err := source.NewJSONSource(sc.Name, sc.URL, sc.Items, sc.Fields, httpClient)
			if err != nil {
				return nil, err
			}
			src = jsonSrc
		}
		src = ratelimit.NewRateLimitedSource(src, limiter, sc.URL)
		sources = append(sources, src)
		logger.Info("registered source", "name", sc.Name, "type", sc.Type)
	}
	return sources, nil
}

func buildCollector(cfg *config.Config, seen model.SeenStore, httpClient *http.Client, logger *slog.Logger) (*pipeline.Collector, error) {
	sources, err := buildSources(cfg, httpClient, logger)
	if err != nil {
		return nil, err
	}
	keywordFilter := filter.NewKeywordFilter(cfg.Filters.TopicKeywords, cfg.Filters.RoleKeywords)
	n := setupNotifier(cfg, httpClient, logger)
	return pipeline.NewCollector(sources, keywordFilter, seen, n, cfg.Storage.InputPath, cfg.MaxPerSource, cfg.RequestTimeout, logger), nil
}

func buildScoreRunner(cfg *config.Config, logger *slog.Logger) *pipeline.Runner {
	httpClient := &http.Client{Timeout: cfg.Scoring.Timeout}
	var provider ai.LLMProvider = ai.NewOpenAIProvider(cfg.Scoring.BaseURL, cfg.Scoring.APIKey, cfg.Scoring.Model, httpClient)
	provider = retry.NewRetryProvider(provider, 2, 5*time.Second, logger)
	scorer := score.NewScorer(provider, ai.ScoreBatchTemplate, logger)
	return pipeline.NewRunner(scorer, cfg.Storage.InputPath, cfg.Storage.OutputPath, cfg.Scoring.Timeout, logger)
}

// acquireLock takes the single-writer lock next to the output table so
// concurrent invocations cannot interleave table writes.
func acquireLock(tablePath string) (*flock.Flock, error) {
	lock := flock.New(tablePath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", lock.Path(), err)
	}
	if !locked {
		return nil, fmt.Errorf("another web3jobs invocation holds %s", lock.Path())
	}
	return lock, nil
}
