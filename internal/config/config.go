package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the collector.
type Config struct {
	PollInterval   time.Duration // watch-mode cycle interval
	RequestTimeout time.Duration // per-source fetch timeout
	MaxPerSource   int           // cap on postings taken from one source, 0 = no cap
	Storage        StorageConfig
	Sources        []SourceConfig
	Filters        FilterConfig
	Scoring        ScoringConfig
	Notification   NotificationConfig
	RateLimit      RateLimitConfig
}

// StorageConfig holds the table and seen-store paths.
type StorageConfig struct {
	InputPath  string `yaml:"input_path"`  // collected table, scoring input
	OutputPath string `yaml:"output_path"` // scored table; defaults to input_path
	DBPath     string `yaml:"db_path"`     // SQLite seen-store for notification dedup
}

// SourceConfig describes a single feed or API to collect from.
type SourceConfig struct {
	Name    string            `yaml:"name"`
	Type    string            `yaml:"type"`    // "rss" or "json"
	URL     string            `yaml:"url"`
	Company string            `yaml:"company"` // rss: fixed company when the whole feed is one company's
	Items   string            `yaml:"items"`   // json: JMESPath selecting the item array
	Fields  map[string]string `yaml:"fields"`  // json: per-field JMESPath overrides
	Enabled bool              `yaml:"enabled"`
}

// FilterConfig holds the keyword filter settings.
type FilterConfig struct {
	TopicKeywords []string `yaml:"topic_keywords"`
	RoleKeywords  []string `yaml:"role_keywords"`
}

// ScoringConfig controls the LLM scoring stage.
type ScoringConfig struct {
	Enabled     bool
	BaseURL     string        // defaults to https://api.openai.com/v1
	Model       string        // OpenAI model identifier, e.g. "gpt-4o-mini"
	APIKey      string        // expanded from env var by Load
	Timeout     time.Duration // per-batch request timeout
	BatchSize   int           // records per prompt
	Parallelism int           // concurrent batch requests
	ProfilePath string        // candidate profile YAML embedded in the prompt
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log" or "slack"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
}

// RateLimitConfig controls per-host fetch politeness.
type RateLimitConfig struct {
	MinDelay time.Duration // minimum gap between requests to the same host
}

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// rawConfig is used for YAML unmarshaling (snake_case fields and durations as strings).
type rawConfig struct {
	PollInterval   string             `yaml:"poll_interval"`
	RequestTimeout string             `yaml:"request_timeout"`
	MaxPerSource   int                `yaml:"max_per_source"`
	Storage        StorageConfig      `yaml:"storage"`
	Sources        []SourceConfig     `yaml:"sources"`
	Filters        FilterConfig       `yaml:"filters"`
	Scoring        rawScoringConfig   `yaml:"scoring"`
	Notification   NotificationConfig `yaml:"notification"`
	RateLimit      rawRateLimitConfig `yaml:"rate_limit"`
}

type rawScoringConfig struct {
	Enabled     bool   `yaml:"enabled"`
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	APIKey      string `yaml:"api_key"`
	Timeout     string `yaml:"timeout"`
	BatchSize   int    `yaml:"batch_size"`
	Parallelism int    `yaml:"parallelism"`
	ProfilePath string `yaml:"profile_path"`
}

type rawRateLimitConfig struct {
	MinDelay string `yaml:"min_delay"`
}

// Load reads and parses the YAML config file at path, overlays process-level
// settings from env, validates the result, and returns Config.
func Load(path string, env Env) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	pollInterval := 30 * time.Minute // default
	if raw.PollInterval != "" {
		pollInterval, err = time.ParseDuration(raw.PollInterval)
		if err != nil {
			return nil, fmt.Errorf("parse poll_interval %q: %w", raw.PollInterval, err)
		}
	}

	requestTimeout := 30 * time.Second // default
	if raw.RequestTimeout != "" {
		requestTimeout, err = time.ParseDuration(raw.RequestTimeout)
		if err != nil {
			return nil, fmt.Errorf("parse request_timeout %q: %w", raw.RequestTimeout, err)
		}
	}

	scoringTimeout := 60 * time.Second // default; batch prompts are slow to generate
	if raw.Scoring.Timeout != "" {
		scoringTimeout, err = time.ParseDuration(raw.Scoring.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parse scoring.timeout %q: %w", raw.Scoring.Timeout, err)
		}
	}

	minDelay := 1 * time.Second // default
	if raw.RateLimit.MinDelay != "" {
		minDelay, err = time.ParseDuration(raw.RateLimit.MinDelay)
		if err != nil {
			return nil, fmt.Errorf("parse rate_limit.min_delay %q: %w", raw.RateLimit.MinDelay, err)
		}
	}

	storage := raw.Storage
	if storage.InputPath == "" {
		storage.InputPath = "web3_jobs.csv"
	}
	if storage.OutputPath == "" {
		storage.OutputPath = storage.InputPath
	}
	if storage.DBPath == "" {
		storage.DBPath = "seen.db"
	}

	scoring := ScoringConfig{
		Enabled:     raw.Scoring.Enabled,
		BaseURL:     raw.Scoring.BaseURL,
		Model:       raw.Scoring.Model,
		APIKey:      raw.Scoring.APIKey,
		Timeout:     scoringTimeout,
		BatchSize:   raw.Scoring.BatchSize,
		Parallelism: raw.Scoring.Parallelism,
		ProfilePath: raw.Scoring.ProfilePath,
	}
	if scoring.BaseURL == "" {
		scoring.BaseURL = defaultOpenAIBaseURL
	}
	if scoring.Model == "" {
		scoring.Model = "gpt-4o-mini"
	}
	if scoring.BatchSize == 0 {
		scoring.BatchSize = 10
	}
	if scoring.Parallelism == 0 {
		scoring.Parallelism = 1
	}
	if scoring.ProfilePath == "" {
		scoring.ProfilePath = "profile.yaml"
	}

	notification := raw.Notification
	if notification.Type == "" {
		notification.Type = "log"
	}

	cfg := &Config{
		PollInterval:   pollInterval,
		RequestTimeout: requestTimeout,
		MaxPerSource:   raw.MaxPerSource,
		Storage:        storage,
		Sources:        raw.Sources,
		Filters:        raw.Filters,
		Scoring:        scoring,
		Notification:   notification,
		RateLimit: RateLimitConfig{
			MinDelay: minDelay,
		},
	}

	// Process env fills what the file left empty.
	if cfg.Scoring.APIKey == "" {
		cfg.Scoring.APIKey = env.OpenAIAPIKey
	}
	if cfg.Notification.WebhookURL == "" {
		cfg.Notification.WebhookURL = env.SlackWebhookURL
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// EnabledSources returns the sources with enabled: true, in config order.
func (c *Config) EnabledSources() []SourceConfig {
	var out []SourceConfig
	for _, s := range c.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

func validate(cfg *Config) error {
	if cfg.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %v", cfg.PollInterval)
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.RequestTimeout)
	}

	enabled := 0
	names := make(map[string]bool)
	for _, s := range cfg.Sources {
		if s.Name == "" {
			return fmt.Errorf("every source needs a name")
		}
		if names[s.Name] {
			return fmt.Errorf("duplicate source name %q", s.Name)
		}
		names[s.Name] = true
		if s.Type != "rss" && s.Type != "json" {
			return fmt.Errorf("source %s: type must be \"rss\" or \"json\", got %q", s.Name, s.Type)
		}
		if s.URL == "" {
			return fmt.Errorf("source %s: url is required", s.Name)
		}
		if s.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one source must be enabled")
	}

	if cfg.Notification.Type != "log" && cfg.Notification.Type != "slack" {
		return fmt.Errorf("notification.type must be \"log\" or \"slack\", got %q", cfg.Notification.Type)
	}
	if cfg.Notification.Type == "slack" {
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, "https://hooks.slack.com/") {
			return fmt.Errorf("notification.webhook_url must start with https://hooks.slack.com/")
		}
	}

	if cfg.Scoring.Enabled {
		if cfg.Scoring.APIKey == "" {
			return fmt.Errorf("scoring.api_key (or OPENAI_API_KEY) is required when scoring.enabled is true")
		}
		if cfg.Scoring.Model == "" {
			return fmt.Errorf("scoring.model is required when scoring.enabled is true")
		}
		if cfg.Scoring.Timeout <= 0 {
			return fmt.Errorf("scoring.timeout must be positive, got %v", cfg.Scoring.Timeout)
		}
		if cfg.Scoring.BatchSize < 1 {
			return fmt.Errorf("scoring.batch_size must be at least 1, got %d", cfg.Scoring.BatchSize)
		}
		if cfg.Scoring.Parallelism < 1 {
			return fmt.Errorf("scoring.parallelism must be at least 1, got %d", cfg.Scoring.Parallelism)
		}
	}

	return nil
}
