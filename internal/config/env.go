package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

// Env carries the process-level settings the CLI reads before the config
// file. Values here fill config fields the file leaves empty.
type Env struct {
	ConfigPath      string `env:"WEB3JOBS_CONFIG"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	SlackWebhookURL string `env:"SLACK_WEBHOOK_URL"`
}

// LoadEnv reads the process environment.
func LoadEnv(ctx context.Context) (Env, error) {
	var e Env
	if err := envconfig.Process(ctx, &e); err != nil {
		return Env{}, fmt.Errorf("read environment: %w", err)
	}
	return e, nil
}
