package ai

import "context"

// LLMProvider sends a prompt to an LLM and returns the raw text response.
// The scoring layer treats that text as untrusted and parses it tolerantly.
type LLMProvider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
