// Package llm provides completion clients for the providers the audit
// can run against: the claude CLI, the Anthropic API, and a local
// Ollama instance.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lazypower/keepsake/internal/config"
)

// Provider names accepted in config.toml.
const (
	ProviderClaudeCLI = "claude-cli"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// Fallback models when the config leaves them blank.
const (
	defaultClaudeCLIModel = "haiku"
	defaultAnthropicModel = "claude-haiku-4-5-20251001"
	defaultOllamaModel    = "llama3.2"
	defaultOllamaURL      = "http://localhost:11434"
)

// Completion tuning shared across providers. Audits are one-shot
// background jobs, so generous timeouts beat fast failures.
const (
	completionTimeout = 120 * time.Second
	maxOutputTokens   = 2048
	temperature       = 0.3
)

// Client is the interface every provider implements.
type Client interface {
	Complete(ctx context.Context, prompt string) (*Response, error)
}

// Response holds the result of a completion.
type Response struct {
	Content    string
	Provider   string
	TokensUsed int
}

// NewClient builds a client for the configured provider.
func NewClient(cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case ProviderClaudeCLI:
		return NewClaudeCLI(orDefault(cfg.Model, defaultClaudeCLIModel)), nil
	case ProviderAnthropic:
		if cfg.AnthropicKey == "" {
			return nil, fmt.Errorf("anthropic provider requires ANTHROPIC_API_KEY or config")
		}
		return NewAnthropic(cfg.AnthropicKey, orDefault(cfg.Model, defaultAnthropicModel)), nil
	case ProviderOllama:
		return NewOllama(orDefault(cfg.OllamaURL, defaultOllamaURL), orDefault(cfg.OllamaModel, defaultOllamaModel)), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// trimBody shortens an HTTP error payload so it fits in a log line.
func trimBody(b []byte) string {
	const max = 512
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
