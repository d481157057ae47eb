package llm

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/abhisek/pdfquiz/internal/backoff"
)

// Config holds all LLM provider configuration.
type Config struct {
	// Provider selects which LLM provider to use.
	// Values: "openai", "anthropic", "gemini", "openrouter", "mock"
	Provider string

	OpenAI     OpenAIConfig
	Anthropic  AnthropicConfig
	Gemini     GeminiConfig
	OpenRouter OpenRouterConfig

	// Retry is the rate limit backoff schedule.
	Retry backoff.Config

	// Timeout bounds a single request, retries included. Default: 90s.
	Timeout time.Duration
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	APIKey  string
	Model   string // Default: "gpt-4o-mini"
	BaseURL string // Optional. Any OpenAI-compatible endpoint.

	// Headers are added to every request.
	Headers map[string]string
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey  string
	Model   string // Default: "claude-haiku"
	BaseURL string
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey string
	Model  string // Default: "gemini-flash"
}

// OpenRouterConfig holds OpenRouter-specific configuration.
type OpenRouterConfig struct {
	APIKey  string
	Model   string // Default: "openai/gpt-4o-mini"
	BaseURL string // Default: "https://openrouter.ai/api/v1"
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider:   "openai",
		OpenAI:     OpenAIConfig{Model: "gpt-4o-mini"},
		Anthropic:  AnthropicConfig{Model: "claude-haiku"},
		Gemini:     GeminiConfig{Model: "gemini-flash"},
		OpenRouter: OpenRouterConfig{Model: "openai/gpt-4o-mini"},
		Retry:      backoff.DefaultConfig(),
		Timeout:    90 * time.Second,
	}
}

// ConfigFromEnv builds a Config from PDFQUIZ_* environment variables,
// falling back to the well-known vendor key variables and then defaults.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	explicit := false

	if p := os.Getenv("PDFQUIZ_LLM_PROVIDER"); p != "" {
		cfg.Provider = p
		explicit = true
	}

	cfg.OpenAI.APIKey = firstEnv("PDFQUIZ_OPENAI_API_KEY", "OPENAI_API_KEY")
	setIf(&cfg.OpenAI.Model, "PDFQUIZ_OPENAI_MODEL")
	setIf(&cfg.OpenAI.BaseURL, "PDFQUIZ_OPENAI_BASE_URL")

	cfg.Anthropic.APIKey = firstEnv("PDFQUIZ_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
	setIf(&cfg.Anthropic.Model, "PDFQUIZ_ANTHROPIC_MODEL")

	cfg.Gemini.APIKey = firstEnv("PDFQUIZ_GEMINI_API_KEY", "GEMINI_API_KEY")
	setIf(&cfg.Gemini.Model, "PDFQUIZ_GEMINI_MODEL")

	cfg.OpenRouter.APIKey = firstEnv("PDFQUIZ_OPENROUTER_API_KEY", "OPENROUTER_API_KEY")
	setIf(&cfg.OpenRouter.Model, "PDFQUIZ_OPENROUTER_MODEL")

	if v := os.Getenv("PDFQUIZ_LLM_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retry.MaxRetries = n
		}
	}
	if v := os.Getenv("PDFQUIZ_LLM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = d
		}
	}

	// Without an explicit provider, pick the first one that has a key.
	if !explicit {
		switch {
		case cfg.OpenAI.APIKey != "":
			cfg.Provider = "openai"
		case cfg.Anthropic.APIKey != "":
			cfg.Provider = "anthropic"
		case cfg.Gemini.APIKey != "":
			cfg.Provider = "gemini"
		case cfg.OpenRouter.APIKey != "":
			cfg.Provider = "openrouter"
		}
	}

	return cfg
}

// ErrNotConfigured is returned by Validate when the selected provider has
// no API key.
var ErrNotConfigured = errors.New("LLM provider not configured")

// Validate checks that the selected provider has its required API key set.
func (c Config) Validate() error {
	switch c.Provider {
	case "openai":
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("%w: PDFQUIZ_OPENAI_API_KEY (or OPENAI_API_KEY) is required for the openai provider", ErrNotConfigured)
		}
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("%w: PDFQUIZ_ANTHROPIC_API_KEY (or ANTHROPIC_API_KEY) is required for the anthropic provider", ErrNotConfigured)
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("%w: PDFQUIZ_GEMINI_API_KEY (or GEMINI_API_KEY) is required for the gemini provider", ErrNotConfigured)
		}
	case "openrouter":
		if c.OpenRouter.APIKey == "" {
			return fmt.Errorf("%w: PDFQUIZ_OPENROUTER_API_KEY (or OPENROUTER_API_KEY) is required for the openrouter provider", ErrNotConfigured)
		}
	case "mock":
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry count must not be negative, got %d", c.Retry.MaxRetries)
	}
	return nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func setIf(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
