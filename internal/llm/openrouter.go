package llm

import "fmt"

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// openRouterHeaders identify the app on OpenRouter's dashboard.
var openRouterHeaders = map[string]string{
	"HTTP-Referer": "https://github.com/abhisek/pdfquiz",
	"X-Title":      "pdfquiz",
}

// OpenRouterProvider is an OpenAIProvider pointed at OpenRouter's
// OpenAI-compatible endpoint. Model names are OpenRouter slugs such as
// "anthropic/claude-sonnet-4" and are passed through unchanged.
type OpenRouterProvider struct {
	*OpenAIProvider
}

// NewOpenRouterProvider creates a provider targeting the OpenRouter API.
func NewOpenRouterProvider(cfg OpenRouterConfig) (*OpenRouterProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openrouter API key is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	inner, err := NewOpenAIProvider(OpenAIConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: baseURL,
		Headers: openRouterHeaders,
	})
	if err != nil {
		return nil, err
	}
	return &OpenRouterProvider{OpenAIProvider: inner}, nil
}
