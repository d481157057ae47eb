package llm

import (
	"context"

	"github.com/abhisek/pdfquiz/internal/backoff"
)

// RetryProvider is a decorator that retries rate-limited requests with
// exponential backoff and jitter. Every other failure is returned as is.
type RetryProvider struct {
	inner  Provider
	config backoff.Config
}

// WithRetry wraps a Provider with rate limit retries.
func WithRetry(p Provider, cfg backoff.Config) Provider {
	return &RetryProvider{inner: p, config: cfg}
}

func (r *RetryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	return backoff.Invoke(ctx, r.config, IsRateLimit, func(ctx context.Context) (*Response, error) {
		return r.inner.Generate(ctx, req)
	})
}

func (r *RetryProvider) ModelID() string {
	return r.inner.ModelID()
}
