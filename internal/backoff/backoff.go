// Package backoff retries rate-limited operations with exponential backoff
// and jitter.
package backoff

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// Config controls the retry schedule.
type Config struct {
	// MaxRetries is the number of retries after the first call.
	// An operation is attempted at most MaxRetries+1 times.
	MaxRetries int

	// InitialDelay is the base wait before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the base wait before jitter is applied.
	MaxDelay time.Duration

	// Multiplier grows the base wait after every retry.
	Multiplier float64

	// Jitter returns a factor in [0.8, 1.2). Nil uses math/rand/v2.
	Jitter func() float64

	// Sleep waits for d or until ctx is done. Nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultConfig returns the standard schedule: 5 retries starting at 1s,
// doubling, capped at 60s.
func DefaultConfig() Config {
	return Config{
		MaxRetries:   5,
		InitialDelay: 1 * time.Second,
		MaxDelay:     60 * time.Second,
		Multiplier:   2.0,
	}
}

// ErrExhausted is returned when every retry failed with a retryable error,
// or when ctx ended while waiting to retry. In the latter case Err wraps
// both the last failure and the context error.
type ErrExhausted struct {
	Attempts int
	Err      error
}

func (e *ErrExhausted) Error() string {
	return fmt.Sprintf("giving up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ErrExhausted) Unwrap() error { return e.Err }

// Invoke calls op until it succeeds, returns an error retryable rejects, or
// the retry budget runs out.
func Invoke[T any](ctx context.Context, cfg Config, retryable func(error) bool, op func(context.Context) (T, error)) (T, error) {
	var zero T
	delay := cfg.InitialDelay

	for attempt := 0; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if retryable == nil || !retryable(err) {
			return zero, err
		}
		if attempt >= cfg.MaxRetries {
			return zero, &ErrExhausted{Attempts: attempt + 1, Err: err}
		}

		if serr := cfg.sleep(ctx, cfg.wait(delay)); serr != nil {
			return zero, &ErrExhausted{Attempts: attempt + 1, Err: fmt.Errorf("%w (retry interrupted: %w)", err, serr)}
		}
		delay = cfg.next(delay)
	}
}

// wait applies the cap and jitter to the base delay.
func (c Config) wait(delay time.Duration) time.Duration {
	if c.MaxDelay > 0 && delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	return time.Duration(float64(delay) * c.jitter())
}

func (c Config) next(delay time.Duration) time.Duration {
	m := c.Multiplier
	if m <= 0 {
		m = 2.0
	}
	return time.Duration(float64(delay) * m)
}

func (c Config) jitter() float64 {
	if c.Jitter != nil {
		return c.Jitter()
	}
	return 0.8 + 0.4*rand.Float64()
}

func (c Config) sleep(ctx context.Context, d time.Duration) error {
	if c.Sleep != nil {
		return c.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
