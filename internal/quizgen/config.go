package quizgen

import (
	"context"
	"time"
)

// Config controls the behavior of the Generator.
type Config struct {
	// Concurrency is the number of chunks generated in parallel per batch.
	Concurrency int

	// BatchDelay is the pause between batches.
	BatchDelay time.Duration

	// CallTimeout bounds each chunk's LLM call.
	CallTimeout time.Duration

	// QuestionsPerChunk is how many questions the prompt asks for.
	QuestionsPerChunk int

	// MaxTokens is the token budget for each LLM response.
	MaxTokens int

	// Temperature controls LLM output randomness (0.0-1.0).
	Temperature float64

	// Sleep waits between batches. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultConfig returns a Config with recommended defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:       3,
		BatchDelay:        time.Second,
		CallTimeout:       60 * time.Second,
		QuestionsPerChunk: 5,
		MaxTokens:         2048,
		Temperature:       0.4,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.BatchDelay < 0 {
		c.BatchDelay = 0
	}
	if c.QuestionsPerChunk <= 0 {
		c.QuestionsPerChunk = d.QuestionsPerChunk
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = d.MaxTokens
	}
	if c.Sleep == nil {
		c.Sleep = sleep
	}
	return c
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
