// Package quizgen turns document chunks into validated multiple-choice
// questions with one LLM call per chunk.
package quizgen

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/abhisek/pdfquiz/internal/llm"
)

// Generator produces questions from chunks using an LLM provider.
type Generator struct {
	provider llm.Provider
	config   Config
	log      *slog.Logger
}

// New creates a Generator. A nil logger uses slog.Default().
func New(provider llm.Provider, cfg Config, log *slog.Logger) *Generator {
	if log == nil {
		log = slog.Default()
	}
	return &Generator{provider: provider, config: cfg.withDefaults(), log: log}
}

// Generate runs one LLM call per chunk, Concurrency at a time, pausing
// BatchDelay between batches. A chunk that fails is recorded in
// Result.Failures and does not stop the others.
//
// It returns ErrAllChunksFailed when every chunk failed and ErrNoQuestions
// when no question survived validation. The partial Result is returned
// alongside both errors.
func (g *Generator) Generate(ctx context.Context, chunks []string) (*Result, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeQuizGen)

	outcomes := make([]Outcome, len(chunks))
	for start := 0; start < len(chunks); start += g.config.Concurrency {
		if start > 0 {
			if err := g.config.Sleep(ctx, g.config.BatchDelay); err != nil {
				return nil, err
			}
		}
		end := min(start+g.config.Concurrency, len(chunks))

		var eg errgroup.Group
		for i := start; i < end; i++ {
			eg.Go(func() error {
				outcomes[i] = g.generateChunk(ctx, chunks[i])
				return nil
			})
		}
		eg.Wait()

		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	res := &Result{}
	for i, o := range outcomes {
		if !o.Usable() {
			f := ChunkFailure{Chunk: i, Kind: o.Kind, ErrKind: o.ErrKind, Err: o.Err}
			res.Failures = append(res.Failures, f)
			g.log.Warn("chunk generation failed",
				"chunk", i, "kind", o.Kind, "error_kind", o.ErrKind, "error", o.Err)
			continue
		}
		if o.Kind == Malformed {
			g.log.Warn("recovered malformed chunk response", "chunk", i)
		}

		qs, rejected := Validate(o.Items)
		for _, r := range rejected {
			g.log.Debug("dropped invalid question", "chunk", i, "item", r.Index, "reason", r.Reason)
		}
		res.Rejected += len(rejected)
		for _, q := range qs {
			q.Source = &Provenance{Chunk: i, Label: fmt.Sprintf("chunk %d", i+1)}
			res.Questions = append(res.Questions, q)
		}
	}

	if len(chunks) > 0 && len(res.Failures) == len(chunks) {
		return res, fmt.Errorf("%w (%d chunks)", ErrAllChunksFailed, len(chunks))
	}
	if len(res.Questions) == 0 {
		return res, ErrNoQuestions
	}
	return res, nil
}

// generateChunk makes the LLM call for one chunk under its own timeout.
func (g *Generator) generateChunk(ctx context.Context, chunk string) Outcome {
	if g.config.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.CallTimeout)
		defer cancel()
	}

	req := llm.Request{
		System: systemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildUserMessage(chunk, g.config)},
		},
		Schema:      QuizSchema,
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
	}

	resp, err := g.provider.Generate(ctx, req)
	return classify(resp, err)
}
