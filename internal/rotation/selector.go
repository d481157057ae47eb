// Package rotation picks which template questions a quiz shows, steering
// away from questions the document's previous quizzes already used.
package rotation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/abhisek/pdfquiz/internal/store"
)

// DefaultResetRatio is the share of a quiz that must still be fresh before
// history is reset instead of topped up.
const DefaultResetRatio = 0.5

// Template identifies the question pool a selection is made from.
type Template struct {
	DocumentID string
	Revision   string
	Size       int
}

// FromStore describes a stored template.
func FromStore(t *store.Template) Template {
	return Template{DocumentID: t.DocumentID, Revision: t.Revision, Size: t.Size()}
}

// Selection is the chosen template indices in display order.
type Selection struct {
	Indices []int
}

// Questions returns the selected questions from qs in display order.
func (s Selection) Questions(qs []store.Question) []store.Question {
	out := make([]store.Question, 0, len(s.Indices))
	for _, i := range s.Indices {
		out = append(out, qs[i])
	}
	return out
}

// Selector chooses question indices and tracks which were used.
type Selector struct {
	kv         KV
	resetRatio float64
	log        *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Selector.
type Option func(*Selector)

// WithResetRatio overrides DefaultResetRatio.
func WithResetRatio(r float64) Option {
	return func(s *Selector) { s.resetRatio = r }
}

// WithRand sets the random source, for reproducible selections.
func WithRand(r *rand.Rand) Option {
	return func(s *Selector) { s.rng = r }
}

// WithLogger sets the logger for degraded-state warnings.
func WithLogger(l *slog.Logger) Option {
	return func(s *Selector) { s.log = l }
}

// NewSelector returns a Selector persisting state in kv.
func NewSelector(kv KV, opts ...Option) *Selector {
	now := uint64(time.Now().UnixNano())
	s := &Selector{
		kv:         kv,
		resetRatio: DefaultResetRatio,
		log:        slog.Default(),
		rng:        rand.New(rand.NewPCG(now, now>>17|1)),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Select picks count indices from tmpl. When the template has no more
// than count questions all of them are returned in order and no state is
// recorded. Otherwise unused indices are preferred; when too few remain
// the history is either topped up from used indices or reset.
//
// State problems never fail a selection: unreadable state is treated as
// empty and a failed write is logged.
func (s *Selector) Select(ctx context.Context, tmpl Template, count int) (Selection, error) {
	if count <= 0 {
		return Selection{}, fmt.Errorf("question count must be positive, got %d", count)
	}
	if tmpl.Size <= count {
		idx := make([]int, tmpl.Size)
		for i := range idx {
			idx[i] = i
		}
		return Selection{Indices: idx}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	used := s.usedIndices(ctx, tmpl)

	available := make([]int, 0, tmpl.Size)
	for i := 0; i < tmpl.Size; i++ {
		if _, ok := used[i]; !ok {
			available = append(available, i)
		}
	}

	if len(available) < count {
		if float64(len(available)) < float64(count)*s.resetRatio {
			s.log.Debug("rotation history reset", "document", tmpl.DocumentID, "available", len(available))
			used = map[int]struct{}{}
			available = available[:0]
			for i := 0; i < tmpl.Size; i++ {
				available = append(available, i)
			}
		} else {
			pool := make([]int, 0, len(used))
			for i := range used {
				pool = append(pool, i)
			}
			slices.Sort(pool)
			s.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
			available = append(available, pool[:count-len(available)]...)
		}
	}

	s.rng.Shuffle(len(available), func(i, j int) { available[i], available[j] = available[j], available[i] })
	selected := slices.Clone(available[:count])

	for _, i := range selected {
		used[i] = struct{}{}
	}
	s.persist(ctx, tmpl, used)

	return Selection{Indices: selected}, nil
}

// usedIndices loads the used set for tmpl. Anything that makes the stored
// state untrustworthy yields an empty set.
func (s *Selector) usedIndices(ctx context.Context, tmpl Template) map[int]struct{} {
	used := map[int]struct{}{}

	st, err := loadState(ctx, s.kv, tmpl.DocumentID)
	switch {
	case errors.Is(err, ErrNotFound):
		return used
	case err != nil:
		s.log.Warn("rotation state unreadable, starting fresh", "document", tmpl.DocumentID, "error", err)
		return used
	case st.Revision != tmpl.Revision:
		s.log.Debug("rotation state from an older template, starting fresh", "document", tmpl.DocumentID)
		return used
	}

	for _, i := range st.Used {
		if i < 0 || i >= tmpl.Size {
			s.log.Warn("rotation state index out of range, starting fresh",
				"document", tmpl.DocumentID, "index", i, "size", tmpl.Size)
			return map[int]struct{}{}
		}
		used[i] = struct{}{}
	}
	return used
}

func (s *Selector) persist(ctx context.Context, tmpl Template, used map[int]struct{}) {
	st := State{Revision: tmpl.Revision, Used: make([]int, 0, len(used))}
	for i := range used {
		st.Used = append(st.Used, i)
	}
	slices.Sort(st.Used)

	b, err := json.Marshal(st)
	if err == nil {
		err = s.kv.Set(ctx, tmpl.DocumentID, b)
	}
	if err != nil {
		s.log.Warn("failed to persist rotation state", "document", tmpl.DocumentID, "error", err)
	}
}

// Invalidate drops the rotation history of a document.
func (s *Selector) Invalidate(ctx context.Context, documentID string) error {
	if err := s.kv.Delete(ctx, documentID); err != nil {
		return fmt.Errorf("invalidate rotation state: %w", err)
	}
	return nil
}
