package quiz

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/abhisek/pdfquiz/internal/store"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type countingRecorder struct {
	mu       sync.Mutex
	attempts []*store.Attempt
	err      error
}

func (r *countingRecorder) RecordAttempt(_ context.Context, a *store.Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, a)
	return r.err
}

func questions(answers ...int) []store.Question {
	qs := make([]store.Question, len(answers))
	for i, a := range answers {
		qs[i] = store.Question{Prompt: "q", Options: []string{"a", "b", "c", "d"}, Answer: a, Explanation: "e"}
	}
	return qs
}

func newTestRunner(t *testing.T, rec Recorder, clock *fakeClock) *Runner {
	t.Helper()
	r, err := NewRunner("doc-1", "rev-1", questions(0, 1, 2), []int{7, 3, 9}, rec, Config{
		QuestionTimeout: 10 * time.Second,
		Now:             clock.Now,
	})
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	return r
}

func TestRunner_AnswerAll(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	rec := &countingRecorder{}
	r := newTestRunner(t, rec, clock)
	ctx := context.Background()

	fb, err := r.Answer(ctx, 0)
	if err != nil || !fb.Correct || fb.Done {
		t.Fatalf("first answer: %+v, %v", fb, err)
	}
	fb, err = r.Answer(ctx, 3)
	if err != nil || fb.Correct || fb.AnswerIndex != 1 {
		t.Fatalf("second answer: %+v, %v", fb, err)
	}
	if s := r.State(); s.Phase != PhasePresenting || s.Index != 2 || s.Score != 1 {
		t.Fatalf("unexpected state: %+v", s)
	}
	fb, err = r.Answer(ctx, 2)
	if err != nil || !fb.Correct || !fb.Done {
		t.Fatalf("last answer: %+v, %v", fb, err)
	}

	s := r.State()
	if s.Phase != PhaseCompleted || s.Score != 2 {
		t.Fatalf("unexpected final state: %+v", s)
	}
	if len(rec.attempts) != 1 {
		t.Fatalf("expected 1 recorded attempt, got %d", len(rec.attempts))
	}
	a := rec.attempts[0]
	if a.DocumentID != "doc-1" || a.TemplateRevision != "rev-1" || a.Score != 2 || a.TotalQuestions != 3 {
		t.Errorf("unexpected attempt: %+v", a)
	}
	if len(a.SelectedIndices) != 3 || a.SelectedIndices[0] != 7 || a.SelectedIndices[2] != 9 {
		t.Errorf("selected indices must be template indices: %v", a.SelectedIndices)
	}
	if !a.CompletedAt.Equal(clock.Now()) {
		t.Errorf("completed at = %v", a.CompletedAt)
	}
	if err := a.Validate(); err != nil {
		t.Errorf("recorded attempt is invalid: %v", err)
	}

	if _, err := r.Answer(ctx, 0); !errors.Is(err, ErrCompleted) {
		t.Errorf("expected ErrCompleted, got %v", err)
	}
	if _, _, ok := r.Current(); ok {
		t.Error("expected no current question after completion")
	}
}

func TestRunner_TickTimesOut(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	rec := &countingRecorder{}
	r := newTestRunner(t, rec, clock)
	ctx := context.Background()

	if got := r.Remaining(clock.Now()); got != 10*time.Second {
		t.Fatalf("remaining = %v", got)
	}

	clock.Advance(9 * time.Second)
	if _, fired, _ := r.Tick(ctx, clock.Now()); fired {
		t.Fatal("tick fired before the deadline")
	}
	if got := r.Remaining(clock.Now()); got != time.Second {
		t.Fatalf("remaining = %v", got)
	}

	clock.Advance(time.Second)
	fb, fired, err := r.Tick(ctx, clock.Now())
	if err != nil || !fired || fb.Correct || fb.Chosen != TimedOut {
		t.Fatalf("expected timeout, got %+v fired=%v err=%v", fb, fired, err)
	}
	if s := r.State(); s.Index != 1 {
		t.Fatalf("expected advance to question 1, got %+v", s)
	}
	if got := r.Remaining(clock.Now()); got != 10*time.Second {
		t.Fatalf("countdown not restarted: %v", got)
	}

	// Way past the deadline still fires exactly once per tick.
	clock.Advance(time.Hour)
	if _, fired, _ := r.Tick(ctx, clock.Now()); !fired {
		t.Fatal("expected tick to fire")
	}
	if s := r.State(); s.Index != 2 {
		t.Fatalf("expected one advance per tick, got %+v", s)
	}

	if _, err := r.Timeout(ctx); err != nil {
		t.Fatalf("timeout: %v", err)
	}
	a := rec.attempts[0]
	for i, ans := range a.Answers {
		if ans != TimedOut {
			t.Errorf("answer %d = %d, want %d", i, ans, TimedOut)
		}
	}
	if a.Score != 0 {
		t.Errorf("score = %d, want 0", a.Score)
	}
	if got := r.Remaining(clock.Now()); got != 0 {
		t.Errorf("remaining after completion = %v", got)
	}
}

func TestRunner_FinishIsSingleShot(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	rec := &countingRecorder{}
	r := newTestRunner(t, rec, clock)
	ctx := context.Background()

	if _, err := r.Answer(ctx, 0); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	results := make([]*store.Attempt, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = r.Finish(ctx)
		}(i)
	}
	wg.Wait()

	if len(rec.attempts) != 1 {
		t.Fatalf("expected exactly one recording, got %d", len(rec.attempts))
	}
	for _, a := range results {
		if a != results[0] {
			t.Fatal("later Finish calls must return the first result")
		}
	}
	a := results[0]
	if a.Score != 1 || len(a.Answers) != 3 || a.Answers[1] != TimedOut || a.Answers[2] != TimedOut {
		t.Errorf("unexpected early-finish attempt: %+v", a)
	}
}

func TestRunner_RecorderErrorSurfacedOnce(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	rec := &countingRecorder{err: errors.New("db locked")}
	r, err := NewRunner("doc", "rev", questions(0), []int{0}, rec, Config{Now: clock.Now})
	if err != nil {
		t.Fatal(err)
	}

	fb, err := r.Answer(context.Background(), 0)
	if err == nil || !fb.Done {
		t.Fatalf("expected record error on last answer, got %+v, %v", fb, err)
	}
	if _, err2 := r.Finish(context.Background()); err2 == nil {
		t.Fatal("expected Finish to return the first error")
	}
	if len(rec.attempts) != 1 {
		t.Fatalf("recorder must not be retried, got %d calls", len(rec.attempts))
	}
}

func TestNewRunner_Validation(t *testing.T) {
	if _, err := NewRunner("d", "r", nil, nil, nil, Config{}); err == nil {
		t.Error("expected error for empty quiz")
	}
	if _, err := NewRunner("d", "r", questions(0, 1), []int{0}, nil, Config{}); err == nil {
		t.Error("expected error for index mismatch")
	}

	r, err := NewRunner("d", "r", questions(0), []int{0}, nil, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if got := r.Remaining(time.Now()); got <= 0 || got > DefaultQuestionTimeout {
		t.Errorf("default timeout not applied: %v", got)
	}
}

func TestRecorderFunc(t *testing.T) {
	var got *store.Attempt
	rec := RecorderFunc(func(_ context.Context, a *store.Attempt) error {
		got = a
		return nil
	})
	r, _ := NewRunner("d", "r", questions(1), []int{4}, rec, Config{})
	if _, err := r.Answer(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Score != 1 || got.SelectedIndices[0] != 4 {
		t.Fatalf("unexpected attempt: %+v", got)
	}
}

func TestRunner_RestartClock(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	r := newTestRunner(t, nil, clock)

	if _, err := r.Answer(context.Background(), 0); err != nil {
		t.Fatalf("answer: %v", err)
	}
	// Feedback stays up for a while before the next question appears.
	clock.Advance(8 * time.Second)
	if got := r.Remaining(clock.Now()); got != 2*time.Second {
		t.Fatalf("remaining before restart = %v, want 2s", got)
	}

	r.RestartClock()
	if got := r.Remaining(clock.Now()); got != 10*time.Second {
		t.Errorf("remaining after restart = %v, want 10s", got)
	}
	clock.Advance(5 * time.Second)
	if _, fired, _ := r.Tick(context.Background(), clock.Now()); fired {
		t.Error("tick fired before the restarted deadline")
	}
}
