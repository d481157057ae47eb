// Package quiz runs one timed pass over a selection of questions and
// records the result.
package quiz

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/abhisek/pdfquiz/internal/store"
)

// DefaultQuestionTimeout is how long each question stays on screen.
const DefaultQuestionTimeout = 60 * time.Second

// TimedOut is the answer recorded for a question that ran out of time.
const TimedOut = -1

// ErrCompleted is returned when answering after the quiz has ended.
var ErrCompleted = errors.New("quiz already completed")

// Phase is the runner's lifecycle stage.
type Phase int

const (
	PhasePresenting Phase = iota // Showing question Index
	PhaseCompleted               // All questions answered or timed out
)

func (p Phase) String() string {
	switch p {
	case PhasePresenting:
		return "presenting"
	case PhaseCompleted:
		return "completed"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// State is a snapshot of the runner.
type State struct {
	Phase Phase
	Index int
	Total int
	Score int
}

// Recorder persists a finished attempt.
type Recorder interface {
	RecordAttempt(ctx context.Context, a *store.Attempt) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, a *store.Attempt) error

func (f RecorderFunc) RecordAttempt(ctx context.Context, a *store.Attempt) error { return f(ctx, a) }

// Config controls a Runner.
type Config struct {
	// QuestionTimeout is the per-question countdown. Zero uses
	// DefaultQuestionTimeout.
	QuestionTimeout time.Duration

	// Now is the clock. Nil uses time.Now.
	Now func() time.Time
}

// Feedback reports the result of one answered or timed-out question.
type Feedback struct {
	Correct     bool
	Chosen      int
	AnswerIndex int
	Explanation string
	// Done is true when this was the last question.
	Done bool
}

// Runner walks through the questions in order. It is safe for concurrent
// use; a UI tick and a keypress may race on the same question.
type Runner struct {
	mu sync.Mutex

	documentID string
	revision   string
	questions  []store.Question
	indices    []int
	recorder   Recorder
	timeout    time.Duration
	now        func() time.Time

	index    int
	score    int
	answers  []int
	deadline time.Time

	finished  bool
	attempt   *store.Attempt
	recordErr error
}

// NewRunner starts a quiz over questions, where indices[i] is the template
// index of questions[i]. The first question's countdown starts now.
func NewRunner(documentID, revision string, questions []store.Question, indices []int, rec Recorder, cfg Config) (*Runner, error) {
	if len(questions) == 0 {
		return nil, errors.New("quiz has no questions")
	}
	if len(indices) != len(questions) {
		return nil, fmt.Errorf("%d template indices for %d questions", len(indices), len(questions))
	}
	if cfg.QuestionTimeout <= 0 {
		cfg.QuestionTimeout = DefaultQuestionTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	r := &Runner{
		documentID: documentID,
		revision:   revision,
		questions:  questions,
		indices:    append([]int(nil), indices...),
		recorder:   rec,
		timeout:    cfg.QuestionTimeout,
		now:        cfg.Now,
		answers:    make([]int, 0, len(questions)),
	}
	r.deadline = r.now().Add(r.timeout)
	return r, nil
}

// Current returns the question on screen and its position. ok is false
// once the quiz is completed.
func (r *Runner) Current() (q store.Question, index int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return store.Question{}, r.index, false
	}
	return r.questions[r.index], r.index, true
}

// State returns a snapshot of the runner.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := State{Phase: PhasePresenting, Index: r.index, Total: len(r.questions), Score: r.score}
	if r.finished {
		s.Phase = PhaseCompleted
	}
	return s
}

// Answer records option for the current question and advances. Only an
// exact match of the answer index scores.
func (r *Runner) Answer(ctx context.Context, option int) (Feedback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.advance(ctx, option)
}

// Timeout counts the current question as wrong and advances.
func (r *Runner) Timeout(ctx context.Context) (Feedback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.advance(ctx, TimedOut)
}

// Tick times out the current question if its deadline has passed.
// fired reports whether it did.
func (r *Runner) Tick(ctx context.Context, now time.Time) (fb Feedback, fired bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished || now.Before(r.deadline) {
		return Feedback{}, false, nil
	}
	fb, err = r.advance(ctx, TimedOut)
	return fb, true, err
}

// Remaining returns the time left on the current question.
func (r *Runner) Remaining(now time.Time) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return 0
	}
	return max(r.deadline.Sub(now), 0)
}

// RestartClock gives the current question a full countdown from now.
// Callers that pause between questions, for example to show feedback,
// call it when the next question appears.
func (r *Runner) RestartClock() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.finished {
		r.deadline = r.now().Add(r.timeout)
	}
}

// Finish ends the quiz, counting unanswered questions as timed out, and
// records the attempt. Only the first call records; later calls return
// the first result.
func (r *Runner) Finish(ctx context.Context) (*store.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finish(ctx)
}

// Attempt returns the recorded attempt, or nil before completion.
func (r *Runner) Attempt() *store.Attempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempt
}

func (r *Runner) advance(ctx context.Context, option int) (Feedback, error) {
	if r.finished {
		return Feedback{}, ErrCompleted
	}

	q := r.questions[r.index]
	fb := Feedback{
		Correct:     option == q.Answer,
		Chosen:      option,
		AnswerIndex: q.Answer,
		Explanation: q.Explanation,
	}
	if fb.Correct {
		r.score++
	}
	r.answers = append(r.answers, option)

	if r.index+1 < len(r.questions) {
		r.index++
		r.deadline = r.now().Add(r.timeout)
		return fb, nil
	}

	fb.Done = true
	_, err := r.finish(ctx)
	return fb, err
}

func (r *Runner) finish(ctx context.Context) (*store.Attempt, error) {
	if r.finished {
		return r.attempt, r.recordErr
	}
	r.finished = true

	for len(r.answers) < len(r.questions) {
		r.answers = append(r.answers, TimedOut)
	}

	r.attempt = &store.Attempt{
		DocumentID:       r.documentID,
		TemplateRevision: r.revision,
		Score:            r.score,
		TotalQuestions:   len(r.questions),
		SelectedIndices:  r.indices,
		Answers:          r.answers,
		CompletedAt:      r.now().UTC(),
	}
	if r.recorder != nil {
		if err := r.recorder.RecordAttempt(ctx, r.attempt); err != nil {
			r.recordErr = fmt.Errorf("record attempt: %w", err)
		}
	}
	return r.attempt, r.recordErr
}
