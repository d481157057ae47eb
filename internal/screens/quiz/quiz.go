package quiz

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "charm.land/bubbletea/v2"

	qz "github.com/abhisek/pdfquiz/internal/quiz"
	"github.com/abhisek/pdfquiz/internal/rotation"
	"github.com/abhisek/pdfquiz/internal/router"
	"github.com/abhisek/pdfquiz/internal/screen"
	"github.com/abhisek/pdfquiz/internal/screens/summary"
	"github.com/abhisek/pdfquiz/internal/store"
	"github.com/abhisek/pdfquiz/internal/ui/components"
	"github.com/abhisek/pdfquiz/internal/ui/layout"
)

// DefaultCount is the number of questions per quiz.
const DefaultCount = 10

var errNoTemplate = errors.New("this document has no valid question set; regenerate it first")

// Picker chooses which template questions to ask.
type Picker interface {
	Select(ctx context.Context, tmpl rotation.Template, count int) (rotation.Selection, error)
}

// Deps are the collaborators of a quiz screen.
type Deps struct {
	Templates store.TemplateRepo
	Attempts  store.AttemptRepo
	Selector  Picker

	// Count is the number of questions to ask. Zero uses DefaultCount.
	Count int

	// QuestionTimeout is the per-question countdown. Zero uses
	// quiz.DefaultQuestionTimeout.
	QuestionTimeout time.Duration
}

// QuizScreen runs one timed quiz over a document.
type QuizScreen struct {
	deps Deps
	doc  store.Document

	runner    *qz.Runner
	questions []store.Question

	choice    components.MultiChoice
	countdown components.Countdown
	remaining time.Duration

	feedback    *qz.Feedback
	confirmQuit bool
	errMsg      string
	recordErr   string
}

var _ screen.Screen = (*QuizScreen)(nil)
var _ screen.KeyHintProvider = (*QuizScreen)(nil)
var _ screen.EscapeCapturer = (*QuizScreen)(nil)
var _ screen.StatusProvider = (*QuizScreen)(nil)

// New creates a quiz over doc.
func New(doc store.Document, deps Deps) *QuizScreen {
	if deps.Count <= 0 {
		deps.Count = DefaultCount
	}
	if deps.QuestionTimeout <= 0 {
		deps.QuestionTimeout = qz.DefaultQuestionTimeout
	}
	return &QuizScreen{deps: deps, doc: doc}
}

func (s *QuizScreen) Init() tea.Cmd {
	return s.load()
}

func (s *QuizScreen) Title() string {
	return "Quiz"
}

func (s *QuizScreen) Status() string {
	return s.doc.Name
}

func (s *QuizScreen) CapturesEscape() bool {
	return s.errMsg == ""
}

func (s *QuizScreen) KeyHints() []layout.KeyHint {
	switch {
	case s.errMsg != "":
		return []layout.KeyHint{{Key: "Any key", Description: "Back"}}
	case s.confirmQuit:
		return []layout.KeyHint{{Key: "Y", Description: "End quiz"}, {Key: "N", Description: "Keep going"}}
	case s.feedback != nil:
		return []layout.KeyHint{{Key: "Any key", Description: "Continue"}}
	}
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Choose"},
		{Key: "A-D/1-4", Description: "Answer"},
		{Key: "Enter", Description: "Submit"},
		{Key: "Esc", Description: "Quit"},
	}
}

func (s *QuizScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case quizLoadedMsg:
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
			return s, nil
		}
		s.runner = msg.Runner
		s.questions = msg.Questions
		s.showQuestion()
		return s, tickCmd()

	case timerTickMsg:
		return s.handleTimerTick(time.Time(msg))

	case quizEndMsg:
		return s.handleQuizEnd()

	case tea.KeyMsg:
		return s.handleKey(msg)
	}
	return s, nil
}

func (s *QuizScreen) View(width, height int) string {
	switch {
	case s.errMsg != "":
		return s.renderError(width)
	case s.runner == nil:
		return s.renderLoading(width)
	case s.confirmQuit:
		return s.renderQuitConfirm(width, height)
	}
	return s.renderQuestion(width)
}

// load selects the questions and starts the runner.
func (s *QuizScreen) load() tea.Cmd {
	deps := s.deps
	doc := s.doc
	return func() tea.Msg {
		ctx := context.Background()

		valid, err := deps.Templates.IsValid(ctx, doc.ID)
		if err != nil {
			return quizLoadedMsg{Err: fmt.Errorf("load questions: %w", err)}
		}
		if !valid {
			return quizLoadedMsg{Err: errNoTemplate}
		}
		tmpl, err := deps.Templates.Get(ctx, doc.ID)
		if err != nil {
			return quizLoadedMsg{Err: fmt.Errorf("load questions: %w", err)}
		}
		if tmpl == nil {
			return quizLoadedMsg{Err: errNoTemplate}
		}

		sel, err := deps.Selector.Select(ctx, rotation.FromStore(tmpl), deps.Count)
		if err != nil {
			return quizLoadedMsg{Err: fmt.Errorf("select questions: %w", err)}
		}
		questions := sel.Questions(tmpl.Questions)

		runner, err := qz.NewRunner(doc.ID, tmpl.Revision, questions, sel.Indices,
			qz.RecorderFunc(deps.Attempts.Record), qz.Config{QuestionTimeout: deps.QuestionTimeout})
		if err != nil {
			return quizLoadedMsg{Err: err}
		}
		return quizLoadedMsg{Runner: runner, Questions: questions}
	}
}

func (s *QuizScreen) handleTimerTick(now time.Time) (screen.Screen, tea.Cmd) {
	if s.runner == nil || s.runner.State().Phase == qz.PhaseCompleted {
		return s, nil
	}
	// The clock restarts when feedback is dismissed.
	if s.feedback != nil {
		return s, tickCmd()
	}

	fb, fired, err := s.runner.Tick(context.Background(), now)
	if fired {
		s.showFeedback(fb, err)
	} else {
		s.remaining = s.runner.Remaining(now)
	}
	return s, tickCmd()
}

func (s *QuizScreen) handleQuizEnd() (screen.Screen, tea.Cmd) {
	if s.runner == nil {
		return s, func() tea.Msg { return router.PopScreenMsg{} }
	}
	attempt, err := s.runner.Finish(context.Background())
	if err != nil {
		s.recordErr = err.Error()
	}
	result := summary.Result{
		Document:  s.doc,
		Questions: s.questions,
		Attempt:   attempt,
		RecordErr: s.recordErr,
	}
	return s, func() tea.Msg {
		return router.ReplaceScreenMsg{Screen: summary.New(result)}
	}
}

func (s *QuizScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()

	// Error state: any key goes back.
	if s.errMsg != "" {
		return s, func() tea.Msg { return router.PopScreenMsg{} }
	}
	if s.runner == nil {
		return s, nil
	}

	if s.confirmQuit {
		switch key {
		case "y", "Y":
			s.confirmQuit = false
			return s, endQuiz
		case "n", "N", "esc":
			s.confirmQuit = false
		}
		return s, nil
	}

	if s.feedback != nil {
		done := s.feedback.Done
		s.feedback = nil
		if done {
			return s, endQuiz
		}
		s.runner.RestartClock()
		s.showQuestion()
		return s, nil
	}

	if key == "esc" {
		s.confirmQuit = true
		return s, nil
	}

	var picked int
	s.choice, picked = s.choice.Update(msg)
	if picked < 0 {
		return s, nil
	}
	fb, err := s.runner.Answer(context.Background(), picked)
	if errors.Is(err, qz.ErrCompleted) {
		return s, endQuiz
	}
	s.showFeedback(fb, err)
	return s, nil
}

// showQuestion loads the runner's current question into the view.
func (s *QuizScreen) showQuestion() {
	q, _, ok := s.runner.Current()
	if !ok {
		return
	}
	s.choice = components.NewMultiChoice(q.Prompt, q.Options)
	s.countdown = components.NewCountdown(s.deps.QuestionTimeout)
	s.remaining = s.deps.QuestionTimeout
}

func (s *QuizScreen) showFeedback(fb qz.Feedback, err error) {
	s.feedback = &fb
	s.choice.Reveal(fb.AnswerIndex, fb.Chosen)
	if err != nil {
		s.recordErr = err.Error()
	}
}

func endQuiz() tea.Msg {
	return quizEndMsg{}
}

// tickCmd returns a 1-second tick command.
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return timerTickMsg(t)
	})
}
