package summary

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/pdfquiz/internal/router"
	"github.com/abhisek/pdfquiz/internal/screen"
	"github.com/abhisek/pdfquiz/internal/store"
	"github.com/abhisek/pdfquiz/internal/ui/components"
	"github.com/abhisek/pdfquiz/internal/ui/layout"
	"github.com/abhisek/pdfquiz/internal/ui/theme"
)

// Result is a finished quiz. Questions[i] is the question asked at
// position i of Attempt.
type Result struct {
	Document  store.Document
	Questions []store.Question
	Attempt   *store.Attempt
	RecordErr string
}

// SummaryScreen displays the result of a quiz.
type SummaryScreen struct {
	result Result
	offset int
}

var _ screen.Screen = (*SummaryScreen)(nil)
var _ screen.KeyHintProvider = (*SummaryScreen)(nil)

// New creates a new SummaryScreen.
func New(result Result) *SummaryScreen {
	return &SummaryScreen{result: result}
}

func (s *SummaryScreen) Init() tea.Cmd {
	return nil
}

func (s *SummaryScreen) Title() string {
	return "Results"
}

func (s *SummaryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Scroll"},
		{Key: "Enter", Description: "Done"},
	}
}

func (s *SummaryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyMsg); ok {
		switch kmsg.String() {
		case "enter", "esc", "q":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "up", "k":
			if s.offset > 0 {
				s.offset--
			}
		case "down", "j":
			if s.offset < len(s.result.Questions)-1 {
				s.offset++
			}
		}
	}
	return s, nil
}

func (s *SummaryScreen) View(width, height int) string {
	a := s.result.Attempt
	if a == nil {
		return ""
	}

	var b strings.Builder
	center := func(line string) {
		b.WriteString(layout.Center(line, width))
		b.WriteString("\n")
	}

	center(theme.Title.Render("Quiz complete!"))
	b.WriteString("\n")
	center(lipgloss.NewStyle().Foreground(theme.Text).Bold(true).
		Render(fmt.Sprintf("%d / %d correct   %d%%", a.Score, a.TotalQuestions, Percent(a.Score, a.TotalQuestions))))
	center(theme.Muted.Render(Verdict(a.Score, a.TotalQuestions)))
	if s.result.RecordErr != "" {
		center(theme.ErrorText.Render("This attempt was not saved: " + s.result.RecordErr))
	}
	b.WriteString("\n")

	cw := min(width-8, 90)
	center(lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", cw)))

	// Each question takes two lines; keep the header visible.
	rows := max((height-8)/2, 1)
	end := min(s.offset+rows, len(s.result.Questions))
	for i := s.offset; i < end; i++ {
		b.WriteString(layout.Center(s.renderQuestion(i, cw), width))
		b.WriteString("\n")
	}

	return b.String()
}

func (s *SummaryScreen) renderQuestion(i, width int) string {
	q := s.result.Questions[i]
	chosen := -1
	if i < len(s.result.Attempt.Answers) {
		chosen = s.result.Attempt.Answers[i]
	}

	mark := theme.Correct.Render("✓")
	detail := fmt.Sprintf("answer %s", components.OptionLabel(q.Answer))
	switch {
	case chosen == q.Answer:
	case chosen < 0:
		mark = theme.Incorrect.Render("✗")
		detail = "no answer, " + detail
	default:
		mark = theme.Incorrect.Render("✗")
		detail = fmt.Sprintf("you chose %s, %s", components.OptionLabel(chosen), detail)
	}

	prompt := layout.Truncate(fmt.Sprintf("%d. %s", i+1, q.Prompt), width-2)
	return lipgloss.NewStyle().Width(width).Render(
		mark + " " + theme.Body.Render(prompt) + "\n    " + theme.Muted.Render(detail))
}

// Percent returns score as a whole percentage of total.
func Percent(score, total int) int {
	if total <= 0 {
		return 0
	}
	return score * 100 / total
}

// Verdict is a one-line reaction to a score.
func Verdict(score, total int) string {
	switch p := Percent(score, total); {
	case p == 100:
		return "Perfect score."
	case p >= 80:
		return "Great work."
	case p >= 50:
		return "Solid. Review the ones you missed."
	default:
		return "Worth another pass through the material."
	}
}
