package quiz

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/pdfquiz/internal/ui/components"
	"github.com/abhisek/pdfquiz/internal/ui/layout"
	"github.com/abhisek/pdfquiz/internal/ui/theme"
)

// contentWidth is the width of the question column.
func contentWidth(width int) int {
	return min(width-8, 90)
}

func (s *QuizScreen) renderLoading(width int) string {
	return lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.TextDim).
		Render("\n\n  Picking questions...")
}

func (s *QuizScreen) renderError(width int) string {
	return lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.Error).
		Render(fmt.Sprintf("\n\n%s\n\n", s.errMsg)) +
		layout.Center(theme.Hint.Render("Press any key to go back"), width)
}

func (s *QuizScreen) renderQuestion(width int) string {
	cw := contentWidth(width)
	state := s.runner.State()

	var b strings.Builder

	// Position and score line.
	pos := state.Index + 1
	if s.feedback != nil && !s.feedback.Done {
		// The runner has already moved on; keep showing the graded question.
		pos = state.Index
	}
	if pos > state.Total {
		pos = state.Total
	}
	info := lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true).
		Render(fmt.Sprintf("Question %d of %d", pos, state.Total))
	score := theme.Muted.Render(fmt.Sprintf("Score %d", state.Score))
	gap := max(cw-lipgloss.Width(info)-lipgloss.Width(score), 1)
	b.WriteString(info + strings.Repeat(" ", gap) + score)
	b.WriteString("\n")

	if s.feedback == nil {
		b.WriteString(s.countdown.View(s.remaining, cw))
	} else {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", cw)))
	}
	b.WriteString("\n\n")

	b.WriteString(s.choice.View(cw))

	if s.feedback != nil {
		b.WriteString("\n")
		b.WriteString(s.renderFeedback(cw))
	}
	if s.recordErr != "" {
		b.WriteString("\n")
		b.WriteString(theme.ErrorText.Width(cw).Render("Could not save this attempt: " + s.recordErr))
	}

	return lipgloss.PlaceHorizontal(width, lipgloss.Center, b.String())
}

func (s *QuizScreen) renderFeedback(width int) string {
	fb := s.feedback
	var head string
	switch {
	case fb.Correct:
		head = theme.Correct.Render("Correct!")
	case fb.Chosen < 0:
		head = theme.Incorrect.Render("Time's up.") + " " +
			theme.Body.Render(fmt.Sprintf("The answer was %s.", components.OptionLabel(fb.AnswerIndex)))
	default:
		head = theme.Incorrect.Render("Not quite.") + " " +
			theme.Body.Render(fmt.Sprintf("The answer was %s.", components.OptionLabel(fb.AnswerIndex)))
	}

	out := head + "\n"
	if fb.Explanation != "" {
		out += theme.Explanation.Width(width).Render(fb.Explanation) + "\n"
	}
	next := "Press any key for the next question"
	if fb.Done {
		next = "Press any key to see your results"
	}
	return out + "\n" + theme.Hint.Render(next)
}

func (s *QuizScreen) renderQuitConfirm(width, height int) string {
	state := s.runner.State()
	body := theme.Title.Render("End this quiz?") + "\n\n" +
		theme.Body.Render(fmt.Sprintf("%d of %d answered. Unanswered questions count as wrong.", state.Index, state.Total)) +
		"\n\n" + theme.Hint.Render("Y to end, N to keep going")
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, theme.Dialog.Render(body))
}
