package components

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/pdfquiz/internal/ui/theme"
)

// MultiChoice is a multiple-choice selector. Options are labelled A, B,
// C... and can be picked by arrow keys, by letter or by number.
type MultiChoice struct {
	Question string
	Options  []string
	Selected int

	// Set by Reveal once the question is graded.
	revealed bool
	answer   int
	chosen   int
}

// NewMultiChoice creates a new multiple-choice component.
func NewMultiChoice(question string, options []string) MultiChoice {
	return MultiChoice{
		Question: question,
		Options:  options,
		answer:   -1,
		chosen:   -1,
	}
}

// Update moves the cursor. It reports the picked option index when the
// user submits, or -1.
func (m MultiChoice) Update(msg tea.Msg) (MultiChoice, int) {
	if m.revealed {
		return m, -1
	}
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, -1
	}

	key := kmsg.String()
	switch key {
	case "up", "k":
		if m.Selected > 0 {
			m.Selected--
		}
		return m, -1
	case "down", "j":
		if m.Selected < len(m.Options)-1 {
			m.Selected++
		}
		return m, -1
	case "enter":
		return m, m.Selected
	}

	if i := optionForKey(key); i >= 0 && i < len(m.Options) {
		m.Selected = i
		return m, i
	}
	return m, -1
}

// Reveal marks the correct option and the chosen one. chosen may be -1
// when the question timed out.
func (m *MultiChoice) Reveal(answer, chosen int) {
	m.revealed = true
	m.answer = answer
	m.chosen = chosen
}

// View renders the question and its options, wrapped to width.
func (m MultiChoice) View(width int) string {
	var b strings.Builder

	b.WriteString(lipgloss.NewStyle().
		Foreground(theme.Text).
		Bold(true).
		Width(width).
		Render(m.Question))
	b.WriteString("\n\n")

	for i, opt := range m.Options {
		prefix := "  "
		if i == m.Selected && !m.revealed {
			prefix = "▸ "
		}
		line := fmt.Sprintf("%s%s)  %s", prefix, OptionLabel(i), opt)

		style := theme.Unselected
		switch {
		case m.revealed && i == m.answer:
			style = theme.Correct
		case m.revealed && i == m.chosen:
			style = theme.Incorrect
		case m.revealed:
			style = theme.Muted
		case i == m.Selected:
			style = theme.Selected
		}
		b.WriteString(style.Width(width).Render(line))
		b.WriteString("\n")
	}

	return b.String()
}

// OptionLabel returns the letter shown for option i.
func OptionLabel(i int) string {
	if i < 0 || i >= 26 {
		return "?"
	}
	return string(rune('A' + i))
}

// optionForKey maps "a".."z" and "1".."9" to an option index.
func optionForKey(key string) int {
	if len(key) != 1 {
		return -1
	}
	c := key[0]
	switch {
	case c >= 'a' && c <= 'z':
		// j and k move the cursor and never reach here.
		return int(c - 'a')
	case c >= '1' && c <= '9':
		return int(c - '1')
	}
	return -1
}
