package history

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/pdfquiz/internal/router"
	"github.com/abhisek/pdfquiz/internal/screen"
	"github.com/abhisek/pdfquiz/internal/screens/summary"
	"github.com/abhisek/pdfquiz/internal/store"
	"github.com/abhisek/pdfquiz/internal/ui/components"
	"github.com/abhisek/pdfquiz/internal/ui/layout"
	"github.com/abhisek/pdfquiz/internal/ui/theme"
)

const pageSize = 100

type historyLoadedMsg struct {
	Attempts []store.Attempt
	Names    map[string]string // document ID → name
	Err      error
}

// HistoryScreen lists past attempts, newest first.
type HistoryScreen struct {
	attempts   store.AttemptRepo
	documents  store.DocumentRepo
	documentID string

	rows     []store.Attempt
	names    map[string]string
	selected int
	expanded map[int]bool
	loaded   bool
	errMsg   string
}

var _ screen.Screen = (*HistoryScreen)(nil)
var _ screen.KeyHintProvider = (*HistoryScreen)(nil)

// New creates a HistoryScreen. An empty documentID lists attempts for
// every document.
func New(attempts store.AttemptRepo, documents store.DocumentRepo, documentID string) *HistoryScreen {
	return &HistoryScreen{
		attempts:   attempts,
		documents:  documents,
		documentID: documentID,
		expanded:   make(map[int]bool),
	}
}

func (s *HistoryScreen) Init() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()

		rows, err := s.attempts.List(ctx, store.QueryOpts{DocumentID: s.documentID, Limit: pageSize})
		if err != nil {
			return historyLoadedMsg{Err: err}
		}

		// Names are decoration; attempts still show without them.
		names := make(map[string]string)
		if docs, err := s.documents.List(ctx); err == nil {
			for _, d := range docs {
				names[d.ID] = d.Name
			}
		}
		return historyLoadedMsg{Attempts: rows, Names: names}
	}
}

func (s *HistoryScreen) Title() string {
	if s.documentID != "" {
		return "Attempts"
	}
	return "History"
}

func (s *HistoryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Details"},
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *HistoryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
		} else {
			s.rows = msg.Attempts
			s.names = msg.Names
		}
		s.loaded = true
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "q":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
		case "down", "j":
			if s.selected < len(s.rows)-1 {
				s.selected++
			}
		case "enter":
			s.expanded[s.selected] = !s.expanded[s.selected]
		}
	}
	return s, nil
}

func (s *HistoryScreen) View(width, height int) string {
	if s.errMsg != "" {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.Error).
			Render(fmt.Sprintf("\n\nError: %s", s.errMsg))
	}
	if !s.loaded {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).
			Render("\n\n  Loading history...")
	}
	if len(s.rows) == 0 {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).Italic(true).
			Render("\n\n  No attempts yet. Take a quiz!")
	}

	cw := min(width-4, 100)
	var lines []string
	selectedLine := 0
	for i, a := range s.rows {
		if i == s.selected {
			selectedLine = len(lines)
		}
		lines = append(lines, s.renderRow(i, a, cw))
		if s.expanded[i] {
			lines = append(lines, s.renderDetail(a)...)
		}
	}

	// Scroll so the selected row stays visible.
	visible := max(height-1, 1)
	start := 0
	if selectedLine >= visible {
		start = selectedLine - visible + 1
	}
	end := min(start+visible, len(lines))

	var b strings.Builder
	b.WriteString("\n")
	for _, line := range lines[start:end] {
		b.WriteString(layout.Center(line, width))
		b.WriteString("\n")
	}
	return b.String()
}

func (s *HistoryScreen) renderRow(i int, a store.Attempt, width int) string {
	prefix := "  "
	style := lipgloss.NewStyle().Foreground(theme.Text)
	if i == s.selected {
		prefix = "> "
		style = style.Foreground(theme.Primary).Bold(true)
	}

	line := fmt.Sprintf("%s%s  %d/%d  %3d%%",
		prefix, a.CompletedAt.Local().Format("Jan 02, 2006 15:04"),
		a.Score, a.TotalQuestions, summary.Percent(a.Score, a.TotalQuestions))
	if s.documentID == "" {
		name := s.names[a.DocumentID]
		if name == "" {
			name = "(deleted document)"
		}
		line += "  " + name
	}
	return style.Render(layout.Truncate(line, width))
}

func (s *HistoryScreen) renderDetail(a store.Attempt) []string {
	out := make([]string, 0, len(a.SelectedIndices))
	for i, idx := range a.SelectedIndices {
		ans := -1
		if i < len(a.Answers) {
			ans = a.Answers[i]
		}
		chosen := "no answer"
		if ans >= 0 {
			chosen = "chose " + components.OptionLabel(ans)
		}
		out = append(out, theme.Muted.Render(fmt.Sprintf("      Q%d  question #%d  %s", i+1, idx+1, chosen)))
	}
	return out
}
