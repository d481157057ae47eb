package home

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/pdfquiz/internal/ui/theme"
)

// contentWidth caps the document list so it stays readable on wide
// terminals.
func contentWidth(width int) int {
	return max(min(width-6, 80), 20)
}

func (h *HomeScreen) View(width, height int) string {
	cw := contentWidth(width)

	var sections []string
	sections = append(sections, theme.Title.Render("Your documents"))

	switch {
	case h.errMsg != "":
		sections = append(sections, theme.ErrorText.Width(cw).Render("Error: "+h.errMsg))
	case !h.loaded:
		sections = append(sections, theme.Muted.Render("Loading documents..."))
	case len(h.entries) == 0:
		sections = append(sections, theme.Hint.Width(cw).Render(
			"No documents yet. Add one with:\n\n  pdfquiz ingest notes.pdf"))
	default:
		// Title, stats and spacing take six lines.
		sections = append(sections, h.menu.View(cw, max(height-8, 3)))
	}

	sections = append(sections, h.renderStats())

	content := strings.Join(sections, "\n\n")
	box := theme.Card.Width(cw + 4).Render(content)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}

func (h *HomeScreen) renderStats() string {
	ready := 0
	for _, e := range h.entries {
		if e.Valid {
			ready++
		}
	}

	countLine := theme.Body.Render(fmt.Sprintf("Questions per quiz: %d", h.count))
	if h.editingCount {
		countLine = theme.Body.Render("Questions per quiz: ") + h.countInput.View()
	}
	docsLine := theme.Muted.Render(fmt.Sprintf("%d documents, %d ready to quiz", len(h.entries), ready))

	return docsLine + "\n" + countLine
}
