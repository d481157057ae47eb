package home

import (
	"context"
	"fmt"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/pdfquiz/internal/router"
	"github.com/abhisek/pdfquiz/internal/screen"
	"github.com/abhisek/pdfquiz/internal/screens/history"
	quizscreen "github.com/abhisek/pdfquiz/internal/screens/quiz"
	"github.com/abhisek/pdfquiz/internal/store"
	"github.com/abhisek/pdfquiz/internal/ui/components"
	"github.com/abhisek/pdfquiz/internal/ui/layout"
)

// maxCount bounds the question count a user can ask for.
const maxCount = 100

// entry is a document with the state of its question template.
type entry struct {
	Doc       store.Document
	Questions int
	Valid     bool
	Expired   bool
}

type documentsLoadedMsg struct {
	Entries []entry
	Err     error
}

// Deps are the collaborators of the home screen.
type Deps struct {
	Documents store.DocumentRepo
	Quiz      quizscreen.Deps
}

// HomeScreen is the document picker.
type HomeScreen struct {
	deps    Deps
	entries []entry
	menu    components.Menu
	loaded  bool
	errMsg  string

	count        int
	editingCount bool
	countInput   components.NumberInput
}

var _ screen.Screen = (*HomeScreen)(nil)
var _ screen.KeyHintProvider = (*HomeScreen)(nil)
var _ screen.Refresher = (*HomeScreen)(nil)

// New creates a new HomeScreen.
func New(deps Deps) *HomeScreen {
	count := deps.Quiz.Count
	if count <= 0 {
		count = quizscreen.DefaultCount
	}
	return &HomeScreen{deps: deps, count: count}
}

func (h *HomeScreen) Init() tea.Cmd {
	return h.load()
}

// Refresh reloads documents when returning from a quiz or history.
func (h *HomeScreen) Refresh() tea.Cmd {
	return h.load()
}

func (h *HomeScreen) Title() string {
	return "Documents"
}

func (h *HomeScreen) KeyHints() []layout.KeyHint {
	if h.editingCount {
		return []layout.KeyHint{
			{Key: "Enter", Description: "Save"},
			{Key: "Esc", Description: "Cancel"},
		}
	}
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Start quiz"},
		{Key: "N", Description: "Questions"},
		{Key: "H", Description: "Attempts"},
		{Key: "A", Description: "All history"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

func (h *HomeScreen) load() tea.Cmd {
	docs := h.deps.Documents
	templates := h.deps.Quiz.Templates
	return func() tea.Msg {
		ctx := context.Background()
		list, err := docs.List(ctx)
		if err != nil {
			return documentsLoadedMsg{Err: err}
		}
		now := time.Now()
		entries := make([]entry, 0, len(list))
		for _, d := range list {
			e := entry{Doc: d}
			tmpl, err := templates.Get(ctx, d.ID)
			if err != nil {
				return documentsLoadedMsg{Err: err}
			}
			if tmpl != nil {
				e.Questions = tmpl.Size()
				e.Expired = !now.Before(tmpl.ExpiresAt)
				e.Valid = e.Questions > 0 && !e.Expired
			}
			entries = append(entries, e)
		}
		return documentsLoadedMsg{Entries: entries}
	}
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case documentsLoadedMsg:
		h.loaded = true
		if msg.Err != nil {
			h.errMsg = msg.Err.Error()
			return h, nil
		}
		h.errMsg = ""
		selected := h.menu.Selected
		h.entries = msg.Entries
		h.menu = components.NewMenu(h.menuItems())
		if selected < len(h.menu.Items) {
			h.menu.Selected = selected
		}
		return h, nil

	case tea.KeyMsg:
		if h.editingCount {
			return h.handleCountKey(msg)
		}
		switch msg.String() {
		case "n", "N":
			h.editingCount = true
			h.countInput = components.NewNumberInput(h.count, 1, maxCount)
			return h, h.countInput.Init()
		case "h", "H":
			if e, ok := h.selectedEntry(); ok {
				return h, push(history.New(h.deps.Quiz.Attempts, h.deps.Documents, e.Doc.ID))
			}
			return h, nil
		case "a", "A":
			return h, push(history.New(h.deps.Quiz.Attempts, h.deps.Documents, ""))
		case "r", "R":
			return h, h.load()
		}
	}

	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) handleCountKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	switch msg.String() {
	case "esc":
		h.editingCount = false
		return h, nil
	case "enter":
		if v, ok := h.countInput.Value(); ok {
			h.count = v
			h.editingCount = false
		}
		return h, nil
	}
	var cmd tea.Cmd
	h.countInput, cmd = h.countInput.Update(msg)
	return h, cmd
}

func (h *HomeScreen) menuItems() []components.MenuItem {
	items := make([]components.MenuItem, 0, len(h.entries))
	for _, e := range h.entries {
		items = append(items, components.MenuItem{
			Label:  e.Doc.Name,
			Detail: entryDetail(e),
			Action: func() tea.Cmd { return h.startQuiz(e.Doc) },
		})
	}
	return items
}

func (h *HomeScreen) startQuiz(doc store.Document) tea.Cmd {
	deps := h.deps.Quiz
	deps.Count = h.count
	return push(quizscreen.New(doc, deps))
}

func (h *HomeScreen) selectedEntry() (entry, bool) {
	if h.menu.Selected < 0 || h.menu.Selected >= len(h.entries) {
		return entry{}, false
	}
	return h.entries[h.menu.Selected], true
}

func entryDetail(e entry) string {
	switch {
	case e.Questions == 0:
		return "no questions yet"
	case e.Expired:
		return fmt.Sprintf("%d questions, expired", e.Questions)
	}
	return fmt.Sprintf("%d questions", e.Questions)
}

func push(s screen.Screen) tea.Cmd {
	return func() tea.Msg { return router.PushScreenMsg{Screen: s} }
}
