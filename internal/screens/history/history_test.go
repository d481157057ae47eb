package history

import (
	"context"
	"fmt"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/pdfquiz/internal/router"
	"github.com/abhisek/pdfquiz/internal/store"
)

func seedStore(t *testing.T) (*store.Store, *store.Document) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := store.Open(fmt.Sprintf("file:history_%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	doc := &store.Document{Name: "chemistry.pdf", BlobKey: "documents/chem/source.pdf"}
	if err := s.Documents().Create(ctx, doc); err != nil {
		t.Fatalf("create document: %v", err)
	}
	for _, a := range []store.Attempt{
		{DocumentID: doc.ID, Score: 2, TotalQuestions: 3, SelectedIndices: []int{0, 4, 2}, Answers: []int{1, 2, -1}},
		{DocumentID: doc.ID, Score: 1, TotalQuestions: 1, SelectedIndices: []int{3}, Answers: []int{0}},
	} {
		a := a
		if err := s.Attempts().Record(ctx, &a); err != nil {
			t.Fatalf("record attempt: %v", err)
		}
	}
	return s, doc
}

func load(t *testing.T, h *HistoryScreen) {
	t.Helper()
	h.Update(h.Init()())
}

func TestHistoryScreen_ListsAttempts(t *testing.T) {
	s, _ := seedStore(t)
	h := New(s.Attempts(), s.Documents(), "")
	load(t, h)

	if h.errMsg != "" {
		t.Fatalf("unexpected error: %s", h.errMsg)
	}
	if len(h.rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(h.rows))
	}
	view := h.View(100, 20)
	if !strings.Contains(view, "chemistry.pdf") {
		t.Error("expected document name in the all-documents view")
	}
	if h.Title() != "History" {
		t.Errorf("Title = %q, want History", h.Title())
	}
}

func TestHistoryScreen_ExpandDetail(t *testing.T) {
	s, doc := seedStore(t)
	h := New(s.Attempts(), s.Documents(), doc.ID)
	load(t, h)

	// Find the three-question attempt.
	for i, a := range h.rows {
		if a.TotalQuestions == 3 {
			h.selected = i
		}
	}
	h.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	view := h.View(100, 20)
	for _, want := range []string{"question #5  chose C", "no answer"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if strings.Contains(view, "chemistry.pdf") {
		t.Error("single-document view should not repeat the name")
	}
}

func TestHistoryScreen_Empty(t *testing.T) {
	s, _ := seedStore(t)
	h := New(s.Attempts(), s.Documents(), "no-such-doc")
	load(t, h)
	if !strings.Contains(h.View(80, 20), "No attempts yet") {
		t.Error("expected empty message")
	}
}

func TestHistoryScreen_Navigation(t *testing.T) {
	s, _ := seedStore(t)
	h := New(s.Attempts(), s.Documents(), "")
	load(t, h)

	h.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	h.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	if h.selected != 1 {
		t.Errorf("selected = %d, want 1", h.selected)
	}

	_, cmd := h.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	if cmd == nil {
		t.Fatal("expected a command on Esc")
	}
	if _, ok := cmd().(router.PopScreenMsg); !ok {
		t.Error("expected PopScreenMsg")
	}
}
