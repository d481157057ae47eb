// Package export writes attempt history to spreadsheets.
package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/abhisek/pdfquiz/internal/store"
	"github.com/xuri/excelize/v2"
)

const (
	AttemptsSheet  = "Attempts"
	DocumentsSheet = "Documents"
)

var attemptHeader = []any{"Completed", "Document", "Score", "Questions", "Percent", "Timed Out", "Template Revision", "Attempt ID"}

var documentHeader = []any{"Document", "Attempts", "Best Score", "Average %", "Last Attempt"}

// Attempts writes attempts as an xlsx workbook to w. docs resolves
// document names; attempts of unknown documents show their ID.
func Attempts(w io.Writer, attempts []store.Attempt, docs []store.Document) error {
	f := excelize.NewFile()
	defer f.Close()

	names := make(map[string]string, len(docs))
	for _, d := range docs {
		names[d.ID] = d.Name
	}
	name := func(id string) string {
		if n, ok := names[id]; ok && n != "" {
			return n
		}
		return id
	}

	if err := f.SetSheetName("Sheet1", AttemptsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	if err := writeRows(f, AttemptsSheet, attemptHeader, attemptRows(attempts, name), bold); err != nil {
		return err
	}

	if _, err := f.NewSheet(DocumentsSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if err := writeRows(f, DocumentsSheet, documentHeader, documentRows(attempts, name), bold); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func attemptRows(attempts []store.Attempt, name func(string) string) [][]any {
	rows := make([][]any, 0, len(attempts))
	for _, a := range attempts {
		rows = append(rows, []any{
			a.CompletedAt.Local().Format("2006-01-02 15:04"),
			name(a.DocumentID),
			a.Score,
			a.TotalQuestions,
			percent(a.Score, a.TotalQuestions),
			timedOut(a.Answers),
			a.TemplateRevision,
			a.ID,
		})
	}
	return rows
}

type docStats struct {
	id       string
	attempts int
	best     int
	pctSum   float64
	last     store.Attempt
}

func documentRows(attempts []store.Attempt, name func(string) string) [][]any {
	byDoc := map[string]*docStats{}
	for _, a := range attempts {
		s, ok := byDoc[a.DocumentID]
		if !ok {
			s = &docStats{id: a.DocumentID}
			byDoc[a.DocumentID] = s
		}
		s.attempts++
		s.best = max(s.best, a.Score)
		s.pctSum += percent(a.Score, a.TotalQuestions)
		if a.CompletedAt.After(s.last.CompletedAt) {
			s.last = a
		}
	}

	stats := make([]*docStats, 0, len(byDoc))
	for _, s := range byDoc {
		stats = append(stats, s)
	}
	sort.Slice(stats, func(i, j int) bool { return name(stats[i].id) < name(stats[j].id) })

	rows := make([][]any, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []any{
			name(s.id),
			s.attempts,
			s.best,
			round1(s.pctSum / float64(s.attempts)),
			s.last.CompletedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return rows
}

func writeRows(f *excelize.File, sheet string, header []any, rows [][]any, headerStyle int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	lastCol, _ := excelize.ColumnNumberToName(len(header))
	return f.SetColWidth(sheet, "A", lastCol, 18)
}

func percent(score, total int) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(score) * 100 / float64(total))
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

func timedOut(answers []int) int {
	n := 0
	for _, a := range answers {
		if a < 0 {
			n++
		}
	}
	return n
}
