// Package pdftext extracts plain text from PDF documents.
package pdftext

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DefaultMaxChars caps extracted text when no limit is given.
const DefaultMaxChars = 200_000

// ErrNoText is returned when a PDF yields no extractable text, as with
// scanned documents or unreadable files.
var ErrNoText = errors.New("no text could be extracted from the PDF")

// Result is the extracted text of a document.
type Result struct {
	Text      string
	PageCount int
	// Truncated is set when Text was cut at the character limit.
	Truncated bool
}

// Options controls extraction.
type Options struct {
	// MaxChars caps the extracted text. Zero uses DefaultMaxChars.
	MaxChars int
}

// Extract returns the text of every page.
func Extract(r io.ReaderAt, size int64, opts Options) (*Result, error) {
	return ExtractPages(r, size, 1, 0, opts)
}

// ExtractPages returns the text of pages from..to, 1-based and inclusive.
// A to of zero, or past the last page, means the last page.
func ExtractPages(r io.ReaderAt, size int64, from, to int, opts Options) (res *Result, err error) {
	// The parser panics on some malformed files.
	defer func() {
		if p := recover(); p != nil {
			res, err = nil, fmt.Errorf("%w: %v", ErrNoText, p)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoText, err)
	}

	n := reader.NumPage()
	if from < 1 {
		from = 1
	}
	if to <= 0 || to > n {
		to = n
	}
	if from > to {
		return nil, fmt.Errorf("page range %d-%d outside document of %d pages", from, to, n)
	}

	var pages []string
	for i := from; i <= to; i++ {
		p := reader.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			// One bad page shouldn't sink the document.
			continue
		}
		if t := Normalize(text); t != "" {
			pages = append(pages, t)
		}
	}

	if len(pages) == 0 {
		return nil, ErrNoText
	}

	limit := opts.MaxChars
	if limit <= 0 {
		limit = DefaultMaxChars
	}
	text, truncated := truncate(strings.Join(pages, "\n\n"), limit)
	return &Result{Text: text, PageCount: n, Truncated: truncated}, nil
}

// Normalize collapses runs of spaces within each line and runs of blank
// lines into one blank line. Leading and trailing whitespace is removed.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	var b strings.Builder
	blank := false
	for _, line := range strings.Split(s, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blank = b.Len() > 0
			continue
		}
		if b.Len() > 0 {
			if blank {
				b.WriteString("\n\n")
			} else {
				b.WriteByte('\n')
			}
		}
		blank = false
		b.WriteString(line)
	}
	return b.String()
}

// truncate cuts s to at most limit characters, backing up to the last
// whitespace so a word isn't split.
func truncate(s string, limit int) (string, bool) {
	runes := []rune(s)
	if len(runes) <= limit {
		return s, false
	}
	cut := string(runes[:limit])
	if i := strings.LastIndexAny(cut, " \n"); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut), true
}
