// Package chunker splits extracted document text into prompt-sized pieces
// on sentence and paragraph boundaries.
package chunker

import "strings"

// DefaultMaxSize is the chunk size, in bytes, used when none is configured.
const DefaultMaxSize = 4000

// Split breaks text into boundary units. A unit ends at a blank line or
// after '.', '!' or '?' followed by whitespace. Units are trimmed and
// empty units are dropped.
func Split(text string) []string {
	units := split(text)
	if len(units) == 0 {
		return nil
	}
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = u.text
	}
	return out
}

// unit is a trimmed boundary unit. para is set when a blank line follows it.
type unit struct {
	text string
	para bool
}

func split(text string) []unit {
	var units []unit
	start := 0
	for i := 0; i < len(text); i++ {
		switch c := text[i]; {
		case c == '\n' && i+1 < len(text) && text[i+1] == '\n':
			units = appendUnit(units, text[start:i], true)
			i++
			start = i + 1
		case (c == '.' || c == '!' || c == '?') && i+1 < len(text) && isSpace(text[i+1]):
			units = appendUnit(units, text[start:i+1], false)
			start = i + 1
		}
	}
	return appendUnit(units, text[start:], false)
}

// Chunk groups the units of text into chunks of at most maxSize bytes.
// Units are never split: a unit longer than maxSize becomes a chunk of its
// own. Units from the same paragraph are joined with a single space and
// paragraphs with a blank line. Empty or whitespace-only text yields nil.
func Chunk(text string, maxSize int) []string {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	var (
		chunks []string
		cur    strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
	}

	units := split(text)
	for i, u := range units {
		sep := " "
		if i > 0 && units[i-1].para {
			sep = "\n\n"
		}
		if cur.Len() > 0 && cur.Len()+len(sep)+len(u.text) > maxSize {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteString(sep)
		}
		cur.WriteString(u.text)
	}
	flush()
	return chunks
}

// appendUnit trims s and appends it. A blank line after an empty
// remainder still marks the previous unit as ending its paragraph.
func appendUnit(units []unit, s string, para bool) []unit {
	s = strings.TrimSpace(s)
	if s == "" {
		if para && len(units) > 0 {
			units[len(units)-1].para = true
		}
		return units
	}
	return append(units, unit{text: s, para: para})
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
