package quizgen

import "strings"

// Key normalizes a question prompt for duplicate detection: lowercase,
// runs of whitespace collapsed to one space, trimmed.
func Key(prompt string) string {
	return strings.Join(strings.Fields(strings.ToLower(prompt)), " ")
}

// Dedupe drops questions whose Key matches an earlier one. Order of the
// kept questions is preserved.
func Dedupe(qs []Question) []Question {
	if len(qs) == 0 {
		return qs
	}
	seen := make(map[string]struct{}, len(qs))
	out := make([]Question, 0, len(qs))
	for _, q := range qs {
		k := Key(q.Prompt)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, q)
	}
	return out
}
