package quizgen

import (
	"encoding/json"
	"fmt"
	"strings"
)

// candidate is a question as the model wrote it. Pointer fields tell a
// missing key apart from a zero value.
type candidate struct {
	Question    *string  `json:"question"`
	Options     []string `json:"options"`
	Answer      *int     `json:"answer"`
	Explanation *string  `json:"explanation"`
}

// Validate decodes and checks each candidate item. Items that fail are
// dropped and reported; nothing is repaired. It never fails as a whole.
func Validate(items []json.RawMessage) ([]Question, []Rejection) {
	var (
		valid    []Question
		rejected []Rejection
	)
	for i, raw := range items {
		q, reason := validateItem(raw)
		if reason != "" {
			rejected = append(rejected, Rejection{Index: i, Reason: reason})
			continue
		}
		valid = append(valid, q)
	}
	return valid, rejected
}

func validateItem(raw json.RawMessage) (Question, string) {
	var c candidate
	if err := json.Unmarshal(raw, &c); err != nil {
		return Question{}, fmt.Sprintf("malformed item: %v", err)
	}

	switch {
	case c.Question == nil || strings.TrimSpace(*c.Question) == "":
		return Question{}, "question text is empty"
	case len(c.Options) < 2:
		return Question{}, fmt.Sprintf("need at least 2 options, got %d", len(c.Options))
	case c.Answer == nil:
		return Question{}, "answer is missing"
	case *c.Answer < 0 || *c.Answer >= len(c.Options):
		return Question{}, fmt.Sprintf("answer %d out of range for %d options", *c.Answer, len(c.Options))
	case c.Explanation == nil:
		return Question{}, "explanation is missing"
	}

	return Question{
		Prompt:      strings.TrimSpace(*c.Question),
		Options:     c.Options,
		Answer:      *c.Answer,
		Explanation: strings.TrimSpace(*c.Explanation),
	}, ""
}
