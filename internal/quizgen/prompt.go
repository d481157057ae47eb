package quizgen

import (
	"fmt"
	"strings"
)

const systemPrompt = `You write multiple-choice quiz questions about a passage taken from a document.

Rules:
- Every question must be answerable from the passage alone. Do not rely on outside knowledge.
- Give exactly 4 options per question. Exactly one option is correct.
- "answer" is the zero-based index (0-3) of the correct option.
- Distractors should be plausible to someone who skimmed the passage, not obviously wrong.
- Do not write "all of the above" or "none of the above" options.
- Keep the explanation to one or two sentences that point at the relevant part of the passage.
- If the passage has no testable content (a table of contents, a copyright notice), return an empty questions list.
- Respond with JSON only.`

// buildUserMessage constructs the user message for one chunk.
func buildUserMessage(chunk string, cfg Config) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write up to %d questions about this passage.\n", cfg.QuestionsPerChunk)
	b.WriteString("\nPassage:\n")
	b.WriteString(strings.TrimSpace(chunk))
	return b.String()
}
