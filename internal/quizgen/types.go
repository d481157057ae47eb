package quizgen

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/abhisek/pdfquiz/internal/llm"
	"github.com/abhisek/pdfquiz/internal/store"
)

// Question is a validated multiple-choice question. It is the same shape
// the template store persists.
type Question = store.Question

// Provenance records the chunk a question came from.
type Provenance = store.Provenance

var (
	// ErrAllChunksFailed is returned when no chunk produced a usable response.
	ErrAllChunksFailed = errors.New("question generation failed for every chunk")

	// ErrNoQuestions is returned when generation finished but no question
	// survived validation.
	ErrNoQuestions = errors.New("no valid questions were generated")
)

// Result is the outcome of generating questions across all chunks.
type Result struct {
	// Questions are the valid questions, in chunk order.
	Questions []Question

	// Failures lists chunks that produced nothing usable.
	Failures []ChunkFailure

	// Rejected counts items dropped by validation.
	Rejected int
}

// ChunkFailure describes a chunk whose LLM call could not be used.
type ChunkFailure struct {
	Chunk int
	Kind  OutcomeKind
	// ErrKind classifies provider errors; empty for malformed output.
	ErrKind llm.ErrorKind
	Err     error
}

func (f ChunkFailure) Error() string {
	return fmt.Sprintf("chunk %d: %s: %v", f.Chunk, f.Kind, f.Err)
}

func (f ChunkFailure) Unwrap() error { return f.Err }

// OutcomeKind tags the raw result of one chunk's LLM call.
type OutcomeKind string

const (
	// Parsed means the whole response decoded.
	Parsed OutcomeKind = "parsed"

	// Malformed means the response was not valid JSON or did not match
	// the schema. Recovered is set when a JSON object could still be
	// extracted from it.
	Malformed OutcomeKind = "malformed"

	// ProviderError means the call itself failed.
	ProviderError OutcomeKind = "provider_error"
)

// Outcome is the classified result of one LLM call, before item
// validation.
type Outcome struct {
	Kind OutcomeKind

	// Items are the undecoded question objects, when any could be read.
	Items []json.RawMessage

	// Recovered is true for a Malformed outcome whose items were read from
	// an extracted object.
	Recovered bool

	// Raw is the response text as returned by the provider.
	Raw json.RawMessage

	ErrKind llm.ErrorKind
	Err     error
}

// Usable reports whether the outcome carries items to validate.
func (o Outcome) Usable() bool {
	return o.Kind == Parsed || (o.Kind == Malformed && o.Recovered)
}

// Rejection explains why a candidate item was dropped.
type Rejection struct {
	Index  int
	Reason string
}
