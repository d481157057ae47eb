package quizgen

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/abhisek/pdfquiz/internal/llm"
)

// envelope is the top-level response object. Items are kept raw so one
// bad item doesn't sink the rest.
type envelope struct {
	Questions *[]json.RawMessage `json:"questions"`
}

// classify turns a provider result into an Outcome. Schema and JSON
// failures are Malformed and go through object recovery; every other error
// is a ProviderError.
func classify(resp *llm.Response, err error) Outcome {
	if err != nil {
		var inv *llm.ErrInvalidResponse
		if errors.As(err, &inv) {
			return recoverItems(inv.Content, err)
		}
		return Outcome{Kind: ProviderError, ErrKind: llm.KindOf(err), Err: err}
	}

	items, derr := decodeEnvelope(resp.Content)
	if derr != nil {
		return recoverItems(resp.Content, derr)
	}
	return Outcome{Kind: Parsed, Items: items, Raw: resp.Content}
}

// recoverItems retries decoding on the first balanced JSON object found in
// raw.
func recoverItems(raw json.RawMessage, cause error) Outcome {
	out := Outcome{Kind: Malformed, Raw: raw, Err: cause}
	obj, ok := firstObject(raw)
	if !ok {
		return out
	}
	items, err := decodeEnvelope(obj)
	if err != nil {
		out.Err = fmt.Errorf("%w (recovery: %v)", cause, err)
		return out
	}
	out.Items = items
	out.Recovered = true
	out.Err = nil
	return out
}

func decodeEnvelope(raw []byte) ([]json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if env.Questions == nil {
		return nil, errors.New("response has no questions field")
	}
	return *env.Questions, nil
}

// firstObject returns the first balanced {...} substring of raw. Braces
// inside JSON strings are ignored.
func firstObject(raw []byte) ([]byte, bool) {
	start := bytes.IndexByte(raw, '{')
	if start < 0 {
		return nil, false
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}
	return nil, false
}
