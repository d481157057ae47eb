package llm

import (
	"context"
	"encoding/json"
)

// Provider sends a single completion request to an LLM service.
type Provider interface {
	// Generate submits the request and returns the model output. When
	// req.Schema is set, providers ask for structured output and check the
	// result against the schema; a mismatch is reported as
	// *ErrInvalidResponse carrying the raw content.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model this provider sends requests to.
	ModelID() string
}

// Request is one prompt for the model.
type Request struct {
	System   string
	Messages []Message

	// Schema, when set, is the JSON structure the output must match.
	Schema *Schema

	MaxTokens   int
	Temperature float64
}

// Message is a single turn of the conversation.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema is a named JSON Schema sent as the structured output format.
type Schema struct {
	// Name is a kebab-case identifier, e.g. "quiz-batch". It is also the
	// cache key for the compiled schema.
	Name        string
	Description string
	Definition  map[string]any
}

// Response is the model output for one request.
type Response struct {
	// Content is the raw output text. It is JSON when a Schema was sent,
	// but callers should still treat it as untrusted.
	Content json.RawMessage

	Usage Usage
	Model string

	// StopReason is normalized to "end", "max_tokens" or "error".
	StopReason string
}

// Usage is the token count for one request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
