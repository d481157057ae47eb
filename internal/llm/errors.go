package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrRateLimit indicates the provider returned a rate limit error (429).
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("rate limited: %v", e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrInvalidResponse indicates the model output is not valid JSON or does
// not match the requested schema. Content holds the raw output so callers
// can attempt recovery.
type ErrInvalidResponse struct {
	Content json.RawMessage
	Err     error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("invalid LLM response: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrProviderUnavailable indicates the provider is down or unreachable.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("LLM provider unavailable: %v", e.Err)
	}
	return "LLM provider unavailable"
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrMaxTokensExceeded indicates the output was cut off at MaxTokens.
// Content holds whatever was produced before the cut.
type ErrMaxTokensExceeded struct {
	Content json.RawMessage
}

func (e *ErrMaxTokensExceeded) Error() string {
	return "LLM response truncated: max tokens exceeded"
}

// ErrorKind is a coarse classification of provider failures.
type ErrorKind string

const (
	KindRateLimit   ErrorKind = "rate_limit"
	KindUnavailable ErrorKind = "unavailable"
	KindMaxTokens   ErrorKind = "max_tokens"
	KindInvalid     ErrorKind = "invalid_response"
	KindTimeout     ErrorKind = "timeout"
	KindCanceled    ErrorKind = "canceled"
	KindOther       ErrorKind = "other"
)

// KindOf classifies err. It returns "" for a nil error.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var (
		rl    *ErrRateLimit
		un    *ErrProviderUnavailable
		mt    *ErrMaxTokensExceeded
		inval *ErrInvalidResponse
	)
	switch {
	case errors.As(err, &rl):
		return KindRateLimit
	case errors.As(err, &mt):
		return KindMaxTokens
	case errors.As(err, &inval):
		return KindInvalid
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.As(err, &un):
		return KindUnavailable
	}
	return KindOther
}

// IsRateLimit reports whether err is a rate limit signal.
func IsRateLimit(err error) bool {
	var rl *ErrRateLimit
	return errors.As(err, &rl)
}

// statusError maps an HTTP status reported by an SDK to a typed error.
func statusError(status int, err error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return &ErrRateLimit{Err: err}
	case status >= 500:
		return &ErrProviderUnavailable{Err: err}
	case status == 0:
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return err
		}
		return &ErrProviderUnavailable{Err: err}
	}
	return fmt.Errorf("request rejected (status %d): %w", status, err)
}
