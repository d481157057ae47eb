package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an update or delete matches no row.
	ErrNotFound = errors.New("not found")

	// ErrEmptyTemplate is returned when saving a template with no questions.
	ErrEmptyTemplate = errors.New("template has no questions")

	// ErrInvalidAttempt is returned when an attempt breaks its score or
	// length invariants.
	ErrInvalidAttempt = errors.New("invalid attempt")
)

// PersistError wraps a storage failure with the operation that caused it.
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }
