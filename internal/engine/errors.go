package engine

import (
	"errors"
	"fmt"
)

// ErrPanic marks a contained panic.
var ErrPanic = errors.New("handler panicked")

// Error is a failure contained by a copy or paste handler.
type Error struct {
	Op      string // "copy" or "paste"
	Session string // correlation session id, if one was involved
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Session != "" {
		return fmt.Sprintf("%s (session %s): %v", e.Op, e.Session, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}
