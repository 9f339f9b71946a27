package vhc

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain error kinds. Callers branch with errors.Is.
var (
	ErrNotFound             = errors.New("not found")
	ErrNoActiveTemplate     = errors.New("no active template")
	ErrInvalidTemplate      = errors.New("invalid template")
	ErrInvalidAnswer        = errors.New("invalid answer")
	ErrIncompleteSubmission = errors.New("incomplete submission")
	ErrIllegalTransition    = errors.New("illegal status transition")
)

// Error wraps a sentinel with the offending id and detail.
type Error struct {
	ID      string
	Detail  string
	Wrapped error
}

func (e *Error) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("vhc: %s: %s", e.Wrapped, e.Detail)
	}
	return fmt.Sprintf("vhc: %s: %s (id=%q)", e.Wrapped, e.Detail, e.ID)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// NewError creates an Error around a sentinel.
func NewError(wrapped error, id, format string, args ...any) *Error {
	return &Error{ID: id, Detail: fmt.Sprintf(format, args...), Wrapped: wrapped}
}
