package entity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidTrace      = errors.New("invalid trace")
	ErrInvalidPlan       = errors.New("invalid plan")
	ErrMissingParams     = errors.New("missing plan parameters")
	ErrElementNotFound   = errors.New("element not found")
	ErrUnsupportedAction = errors.New("unsupported action")
	ErrInputTimeout      = errors.New("input request timed out")
	ErrInputPending      = errors.New("input request already pending")
	ErrNoPendingInput    = errors.New("no pending input request")
	ErrSessionCancelled  = errors.New("session cancelled")
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrSessionNotFound   = errors.New("session not found")
	ErrNotFound          = errors.New("not found")
	ErrPageUnavailable   = errors.New("page unavailable")
)

// ResolutionAttempt is one locator strategy tried while resolving an element.
type ResolutionAttempt struct {
	Strategy string
	Query    string
}

// ResolutionError lists every strategy tried so a failed run can be
// diagnosed without re-running it.
type ResolutionError struct {
	Attempts []ResolutionAttempt
}

func (e *ResolutionError) Error() string {
	if len(e.Attempts) == 0 {
		return "element not found: locator is empty"
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s=%q", a.Strategy, truncate(a.Query, 100)))
	}
	return "element not found after trying all strategies: " + strings.Join(parts, ", ")
}

func (e *ResolutionError) Unwrap() error {
	return ErrElementNotFound
}

// PersistenceError marks storage failures so they are never confused with
// execution failures.
type PersistenceError struct {
	Op  string
	ID  string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
