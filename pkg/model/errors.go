package model

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrEntityNotFound  = errors.New("entity not found")
	ErrAmbiguousHandle = errors.New("handle resolution is ambiguous")
)

// ModelError provides structured error information for entity lookups.
type ModelError struct {
	Op        string // Operation that failed (e.g., "Resolve")
	Entity    string // Entity table name (e.g., "node", "publisher")
	Handle    uint64 // Reused handle value
	Timestamp uint64 // Resolution time, zero when not applicable
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *ModelError) Error() string {
	if e.Timestamp != 0 {
		return fmt.Sprintf("%s %s %#x at %d: %v", e.Op, e.Entity, e.Handle, e.Timestamp, e.Cause)
	}
	return fmt.Sprintf("%s %s %#x: %v", e.Op, e.Entity, e.Handle, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *ModelError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error's cause.
func (e *ModelError) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

// IsAmbiguous returns true if the error reports an ambiguous handle.
func IsAmbiguous(err error) bool {
	return errors.Is(err, ErrAmbiguousHandle)
}

// IsNotFound returns true if the error reports a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound)
}
