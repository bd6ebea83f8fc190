package arch

import (
	"errors"
	"fmt"
)

// Sentinel errors for architecture construction and lookup.
var (
	ErrCallbackNotFound = errors.New("callback not found")
	ErrNodeNotFound     = errors.New("node not found")
	ErrInvalidDocument  = errors.New("invalid architecture document")
)

// ArchError wraps a failure with the operation and the entity it concerned.
type ArchError struct {
	Op     string
	Entity string
	Name   string
	Cause  error
}

func (e *ArchError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("arch: %s: %s %q: %v", e.Op, e.Entity, e.Name, e.Cause)
	}
	return fmt.Sprintf("arch: %s: %s: %v", e.Op, e.Entity, e.Cause)
}

func (e *ArchError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is match either the wrapper or its cause.
func (e *ArchError) Is(target error) bool {
	return errors.Is(e.Cause, target)
}
