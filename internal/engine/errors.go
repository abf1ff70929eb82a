package engine

import (
	"errors"
	"fmt"
)

// RuntimeError is a fatal condition detected while running machines.
//
// The routing protocol itself never fails: dead letters, unmatched events
// and redundant unsubscribes are silent. RuntimeError covers defects in a
// concrete machine and the optional cycle quota.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Machine is the machine that caused the error, if any.
	Machine MachineID

	// Kind is the machine's kind name, if known.
	Kind string

	// State is the offending state identifier (unknown-state errors).
	State StateID

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnknownState indicates a state identifier missing from the
	// machine's dispatch table.
	ErrCodeUnknownState RuntimeErrorCode = "UNKNOWN_STATE"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Machine != NoMachine && e.State != "" {
		return fmt.Sprintf("%s: %s (machine=%s, kind=%s, state=%s)", e.Code, e.Message, e.Machine, e.Kind, e.State)
	}
	if e.Machine != NoMachine {
		return fmt.Sprintf("%s: %s (machine=%s, kind=%s)", e.Code, e.Message, e.Machine, e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsUnknownStateError returns true if err is an unknown-state RuntimeError.
// Uses errors.As to handle wrapped errors.
func IsUnknownStateError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeUnknownState
	}
	return false
}

// NewUnknownStateError creates a RuntimeError for a state the machine's
// behavior does not define.
func NewUnknownStateError(m *Machine, state StateID) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnknownState,
		Message: "state not defined by machine behavior",
		Machine: m.id,
		Kind:    m.kind,
		State:   state,
	}
}
