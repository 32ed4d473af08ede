// Package wferrors defines the error taxonomy of the workflow core. Unit
// errors route the job to an error-handling node for a human decision;
// only persistence failures and misconfiguration are process-fatal.
package wferrors

import (
	"errors"
	"fmt"
)

// Sentinel classes. Concrete errors wrap one of these so callers can
// classify with errors.Is.
var (
	// ErrValidation marks malformed input. Fatal to the current step,
	// surfaced immediately, never retried.
	ErrValidation = errors.New("validation error")

	// ErrDependencyViolation marks a section blocked because a prerequisite
	// is stuck in a non-terminal, non-ready state. A detectable stuck
	// condition, not a silent deadlock.
	ErrDependencyViolation = errors.New("dependency violation")

	// ErrUpstreamService marks a failure or timeout of the content
	// generation collaborator. Retried up to a bounded count.
	ErrUpstreamService = errors.New("upstream service error")

	// ErrParse marks generation output that could not be interpreted into
	// the expected structure. Retried like ErrUpstreamService.
	ErrParse = errors.New("parse error")

	// ErrPersistence marks a checkpoint store failure. Always fatal to the
	// operation and propagated, never swallowed.
	ErrPersistence = errors.New("persistence error")

	// ErrInterruptedState marks an operation attempted on a paused thread.
	// Rejected synchronously, no state mutation occurs.
	ErrInterruptedState = errors.New("thread is interrupted")

	// ErrInvalidState marks an operation that the unit's current status
	// does not permit (e.g. a stale decision on a non-stale section).
	ErrInvalidState = errors.New("invalid state")

	// ErrNotFound marks a missing thread, session, or proposal.
	ErrNotFound = errors.New("not found")
)

// UnitError carries the context a human needs to act on a unit failure:
// which unit, which transition was attempted, and the underlying cause.
type UnitError struct {
	Class      error  // one of the sentinels above
	Unit       string // content reference in wire form
	Transition string // attempted status transition, "FROM->TO"
	Cause      error
}

func (e *UnitError) Error() string {
	msg := fmt.Sprintf("%v: unit %s", e.Class, e.Unit)
	if e.Transition != "" {
		msg += " (" + e.Transition + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *UnitError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Class, e.Cause}
	}
	return []error{e.Class}
}

// Validation builds a validation error.
func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// InvalidState builds an invalid-state error.
func InvalidState(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

// NotFound reports a missing resource.
func NotFound(kind, id string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
}

// Persistence wraps a storage failure.
func Persistence(op string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, cause)
}

// Upstream wraps a collaborator failure for a unit.
func Upstream(unit string, cause error) error {
	return &UnitError{Class: ErrUpstreamService, Unit: unit, Cause: cause}
}

// Parse wraps unparseable collaborator output for a unit.
func Parse(unit string, cause error) error {
	return &UnitError{Class: ErrParse, Unit: unit, Cause: cause}
}

// DependencyViolation reports a stuck unit.
func DependencyViolation(unit, blockedOn string) error {
	return &UnitError{
		Class: ErrDependencyViolation,
		Unit:  unit,
		Cause: fmt.Errorf("prerequisite %s is not ready", blockedOn),
	}
}
