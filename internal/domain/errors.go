package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrEntityNotFound = errors.New("entity not found")
	ErrUnknownDomain  = errors.New("unknown domain")
)

// InvalidTransitionError is returned when the transition table has no rule
// from the entity's current state to the requested state.
type InvalidTransitionError struct {
	Domain Domain
	From   State
	To     State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s cannot move from %q to %q", e.Domain, e.From, e.To)
}

// GuardViolationError is returned when a transition is structurally legal
// but a precondition fails. Error returns the guard's reason verbatim so
// operators can see exactly what is missing.
type GuardViolationError struct {
	Guard  string
	Reason string
}

func (e *GuardViolationError) Error() string {
	return e.Reason
}

// StateConflictError is returned when a concurrent caller changed the
// entity's state between validation and commit.
type StateConflictError struct {
	ID       string
	Expected State
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("entity %s changed state concurrently (expected %q)", e.ID, e.Expected)
}
