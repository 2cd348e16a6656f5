package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrForbidden = errors.New("access to this resource is forbidden")
)

// ValidationError carries every violation found in the input so the caller
// can report all problems at once.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, ", ")
}

// ItemUnavailableError aggregates every catalog mismatch (missing item,
// unavailable item, stale price) into one reported failure.
type ItemUnavailableError struct {
	Problems []string
}

func (e *ItemUnavailableError) Error() string {
	return "order items rejected: " + strings.Join(e.Problems, ", ")
}

// TotalMismatchError is returned when the client-declared total differs from
// the recomputed total by more than the currency epsilon.
type TotalMismatchError struct {
	Declared   float64
	Calculated float64
}

func (e *TotalMismatchError) Error() string {
	return fmt.Sprintf("total mismatch: declared %.2f, calculated %.2f", e.Declared, e.Calculated)
}

// InvalidTransitionError names the exact illegal move so staff UIs can show
// "cannot move from delivered to preparing" rather than a generic failure.
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move %s from %s to %s", e.Entity, e.From, e.To)
}

// InvalidStateError reports an operation attempted in a state that does not
// allow it, returning the current state so the client can reconcile its UI.
type InvalidStateError struct {
	Current string
	Reason  string
}

func (e *InvalidStateError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s (current state: %s)", e.Reason, e.Current)
	}
	return fmt.Sprintf("operation not allowed in state %s", e.Current)
}
