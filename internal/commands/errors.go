package commands

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Error kinds surfaced at the command boundary. Use errors.Is to classify a *Error.
var (
	// ErrStructuralNotFound means a precondition element (such as the login form) never appeared
	ErrStructuralNotFound = errors.New("structural element not found")
	// ErrAssertionMismatch means an expected visible/hidden/error state did not hold in time
	ErrAssertionMismatch = errors.New("assertion mismatch")
	// ErrNavigation means the browser could not load the requested page
	ErrNavigation = errors.New("navigation failed")
)

// errWaitExpired is returned by poll when the budget ran out
var errWaitExpired = errors.New("wait budget exhausted")

// Error describes a failed command with enough context to diagnose the page
type Error struct {
	// Op is the command that failed, e.g. "loginShouldFail"
	Op string
	// Locator names the element set involved, if any
	Locator string
	// Condition is what was expected, e.g. "visible"
	Condition string
	// Budget is the wait budget that was exhausted, zero when no wait was involved
	Budget time.Duration
	// Indeterminate is set when the wait ended without proving presence or absence
	Indeterminate bool
	// Kind is one of the sentinel errors of this package
	Kind error
	// Cause is the underlying driver or context error, if any
	Cause error
}

// Error implements error
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Locator != "" {
		fmt.Fprintf(&b, ": %s", e.Locator)
	}
	if e.Condition != "" {
		fmt.Fprintf(&b, ": expected %s", e.Condition)
	}
	if e.Budget > 0 {
		fmt.Fprintf(&b, " within %s", e.Budget)
	}
	if e.Indeterminate {
		b.WriteString(" (indeterminate)")
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As
func (e *Error) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// OutcomeKind is the terminal state of a submit command
type OutcomeKind int

// Outcome kinds
const (
	Success OutcomeKind = iota
	Failure
	Indeterminate
)

// String implements fmt.Stringer
func (k OutcomeKind) String() string {
	switch k {
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return "indeterminate"
	}
}

// Outcome is what a submit command observed
type Outcome struct {
	Kind OutcomeKind
	// Reason is the visible error text for a Failure
	Reason string
}

// Expect selects which result a submit command verifies
type Expect int

// Expected submit results
const (
	ExpectSuccess Expect = iota
	ExpectFailure
)
