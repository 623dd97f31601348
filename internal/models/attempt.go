package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AttemptStatus represents valid attempt states
type AttemptStatus string

// Attempt statuses
const (
	AttemptStatusRunning       AttemptStatus = "running"
	AttemptStatusPassed        AttemptStatus = "passed"
	AttemptStatusFailed        AttemptStatus = "failed"
	AttemptStatusIndeterminate AttemptStatus = "indeterminate"
)

// Attempt is one execution of a scenario within a suite run. A scenario that is retried
// produces one attempt per try, numbered from 1.
type Attempt struct {
	ID         string
	SuiteRunID string
	Scenario   string
	Number     int
	Status     AttemptStatus
	Reason     string
	Screenshot string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Domain errors
var (
	ErrInvalidSuiteRun         = errors.New("suite run id must be a UUID")
	ErrInvalidScenario         = errors.New("scenario name cannot be empty")
	ErrInvalidAttemptNumber    = errors.New("attempt number must be positive")
	ErrInvalidStatusTransition = errors.New("invalid attempt status transition")
	ErrAttemptNotFound         = errors.New("attempt not found")
)

// NewAttempt starts a new running attempt
func NewAttempt(suiteRunID, scenario string, number int) (*Attempt, error) {
	if err := validateAttemptInput(suiteRunID, scenario, number); err != nil {
		return nil, err
	}

	return &Attempt{
		ID:         uuid.New().String(),
		SuiteRunID: suiteRunID,
		Scenario:   scenario,
		Number:     number,
		Status:     AttemptStatusRunning,
		StartedAt:  time.Now(),
	}, nil
}

// validateAttemptInput validates attempt creation parameters
func validateAttemptInput(suiteRunID, scenario string, number int) error {
	if _, err := uuid.Parse(suiteRunID); err != nil {
		return ErrInvalidSuiteRun
	}
	if scenario == "" {
		return ErrInvalidScenario
	}
	if number < 1 {
		return ErrInvalidAttemptNumber
	}
	return nil
}

// Pass marks a running attempt as passed
func (a *Attempt) Pass() error {
	return a.finish(AttemptStatusPassed, "")
}

// Fail marks a running attempt as failed with a reason
func (a *Attempt) Fail(reason string) error {
	if reason == "" {
		return errors.New("failure reason cannot be empty")
	}
	return a.finish(AttemptStatusFailed, reason)
}

// MarkIndeterminate records that the attempt ended on a timeout that proved nothing
func (a *Attempt) MarkIndeterminate(reason string) error {
	return a.finish(AttemptStatusIndeterminate, reason)
}

func (a *Attempt) finish(status AttemptStatus, reason string) error {
	if a.Status != AttemptStatusRunning {
		return fmt.Errorf("%w: cannot mark %s attempt as %s", ErrInvalidStatusTransition, a.Status, status)
	}
	a.Status = status
	a.Reason = reason
	a.FinishedAt = time.Now()
	return nil
}

// IsFinished returns true once the attempt left the running state
func (a *Attempt) IsFinished() bool {
	return a.Status != AttemptStatusRunning
}

// IsPassed returns true if the attempt passed
func (a *Attempt) IsPassed() bool {
	return a.Status == AttemptStatusPassed
}

// Duration returns how long the attempt ran, zero while it is still running
func (a *Attempt) Duration() time.Duration {
	if a.FinishedAt.IsZero() {
		return 0
	}
	return a.FinishedAt.Sub(a.StartedAt)
}

// ParseAttemptStatus converts a stored status back to an AttemptStatus
func ParseAttemptStatus(s string) (AttemptStatus, error) {
	switch status := AttemptStatus(s); status {
	case AttemptStatusRunning, AttemptStatusPassed, AttemptStatusFailed, AttemptStatusIndeterminate:
		return status, nil
	default:
		return "", fmt.Errorf("unknown attempt status %q", s)
	}
}
