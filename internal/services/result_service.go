package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/themizzi/storecheck/internal/commands"
	"github.com/themizzi/storecheck/internal/models"
)

// AttemptRepository defines the interface for attempt persistence
type AttemptRepository interface {
	CreateAttempt(attempt *models.Attempt) error
	FinishAttempt(attempt *models.Attempt) error
	GetAttempt(id string) (*models.Attempt, error)
	ListBySuiteRun(suiteRunID string) ([]*models.Attempt, error)
	ListSuiteRuns(limit int) ([]models.SuiteRunSummary, error)
}

// ResultService records scenario attempts and their outcomes
type ResultService interface {
	StartAttempt(suiteRunID, scenario string, number int) (*models.Attempt, error)
	RecordOutcome(attempt *models.Attempt, runErr error, screenshot string) error
	AttemptsOf(suiteRunID string) ([]*models.Attempt, error)
	RecentRuns(limit int) ([]models.SuiteRunSummary, error)
}

// ResultServiceImpl implements ResultService
type ResultServiceImpl struct {
	attemptRepo AttemptRepository
}

// NewResultService creates a new result service
func NewResultService(attemptRepo AttemptRepository) ResultService {
	return &ResultServiceImpl{
		attemptRepo: attemptRepo,
	}
}

// StartAttempt creates and persists a running attempt
func (s *ResultServiceImpl) StartAttempt(suiteRunID, scenario string, number int) (*models.Attempt, error) {
	attempt, err := models.NewAttempt(suiteRunID, scenario, number)
	if err != nil {
		return nil, fmt.Errorf("invalid attempt: %w", err)
	}

	if err := s.attemptRepo.CreateAttempt(attempt); err != nil {
		return nil, fmt.Errorf("failed to start attempt: %w", err)
	}

	return attempt, nil
}

// RecordOutcome finishes the attempt according to the error the scenario returned
// and persists it. A nil runErr passes the attempt.
func (s *ResultServiceImpl) RecordOutcome(attempt *models.Attempt, runErr error, screenshot string) error {
	var err error
	switch Classify(runErr) {
	case models.AttemptStatusPassed:
		err = attempt.Pass()
	case models.AttemptStatusIndeterminate:
		err = attempt.MarkIndeterminate(runErr.Error())
	default:
		err = attempt.Fail(runErr.Error())
	}
	if err != nil {
		return err
	}
	attempt.Screenshot = screenshot

	if err := s.attemptRepo.FinishAttempt(attempt); err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}

	return nil
}

// AttemptsOf lists the attempts of one suite run
func (s *ResultServiceImpl) AttemptsOf(suiteRunID string) ([]*models.Attempt, error) {
	attempts, err := s.attemptRepo.ListBySuiteRun(suiteRunID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, nil
}

// RecentRuns summarizes the latest suite runs
func (s *ResultServiceImpl) RecentRuns(limit int) ([]models.SuiteRunSummary, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	runs, err := s.attemptRepo.ListSuiteRuns(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list suite runs: %w", err)
	}
	return runs, nil
}

// Classify maps a scenario error to the status its attempt ends in. Waits that ran out
// without proving anything and expired contexts are indeterminate. Every other error,
// structural or not, is a failure.
func Classify(err error) models.AttemptStatus {
	if err == nil {
		return models.AttemptStatusPassed
	}

	var cmdErr *commands.Error
	if errors.As(err, &cmdErr) && cmdErr.Indeterminate {
		return models.AttemptStatusIndeterminate
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return models.AttemptStatusIndeterminate
	}
	return models.AttemptStatusFailed
}
