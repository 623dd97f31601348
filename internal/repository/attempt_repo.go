package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/themizzi/storecheck/internal/database"
	"github.com/themizzi/storecheck/internal/models"
)

// AttemptStore persists scenario attempts
type AttemptStore interface {
	CreateAttempt(attempt *models.Attempt) error
	FinishAttempt(attempt *models.Attempt) error
	GetAttempt(id string) (*models.Attempt, error)
	ListBySuiteRun(suiteRunID string) ([]*models.Attempt, error)
	ListSuiteRuns(limit int) ([]models.SuiteRunSummary, error)
}

// AttemptRepository handles database operations for attempts
type AttemptRepository struct {
	db *sql.DB
}

// NewAttemptRepository creates a new attempt repository on the global connection
func NewAttemptRepository() *AttemptRepository {
	return &AttemptRepository{
		db: database.DB,
	}
}

// NewAttemptRepositoryWithDB creates a new attempt repository with a specific database connection
func NewAttemptRepositoryWithDB(db *sql.DB) *AttemptRepository {
	return &AttemptRepository{
		db: db,
	}
}

// CreateAttempt inserts a running attempt
func (r *AttemptRepository) CreateAttempt(attempt *models.Attempt) error {
	query := `
		INSERT INTO attempts (id, suite_run_id, scenario, number, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(query,
		attempt.ID,
		attempt.SuiteRunID,
		attempt.Scenario,
		attempt.Number,
		attempt.Status,
		attempt.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create attempt: %w", err)
	}

	return nil
}

// FinishAttempt stores the outcome of an attempt that is still running in the database
func (r *AttemptRepository) FinishAttempt(attempt *models.Attempt) error {
	query := `
		UPDATE attempts
		SET status = $1, reason = $2, screenshot = $3, finished_at = $4
		WHERE id = $5 AND status = 'running'
	`

	result, err := r.db.Exec(query,
		attempt.Status,
		attempt.Reason,
		attempt.Screenshot,
		attempt.FinishedAt,
		attempt.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish attempt: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return models.ErrAttemptNotFound
	}

	return nil
}

// GetAttempt retrieves an attempt by id
func (r *AttemptRepository) GetAttempt(id string) (*models.Attempt, error) {
	query := `
		SELECT id, suite_run_id, scenario, number, status, reason, screenshot, started_at, finished_at
		FROM attempts
		WHERE id = $1
	`

	attempt, err := scanAttempt(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	return attempt, nil
}

// ListBySuiteRun returns the attempts of one run ordered by scenario and attempt number
func (r *AttemptRepository) ListBySuiteRun(suiteRunID string) ([]*models.Attempt, error) {
	query := `
		SELECT id, suite_run_id, scenario, number, status, reason, screenshot, started_at, finished_at
		FROM attempts
		WHERE suite_run_id = $1
		ORDER BY started_at, scenario, number
	`

	rows, err := r.db.Query(query, suiteRunID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*models.Attempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	return attempts, nil
}

// ListSuiteRuns summarizes the most recent runs, newest first
func (r *AttemptRepository) ListSuiteRuns(limit int) ([]models.SuiteRunSummary, error) {
	query := `
		SELECT suite_run_id,
		       MIN(started_at),
		       COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'passed'),
		       COUNT(*) FILTER (WHERE status = 'failed'),
		       COUNT(*) FILTER (WHERE status = 'indeterminate')
		FROM attempts
		GROUP BY suite_run_id
		ORDER BY MIN(started_at) DESC
		LIMIT $1
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list suite runs: %w", err)
	}
	defer rows.Close()

	var runs []models.SuiteRunSummary
	for rows.Next() {
		var s models.SuiteRunSummary
		if err := rows.Scan(&s.ID, &s.StartedAt, &s.Attempts, &s.Passed, &s.Failed, &s.Indeterminate); err != nil {
			return nil, fmt.Errorf("failed to scan suite run: %w", err)
		}
		runs = append(runs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list suite runs: %w", err)
	}

	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row scanner) (*models.Attempt, error) {
	attempt := &models.Attempt{}
	var status string
	var finished sql.NullTime
	err := row.Scan(
		&attempt.ID,
		&attempt.SuiteRunID,
		&attempt.Scenario,
		&attempt.Number,
		&status,
		&attempt.Reason,
		&attempt.Screenshot,
		&attempt.StartedAt,
		&finished,
	)
	if err != nil {
		return nil, err
	}

	if attempt.Status, err = models.ParseAttemptStatus(status); err != nil {
		return nil, err
	}
	if finished.Valid {
		attempt.FinishedAt = finished.Time
	}
	return attempt, nil
}

var _ AttemptStore = (*AttemptRepository)(nil)
