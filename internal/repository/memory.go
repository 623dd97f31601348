package repository

import (
	"fmt"
	"sort"
	"sync"

	"github.com/themizzi/storecheck/internal/models"
)

// MemoryAttemptStore keeps attempts in process memory. It backs runs without a
// configured results database.
type MemoryAttemptStore struct {
	mu       sync.Mutex
	attempts map[string]models.Attempt
}

// NewMemoryAttemptStore returns an empty store
func NewMemoryAttemptStore() *MemoryAttemptStore {
	return &MemoryAttemptStore{attempts: make(map[string]models.Attempt)}
}

func (s *MemoryAttemptStore) CreateAttempt(attempt *models.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.attempts[attempt.ID]; ok {
		return fmt.Errorf("failed to create attempt: duplicate id %s", attempt.ID)
	}
	for _, a := range s.attempts {
		if a.SuiteRunID == attempt.SuiteRunID && a.Scenario == attempt.Scenario && a.Number == attempt.Number {
			return fmt.Errorf("failed to create attempt: %s #%d already recorded", attempt.Scenario, attempt.Number)
		}
	}
	s.attempts[attempt.ID] = *attempt
	return nil
}

func (s *MemoryAttemptStore) FinishAttempt(attempt *models.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.attempts[attempt.ID]
	if !ok || stored.Status != models.AttemptStatusRunning {
		return models.ErrAttemptNotFound
	}
	stored.Status = attempt.Status
	stored.Reason = attempt.Reason
	stored.Screenshot = attempt.Screenshot
	stored.FinishedAt = attempt.FinishedAt
	s.attempts[attempt.ID] = stored
	return nil
}

func (s *MemoryAttemptStore) GetAttempt(id string) (*models.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.attempts[id]
	if !ok {
		return nil, models.ErrAttemptNotFound
	}
	return &a, nil
}

func (s *MemoryAttemptStore) ListBySuiteRun(suiteRunID string) ([]*models.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Attempt
	for _, a := range s.attempts {
		if a.SuiteRunID == suiteRunID {
			a := a
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		if out[i].Scenario != out[j].Scenario {
			return out[i].Scenario < out[j].Scenario
		}
		return out[i].Number < out[j].Number
	})
	return out, nil
}

func (s *MemoryAttemptStore) ListSuiteRuns(limit int) ([]models.SuiteRunSummary, error) {
	s.mu.Lock()
	byRun := make(map[string][]*models.Attempt)
	for _, a := range s.attempts {
		a := a
		byRun[a.SuiteRunID] = append(byRun[a.SuiteRunID], &a)
	}
	s.mu.Unlock()

	runs := make([]models.SuiteRunSummary, 0, len(byRun))
	for id, attempts := range byRun {
		runs = append(runs, models.Summarize(id, attempts))
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

var _ AttemptStore = (*MemoryAttemptStore)(nil)
