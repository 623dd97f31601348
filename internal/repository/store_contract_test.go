package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/themizzi/storecheck/internal/models"
)

// exerciseAttemptStore runs the behavior every AttemptStore must share
func exerciseAttemptStore(t *testing.T, store AttemptStore) {
	t.Helper()

	runID := uuid.New().String()

	t.Run("create and get", func(t *testing.T) {
		attempt, err := models.NewAttempt(runID, "valid login", 1)
		require.NoError(t, err)

		require.NoError(t, store.CreateAttempt(attempt))

		got, err := store.GetAttempt(attempt.ID)
		require.NoError(t, err)
		assert.Equal(t, attempt.Scenario, got.Scenario)
		assert.Equal(t, models.AttemptStatusRunning, got.Status)
		assert.True(t, got.FinishedAt.IsZero())
	})

	t.Run("duplicate attempt number is rejected", func(t *testing.T) {
		first, err := models.NewAttempt(runID, "product search", 1)
		require.NoError(t, err)
		require.NoError(t, store.CreateAttempt(first))

		again, err := models.NewAttempt(runID, "product search", 1)
		require.NoError(t, err)
		assert.Error(t, store.CreateAttempt(again))
	})

	t.Run("finish records the outcome once", func(t *testing.T) {
		attempt, err := models.NewAttempt(runID, "invalid login", 1)
		require.NoError(t, err)
		require.NoError(t, store.CreateAttempt(attempt))

		require.NoError(t, attempt.Fail("no error indicator became visible"))
		attempt.Screenshot = "artifacts/invalid-login-1.png"
		require.NoError(t, store.FinishAttempt(attempt))

		got, err := store.GetAttempt(attempt.ID)
		require.NoError(t, err)
		assert.Equal(t, models.AttemptStatusFailed, got.Status)
		assert.Equal(t, "no error indicator became visible", got.Reason)
		assert.Equal(t, "artifacts/invalid-login-1.png", got.Screenshot)
		assert.WithinDuration(t, attempt.FinishedAt, got.FinishedAt, time.Millisecond)

		err = store.FinishAttempt(attempt)
		assert.True(t, errors.Is(err, models.ErrAttemptNotFound), "finishing twice must fail, got %v", err)
	})

	t.Run("unknown attempt", func(t *testing.T) {
		_, err := store.GetAttempt(uuid.New().String())
		assert.ErrorIs(t, err, models.ErrAttemptNotFound)
	})

	t.Run("list and summarize runs", func(t *testing.T) {
		attempts, err := store.ListBySuiteRun(runID)
		require.NoError(t, err)
		assert.Len(t, attempts, 3)

		runs, err := store.ListSuiteRuns(10)
		require.NoError(t, err)
		require.NotEmpty(t, runs)

		var found *models.SuiteRunSummary
		for i := range runs {
			if runs[i].ID == runID {
				found = &runs[i]
			}
		}
		require.NotNil(t, found)
		assert.Equal(t, 3, found.Attempts)
		assert.Equal(t, 1, found.Failed)
		assert.Equal(t, 0, found.Passed)
	})
}
