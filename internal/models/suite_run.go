package models

import "time"

// SuiteRunSummary aggregates the attempts recorded for one suite run
type SuiteRunSummary struct {
	ID            string
	StartedAt     time.Time
	Attempts      int
	Passed        int
	Failed        int
	Indeterminate int
}

// Summarize folds attempts of a single run into a summary
func Summarize(runID string, attempts []*Attempt) SuiteRunSummary {
	s := SuiteRunSummary{ID: runID}
	for _, a := range attempts {
		if s.StartedAt.IsZero() || a.StartedAt.Before(s.StartedAt) {
			s.StartedAt = a.StartedAt
		}
		s.Attempts++
		switch a.Status {
		case AttemptStatusPassed:
			s.Passed++
		case AttemptStatusFailed:
			s.Failed++
		case AttemptStatusIndeterminate:
			s.Indeterminate++
		}
	}
	return s
}
