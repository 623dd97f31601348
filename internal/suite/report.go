package suite

import (
	"fmt"
	"io"
	"time"

	"github.com/themizzi/storecheck/internal/models"
)

// Result is the outcome of one scenario after retries
type Result struct {
	Scenario string
	Attempts []*models.Attempt
}

// Final returns the last attempt made
func (r Result) Final() *models.Attempt {
	if len(r.Attempts) == 0 {
		return nil
	}
	return r.Attempts[len(r.Attempts)-1]
}

// Passed reports whether the last attempt passed
func (r Result) Passed() bool {
	final := r.Final()
	return final != nil && final.IsPassed()
}

// Report summarizes a suite run
type Report struct {
	SuiteRunID string
	Started    time.Time
	Finished   time.Time
	Results    []Result
}

// Passed reports whether every scenario passed. An indeterminate scenario does not pass.
func (r *Report) Passed() bool {
	for _, res := range r.Results {
		if !res.Passed() {
			return false
		}
	}
	return true
}

// Failed returns the scenarios that did not pass
func (r *Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.Passed() {
			out = append(out, res)
		}
	}
	return out
}

// Write prints the report, one line per scenario
func (r *Report) Write(w io.Writer) {
	fmt.Fprintf(w, "suite run %s (%s)\n", r.SuiteRunID, r.Finished.Sub(r.Started).Round(time.Millisecond))
	passed := 0
	for _, res := range r.Results {
		final := res.Final()
		if final == nil {
			continue
		}
		mark := "FAIL"
		if res.Passed() {
			mark = "PASS"
			passed++
		}
		fmt.Fprintf(w, "  %s  %-20s attempts=%d status=%s", mark, res.Scenario, len(res.Attempts), final.Status)
		if final.Reason != "" {
			fmt.Fprintf(w, "\n        %s", final.Reason)
		}
		if final.Screenshot != "" {
			fmt.Fprintf(w, "\n        screenshot: %s", final.Screenshot)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "%d/%d scenarios passed\n", passed, len(r.Results))
}
