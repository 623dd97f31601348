// Package suite runs the storefront scenarios. Every attempt gets its own browser session,
// failed scenarios are retried as a whole, and each attempt is recorded through the
// result service.
package suite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/themizzi/storecheck/internal/browser"
	"github.com/themizzi/storecheck/internal/commands"
	"github.com/themizzi/storecheck/internal/config"
	"github.com/themizzi/storecheck/internal/fixtures"
	. "github.com/themizzi/storecheck/internal/logging"
	"github.com/themizzi/storecheck/internal/services"
)

// Runner executes scenarios against one launcher
type Runner struct {
	launcher browser.Launcher
	cfg      *config.SuiteConfig
	results  services.ResultService
	review   fixtures.Review
	metrics  *Metrics
}

// NewRunner creates a runner. metrics may be nil.
func NewRunner(launcher browser.Launcher, cfg *config.SuiteConfig, results services.ResultService, review fixtures.Review, metrics *Metrics) *Runner {
	return &Runner{
		launcher: launcher,
		cfg:      cfg,
		results:  results,
		review:   review,
		metrics:  metrics,
	}
}

// Run executes every scenario under a new suite run id. The returned error is only for
// failures of the harness itself (such as the results store); scenario failures are
// reported through the Report.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) (*Report, error) {
	report := &Report{
		SuiteRunID: uuid.New().String(),
		Started:    time.Now(),
	}
	L_info("suite: run started", "run", report.SuiteRunID, "scenarios", len(scenarios), "driver", r.cfg.Driver)

	for _, s := range scenarios {
		if err := ctx.Err(); err != nil {
			report.Finished = time.Now()
			return report, err
		}
		res, err := r.runScenario(ctx, report.SuiteRunID, s)
		report.Results = append(report.Results, res)
		if err != nil {
			report.Finished = time.Now()
			return report, err
		}
	}

	report.Finished = time.Now()
	r.metrics.observeRun(report)
	L_info("suite: run finished", "run", report.SuiteRunID, "passed", report.Passed(),
		"duration", report.Finished.Sub(report.Started).Round(time.Millisecond))
	return report, nil
}

// runScenario makes up to 1+Retries attempts. A structural failure is not retried.
func (r *Runner) runScenario(ctx context.Context, runID string, s Scenario) (Result, error) {
	res := Result{Scenario: s.Name}
	maxAttempts := r.cfg.Retries + 1

	for n := 1; n <= maxAttempts; n++ {
		attempt, err := r.results.StartAttempt(runID, s.Name, n)
		if err != nil {
			return res, err
		}

		screenshot, runErr := r.attempt(ctx, s, n)
		if err := r.results.RecordOutcome(attempt, runErr, screenshot); err != nil {
			return res, err
		}
		res.Attempts = append(res.Attempts, attempt)
		r.metrics.observeAttempt(attempt)

		if runErr == nil {
			L_info("suite: scenario passed", "scenario", s.Name, "attempt", n, "duration", attempt.Duration().Round(time.Millisecond))
			return res, nil
		}

		L_warn("suite: scenario attempt failed", "scenario", s.Name, "attempt", n, "status", attempt.Status, "error", runErr)
		if errors.Is(runErr, commands.ErrStructuralNotFound) {
			L_error("suite: structural failure, not retrying", "scenario", s.Name)
			break
		}
		if ctx.Err() != nil {
			break
		}
	}
	return res, nil
}

// attempt runs s once in a fresh session and returns the screenshot taken on failure, if any
func (r *Runner) attempt(ctx context.Context, s Scenario, n int) (string, error) {
	opts := browser.SessionOptions{
		ViewportWidth:  r.cfg.Viewport.Width,
		ViewportHeight: r.cfg.Viewport.Height,
	}
	if r.cfg.Artifacts.Video {
		opts.VideoDir = filepath.Join(r.cfg.Artifacts.Dir, "videos", slug(s.Name))
	}

	session, err := r.launcher.NewSession(opts)
	if err != nil {
		return "", fmt.Errorf("failed to open browser session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			L_warn("suite: closing session failed", "scenario", s.Name, "error", err)
		}
	}()

	env := &Env{
		Commander: commands.New(session, r.cfg),
		Config:    r.cfg,
		Review:    r.review,
	}
	runErr := s.Run(ctx, env)
	if runErr == nil || !r.cfg.Artifacts.ScreenshotOnFailure {
		return "", runErr
	}

	return r.screenshot(session, s.Name, n), runErr
}

func (r *Runner) screenshot(page browser.Page, scenario string, n int) string {
	dir := filepath.Join(r.cfg.Artifacts.Dir, "screenshots")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		L_warn("suite: cannot create screenshot dir", "dir", dir, "error", err)
		return ""
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%d.png", slug(scenario), n))
	if err := page.Screenshot(path); err != nil {
		L_warn("suite: screenshot failed", "scenario", scenario, "error", err)
		return ""
	}
	return path
}

var nonWord = regexp.MustCompile(`[^a-z0-9]+`)

func slug(name string) string {
	return strings.Trim(nonWord.ReplaceAllString(strings.ToLower(name), "-"), "-")
}
