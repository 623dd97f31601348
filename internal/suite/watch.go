package suite

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	. "github.com/themizzi/storecheck/internal/logging"
)

// RunFunc performs one suite run
type RunFunc func(ctx context.Context) (*Report, error)

// Watcher runs the suite on a cron schedule. A tick or Trigger that fires while another
// run is still going is skipped.
type Watcher struct {
	cron *cron.Cron
	run  RunFunc

	running sync.Mutex
	mu      sync.Mutex
	ctx     context.Context
	reports chan *Report
}

// NewWatcher parses schedule (standard five-field cron or a descriptor such as "@every 30m")
func NewWatcher(schedule string, run RunFunc) (*Watcher, error) {
	w := &Watcher{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		run:     run,
		reports: make(chan *Report, 1),
	}
	if _, err := w.cron.AddFunc(schedule, w.tick); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	return w, nil
}

// Reports delivers finished reports. A report nobody is waiting for is dropped.
func (w *Watcher) Reports() <-chan *Report {
	return w.reports
}

// Start schedules runs until ctx is done, then waits for a run in progress to finish
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	w.ctx = ctx
	w.mu.Unlock()

	w.cron.Start()
	L_info("suite: watch started", "entries", len(w.cron.Entries()))

	<-ctx.Done()
	<-w.cron.Stop().Done()
	L_info("suite: watch stopped")
}

// Trigger runs the suite immediately, outside the schedule. It reports false when a run
// was already in progress and nothing was started.
func (w *Watcher) Trigger() bool {
	return w.runExclusive()
}

func (w *Watcher) tick() {
	if !w.runExclusive() {
		L_debug("suite: run in progress, skipping tick")
	}
}

func (w *Watcher) runExclusive() bool {
	if !w.running.TryLock() {
		return false
	}
	defer w.running.Unlock()

	w.mu.Lock()
	ctx := w.ctx
	w.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return true
	}

	report, err := w.run(ctx)
	if err != nil {
		L_error("suite: scheduled run failed", "error", err)
	}
	if report == nil {
		return true
	}
	select {
	case w.reports <- report:
	default:
	}
	return true
}
