package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/themizzi/storecheck/internal/browser"
	"github.com/themizzi/storecheck/internal/config"
	"github.com/themizzi/storecheck/internal/database"
	"github.com/themizzi/storecheck/internal/fixtures"
	. "github.com/themizzi/storecheck/internal/logging"
	"github.com/themizzi/storecheck/internal/repository"
	"github.com/themizzi/storecheck/internal/services"
	"github.com/themizzi/storecheck/internal/suite"
)

// ErrSuiteFailed is returned when at least one scenario did not pass
var ErrSuiteFailed = errors.New("suite failed")

// SuiteDependencies holds everything a suite run needs
type SuiteDependencies struct {
	Config    *config.SuiteConfig
	Review    fixtures.Review
	Results   services.ResultService
	Launcher  browser.Launcher
	Registry  *prometheus.Registry
	Metrics   *suite.Metrics
	Scenarios []suite.Scenario

	closers []func() error
}

// Runner builds a runner over the dependencies
func (d *SuiteDependencies) Runner() *suite.Runner {
	return suite.NewRunner(d.Launcher, d.Config, d.Results, d.Review, d.Metrics)
}

// Close releases the browser and the results database
func (d *SuiteDependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			L_warn("suite: close failed", "error", err)
		}
	}
	d.closers = nil
}

// BuildSuiteDependencies loads the suite configuration, the review fixture and the
// results store, then starts the configured browser driver.
func BuildSuiteDependencies(getenv func(string) string, suiteFile string, names []string) (*SuiteDependencies, error) {
	cfg, err := config.LoadSuiteConfig(getenv, suiteFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load suite config: %w", err)
	}
	scenarios, err := suite.Select(suite.Scenarios(), names)
	if err != nil {
		return nil, err
	}
	review, err := fixtures.LoadReview(cfg.FixturesPath)
	if err != nil {
		return nil, err
	}

	deps := &SuiteDependencies{
		Config:    cfg,
		Review:    review,
		Registry:  prometheus.NewRegistry(),
		Scenarios: scenarios,
	}
	deps.Metrics = suite.NewMetrics(deps.Registry)

	store, closeStore, err := OpenResultStore(getenv)
	if err != nil {
		return nil, err
	}
	deps.closers = append(deps.closers, closeStore)
	deps.Results = services.NewResultService(store)

	launcher, err := suite.Launch(cfg)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to launch %s: %w", cfg.Driver, err)
	}
	deps.Launcher = launcher
	deps.closers = append(deps.closers, launcher.Close)

	return deps, nil
}

// ErrResultsNotPersisted is returned when results are listed without a PostgreSQL store
var ErrResultsNotPersisted = errors.New("results are only kept in PostgreSQL: configure the POSTGRES_* variables")

// OpenPersistedResultStore is OpenResultStore without the in-memory fallback, for
// reading results recorded by earlier processes.
func OpenPersistedResultStore(getenv func(string) string) (repository.AttemptStore, func() error, error) {
	if _, err := config.LoadPostgresConfig(getenv); errors.Is(err, config.ErrPostgresNotConfigured) {
		return nil, nil, ErrResultsNotPersisted
	}
	return OpenResultStore(getenv)
}

// OpenResultStore connects to PostgreSQL when POSTGRES_* is configured and falls back to
// an in-memory store otherwise.
func OpenResultStore(getenv func(string) string) (repository.AttemptStore, func() error, error) {
	pgConfig, err := config.LoadPostgresConfig(getenv)
	if errors.Is(err, config.ErrPostgresNotConfigured) {
		L_debug("results: postgres not configured, keeping attempts in memory")
		return repository.NewMemoryAttemptStore(), func() error { return nil }, nil
	}
	if err != nil {
		return nil, nil, err
	}

	if err := database.Connect(pgConfig); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.RunMigrations(); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to run database migrations: %w", err)
	}
	L_info("results: connected to postgres", "host", pgConfig.Host, "db", pgConfig.Database)
	return repository.NewAttemptRepository(), database.Close, nil
}

// RunSuite runs the scenarios once and writes the report to out. It returns
// ErrSuiteFailed when any scenario did not pass.
func RunSuite(ctx context.Context, runner *suite.Runner, scenarios []suite.Scenario, out io.Writer) (*suite.Report, error) {
	report, err := runner.Run(ctx, scenarios)
	if report != nil {
		report.Write(out)
	}
	if err != nil {
		return report, err
	}
	if !report.Passed() {
		return report, fmt.Errorf("%w: %d of %d scenarios", ErrSuiteFailed, len(report.Failed()), len(report.Results))
	}
	return report, nil
}

// RunWatch runs the suite once, then on the configured schedule until ctx is done.
// When metricsAddr is set the suite metrics are served there.
func RunWatch(ctx context.Context, deps *SuiteDependencies, metricsAddr string, out io.Writer) error {
	runner := deps.Runner()
	run := func(ctx context.Context) (*suite.Report, error) {
		return runner.Run(ctx, deps.Scenarios)
	}
	watcher, err := suite.NewWatcher(deps.Config.Schedule, run)
	if err != nil {
		return err
	}

	if metricsAddr != "" {
		_, stop, err := ServeMetrics(metricsAddr, deps.Registry)
		if err != nil {
			return err
		}
		defer stop()
	}

	stopReporting := make(chan struct{})
	reported := make(chan struct{})
	go func() {
		defer close(reported)
		for {
			select {
			case report := <-watcher.Reports():
				report.Write(out)
			case <-stopReporting:
				select {
				case report := <-watcher.Reports():
					report.Write(out)
				default:
				}
				return
			}
		}
	}()
	defer func() {
		close(stopReporting)
		<-reported
	}()

	if report, err := run(ctx); err != nil {
		L_error("suite: initial run failed", "error", err)
	} else {
		report.Write(out)
	}

	watcher.Start(ctx)
	return nil
}

// ServeMetrics exposes reg on addr under /metrics and returns the bound address. The
// returned func stops the server.
func ServeMetrics(addr string, reg *prometheus.Registry) (net.Addr, func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to listen for metrics: %w", err)
	}

	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	server := &http.Server{Handler: r, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		L_info("suite: metrics listening", "addr", listener.Addr().String())
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			L_error("suite: metrics server error", "error", err)
		}
	}()

	return listener.Addr(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}, nil
}

// PrintResults lists the recent suite runs, or the attempts of one run when runID is set
func PrintResults(results services.ResultService, runID string, limit int, out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	if runID != "" {
		attempts, err := results.AttemptsOf(runID)
		if err != nil {
			return err
		}
		if len(attempts) == 0 {
			return fmt.Errorf("no attempts recorded for run %s", runID)
		}
		fmt.Fprintln(tw, "SCENARIO\tATTEMPT\tSTATUS\tDURATION\tREASON")
		for _, a := range attempts {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", a.Scenario, a.Number, a.Status, a.Duration().Round(time.Millisecond), a.Reason)
		}
		return nil
	}

	runs, err := results.RecentRuns(limit)
	if err != nil {
		return err
	}
	fmt.Fprintln(tw, "RUN\tSTARTED\tATTEMPTS\tPASSED\tFAILED\tINDETERMINATE")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\n", r.ID, r.StartedAt.Format(time.RFC3339), r.Attempts, r.Passed, r.Failed, r.Indeterminate)
	}
	return nil
}
