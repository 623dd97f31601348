package suite

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/themizzi/storecheck/internal/models"
)

// Metrics are the suite counters exposed by watch mode
type Metrics struct {
	attempts *prometheus.CounterVec
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	lastRun  prometheus.Gauge
}

// NewMetrics registers the suite metrics with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storecheck_attempts_total",
			Help: "Scenario attempts by final status.",
		}, []string{"scenario", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storecheck_attempt_duration_seconds",
			Help:    "Duration of scenario attempts.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}, []string{"scenario"}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storecheck_suite_runs_total",
			Help: "Completed suite runs by result.",
		}, []string{"result"}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Name: "storecheck_last_run_timestamp_seconds",
			Help: "Unix time the last suite run finished.",
		}),
	}
}

func (m *Metrics) observeAttempt(a *models.Attempt) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(a.Scenario, string(a.Status)).Inc()
	m.duration.WithLabelValues(a.Scenario).Observe(a.Duration().Seconds())
}

func (m *Metrics) observeRun(r *Report) {
	if m == nil {
		return
	}
	result := "passed"
	if !r.Passed() {
		result = "failed"
	}
	m.runs.WithLabelValues(result).Inc()
	m.lastRun.Set(float64(r.Finished.Unix()))
}
