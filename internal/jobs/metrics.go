// Package jobmetrics instruments queue task handlers.
package jobmetrics

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusSkipped = "skipped"
)

// Metrics holds the task collectors. A nil *Metrics records nothing.
type Metrics struct {
	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	retries  *prometheus.CounterVec
	inFlight *prometheus.GaugeVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the task collectors on registerer. A nil registerer
// disables instrumentation.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		return nil
	}
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradesdesk_jobs_total",
			Help: "Task runs by task type and outcome.",
		}, []string{"task", "status"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradesdesk_jobs_failures_total",
			Help: "Task runs that failed and were handed back for retry.",
		}, []string{"task"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradesdesk_jobs_retried_total",
			Help: "Task runs that were a retry of an earlier failed attempt.",
		}, []string{"task"}),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tradesdesk_jobs_in_flight",
			Help: "Tasks currently being processed.",
		}, []string{"task"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tradesdesk_job_duration_seconds",
			Help:    "Task processing time in seconds.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"task"}),
	}
	registerer.MustRegister(m.runs, m.failures, m.retries, m.inFlight, m.duration)
	return m
}

// Tracker measures one task run.
type Tracker struct {
	metrics *Metrics
	task    string
	start   time.Time
}

// Track starts measuring a run of task. ctx is the handler context; when it
// carries an asynq retry count above zero the run is counted as a retry.
func (m *Metrics) Track(ctx context.Context, task string) *Tracker {
	t := &Tracker{metrics: m, task: task, start: time.Now()}
	if m == nil {
		return t
	}
	m.inFlight.WithLabelValues(task).Inc()
	if n, ok := asynq.GetRetryCount(ctx); ok && n > 0 {
		m.retries.WithLabelValues(task).Inc()
	}
	return t
}

// End records the outcome and returns err unchanged. Errors wrapping
// asynq.SkipRetry are "skipped" and do not count as failures.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil {
		return err
	}
	m := t.metrics
	m.inFlight.WithLabelValues(t.task).Dec()
	status := Status(err)
	if status == StatusFailure {
		m.failures.WithLabelValues(t.task).Inc()
	}
	m.runs.WithLabelValues(t.task, status).Inc()
	m.duration.WithLabelValues(t.task).Observe(time.Since(t.start).Seconds())
	return err
}

// Status classifies a handler result.
func Status(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, asynq.SkipRetry):
		return StatusSkipped
	default:
		return StatusFailure
	}
}
