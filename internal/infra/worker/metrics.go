package worker

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"politikk-moter/internal/pkg/config"
)

// WorkerMetrics are the scheduler metrics of the worker.
type WorkerMetrics struct {
	*config.ConfigMetrics

	// JobRunsTotal counts scheduled runs by status (started, success, failure).
	JobRunsTotal *prometheus.CounterVec

	JobDurationSeconds prometheus.Histogram

	JobLastSuccessTimestamp prometheus.Gauge
}

// NewWorkerMetrics registers the worker metrics with the default registry.
func NewWorkerMetrics() *WorkerMetrics {
	return NewWorkerMetricsWith(prometheus.DefaultRegisterer)
}

// NewWorkerMetricsWith registers the worker metrics with reg.
func NewWorkerMetricsWith(reg prometheus.Registerer) *WorkerMetrics {
	factory := promauto.With(reg)
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetricsWith(reg, "politikk_worker"),

		JobRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "politikk_worker_job_runs_total",
			Help: "Total number of scheduled runs by status",
		}, []string{"status"}),

		JobDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "politikk_worker_job_duration_seconds",
			Help:    "Duration of scheduled runs in seconds",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 900},
		}),

		JobLastSuccessTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "politikk_worker_job_last_success_timestamp",
			Help: "Unix timestamp of the last fully successful run",
		}),
	}
}

// RecordJobRun counts a run transition.
func (m *WorkerMetrics) RecordJobRun(status string) {
	m.JobRunsTotal.WithLabelValues(status).Inc()
}

// RecordJobDuration observes the duration of one run.
func (m *WorkerMetrics) RecordJobDuration(d time.Duration) {
	m.JobDurationSeconds.Observe(d.Seconds())
}

// RecordLastSuccess sets the last success timestamp to now.
func (m *WorkerMetrics) RecordLastSuccess() {
	m.JobLastSuccessTimestamp.SetToCurrentTime()
}
