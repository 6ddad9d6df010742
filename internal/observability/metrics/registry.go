// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Source metrics track per-source extraction
var (
	// SourceRecordsTotal counts meetings extracted from each source
	SourceRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "politikk_source_records_total",
			Help: "Total number of meetings extracted per source",
		},
		[]string{"source", "type"},
	)

	// SourceFailuresTotal counts sources that yielded nothing because of an error
	SourceFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "politikk_source_failures_total",
			Help: "Total number of failed source extractions",
		},
		[]string{"source", "reason"},
	)

	// SourceExtractionDuration measures fetch plus parse time per source type
	SourceExtractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "politikk_source_extraction_duration_seconds",
			Help:    "Time spent fetching and parsing one source",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"type"},
	)

	// DetailCacheLookupsTotal counts detail-page cache hits and misses
	DetailCacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "politikk_detail_cache_lookups_total",
			Help: "Detail page cache lookups by result",
		},
		[]string{"result"},
	)

	// CalendarRecordsTotal counts meetings read from each calendar source
	CalendarRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "politikk_calendar_records_total",
			Help: "Total number of meetings read from calendar sources",
		},
		[]string{"calendar"},
	)
)

// Pipeline metrics track runs, batches and deliveries
var (
	// PipelineRunsTotal counts pipeline runs by outcome
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "politikk_pipeline_runs_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"pipeline", "status"},
	)

	// PipelineRunDuration measures a full pipeline run
	PipelineRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "politikk_pipeline_run_duration_seconds",
			Help:    "Duration of a full pipeline run",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"pipeline"},
	)

	// DemoFallbacksTotal counts runs that substituted the demo dataset
	DemoFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "politikk_demo_fallbacks_total",
			Help: "Total number of extractions that fell back to demo data",
		},
		[]string{"pipeline"},
	)

	// BatchMeetings records the size of the last delivered batch
	BatchMeetings = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "politikk_batch_meetings",
			Help: "Number of meetings in the most recent batch",
		},
		[]string{"pipeline", "batch"},
	)

	// DeliveriesTotal counts batch deliveries by status
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "politikk_deliveries_total",
			Help: "Total number of batch deliveries",
		},
		[]string{"pipeline", "batch", "status"},
	)
)

// Application metrics track general operations
var (
	// OperationDuration measures duration of various operations
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "politikk_operation_duration_seconds",
			Help:    "Duration of various operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// RecordOperationDuration records the duration of a named operation.
func RecordOperationDuration(operation string, duration time.Duration) {
	OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// Circuit breaker metrics track outbound client health
var (
	// CircuitBreakerState is 0 closed, 1 half-open and 2 open, per breaker
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "politikk_circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"circuit"},
	)

	CircuitBreakerTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "politikk_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state changes by target state",
		},
		[]string{"circuit", "to"},
	)
)

// RecordCircuitState records a breaker moving to state, where state is one
// of "closed", "half-open" or "open".
func RecordCircuitState(circuit, state string) {
	value := 0.0
	switch state {
	case "half-open":
		value = 1
	case "open":
		value = 2
	}
	CircuitBreakerState.WithLabelValues(circuit).Set(value)
	CircuitBreakerTransitionsTotal.WithLabelValues(circuit, state).Inc()
}
