package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// PipelineRunner runs the configured pipelines and reports overall success.
type PipelineRunner interface {
	RunAll(ctx context.Context, keys ...string) bool
}

// Job is the scheduled unit of work: one run of every enabled pipeline under
// the configured timeout. Overlapping triggers are skipped.
type Job struct {
	runner    PipelineRunner
	timeout   time.Duration
	pipelines []string
	metrics   *WorkerMetrics
	health    *HealthServer
	logger    *slog.Logger

	mu sync.Mutex
}

// NewJob creates a Job. health may be nil.
func NewJob(runner PipelineRunner, cfg *WorkerConfig, metrics *WorkerMetrics, health *HealthServer, logger *slog.Logger) *Job {
	return &Job{
		runner:    runner,
		timeout:   cfg.RunTimeout,
		pipelines: cfg.Pipelines,
		metrics:   metrics,
		health:    health,
		logger:    logger,
	}
}

// Run executes one run and reports whether it succeeded. It returns false
// without running when a previous run is still in progress.
func (j *Job) Run(ctx context.Context) bool {
	if !j.mu.TryLock() {
		j.logger.Warn("previous run still in progress, skipping")
		j.metrics.RecordJobRun("skipped")
		return false
	}
	defer j.mu.Unlock()

	start := time.Now()
	j.metrics.RecordJobRun("started")
	j.logger.Info("scheduled run started",
		slog.Duration("timeout", j.timeout),
		slog.Any("pipelines", j.pipelines))

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	ok := j.runner.RunAll(ctx, j.pipelines...)
	duration := time.Since(start)
	j.metrics.RecordJobDuration(duration)

	if j.health != nil {
		j.health.MarkRun(time.Now())
	}

	if !ok {
		j.metrics.RecordJobRun("failure")
		j.logger.Error("scheduled run failed", slog.Duration("duration", duration))
		return false
	}

	j.metrics.RecordJobRun("success")
	j.metrics.RecordLastSuccess()
	j.logger.Info("scheduled run completed", slog.Duration("duration", duration))
	return true
}
