// Package pipeline runs the collect, partition, format and deliver flow of
// each configured pipeline.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"politikk-moter/internal/domain/entity"
	"politikk-moter/internal/observability/errorreport"
	"politikk-moter/internal/observability/logging"
	"politikk-moter/internal/observability/metrics"
	"politikk-moter/internal/observability/tracing"
	"politikk-moter/internal/usecase/extract"
	"politikk-moter/internal/usecase/notify"
	"politikk-moter/internal/usecase/report"
)

// RemainderLabel heads the remainder batch of pipelines with batch rules.
const RemainderLabel = "Øvrige"

// Collector gathers a pipeline's meetings within the horizon.
type Collector interface {
	Collect(ctx context.Context, p entity.Pipeline, reg entity.Registry, today time.Time, horizon int) (*extract.Result, error)
}

// DeliveryReporter receives failed deliveries for out-of-band reporting.
type DeliveryReporter interface {
	CaptureDeliveryFailure(pipeline, batch string, err error)
}

// Options control one invocation.
type Options struct {
	// HorizonDays is the date window; zero means report.DefaultHorizonDays.
	HorizonDays int

	// Debug prints every message to Out and never delivers.
	Debug bool

	// DryRun marks deliveries as dry runs in metrics. The sender is
	// expected to be backed by a dry-run deliverer.
	DryRun bool

	// Force turns a missing channel into a failure.
	Force bool

	Out io.Writer
}

// Runner executes pipelines.
type Runner struct {
	collector Collector
	sender    *notify.Service
	registry  entity.Registry
	opts      Options

	// Reporter is optional.
	Reporter DeliveryReporter
	Now      func() time.Time
}

// NewRunner creates a Runner.
//
// Parameters:
//   - collector: extracts and windows the meetings of one pipeline
//   - sender: resolves channel env vars and delivers messages
//   - registry: sources, calendars and pipeline definitions
//   - opts: horizon, debug, dry-run and force flags
//
// Returns:
//   - *Runner: with HorizonDays defaulted to report.DefaultHorizonDays
//     and output discarded when opts.Out is nil
//
// Example:
//
//	runner := pipeline.NewRunner(extractService, notify.NewService(slack, nil), reg, pipeline.Options{})
//	ok := runner.RunAll(ctx, "standard")
func NewRunner(collector Collector, sender *notify.Service, registry entity.Registry, opts Options) *Runner {
	if opts.HorizonDays <= 0 {
		opts.HorizonDays = report.DefaultHorizonDays
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	return &Runner{
		collector: collector,
		sender:    sender,
		registry:  registry,
		opts:      opts,
		Now:       time.Now,
	}
}

// Run executes one pipeline and reports whether every batch succeeded. A
// batch goes to its own channel when that env var is set, else to the
// pipeline channel. A batch without any configured channel counts as
// success unless Force is set. A failed batch does not stop the remaining
// batches.
func (r *Runner) Run(ctx context.Context, p entity.Pipeline) bool {
	start := time.Now()
	runID := uuid.New().String()
	logger := logging.WithRunID(logging.FromContext(ctx), runID).With(slog.String("pipeline", p.Key))
	ctx = logging.WithLogger(ctx, logger)

	ctx, span := tracing.GetTracer().Start(ctx, "pipeline.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("pipeline", p.Key),
		attribute.String("run_id", runID),
	)

	logger.Info("pipeline started", slog.String("description", p.Description))

	ok := r.run(ctx, p)

	duration := time.Since(start)
	metrics.RecordPipelineRun(p.Key, ok, duration)
	span.SetAttributes(attribute.Bool("success", ok))
	logger.Info("pipeline finished",
		slog.Bool("success", ok),
		slog.Duration("duration", duration))
	return ok
}

func (r *Runner) run(ctx context.Context, p entity.Pipeline) bool {
	logger := logging.FromContext(ctx)

	res, err := r.collector.Collect(ctx, p, r.registry, r.now(), r.opts.HorizonDays)
	if err != nil {
		tracing.RecordError(trace.SpanFromContext(ctx), err)
		logger.Error("collect failed", slog.Any("error", err))
		return false
	}
	var meetings []entity.Meeting
	if res != nil {
		meetings = res.Meetings
	}

	rules := r.registry.ResolveBatches(p)
	label := ""
	if len(rules) > 0 {
		label = RemainderLabel
	}
	remainder := report.RemainderFor(p, r.registry.SourcesForGroups(p.Groups), rules, label)
	batches := report.Partition(meetings, rules, remainder)

	ok := true
	for _, b := range batches {
		if !r.deliver(ctx, p, b) {
			ok = false
		}
	}
	return ok
}

func (r *Runner) deliver(ctx context.Context, p entity.Pipeline, b report.Batch) bool {
	logger := logging.FromContext(ctx).With(
		slog.String("batch", b.Name),
		slog.Int("meetings", len(b.Meetings)),
	)
	text := report.FormatBatch(b, r.opts.HorizonDays)

	if r.opts.Debug {
		ruler := strings.Repeat("=", 50)
		fmt.Fprintf(r.opts.Out, "%s\n%s: %s\n%s\n%s\n%s\n", ruler, p.Key, b.Name, ruler, text, ruler)
		metrics.RecordDelivery(p.Key, b.Name, "dry_run", len(b.Meetings))
		return true
	}

	channel := p.ChannelEnv
	if b.ChannelEnv != "" {
		if _, ok := r.sender.Resolve(b.ChannelEnv); ok {
			channel = b.ChannelEnv
		} else {
			logger.Info("batch channel not set, using pipeline channel",
				slog.String("batch_channel_env", b.ChannelEnv),
				slog.String("channel_env", p.ChannelEnv))
		}
	}

	err := r.sender.Send(ctx, notify.Message{
		Pipeline:   p.Key,
		Batch:      b.Name,
		ChannelEnv: channel,
		Text:       text,
	})
	switch {
	case errors.Is(err, notify.ErrChannelNotConfigured):
		metrics.RecordDelivery(p.Key, b.Name, "skipped", len(b.Meetings))
		logger.Info("channel not set, skipping batch",
			slog.String("channel_env", channel),
			slog.Bool("force", r.opts.Force))
		return !r.opts.Force
	case err != nil:
		metrics.RecordDelivery(p.Key, b.Name, "failure", len(b.Meetings))
		logger.Error("batch delivery failed", slog.String("error", errorreport.SanitizeError(err)))
		if r.Reporter != nil {
			r.Reporter.CaptureDeliveryFailure(p.Key, b.Name, err)
		}
		return false
	}

	status := "success"
	if r.opts.DryRun {
		status = "dry_run"
	}
	metrics.RecordDelivery(p.Key, b.Name, status, len(b.Meetings))
	return true
}

// RunAll runs the named pipelines, or every enabled pipeline when keys is
// empty, and ANDs their results. An unknown key is a failure.
func (r *Runner) RunAll(ctx context.Context, keys ...string) bool {
	logger := logging.FromContext(ctx)

	var pipelines []entity.Pipeline
	ok := true
	if len(keys) == 0 {
		for _, p := range r.registry.Pipelines {
			if p.Enabled {
				pipelines = append(pipelines, p)
			}
		}
	} else {
		for _, key := range keys {
			p, found := r.registry.Pipeline(key)
			if !found {
				logger.Error("unknown pipeline", slog.String("pipeline", key))
				ok = false
				continue
			}
			pipelines = append(pipelines, p)
		}
	}
	if len(pipelines) == 0 {
		logger.Warn("no pipelines to run")
		return ok
	}

	for _, p := range pipelines {
		if err := ctx.Err(); err != nil {
			logger.Warn("run cancelled", slog.Any("error", err))
			return false
		}
		if !r.Run(ctx, p) {
			ok = false
		}
	}
	return ok
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}
