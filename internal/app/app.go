// Package app wires the collaborators shared by the CLI and the worker.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"politikk-moter/internal/config"
	"politikk-moter/internal/domain/entity"
	"politikk-moter/internal/infra/calendar"
	"politikk-moter/internal/infra/fetcher"
	"politikk-moter/internal/infra/notifier"
	"politikk-moter/internal/infra/renderer"
	"politikk-moter/internal/infra/scraper"
	"politikk-moter/internal/observability/errorreport"
	"politikk-moter/internal/observability/tracing"
	"politikk-moter/internal/usecase/extract"
	"politikk-moter/internal/usecase/notify"
	"politikk-moter/internal/usecase/pipeline"
)

// Options are the per-invocation switches of the CLI.
type Options struct {
	// HorizonDays overrides the configured horizon when positive.
	HorizonDays int
	Debug       bool

	// Force sends for real even in test mode, and fails batches without a
	// channel.
	Force bool

	// Out receives debug and dry-run output. Default: os.Stdout
	Out io.Writer

	// Now pins "today". Default: time.Now
	Now func() time.Time
}

// App holds the wired pipeline and its collaborators.
type App struct {
	Config    *config.AppConfig
	Registry  *entity.Registry
	Extractor *extract.Service
	Runner    *pipeline.Runner
	Reporter  *errorreport.Reporter

	// Calendar is nil without service-account credentials.
	Calendar *calendar.GoogleCalendar

	horizon  int
	now      func() time.Time
	shutdown []func(context.Context) error
}

// New builds an App from configuration. Optional collaborators (renderer,
// calendar, Sentry) are left out when they are not configured.
func New(cfg *config.AppConfig, reg *entity.Registry, opts Options, logger *slog.Logger) (*App, error) {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	horizon := cfg.HorizonDays
	if opts.HorizonDays > 0 {
		horizon = opts.HorizonDays
	}
	testMode := cfg.DryRun && !opts.Force

	a := &App{
		Config:   cfg,
		Registry: reg,
		horizon:  horizon,
		now:      opts.Now,
	}

	if cfg.Tracing.Enabled {
		a.shutdown = append(a.shutdown, tracing.Setup(sdktrace.WithSampler(sdktrace.AlwaysSample())))
		logger.Info("tracing enabled", slog.String("service", cfg.Tracing.ServiceName))
	}

	reporter, err := errorreport.New(errorreport.Config{
		DSN:         cfg.Sentry.DSN,
		Environment: cfg.Sentry.Environment,
		SampleRate:  cfg.Sentry.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init error reporting: %w", err)
	}
	a.Reporter = reporter
	a.shutdown = append(a.shutdown, func(context.Context) error {
		reporter.Flush(2 * time.Second)
		return nil
	})

	fetchConfig, err := fetcher.LoadConfigFromEnv()
	if err != nil {
		logger.Warn("invalid fetch configuration, using defaults", slog.Any("error", err))
		fetchConfig = fetcher.DefaultConfig()
	}
	pages := fetcher.New(fetchConfig)

	var render extract.Renderer
	if cfg.RenderServiceURL != "" {
		render = renderer.New(cfg.RenderServiceURL)
		logger.Info("script renderer enabled")
	} else {
		logger.Info("script renderer not configured, rendered sources are fetched directly")
	}

	calendarReader, err := a.calendarReader(testMode, opts.Now, logger)
	if err != nil {
		return nil, err
	}

	factory := scraper.NewFactory(pages)
	factory.Now = opts.Now

	extractConfig := extract.DefaultConfig()
	extractConfig.FetchOptions.Timeout = cfg.FetchTimeout
	extractConfig.DemoFallback = cfg.DemoFallback

	a.Extractor = extract.NewService(
		pages,
		render,
		calendarReader,
		factory.Parsers(),
		factory.Providers(),
		factory.Generic(),
		extractConfig,
	)
	a.Extractor.Reporter = reporter
	a.Extractor.Now = opts.Now

	var deliverer notify.Deliverer
	if testMode {
		deliverer = notifier.NewDryRunNotifier(opts.Out)
		logger.Info("test mode, messages are printed instead of sent")
	} else {
		deliverer = notifier.NewSlackNotifier(notifier.DefaultSlackConfig())
	}

	a.Runner = pipeline.NewRunner(a.Extractor, notify.NewService(deliverer, nil), *reg, pipeline.Options{
		HorizonDays: horizon,
		Debug:       opts.Debug,
		DryRun:      testMode,
		Force:       opts.Force,
		Out:         opts.Out,
	})
	a.Runner.Reporter = reporter
	a.Runner.Now = opts.Now

	return a, nil
}

// calendarReader picks the Google calendar when credentials are present, the
// mock in test mode, and no calendar otherwise.
func (a *App) calendarReader(testMode bool, now func() time.Time, logger *slog.Logger) (extract.CalendarReader, error) {
	g, err := calendar.NewFromEnv(a.Registry.Calendars)
	switch {
	case err == nil:
		g.Now = now
		a.Calendar = g
		return g, nil
	case !errors.Is(err, calendar.ErrCredentialsMissing):
		return nil, fmt.Errorf("init calendar: %w", err)
	case testMode:
		logger.Info("calendar credentials missing, using test calendar")
		return &calendar.Mock{Now: now}, nil
	default:
		logger.Info("calendar credentials missing, calendars disabled")
		return nil, nil
	}
}

// Collect returns the meetings of one pipeline within the horizon.
func (a *App) Collect(ctx context.Context, key string) ([]entity.Meeting, error) {
	p, ok := a.Registry.Pipeline(key)
	if !ok {
		return nil, fmt.Errorf("%w: unknown pipeline %q", entity.ErrInvalidInput, key)
	}
	res, err := a.Extractor.Collect(ctx, p, *a.Registry, a.now(), a.horizon)
	if err != nil {
		return nil, err
	}
	return res.Meetings, nil
}

// SyncCalendar collects a pipeline and writes its meetings into the calendar
// source. It returns the number of events created.
func (a *App) SyncCalendar(ctx context.Context, calendarID, key string) (int, error) {
	if a.Calendar == nil {
		return 0, calendar.ErrCredentialsMissing
	}
	if _, ok := a.Registry.Calendar(calendarID); !ok {
		return 0, fmt.Errorf("%w: %s", calendar.ErrUnknownSource, calendarID)
	}
	meetings, err := a.Collect(ctx, key)
	if err != nil {
		return 0, err
	}
	return a.Calendar.InsertMeetings(ctx, calendarID, meetings)
}

// Close flushes error reporting and stops tracing.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.shutdown) - 1; i >= 0; i-- {
		if err := a.shutdown[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
