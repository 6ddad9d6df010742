package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"politikk-moter/internal/domain/entity"
	"politikk-moter/internal/observability/logging"
	"politikk-moter/internal/observability/metrics"
	"politikk-moter/internal/observability/tracing"
)

const (
	// DefaultCalendarDaysAhead is the calendar read window used by Extract.
	// Collect reads calendars for its horizon instead.
	DefaultCalendarDaysAhead = 9

	// DefaultUserAgent is sent on every direct fetch.
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

	defaultFetchTimeout = 15 * time.Second
)

// Config controls extraction behavior.
type Config struct {
	FetchOptions      FetchOptions
	CalendarDaysAhead int

	// DemoFallback substitutes DemoMeetings when a run finds nothing at all.
	DemoFallback bool
}

// DefaultConfig returns the configuration used by the CLI and the worker.
func DefaultConfig() Config {
	return Config{
		FetchOptions: FetchOptions{
			Timeout:   defaultFetchTimeout,
			UserAgent: DefaultUserAgent,
		},
		CalendarDaysAhead: DefaultCalendarDaysAhead,
		DemoFallback:      true,
	}
}

// Service dispatches sources to parsers and merges the results.
// Renderer, Calendar and Reporter are optional.
type Service struct {
	Fetcher   Fetcher
	Renderer  Renderer
	Calendar  CalendarReader
	Parsers   map[entity.SourceType]Parser
	Providers map[string]Parser
	Generic   Parser
	Reporter  FailureReporter
	Now       func() time.Time

	config Config
}

// NewService creates an extraction Service.
//
// Parameters:
//   - fetcher: transport for direct fetches and detail pages
//   - renderer: script-execution collaborator (nil when unavailable)
//   - calendar: calendar-read collaborator (nil disables calendar merging)
//   - parsers: strategy registry keyed by source type
//   - providers: provider recipes keyed by provider id
//   - generic: last-resort parser for unknown types
//   - config: fetch options and fallback behavior
func NewService(
	fetcher Fetcher,
	renderer Renderer,
	calendar CalendarReader,
	parsers map[entity.SourceType]Parser,
	providers map[string]Parser,
	generic Parser,
	config Config,
) *Service {
	if config.CalendarDaysAhead <= 0 {
		config.CalendarDaysAhead = DefaultCalendarDaysAhead
	}
	return &Service{
		Fetcher:   fetcher,
		Renderer:  renderer,
		Calendar:  calendar,
		Parsers:   parsers,
		Providers: providers,
		Generic:   generic,
		Now:       time.Now,
		config:    config,
	}
}

// Stats summarizes one extraction run.
type Stats struct {
	Sources         int
	Failed          int
	Records         int
	CalendarRecords int
	Demo            bool
	Duration        time.Duration
}

// Result is the merged outcome of one extraction run.
type Result struct {
	Meetings []entity.Meeting
	Stats    Stats
}

// Extract reads the calendars, then every source in order, and merges the
// records. A failing source or calendar is logged and contributes nothing.
// The returned error is non-nil only when ctx is cancelled.
func (s *Service) Extract(ctx context.Context, sources []entity.SourceConfig, calendars []entity.CalendarSource) (*Result, error) {
	return s.extract(ctx, "", sources, calendars, s.now(), s.config.CalendarDaysAhead)
}

// Collect extracts the sources and calendars of a pipeline and restricts the
// result to [today, today+horizon]. A pipeline without sources and calendars
// yields an empty result.
func (s *Service) Collect(ctx context.Context, p entity.Pipeline, reg entity.Registry, today time.Time, horizon int) (*Result, error) {
	logger := logging.FromContext(ctx)

	sources := reg.SourcesForGroups(p.Groups)
	calendars := reg.CalendarsFor(p)
	if len(sources) == 0 && len(calendars) == 0 {
		logger.Warn("pipeline has no sources, skipping", slog.String("pipeline", p.Key))
		return &Result{}, nil
	}

	days := s.config.CalendarDaysAhead
	if horizon > 0 {
		days = horizon
	}

	res, err := s.extract(ctx, p.Key, sources, calendars, today, days)
	if res == nil {
		return nil, err
	}

	res.Meetings = FilterByHorizon(res.Meetings, today, horizon)
	logger.Info("pipeline meetings collected",
		slog.String("pipeline", p.Key),
		slog.Int("meetings", len(res.Meetings)),
		slog.Bool("demo", res.Stats.Demo),
	)
	return res, err
}

func (s *Service) extract(ctx context.Context, pipeline string, sources []entity.SourceConfig, calendars []entity.CalendarSource, today time.Time, calendarDays int) (*Result, error) {
	logger := logging.FromContext(ctx)
	start := time.Now()

	ctx, span := tracing.GetTracer().Start(ctx, "extract.run")
	defer span.End()
	span.SetAttributes(
		attribute.Int("sources", len(sources)),
		attribute.Int("calendars", len(calendars)),
	)

	ctx = WithDetailCache(ctx, NewDetailCache(s.Fetcher, s.fetchOptions()))
	res := &Result{Stats: Stats{Sources: len(sources)}}

	for _, c := range calendars {
		meetings := s.readCalendar(ctx, c, calendarDays)
		res.Stats.CalendarRecords += len(meetings)
		res.Meetings = append(res.Meetings, meetings...)
	}

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			res.Stats.Duration = time.Since(start)
			return res, fmt.Errorf("extract cancelled: %w", err)
		}

		meetings, err := s.extractSourceTraced(ctx, src)
		if err != nil {
			res.Stats.Failed++
			logger.Warn("source extraction failed",
				slog.String("source", src.Name),
				slog.String("type", string(src.Type)),
				slog.Any("error", err),
			)
			metrics.RecordSourceFailure(src.Name, failureReason(err))
			if s.Reporter != nil {
				s.Reporter.CaptureSourceFailure(src.Name, err)
			}
			continue
		}

		meetings = Dedup(meetings)
		for i := range meetings {
			meetings[i] = meetings[i].WithFallbackURL(src.URL)
		}
		res.Stats.Records += len(meetings)
		res.Meetings = append(res.Meetings, meetings...)

		logger.Info("source extracted",
			slog.String("source", src.Name),
			slog.Int("records", len(meetings)),
		)
	}

	if len(res.Meetings) == 0 && s.config.DemoFallback {
		res.Meetings = DemoMeetings(today)
		res.Stats.Demo = true
		metrics.RecordDemoFallback(pipeline)
		logger.Warn("no meetings found, using demo dataset",
			slog.Bool("demo", true),
			slog.String("pipeline", pipeline),
			slog.Int("records", len(res.Meetings)),
		)
	}

	res.Stats.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Int("records", len(res.Meetings)),
		attribute.Bool("demo", res.Stats.Demo),
	)
	logger.Info("extraction completed",
		slog.Int("sources", res.Stats.Sources),
		slog.Int("failed", res.Stats.Failed),
		slog.Int("records", res.Stats.Records),
		slog.Int("calendar_records", res.Stats.CalendarRecords),
		slog.Duration("duration", res.Stats.Duration),
	)
	return res, nil
}

func (s *Service) readCalendar(ctx context.Context, c entity.CalendarSource, days int) []entity.Meeting {
	if s.Calendar == nil {
		return nil
	}
	logger := logging.FromContext(ctx)

	ctx, span := tracing.GetTracer().Start(ctx, "extract.calendar")
	defer span.End()
	span.SetAttributes(attribute.String("calendar", c.ID))

	meetings, err := s.Calendar.ListEvents(ctx, c.ID, days)
	if err != nil {
		tracing.RecordError(span, err)
		logger.Warn("calendar read failed", slog.String("calendar", c.ID), slog.Any("error", err))
		if s.Reporter != nil {
			s.Reporter.CaptureSourceFailure(c.ProvenanceTag(), err)
		}
		return nil
	}

	metrics.RecordCalendarRecords(c.ID, len(meetings))
	logger.Info("calendar read", slog.String("calendar", c.ID), slog.Int("records", len(meetings)))
	return meetings
}

func (s *Service) extractSourceTraced(ctx context.Context, src entity.SourceConfig) ([]entity.Meeting, error) {
	start := time.Now()
	ctx, span := tracing.GetTracer().Start(ctx, "extract.source")
	defer span.End()
	span.SetAttributes(
		attribute.String("source", src.Name),
		attribute.String("type", string(src.Type)),
	)

	meetings, err := s.extractSource(ctx, src)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("records", len(meetings)))
	metrics.RecordSourceExtraction(src.Name, string(src.Type), len(meetings), time.Since(start))
	return meetings, nil
}

// extractSource picks the transport and parser for src:
// provider recipe, then rendered page, then direct fetch.
func (s *Service) extractSource(ctx context.Context, src entity.SourceConfig) ([]entity.Meeting, error) {
	logger := logging.FromContext(ctx)

	if src.Provider != "" {
		if parser, ok := s.Providers[src.Provider]; ok {
			page, err := s.fetch(ctx, src.URL)
			if err != nil {
				return nil, err
			}
			return parser.Parse(ctx, *page, src)
		}
		logger.Warn("unknown provider, using type parser",
			slog.String("source", src.Name),
			slog.String("provider", src.Provider))
	}

	if src.Render {
		page, err := s.render(ctx, src)
		switch {
		case err == nil:
			return s.parserFor(ctx, src).Parse(ctx, *page, src)
		case errors.Is(err, ErrRendererUnavailable):
			logger.Debug("renderer unavailable, fetching directly", slog.String("source", src.Name))
		default:
			logger.Warn("render failed, fetching directly",
				slog.String("source", src.Name),
				slog.Any("error", err))
		}
	}

	page, err := s.fetch(ctx, src.URL)
	if err != nil {
		return nil, err
	}
	return s.parserFor(ctx, src).Parse(ctx, *page, src)
}

func (s *Service) parserFor(ctx context.Context, src entity.SourceConfig) Parser {
	if parser, ok := s.Parsers[src.Type]; ok {
		return parser
	}
	logging.FromContext(ctx).Warn("unknown source type, using generic scan",
		slog.String("source", src.Name),
		slog.String("type", string(src.Type)))
	if s.Generic != nil {
		return s.Generic
	}
	return ParserFunc(func(context.Context, Page, entity.SourceConfig) ([]entity.Meeting, error) {
		return nil, fmt.Errorf("%w: %s", ErrNoParser, src.Type)
	})
}

func (s *Service) fetch(ctx context.Context, url string) (*Page, error) {
	page, err := s.Fetcher.Fetch(ctx, url, s.fetchOptions())
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	if page == nil || (len(page.Body) == 0 && page.Store == nil) {
		return nil, fmt.Errorf("fetch %s: %w", url, ErrEmptyPage)
	}
	return page, nil
}

func (s *Service) render(ctx context.Context, src entity.SourceConfig) (*Page, error) {
	if s.Renderer == nil {
		return nil, ErrRendererUnavailable
	}
	out, err := s.Renderer.Render(ctx, RenderProfile(src))
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", src.URL, err)
	}
	url := out.URL
	if url == "" {
		url = src.URL
	}
	return &Page{
		URL:         url,
		StatusCode:  200,
		ContentType: "text/html",
		Body:        []byte(out.HTML),
		Store:       out.Store,
	}, nil
}

func (s *Service) fetchOptions() FetchOptions {
	opts := s.config.FetchOptions
	if opts.Timeout <= 0 {
		opts.Timeout = defaultFetchTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	return opts
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrNoParser):
		return "no_parser"
	case errors.Is(err, ErrEmptyPage):
		return "empty"
	default:
		return "fetch"
	}
}
