package extract_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"politikk-moter/internal/domain/entity"
	"politikk-moter/internal/usecase/extract"
)

/* ───────── test doubles ───────── */

type stubFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	errs  map[string]error
	calls []string
}

func (f *stubFetcher) Fetch(_ context.Context, url string, _ extract.FetchOptions) (*extract.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if err := f.errs[url]; err != nil {
		return nil, err
	}
	body, ok := f.pages[url]
	if !ok {
		return nil, errors.New("404")
	}
	return &extract.Page{URL: url, StatusCode: 200, Body: []byte(body)}, nil
}

type stubRenderer struct {
	result *extract.RenderResult
	err    error
	reqs   []extract.RenderRequest
}

func (r *stubRenderer) Render(_ context.Context, req extract.RenderRequest) (*extract.RenderResult, error) {
	r.reqs = append(r.reqs, req)
	if r.err != nil {
		return nil, r.err
	}
	return r.result, nil
}

type stubCalendar struct {
	meetings map[string][]entity.Meeting
	err      error
	days     []int
}

func (c *stubCalendar) ListEvents(_ context.Context, sourceID string, days int) ([]entity.Meeting, error) {
	c.days = append(c.days, days)
	if c.err != nil {
		return nil, c.err
	}
	return c.meetings[sourceID], nil
}

type recordingReporter struct {
	sources []string
}

func (r *recordingReporter) CaptureSourceFailure(source string, _ error) {
	r.sources = append(r.sources, source)
}

// bodyParser emits one meeting titled with the page body.
func bodyParser(label string) extract.Parser {
	return extract.ParserFunc(func(_ context.Context, page extract.Page, src entity.SourceConfig) ([]entity.Meeting, error) {
		m, err := entity.NewMeeting(entity.MeetingInput{
			Title:       label + ":" + string(page.Body),
			Date:        "2025-10-14",
			SourceGroup: src.Name,
		})
		if err != nil {
			return nil, err
		}
		return []entity.Meeting{m, m}, nil
	})
}

func newService(f extract.Fetcher, r extract.Renderer, c extract.CalendarReader) *extract.Service {
	parsers := map[entity.SourceType]extract.Parser{
		entity.SourceTypeACOS:     bodyParser("acos"),
		entity.SourceTypeElements: bodyParser("elements"),
		entity.SourceTypeStore: extract.ParserFunc(func(_ context.Context, page extract.Page, src entity.SourceConfig) ([]entity.Meeting, error) {
			if page.Store == nil {
				return nil, nil
			}
			m, _ := entity.NewMeeting(entity.MeetingInput{Title: "store", Date: "2025-10-14", SourceGroup: src.Name})
			return []entity.Meeting{m}, nil
		}),
	}
	providers := map[string]extract.Parser{entity.ProviderEigersund: bodyParser("eigersund")}
	svc := extract.NewService(f, r, c, parsers, providers, bodyParser("generic"), extract.DefaultConfig())
	svc.Now = func() time.Time { return time.Date(2025, 10, 13, 9, 0, 0, 0, time.UTC) }
	return svc
}

/* ───────── dispatch ───────── */

func TestExtract_DirectFetchDedupsAndAppliesFallbackURL(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{"https://sauda.example/": "liste"}}
	svc := newService(f, nil, nil)

	res, err := svc.Extract(context.Background(), []entity.SourceConfig{
		{Name: "Sauda kommune", URL: "https://sauda.example/", Type: entity.SourceTypeACOS},
	}, nil)

	require.NoError(t, err)
	require.Len(t, res.Meetings, 1, "parser output is deduplicated per source")
	assert.Equal(t, "acos:liste", res.Meetings[0].Title)
	assert.Equal(t, "https://sauda.example/", res.Meetings[0].URL)
	assert.False(t, res.Stats.Demo)
	assert.Equal(t, 1, res.Stats.Records)
}

func TestExtract_ProviderBypassesRender(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{"https://eigersund.example/": "plan"}}
	r := &stubRenderer{result: &extract.RenderResult{HTML: "rendered"}}
	svc := newService(f, r, nil)

	res, err := svc.Extract(context.Background(), []entity.SourceConfig{
		{Name: "Eigersund kommune", URL: "https://eigersund.example/", Type: entity.SourceTypeOnACOS, Provider: entity.ProviderEigersund, Render: true},
	}, nil)

	require.NoError(t, err)
	require.Len(t, res.Meetings, 1)
	assert.Equal(t, "eigersund:plan", res.Meetings[0].Title)
	assert.Empty(t, r.reqs, "provider recipes always fetch directly")
}

func TestExtract_RenderUsesProfileAndTypeParser(t *testing.T) {
	f := &stubFetcher{}
	r := &stubRenderer{result: &extract.RenderResult{HTML: "dom"}}
	svc := newService(f, r, nil)

	res, err := svc.Extract(context.Background(), []entity.SourceConfig{
		{Name: "Rogaland fylkeskommune", URL: "https://elements.example/", Type: entity.SourceTypeElements, Render: true},
	}, nil)

	require.NoError(t, err)
	require.Len(t, res.Meetings, 1)
	assert.Equal(t, "elements:dom", res.Meetings[0].Title)
	require.Len(t, r.reqs, 1)
	assert.Equal(t, 4*time.Second, r.reqs[0].Settle)
	assert.Equal(t, "table, .meeting, .møte, .calendar", r.reqs[0].WaitSelector)
	assert.Equal(t, 8*time.Second, r.reqs[0].SelectorTimeout)
	assert.Empty(t, f.calls)
}

func TestExtract_RenderStoreFeedsStoreParser(t *testing.T) {
	r := &stubRenderer{result: &extract.RenderResult{HTML: "<html></html>", Store: map[string]any{"ROOT_QUERY": map[string]any{}}}}
	svc := newService(&stubFetcher{}, r, nil)

	res, err := svc.Extract(context.Background(), []entity.SourceConfig{
		{Name: "Sola kommune", URL: "https://sola.example/", Type: entity.SourceTypeStore, Render: true},
	}, nil)

	require.NoError(t, err)
	require.Len(t, res.Meetings, 1)
	assert.Equal(t, "store", res.Meetings[0].Title)
	assert.True(t, r.reqs[0].CaptureStore)
}

func TestExtract_MissingRendererFallsBackToDirectFetch(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{"https://time.example/": "static"}}
	svc := newService(f, nil, nil)

	res, err := svc.Extract(context.Background(), []entity.SourceConfig{
		{Name: "Time kommune", URL: "https://time.example/", Type: entity.SourceTypeACOS, Render: true},
	}, nil)

	require.NoError(t, err)
	require.Len(t, res.Meetings, 1)
	assert.Equal(t, "acos:static", res.Meetings[0].Title)
}

func TestExtract_FailedRenderFallsBackToDirectFetch(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{"https://time.example/": "static"}}
	r := &stubRenderer{err: errors.New("browser crashed")}
	svc := newService(f, r, nil)

	res, err := svc.Extract(context.Background(), []entity.SourceConfig{
		{Name: "Time kommune", URL: "https://time.example/", Type: entity.SourceTypeACOS, Render: true},
	}, nil)

	require.NoError(t, err)
	require.Len(t, res.Meetings, 1)
	assert.Equal(t, []string{"https://time.example/"}, f.calls)
}

func TestExtract_UnknownTypeUsesGenericScan(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{"https://x.example/": "page"}}
	svc := newService(f, nil, nil)

	res, err := svc.Extract(context.Background(), []entity.SourceConfig{
		{Name: "X", URL: "https://x.example/", Type: entity.SourceTypeCustom},
	}, nil)

	require.NoError(t, err)
	require.Len(t, res.Meetings, 1)
	assert.Equal(t, "generic:page", res.Meetings[0].Title)
}

/* ───────── failure containment ───────── */

func TestExtract_FailingSourceDoesNotAbortOthers(t *testing.T) {
	f := &stubFetcher{
		pages: map[string]string{"https://ok.example/": "ok"},
		errs:  map[string]error{"https://down.example/": errors.New("connection refused")},
	}
	reporter := &recordingReporter{}
	svc := newService(f, nil, nil)
	svc.Reporter = reporter

	res, err := svc.Extract(context.Background(), []entity.SourceConfig{
		{Name: "Down", URL: "https://down.example/", Type: entity.SourceTypeACOS},
		{Name: "Ok", URL: "https://ok.example/", Type: entity.SourceTypeACOS},
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.Failed)
	require.Len(t, res.Meetings, 1)
	assert.Equal(t, "Ok", res.Meetings[0].SourceGroup)
	assert.Equal(t, []string{"Down"}, reporter.sources)
}

func TestExtract_EmptyResultUsesDemoDataset(t *testing.T) {
	f := &stubFetcher{errs: map[string]error{"https://down.example/": errors.New("timeout")}}
	svc := newService(f, nil, nil)

	res, err := svc.Extract(context.Background(), []entity.SourceConfig{
		{Name: "Down", URL: "https://down.example/", Type: entity.SourceTypeACOS},
	}, nil)

	require.NoError(t, err)
	assert.True(t, res.Stats.Demo)
	require.NotEmpty(t, res.Meetings)
	for _, m := range res.Meetings {
		assert.True(t, extract.IsDemo(m))
	}
}

func TestExtract_DemoFallbackDisabled(t *testing.T) {
	cfg := extract.DefaultConfig()
	cfg.DemoFallback = false
	svc := extract.NewService(&stubFetcher{}, nil, nil, nil, nil, nil, cfg)

	res, err := svc.Extract(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Meetings)
	assert.False(t, res.Stats.Demo)
}

func TestExtract_CancelledContext(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{"https://ok.example/": "ok"}}
	svc := newService(f, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Extract(ctx, []entity.SourceConfig{{Name: "Ok", URL: "https://ok.example/", Type: entity.SourceTypeACOS}}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.calls)
}

/* ───────── calendars ───────── */

func TestExtract_CalendarRecordsMergedFirstWithProvenance(t *testing.T) {
	vakt, err := entity.NewMeeting(entity.MeetingInput{
		Title: "Vaktmøte", Date: "2025-10-14", Time: "14:00",
		SourceGroup: entity.CalendarSourceGroupDefault, Provenance: "calendar:turnus",
	})
	require.NoError(t, err)
	cal := &stubCalendar{meetings: map[string][]entity.Meeting{
		"turnus": {vakt},
		"kultur": {meeting(t, "Konsert", "2025-10-15", "", entity.CalendarSourceGroupDefault)},
	}}
	f := &stubFetcher{pages: map[string]string{"https://ok.example/": "ok"}}
	svc := newService(f, nil, cal)

	res, err := svc.Extract(context.Background(),
		[]entity.SourceConfig{{Name: "Ok", URL: "https://ok.example/", Type: entity.SourceTypeACOS}},
		[]entity.CalendarSource{
			{ID: "turnus", CalendarIDEnv: "GOOGLE_CALENDAR_TURNUS_ID"},
			{ID: "kultur", CalendarIDEnv: "GOOGLE_CALENDAR_KULTUR_ID"},
		},
	)

	require.NoError(t, err)
	require.Len(t, res.Meetings, 3)
	assert.Equal(t, "Vaktmøte", res.Meetings[0].Title)
	assert.Equal(t, "calendar:turnus", res.Meetings[0].Provenance)
	// provenance is only stamped by the calendar reader
	assert.Equal(t, "Konsert", res.Meetings[1].Title)
	assert.Empty(t, res.Meetings[1].Provenance)
	assert.Equal(t, 2, res.Stats.CalendarRecords)
	assert.Equal(t, []int{extract.DefaultCalendarDaysAhead, extract.DefaultCalendarDaysAhead}, cal.days)
}

func TestCollect_CalendarsReadForHorizon(t *testing.T) {
	cal := &stubCalendar{}
	svc := newService(&stubFetcher{}, nil, cal)
	reg := entity.Registry{
		Calendars: []entity.CalendarSource{{ID: "turnus", CalendarIDEnv: "GOOGLE_CALENDAR_TURNUS_ID"}},
	}
	p := entity.Pipeline{Key: "standard", Groups: []string{"core"}, Calendars: []string{"turnus"}, ChannelEnv: "SLACK_WEBHOOK_URL"}

	_, err := svc.Collect(context.Background(), p, reg, time.Date(2025, 10, 13, 0, 0, 0, 0, time.UTC), 14)

	require.NoError(t, err)
	assert.Equal(t, []int{14}, cal.days)
}

func TestExtract_CalendarFailureIsContained(t *testing.T) {
	cal := &stubCalendar{err: errors.New("401 unauthorized")}
	f := &stubFetcher{pages: map[string]string{"https://ok.example/": "ok"}}
	svc := newService(f, nil, cal)

	res, err := svc.Extract(context.Background(),
		[]entity.SourceConfig{{Name: "Ok", URL: "https://ok.example/", Type: entity.SourceTypeACOS}},
		[]entity.CalendarSource{{ID: "arrangementer_sa", CalendarID: "x@group.calendar.google.com"}},
	)

	require.NoError(t, err)
	assert.Len(t, res.Meetings, 1)
	assert.Zero(t, res.Stats.CalendarRecords)
}

/* ───────── Collect ───────── */

func TestCollect_SelectsPipelineSourcesAndFilters(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{
		"https://core.example/":     "core",
		"https://extended.example/": "ext",
	}}
	svc := newService(f, nil, nil)
	reg := entity.Registry{
		Sources: []entity.SourceConfig{
			{Name: "Core", URL: "https://core.example/", Type: entity.SourceTypeACOS, Groups: []string{"core"}},
			{Name: "Extended", URL: "https://extended.example/", Type: entity.SourceTypeACOS, Groups: []string{"extended"}},
		},
	}
	p := entity.Pipeline{Key: "standard", Groups: []string{"core"}, ChannelEnv: "SLACK_WEBHOOK_URL"}

	res, err := svc.Collect(context.Background(), p, reg, time.Date(2025, 10, 13, 0, 0, 0, 0, time.UTC), 10)

	require.NoError(t, err)
	require.Len(t, res.Meetings, 1)
	assert.Equal(t, "Core", res.Meetings[0].SourceGroup)
	assert.Equal(t, []string{"https://core.example/"}, f.calls)
}

func TestCollect_OutsideWindowGivesEmptySet(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{"https://core.example/": "core"}}
	svc := newService(f, nil, nil)
	reg := entity.Registry{Sources: []entity.SourceConfig{
		{Name: "Core", URL: "https://core.example/", Type: entity.SourceTypeACOS, Groups: []string{"core"}},
	}}
	p := entity.Pipeline{Key: "standard", Groups: []string{"core"}, ChannelEnv: "SLACK_WEBHOOK_URL"}

	res, err := svc.Collect(context.Background(), p, reg, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), 10)

	require.NoError(t, err)
	assert.Empty(t, res.Meetings)
	assert.False(t, res.Stats.Demo, "demo data only replaces an empty extraction")
}

func TestCollect_PipelineWithoutSources(t *testing.T) {
	svc := newService(&stubFetcher{}, nil, nil)

	res, err := svc.Collect(context.Background(), entity.Pipeline{Key: "tom", Groups: []string{"none"}}, entity.Registry{}, time.Now(), 10)

	require.NoError(t, err)
	assert.Empty(t, res.Meetings)
	assert.False(t, res.Stats.Demo)
}

/* ───────── tracing ───────── */

func TestExtract_EmitsSpanPerSource(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(previous)
	})

	f := &stubFetcher{
		pages: map[string]string{"https://a.example/": "a"},
		errs:  map[string]error{"https://b.example/": errors.New("boom")},
	}
	svc := newService(f, nil, nil)

	_, err := svc.Extract(context.Background(), []entity.SourceConfig{
		{Name: "A", URL: "https://a.example/", Type: entity.SourceTypeACOS},
		{Name: "B", URL: "https://b.example/", Type: entity.SourceTypeACOS},
	}, nil)
	require.NoError(t, err)

	var sourceSpans, runSpans int
	for _, s := range exporter.GetSpans() {
		switch s.Name {
		case "extract.source":
			sourceSpans++
		case "extract.run":
			runSpans++
		}
	}
	assert.Equal(t, 2, sourceSpans)
	assert.Equal(t, 1, runSpans)
}
