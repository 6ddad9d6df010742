// Package calendar reads meetings from and writes meetings to Google
// Calendar through its REST API.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"politikk-moter/internal/domain/entity"
	"politikk-moter/internal/observability/logging"
	"politikk-moter/internal/resilience/circuitbreaker"
	"politikk-moter/internal/resilience/retry"
	"politikk-moter/internal/usecase/extract"
	"politikk-moter/internal/utils/text"
)

const (
	// DefaultBaseURL is the Calendar v3 API root.
	DefaultBaseURL = "https://www.googleapis.com/calendar/v3"

	// CredentialsEnv holds the service-account key file content.
	CredentialsEnv = "GOOGLE_SERVICE_ACCOUNT_JSON"

	defaultTimeout = 15 * time.Second
	maxResults     = 250
)

var osloZone = func() *time.Location {
	loc, err := time.LoadLocation(eventZone)
	if err != nil {
		return time.UTC
	}
	return loc
}()

// Config configures a GoogleCalendar.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	Credentials []byte
	Sources     []entity.CalendarSource

	// Lookup resolves calendar id env overrides. Nil reads the environment.
	Lookup func(string) (string, bool)
}

// GoogleCalendar implements the calendar collaborator against the Google
// Calendar API with a service account.
type GoogleCalendar struct {
	baseURL string
	client  *http.Client
	tokens  *tokenSource
	sources map[string]entity.CalendarSource
	lookup  func(string) (string, bool)
	breaker *circuitbreaker.CircuitBreaker

	Now func() time.Time
}

var _ extract.CalendarReader = (*GoogleCalendar)(nil)

// New creates a GoogleCalendar.
//
// Parameters:
//   - cfg: service-account credentials, calendar sources and request timeout
//
// Returns:
//   - *GoogleCalendar: calendar reader and writer with a cached access token
//   - error: ErrCredentialsMissing when no credentials are given, or the
//     service-account parse error
func New(cfg Config) (*GoogleCalendar, error) {
	sa, err := ParseServiceAccount(cfg.Credentials)
	if err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Lookup == nil {
		cfg.Lookup = os.LookupEnv
	}

	g := &GoogleCalendar{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		sources: make(map[string]entity.CalendarSource, len(cfg.Sources)),
		lookup:  cfg.Lookup,
		breaker: circuitbreaker.New(circuitbreaker.CalendarConfig()),
		Now:     time.Now,
	}
	for _, s := range cfg.Sources {
		g.sources[s.ID] = s
	}
	g.tokens, err = newTokenSource(sa, g.client, func() time.Time { return g.now() })
	if err != nil {
		return nil, err
	}
	return g, nil
}

// NewFromEnv reads credentials from GOOGLE_SERVICE_ACCOUNT_JSON.
func NewFromEnv(sources []entity.CalendarSource) (*GoogleCalendar, error) {
	return New(Config{
		Credentials: []byte(os.Getenv(CredentialsEnv)),
		Sources:     sources,
	})
}

// ResolveCalendarID returns the env override of the source when set, else
// its configured id.
func (g *GoogleCalendar) ResolveCalendarID(sourceID string) (string, error) {
	src, ok := g.sources[sourceID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownSource, sourceID)
	}
	if src.CalendarIDEnv != "" {
		if v, ok := g.lookup(src.CalendarIDEnv); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), nil
		}
	}
	if src.CalendarID != "" {
		return src.CalendarID, nil
	}
	return "", fmt.Errorf("%w: set %s", ErrCalendarIDMissing, src.CalendarIDEnv)
}

// ListEvents implements extract.CalendarReader. The window runs from the
// start of today through daysAhead+1 days, Oslo time.
func (g *GoogleCalendar) ListEvents(ctx context.Context, sourceID string, daysAhead int) ([]entity.Meeting, error) {
	calendarID, err := g.ResolveCalendarID(sourceID)
	if err != nil {
		return nil, err
	}
	start := startOfDay(g.now())
	events, err := g.listEvents(ctx, calendarID, start, start.AddDate(0, 0, daysAhead+1))
	if err != nil {
		return nil, err
	}

	logger := logging.FromContext(ctx)
	out := make([]entity.Meeting, 0, len(events))
	for _, ev := range events {
		m, ok := EventToMeeting(ev, sourceID)
		if !ok {
			logger.Debug("calendar event skipped",
				slog.String("calendar", sourceID),
				slog.String("event_id", ev.ID))
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// InsertMeetings writes one event per meeting and returns how many were
// created. A meeting whose summary already exists on its day is skipped.
// Failures of single meetings are logged and do not stop the rest.
func (g *GoogleCalendar) InsertMeetings(ctx context.Context, sourceID string, meetings []entity.Meeting) (int, error) {
	calendarID, err := g.ResolveCalendarID(sourceID)
	if err != nil {
		return 0, err
	}
	logger := logging.FromContext(ctx).With(slog.String("calendar", sourceID))

	created := 0
	for _, m := range meetings {
		if err := ctx.Err(); err != nil {
			return created, err
		}
		exists, err := g.exists(ctx, calendarID, m)
		if err != nil {
			logger.Warn("could not check for existing event", slog.String("title", m.Title), slog.Any("error", err))
		}
		if exists {
			logger.Info("event already exists", slog.String("title", m.Title), slog.String("date", m.Date))
			continue
		}
		ev, err := MeetingToEvent(m)
		if err != nil {
			logger.Warn("meeting not convertible", slog.String("title", m.Title), slog.Any("error", err))
			continue
		}
		if err := g.insert(ctx, calendarID, ev); err != nil {
			logger.Warn("event insert failed", slog.String("title", m.Title), slog.Any("error", err))
			continue
		}
		created++
	}
	logger.Info("calendar sync finished", slog.Int("created", created), slog.Int("meetings", len(meetings)))
	return created, nil
}

func (g *GoogleCalendar) exists(ctx context.Context, calendarID string, m entity.Meeting) (bool, error) {
	day, err := time.ParseInLocation(text.ISODate, m.Date, osloZone)
	if err != nil {
		return false, err
	}
	events, err := g.listEvents(ctx, calendarID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return false, err
	}
	summary := Summary(m)
	for _, ev := range events {
		if ev.Summary == summary {
			return true, nil
		}
	}
	return false, nil
}

func (g *GoogleCalendar) listEvents(ctx context.Context, calendarID string, from, to time.Time) ([]Event, error) {
	var (
		out       []Event
		pageToken string
	)
	for {
		q := url.Values{
			"timeMin":      {from.Format(time.RFC3339)},
			"timeMax":      {to.Format(time.RFC3339)},
			"singleEvents": {"true"},
			"orderBy":      {"startTime"},
			"maxResults":   {fmt.Sprint(maxResults)},
		}
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}
		endpoint := fmt.Sprintf("%s/calendars/%s/events?%s", g.baseURL, url.PathEscape(calendarID), q.Encode())

		var page eventList
		if err := g.do(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Items...)
		if page.NextPageToken == "" {
			return out, nil
		}
		pageToken = page.NextPageToken
	}
}

func (g *GoogleCalendar) insert(ctx context.Context, calendarID string, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	endpoint := fmt.Sprintf("%s/calendars/%s/events", g.baseURL, url.PathEscape(calendarID))
	return g.do(ctx, http.MethodPost, endpoint, body, nil)
}

// do performs an authorized API call through the breaker and retry policy.
func (g *GoogleCalendar) do(ctx context.Context, method, endpoint string, body []byte, out any) error {
	return retry.WithBackoff(ctx, retry.CalendarConfig(), func() error {
		_, err := g.breaker.Execute(func() (interface{}, error) {
			return nil, g.doOnce(ctx, method, endpoint, body, out)
		})
		return err
	})
}

func (g *GoogleCalendar) doOnce(ctx context.Context, method, endpoint string, body []byte, out any) error {
	access, err := g.tokens.Token(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+access)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("calendar request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &retry.HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode calendar response: %w", err)
	}
	return nil
}

func (g *GoogleCalendar) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.In(osloZone).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, osloZone)
}
