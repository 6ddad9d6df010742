// Package errorreport forwards source and delivery failures to Sentry.
// A Reporter built without a DSN is a no-op, so callers never check whether
// reporting is enabled.
package errorreport

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// Config holds the Sentry client settings.
type Config struct {
	DSN         string
	Environment string
	Release     string
	SampleRate  float64

	// BeforeSend is passed to the Sentry client. Tests use it to observe events.
	BeforeSend func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event
}

// Reporter captures failures on its own hub. The zero value is disabled.
type Reporter struct {
	hub *sentry.Hub
}

// New creates a Reporter. An empty DSN yields a disabled reporter.
func New(cfg Config) (*Reporter, error) {
	if cfg.DSN == "" {
		return &Reporter{}, nil
	}

	rate := cfg.SampleRate
	if rate <= 0 || rate > 1 {
		rate = 1
	}

	//nolint:exhaustruct // other fields are optional
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		SampleRate:  rate,
		BeforeSend:  beforeSend(cfg.BeforeSend),
	})
	if err != nil {
		return nil, fmt.Errorf("create sentry client: %w", err)
	}

	return &Reporter{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

// beforeSend scrubs every event before next sees it.
func beforeSend(next func(*sentry.Event, *sentry.EventHint) *sentry.Event) func(*sentry.Event, *sentry.EventHint) *sentry.Event {
	return func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
		event = scrubEvent(event)
		if next == nil {
			return event
		}
		return next(event, hint)
	}
}

// Enabled reports whether events are sent.
func (r *Reporter) Enabled() bool {
	return r != nil && r.hub != nil
}

// CaptureSourceFailure reports a source that yielded nothing because of err.
func (r *Reporter) CaptureSourceFailure(source string, err error) {
	r.capture(err, map[string]string{"source": source})
}

// CaptureDeliveryFailure reports a batch that could not be delivered.
func (r *Reporter) CaptureDeliveryFailure(pipeline, batch string, err error) {
	r.capture(err, map[string]string{"pipeline": pipeline, "batch": batch})
}

func (r *Reporter) capture(err error, tags map[string]string) {
	if !r.Enabled() || err == nil {
		return
	}
	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		r.hub.CaptureException(err)
	})
}

// Flush waits up to timeout for queued events to be sent.
func (r *Reporter) Flush(timeout time.Duration) bool {
	if !r.Enabled() {
		return true
	}
	return r.hub.Flush(timeout)
}
