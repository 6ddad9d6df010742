package extract

import (
	"context"
	"time"

	"politikk-moter/internal/domain/entity"
)

// Page is a fetched or rendered document handed to a Parser.
type Page struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte

	// Store is the structured client-side cache captured by the renderer, if any.
	Store map[string]any
}

// FetchOptions are the transport options carried per request.
type FetchOptions struct {
	Timeout   time.Duration
	UserAgent string
}

// Fetcher retrieves a document over HTTP.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts FetchOptions) (*Page, error)
}

// RenderRequest describes one script-rendering job.
type RenderRequest struct {
	URL             string
	Settle          time.Duration
	WaitSelector    string
	SelectorTimeout time.Duration
	CaptureStore    bool
}

// RenderResult is the final DOM, and optionally the captured store.
type RenderResult struct {
	URL   string
	HTML  string
	Store map[string]any
}

// Renderer runs client-side scripts for a page and returns the result.
type Renderer interface {
	Render(ctx context.Context, req RenderRequest) (*RenderResult, error)
}

// CalendarReader lists upcoming events of a calendar source. Records carry
// the provenance tag "calendar:<sourceID>".
type CalendarReader interface {
	ListEvents(ctx context.Context, sourceID string, daysAhead int) ([]entity.Meeting, error)
}

// Parser turns one page of one source into candidate meetings.
// A page that yields nothing is not an error.
type Parser interface {
	Parse(ctx context.Context, page Page, src entity.SourceConfig) ([]entity.Meeting, error)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(ctx context.Context, page Page, src entity.SourceConfig) ([]entity.Meeting, error)

// Parse calls f.
func (f ParserFunc) Parse(ctx context.Context, page Page, src entity.SourceConfig) ([]entity.Meeting, error) {
	return f(ctx, page, src)
}

// FailureReporter receives source failures for out-of-band reporting.
type FailureReporter interface {
	CaptureSourceFailure(source string, err error)
}
