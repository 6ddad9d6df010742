// Package renderer talks to the headless-browser rendering service used for
// script-driven meeting portals.
package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"politikk-moter/internal/observability/logging"
	"politikk-moter/internal/observability/metrics"
	"politikk-moter/internal/resilience/circuitbreaker"
	"politikk-moter/internal/resilience/retry"
	"politikk-moter/internal/usecase/extract"
)

// ServiceURLEnv names the rendering service endpoint.
const ServiceURLEnv = "RENDER_SERVICE_URL"

// requestSlack is added to the settle and selector waits to get the HTTP
// timeout of one render.
const requestSlack = 30 * time.Second

// maxResponseSize bounds a rendered document.
const maxResponseSize = 20 << 20

// ErrNotConfigured is returned by NewFromEnv when RENDER_SERVICE_URL is unset.
var ErrNotConfigured = errors.New("render service url not configured")

// RemoteRenderer implements extract.Renderer over HTTP.
type RemoteRenderer struct {
	endpoint    string
	client      *http.Client
	breaker     *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

var _ extract.Renderer = (*RemoteRenderer)(nil)

// New creates a RemoteRenderer posting to endpoint.
func New(endpoint string) *RemoteRenderer {
	return &RemoteRenderer{
		endpoint:    strings.TrimSpace(endpoint),
		client:      &http.Client{},
		breaker:     circuitbreaker.New(circuitbreaker.RendererConfig()),
		retryConfig: retry.RendererConfig(),
	}
}

// NewFromEnv reads RENDER_SERVICE_URL.
func NewFromEnv() (*RemoteRenderer, error) {
	endpoint := strings.TrimSpace(os.Getenv(ServiceURLEnv))
	if endpoint == "" {
		return nil, ErrNotConfigured
	}
	return New(endpoint), nil
}

type renderRequest struct {
	URL               string `json:"url"`
	SettleMS          int64  `json:"settle_ms"`
	WaitSelector      string `json:"wait_selector,omitempty"`
	SelectorTimeoutMS int64  `json:"selector_timeout_ms,omitempty"`
	CaptureStore      bool   `json:"capture_store,omitempty"`
}

type renderResponse struct {
	URL   string         `json:"url"`
	HTML  string         `json:"html"`
	Store map[string]any `json:"store"`
}

// Timeout is the HTTP timeout for req.
func Timeout(req extract.RenderRequest) time.Duration {
	return req.Settle + req.SelectorTimeout + requestSlack
}

// Render implements extract.Renderer.
func (r *RemoteRenderer) Render(ctx context.Context, req extract.RenderRequest) (*extract.RenderResult, error) {
	start := time.Now()
	logger := logging.FromContext(ctx)

	body, err := json.Marshal(renderRequest{
		URL:               req.URL,
		SettleMS:          req.Settle.Milliseconds(),
		WaitSelector:      req.WaitSelector,
		SelectorTimeoutMS: req.SelectorTimeout.Milliseconds(),
		CaptureStore:      req.CaptureStore,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal render request: %w", err)
	}

	var out *extract.RenderResult
	err = retry.WithBackoff(ctx, r.retryConfig, func() error {
		res, err := circuitbreaker.Do(r.breaker, func() (*extract.RenderResult, error) {
			return r.renderOnce(ctx, body, Timeout(req))
		})
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	metrics.RecordOperationDuration("render", time.Since(start))
	if err != nil {
		logger.Warn("render failed",
			slog.String("url", req.URL),
			slog.Any("error", err))
		return nil, err
	}
	if out.URL == "" {
		out.URL = req.URL
	}
	logger.Debug("page rendered",
		slog.String("url", req.URL),
		slog.Int("html_bytes", len(out.HTML)),
		slog.Bool("store", out.Store != nil),
		slog.Duration("duration", time.Since(start)))
	return out, nil
}

func (r *RemoteRenderer) renderOnce(ctx context.Context, body []byte, timeout time.Duration) (*extract.RenderResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create render request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("render request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	var decoded renderResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode render response: %w", err)
	}
	return &extract.RenderResult{
		URL:   decoded.URL,
		HTML:  decoded.HTML,
		Store: decoded.Store,
	}, nil
}
