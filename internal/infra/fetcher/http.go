package fetcher

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"politikk-moter/internal/observability/logging"
	"politikk-moter/internal/observability/metrics"
	"politikk-moter/internal/resilience/circuitbreaker"
	"politikk-moter/internal/resilience/retry"
	"politikk-moter/internal/usecase/extract"
)

// HTTPFetcher is the direct page transport. Every host gets its own circuit
// breaker and token bucket, so one failing portal does not block the others.
//
// Thread safety: HTTPFetcher is safe for concurrent use.
type HTTPFetcher struct {
	client      *http.Client
	retryConfig retry.Config
	config      Config

	mu    sync.Mutex
	hosts map[string]*hostState
}

type hostState struct {
	breaker *circuitbreaker.CircuitBreaker
	limiter *rate.Limiter
}

var _ extract.Fetcher = (*HTTPFetcher)(nil)

// New creates an HTTPFetcher.
//
// The fetcher is configured with:
//   - HTTP client with TLS 1.2 minimum and pooled connections
//   - Redirect limit, with every target validated against the same SSRF rules
//     as the original URL
//   - Lazily created per-host circuit breaker and rate limiter
//   - PageFetch retry profile (Retry-After is honored)
//
// Parameters:
//   - config: timeouts, body and redirect limits, SSRF and politeness settings
//
// Returns:
//   - *HTTPFetcher: ready for concurrent use
//
// Example:
//
//	config, err := fetcher.LoadConfigFromEnv()
//	if err != nil {
//		return err
//	}
//	f := fetcher.New(config)
//	page, err := f.Fetch(ctx, "https://www.sauda.kommune.no/politikk/", extract.FetchOptions{})
func New(config Config) *HTTPFetcher {
	f := &HTTPFetcher{
		retryConfig: retry.PageFetchConfig(),
		config:      config,
		hosts:       make(map[string]*hostState),
	}

	f.client = &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        50,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= f.config.MaxRedirects {
				return fmt.Errorf("%w: %d redirects", ErrTooManyRedirects, len(via))
			}
			if err := validateURL(req.URL.String(), f.config.DenyPrivateIPs); err != nil {
				return fmt.Errorf("redirect target validation failed: %w", err)
			}
			return nil
		},
	}

	return f
}

// WithRetryConfig overrides the retry policy. Used by tests to avoid
// multi-second backoff.
func (f *HTTPFetcher) WithRetryConfig(cfg retry.Config) *HTTPFetcher {
	f.retryConfig = cfg
	return f
}

// Fetch performs a GET through the host's rate limiter and circuit breaker,
// retrying transient failures.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string, opts extract.FetchOptions) (*extract.Page, error) {
	if err := validateURL(rawURL, f.config.DenyPrivateIPs); err != nil {
		return nil, err
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	host := f.host(u.Hostname())
	start := time.Now()

	var page *extract.Page
	retryErr := retry.WithBackoff(ctx, f.retryConfig, func() error {
		if host.limiter != nil {
			if err := host.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limit wait: %w", err)
			}
		}

		result, err := circuitbreaker.Do(host.breaker, func() (*extract.Page, error) {
			return f.doFetch(ctx, rawURL, opts)
		})
		if err != nil {
			if circuitbreaker.IsOpenError(err) {
				logging.FromContext(ctx).Warn("page fetch circuit breaker open, request rejected",
					slog.String("service", "page-fetch"),
					slog.String("host", u.Hostname()),
					slog.String("state", host.breaker.State().String()))
			}
			return err
		}

		page = result
		return nil
	})

	metrics.RecordOperationDuration("page_fetch", time.Since(start))
	if retryErr != nil {
		return nil, retryErr
	}
	return page, nil
}

func (f *HTTPFetcher) doFetch(ctx context.Context, rawURL string, opts extract.FetchOptions) (*extract.Page, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = f.config.Timeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrInvalidURL, err)
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = f.config.UserAgent
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "nb-NO,nb;q=0.9,no;q=0.8,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: request exceeded %v", ErrTimeout, timeout)
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) && (errors.Is(urlErr.Err, ErrTooManyRedirects) || errors.Is(urlErr.Err, ErrPrivateIP) || errors.Is(urlErr.Err, ErrInvalidURL)) {
			return nil, urlErr.Err
		}
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unexpected status: %s", resp.Status),
			RetryAfter: retry.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > f.config.MaxBodySize {
		return nil, fmt.Errorf("%w: response exceeds limit %d bytes", ErrBodyTooLarge, f.config.MaxBodySize)
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &extract.Page{
		URL:         finalURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

func (f *HTTPFetcher) host(name string) *hostState {
	f.mu.Lock()
	defer f.mu.Unlock()

	if h, ok := f.hosts[name]; ok {
		return h
	}
	cfg := circuitbreaker.PageFetchConfig()
	cfg.Name = "page-fetch:" + name
	h := &hostState{breaker: circuitbreaker.New(cfg)}
	if f.config.RatePerHost > 0 {
		h.limiter = rate.NewLimiter(rate.Limit(f.config.RatePerHost), f.config.Burst)
	}
	f.hosts[name] = h
	return h
}
