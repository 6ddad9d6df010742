// Package fetcher implements the direct page transport used by extraction:
// HTTP GET with SSRF checks, size limits, per-host pacing, retry and a
// circuit breaker.
package fetcher

import "errors"

var (
	// ErrInvalidURL is returned for malformed or non-http(s) URLs.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrPrivateIP is returned when a host resolves to a private address.
	ErrPrivateIP = errors.New("URL resolves to private IP address")

	// ErrTooManyRedirects is returned when a redirect chain exceeds MaxRedirects.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrBodyTooLarge is returned when a response exceeds MaxBodySize.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrTimeout is returned when a single request exceeds Config.Timeout.
	ErrTimeout = errors.New("request timeout")
)
