package notifier

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// RateLimitError is a 429 answer from the webhook.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (retry after %v)", e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded (retry after %v)", e.RetryAfter)
}

// ClientError is a 4xx answer other than 429. It is never retried.
type ClientError struct {
	StatusCode int
	Message    string
}

func (e *ClientError) Error() string {
	return e.Message
}

// Retryable implements the classification read by retry.IsRetryable.
func (e *ClientError) Retryable() bool { return false }

// ServerError is a 5xx answer.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return e.Message
}

// Retryable implements the classification read by retry.IsRetryable.
func (e *ServerError) Retryable() bool { return true }

// ErrInvalidWebhook is returned for webhook URLs outside the Slack hook
// namespace.
var ErrInvalidWebhook = errors.New("invalid webhook url")

func is429Error(err error) (*RateLimitError, bool) {
	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return rateLimitErr, true
	}
	return nil, false
}

func isRetryableError(err error) bool {
	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		return true
	}

	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return false
	}

	if errors.Is(err, ErrInvalidWebhook) {
		return false
	}

	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return false // handled by is429Error
	}

	return true
}

// ValidateWebhookURL accepts https://hooks.slack.com/services/... only.
func ValidateWebhookURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}
	if u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be https", ErrInvalidWebhook)
	}
	if !strings.EqualFold(u.Hostname(), "hooks.slack.com") {
		return fmt.Errorf("%w: unexpected host %q", ErrInvalidWebhook, u.Hostname())
	}
	if !strings.HasPrefix(u.Path, "/services/") {
		return fmt.Errorf("%w: path must start with /services/", ErrInvalidWebhook)
	}
	return nil
}

// MaskWebhook keeps scheme, host and the first path segment after
// /services/ so logs never carry the token.
func MaskWebhook(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	masked := u.Scheme + "://" + u.Host
	if len(parts) > 0 && parts[0] != "" {
		masked += "/" + parts[0]
	}
	if len(parts) > 1 {
		masked += "/" + parts[1] + "/***"
	}
	return masked
}

// truncateMessage cuts text to maxRunes, appending suffix.
func truncateMessage(text string, maxRunes int, suffix string) string {
	r := []rune(text)
	if len(r) <= maxRunes {
		return text
	}
	cut := maxRunes - len([]rune(suffix))
	if cut < 0 {
		cut = 0
	}
	return string(r[:cut]) + suffix
}
