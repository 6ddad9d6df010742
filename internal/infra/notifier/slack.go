package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"politikk-moter/internal/observability/logging"
	"politikk-moter/internal/resilience/circuitbreaker"
)

const (
	// DefaultUsername and DefaultIconEmoji brand every message.
	DefaultUsername  = "Politikk-bot"
	DefaultIconEmoji = ":classical_building:"

	// Slack truncates text beyond this many characters.
	maxTextLength = 40000

	defaultRetryAfter = 5 * time.Second
)

// SlackConfig contains configuration for Slack webhook delivery.
type SlackConfig struct {
	// Timeout is the HTTP request timeout for one webhook call.
	Timeout time.Duration

	Username  string
	IconEmoji string

	// MaxAttempts and BaseDelay drive retries of 5xx and network errors.
	MaxAttempts int
	BaseDelay   time.Duration

	// MaxRetryAfter caps the wait requested by a 429.
	MaxRetryAfter time.Duration

	// SkipWebhookValidation accepts any URL. Only tests set it.
	SkipWebhookValidation bool
}

// DefaultSlackConfig returns the production delivery settings.
func DefaultSlackConfig() SlackConfig {
	return SlackConfig{
		Timeout:       10 * time.Second,
		Username:      DefaultUsername,
		IconEmoji:     DefaultIconEmoji,
		MaxAttempts:   2,
		BaseDelay:     5 * time.Second,
		MaxRetryAfter: 30 * time.Second,
	}
}

// SlackNotifier posts messages to Slack Incoming Webhooks.
type SlackNotifier struct {
	config      SlackConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter
	breaker     *circuitbreaker.CircuitBreaker
}

// NewSlackNotifier creates a SlackNotifier.
//
// The notifier is initialized with:
//   - HTTP client with configured timeout
//   - Rate limiter set to 1 request/second with burst of 1 per webhook
//     (Slack Webhook limit: 1 message per second)
//   - Circuit breaker shared by all webhooks
func NewSlackNotifier(config SlackConfig) *SlackNotifier {
	defaults := DefaultSlackConfig()
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.Username == "" {
		config.Username = defaults.Username
	}
	if config.IconEmoji == "" {
		config.IconEmoji = defaults.IconEmoji
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = defaults.BaseDelay
	}
	if config.MaxRetryAfter <= 0 {
		config.MaxRetryAfter = defaults.MaxRetryAfter
	}
	return &SlackNotifier{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimiter: NewRateLimiter(1.0, 1),
		breaker:     circuitbreaker.New(circuitbreaker.DeliveryConfig()),
	}
}

var _ Notifier = (*SlackNotifier)(nil)

// SlackWebhookPayload is the JSON body posted to the webhook.
type SlackWebhookPayload struct {
	Text      string `json:"text"`
	Username  string `json:"username"`
	IconEmoji string `json:"icon_emoji"`
}

func (s *SlackNotifier) buildPayload(text string) SlackWebhookPayload {
	return SlackWebhookPayload{
		Text:      truncateMessage(text, maxTextLength, "…"),
		Username:  s.config.Username,
		IconEmoji: s.config.IconEmoji,
	}
}

// sendWebhookRequest performs one POST.
//
// Error types:
//   - 429: RateLimitError with the Retry-After wait
//   - 4xx (non-429): ClientError, not retried
//   - 5xx: ServerError, retried
//   - Network error: retried
func (s *SlackNotifier) sendWebhookRequest(ctx context.Context, payload SlackWebhookPayload, webhookURL string) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{
			Message:    "Slack rate limit exceeded",
			RetryAfter: s.retryAfter(resp),
		}
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return &ClientError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Slack webhook client error %d: %s", resp.StatusCode, string(body)),
		}
	}

	if resp.StatusCode >= 500 {
		return &ServerError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Slack webhook server error %d: %s", resp.StatusCode, string(body)),
		}
	}

	return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
}

// retryAfter reads the Retry-After header in seconds, capped at
// MaxRetryAfter.
func (s *SlackNotifier) retryAfter(resp *http.Response) time.Duration {
	wait := defaultRetryAfter
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil && seconds >= 0 {
			wait = time.Duration(seconds) * time.Second
		}
	}
	if wait > s.config.MaxRetryAfter {
		wait = s.config.MaxRetryAfter
	}
	return wait
}

// sendWithRetry sends the payload with retry logic.
//
// Retry strategy:
//   - Max attempts: MaxAttempts (2)
//   - 429 errors: sleep for Retry-After, then try again
//   - Server errors (5xx) and network errors: linear backoff from BaseDelay
//   - Client errors (4xx): no retry
func (s *SlackNotifier) sendWithRetry(ctx context.Context, payload SlackWebhookPayload, webhookURL string) error {
	logger := logging.FromContext(ctx)
	requestID, _ := ctx.Value(requestIDKey).(string)
	maxAttempts := s.config.MaxAttempts

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		_, err := s.breaker.Execute(func() (interface{}, error) {
			return nil, s.sendWebhookRequest(ctx, payload, webhookURL)
		})
		if err == nil {
			logger.Info("Slack delivery successful",
				slog.String("request_id", requestID),
				slog.String("webhook", MaskWebhook(webhookURL)),
				slog.Int("attempt", attempt))
			return nil
		}
		lastErr = err

		if rateLimitErr, ok := is429Error(err); ok {
			if attempt == maxAttempts {
				break
			}
			logger.Warn("Slack rate limit hit, backing off",
				slog.String("request_id", requestID),
				slog.Duration("retry_after", rateLimitErr.RetryAfter),
				slog.Int("attempt", attempt))
			select {
			case <-time.After(rateLimitErr.RetryAfter):
				continue
			case <-ctx.Done():
				return fmt.Errorf("context canceled during rate limit backoff: %w", ctx.Err())
			}
		}

		if !isRetryableError(err) {
			logger.Error("Slack delivery failed with non-retryable error",
				slog.String("request_id", requestID),
				slog.Any("error", err),
				slog.Int("attempt", attempt))
			return err
		}

		if attempt < maxAttempts {
			delay := s.config.BaseDelay * time.Duration(attempt)
			logger.Warn("Slack webhook request failed, retrying",
				slog.String("request_id", requestID),
				slog.Any("error", err),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("context canceled during retry backoff: %w", ctx.Err())
			}
		}
	}

	logger.Error("Slack delivery failed after all retries",
		slog.String("request_id", requestID),
		slog.Any("error", lastErr),
		slog.Int("max_attempts", maxAttempts))

	return fmt.Errorf("slack delivery failed after %d attempts: %w", maxAttempts, lastErr)
}

// Deliver posts text to the webhook. It validates the URL, waits for the
// webhook's rate limit and retries transient failures.
func (s *SlackNotifier) Deliver(ctx context.Context, text, webhookURL string) error {
	if !s.config.SkipWebhookValidation {
		if err := ValidateWebhookURL(webhookURL); err != nil {
			return err
		}
	}

	requestID := uuid.New().String()
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	logger := logging.FromContext(ctx)

	logger.Info("Starting Slack delivery",
		slog.String("request_id", requestID),
		slog.String("webhook", MaskWebhook(webhookURL)),
		slog.Int("length", len(text)))

	if err := s.rateLimiter.Wait(ctx, webhookURL); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	return s.sendWithRetry(ctx, s.buildPayload(text), webhookURL)
}
