package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"politikk-moter/internal/resilience/retry"
)

func testNotifier() *SlackNotifier {
	return NewSlackNotifier(SlackConfig{
		Timeout:               2 * time.Second,
		BaseDelay:             time.Millisecond,
		SkipWebhookValidation: true,
	})
}

func TestSlackNotifier_Deliver_Payload(t *testing.T) {
	var got SlackWebhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	err := testNotifier().Deliver(context.Background(), "📅 *Politiske møter*", server.URL)

	require.NoError(t, err)
	assert.Equal(t, "📅 *Politiske møter*", got.Text)
	assert.Equal(t, "Politikk-bot", got.Username)
	assert.Equal(t, ":classical_building:", got.IconEmoji)
}

func TestSlackNotifier_Deliver_Retries(t *testing.T) {
	tests := []struct {
		name      string
		responses []int
		headers   map[string]string
		wantCalls int32
		wantErr   bool
		check     func(t *testing.T, err error)
	}{
		{
			name:      "server error then success",
			responses: []int{http.StatusInternalServerError, http.StatusOK},
			wantCalls: 2,
		},
		{
			name:      "rate limited then success",
			responses: []int{http.StatusTooManyRequests, http.StatusOK},
			headers:   map[string]string{"Retry-After": "0"},
			wantCalls: 2,
		},
		{
			name:      "client error is not retried",
			responses: []int{http.StatusBadRequest, http.StatusOK},
			wantCalls: 1,
			wantErr:   true,
			check: func(t *testing.T, err error) {
				var clientErr *ClientError
				require.ErrorAs(t, err, &clientErr)
				assert.Equal(t, http.StatusBadRequest, clientErr.StatusCode)
			},
		},
		{
			name:      "server errors exhaust attempts",
			responses: []int{http.StatusBadGateway, http.StatusBadGateway, http.StatusBadGateway},
			wantCalls: 2,
			wantErr:   true,
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "after 2 attempts")
				var serverErr *ServerError
				assert.ErrorAs(t, err, &serverErr)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := calls.Add(1)
				for k, v := range tt.headers {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.responses[n-1])
				_, _ = w.Write([]byte("invalid_payload"))
			}))
			defer server.Close()

			err := testNotifier().Deliver(context.Background(), "hei", server.URL)

			assert.Equal(t, tt.wantCalls, calls.Load())
			if tt.wantErr {
				require.Error(t, err)
				if tt.check != nil {
					tt.check(t, err)
				}
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestSlackNotifier_RetryAfterCapped(t *testing.T) {
	n := NewSlackNotifier(SlackConfig{MaxRetryAfter: 2 * time.Second})
	resp := &http.Response{Header: http.Header{"Retry-After": []string{"120"}}}
	assert.Equal(t, 2*time.Second, n.retryAfter(resp))

	resp.Header.Set("Retry-After", "soon")
	assert.Equal(t, 2*time.Second, n.retryAfter(resp), "default 5s is capped too")
}

func TestSlackNotifier_Deliver_ValidatesWebhook(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	n := NewSlackNotifier(SlackConfig{})
	err := n.Deliver(context.Background(), "hei", server.URL)

	assert.ErrorIs(t, err, ErrInvalidWebhook)
	assert.Zero(t, calls.Load())
}

func TestSlackNotifier_Deliver_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	n := NewSlackNotifier(SlackConfig{BaseDelay: time.Hour, SkipWebhookValidation: true})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := n.Deliver(ctx, "hei", server.URL)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestValidateWebhookURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{url: "https://hooks.slack.com/services/T000/B000/XXXX"},
		{url: "http://hooks.slack.com/services/T000/B000/XXXX", wantErr: true},
		{url: "https://evil.example.com/services/T000", wantErr: true},
		{url: "https://hooks.slack.com/workflows/T000", wantErr: true},
		{url: "://", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := ValidateWebhookURL(tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidWebhook)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMaskWebhook(t *testing.T) {
	assert.Equal(t, "https://hooks.slack.com/services/T000/***",
		MaskWebhook("https://hooks.slack.com/services/T000/B000/secret"))
	assert.Equal(t, "***", MaskWebhook("not a url"))
	assert.NotContains(t, MaskWebhook("https://hooks.slack.com/services/T/B/secret"), "secret")
}

func TestTruncateMessage(t *testing.T) {
	assert.Equal(t, "møte", truncateMessage("møte", 4, "…"))
	assert.Equal(t, "mø…", truncateMessage("møter", 3, "…"))
	assert.Equal(t, strings.Repeat("æ", 10), truncateMessage(strings.Repeat("æ", 10), 10, "…"))
}

func TestDeliveryErrors_Retryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"client error", &ClientError{StatusCode: http.StatusNotFound, Message: "no_service"}, false},
		{"server error", &ServerError{StatusCode: http.StatusBadGateway, Message: "bad gateway"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retry.IsRetryable(tt.err))
		})
	}
}
