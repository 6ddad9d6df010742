package renderer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"politikk-moter/internal/domain/entity"
	"politikk-moter/internal/resilience/retry"
	"politikk-moter/internal/usecase/extract"
)

func TestRemoteRenderer_Render(t *testing.T) {
	var got renderRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"html":  "<html><body>Formannskapet 14.10.2025</body></html>",
			"store": map[string]any{"Meeting:1": map[string]any{"__typename": "Meeting"}},
		})
	}))
	defer server.Close()

	src := entity.SourceConfig{Name: "Sandnes kommune", URL: "https://sandnes.kommune.no/moter", Type: entity.SourceTypeStore}
	out, err := New(server.URL).Render(context.Background(), extract.RenderProfile(src))
	require.NoError(t, err)

	assert.Equal(t, "https://sandnes.kommune.no/moter", got.URL)
	assert.Equal(t, int64(4000), got.SettleMS)
	assert.True(t, got.CaptureStore)
	assert.Contains(t, out.HTML, "Formannskapet")
	assert.Contains(t, out.Store, "Meeting:1")
	assert.Equal(t, src.URL, out.URL, "url defaults to the requested one")
}

func TestRemoteRenderer_ElementsProfile(t *testing.T) {
	var got renderRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{"html": "<html></html>"})
	}))
	defer server.Close()

	src := entity.SourceConfig{URL: "https://time.kommune.no/innsyn", Type: entity.SourceTypeElements}
	_, err := New(server.URL).Render(context.Background(), extract.RenderProfile(src))
	require.NoError(t, err)

	assert.Equal(t, "table, .meeting, .møte, .calendar", got.WaitSelector)
	assert.Equal(t, int64(8000), got.SelectorTimeoutMS)
	assert.False(t, got.CaptureStore)
}

func TestRemoteRenderer_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad url", http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := New(server.URL).Render(context.Background(), extract.RenderRequest{URL: "x"})

	var httpErr *retry.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTimeout(t *testing.T) {
	req := extract.RenderRequest{Settle: 4 * time.Second, SelectorTimeout: 8 * time.Second}
	assert.Equal(t, 42*time.Second, Timeout(req))
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv(ServiceURLEnv, "")
	_, err := NewFromEnv()
	assert.ErrorIs(t, err, ErrNotConfigured)

	t.Setenv(ServiceURLEnv, "http://renderer:3000/render")
	r, err := NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "http://renderer:3000/render", r.endpoint)
}
