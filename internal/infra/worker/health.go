package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthServer serves liveness, readiness and Prometheus metrics.
//
// Endpoints:
//   - GET /health  always 200
//   - GET /ready   200 once the scheduler is running, else 503
//   - GET /metrics Prometheus exposition
type HealthServer struct {
	addr    string
	logger  *slog.Logger
	isReady atomic.Bool
	lastRun atomic.Int64
	handler http.Handler
}

type healthResponse struct {
	Status  string `json:"status"`
	LastRun string `json:"last_run,omitempty"`
}

// NewHealthServer creates a HealthServer that starts not ready.
func NewHealthServer(addr string, logger *slog.Logger) *HealthServer {
	h := &HealthServer{addr: addr, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleLiveness)
	mux.HandleFunc("/ready", h.handleReadiness)
	mux.Handle("/metrics", promhttp.Handler())
	h.handler = mux
	return h
}

// Handler returns the server's routes.
func (h *HealthServer) Handler() http.Handler {
	return h.handler
}

// Start serves until ctx is cancelled, then shuts down within 5 seconds.
// It returns nil after a clean shutdown.
func (h *HealthServer) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         h.addr,
		Handler:      h.handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		h.logger.Info("health server starting", slog.String("addr", h.addr))
		errChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		h.logger.Info("health server shutting down")
		if err := server.Shutdown(shutdownCtx); err != nil {
			h.logger.Error("health server shutdown failed", slog.Any("error", err))
			return err
		}
		h.logger.Info("health server stopped")
		return nil

	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		h.logger.Error("health server failed", slog.Any("error", err))
		return err
	}
}

// SetReady flips readiness.
func (h *HealthServer) SetReady(ready bool) {
	h.isReady.Store(ready)
	h.logger.Info("health server readiness changed", slog.Bool("ready", ready))
}

// MarkRun records the completion time of a run, shown by /ready.
func (h *HealthServer) MarkRun(t time.Time) {
	h.lastRun.Store(t.Unix())
}

func (h *HealthServer) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	h.write(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (h *HealthServer) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ok"}
	if ts := h.lastRun.Load(); ts > 0 {
		resp.LastRun = time.Unix(ts, 0).UTC().Format(time.RFC3339)
	}

	if !h.isReady.Load() {
		resp.Status = "not ready"
		h.write(w, http.StatusServiceUnavailable, resp)
		return
	}
	h.write(w, http.StatusOK, resp)
}

func (h *HealthServer) write(w http.ResponseWriter, status int, resp healthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode health response", slog.Any("error", err))
	}
}
