package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"politikk-moter/internal/observability/logging"
)

// Message is one formatted batch bound for a channel.
type Message struct {
	Pipeline   string
	Batch      string
	ChannelEnv string
	Text       string
}

// Service resolves channels and delivers messages.
type Service struct {
	deliverer Deliverer
	lookup    ChannelLookup
}

// NewService creates a Service. A nil lookup reads the environment.
func NewService(deliverer Deliverer, lookup ChannelLookup) *Service {
	if lookup == nil {
		lookup = EnvLookup
	}
	return &Service{deliverer: deliverer, lookup: lookup}
}

// Resolve reports whether the channel env of a message is set.
func (s *Service) Resolve(channelEnv string) (string, bool) {
	return s.lookup(channelEnv)
}

// Send delivers msg synchronously.
//
// Returns:
//   - nil: delivered (or accepted by a dry-run deliverer)
//   - ErrChannelNotConfigured: channel env unset; nothing was attempted
//   - ErrEmptyMessage: blank text
//   - ErrDeliveryFailed: wrapping the collaborator's error
func (s *Service) Send(ctx context.Context, msg Message) error {
	requestID := uuid.New().String()
	logger := logging.FromContext(ctx).With(
		slog.String("request_id", requestID),
		slog.String("pipeline", msg.Pipeline),
		slog.String("batch", msg.Batch),
		slog.String("channel", msg.ChannelEnv),
	)

	if strings.TrimSpace(msg.Text) == "" {
		RecordDropped(msg.ChannelEnv, "empty")
		return ErrEmptyMessage
	}

	ref, ok := s.lookup(msg.ChannelEnv)
	if !ok {
		RecordDropped(msg.ChannelEnv, "not_configured")
		logger.Info("channel environment variable not set, skipping delivery")
		return fmt.Errorf("%w: %s", ErrChannelNotConfigured, msg.ChannelEnv)
	}

	start := time.Now()
	RecordDispatch(msg.ChannelEnv)
	err := s.deliverer.Deliver(logging.WithLogger(ctx, logger), msg.Text, ref)
	duration := time.Since(start)

	if err != nil {
		RecordFailure(msg.ChannelEnv, duration)
		logger.Warn("delivery failed",
			slog.Duration("send_duration", duration),
			slog.Any("error", err))
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	RecordSuccess(msg.ChannelEnv, duration)
	logger.Info("batch delivered", slog.Duration("send_duration", duration))
	return nil
}
