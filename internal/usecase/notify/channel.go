// Package notify resolves delivery channels and hands formatted reports to
// the message-delivery collaborator.
package notify

import (
	"context"
	"os"
	"strings"
)

// Deliverer sends one formatted message to a resolved channel reference
// (a webhook URL).
//
// Implementations must:
//   - Respect context cancellation/timeout
//   - Apply their own rate limiting and retries
//   - Keep channel secrets out of error messages
type Deliverer interface {
	Deliver(ctx context.Context, text, channelRef string) error
}

// DelivererFunc adapts a function to Deliverer.
type DelivererFunc func(ctx context.Context, text, channelRef string) error

// Deliver calls f.
func (f DelivererFunc) Deliver(ctx context.Context, text, channelRef string) error {
	return f(ctx, text, channelRef)
}

// ChannelLookup resolves a channel environment variable to its value.
type ChannelLookup func(env string) (string, bool)

// EnvLookup reads channels from the process environment. Blank values count
// as unset.
func EnvLookup(env string) (string, bool) {
	v, ok := os.LookupEnv(env)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// MapLookup resolves channels from a fixed map.
func MapLookup(m map[string]string) ChannelLookup {
	return func(env string) (string, bool) {
		v, ok := m[env]
		if !ok || strings.TrimSpace(v) == "" {
			return "", false
		}
		return v, true
	}
}
