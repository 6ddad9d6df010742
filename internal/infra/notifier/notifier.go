// Package notifier posts formatted meeting reports to chat webhooks.
package notifier

import "context"

// Notifier delivers one message to the channel identified by webhookURL.
type Notifier interface {
	Deliver(ctx context.Context, text, webhookURL string) error
}
