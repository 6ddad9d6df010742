package notifier

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"politikk-moter/internal/observability/logging"
)

// DryRunNotifier logs the message it would have sent and reports success.
// When Out is set the message is also written there between rulers.
type DryRunNotifier struct {
	Out io.Writer

	mu   sync.Mutex
	sent []string
}

// NewDryRunNotifier creates a DryRunNotifier writing to out (may be nil).
func NewDryRunNotifier(out io.Writer) *DryRunNotifier {
	return &DryRunNotifier{Out: out}
}

var _ Notifier = (*DryRunNotifier)(nil)

// Deliver implements Notifier without any network traffic.
func (n *DryRunNotifier) Deliver(ctx context.Context, text, webhookURL string) error {
	logging.FromContext(ctx).Info("dry run, message not sent",
		slog.String("webhook", MaskWebhook(webhookURL)),
		slog.Int("length", len(text)))

	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, text)
	if n.Out != nil {
		ruler := strings.Repeat("=", 40)
		if _, err := fmt.Fprintf(n.Out, "%s\n%s\n%s\n", ruler, text, ruler); err != nil {
			return fmt.Errorf("write dry run output: %w", err)
		}
	}
	return nil
}

// Sent returns the messages seen so far.
func (n *DryRunNotifier) Sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.sent...)
}
