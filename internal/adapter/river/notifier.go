package river

import (
	"context"
	"fmt"

	"github.com/propstead/propstead/internal/domain"
)

// Compile-time check: Notifier implements domain.Notifier.
var _ domain.Notifier = (*Notifier)(nil)

// NotificationJobArgs carries an outbound notification request. Delivery
// happens in a worker so a slow provider never blocks a transition.
type NotificationJobArgs struct {
	Recipient string            `json:"recipient"`
	Template  string            `json:"template"`
	Context   map[string]string `json:"context,omitempty"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (NotificationJobArgs) Kind() string { return "notification.send" }

// Notifier implements domain.Notifier by enqueuing delivery jobs.
type Notifier struct {
	client *Client
}

// NewNotifier creates a notifier backed by the given River client.
func NewNotifier(client *Client) *Notifier {
	return &Notifier{client: client}
}

// Send enqueues a notification for asynchronous delivery.
func (n *Notifier) Send(ctx context.Context, recipient, template string, tmplCtx map[string]string) error {
	_, err := n.client.Insert(ctx, NotificationJobArgs{
		Recipient: recipient,
		Template:  template,
		Context:   tmplCtx,
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing notification job: %w", err)
	}
	return nil
}
