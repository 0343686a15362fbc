package river

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riverqueue/river"

	"github.com/propstead/propstead/internal/domain"
)

// Compile-time check: Publisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*Publisher)(nil)

// EventJobArgs carries a lifecycle event into the job queue. River
// serializes this as JSON into its job table. It includes a snapshot of
// the event payload at publish time, so the worker never needs to query
// the audit log.
type EventJobArgs struct {
	EventID  string         `json:"event_id"`
	EntityID string         `json:"entity_id"`
	Domain   string         `json:"domain"`
	Type     string         `json:"type"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (EventJobArgs) Kind() string { return "lifecycle.event" }

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Publisher implements domain.EventPublisher by enqueuing River jobs.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher backed by the given River client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// Publish enqueues a lifecycle event as an async job in River.
func (p *Publisher) Publish(ctx context.Context, record domain.EventRecord) error {
	_, err := p.client.Insert(ctx, EventJobArgs{
		EventID:  record.ID,
		EntityID: record.EntityID,
		Domain:   string(record.Domain),
		Type:     record.Type,
		Payload:  record.Payload,
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing event job: %w", err)
	}
	return nil
}
