package domain

import (
	"context"
	"time"
)

// EntityRepository defines the persistence contract for lifecycle
// entities. UpdateState and MarkOverdue are compare-and-set operations so
// a lost race surfaces as a conflict instead of a silent overwrite.
type EntityRepository interface {
	Create(ctx context.Context, e Entity) error
	GetByID(ctx context.Context, d Domain, id string) (Entity, error)
	List(ctx context.Context, filter ListFilter) ([]Entity, error)
	UpdateAttrs(ctx context.Context, d Domain, id string, attrs map[string]string) (Entity, error)
	UpdateState(ctx context.Context, e Entity, expected State) error
	ListOverdue(ctx context.Context, now time.Time) ([]Entity, error)
	MarkOverdue(ctx context.Context, d Domain, id string) (bool, error)
}

// ListFilter holds optional criteria for listing entities.
type ListFilter struct {
	Domain  *Domain
	State   *State
	Overdue *bool
	Limit   int
	Offset  int
}

// EventLog is the append-only audit record of every transition and
// overdue detection.
type EventLog interface {
	Append(ctx context.Context, record EventRecord) error
	ListByEntity(ctx context.Context, d Domain, entityID string) ([]EventRecord, error)
}

// EventPublisher fans events out to downstream consumers (communications,
// AI triggers). Publishing is best-effort; the audit log is the source of
// truth.
type EventPublisher interface {
	Publish(ctx context.Context, record EventRecord) error
}

// TransitionValidator checks a requested state change against the
// transition table.
type TransitionValidator interface {
	Apply(ctx context.Context, d Domain, current, requested State) error
}

// Task is a follow-up work item created by side-effect actions.
type Task struct {
	ID        string
	EntityID  string
	Domain    Domain
	Title     string
	Status    string
	DueAt     time.Time
	CreatedAt time.Time
}

// Task statuses.
const (
	TaskStatusOpen      = "open"
	TaskStatusDone      = "done"
	TaskStatusCancelled = "cancelled"
)

// TaskService is the narrow collaborator contract for follow-up tasks.
type TaskService interface {
	CreateFollowUp(ctx context.Context, e Entity, title string, dueIn time.Duration) error
	HasOpenTask(ctx context.Context, d Domain, entityID, title string) (bool, error)
	CancelOpen(ctx context.Context, d Domain, entityID string) (int, error)
	ListByEntity(ctx context.Context, d Domain, entityID string) ([]Task, error)
}

// DocumentService generates documents from templates. The engine treats
// the returned reference opaquely.
type DocumentService interface {
	Generate(ctx context.Context, e Entity, template string) (string, error)
	Exists(ctx context.Context, d Domain, entityID, template string) (bool, error)
}

// Notifier requests delivery of an outbound notification. Delivery is
// asynchronous; the engine does not retry on the provider's behalf.
type Notifier interface {
	Send(ctx context.Context, recipient, template string, context map[string]string) error
}
