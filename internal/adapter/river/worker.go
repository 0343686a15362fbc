package river

import (
	"context"
	"log/slog"
	"sync"

	"github.com/riverqueue/river"
)

// EventWorker processes lifecycle event jobs from the River queue.
// For now it logs the event; future versions will dispatch to
// webhooks, the communications service, or AI triggers.
type EventWorker struct {
	river.WorkerDefaults[EventJobArgs]
}

// Work processes a single event job.
func (w *EventWorker) Work(ctx context.Context, job *river.Job[EventJobArgs]) error {
	slog.InfoContext(ctx, "processing lifecycle event",
		"type", job.Args.Type,
		"domain", job.Args.Domain,
		"entity_id", job.Args.EntityID,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	return nil
}

// NotificationWorker delivers outbound notifications. It logs the
// delivery; the provider integration slots in here.
type NotificationWorker struct {
	river.WorkerDefaults[NotificationJobArgs]
}

// Work delivers a single notification.
func (w *NotificationWorker) Work(ctx context.Context, job *river.Job[NotificationJobArgs]) error {
	slog.InfoContext(ctx, "delivering notification",
		"recipient", job.Args.Recipient,
		"template", job.Args.Template,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	return nil
}

// Sweeper is the slice of the application service the sweep job needs.
type Sweeper interface {
	SweepOverdue(ctx context.Context) (int, error)
}

// SweepHandle late-binds the sweeper. The River client must exist before
// the application service (the service publishes through it), so the
// sweep worker is registered first and pointed at the service afterwards.
type SweepHandle struct {
	mu      sync.RWMutex
	sweeper Sweeper
}

// Set installs the sweeper. Call once during startup wiring.
func (h *SweepHandle) Set(s Sweeper) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sweeper = s
}

func (h *SweepHandle) get() Sweeper {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sweeper
}

// SweepArgs triggers an SLA sweep over all entities.
type SweepArgs struct{}

// Kind returns the unique job type identifier used by River's job routing.
func (SweepArgs) Kind() string { return "sla.sweep" }

// SweepWorker runs the overdue sweep on a schedule.
type SweepWorker struct {
	river.WorkerDefaults[SweepArgs]

	handle *SweepHandle
}

// Work runs a single sweep pass.
func (w *SweepWorker) Work(ctx context.Context, job *river.Job[SweepArgs]) error {
	sweeper := w.handle.get()
	if sweeper == nil {
		slog.WarnContext(ctx, "sweep requested before service wiring completed", "job_id", job.ID)
		return nil
	}

	count, err := sweeper.SweepOverdue(ctx)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "sla sweep completed",
		"flagged", count,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	return nil
}
