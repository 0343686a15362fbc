package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/propstead/propstead/internal/domain"
)

// SweepOverdue scans for entities whose SLA deadline has passed, flags
// each one once, and emits one overdue event per flagged entity. A single
// bad record never halts the sweep: failures are logged and skipped.
// Flagging is a compare-and-set, so a concurrent sweep or transition
// makes the second writer a no-op.
func (s *LifecycleService) SweepOverdue(ctx context.Context) (int, error) {
	now := s.now().UTC()

	candidates, err := s.repo.ListOverdue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("listing overdue entities: %w", err)
	}

	count := 0
	for _, e := range candidates {
		if s.sla.Exempt(e.Domain, e.State) {
			continue
		}

		flagged, err := s.repo.MarkOverdue(ctx, e.Domain, e.ID)
		if err != nil {
			slog.WarnContext(ctx, "flagging overdue entity",
				"domain", e.Domain, "entity_id", e.ID, "error", err)
			continue
		}
		if !flagged {
			continue
		}

		s.record(ctx, e, domain.OverdueEventType(e.Domain), map[string]any{
			"state":        string(e.State),
			"sla_deadline": e.SLADeadline,
		})
		count++
	}

	return count, nil
}
