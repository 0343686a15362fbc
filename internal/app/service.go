package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/propstead/propstead/internal/domain"
	"github.com/propstead/propstead/internal/sideeffect"
)

// DefaultSideEffectTimeout bounds each individual side-effect action.
const DefaultSideEffectTimeout = 30 * time.Second

// Config carries the lifecycle configuration, constructed once at process
// start and passed in explicitly.
type Config struct {
	Rules   *domain.RuleSet
	Guards  *domain.GuardSet
	SLA     *domain.SLAPolicy
	Effects *sideeffect.Registry

	// SideEffectTimeout bounds each action; zero means the default.
	SideEffectTimeout time.Duration

	// Now is the clock; nil means time.Now. Overridable for tests.
	Now func() time.Time
}

// LifecycleService orchestrates entity lifecycle transitions: transition
// table check, guards, state mutation, SLA deadline, side effects, audit
// event.
type LifecycleService struct {
	repo      domain.EntityRepository
	events    domain.EventLog
	publisher domain.EventPublisher
	validator domain.TransitionValidator
	tasks     domain.TaskService

	rules   *domain.RuleSet
	guards  *domain.GuardSet
	sla     *domain.SLAPolicy
	effects *sideeffect.Registry

	locks   *keyedMutex
	timeout time.Duration
	now     func() time.Time
}

// NewLifecycleService creates a service with the given adapters and
// configuration.
func NewLifecycleService(repo domain.EntityRepository, events domain.EventLog, publisher domain.EventPublisher, validator domain.TransitionValidator, tasks domain.TaskService, cfg Config) *LifecycleService {
	timeout := cfg.SideEffectTimeout
	if timeout == 0 {
		timeout = DefaultSideEffectTimeout
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &LifecycleService{
		repo:      repo,
		events:    events,
		publisher: publisher,
		validator: validator,
		tasks:     tasks,
		rules:     cfg.Rules,
		guards:    cfg.Guards,
		sla:       cfg.SLA,
		effects:   cfg.Effects,
		locks:     newKeyedMutex(),
		timeout:   timeout,
		now:       now,
	}
}

// Create persists a new entity in its domain's initial state with an
// initial SLA deadline, and records a creation event.
func (s *LifecycleService) Create(ctx context.Context, d domain.Domain, name string, attrs map[string]string) (domain.Entity, error) {
	id, err := generateID()
	if err != nil {
		return domain.Entity{}, fmt.Errorf("generating entity id: %w", err)
	}

	e := domain.NewEntity(id, d, name, attrs)
	e.SLADeadline = s.sla.Deadline(d, e.State, e.CreatedAt)

	if err := s.repo.Create(ctx, e); err != nil {
		return domain.Entity{}, fmt.Errorf("creating entity: %w", err)
	}

	s.record(ctx, e, domain.CreatedEventType(d), map[string]any{
		"state": string(e.State),
	})

	return e, nil
}

// GetByID returns an entity by domain and identifier.
func (s *LifecycleService) GetByID(ctx context.Context, d domain.Domain, id string) (domain.Entity, error) {
	return s.repo.GetByID(ctx, d, id)
}

// List returns entities matching the given filter.
func (s *LifecycleService) List(ctx context.Context, filter domain.ListFilter) ([]domain.Entity, error) {
	return s.repo.List(ctx, filter)
}

// UpdateAttrs merges domain attributes into the entity. Lifecycle fields
// are untouched; this is how guard inputs get recorded.
func (s *LifecycleService) UpdateAttrs(ctx context.Context, d domain.Domain, id string, attrs map[string]string) (domain.Entity, error) {
	return s.repo.UpdateAttrs(ctx, d, id, attrs)
}

// ValidTransitions returns the states reachable from the given state.
func (s *LifecycleService) ValidTransitions(d domain.Domain, from domain.State) []domain.State {
	return s.rules.ValidTargets(d, from)
}

// EventsFor returns the audit trail for an entity.
func (s *LifecycleService) EventsFor(ctx context.Context, d domain.Domain, id string) ([]domain.EventRecord, error) {
	return s.events.ListByEntity(ctx, d, id)
}

// TasksFor returns the follow-up tasks created for an entity.
func (s *LifecycleService) TasksFor(ctx context.Context, d domain.Domain, id string) ([]domain.Task, error) {
	return s.tasks.ListByEntity(ctx, d, id)
}

// Transition moves an entity to the requested state. The per-entity lock
// covers only load-validate-commit; side effects run after it is
// released so a slow collaborator cannot stall concurrent access to the
// entity. Side-effect failures are recorded but never fail the call.
func (s *LifecycleService) Transition(ctx context.Context, d domain.Domain, id string, requested domain.State, actor string) (domain.Entity, error) {
	unlock := s.locks.lock(string(d) + "/" + id)

	e, err := s.repo.GetByID(ctx, d, id)
	if err != nil {
		unlock()
		return domain.Entity{}, err
	}

	if err := s.validator.Apply(ctx, d, e.State, requested); err != nil {
		unlock()
		return domain.Entity{}, err
	}

	if err := s.guards.Evaluate(e, requested); err != nil {
		unlock()
		return domain.Entity{}, err
	}

	now := s.now().UTC()
	from := e.State
	e.PreviousState = from
	e.State = requested
	e.StateChangedAt = now
	e.SLADeadline = s.sla.Deadline(d, requested, now)
	e.SLAOverdue = false
	e.UpdatedAt = now

	if err := s.repo.UpdateState(ctx, e, from); err != nil {
		unlock()
		return domain.Entity{}, fmt.Errorf("updating entity state: %w", err)
	}
	unlock()

	results := s.effects.Run(ctx, e, from, requested, s.timeout)
	for _, res := range results {
		if res.Status != sideeffect.StatusOK {
			slog.WarnContext(ctx, "side effect failed",
				"domain", d, "entity_id", id,
				"action", res.Action, "status", res.Status, "error", res.Err,
			)
		}
	}

	payload := map[string]any{
		"from":  string(from),
		"to":    string(requested),
		"actor": actor,
	}
	if len(results) > 0 {
		payload["side_effects"] = results
	}
	s.record(ctx, e, domain.TransitionEventType(d, requested), payload)

	return e, nil
}

// record appends an audit event and fans it out to downstream consumers.
// The state change has already committed by the time this runs, so
// failures here are logged rather than surfaced as a transition failure.
func (s *LifecycleService) record(ctx context.Context, e domain.Entity, eventType string, payload map[string]any) {
	id, err := generateID()
	if err != nil {
		slog.ErrorContext(ctx, "generating event id", "error", err)
		return
	}

	rec := domain.EventRecord{
		ID:        id,
		EntityID:  e.ID,
		Domain:    e.Domain,
		Type:      eventType,
		Payload:   payload,
		CreatedAt: s.now().UTC(),
	}

	if err := s.events.Append(ctx, rec); err != nil {
		slog.ErrorContext(ctx, "appending audit event",
			"event_type", eventType, "entity_id", e.ID, "error", err)
	}
	if err := s.publisher.Publish(ctx, rec); err != nil {
		slog.WarnContext(ctx, "publishing event",
			"event_type", eventType, "entity_id", e.ID, "error", err)
	}
}
