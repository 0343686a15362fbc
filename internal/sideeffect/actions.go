package sideeffect

import (
	"context"
	"fmt"
	"time"

	"github.com/propstead/propstead/internal/domain"
)

// followUpTask creates a follow-up task unless an identical open task
// already exists (message-level idempotence).
type followUpTask struct {
	name  string
	title string
	dueIn time.Duration
	tasks domain.TaskService
}

func (a *followUpTask) Name() string { return a.name }

func (a *followUpTask) Execute(ctx context.Context, e domain.Entity) error {
	exists, err := a.tasks.HasOpenTask(ctx, e.Domain, e.ID, a.title)
	if err != nil {
		return fmt.Errorf("checking open tasks: %w", err)
	}
	if exists {
		return nil
	}
	return a.tasks.CreateFollowUp(ctx, e, a.title, a.dueIn)
}

// generateDocument renders a document from a template unless one for the
// same template already exists for the entity.
type generateDocument struct {
	name     string
	template string
	docs     domain.DocumentService
}

func (a *generateDocument) Name() string { return a.name }

func (a *generateDocument) Execute(ctx context.Context, e domain.Entity) error {
	exists, err := a.docs.Exists(ctx, e.Domain, e.ID, a.template)
	if err != nil {
		return fmt.Errorf("checking documents: %w", err)
	}
	if exists {
		return nil
	}
	if _, err := a.docs.Generate(ctx, e, a.template); err != nil {
		return fmt.Errorf("generating %s: %w", a.template, err)
	}
	return nil
}

// sendNotification requests delivery of a templated message to the
// entity's contact. Delivery itself is asynchronous.
type sendNotification struct {
	name     string
	template string
	notify   domain.Notifier
}

func (a *sendNotification) Name() string { return a.name }

func (a *sendNotification) Execute(ctx context.Context, e domain.Entity) error {
	return a.notify.Send(ctx, e.Attr("contact_email"), a.template, map[string]string{
		"entity_id":   e.ID,
		"entity_name": e.Name,
		"state":       string(e.State),
	})
}

// cancelOpenTasks closes every open task for the entity. Used when a
// record is withdrawn so stale chase-ups disappear from work queues.
type cancelOpenTasks struct {
	tasks domain.TaskService
}

func (a *cancelOpenTasks) Name() string { return "cancel_open_tasks" }

func (a *cancelOpenTasks) Execute(ctx context.Context, e domain.Entity) error {
	_, err := a.tasks.CancelOpen(ctx, e.Domain, e.ID)
	return err
}

// salesProgression seeds the standard chase-up tasks when a sale is
// agreed. Each task is individually idempotent.
type salesProgression struct {
	tasks domain.TaskService
}

func (a *salesProgression) Name() string { return "create_sales_progression_tasks" }

func (a *salesProgression) Execute(ctx context.Context, e domain.Entity) error {
	day := 24 * time.Hour
	steps := []struct {
		title string
		dueIn time.Duration
	}{
		{"Issue memorandum of sale", 2 * day},
		{"Confirm solicitor instruction", 7 * day},
		{"Chase mortgage application", 14 * day},
		{"Chase searches and enquiries", 28 * day},
	}
	for _, s := range steps {
		exists, err := a.tasks.HasOpenTask(ctx, e.Domain, e.ID, s.title)
		if err != nil {
			return fmt.Errorf("checking open tasks: %w", err)
		}
		if exists {
			continue
		}
		if err := a.tasks.CreateFollowUp(ctx, e, s.title, s.dueIn); err != nil {
			return err
		}
	}
	return nil
}

// DefaultRegistry wires the production side-effect catalog against the
// given collaborators.
func DefaultRegistry(tasks domain.TaskService, docs domain.DocumentService, notify domain.Notifier) *Registry {
	day := 24 * time.Hour
	r := NewRegistry()

	r.Register(domain.DomainTenancy, domain.StateOfferAccepted, domain.StateReferencing,
		&followUpTask{name: "collect_holding_deposit", title: "Collect holding deposit", dueIn: 2 * day, tasks: tasks},
		&sendNotification{name: "send_offer_confirmation", template: "offer_confirmation", notify: notify},
		&followUpTask{name: "start_referencing_process", title: "Submit references to referencing provider", dueIn: day, tasks: tasks},
	)
	r.Register(domain.DomainTenancy, domain.StateReferenced, domain.StateReadyToMoveIn,
		&generateDocument{name: "generate_tenancy_agreement", template: "tenancy_agreement", docs: docs},
		&followUpTask{name: "schedule_check_in", title: "Schedule inventory check-in", dueIn: 5 * day, tasks: tasks},
	)
	r.Register(domain.DomainTenancy, domain.StateReadyToMoveIn, domain.StateActive,
		&followUpTask{name: "register_security_deposit", title: "Register security deposit with protection scheme", dueIn: 5 * day, tasks: tasks},
		&sendNotification{name: "send_welcome_pack", template: "welcome_pack", notify: notify},
	)
	r.Register(domain.DomainTenancy, domain.Wildcard, domain.StateWithdrawn,
		&cancelOpenTasks{tasks: tasks},
	)

	r.Register(domain.DomainProperty, domain.StateInstructed, domain.StateActive,
		&generateDocument{name: "generate_listing_particulars", template: "listing_particulars", docs: docs},
		&followUpTask{name: "schedule_marketing_review", title: "Review marketing performance", dueIn: 14 * day, tasks: tasks},
	)
	r.Register(domain.DomainProperty, domain.StateActive, domain.StateSSTC,
		&salesProgression{tasks: tasks},
		&sendNotification{name: "notify_offer_accepted", template: "offer_accepted", notify: notify},
	)
	r.Register(domain.DomainProperty, domain.StateSSTC, domain.StateExchanged,
		&sendNotification{name: "notify_exchange", template: "contracts_exchanged", notify: notify},
	)

	r.Register(domain.DomainVendor, domain.StateActive, domain.StateSSTC,
		&salesProgression{tasks: tasks},
		&sendNotification{name: "notify_offer_accepted", template: "offer_accepted", notify: notify},
	)

	r.Register(domain.DomainValuation, domain.StateDraft, domain.StateScheduled,
		&sendNotification{name: "send_valuation_confirmation", template: "valuation_confirmation", notify: notify},
	)

	return r
}
