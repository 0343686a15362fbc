package fsm_test

import (
	"context"
	"errors"
	"testing"

	adapter "github.com/propstead/propstead/internal/adapter/fsm"
	"github.com/propstead/propstead/internal/domain"
)

func TestValidator_AllRules(t *testing.T) {
	rules := domain.DefaultRules()
	v := adapter.New(rules)
	ctx := context.Background()

	for _, d := range domain.Domains() {
		for _, r := range rules.Rules(d) {
			srcs := []domain.State{r.From}
			if r.From == domain.Wildcard {
				srcs = rules.States(d)
			}
			for _, src := range srcs {
				if err := v.Apply(ctx, d, src, r.To); err != nil {
					t.Errorf("Apply(%s, %q, %q) unexpected error: %v", d, src, r.To, err)
				}
			}
		}
	}
}

func TestValidator_InvalidTransition(t *testing.T) {
	v := adapter.New(domain.DefaultRules())
	ctx := context.Background()

	// A tenancy cannot jump straight from offer_accepted to active.
	err := v.Apply(ctx, domain.DomainTenancy, domain.StateOfferAccepted, domain.StateActive)
	var trErr *domain.InvalidTransitionError
	if !errors.As(err, &trErr) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if trErr.From != domain.StateOfferAccepted {
		t.Errorf("from = %q, want %q", trErr.From, domain.StateOfferAccepted)
	}
	if trErr.To != domain.StateActive {
		t.Errorf("to = %q, want %q", trErr.To, domain.StateActive)
	}
}

func TestValidator_UnknownState(t *testing.T) {
	v := adapter.New(domain.DefaultRules())

	err := v.Apply(context.Background(), domain.DomainProperty, domain.StateNew, domain.State("demolished"))
	var trErr *domain.InvalidTransitionError
	if !errors.As(err, &trErr) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
}

func TestValidator_SelfLoopRefresh(t *testing.T) {
	v := adapter.New(domain.DefaultRules())
	ctx := context.Background()

	// active → active is a deliberate refresh for properties.
	if err := v.Apply(ctx, domain.DomainProperty, domain.StateActive, domain.StateActive); err != nil {
		t.Errorf("refresh rejected: %v", err)
	}

	// Tenancies have no such rule.
	err := v.Apply(ctx, domain.DomainTenancy, domain.StateActive, domain.StateActive)
	var trErr *domain.InvalidTransitionError
	if !errors.As(err, &trErr) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
}

func TestValidator_DomainsAreIsolated(t *testing.T) {
	v := adapter.New(domain.DefaultRules())
	ctx := context.Background()

	// sstc → exchanged exists for properties and vendors, not applicants.
	if err := v.Apply(ctx, domain.DomainProperty, domain.StateSSTC, domain.StateExchanged); err != nil {
		t.Errorf("property sstc → exchanged rejected: %v", err)
	}
	err := v.Apply(ctx, domain.DomainApplicant, domain.StateSSTC, domain.StateExchanged)
	var trErr *domain.InvalidTransitionError
	if !errors.As(err, &trErr) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
}

func TestValidator_WildcardSource(t *testing.T) {
	v := adapter.New(domain.DefaultRules())
	ctx := context.Background()

	// Any tenancy state may withdraw.
	for _, src := range []domain.State{domain.StateOfferAccepted, domain.StateReferencing, domain.StateActive} {
		if err := v.Apply(ctx, domain.DomainTenancy, src, domain.StateWithdrawn); err != nil {
			t.Errorf("Apply(tenancy, %q, withdrawn) unexpected error: %v", src, err)
		}
	}
}
