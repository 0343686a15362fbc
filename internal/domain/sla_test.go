package domain_test

import (
	"testing"
	"time"

	"github.com/propstead/propstead/internal/domain"
)

func TestSLAPolicy_Deadline(t *testing.T) {
	p := domain.DefaultSLAPolicy()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	got := p.Deadline(domain.DomainTenancy, domain.StateReferencing, now)
	if want := now.Add(14 * 24 * time.Hour); !got.Equal(want) {
		t.Errorf("referencing deadline = %v, want %v", got, want)
	}

	// Unconfigured state falls back to the default duration.
	got = p.Deadline(domain.DomainProperty, domain.StateNew, now)
	if want := now.Add(domain.DefaultSLADuration); !got.Equal(want) {
		t.Errorf("default deadline = %v, want %v", got, want)
	}

	// Unknown domain also falls back to the default.
	got = p.Deadline("caravan", domain.StateNew, now)
	if want := now.Add(domain.DefaultSLADuration); !got.Equal(want) {
		t.Errorf("unknown domain deadline = %v, want %v", got, want)
	}
}

func TestSLAPolicy_Overdue(t *testing.T) {
	p := domain.DefaultSLAPolicy()
	now := time.Now().UTC()

	e := domain.NewEntity("p-1", domain.DomainProperty, "1 High St", nil)
	e.SLADeadline = now.Add(-time.Second)
	if !p.Overdue(e, now) {
		t.Error("past deadline should be overdue")
	}

	e.SLADeadline = now.Add(time.Hour)
	if p.Overdue(e, now) {
		t.Error("future deadline should not be overdue")
	}

	// Entities with no deadline assigned yet never flag.
	e.SLADeadline = time.Time{}
	if p.Overdue(e, now) {
		t.Error("zero deadline should not be overdue")
	}
}

func TestSLAPolicy_ExemptStates(t *testing.T) {
	p := domain.DefaultSLAPolicy()
	now := time.Now().UTC()

	cases := []struct {
		domain domain.Domain
		state  domain.State
	}{
		{domain.DomainProperty, domain.StateCompleted},
		{domain.DomainProperty, domain.StateWithdrawn},
		{domain.DomainVendor, domain.StatePastClient},
		{domain.DomainTenancy, domain.StateActive},
		{domain.DomainApplicant, domain.StateArchived},
		{domain.DomainValuation, domain.StateLost},
	}

	for _, tc := range cases {
		if !p.Exempt(tc.domain, tc.state) {
			t.Errorf("%s %q should be exempt", tc.domain, tc.state)
		}

		e := domain.NewEntity("e-1", tc.domain, "x", nil)
		e.State = tc.state
		e.SLADeadline = now.Add(-time.Hour)
		if p.Overdue(e, now) {
			t.Errorf("%s %q should never go overdue", tc.domain, tc.state)
		}
	}

	if p.Exempt(domain.DomainProperty, domain.StateActive) {
		t.Error("property active must not be exempt")
	}
}
