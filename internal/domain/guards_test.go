package domain_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/propstead/propstead/internal/domain"
)

func tenancyEntity(attrs map[string]string) domain.Entity {
	return domain.NewEntity("t-1", domain.DomainTenancy, "Flat 3, Mill House", attrs)
}

func TestGuards_HoldingDeposit(t *testing.T) {
	gs := domain.DefaultGuards()

	err := gs.Evaluate(tenancyEntity(nil), domain.StateReferencing)
	var gv *domain.GuardViolationError
	if !errors.As(err, &gv) {
		t.Fatalf("expected GuardViolationError, got %v", err)
	}
	if !strings.Contains(gv.Reason, "holding deposit") {
		t.Errorf("reason %q should name the holding deposit", gv.Reason)
	}
	if gv.Error() != gv.Reason {
		t.Errorf("Error() must return the reason verbatim, got %q", gv.Error())
	}

	e := tenancyEntity(map[string]string{"holding_deposit_date": "2026-01-10T00:00:00Z"})
	if err := gs.Evaluate(e, domain.StateReferencing); err != nil {
		t.Errorf("guard should pass once the deposit date is set, got %v", err)
	}
}

func TestGuards_ReferencingChecks(t *testing.T) {
	gs := domain.DefaultGuards()

	cases := []struct {
		name  string
		attrs map[string]string
		want  bool
	}{
		{"both pass", map[string]string{"reference_status": "pass", "right_to_rent_status": "pass"}, true},
		{"reference failed", map[string]string{"reference_status": "fail", "right_to_rent_status": "pass"}, false},
		{"right to rent missing", map[string]string{"reference_status": "pass"}, false},
		{"nothing set", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := gs.Evaluate(tenancyEntity(tc.attrs), domain.StateReferenced)
			if tc.want && err != nil {
				t.Errorf("expected pass, got %v", err)
			}
			if !tc.want && err == nil {
				t.Error("expected guard violation")
			}
		})
	}
}

func TestGuards_MoveInChecks(t *testing.T) {
	gs := domain.DefaultGuards()

	incomplete := tenancyEntity(map[string]string{"inventory_check_in_complete": "true"})
	for _, to := range []domain.State{domain.StateReadyToMoveIn, domain.StateActive} {
		if err := gs.Evaluate(incomplete, to); err == nil {
			t.Errorf("entering %q without a gas safety certificate should fail", to)
		}
	}

	complete := tenancyEntity(map[string]string{
		"inventory_check_in_complete":     "true",
		"gas_safety_certificate_provided": "true",
	})
	for _, to := range []domain.State{domain.StateReadyToMoveIn, domain.StateActive} {
		if err := gs.Evaluate(complete, to); err != nil {
			t.Errorf("entering %q with checks complete should pass, got %v", to, err)
		}
	}
}

func TestGuards_UnguardedStatesAlwaysPass(t *testing.T) {
	gs := domain.DefaultGuards()

	if err := gs.Evaluate(tenancyEntity(nil), domain.StateWithdrawn); err != nil {
		t.Errorf("unguarded target should pass, got %v", err)
	}

	vendor := domain.NewEntity("v-1", domain.DomainVendor, "Mr Hill", nil)
	if err := gs.Evaluate(vendor, domain.StateSSTC); err != nil {
		t.Errorf("vendor sstc has no guard and should pass, got %v", err)
	}
}

func TestGuards_PropertyAndValuation(t *testing.T) {
	gs := domain.DefaultGuards()

	prop := domain.NewEntity("p-1", domain.DomainProperty, "1 High St", nil)
	if err := gs.Evaluate(prop, domain.StateSSTC); err == nil {
		t.Error("property sstc without an accepted offer should fail")
	}
	prop.Attrs["accepted_offer_id"] = "offer-9"
	if err := gs.Evaluate(prop, domain.StateSSTC); err != nil {
		t.Errorf("property sstc with an accepted offer should pass, got %v", err)
	}

	val := domain.NewEntity("val-1", domain.DomainValuation, "22 Oak Rd", nil)
	if err := gs.Evaluate(val, domain.StateScheduled); err == nil {
		t.Error("scheduling a valuation without an appointment should fail")
	}
}
