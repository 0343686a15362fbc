package domain

// Guard is a named precondition gating entry into a specific state. Check
// inspects the entity snapshot only; it must not mutate anything. On
// failure it returns a human-readable reason.
type Guard struct {
	Name  string
	To    State
	Check func(Entity) (bool, string)
}

// GuardSet holds the guards registered per domain and target state. Like
// the RuleSet it is built once at startup and read-only afterwards.
type GuardSet struct {
	byTarget map[Domain]map[State][]Guard
}

// NewGuardSet indexes guards by domain and target state.
func NewGuardSet(guards map[Domain][]Guard) *GuardSet {
	gs := &GuardSet{byTarget: make(map[Domain]map[State][]Guard)}
	for d, list := range guards {
		byState := make(map[State][]Guard)
		for _, g := range list {
			byState[g.To] = append(byState[g.To], g)
		}
		gs.byTarget[d] = byState
	}
	return gs
}

// Evaluate runs every guard registered for the entity's domain and the
// target state. The first failure is returned as a GuardViolationError;
// states with no guards always pass.
func (gs *GuardSet) Evaluate(e Entity, to State) error {
	byState, ok := gs.byTarget[e.Domain]
	if !ok {
		return nil
	}
	for _, g := range byState[to] {
		if ok, reason := g.Check(e); !ok {
			return &GuardViolationError{Guard: g.Name, Reason: reason}
		}
	}
	return nil
}

// attrSet builds a check that requires a non-empty attribute.
func attrSet(key, reason string) func(Entity) (bool, string) {
	return func(e Entity) (bool, string) {
		if e.Attr(key) == "" {
			return false, reason
		}
		return true, ""
	}
}

// DefaultGuards builds the production guard set.
func DefaultGuards() *GuardSet {
	return NewGuardSet(map[Domain][]Guard{
		DomainTenancy: {
			{
				Name:  "holding_deposit_recorded",
				To:    StateReferencing,
				Check: attrSet("holding_deposit_date", "holding deposit date must be recorded before referencing can begin"),
			},
			{
				Name: "referencing_checks_passed",
				To:   StateReferenced,
				Check: func(e Entity) (bool, string) {
					if e.Attr("reference_status") != "pass" || e.Attr("right_to_rent_status") != "pass" {
						return false, "referencing and right to rent checks must both pass"
					}
					return true, ""
				},
			},
			{
				Name:  "move_in_checks_complete",
				To:    StateReadyToMoveIn,
				Check: moveInChecks,
			},
			{
				Name:  "move_in_checks_complete",
				To:    StateActive,
				Check: moveInChecks,
			},
		},
		DomainProperty: {
			{
				Name:  "offer_accepted_recorded",
				To:    StateSSTC,
				Check: attrSet("accepted_offer_id", "an accepted offer must be recorded before marking sold subject to contract"),
			},
		},
		DomainValuation: {
			{
				Name:  "appointment_booked",
				To:    StateScheduled,
				Check: attrSet("appointment_at", "an appointment time must be set before the valuation can be scheduled"),
			},
		},
	})
}

func moveInChecks(e Entity) (bool, string) {
	if !e.AttrBool("inventory_check_in_complete") || !e.AttrBool("gas_safety_certificate_provided") {
		return false, "inventory check-in and gas safety certificate are required before move in"
	}
	return true, ""
}
