package domain

import "sort"

// Wildcard matches any source state in a transition rule. It is used for
// moves that are legal from anywhere, such as withdrawing an instruction.
const Wildcard State = "*"

// Rule is a single allowed edge in a domain's state machine.
type Rule struct {
	Domain Domain
	From   State
	To     State
}

// RuleSet is the sole authority on structural transition legality. It is
// built once at startup and never mutated afterwards.
type RuleSet struct {
	rules   []Rule
	allowed map[Domain]map[State]map[State]struct{}
	states  map[Domain][]State
}

// NewRuleSet indexes the given rules for lookup.
func NewRuleSet(rules []Rule) *RuleSet {
	rs := &RuleSet{
		rules:   rules,
		allowed: make(map[Domain]map[State]map[State]struct{}),
		states:  make(map[Domain][]State),
	}

	seen := make(map[Domain]map[State]struct{})
	for _, r := range rules {
		byFrom, ok := rs.allowed[r.Domain]
		if !ok {
			byFrom = make(map[State]map[State]struct{})
			rs.allowed[r.Domain] = byFrom
			seen[r.Domain] = make(map[State]struct{})
		}
		targets, ok := byFrom[r.From]
		if !ok {
			targets = make(map[State]struct{})
			byFrom[r.From] = targets
		}
		targets[r.To] = struct{}{}

		for _, s := range []State{r.From, r.To} {
			if s == Wildcard {
				continue
			}
			if _, dup := seen[r.Domain][s]; !dup {
				seen[r.Domain][s] = struct{}{}
				rs.states[r.Domain] = append(rs.states[r.Domain], s)
			}
		}
	}

	return rs
}

// Allows reports whether to is reachable from from in a single hop, either
// through a direct rule or a wildcard rule. Unknown domains and states are
// simply not allowed.
func (rs *RuleSet) Allows(d Domain, from, to State) bool {
	byFrom, ok := rs.allowed[d]
	if !ok {
		return false
	}
	if targets, ok := byFrom[from]; ok {
		if _, ok := targets[to]; ok {
			return true
		}
	}
	if targets, ok := byFrom[Wildcard]; ok {
		if _, ok := targets[to]; ok {
			return true
		}
	}
	return false
}

// ValidTargets returns the sorted set of states reachable from the given
// state, including wildcard targets. Unknown pairs yield an empty slice.
func (rs *RuleSet) ValidTargets(d Domain, from State) []State {
	byFrom, ok := rs.allowed[d]
	if !ok {
		return nil
	}

	set := make(map[State]struct{})
	for _, src := range []State{from, Wildcard} {
		for to := range byFrom[src] {
			set[to] = struct{}{}
		}
	}

	out := make([]State, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Rules returns a domain's edges, in registration order.
func (rs *RuleSet) Rules(d Domain) []Rule {
	var out []Rule
	for _, r := range rs.rules {
		if r.Domain == d {
			out = append(out, r)
		}
	}
	return out
}

// States returns every named (non-wildcard) state of a domain.
func (rs *RuleSet) States(d Domain) []State {
	out := make([]State, len(rs.states[d]))
	copy(out, rs.states[d])
	return out
}

// DefaultRules builds the production transition table for all five domains.
func DefaultRules() *RuleSet {
	return NewRuleSet([]Rule{
		// Property sales pipeline. The active self-loop is a relisting
		// refresh: it re-enters the state to reset the SLA deadline.
		{DomainProperty, StateNew, StateAppraisal},
		{DomainProperty, StateAppraisal, StateInstructed},
		{DomainProperty, StateInstructed, StateActive},
		{DomainProperty, StateActive, StateActive},
		{DomainProperty, StateActive, StateSSTC},
		{DomainProperty, StateSSTC, StateActive},
		{DomainProperty, StateSSTC, StateExchanged},
		{DomainProperty, StateExchanged, StateCompleted},
		{DomainProperty, StateCompleted, StateArchived},
		{DomainProperty, Wildcard, StateWithdrawn},

		// Tenancy progression from an accepted offer to move-in and out.
		{DomainTenancy, StateOfferAccepted, StateReferencing},
		{DomainTenancy, StateReferencing, StateReferenced},
		{DomainTenancy, StateReferenced, StateReadyToMoveIn},
		{DomainTenancy, StateReadyToMoveIn, StateActive},
		{DomainTenancy, StateActive, StateEnding},
		{DomainTenancy, StateEnding, StateEnded},
		{DomainTenancy, StateEnded, StateArchived},
		{DomainTenancy, Wildcard, StateWithdrawn},

		// Vendor relationship, mirroring the sales pipeline.
		{DomainVendor, StateNew, StateAppraisal},
		{DomainVendor, StateAppraisal, StateInstructed},
		{DomainVendor, StateInstructed, StateActive},
		{DomainVendor, StateActive, StateSSTC},
		{DomainVendor, StateSSTC, StateActive},
		{DomainVendor, StateSSTC, StateExchanged},
		{DomainVendor, StateExchanged, StateCompleted},
		{DomainVendor, StateCompleted, StatePastClient},
		{DomainVendor, Wildcard, StateLost},

		// Applicant journey; offers can fall through back to viewings.
		{DomainApplicant, StateNew, StateQualified},
		{DomainApplicant, StateQualified, StateViewing},
		{DomainApplicant, StateViewing, StateOfferMade},
		{DomainApplicant, StateOfferMade, StateViewing},
		{DomainApplicant, StateOfferMade, StateOfferAccepted},
		{DomainApplicant, StateOfferAccepted, StateMovedIn},
		{DomainApplicant, Wildcard, StateArchived},

		// Valuation: a completed valuation is either won or lost.
		{DomainValuation, StateDraft, StateScheduled},
		{DomainValuation, StateScheduled, StateCompleted},
		{DomainValuation, StateCompleted, StateInstructed},
		{DomainValuation, StateCompleted, StateLost},
		{DomainValuation, Wildcard, StateLost},
	})
}
