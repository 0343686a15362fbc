package domain

import "time"

// DefaultSLADuration applies to any state without an explicit entry.
const DefaultSLADuration = 30 * 24 * time.Hour

// SLAPolicy maps (domain, state) to the time an entity is expected to
// spend there before it is flagged overdue. Terminal and equivalent
// states are exempt: they never go overdue.
type SLAPolicy struct {
	durations map[Domain]map[State]time.Duration
	def       time.Duration
	exempt    map[Domain]map[State]struct{}
}

// NewSLAPolicy builds a policy from explicit configuration.
func NewSLAPolicy(def time.Duration, durations map[Domain]map[State]time.Duration, exempt map[Domain][]State) *SLAPolicy {
	p := &SLAPolicy{
		durations: durations,
		def:       def,
		exempt:    make(map[Domain]map[State]struct{}),
	}
	for d, states := range exempt {
		set := make(map[State]struct{}, len(states))
		for _, s := range states {
			set[s] = struct{}{}
		}
		p.exempt[d] = set
	}
	return p
}

// Deadline computes the SLA deadline for a state entered at now.
func (p *SLAPolicy) Deadline(d Domain, s State, now time.Time) time.Time {
	if byState, ok := p.durations[d]; ok {
		if dur, ok := byState[s]; ok {
			return now.Add(dur)
		}
	}
	return now.Add(p.def)
}

// Exempt reports whether a state never goes overdue.
func (p *SLAPolicy) Exempt(d Domain, s State) bool {
	_, ok := p.exempt[d][s]
	return ok
}

// Overdue reports whether the entity has blown its SLA deadline.
func (p *SLAPolicy) Overdue(e Entity, now time.Time) bool {
	if p.Exempt(e.Domain, e.State) {
		return false
	}
	return !e.SLADeadline.IsZero() && now.After(e.SLADeadline)
}

// DefaultSLAPolicy builds the production deadline configuration.
func DefaultSLAPolicy() *SLAPolicy {
	day := 24 * time.Hour
	return NewSLAPolicy(DefaultSLADuration,
		map[Domain]map[State]time.Duration{
			DomainProperty: {
				StateAppraisal:  7 * day,
				StateInstructed: 14 * day,
				StateSSTC:       84 * day,
				StateExchanged:  28 * day,
			},
			DomainTenancy: {
				StateOfferAccepted: 5 * day,
				StateReferencing:   14 * day,
				StateReferenced:    7 * day,
				StateReadyToMoveIn: 7 * day,
				StateEnding:        28 * day,
			},
			DomainVendor: {
				StateAppraisal: 7 * day,
				StateSSTC:      84 * day,
			},
			DomainApplicant: {
				StateNew:       3 * day,
				StateQualified: 14 * day,
				StateOfferMade: 5 * day,
			},
			DomainValuation: {
				StateDraft:     3 * day,
				StateScheduled: 2 * day,
				StateCompleted: 14 * day,
			},
		},
		map[Domain][]State{
			DomainProperty:  {StateCompleted, StateArchived, StateWithdrawn},
			DomainTenancy:   {StateActive, StateEnded, StateArchived, StateWithdrawn},
			DomainVendor:    {StateCompleted, StatePastClient, StateLost},
			DomainApplicant: {StateMovedIn, StateArchived},
			DomainValuation: {StateInstructed, StateLost},
		},
	)
}
