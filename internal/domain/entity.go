package domain

import (
	"fmt"
	"time"
)

// Domain identifies a category of lifecycle-managed record.
type Domain string

const (
	DomainProperty  Domain = "property"
	DomainTenancy   Domain = "tenancy"
	DomainVendor    Domain = "vendor"
	DomainApplicant Domain = "applicant"
	DomainValuation Domain = "valuation"
)

// Domains returns every lifecycle-managed domain.
func Domains() []Domain {
	return []Domain{DomainProperty, DomainTenancy, DomainVendor, DomainApplicant, DomainValuation}
}

// ParseDomain converts a raw string (e.g. a URL path segment) into a Domain.
func ParseDomain(s string) (Domain, error) {
	for _, d := range Domains() {
		if string(d) == s {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDomain, s)
}

// State represents a lifecycle state. States are shared across domains
// where the business meaning is the same (e.g. "active", "sstc").
type State string

const (
	StateNew           State = "new"
	StateAppraisal     State = "appraisal"
	StateInstructed    State = "instructed"
	StateActive        State = "active"
	StateSSTC          State = "sstc"
	StateExchanged     State = "exchanged"
	StateCompleted     State = "completed"
	StateArchived      State = "archived"
	StateWithdrawn     State = "withdrawn"
	StatePastClient    State = "past_client"
	StateLost          State = "lost"
	StateOfferAccepted State = "offer_accepted"
	StateReferencing   State = "referencing"
	StateReferenced    State = "referenced"
	StateReadyToMoveIn State = "ready_to_move_in"
	StateEnding        State = "ending"
	StateEnded         State = "ended"
	StateQualified     State = "qualified"
	StateViewing       State = "viewing"
	StateOfferMade     State = "offer_made"
	StateMovedIn       State = "moved_in"
	StateDraft         State = "draft"
	StateScheduled     State = "scheduled"
)

// InitialState returns the state a freshly created entity starts in.
func InitialState(d Domain) State {
	switch d {
	case DomainTenancy:
		return StateOfferAccepted
	case DomainValuation:
		return StateDraft
	default:
		return StateNew
	}
}

// Entity is a lifecycle-managed record. The engine owns the lifecycle
// fields (State, PreviousState, StateChangedAt, SLADeadline, SLAOverdue);
// Attrs belong to the surrounding application and are only read by guards.
type Entity struct {
	ID             string
	Domain         Domain
	Name           string
	State          State
	PreviousState  State
	StateChangedAt time.Time
	SLADeadline    time.Time
	SLAOverdue     bool
	Attrs          map[string]string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewEntity creates an entity in its domain's initial state. The SLA
// deadline is assigned by the lifecycle service, which owns the policy.
func NewEntity(id string, d Domain, name string, attrs map[string]string) Entity {
	now := time.Now().UTC()
	if attrs == nil {
		attrs = make(map[string]string)
	}
	return Entity{
		ID:             id,
		Domain:         d,
		Name:           name,
		State:          InitialState(d),
		StateChangedAt: now,
		Attrs:          attrs,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Attr returns the named attribute, or "" when unset.
func (e Entity) Attr(key string) string {
	return e.Attrs[key]
}

// AttrBool reports whether the named attribute is the string "true".
func (e Entity) AttrBool(key string) bool {
	return e.Attrs[key] == "true"
}

// AttrTime parses the named attribute as RFC 3339. The second return is
// false when the attribute is unset or malformed.
func (e Entity) AttrTime(key string) (time.Time, bool) {
	raw, ok := e.Attrs[key]
	if !ok || raw == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
