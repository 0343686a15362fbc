package domain

import "time"

// EventRecord is an immutable audit record of a transition or an overdue
// detection. Records are only ever appended, never updated or deleted.
type EventRecord struct {
	ID        string
	EntityID  string
	Domain    Domain
	Type      string
	Payload   map[string]any
	CreatedAt time.Time
}

// TransitionEventType names the event appended for a successful move into
// a state, e.g. "tenancy.referencing".
func TransitionEventType(d Domain, to State) string {
	return string(d) + "." + string(to)
}

// OverdueEventType names the event appended when the sweeper flags an
// entity, e.g. "tenancy.sla_overdue".
func OverdueEventType(d Domain) string {
	return string(d) + ".sla_overdue"
}

// CreatedEventType names the event appended when an entity is first
// created in its initial state.
func CreatedEventType(d Domain) string {
	return string(d) + ".created"
}
