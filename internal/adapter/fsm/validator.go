package fsm

import (
	"context"
	"errors"

	loopfsm "github.com/looplab/fsm"

	"github.com/propstead/propstead/internal/domain"
)

// Compile-time check: Validator implements domain.TransitionValidator.
var _ domain.TransitionValidator = (*Validator)(nil)

// buildEvents converts one domain's transition rules into looplab/fsm
// EventDesc format. Events are named after the destination state, so a
// caller requesting "referencing" fires the "referencing" event. Rules
// with the same destination collapse into a single EventDesc with
// multiple source states, and wildcard sources expand to every state
// the domain knows about.
func buildEvents(rules *domain.RuleSet, d domain.Domain) []loopfsm.EventDesc {
	grouped := make(map[domain.State][]string)
	order := make([]domain.State, 0)

	for _, r := range rules.Rules(d) {
		srcs := []domain.State{r.From}
		if r.From == domain.Wildcard {
			srcs = rules.States(d)
		}
		for _, src := range srcs {
			if _, exists := grouped[r.To]; !exists {
				order = append(order, r.To)
			}
			grouped[r.To] = append(grouped[r.To], string(src))
		}
	}

	out := make([]loopfsm.EventDesc, 0, len(order))
	for _, dst := range order {
		out = append(out, loopfsm.EventDesc{
			Name: string(dst),
			Src:  grouped[dst],
			Dst:  string(dst),
		})
	}
	return out
}

// Validator implements domain.TransitionValidator using looplab/fsm.
// It creates a short-lived FSM instance per Apply call, initialized with
// the entity's current state. This is necessary because looplab/fsm is
// stateful (it tracks the current state internally). The event tables
// are built once per domain at construction time.
type Validator struct {
	events map[domain.Domain][]loopfsm.EventDesc
}

// New creates an FSM-backed transition validator from the rule set.
func New(rules *domain.RuleSet) *Validator {
	events := make(map[domain.Domain][]loopfsm.EventDesc, len(domain.Domains()))
	for _, d := range domain.Domains() {
		events[d] = buildEvents(rules, d)
	}
	return &Validator{events: events}
}

// Apply checks whether the entity may move from current to requested.
// Returns a domain.InvalidTransitionError when the move is not allowed.
func (v *Validator) Apply(ctx context.Context, d domain.Domain, current, requested domain.State) error {
	machine := loopfsm.NewFSM(string(current), v.events[d], nil)

	if err := machine.Event(ctx, string(requested)); err != nil {
		var noTransition loopfsm.NoTransitionError
		if errors.As(err, &noTransition) {
			// Allowed self-loop. The rules table only produces these
			// where a same-state refresh is deliberate.
			return nil
		}
		var invalidEvent loopfsm.InvalidEventError
		if errors.As(err, &invalidEvent) {
			return &domain.InvalidTransitionError{
				Domain: d,
				From:   current,
				To:     requested,
			}
		}
		return err
	}

	return nil
}
