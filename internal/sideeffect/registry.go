// Package sideeffect holds the catalog of automated actions triggered by
// lifecycle transitions. Actions are registered explicitly against a
// (domain, from, to) edge, so every name has an implementation at startup
// rather than being resolved reflectively at dispatch time.
package sideeffect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/propstead/propstead/internal/domain"
)

// Action is a named, idempotent unit of work run after a transition
// commits. Failures are recorded, never propagated to the caller.
type Action interface {
	Name() string
	Execute(ctx context.Context, e domain.Entity) error
}

type key struct {
	domain domain.Domain
	from   domain.State
	to     domain.State
}

// Registry maps transition edges to their ordered actions. It is built
// once at startup; Register must not be called after the registry is in
// use.
type Registry struct {
	actions map[key][]Action
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{actions: make(map[key][]Action)}
}

// Register appends actions to the given edge, preserving order. The
// source may be domain.Wildcard to attach effects to from-anywhere rules.
func (r *Registry) Register(d domain.Domain, from, to domain.State, actions ...Action) {
	k := key{domain: d, from: from, to: to}
	r.actions[k] = append(r.actions[k], actions...)
}

// For returns the ordered actions for an edge: exact match first, then
// any wildcard-source registration. An empty result is the common case.
func (r *Registry) For(d domain.Domain, from, to domain.State) []Action {
	out := append([]Action(nil), r.actions[key{domain: d, from: from, to: to}]...)
	if from != domain.Wildcard {
		out = append(out, r.actions[key{domain: d, from: domain.Wildcard, to: to}]...)
	}
	return out
}

// Names returns the action names for an edge, for introspection.
func (r *Registry) Names(d domain.Domain, from, to domain.State) []string {
	actions := r.For(d, from, to)
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = a.Name()
	}
	return names
}

// Status of a single executed action.
type Status string

const (
	StatusOK      Status = "ok"
	StatusError   Status = "error"
	StatusTimeout Status = "timeout"
)

// Result records the outcome of one action.
type Result struct {
	Action string `json:"action"`
	Status Status `json:"status"`
	Err    string `json:"error,omitempty"`
}

// Run executes every action registered for the edge, in order. Each
// action gets its own deadline; an action failing, timing out, or
// panicking never prevents the remaining actions from running.
func (r *Registry) Run(ctx context.Context, e domain.Entity, from, to domain.State, timeout time.Duration) []Result {
	actions := r.For(e.Domain, from, to)
	if len(actions) == 0 {
		return nil
	}

	results := make([]Result, 0, len(actions))
	for _, a := range actions {
		res := Result{Action: a.Name(), Status: StatusOK}
		if err := invoke(ctx, a, e, timeout); err != nil {
			res.Status = StatusError
			if errors.Is(err, context.DeadlineExceeded) {
				res.Status = StatusTimeout
			}
			res.Err = err.Error()
		}
		results = append(results, res)
	}
	return results
}

// invoke runs one action on its own goroutine so a blocking action cannot
// stall the run past its deadline.
func invoke(ctx context.Context, a Action, e domain.Entity, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- fmt.Errorf("action panicked: %v", rec)
			}
		}()
		done <- a.Execute(ctx, e)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
