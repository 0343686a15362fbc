package sideeffect_test

import (
	"context"
	"testing"
	"time"

	"github.com/propstead/propstead/internal/domain"
	"github.com/propstead/propstead/internal/sideeffect"
)

// --- Collaborator fakes ---

type fakeTasks struct {
	created   []string
	cancelled int
}

func (f *fakeTasks) CreateFollowUp(_ context.Context, _ domain.Entity, title string, _ time.Duration) error {
	f.created = append(f.created, title)
	return nil
}

func (f *fakeTasks) HasOpenTask(_ context.Context, _ domain.Domain, _, title string) (bool, error) {
	for _, t := range f.created {
		if t == title {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeTasks) CancelOpen(_ context.Context, _ domain.Domain, _ string) (int, error) {
	n := len(f.created)
	f.created = nil
	f.cancelled += n
	return n, nil
}

func (f *fakeTasks) ListByEntity(_ context.Context, _ domain.Domain, _ string) ([]domain.Task, error) {
	return nil, nil
}

type fakeDocs struct {
	generated []string
}

func (f *fakeDocs) Generate(_ context.Context, _ domain.Entity, template string) (string, error) {
	f.generated = append(f.generated, template)
	return "documents/" + template + ".pdf", nil
}

func (f *fakeDocs) Exists(_ context.Context, _ domain.Domain, _, template string) (bool, error) {
	for _, g := range f.generated {
		if g == template {
			return true, nil
		}
	}
	return false, nil
}

type fakeNotifier struct {
	sent []string
}

func (f *fakeNotifier) Send(_ context.Context, _, template string, _ map[string]string) error {
	f.sent = append(f.sent, template)
	return nil
}

// --- Tests ---

func TestDefaultRegistry_ReferencingEdge(t *testing.T) {
	tasks := &fakeTasks{}
	docs := &fakeDocs{}
	notify := &fakeNotifier{}
	r := sideeffect.DefaultRegistry(tasks, docs, notify)

	names := r.Names(domain.DomainTenancy, domain.StateOfferAccepted, domain.StateReferencing)
	want := []string{"collect_holding_deposit", "send_offer_confirmation", "start_referencing_process"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	e := domain.NewEntity("t-1", domain.DomainTenancy, "Flat 3", nil)
	results := r.Run(context.Background(), e, domain.StateOfferAccepted, domain.StateReferencing, time.Second)
	for _, res := range results {
		if res.Status != sideeffect.StatusOK {
			t.Errorf("%s status = %q (%s), want ok", res.Action, res.Status, res.Err)
		}
	}
	if len(tasks.created) != 2 {
		t.Errorf("created tasks = %v, want 2 entries", tasks.created)
	}
	if len(notify.sent) != 1 || notify.sent[0] != "offer_confirmation" {
		t.Errorf("notifications = %v, want [offer_confirmation]", notify.sent)
	}
}

func TestDefaultRegistry_TaskActionsAreIdempotent(t *testing.T) {
	tasks := &fakeTasks{}
	r := sideeffect.DefaultRegistry(tasks, &fakeDocs{}, &fakeNotifier{})

	e := domain.NewEntity("t-1", domain.DomainTenancy, "Flat 3", nil)
	r.Run(context.Background(), e, domain.StateOfferAccepted, domain.StateReferencing, time.Second)
	r.Run(context.Background(), e, domain.StateOfferAccepted, domain.StateReferencing, time.Second)

	// A replayed transition must not duplicate follow-up tasks.
	if len(tasks.created) != 2 {
		t.Errorf("created tasks = %v, want 2 entries after replay", tasks.created)
	}
}

func TestDefaultRegistry_DocumentIdempotence(t *testing.T) {
	docs := &fakeDocs{}
	r := sideeffect.DefaultRegistry(&fakeTasks{}, docs, &fakeNotifier{})

	e := domain.NewEntity("t-1", domain.DomainTenancy, "Flat 3", nil)
	r.Run(context.Background(), e, domain.StateReferenced, domain.StateReadyToMoveIn, time.Second)
	r.Run(context.Background(), e, domain.StateReferenced, domain.StateReadyToMoveIn, time.Second)

	if len(docs.generated) != 1 {
		t.Errorf("generated = %v, want a single tenancy_agreement", docs.generated)
	}
}

func TestDefaultRegistry_WithdrawCancelsTasks(t *testing.T) {
	tasks := &fakeTasks{}
	r := sideeffect.DefaultRegistry(tasks, &fakeDocs{}, &fakeNotifier{})

	e := domain.NewEntity("t-1", domain.DomainTenancy, "Flat 3", nil)
	r.Run(context.Background(), e, domain.StateOfferAccepted, domain.StateReferencing, time.Second)
	r.Run(context.Background(), e, domain.StateReferencing, domain.StateWithdrawn, time.Second)

	if tasks.cancelled == 0 {
		t.Error("withdrawing should cancel open tasks")
	}
}

func TestDefaultRegistry_SalesProgression(t *testing.T) {
	tasks := &fakeTasks{}
	r := sideeffect.DefaultRegistry(tasks, &fakeDocs{}, &fakeNotifier{})

	e := domain.NewEntity("v-1", domain.DomainVendor, "Mr Hill", nil)
	results := r.Run(context.Background(), e, domain.StateActive, domain.StateSSTC, time.Second)

	if len(results) != 2 {
		t.Fatalf("results = %v, want sales progression + notification", results)
	}
	if len(tasks.created) != 4 {
		t.Errorf("created tasks = %v, want the 4 progression steps", tasks.created)
	}
}
