package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/propstead/propstead/internal/adapter/sqlite"
	"github.com/propstead/propstead/internal/domain"
)

func TestEventStore_AppendAndList(t *testing.T) {
	repo := newTestRepo(t)
	store := sqlite.NewEventStore(repo.DB())
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	records := []domain.EventRecord{
		{
			ID: "ev-1", EntityID: "e-1", Domain: domain.DomainTenancy,
			Type:      "tenancy.created",
			Payload:   map[string]any{"state": "offer_accepted"},
			CreatedAt: base,
		},
		{
			ID: "ev-2", EntityID: "e-1", Domain: domain.DomainTenancy,
			Type:      "tenancy.referencing",
			Payload:   map[string]any{"from": "offer_accepted", "to": "referencing", "actor": "agent"},
			CreatedAt: base.Add(time.Minute),
		},
		{
			ID: "ev-3", EntityID: "e-2", Domain: domain.DomainTenancy,
			Type:      "tenancy.created",
			CreatedAt: base.Add(2 * time.Minute),
		},
	}
	for _, rec := range records {
		if err := store.Append(ctx, rec); err != nil {
			t.Fatalf("Append(%s) failed: %v", rec.ID, err)
		}
	}

	got, err := store.ListByEntity(ctx, domain.DomainTenancy, "e-1")
	if err != nil {
		t.Fatalf("ListByEntity failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].Type != "tenancy.created" || got[1].Type != "tenancy.referencing" {
		t.Errorf("order = %q, %q", got[0].Type, got[1].Type)
	}
	if got[1].Payload["actor"] != "agent" {
		t.Errorf("payload actor = %v, want agent", got[1].Payload["actor"])
	}
}

func TestEventStore_ListByEntity_Empty(t *testing.T) {
	repo := newTestRepo(t)
	store := sqlite.NewEventStore(repo.DB())

	got, err := store.ListByEntity(context.Background(), domain.DomainProperty, "nonexistent")
	if err != nil {
		t.Fatalf("ListByEntity failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d records, want 0", len(got))
	}
}
