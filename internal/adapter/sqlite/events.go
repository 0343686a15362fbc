package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/propstead/propstead/internal/domain"
)

// EventStore implements domain.EventLog on the same SQLite database as
// the entity repository.
type EventStore struct {
	db *sql.DB
}

// NewEventStore wraps an already-migrated database connection.
func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

func (s *EventStore) Append(ctx context.Context, record domain.EventRecord) error {
	payload, err := json.Marshal(record.Payload)
	if err != nil {
		return fmt.Errorf("encoding event payload: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO events (id, entity_id, domain, type, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		record.ID, record.EntityID, string(record.Domain), record.Type,
		string(payload), record.CreatedAt.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

func (s *EventStore) ListByEntity(ctx context.Context, d domain.Domain, entityID string) ([]domain.EventRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, entity_id, domain, type, payload, created_at
		 FROM events WHERE domain = ? AND entity_id = ?
		 ORDER BY created_at ASC, rowid ASC`,
		string(d), entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var records []domain.EventRecord
	for rows.Next() {
		var rec domain.EventRecord
		var dom, payload, createdAt string

		if err := rows.Scan(&rec.ID, &rec.EntityID, &dom, &rec.Type, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}

		rec.Domain = domain.Domain(dom)
		rec.CreatedAt, _ = time.Parse(timeFormat, createdAt)
		if err := json.Unmarshal([]byte(payload), &rec.Payload); err != nil {
			return nil, fmt.Errorf("decoding event payload: %w", err)
		}

		records = append(records, rec)
	}

	return records, rows.Err()
}
