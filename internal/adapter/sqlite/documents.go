package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/propstead/propstead/internal/domain"
)

// DocumentStore implements domain.DocumentService. Generation records a
// row with an opaque reference; actual rendering happens downstream and
// picks the record up by ref.
type DocumentStore struct {
	db *sql.DB
}

// NewDocumentStore wraps an already-migrated database connection.
func NewDocumentStore(db *sql.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

func (s *DocumentStore) Generate(ctx context.Context, e domain.Entity, template string) (string, error) {
	id := uuid.NewString()
	ref := fmt.Sprintf("documents/%s/%s.pdf", template, id)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, domain, entity_id, template, ref, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, string(e.Domain), e.ID, template, ref,
		time.Now().UTC().Format(timeFormat),
	)
	if err != nil {
		return "", fmt.Errorf("inserting document: %w", err)
	}
	return ref, nil
}

func (s *DocumentStore) Exists(ctx context.Context, d domain.Domain, entityID, template string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents
		 WHERE domain = ? AND entity_id = ? AND template = ?`,
		string(d), entityID, template,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("counting documents: %w", err)
	}
	return count > 0, nil
}
