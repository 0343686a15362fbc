package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/propstead/propstead/internal/domain"
)

// TaskStore implements domain.TaskService with a tasks table alongside
// the entities it follows up on.
type TaskStore struct {
	db *sql.DB
}

// NewTaskStore wraps an already-migrated database connection.
func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

func (s *TaskStore) CreateFollowUp(ctx context.Context, e domain.Entity, title string, dueIn time.Duration) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, domain, entity_id, title, status, due_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), string(e.Domain), e.ID, title, domain.TaskStatusOpen,
		now.Add(dueIn).Format(timeFormat),
		now.Format(timeFormat), now.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}
	return nil
}

func (s *TaskStore) HasOpenTask(ctx context.Context, d domain.Domain, entityID, title string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks
		 WHERE domain = ? AND entity_id = ? AND title = ? AND status = ?`,
		string(d), entityID, title, domain.TaskStatusOpen,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("counting open tasks: %w", err)
	}
	return count > 0, nil
}

func (s *TaskStore) CancelOpen(ctx context.Context, d domain.Domain, entityID string) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, updated_at = ?
		 WHERE domain = ? AND entity_id = ? AND status = ?`,
		domain.TaskStatusCancelled, time.Now().UTC().Format(timeFormat),
		string(d), entityID, domain.TaskStatusOpen,
	)
	if err != nil {
		return 0, fmt.Errorf("cancelling tasks: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return int(rows), nil
}

func (s *TaskStore) ListByEntity(ctx context.Context, d domain.Domain, entityID string) ([]domain.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, domain, entity_id, title, status, due_at, created_at
		 FROM tasks WHERE domain = ? AND entity_id = ?
		 ORDER BY created_at ASC, rowid ASC`,
		string(d), entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		var t domain.Task
		var dom, dueAt, createdAt string

		if err := rows.Scan(&t.ID, &dom, &t.EntityID, &t.Title, &t.Status, &dueAt, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning task row: %w", err)
		}

		t.Domain = domain.Domain(dom)
		t.DueAt, _ = time.Parse(timeFormat, dueAt)
		t.CreatedAt, _ = time.Parse(timeFormat, createdAt)

		tasks = append(tasks, t)
	}

	return tasks, rows.Err()
}
