package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/propstead/propstead/internal/domain"

	_ "modernc.org/sqlite" // Register SQLite driver.
)

//go:embed migrations/*.sql
var migrations embed.FS

// EntityRepository implements domain.EntityRepository using SQLite.
type EntityRepository struct {
	db *sql.DB
}

// New opens a SQLite database, runs migrations, and returns a ready repository.
func New(dataSourceName string) (*EntityRepository, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	// Enable foreign keys (off by default in SQLite).
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return NewFromDB(db)
}

// NewFromDB wraps an existing database connection, runs migrations, and returns a ready repository.
// Use this when the *sql.DB has been pre-configured (e.g., with otelsql instrumentation).
func NewFromDB(db *sql.DB) (*EntityRepository, error) {
	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return &EntityRepository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *EntityRepository) Close() error {
	return r.db.Close()
}

// DB returns the underlying database connection for use by other adapters (e.g., river).
func (r *EntityRepository) DB() *sql.DB {
	return r.db
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

const timeFormat = "2006-01-02T15:04:05Z"

// zeroTime is what the zero time.Time formats to; a deadline stored as
// this value means "no deadline".
const zeroTime = "0001-01-01T00:00:00Z"

const entityColumns = `id, domain, name, state, previous_state, state_changed_at,
	sla_deadline, sla_overdue, attrs, created_at, updated_at`

func (r *EntityRepository) Create(ctx context.Context, e domain.Entity) error {
	attrs, err := json.Marshal(e.Attrs)
	if err != nil {
		return fmt.Errorf("encoding attributes: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO entities (`+entityColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Domain), e.Name, string(e.State), string(e.PreviousState),
		e.StateChangedAt.Format(timeFormat),
		e.SLADeadline.Format(timeFormat),
		boolToInt(e.SLAOverdue), string(attrs),
		e.CreatedAt.Format(timeFormat),
		e.UpdatedAt.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting entity: %w", err)
	}
	return nil
}

func (r *EntityRepository) GetByID(ctx context.Context, d domain.Domain, id string) (domain.Entity, error) {
	return r.scanEntity(r.db.QueryRowContext(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE domain = ? AND id = ?`,
		string(d), id,
	))
}

func (r *EntityRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities`
	var clauses []string
	var args []any

	if filter.Domain != nil {
		clauses = append(clauses, `domain = ?`)
		args = append(args, string(*filter.Domain))
	}
	if filter.State != nil {
		clauses = append(clauses, `state = ?`)
		args = append(args, string(*filter.State))
	}
	if filter.Overdue != nil {
		clauses = append(clauses, `sla_overdue = ?`)
		args = append(args, boolToInt(*filter.Overdue))
	}

	for i, c := range clauses {
		if i == 0 {
			query += ` WHERE ` + c
		} else {
			query += ` AND ` + c
		}
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing entities: %w", err)
	}
	defer rows.Close()

	var entities []domain.Entity
	for rows.Next() {
		e, err := r.scanEntityFromRows(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}

	return entities, rows.Err()
}

func (r *EntityRepository) UpdateAttrs(ctx context.Context, d domain.Domain, id string, attrs map[string]string) (domain.Entity, error) {
	e, err := r.GetByID(ctx, d, id)
	if err != nil {
		return domain.Entity{}, err
	}

	if e.Attrs == nil {
		e.Attrs = make(map[string]string, len(attrs))
	}
	for k, v := range attrs {
		e.Attrs[k] = v
	}
	e.UpdatedAt = time.Now().UTC()

	encoded, err := json.Marshal(e.Attrs)
	if err != nil {
		return domain.Entity{}, fmt.Errorf("encoding attributes: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE entities SET attrs = ?, updated_at = ? WHERE domain = ? AND id = ?`,
		string(encoded), e.UpdatedAt.Format(timeFormat), string(d), id,
	)
	if err != nil {
		return domain.Entity{}, fmt.Errorf("updating attributes: %w", err)
	}

	return e, nil
}

// UpdateState persists the full lifecycle state of the entity, but only
// if the stored state still matches expected. A stale expectation
// yields a domain.StateConflictError so callers can retry.
func (r *EntityRepository) UpdateState(ctx context.Context, e domain.Entity, expected domain.State) error {
	attrs, err := json.Marshal(e.Attrs)
	if err != nil {
		return fmt.Errorf("encoding attributes: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE entities
		 SET state = ?, previous_state = ?, state_changed_at = ?,
		     sla_deadline = ?, sla_overdue = ?, attrs = ?, updated_at = ?
		 WHERE domain = ? AND id = ? AND state = ?`,
		string(e.State), string(e.PreviousState),
		e.StateChangedAt.Format(timeFormat),
		e.SLADeadline.Format(timeFormat),
		boolToInt(e.SLAOverdue), string(attrs),
		e.UpdatedAt.Format(timeFormat),
		string(e.Domain), e.ID, string(expected),
	)
	if err != nil {
		return fmt.Errorf("updating entity state: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		// Distinguish a missing entity from a concurrent change.
		if _, err := r.GetByID(ctx, e.Domain, e.ID); err != nil {
			return err
		}
		return &domain.StateConflictError{ID: e.ID, Expected: expected}
	}

	return nil
}

func (r *EntityRepository) ListOverdue(ctx context.Context, now time.Time) ([]domain.Entity, error) {
	// Lexicographic comparison is safe: the stored format is fixed-width.
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entityColumns+` FROM entities
		 WHERE sla_overdue = 0 AND sla_deadline != ? AND sla_deadline < ?
		 ORDER BY sla_deadline ASC`,
		zeroTime, now.UTC().Format(timeFormat),
	)
	if err != nil {
		return nil, fmt.Errorf("listing overdue entities: %w", err)
	}
	defer rows.Close()

	var entities []domain.Entity
	for rows.Next() {
		e, err := r.scanEntityFromRows(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}

	return entities, rows.Err()
}

// MarkOverdue sets the overdue flag and reports whether this call was
// the one that set it. Concurrent sweeps settle on a single winner.
func (r *EntityRepository) MarkOverdue(ctx context.Context, d domain.Domain, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE entities SET sla_overdue = 1, updated_at = ?
		 WHERE domain = ? AND id = ? AND sla_overdue = 0`,
		time.Now().UTC().Format(timeFormat), string(d), id,
	)
	if err != nil {
		return false, fmt.Errorf("marking entity overdue: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		if _, err := r.GetByID(ctx, d, id); err != nil {
			return false, err
		}
		return false, nil
	}

	return true, nil
}

// scanEntity scans a single row from QueryRow into a domain.Entity.
func (r *EntityRepository) scanEntity(row *sql.Row) (domain.Entity, error) {
	var e domain.Entity
	var dom, state, prev, changedAt, deadline, attrs, createdAt, updatedAt string
	var overdue int

	err := row.Scan(&e.ID, &dom, &e.Name, &state, &prev, &changedAt,
		&deadline, &overdue, &attrs, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Entity{}, domain.ErrEntityNotFound
		}
		return domain.Entity{}, fmt.Errorf("scanning entity: %w", err)
	}

	return r.hydrate(e, dom, state, prev, changedAt, deadline, attrs, createdAt, updatedAt, overdue)
}

// scanEntityFromRows scans a single row from Rows (used in List).
func (r *EntityRepository) scanEntityFromRows(rows *sql.Rows) (domain.Entity, error) {
	var e domain.Entity
	var dom, state, prev, changedAt, deadline, attrs, createdAt, updatedAt string
	var overdue int

	err := rows.Scan(&e.ID, &dom, &e.Name, &state, &prev, &changedAt,
		&deadline, &overdue, &attrs, &createdAt, &updatedAt)
	if err != nil {
		return domain.Entity{}, fmt.Errorf("scanning entity row: %w", err)
	}

	return r.hydrate(e, dom, state, prev, changedAt, deadline, attrs, createdAt, updatedAt, overdue)
}

func (r *EntityRepository) hydrate(e domain.Entity, dom, state, prev, changedAt, deadline, attrs, createdAt, updatedAt string, overdue int) (domain.Entity, error) {
	e.Domain = domain.Domain(dom)
	e.State = domain.State(state)
	e.PreviousState = domain.State(prev)
	e.StateChangedAt, _ = time.Parse(timeFormat, changedAt)
	e.SLADeadline, _ = time.Parse(timeFormat, deadline)
	e.SLAOverdue = overdue != 0
	e.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	e.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)

	if err := json.Unmarshal([]byte(attrs), &e.Attrs); err != nil {
		return domain.Entity{}, fmt.Errorf("decoding attributes: %w", err)
	}
	if e.Attrs == nil {
		e.Attrs = make(map[string]string)
	}

	return e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
