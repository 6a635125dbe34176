// Package sqlite is the SQLite implementation of sagalog.Repository and
// sagalog.Reader, on the pure-Go modernc driver.
//
// WAL mode is enabled on Open so the checkout path can append while the
// admin endpoints read.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Kyellog-silog/rustique-cafe/internal/coordinator/sagalog"

	_ "modernc.org/sqlite"
)

// The table is append-only; the row with the highest id per saga_id is the
// saga's current state.
const schema = `
CREATE TABLE IF NOT EXISTS saga_logs (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    saga_id         TEXT        NOT NULL,
    owner_id        TEXT        NOT NULL DEFAULT '',
    status          TEXT        NOT NULL,
    current_step    TEXT        NOT NULL DEFAULT '',
    payload         TEXT,
    error_messages  TEXT        NOT NULL DEFAULT '[]',
    trace_id        TEXT        NOT NULL DEFAULT '',
    span_id         TEXT        NOT NULL DEFAULT '',
    updated_at      TEXT        NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_saga_logs_saga_id ON saga_logs(saga_id, id);
CREATE INDEX IF NOT EXISTS idx_saga_logs_trace_id ON saga_logs(trace_id);
`

// ownerIndex is created after migrate so files written before owner_id
// existed get the column first.
const ownerIndex = `CREATE INDEX IF NOT EXISTS idx_saga_logs_owner ON saga_logs(owner_id, saga_id, id);`

const timeLayout = "2006-01-02T15:04:05.999999999Z"

// Repository appends to and reads from the saga_logs table.
type Repository struct {
	db *sql.DB
}

var (
	_ sagalog.Repository = (*Repository)(nil)
	_ sagalog.Reader     = (*Repository)(nil)
)

// Open opens (or creates) the database at path and applies the schema.
//
//	repo, err := sqlite.Open("./data/checkout-log.db")
func Open(path string) (*Repository, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	// Single writer connection; SQLite serialises writes anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repository{db: db}, nil
}

// migrate adds owner_id to logs created before entries were owner-scoped.
// Their rows keep an empty owner and are no longer visible through Reader.
func migrate(db *sql.DB) error {
	var n int
	if err := db.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info('saga_logs') WHERE name = 'owner_id'`,
	).Scan(&n); err != nil {
		return fmt.Errorf("sqlite: inspect saga_logs: %w", err)
	}
	if n == 0 {
		if _, err := db.Exec(`ALTER TABLE saga_logs ADD COLUMN owner_id TEXT NOT NULL DEFAULT ''`); err != nil {
			return fmt.Errorf("sqlite: add owner_id: %w", err)
		}
	}
	if _, err := db.Exec(ownerIndex); err != nil {
		return fmt.Errorf("sqlite: index owner_id: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Save appends entry; earlier rows of the same saga are never touched.
func (r *Repository) Save(ctx context.Context, entry *sagalog.SagaLog) error {
	const q = `
		INSERT INTO saga_logs
			(saga_id, owner_id, status, current_step, payload, error_messages, trace_id, span_id, updated_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		entry.SagaID,
		entry.Owner,
		string(entry.Status),
		entry.CurrentStep,
		nullableString(entry.Payload),
		entry.ErrorMessages,
		entry.TraceID,
		entry.SpanID,
		entry.UpdatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save saga log for %q: %w", entry.SagaID, err)
	}
	return nil
}

const selectColumns = `saga_id, owner_id, status, current_step, COALESCE(payload,''), error_messages,
		       trace_id, span_id, updated_at`

// GetLatest returns the newest entry of sagaID written for owner.
func (r *Repository) GetLatest(ctx context.Context, owner, sagaID string) (*sagalog.SagaLog, error) {
	q := `SELECT ` + selectColumns + `
		FROM   saga_logs
		WHERE  saga_id = ? AND owner_id = ?
		ORDER  BY id DESC
		LIMIT  1`

	entry, err := scanEntry(r.db.QueryRowContext(ctx, q, sagaID, owner))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite: saga %q: %w", sagaID, sagalog.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get latest for %q: %w", sagaID, err)
	}
	return entry, nil
}

// ListLatestByStatus returns owner's sagas whose newest entry is in status.
func (r *Repository) ListLatestByStatus(ctx context.Context, owner string, status sagalog.Status, limit int) ([]sagalog.SagaLog, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + selectColumns + `
		FROM   saga_logs
		WHERE  id IN (SELECT MAX(id) FROM saga_logs WHERE owner_id = ? GROUP BY saga_id)
		  AND  status = ?
		ORDER  BY id DESC
		LIMIT  ?`

	rows, err := r.db.QueryContext(ctx, q, owner, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list sagas in %s: %w", status, err)
	}
	defer rows.Close()

	var out []sagalog.SagaLog
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan saga log: %w", err)
		}
		out = append(out, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list sagas in %s: %w", status, err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*sagalog.SagaLog, error) {
	var entry sagalog.SagaLog
	var updatedAt string
	if err := row.Scan(
		&entry.SagaID,
		&entry.Owner,
		&entry.Status,
		&entry.CurrentStep,
		&entry.Payload,
		&entry.ErrorMessages,
		&entry.TraceID,
		&entry.SpanID,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("sqlite: parse updated_at %q: %w", updatedAt, err)
	}
	entry.UpdatedAt = t
	return &entry, nil
}

// nullableString stores NULL instead of an empty payload on non-STARTED rows.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
