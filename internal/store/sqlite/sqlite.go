package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/wirerelay/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	kind        TEXT    NOT NULL,
	conn_id     TEXT    NOT NULL,
	remote      TEXT    NOT NULL DEFAULT '',
	identity    INTEGER NOT NULL DEFAULT 0,
	destination INTEGER NOT NULL DEFAULT 0,
	recipients  INTEGER NOT NULL DEFAULT 0,
	code        TEXT    NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_events_conn ON audit_events(conn_id);
`

// SQLiteStore implements store.Journal for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens (or creates) the journal database at dbPath and applies the schema.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(schema)
		return err
	})
}

// NewWithSetup opens the database and runs setup instead of the default schema.
// Useful for tests.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Single connection: in-memory databases are per connection and the
	// recorder is the only writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Append stores one audit entry.
func (s *SQLiteStore) Append(ctx context.Context, e store.Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO audit_events (kind, conn_id, remote, identity, destination, recipients, code, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		e.Kind, e.ConnID, e.Remote, e.Identity, e.Destination, e.Recipients, e.Code, e.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]store.Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, kind, conn_id, remote, identity, destination, recipients, code, created_at
		FROM audit_events
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	entries := make([]store.Entry, 0, limit)
	for rows.Next() {
		var e store.Entry
		if err := rows.Scan(&e.ID, &e.Kind, &e.ConnID, &e.Remote, &e.Identity,
			&e.Destination, &e.Recipients, &e.Code, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return entries, nil
}

var _ store.Journal = (*SQLiteStore)(nil)
