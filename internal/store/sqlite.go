// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Opens the database, creates the schema, and reports table sizes

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist.
// Foreign keys are declared for documentation; ReceiveMessage creates the
// contact row it references.
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS contacts (
			uuid TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			urn TEXT,
			created_on TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			backend_id TEXT NOT NULL UNIQUE,
			contact_uuid TEXT NOT NULL REFERENCES contacts(uuid),
			type TEXT NOT NULL DEFAULT 'I',
			text TEXT NOT NULL,
			is_archived INTEGER NOT NULL DEFAULT 0,
			is_flagged INTEGER NOT NULL DEFAULT 0,
			created_on TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_messages_contact_created
			ON messages(contact_uuid, created_on);

		CREATE TABLE IF NOT EXISTS host_groups (
			uuid TEXT PRIMARY KEY,
			name TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS group_members (
			contact_uuid TEXT NOT NULL REFERENCES contacts(uuid),
			group_uuid TEXT NOT NULL REFERENCES host_groups(uuid),
			PRIMARY KEY (contact_uuid, group_uuid)
		);

		CREATE TABLE IF NOT EXISTS labels (
			uuid TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		);

		CREATE TABLE IF NOT EXISTS message_labels (
			message_id INTEGER NOT NULL REFERENCES messages(id),
			label_uuid TEXT NOT NULL REFERENCES labels(uuid),
			PRIMARY KEY (message_id, label_uuid)
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Counts returns the number of rows in every table.
func (s *SQLiteStore) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	tables := []struct {
		name string
		dst  *int
	}{
		{"contacts", &c.Contacts},
		{"messages", &c.Messages},
		{"host_groups", &c.Groups},
		{"group_members", &c.GroupMembers},
		{"labels", &c.Labels},
		{"message_labels", &c.MessageLabels},
	}
	for _, t := range tables {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.name).Scan(t.dst); err != nil {
			return Counts{}, fmt.Errorf("counting %s: %w", t.name, err)
		}
	}
	return c, nil
}

// isConstraintViolation checks if the error is a SQLite UNIQUE constraint violation
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}

// nullString returns nil for empty strings, otherwise the string
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
