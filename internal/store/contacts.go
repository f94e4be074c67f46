// ABOUTME: Contact persistence for the SQLite store
// ABOUTME: Contacts are keyed by the identity store id

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/2389/junebug-bridge/internal/backend"
)

// UpsertContact creates the contact or renames an existing one.
func (s *SQLiteStore) UpsertContact(ctx context.Context, contact *backend.Contact) error {
	query := `
		INSERT INTO contacts (uuid, name, created_on)
		VALUES (?, ?, ?)
		ON CONFLICT(uuid) DO UPDATE SET name = excluded.name
	`

	_, err := s.db.ExecContext(ctx, query,
		contact.UUID,
		contact.Name,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upserting contact: %w", err)
	}
	return nil
}

// GetContact retrieves a contact by UUID.
// Returns ErrNotFound if the contact doesn't exist.
func (s *SQLiteStore) GetContact(ctx context.Context, uuid string) (*backend.Contact, error) {
	var c backend.Contact
	err := s.db.QueryRowContext(ctx,
		`SELECT uuid, name FROM contacts WHERE uuid = ?`, uuid,
	).Scan(&c.UUID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying contact: %w", err)
	}
	return &c, nil
}

// ListContacts returns every contact, oldest first.
func (s *SQLiteStore) ListContacts(ctx context.Context) ([]*backend.Contact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT uuid, name FROM contacts ORDER BY created_on ASC, uuid ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying contacts: %w", err)
	}
	defer rows.Close()

	contacts := []*backend.Contact{}
	for rows.Next() {
		var c backend.Contact
		if err := rows.Scan(&c.UUID, &c.Name); err != nil {
			return nil, fmt.Errorf("scanning contact row: %w", err)
		}
		contacts = append(contacts, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating contact rows: %w", err)
	}
	return contacts, nil
}
