// ABOUTME: Message persistence for the SQLite store
// ABOUTME: Implements backend.Receiver so inbound messages are recorded against their contact

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/2389/junebug-bridge/internal/backend"
)

const messageColumns = `id, backend_id, contact_uuid, type, text, is_archived, is_flagged, created_on`

// ReceiveMessage records an inbound message, creating its contact on first
// contact. A message whose external id was already recorded is returned
// unchanged rather than stored twice.
func (s *SQLiteStore) ReceiveMessage(ctx context.Context, in backend.IncomingMessage) (*backend.Message, error) {
	backendID := in.ExternalID
	if backendID == "" {
		backendID = uuid.NewString()
	}
	createdOn := in.CreatedOn
	if createdOn.IsZero() {
		createdOn = time.Now()
	}
	createdOn = createdOn.UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO contacts (uuid, name, urn, created_on)
		VALUES (?, '', ?, ?)
		ON CONFLICT(uuid) DO UPDATE SET urn = COALESCE(contacts.urn, excluded.urn)
	`, in.ContactUUID, nullString(in.URN), createdOn.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("recording contact: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO messages (backend_id, contact_uuid, type, text, created_on)
		VALUES (?, ?, ?, ?, ?)
	`, backendID, in.ContactUUID, backend.MessageTypeInbox, in.Text, createdOn.Format(time.RFC3339Nano))
	if isConstraintViolation(err) {
		_ = tx.Rollback()
		s.logger.Debug("message already recorded", "backend_id", backendID)
		return s.GetMessageByBackendID(ctx, backendID)
	}
	if err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading message id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing message: %w", err)
	}

	s.logger.Debug("received message", "id", id, "contact", in.ContactUUID)
	return &backend.Message{
		ID:          id,
		BackendID:   backendID,
		ContactUUID: in.ContactUUID,
		Type:        backend.MessageTypeInbox,
		Text:        in.Text,
		CreatedOn:   createdOn,
	}, nil
}

// GetMessage retrieves a message by id.
// Returns ErrNotFound if the message doesn't exist.
func (s *SQLiteStore) GetMessage(ctx context.Context, id int64) (*backend.Message, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	return scanMessage(row)
}

// GetMessageByBackendID retrieves a message by its gateway id.
// Returns ErrNotFound if the message doesn't exist.
func (s *SQLiteStore) GetMessageByBackendID(ctx context.Context, backendID string) (*backend.Message, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE backend_id = ?`, backendID)
	return scanMessage(row)
}

// ListContactMessages returns a contact's most recent messages in
// chronological order. A limit of 0 or less returns them all.
func (s *SQLiteStore) ListContactMessages(ctx context.Context, contactUUID string, limit int) ([]*backend.Message, error) {
	var query string
	var args []any

	if limit > 0 {
		query = `
			SELECT ` + messageColumns + ` FROM (
				SELECT ` + messageColumns + ` FROM messages
				WHERE contact_uuid = ?
				ORDER BY created_on DESC, id DESC
				LIMIT ?
			)
			ORDER BY created_on ASC, id ASC
		`
		args = []any{contactUUID, limit}
	} else {
		query = `
			SELECT ` + messageColumns + ` FROM messages
			WHERE contact_uuid = ?
			ORDER BY created_on ASC, id ASC
		`
		args = []any{contactUUID}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	messages := []*backend.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}
	return messages, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(row scanner) (*backend.Message, error) {
	var msg backend.Message
	var createdOn string

	err := row.Scan(
		&msg.ID,
		&msg.BackendID,
		&msg.ContactUUID,
		&msg.Type,
		&msg.Text,
		&msg.IsArchived,
		&msg.IsFlagged,
		&createdOn,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning message: %w", err)
	}

	msg.CreatedOn, err = time.Parse(time.RFC3339Nano, createdOn)
	if err != nil {
		return nil, fmt.Errorf("parsing message created_on: %w", err)
	}
	return &msg, nil
}
