// ABOUTME: Group and label persistence for the SQLite store
// ABOUTME: Contact group membership and message labelling

package store

import (
	"context"
	"fmt"

	"github.com/2389/junebug-bridge/internal/backend"
)

// CreateGroup creates a group. Returns ErrDuplicate if the UUID is taken.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *backend.Group) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO host_groups (uuid, name) VALUES (?, ?)`,
		group.UUID, group.Name,
	)
	if isConstraintViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("inserting group: %w", err)
	}
	return nil
}

// AddToGroup adds a contact to a group. Adding an existing member is a no-op.
// Returns ErrNotFound if either side doesn't exist.
func (s *SQLiteStore) AddToGroup(ctx context.Context, contactUUID, groupUUID string) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO group_members (contact_uuid, group_uuid)
		SELECT c.uuid, g.uuid FROM contacts c, host_groups g
		WHERE c.uuid = ? AND g.uuid = ?
	`, contactUUID, groupUUID)
	if err != nil {
		return fmt.Errorf("adding group member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM group_members WHERE contact_uuid = ? AND group_uuid = ?`,
			contactUUID, groupUUID,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("checking group member: %w", err)
		}
		if exists == 0 {
			return ErrNotFound
		}
	}
	return nil
}

// ListContactGroups returns the groups a contact belongs to, by name.
func (s *SQLiteStore) ListContactGroups(ctx context.Context, contactUUID string) ([]*backend.Group, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.uuid, g.name FROM host_groups g
		JOIN group_members m ON m.group_uuid = g.uuid
		WHERE m.contact_uuid = ?
		ORDER BY g.name ASC
	`, contactUUID)
	if err != nil {
		return nil, fmt.Errorf("querying groups: %w", err)
	}
	defer rows.Close()

	groups := []*backend.Group{}
	for rows.Next() {
		var g backend.Group
		if err := rows.Scan(&g.UUID, &g.Name); err != nil {
			return nil, fmt.Errorf("scanning group row: %w", err)
		}
		groups = append(groups, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating group rows: %w", err)
	}
	return groups, nil
}

// CreateLabel creates a label. Returns ErrDuplicate if the UUID or name is taken.
func (s *SQLiteStore) CreateLabel(ctx context.Context, label *backend.Label) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO labels (uuid, name) VALUES (?, ?)`,
		label.UUID, label.Name,
	)
	if isConstraintViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("inserting label: %w", err)
	}
	return nil
}

// LabelMessage applies a label to a message. Relabelling is a no-op.
// Returns ErrNotFound if either side doesn't exist.
func (s *SQLiteStore) LabelMessage(ctx context.Context, messageID int64, labelUUID string) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO message_labels (message_id, label_uuid)
		SELECT m.id, l.uuid FROM messages m, labels l
		WHERE m.id = ? AND l.uuid = ?
	`, messageID, labelUUID)
	if err != nil {
		return fmt.Errorf("labelling message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM message_labels WHERE message_id = ? AND label_uuid = ?`,
			messageID, labelUUID,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("checking message label: %w", err)
		}
		if exists == 0 {
			return ErrNotFound
		}
	}
	return nil
}

// ListMessageLabels returns the labels on a message, by name.
func (s *SQLiteStore) ListMessageLabels(ctx context.Context, messageID int64) ([]*backend.Label, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.uuid, l.name FROM labels l
		JOIN message_labels ml ON ml.label_uuid = l.uuid
		WHERE ml.message_id = ?
		ORDER BY l.name ASC
	`, messageID)
	if err != nil {
		return nil, fmt.Errorf("querying labels: %w", err)
	}
	defer rows.Close()

	labels := []*backend.Label{}
	for rows.Next() {
		var l backend.Label
		if err := rows.Scan(&l.UUID, &l.Name); err != nil {
			return nil, fmt.Errorf("scanning label row: %w", err)
		}
		labels = append(labels, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating label rows: %w", err)
	}
	return labels, nil
}
