// ABOUTME: Store interface and errors for the host record store
// ABOUTME: Contacts, messages, groups and labels keyed the way the host keys them

package store

import (
	"context"
	"errors"

	"github.com/2389/junebug-bridge/internal/backend"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when creating an entity whose key is taken
var ErrDuplicate = errors.New("already exists")

// Counts is the number of rows in each table.
type Counts struct {
	Contacts      int `json:"contacts"`
	Messages      int `json:"messages"`
	Groups        int `json:"groups"`
	GroupMembers  int `json:"group_members"`
	Labels        int `json:"labels"`
	MessageLabels int `json:"message_labels"`
}

// Store is the host record store.
type Store interface {
	backend.Receiver

	UpsertContact(ctx context.Context, contact *backend.Contact) error
	GetContact(ctx context.Context, uuid string) (*backend.Contact, error)
	ListContacts(ctx context.Context) ([]*backend.Contact, error)

	GetMessage(ctx context.Context, id int64) (*backend.Message, error)
	GetMessageByBackendID(ctx context.Context, backendID string) (*backend.Message, error)
	ListContactMessages(ctx context.Context, contactUUID string, limit int) ([]*backend.Message, error)

	CreateGroup(ctx context.Context, group *backend.Group) error
	AddToGroup(ctx context.Context, contactUUID, groupUUID string) error
	ListContactGroups(ctx context.Context, contactUUID string) ([]*backend.Group, error)

	CreateLabel(ctx context.Context, label *backend.Label) error
	LabelMessage(ctx context.Context, messageID int64, labelUUID string) error
	ListMessageLabels(ctx context.Context, messageID int64) ([]*backend.Label, error)

	Counts(ctx context.Context) (Counts, error)
	Ping(ctx context.Context) error
	Close() error
}
