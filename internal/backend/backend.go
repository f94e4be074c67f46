// ABOUTME: Backend and Receiver interfaces for host-system integration
// ABOUTME: The sync contract every messaging backend satisfies

package backend

import (
	"context"
	"time"
)

// Syncer is the synchronisation half of the contract.
type Syncer interface {
	PullContacts(ctx context.Context, org *Org, modifiedAfter, modifiedBefore *time.Time) (SyncResult, error)
	PullFields(ctx context.Context, org *Org) (SyncResult, error)
	PullGroups(ctx context.Context, org *Org) (SyncResult, error)
	PullLabels(ctx context.Context, org *Org) (SyncResult, error)
	PullMessages(ctx context.Context, org *Org, modifiedAfter, modifiedBefore *time.Time, asHandled bool) (SyncResult, error)

	PushLabel(ctx context.Context, org *Org, name string) error
	AddToGroup(ctx context.Context, org *Org, contact *Contact, group *Group) error
	RemoveFromGroup(ctx context.Context, org *Org, contact *Contact, group *Group) error
	StopRuns(ctx context.Context, org *Org, contact *Contact) error

	LabelMessages(ctx context.Context, org *Org, messages []*Message, label *Label) error
	UnlabelMessages(ctx context.Context, org *Org, messages []*Message, label *Label) error
	ArchiveMessages(ctx context.Context, org *Org, messages []*Message) error
	ArchiveContactMessages(ctx context.Context, org *Org, contact *Contact) error
	RestoreMessages(ctx context.Context, org *Org, messages []*Message) error
	FlagMessages(ctx context.Context, org *Org, messages []*Message) error
	UnflagMessages(ctx context.Context, org *Org, messages []*Message) error

	FetchContactMessages(ctx context.Context, org *Org, contact *Contact, createdAfter, createdBefore *time.Time) ([]*Message, error)
}

// Backend is the full contract a messaging backend offers the host.
type Backend interface {
	Syncer

	// PushOutgoing delivers msgs in order and stops at the first failure.
	PushOutgoing(ctx context.Context, org *Org, msgs []OutgoingMessage) error

	// Routes lists the HTTP endpoints the backend needs exposed.
	Routes() []Route
}

// Receiver accepts inbound messages on behalf of the host.
type Receiver interface {
	ReceiveMessage(ctx context.Context, msg IncomingMessage) (*Message, error)
}
