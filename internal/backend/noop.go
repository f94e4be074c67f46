// ABOUTME: No-op implementation of the sync contract
// ABOUTME: Embedded by backends that do not own contacts, groups, labels or message state

package backend

import (
	"context"
	"time"
)

// NoopSync satisfies Syncer without doing anything. Pulls report zero
// changes, mutations succeed without effect, and fetches return an empty list.
type NoopSync struct{}

var _ Syncer = NoopSync{}

func (NoopSync) PullContacts(context.Context, *Org, *time.Time, *time.Time) (SyncResult, error) {
	return SyncResult{}, nil
}

func (NoopSync) PullFields(context.Context, *Org) (SyncResult, error) {
	return SyncResult{}, nil
}

func (NoopSync) PullGroups(context.Context, *Org) (SyncResult, error) {
	return SyncResult{}, nil
}

func (NoopSync) PullLabels(context.Context, *Org) (SyncResult, error) {
	return SyncResult{}, nil
}

func (NoopSync) PullMessages(context.Context, *Org, *time.Time, *time.Time, bool) (SyncResult, error) {
	return SyncResult{}, nil
}

func (NoopSync) PushLabel(context.Context, *Org, string) error {
	return nil
}

func (NoopSync) AddToGroup(context.Context, *Org, *Contact, *Group) error {
	return nil
}

func (NoopSync) RemoveFromGroup(context.Context, *Org, *Contact, *Group) error {
	return nil
}

func (NoopSync) StopRuns(context.Context, *Org, *Contact) error {
	return nil
}

func (NoopSync) LabelMessages(context.Context, *Org, []*Message, *Label) error {
	return nil
}

func (NoopSync) UnlabelMessages(context.Context, *Org, []*Message, *Label) error {
	return nil
}

func (NoopSync) ArchiveMessages(context.Context, *Org, []*Message) error {
	return nil
}

func (NoopSync) ArchiveContactMessages(context.Context, *Org, *Contact) error {
	return nil
}

func (NoopSync) RestoreMessages(context.Context, *Org, []*Message) error {
	return nil
}

func (NoopSync) FlagMessages(context.Context, *Org, []*Message) error {
	return nil
}

func (NoopSync) UnflagMessages(context.Context, *Org, []*Message) error {
	return nil
}

func (NoopSync) FetchContactMessages(context.Context, *Org, *Contact, *time.Time, *time.Time) ([]*Message, error) {
	return []*Message{}, nil
}
