// ABOUTME: Tests that the Junebug backend's sync calls leave host records alone
// ABOUTME: Runs every no-op against a populated SQLite store and compares before/after

package junebug

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/junebug-bridge/internal/backend"
	"github.com/2389/junebug-bridge/internal/identity"
	"github.com/2389/junebug-bridge/internal/store"
)

type hostFixture struct {
	store *store.SQLiteStore
	bob   *backend.Contact
	group *backend.Group
	label *backend.Label
	msg   *backend.Message
}

func newHostFixture(t *testing.T) *hostFixture {
	t.Helper()
	ctx := context.Background()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "host.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	f := &hostFixture{
		store: s,
		bob:   &backend.Contact{UUID: "C-002", Name: "Bob"},
		group: &backend.Group{UUID: "G-001", Name: "Reporters"},
		label: &backend.Label{UUID: "L-001", Name: "AIDS"},
	}
	require.NoError(t, s.UpsertContact(ctx, f.bob))
	require.NoError(t, s.CreateGroup(ctx, f.group))
	require.NoError(t, s.AddToGroup(ctx, f.bob.UUID, f.group.UUID))
	require.NoError(t, s.CreateLabel(ctx, f.label))
	f.msg, err = s.ReceiveMessage(ctx, backend.IncomingMessage{
		ContactUUID: f.bob.UUID,
		URN:         "tel:+1234",
		Text:        "Hello",
		ExternalID:  "jb-1",
	})
	require.NoError(t, err)
	require.NoError(t, s.LabelMessage(ctx, f.msg.ID, f.label.UUID))
	return f
}

func (f *hostFixture) snapshot(t *testing.T) (store.Counts, *backend.Message, []*backend.Group, []*backend.Label) {
	t.Helper()
	ctx := context.Background()

	counts, err := f.store.Counts(ctx)
	require.NoError(t, err)
	msg, err := f.store.GetMessage(ctx, f.msg.ID)
	require.NoError(t, err)
	groups, err := f.store.ListContactGroups(ctx, f.bob.UUID)
	require.NoError(t, err)
	labels, err := f.store.ListMessageLabels(ctx, f.msg.ID)
	require.NoError(t, err)
	return counts, msg, groups, labels
}

func TestBackend_SyncIsNoop(t *testing.T) {
	f := newHostFixture(t)
	b := New(Config{}, identity.New("http://identity.invalid", "t", ""))
	ctx := context.Background()
	org := &backend.Org{ID: 1, Name: "UNICEF"}
	now := time.Now()
	msgs := []*backend.Message{f.msg}

	counts, msg, groups, labels := f.snapshot(t)

	for name, pull := range map[string]func() (backend.SyncResult, error){
		"contacts": func() (backend.SyncResult, error) { return b.PullContacts(ctx, org, &now, &now) },
		"fields":   func() (backend.SyncResult, error) { return b.PullFields(ctx, org) },
		"groups":   func() (backend.SyncResult, error) { return b.PullGroups(ctx, org) },
		"labels":   func() (backend.SyncResult, error) { return b.PullLabels(ctx, org) },
		"messages": func() (backend.SyncResult, error) { return b.PullMessages(ctx, org, &now, &now, false) },
	} {
		res, err := pull()
		require.NoError(t, err, name)
		assert.Equal(t, backend.SyncResult{}, res, name)
	}

	require.NoError(t, b.PushLabel(ctx, org, "new label"))
	require.NoError(t, b.AddToGroup(ctx, org, f.bob, &backend.Group{UUID: "G-404", Name: "Other"}))
	require.NoError(t, b.RemoveFromGroup(ctx, org, f.bob, f.group))
	require.NoError(t, b.StopRuns(ctx, org, f.bob))
	require.NoError(t, b.LabelMessages(ctx, org, msgs, &backend.Label{UUID: "L-404", Name: "Other"}))
	require.NoError(t, b.UnlabelMessages(ctx, org, msgs, f.label))
	require.NoError(t, b.ArchiveMessages(ctx, org, msgs))
	require.NoError(t, b.ArchiveContactMessages(ctx, org, f.bob))
	require.NoError(t, b.RestoreMessages(ctx, org, msgs))
	require.NoError(t, b.FlagMessages(ctx, org, msgs))
	require.NoError(t, b.UnflagMessages(ctx, org, msgs))

	fetched, err := b.FetchContactMessages(ctx, org, f.bob, nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, fetched)
	assert.Empty(t, fetched)

	afterCounts, afterMsg, afterGroups, afterLabels := f.snapshot(t)
	assert.Equal(t, counts, afterCounts)
	assert.Equal(t, msg, afterMsg)
	assert.Equal(t, groups, afterGroups)
	assert.Equal(t, labels, afterLabels)
}
