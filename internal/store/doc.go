// Package store keeps the host system's records in SQLite: contacts,
// messages, groups and labels. It implements backend.Receiver, so inbound
// webhook messages land here when the bridge runs standalone.
package store
