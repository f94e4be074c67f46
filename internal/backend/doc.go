// Package backend defines the contract between the host case-management
// system and a messaging backend.
//
// The host calls a Backend to synchronise contacts, groups, labels and
// messages, and to push outgoing messages. Backends that do not own some of
// that data embed NoopSync, which answers every synchronisation call with an
// empty result and never touches host state.
//
// Inbound traffic flows the other way: a backend hands each received message
// to a Receiver supplied by the host.
package backend
