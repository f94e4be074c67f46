// ABOUTME: Host-system data types shared by backends
// ABOUTME: Org, Contact, Group, Label, Message, and the outgoing/incoming message shapes

package backend

import "time"

// Org is the host tenant a call is made on behalf of.
type Org struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Contact is a host contact. UUID doubles as the identity store key.
type Contact struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

// Group is a host contact group.
type Group struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

// Label is a host message label.
type Label struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

// Message types.
const (
	MessageTypeInbox = "I"
	MessageTypeFlow  = "F"
)

// Message is a host message record.
type Message struct {
	ID          int64     `json:"id"`
	BackendID   string    `json:"backend_id"`
	ContactUUID string    `json:"contact"`
	Type        string    `json:"type"`
	Text        string    `json:"text"`
	IsArchived  bool      `json:"archived"`
	IsFlagged   bool      `json:"flagged"`
	CreatedOn   time.Time `json:"created_on"`
}

// OutgoingMessage is a message the host wants delivered. URN takes
// precedence over Contact.
type OutgoingMessage struct {
	Text    string
	URN     string
	Contact *Contact
}

// IncomingMessage is a message received from the gateway, ready for the host.
type IncomingMessage struct {
	ContactUUID string
	URN         string
	Text        string
	ExternalID  string
	CreatedOn   time.Time
}

// SyncResult counts the outcome of a pull.
type SyncResult struct {
	Created int
	Updated int
	Deleted int
	Ignored int
}

// Route describes an HTTP endpoint a backend needs the host to expose.
type Route struct {
	Name    string
	Method  string
	Pattern string
}
