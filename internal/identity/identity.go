// ABOUTME: Identity store data types
// ABOUTME: Identity records, address records, and the paginated list envelope

package identity

import "encoding/json"

// DefaultAddressType is the address type used when none is configured.
const DefaultAddressType = "msisdn"

// Identity is an identity store record. Only the fields resolution relies
// on are typed; the rest are kept verbatim.
type Identity struct {
	ID                 string          `json:"id"`
	CommunicateThrough *string         `json:"communicate_through"`
	Details            json.RawMessage `json:"details,omitempty"`
	Version            json.RawMessage `json:"version,omitempty"`
	Operator           json.RawMessage `json:"operator,omitempty"`
	CreatedAt          json.RawMessage `json:"created_at,omitempty"`
	UpdatedAt          json.RawMessage `json:"updated_at,omitempty"`
}

// Delegate returns the identity this one communicates through, or "" when it
// is reachable directly.
func (i *Identity) Delegate() string {
	if i.CommunicateThrough == nil {
		return ""
	}
	return *i.CommunicateThrough
}

// Address is one entry of an identity's address list.
type Address struct {
	Address string `json:"address"`
}

// page is the envelope every list endpoint returns.
type page struct {
	Count    int               `json:"count"`
	Next     *string           `json:"next"`
	Previous *string           `json:"previous"`
	Results  []json.RawMessage `json:"results"`
}

// newIdentityRequest is the body of POST /api/v1/identities/.
type newIdentityRequest struct {
	Details newIdentityDetails `json:"details"`
}

type newIdentityDetails struct {
	DefaultAddrType string                               `json:"default_addr_type"`
	Addresses       map[string]map[string]map[string]any `json:"addresses"`
}
