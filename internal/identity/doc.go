// Package identity is a client for the identity store, the service that maps
// an opaque identity reference (a contact's UUID in the host system) to the
// physical addresses it can be reached on.
//
// # Resolution
//
// GetAddresses fetches the identity record first. When the record names a
// communicate_through identity, the client follows it and returns the
// addresses of the identity at the end of the chain, never those of the
// starting one. Chains are bounded (WithMaxIndirection, default 10) and cycles
// are reported as ErrIndirectionCycle.
//
// # Pagination
//
// List endpoints return an envelope:
//
//	{"count": 3, "next": "https://.../?limit=2&offset=2", "previous": null, "results": [...]}
//
// GetPaginatedResponse follows next links verbatim until next is null and
// returns every page's results concatenated in fetch order.
//
// # Errors
//
// Every failure (transport, non-2xx, malformed JSON, missing fields) is a
// *ResolutionError. The client never retries.
package identity
