// ABOUTME: JSON API for pushing outgoing messages and resolving identities
// ABOUTME: Bearer token middleware plus handlers mapping backend errors to statuses

package bridge

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/2389/junebug-bridge/internal/backend"
	"github.com/2389/junebug-bridge/internal/identity"
	"github.com/2389/junebug-bridge/internal/junebug"
)

const maxAPIBody = 1 << 20

// outgoingRequest is the body of POST /api/outgoing.
type outgoingRequest struct {
	Org      *backend.Org      `json:"org"`
	Messages []outgoingMessage `json:"messages"`
}

type outgoingMessage struct {
	Text    string           `json:"text"`
	URN     string           `json:"urn,omitempty"`
	Contact *backend.Contact `json:"contact,omitempty"`
}

type outgoingResponse struct {
	Sent int `json:"sent"`
}

type addressesResponse struct {
	Identity    string   `json:"identity"`
	AddressType string   `json:"address_type"`
	Addresses   []string `json:"addresses"`
}

type apiError struct {
	Error string `json:"error"`
}

// outgoingError reports a batch that stopped early. Sent counts the messages
// submitted before the failing one.
type outgoingError struct {
	Error string `json:"error"`
	Sent  int    `json:"sent"`
}

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// requireToken rejects requests that do not carry the expected bearer token.
// An empty expected token leaves the routes open.
func requireToken(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if expected == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, errMsg := extractBearerToken(r.Header.Get("Authorization"))
			if errMsg != "" {
				writeAPIError(w, http.StatusUnauthorized, errMsg)
				return
			}
			if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
				writeAPIError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// handleOutgoing pushes a batch through the Junebug backend.
func (b *Bridge) handleOutgoing(w http.ResponseWriter, r *http.Request) {
	var req outgoingRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAPIBody)).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	msgs := make([]backend.OutgoingMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = backend.OutgoingMessage{Text: m.Text, URN: m.URN, Contact: m.Contact}
	}

	if err := b.backend.PushOutgoing(r.Context(), req.Org, msgs); err != nil {
		resp := outgoingError{Error: err.Error()}
		var batchErr *junebug.BatchError
		if errors.As(err, &batchErr) {
			resp.Sent = batchErr.Index
		}
		writeAPIJSON(w, outgoingStatus(err), resp)
		return
	}
	writeAPIJSON(w, http.StatusOK, outgoingResponse{Sent: len(msgs)})
}

// outgoingStatus maps a PushOutgoing failure to an HTTP status.
func outgoingStatus(err error) int {
	var unaddressable *junebug.UnaddressableError
	var sendErr *junebug.SendError
	switch {
	case errors.As(err, &unaddressable):
		return http.StatusUnprocessableEntity
	case errors.As(err, &sendErr), identity.IsResolutionError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// handleAddresses resolves an identity to its addresses, following
// communicate_through.
func (b *Bridge) handleAddresses(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	addrType := r.URL.Query().Get("type")
	if addrType == "" {
		addrType = b.identity.AddressType()
	}

	addrs, err := b.identity.GetAddresses(r.Context(), id, addrType)
	if err != nil {
		status := http.StatusBadGateway
		var re *identity.ResolutionError
		if errors.As(err, &re) && re.StatusCode == http.StatusNotFound {
			status = http.StatusNotFound
		}
		writeAPIError(w, status, err.Error())
		return
	}
	if addrs == nil {
		addrs = []string{}
	}
	writeAPIJSON(w, http.StatusOK, addressesResponse{Identity: id, AddressType: addrType, Addresses: addrs})
}

func writeAPIError(w http.ResponseWriter, status int, msg string) {
	writeAPIJSON(w, status, apiError{Error: msg})
}

func writeAPIJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
