// ABOUTME: Shared fakes for Junebug backend tests
// ABOUTME: Recording HTTP servers standing in for the gateway and the identity store

package junebug

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/2389/junebug-bridge/internal/identity"
)

type recordedRequest struct {
	Method string
	URI    string
	Header http.Header
	Body   []byte
}

// recorder wraps a handler and keeps every request it sees.
type recorder struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  http.HandlerFunc
}

func (rec *recorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	rec.mu.Lock()
	rec.requests = append(rec.requests, recordedRequest{
		Method: r.Method,
		URI:    r.URL.RequestURI(),
		Header: r.Header.Clone(),
		Body:   body,
	})
	rec.mu.Unlock()
	rec.handler(w, r)
}

func (rec *recorder) Requests() []recordedRequest {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]recordedRequest(nil), rec.requests...)
}

func serve(t *testing.T, h http.HandlerFunc) (*recorder, *httptest.Server) {
	t.Helper()
	rec := &recorder{handler: h}
	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)
	return rec, srv
}

func writeTestJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// gatewayCreated replies the way the gateway acknowledges a message.
func gatewayCreated(id string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusCreated, map[string]any{
			"status":      201,
			"code":        "created",
			"description": "message submitted",
			"result":      map[string]any{"id": id},
		})
	}
}

// identityStoreFake serves fixed JSON bodies keyed by request URI; unknown
// URIs get a 404.
func identityStoreFake(responses map[string]any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := responses[r.URL.RequestURI()]
		if !ok {
			writeTestJSON(w, http.StatusNotFound, map[string]any{"detail": "Not found."})
			return
		}
		writeTestJSON(w, http.StatusOK, body)
	}
}

func identityRecord(id string) map[string]any {
	return map[string]any{
		"id":                  id,
		"version":             1,
		"details":             map[string]any{},
		"communicate_through": nil,
		"operator":            nil,
		"created_at":          "2016-06-23T13:03:18.674016Z",
		"created_by":          1,
		"updated_at":          "2016-06-23T13:03:18.674043Z",
		"updated_by":          1,
	}
}

func addressPage(addresses ...string) map[string]any {
	results := make([]map[string]any, 0, len(addresses))
	for _, a := range addresses {
		results = append(results, map[string]any{"address": a})
	}
	return map[string]any{
		"count":    len(results),
		"next":     nil,
		"previous": nil,
		"results":  results,
	}
}

func newTestBackend(t *testing.T, gatewayURL, storeURL string, cfg Config, opts ...Option) *Backend {
	t.Helper()
	cfg.URL = gatewayURL
	resolver := identity.New(storeURL, "identity-token", "")
	return New(cfg, resolver, opts...)
}
