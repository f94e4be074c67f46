// ABOUTME: Shared fixtures for bridge tests
// ABOUTME: Fake gateway and identity store servers plus a ready-made Config

package bridge

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/2389/junebug-bridge/internal/backend"
	"github.com/2389/junebug-bridge/internal/config"
)

type fakeServer struct {
	mu       sync.Mutex
	requests []string
	bodies   [][]byte
	handler  http.HandlerFunc
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.RequestURI())
	f.bodies = append(f.bodies, body)
	f.mu.Unlock()
	f.handler(w, r)
}

func (f *fakeServer) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func (f *fakeServer) Bodies() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.bodies...)
}

func startFake(t *testing.T, h http.HandlerFunc) (*fakeServer, string) {
	t.Helper()
	f := &fakeServer{handler: h}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv.URL
}

func writeTestJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func gatewayAccepts(w http.ResponseWriter, r *http.Request) {
	writeTestJSON(w, http.StatusCreated, map[string]any{
		"status":      201,
		"code":        "created",
		"description": "message submitted",
		"result":      map[string]any{"id": "jb-out-1"},
	})
}

// identityStore serves fixed bodies keyed by request URI and 404s the rest.
func identityStore(responses map[string]any) http.HandlerFunc {
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
		"created_at":          "2016-06-23T13:03:18.674016Z",
		"updated_at":          "2016-06-23T13:03:18.674043Z",
	}
}

func listPage(results ...map[string]any) map[string]any {
	if results == nil {
		results = []map[string]any{}
	}
	return map[string]any{"count": len(results), "next": nil, "previous": nil, "results": results}
}

func testConfig(gatewayURL, storeURL string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{HTTPAddr: "127.0.0.1:0"},
		Junebug: config.JunebugConfig{
			URL:        gatewayURL,
			ChannelID:  config.DefaultChannelID,
			InboundURL: config.DefaultInboundURL,
			Timeout:    5 * time.Second,
		},
		IdentityStore: config.IdentityStoreConfig{
			URL:            storeURL,
			AuthToken:      "identity-token",
			AddressType:    config.DefaultAddressType,
			MaxIndirection: config.DefaultMaxIndirection,
			Timeout:        5 * time.Second,
		},
		Inbound: config.InboundConfig{DedupeSize: config.DefaultDedupeSize},
		Logging: config.LoggingConfig{Level: "info", Format: "text"},
		Metrics: config.MetricsConfig{Path: config.DefaultMetricsPath},
	}
}

func newTestBridge(t *testing.T, cfg *config.Config, opts ...Option) *Bridge {
	t.Helper()
	b, err := New(cfg, slog.New(slog.DiscardHandler), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Shutdown(context.Background()) })
	return b
}

// memReceiver records inbound messages in memory.
type memReceiver struct {
	mu       sync.Mutex
	received []backend.IncomingMessage
}

func (m *memReceiver) ReceiveMessage(ctx context.Context, in backend.IncomingMessage) (*backend.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.received = append(m.received, in)
	return &backend.Message{
		ID:          int64(len(m.received)),
		BackendID:   in.ExternalID,
		ContactUUID: in.ContactUUID,
		Type:        backend.MessageTypeInbox,
		Text:        in.Text,
		CreatedOn:   in.CreatedOn,
	}, nil
}

func (m *memReceiver) Received() []backend.IncomingMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]backend.IncomingMessage(nil), m.received...)
}
