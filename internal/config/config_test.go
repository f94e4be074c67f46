// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML and TOML loading, env var expansion and overrides, defaults, and validation

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every override variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"JUNEBUG_URL", "JUNEBUG_CHANNEL_ID", "JUNEBUG_AUTH_TOKEN", "JUNEBUG_FROM_ADDRESS",
		"JUNEBUG_INBOUND_URL", "JUNEBUG_TIMEOUT",
		"IDENTITY_STORE_URL", "IDENTITY_STORE_TOKEN", "IDENTITY_STORE_ADDRESS_TYPE",
		"IDENTITY_STORE_MAX_INDIRECTION", "IDENTITY_STORE_TIMEOUT",
		"JUNEBUG_BRIDGE_HTTP_ADDR", "JUNEBUG_BRIDGE_API_TOKEN", "JUNEBUG_BRIDGE_DB_PATH",
		"JUNEBUG_BRIDGE_DEDUPE_TTL", "JUNEBUG_BRIDGE_DEDUPE_SIZE",
		"JUNEBUG_BRIDGE_LOG_LEVEL", "JUNEBUG_BRIDGE_LOG_FORMAT",
		"JUNEBUG_BRIDGE_METRICS_ENABLED", "JUNEBUG_BRIDGE_METRICS_PATH",
		"JUNEBUG_BRIDGE_OTEL_ENDPOINT", "JUNEBUG_BRIDGE_OTEL_SERVICE_NAME",
		"JUNEBUG_BRIDGE_TAILSCALE_ENABLED", "JUNEBUG_BRIDGE_TAILSCALE_HOSTNAME",
		"JUNEBUG_BRIDGE_TAILSCALE_STATE_DIR", "JUNEBUG_BRIDGE_TAILSCALE_FUNNEL", "TS_AUTHKEY",
		"JUNEBUG_BRIDGE_CONFIG",
	} {
		if old, ok := os.LookupEnv(name); ok {
			t.Cleanup(func() { os.Setenv(name, old) })
			os.Unsetenv(name)
		}
	}
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_YAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "config.yaml", `
server:
  http_addr: "0.0.0.0:9000"
  api_token: "api-secret"

junebug:
  url: "http://junebug.example.org"
  channel_id: "sms-za"
  auth_token: "jb-token"
  from_address: "+4321"
  inbound_url: "/hooks/junebug"
  timeout: "5s"

identity_store:
  url: "https://identities.example.org"
  auth_token: "is-token"
  address_type: "msisdn"
  max_indirection: 3
  timeout: "2s"

database:
  path: "./host.db"

inbound:
  dedupe_ttl: "10m"
  dedupe_size: 500

logging:
  level: "debug"
  format: "json"

metrics:
  enabled: true
  path: "/prom"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Server.HTTPAddr)
	assert.Equal(t, "api-secret", cfg.Server.APIToken)
	assert.Equal(t, JunebugConfig{
		URL:         "http://junebug.example.org",
		ChannelID:   "sms-za",
		AuthToken:   "jb-token",
		FromAddress: "+4321",
		InboundURL:  "/hooks/junebug",
		Timeout:     5 * time.Second,
		TimeoutRaw:  "5s",
	}, cfg.Junebug)
	assert.Equal(t, "https://identities.example.org", cfg.IdentityStore.URL)
	assert.Equal(t, "is-token", cfg.IdentityStore.AuthToken)
	assert.Equal(t, 3, cfg.IdentityStore.MaxIndirection)
	assert.Equal(t, 2*time.Second, cfg.IdentityStore.Timeout)
	assert.Equal(t, "./host.db", cfg.Database.Path)
	assert.Equal(t, 10*time.Minute, cfg.Inbound.DedupeTTL)
	assert.Equal(t, 500, cfg.Inbound.DedupeSize)
	assert.Equal(t, LoggingConfig{Level: "debug", Format: "json"}, cfg.Logging)
	assert.Equal(t, MetricsConfig{Enabled: true, Path: "/prom"}, cfg.Metrics)
}

func TestLoad_TOML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "config.toml", `
[junebug]
url = "http://junebug.example.org"
channel_id = "sms-za"
from_address = "+4321"

[identity_store]
url = "http://identities.example.org"
auth_token = "is-token"
address_type = "email"

[logging]
level = "warn"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sms-za", cfg.Junebug.ChannelID)
	assert.Equal(t, "+4321", cfg.Junebug.FromAddress)
	assert.Equal(t, "email", cfg.IdentityStore.AddressType)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, DefaultInboundURL, cfg.Junebug.InboundURL)
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "config.yaml", "logging:\n  level: info\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultHTTPAddr, cfg.Server.HTTPAddr)
	assert.Equal(t, "http://localhost:8080", cfg.Junebug.URL)
	assert.Equal(t, "replace-me", cfg.Junebug.ChannelID)
	assert.Equal(t, "/junebug/inbound", cfg.Junebug.InboundURL)
	assert.Empty(t, cfg.Junebug.FromAddress)
	assert.Equal(t, "http://localhost:8081", cfg.IdentityStore.URL)
	assert.Equal(t, "msisdn", cfg.IdentityStore.AddressType)
	assert.Equal(t, DefaultMaxIndirection, cfg.IdentityStore.MaxIndirection)
	assert.Equal(t, DefaultTimeout, cfg.Junebug.Timeout)
	assert.Equal(t, DefaultTimeout, cfg.IdentityStore.Timeout)
	assert.Zero(t, cfg.Inbound.DedupeTTL, "redelivery filter is off unless configured")
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "junebug-bridge", cfg.Telemetry.ServiceName)
}

func TestLoad_EnvExpansion(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_JB_TOKEN", "expanded-token")
	path := writeConfig(t, "config.yaml", `
junebug:
  auth_token: "${TEST_JB_TOKEN}"
  from_address: "${TEST_UNSET_VARIABLE}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "expanded-token", cfg.Junebug.AuthToken)
	assert.Empty(t, cfg.Junebug.FromAddress)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("JUNEBUG_URL", "http://override:8080")
	t.Setenv("JUNEBUG_CHANNEL_ID", "from-env")
	t.Setenv("JUNEBUG_FROM_ADDRESS", "+4321")
	t.Setenv("IDENTITY_STORE_TOKEN", "env-token")
	t.Setenv("IDENTITY_STORE_MAX_INDIRECTION", "4")
	t.Setenv("JUNEBUG_BRIDGE_DEDUPE_TTL", "1m")
	t.Setenv("JUNEBUG_BRIDGE_METRICS_ENABLED", "true")
	path := writeConfig(t, "config.yaml", `
junebug:
  url: "http://file:8080"
  channel_id: "from-file"
identity_store:
  auth_token: "file-token"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://override:8080", cfg.Junebug.URL)
	assert.Equal(t, "from-env", cfg.Junebug.ChannelID)
	assert.Equal(t, "+4321", cfg.Junebug.FromAddress)
	assert.Equal(t, "env-token", cfg.IdentityStore.AuthToken)
	assert.Equal(t, 4, cfg.IdentityStore.MaxIndirection)
	assert.Equal(t, time.Minute, cfg.Inbound.DedupeTTL)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("JUNEBUG_INBOUND_URL", "/test/url/")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "/test/url/", cfg.Junebug.InboundURL)
	assert.Equal(t, DefaultJunebugURL, cfg.Junebug.URL)
}

func TestFromEnv_BadValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("IDENTITY_STORE_MAX_INDIRECTION", "lots")

	_, err := FromEnv()
	assert.ErrorContains(t, err, "parsing environment")
}

func TestLoadOrEnv(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadOrEnv(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultChannelID, cfg.Junebug.ChannelID)

	path := writeConfig(t, "config.yaml", "junebug:\n  channel_id: from-file\n")
	cfg, err = LoadOrEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Junebug.ChannelID)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"missing file", "", "", "reading config file"},
		{"bad yaml", "config.yaml", "junebug: [", "parsing config file"},
		{"bad toml", "config.toml", "[junebug\n", "parsing config file"},
		{"bad duration", "config.yaml", "junebug:\n  timeout: soon\n", "parsing junebug.timeout"},
		{"negative duration", "config.yaml", "inbound:\n  dedupe_ttl: -1m\n", "must not be negative"},
		{"bad junebug scheme", "config.yaml", "junebug:\n  url: ftp://junebug\n", "junebug.url must use http"},
		{"bad identity scheme", "config.yaml", "identity_store:\n  url: localhost:8081\n", "identity_store.url"},
		{"relative inbound url", "config.yaml", "junebug:\n  inbound_url: junebug/inbound\n", "inbound_url must start with /"},
		{"bad log format", "config.yaml", "logging:\n  format: xml\n", "logging.format"},
		{"tailscale without hostname", "config.yaml", "tailscale:\n  enabled: true\n", "tailscale.hostname is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			path := filepath.Join(t.TempDir(), "missing.yaml")
			if tt.file != "" {
				path = writeConfig(t, tt.file, tt.content)
			}

			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDefaultPath(t *testing.T) {
	clearEnv(t)

	t.Setenv("JUNEBUG_BRIDGE_CONFIG", "/etc/junebug-bridge.toml")
	assert.Equal(t, "/etc/junebug-bridge.toml", DefaultPath())

	os.Unsetenv("JUNEBUG_BRIDGE_CONFIG")
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	assert.Equal(t, "/tmp/xdg/junebug-bridge/config.yaml", DefaultPath())
}
