// Package config handles configuration loading for junebug-bridge.
//
// # Overview
//
// Configuration is loaded from a YAML or TOML file with environment variable
// expansion, then overridden by well-known environment variables. Every
// setting has a default, so the bridge also runs from the environment alone.
//
// # Configuration File
//
// Location (in order):
//
//  1. Path from the JUNEBUG_BRIDGE_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/junebug-bridge/config.yaml (~/.config when unset)
//
// Files ending in .toml are read as TOML; anything else is YAML.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	junebug:
//	  auth_token: "${JUNEBUG_TOKEN}"
//
// Syntax: ${VAR_NAME}. Unset variables expand to an empty string.
//
// # Environment Overrides
//
// After the file is read, these variables replace the file's values when set:
//
//	JUNEBUG_URL, JUNEBUG_CHANNEL_ID, JUNEBUG_AUTH_TOKEN, JUNEBUG_FROM_ADDRESS,
//	JUNEBUG_INBOUND_URL, JUNEBUG_TIMEOUT,
//	IDENTITY_STORE_URL, IDENTITY_STORE_TOKEN, IDENTITY_STORE_ADDRESS_TYPE,
//	IDENTITY_STORE_MAX_INDIRECTION, IDENTITY_STORE_TIMEOUT,
//	JUNEBUG_BRIDGE_HTTP_ADDR, JUNEBUG_BRIDGE_API_TOKEN, JUNEBUG_BRIDGE_DB_PATH,
//	JUNEBUG_BRIDGE_DEDUPE_TTL, JUNEBUG_BRIDGE_DEDUPE_SIZE,
//	JUNEBUG_BRIDGE_LOG_LEVEL, JUNEBUG_BRIDGE_LOG_FORMAT,
//	JUNEBUG_BRIDGE_METRICS_ENABLED, JUNEBUG_BRIDGE_METRICS_PATH,
//	JUNEBUG_BRIDGE_OTEL_ENDPOINT, JUNEBUG_BRIDGE_OTEL_SERVICE_NAME,
//	JUNEBUG_BRIDGE_TAILSCALE_ENABLED, JUNEBUG_BRIDGE_TAILSCALE_HOSTNAME,
//	JUNEBUG_BRIDGE_TAILSCALE_STATE_DIR, JUNEBUG_BRIDGE_TAILSCALE_FUNNEL, TS_AUTHKEY
//
// # Configuration Sections
//
//	server:
//	  http_addr: "127.0.0.1:8000"
//	  api_token: "${BRIDGE_API_TOKEN}"   # protects POST /api/outgoing
//
//	junebug:
//	  url: "http://localhost:8080"
//	  channel_id: "replace-me"
//	  from_address: "+4321"              # omit to send "from": null
//	  inbound_url: "/junebug/inbound"
//	  timeout: "30s"
//
//	identity_store:
//	  url: "http://localhost:8081"
//	  auth_token: "${IDENTITY_STORE_TOKEN}"
//	  address_type: "msisdn"
//	  max_indirection: 10
//	  timeout: "30s"
//
//	database:
//	  path: "/var/lib/junebug-bridge/host.db"   # omit to disable the record store
//
//	inbound:
//	  dedupe_ttl: "10m"                  # omit to accept every redelivery
//	  dedupe_size: 10000
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
//	metrics:
//	  enabled: true
//	  path: "/metrics"
//
//	telemetry:
//	  endpoint: "http://localhost:4318"
//	  service_name: "junebug-bridge"
//
//	tailscale:
//	  enabled: false
//	  hostname: "junebug-bridge"
//	  auth_key: "${TS_AUTHKEY}"
//	  funnel: false
//
// # Usage
//
//	cfg, err := config.LoadOrEnv(config.DefaultPath())
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
