// Package bridge runs the junebug-bridge HTTP server.
//
// It wires the identity store client, the Junebug backend, the optional
// SQLite record store and the redelivery filter together, and serves:
//
//	GET  /health                        liveness
//	GET  /health/ready                  readiness (record store reachable)
//	GET  /metrics                       Prometheus metrics, when enabled
//	POST {junebug.inbound_url}          gateway webhook
//	POST /api/outgoing                  push a batch of outgoing messages
//	GET  /api/identities/{id}/addresses resolve an identity's addresses
//
// The /api routes require "Authorization: Bearer {server.api_token}" when a
// token is configured.
//
// The server listens on server.http_addr, or on a Tailscale node (optionally
// through Funnel, so the gateway can reach the webhook publicly) when
// tailscale.enabled is set.
package bridge
