// ABOUTME: Prometheus metrics for the bridge
// ABOUTME: Counts identity store calls, outbound sends, and inbound webhooks

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by the counters.
const (
	OutcomeOK            = "ok"
	OutcomeError         = "error"
	OutcomeUnaddressable = "unaddressable"
	OutcomeResolution    = "resolution_error"
	OutcomeSendError     = "send_error"
	OutcomeDuplicate     = "duplicate"
	OutcomeRejected      = "rejected"
)

// Metrics holds all Prometheus metrics for the bridge. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	IdentityRequests *prometheus.CounterVec
	OutboundMessages *prometheus.CounterVec
	InboundMessages  *prometheus.CounterVec
	SendLatency      prometheus.Histogram
}

// New creates the metrics on a private registry, so several instances can
// coexist in one process (tests, embedded use).
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		IdentityRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "junebug_bridge_identity_requests_total",
			Help: "Identity store requests by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),
		OutboundMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "junebug_bridge_outbound_messages_total",
			Help: "Outbound messages by outcome",
		}, []string{"outcome"}),
		InboundMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "junebug_bridge_inbound_messages_total",
			Help: "Inbound webhook deliveries by outcome",
		}, []string{"outcome"}),
		SendLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "junebug_bridge_send_duration_seconds",
			Help:    "Latency of gateway send requests",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// IdentityRequest counts one identity store request.
func (m *Metrics) IdentityRequest(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.IdentityRequests.WithLabelValues(endpoint, outcome).Inc()
}

// OutboundMessage counts one outbound message.
func (m *Metrics) OutboundMessage(outcome string) {
	if m == nil {
		return
	}
	m.OutboundMessages.WithLabelValues(outcome).Inc()
}

// InboundMessage counts one inbound webhook delivery.
func (m *Metrics) InboundMessage(outcome string) {
	if m == nil {
		return
	}
	m.InboundMessages.WithLabelValues(outcome).Inc()
}

// ObserveSend records the latency of one gateway send.
func (m *Metrics) ObserveSend(d time.Duration) {
	if m == nil {
		return
	}
	m.SendLatency.Observe(d.Seconds())
}
