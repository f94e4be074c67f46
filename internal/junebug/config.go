// ABOUTME: Gateway settings and construction options for the Junebug backend
// ABOUTME: Shared by Sender and Backend

package junebug

import (
	"log/slog"
	"net/http"

	"github.com/2389/junebug-bridge/internal/dedupe"
	"github.com/2389/junebug-bridge/internal/metrics"
)

// Defaults used when Config fields are empty.
const (
	DefaultURL         = "http://localhost:8080"
	DefaultChannelID   = "replace-me"
	DefaultInboundPath = "/junebug/inbound"
)

// InboundRouteName names the webhook route.
const InboundRouteName = "inbound_junebug_message"

// Config holds the gateway settings.
type Config struct {
	URL         string
	ChannelID   string
	AuthToken   string
	FromAddress string
	InboundPath string
	AddressType string
}

func (c Config) withDefaults() Config {
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if c.ChannelID == "" {
		c.ChannelID = DefaultChannelID
	}
	if c.InboundPath == "" {
		c.InboundPath = DefaultInboundPath
	}
	return c
}

type options struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
	dedupe     *dedupe.Cache
}

// Option configures a Sender or Backend.
type Option func(*options)

// WithHTTPClient sets the HTTP client used for gateway requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics records send and webhook outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithDedupe drops inbound messages whose message_id is already in cache.
func WithDedupe(cache *dedupe.Cache) Option {
	return func(o *options) {
		o.dedupe = cache
	}
}

func buildOptions(opts []Option) options {
	o := options{
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
