// ABOUTME: Bridge orchestrator that wires the backend and serves HTTP
// ABOUTME: Owns listener setup (TCP or Tailscale), routing, health checks, and shutdown

package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
	"tailscale.com/ipn/ipnstate"
	"tailscale.com/tsnet"

	"github.com/2389/junebug-bridge/internal/backend"
	"github.com/2389/junebug-bridge/internal/config"
	"github.com/2389/junebug-bridge/internal/dedupe"
	"github.com/2389/junebug-bridge/internal/identity"
	"github.com/2389/junebug-bridge/internal/junebug"
	"github.com/2389/junebug-bridge/internal/metrics"
	"github.com/2389/junebug-bridge/internal/store"
)

type readyResponse struct {
	Status  string        `json:"status"`
	Error   string        `json:"error,omitempty"`
	Records *store.Counts `json:"records,omitempty"`
}

// Bridge serves the webhook and the outbound API.
type Bridge struct {
	config      *config.Config
	identity    *identity.Client
	backend     *junebug.Backend
	store       store.Store
	receiver    backend.Receiver
	metrics     *metrics.Metrics
	dedupe      *dedupe.Cache
	router      chi.Router
	httpServer  *http.Server
	tsnetServer *tsnet.Server
	logger      *slog.Logger
}

// Option configures a Bridge.
type Option func(*options)

type options struct {
	receiver   backend.Receiver
	httpClient *http.Client
}

// WithReceiver hands inbound messages to r instead of the configured store.
func WithReceiver(r backend.Receiver) Option {
	return func(o *options) {
		o.receiver = r
	}
}

// WithHTTPClient sets the client used for the gateway and the identity store,
// replacing the per-service clients built from the configured timeouts.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// New wires a Bridge from cfg.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Bridge, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	b := &Bridge{
		config: cfg,
		logger: logger.With("component", "bridge"),
	}
	if cfg.Metrics.Enabled {
		b.metrics = metrics.New()
	}

	identityHTTP := o.httpClient
	junebugHTTP := o.httpClient
	if identityHTTP == nil {
		identityHTTP = &http.Client{Timeout: cfg.IdentityStore.Timeout}
		junebugHTTP = &http.Client{Timeout: cfg.Junebug.Timeout}
	}

	b.identity = identity.New(cfg.IdentityStore.URL, cfg.IdentityStore.AuthToken, cfg.IdentityStore.AddressType,
		identity.WithHTTPClient(identityHTTP),
		identity.WithMaxIndirection(cfg.IdentityStore.MaxIndirection),
		identity.WithLogger(logger),
		identity.WithMetrics(b.metrics),
	)

	jbOpts := []junebug.Option{
		junebug.WithHTTPClient(junebugHTTP),
		junebug.WithLogger(logger),
		junebug.WithMetrics(b.metrics),
	}
	if cfg.Inbound.DedupeTTL > 0 {
		b.dedupe = dedupe.New(cfg.Inbound.DedupeTTL, cfg.Inbound.DedupeSize)
		jbOpts = append(jbOpts, junebug.WithDedupe(b.dedupe))
		b.logger.Info("inbound redelivery filter enabled", "ttl", cfg.Inbound.DedupeTTL, "size", cfg.Inbound.DedupeSize)
	}

	b.backend = junebug.New(junebug.Config{
		URL:         cfg.Junebug.URL,
		ChannelID:   cfg.Junebug.ChannelID,
		AuthToken:   cfg.Junebug.AuthToken,
		FromAddress: cfg.Junebug.FromAddress,
		InboundPath: cfg.Junebug.InboundURL,
		AddressType: cfg.IdentityStore.AddressType,
	}, b.identity, jbOpts...)

	switch {
	case o.receiver != nil:
		b.receiver = o.receiver
	case cfg.Database.Path != "":
		s, err := store.NewSQLiteStore(cfg.Database.Path)
		if err != nil {
			b.closeOptionalComponents()
			return nil, fmt.Errorf("opening record store: %w", err)
		}
		b.store = s
		b.receiver = s
	default:
		b.logger.Warn("database.path not set, inbound messages are logged and not stored")
		b.receiver = newLogReceiver(logger)
	}

	b.router = b.routes()
	b.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           b.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return b, nil
}

// Backend returns the Junebug backend.
func (b *Bridge) Backend() *junebug.Backend {
	return b.backend
}

// Identity returns the identity store client.
func (b *Bridge) Identity() *identity.Client {
	return b.identity
}

// Handler returns the HTTP handler serving every route.
func (b *Bridge) Handler() http.Handler {
	return b.router
}

func (b *Bridge) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(b.logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", b.handleHealth)
	r.Get("/health/ready", b.handleReady)

	if b.metrics != nil {
		r.Method(http.MethodGet, b.config.Metrics.Path, b.metrics.Handler())
	}

	inbound := b.backend.InboundHandler(b.receiver)
	for _, route := range b.backend.Routes() {
		// The inbound handler answers wrong methods itself.
		r.Handle(route.Pattern, inbound)
		b.logger.Info("registered route", "name", route.Name, "pattern", route.Pattern)
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(requireToken(b.config.Server.APIToken))
		api.Post("/outgoing", b.handleOutgoing)
		api.Get("/identities/{id}/addresses", b.handleAddresses)
		if b.store != nil {
			b.recordRoutes(api)
		}
	})

	return r
}

// requestLogger logs one line per request once it completes.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status_code", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// Run starts the HTTP server and blocks until ctx is canceled or the server fails.
// Returns nil on graceful shutdown.
func (b *Bridge) Run(ctx context.Context) error {
	ln, err := b.setupListener(ctx)
	if err != nil {
		if shutdownErr := b.gracefulShutdown(); shutdownErr != nil {
			b.logger.Warn("cleanup after listener failure", "error", shutdownErr)
		}
		return err
	}
	return b.Serve(ctx, ln)
}

// Serve serves HTTP on ln until ctx is canceled or the server fails, then
// shuts everything down.
func (b *Bridge) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := b.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			b.logger.Info("context canceled, initiating shutdown")
		}
		return b.gracefulShutdown()
	})

	return g.Wait()
}

// gracefulShutdown performs shutdown with a fresh context and timeout, since
// the caller's context is already canceled.
func (b *Bridge) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return b.Shutdown(ctx)
}

// setupListener creates the HTTP listener based on configuration (Tailscale or TCP).
func (b *Bridge) setupListener(ctx context.Context) (net.Listener, error) {
	if b.config.Tailscale.Enabled {
		if b.config.Server.HTTPAddr != "" {
			b.logger.Warn("server.http_addr is ignored when tailscale is enabled", "http_addr", b.config.Server.HTTPAddr)
		}
		return b.setupTailscaleListener(ctx)
	}

	b.logger.Info("starting bridge", "http_addr", b.config.Server.HTTPAddr)
	ln, err := net.Listen("tcp", b.config.Server.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("listening on HTTP address: %w", err)
	}
	return ln, nil
}

// resolveTailscaleStateDir returns the state directory, using default if not configured.
func resolveTailscaleStateDir(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory for tailscale state (set tailscale.state_dir explicitly): %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "junebug-bridge", "tailscale"), nil
}

// setupTailscaleListener starts a tsnet node and listens on :443 through
// Funnel when enabled, else on :80 inside the tailnet.
func (b *Bridge) setupTailscaleListener(ctx context.Context) (net.Listener, error) {
	tsCfg := b.config.Tailscale

	stateDir, err := resolveTailscaleStateDir(tsCfg.StateDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, fmt.Errorf("creating tailscale state dir: %w", err)
	}
	if tsCfg.AuthKey == "" {
		return nil, errors.New("tailscale auth key required: set tailscale.auth_key or TS_AUTHKEY")
	}

	b.tsnetServer = &tsnet.Server{
		Hostname:  tsCfg.Hostname,
		Dir:       stateDir,
		Ephemeral: tsCfg.Ephemeral,
		AuthKey:   tsCfg.AuthKey,
	}

	b.logger.Info("starting tailscale node", "hostname", tsCfg.Hostname, "state_dir", stateDir, "ephemeral", tsCfg.Ephemeral)
	status, err := b.tsnetServer.Up(ctx)
	if err != nil {
		_ = b.tsnetServer.Close()
		b.tsnetServer = nil
		return nil, fmt.Errorf("starting tailscale: %w", err)
	}
	b.logTailscaleStatus(tsCfg.Hostname, status)

	var ln net.Listener
	if tsCfg.Funnel {
		b.logger.Info("enabling tailscale funnel (public HTTPS) on :443", "inbound_url", b.config.Junebug.InboundURL)
		ln, err = b.tsnetServer.ListenFunnel("tcp", ":443")
	} else {
		ln, err = b.tsnetServer.Listen("tcp", ":80")
	}
	if err != nil {
		_ = b.tsnetServer.Close()
		b.tsnetServer = nil
		return nil, fmt.Errorf("listening on tailscale HTTP port: %w", err)
	}
	return ln, nil
}

// logTailscaleStatus logs info about the tailscale node status.
func (b *Bridge) logTailscaleStatus(hostname string, status *ipnstate.Status) {
	var tsAddr, dnsName string
	if len(status.TailscaleIPs) > 0 {
		tsAddr = status.TailscaleIPs[0].String()
	} else {
		b.logger.Warn("tailscale node has no IP addresses assigned")
	}
	if status.Self != nil {
		dnsName = status.Self.DNSName
	}
	b.logger.Info("tailscale node ready", "hostname", hostname, "tailscale_ip", tsAddr, "dns_name", dnsName)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// closeOptionalComponents closes optional components that may be nil.
func (b *Bridge) closeOptionalComponents() {
	if b.dedupe != nil {
		b.dedupe.Close()
	}
}

// Shutdown gracefully stops the server and releases resources.
func (b *Bridge) Shutdown(ctx context.Context) error {
	b.logger.Info("shutting down bridge")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", b.httpServer.Shutdown(ctx))

	if b.tsnetServer != nil {
		errs = appendCloseError(errs, "tailscale shutdown", b.tsnetServer.Close())
	}
	if b.store != nil {
		errs = appendCloseError(errs, "store close", b.store.Close())
	}

	b.closeOptionalComponents()

	return errors.Join(errs...)
}

// handleHealth returns 200 OK if the server is alive.
func (b *Bridge) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK when the record store, if any, answers, along
// with its row counts.
func (b *Bridge) handleReady(w http.ResponseWriter, r *http.Request) {
	if b.store == nil {
		writeAPIJSON(w, http.StatusOK, readyResponse{Status: "ready"})
		return
	}

	err := b.store.Ping(r.Context())
	var counts store.Counts
	if err == nil {
		counts, err = b.store.Counts(r.Context())
	}
	if err != nil {
		writeAPIJSON(w, http.StatusServiceUnavailable, readyResponse{
			Status: "unavailable",
			Error:  fmt.Sprintf("record store unavailable: %v", err),
		})
		return
	}
	writeAPIJSON(w, http.StatusOK, readyResponse{Status: "ready", Records: &counts})
}
