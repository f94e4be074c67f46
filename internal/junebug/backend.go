// ABOUTME: Junebug implementation of the host backend contract
// ABOUTME: Resolves outgoing messages to addresses and submits them in order

package junebug

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/2389/junebug-bridge/internal/backend"
	"github.com/2389/junebug-bridge/internal/dedupe"
	"github.com/2389/junebug-bridge/internal/identity"
	"github.com/2389/junebug-bridge/internal/metrics"
	"github.com/2389/junebug-bridge/internal/urn"
)

// Resolver is the part of the identity store the backend needs.
// *identity.Client satisfies it.
type Resolver interface {
	GetAddresses(ctx context.Context, ref, addressType string) ([]string, error)
	GetIdentitiesForAddress(ctx context.Context, address, addressType string) ([]identity.Identity, error)
	CreateIdentity(ctx context.Context, addresses []string, addressType string) (*identity.Identity, error)
}

// Backend sends and receives SMS through a Junebug channel.
type Backend struct {
	backend.NoopSync

	cfg      Config
	sender   *Sender
	resolver Resolver
	logger   *slog.Logger
	metrics  *metrics.Metrics
	dedupe   *dedupe.Cache
}

var _ backend.Backend = (*Backend)(nil)

// New creates a Backend. An empty cfg.AddressType defers to the resolver's
// configured type.
func New(cfg Config, resolver Resolver, opts ...Option) *Backend {
	cfg = cfg.withDefaults()
	o := buildOptions(opts)
	return &Backend{
		cfg:      cfg,
		sender:   NewSender(cfg, opts...),
		resolver: resolver,
		logger:   o.logger.With("component", "junebug"),
		metrics:  o.metrics,
		dedupe:   o.dedupe,
	}
}

// Sender returns the gateway client used for outbound messages.
func (b *Backend) Sender() *Sender {
	return b.sender
}

// PushOutgoing sends msgs one at a time, in order. The first message that
// cannot be addressed or sent aborts the batch with a *BatchError; messages
// before it have already been submitted.
func (b *Backend) PushOutgoing(ctx context.Context, org *backend.Org, msgs []backend.OutgoingMessage) error {
	ctx, span := tracer.Start(ctx, "junebug.PushOutgoing",
		trace.WithAttributes(attribute.Int("junebug.batch_size", len(msgs))))
	defer span.End()

	for i, msg := range msgs {
		res, err := b.pushOne(ctx, msg)
		if err != nil {
			b.metrics.OutboundMessage(outboundOutcome(err))
			b.logger.Warn("outgoing message failed",
				"org", orgID(org),
				"index", i,
				"batch_size", len(msgs),
				"error", err,
			)
			return failSpan(span, &BatchError{Index: i, Err: err})
		}
		b.metrics.OutboundMessage(metrics.OutcomeOK)
		b.logger.Info("message sent",
			"org", orgID(org),
			"message_id", res.MessageID,
		)
	}
	return nil
}

func (b *Backend) pushOne(ctx context.Context, msg backend.OutgoingMessage) (SendResult, error) {
	to, err := b.destination(ctx, msg)
	if err != nil {
		return SendResult{}, err
	}
	return b.sender.Send(ctx, to, msg.Text)
}

// destination picks the address for msg. A URN always wins over a contact,
// even when the URN turns out to be unusable.
func (b *Backend) destination(ctx context.Context, msg backend.OutgoingMessage) (string, error) {
	if msg.URN != "" {
		u, err := urn.Parse(msg.URN)
		if err != nil {
			return "", &UnaddressableError{URN: msg.URN, Err: err}
		}
		if u.Scheme != urn.SchemeTel {
			return "", &UnaddressableError{URN: msg.URN, Err: ErrUnsupportedURN}
		}
		return u.Path, nil
	}

	if msg.Contact != nil && msg.Contact.UUID != "" {
		addrs, err := b.resolver.GetAddresses(ctx, msg.Contact.UUID, b.cfg.AddressType)
		if err != nil {
			return "", err
		}
		if len(addrs) == 0 {
			return "", &UnaddressableError{Contact: msg.Contact.UUID, Err: ErrNoContactAddresses}
		}
		if len(addrs) > 1 {
			b.logger.Debug("contact has several addresses, using the first",
				"contact", msg.Contact.UUID,
				"count", len(addrs),
			)
		}
		return addrs[0], nil
	}

	return "", &UnaddressableError{Err: ErrNoDestination}
}

// Routes lists the webhook the gateway delivers inbound messages to.
func (b *Backend) Routes() []backend.Route {
	return []backend.Route{{
		Name:    InboundRouteName,
		Method:  http.MethodPost,
		Pattern: b.cfg.InboundPath,
	}}
}

func outboundOutcome(err error) string {
	var unaddressable *UnaddressableError
	var sendErr *SendError
	switch {
	case errors.As(err, &unaddressable):
		return metrics.OutcomeUnaddressable
	case errors.As(err, &sendErr):
		return metrics.OutcomeSendError
	case identity.IsResolutionError(err):
		return metrics.OutcomeResolution
	default:
		return metrics.OutcomeError
	}
}

func orgID(org *backend.Org) int64 {
	if org == nil {
		return 0
	}
	return org.ID
}
