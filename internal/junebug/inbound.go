// ABOUTME: Webhook handler for messages the gateway receives
// ABOUTME: Maps the sender to an identity and hands the message to the host

package junebug

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/2389/junebug-bridge/internal/backend"
	"github.com/2389/junebug-bridge/internal/metrics"
	"github.com/2389/junebug-bridge/internal/urn"
)

// maxInboundBody caps the webhook request body.
const maxInboundBody = 1 << 20

// inboundMessage is the gateway's webhook payload.
type inboundMessage struct {
	MessageID   string         `json:"message_id"`
	To          string         `json:"to"`
	From        string         `json:"from"`
	Content     string         `json:"content"`
	Timestamp   string         `json:"timestamp"`
	ChannelID   string         `json:"channel_id"`
	ChannelData map[string]any `json:"channel_data"`
}

// errorResponse is the JSON body of a rejected webhook call.
type errorResponse struct {
	Reason  string `json:"reason"`
	Details string `json:"details,omitempty"`
}

// timestampLayouts are tried in order when parsing the payload timestamp.
var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
}

// InboundHandler returns the webhook handler for the inbound route. Each
// accepted message is passed to receiver and the stored message is echoed
// back as JSON.
func (b *Backend) InboundHandler(receiver backend.Receiver) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			b.metrics.InboundMessage(metrics.OutcomeRejected)
			writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Reason: "Method not allowed."})
			return
		}

		var in inboundMessage
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxInboundBody)).Decode(&in); err != nil {
			b.metrics.InboundMessage(metrics.OutcomeRejected)
			writeJSON(w, http.StatusBadRequest, errorResponse{Reason: "JSON decode error", Details: err.Error()})
			return
		}
		if in.From == "" {
			b.metrics.InboundMessage(metrics.OutcomeRejected)
			writeJSON(w, http.StatusBadRequest, errorResponse{Reason: "Missing field", Details: "from is required"})
			return
		}

		if b.dedupe != nil && in.MessageID != "" && b.dedupe.Seen(in.MessageID) {
			b.logger.Info("dropping redelivered message", "message_id", in.MessageID)
			b.metrics.InboundMessage(metrics.OutcomeDuplicate)
			writeJSON(w, http.StatusOK, map[string]string{"status": "duplicate", "message_id": in.MessageID})
			return
		}

		msg, status, err := b.receive(r.Context(), receiver, in)
		if err != nil {
			if b.dedupe != nil && in.MessageID != "" {
				b.dedupe.Forget(in.MessageID)
			}
			b.logger.Error("inbound message failed",
				"message_id", in.MessageID,
				"status_code", status,
				"error", err,
			)
			b.metrics.InboundMessage(metrics.OutcomeError)
			writeJSON(w, status, errorResponse{Reason: http.StatusText(status), Details: err.Error()})
			return
		}

		b.metrics.InboundMessage(metrics.OutcomeOK)
		writeJSON(w, http.StatusOK, msg)
	})
}

// receive resolves the sender and stores the message. On failure it also
// returns the HTTP status to reply with.
func (b *Backend) receive(ctx context.Context, receiver backend.Receiver, in inboundMessage) (*backend.Message, int, error) {
	ctx, span := tracer.Start(ctx, "junebug.Receive", trace.WithAttributes(
		attribute.String("junebug.message_id", in.MessageID),
	))
	defer span.End()

	contact, err := b.identityFor(ctx, in.From)
	if err != nil {
		return nil, http.StatusBadGateway, failSpan(span, err)
	}

	msg, err := receiver.ReceiveMessage(ctx, backend.IncomingMessage{
		ContactUUID: contact,
		URN:         urn.FromParts(urn.SchemeTel, in.From),
		Text:        in.Content,
		ExternalID:  in.MessageID,
		CreatedOn:   parseTimestamp(in.Timestamp),
	})
	if err != nil {
		return nil, http.StatusInternalServerError, failSpan(span, fmt.Errorf("storing message: %w", err))
	}

	b.logger.Info("message received",
		"message_id", in.MessageID,
		"contact", contact,
	)
	return msg, http.StatusOK, nil
}

// identityFor returns the identity owning address, creating one when the
// store has none. The first match wins when several identities share it.
func (b *Backend) identityFor(ctx context.Context, address string) (string, error) {
	matches, err := b.resolver.GetIdentitiesForAddress(ctx, address, b.cfg.AddressType)
	if err != nil {
		return "", fmt.Errorf("looking up sender: %w", err)
	}
	if len(matches) > 0 {
		return matches[0].ID, nil
	}

	created, err := b.resolver.CreateIdentity(ctx, []string{address}, b.cfg.AddressType)
	if err != nil {
		return "", fmt.Errorf("creating sender identity: %w", err)
	}
	if created == nil || created.ID == "" {
		return "", errors.New("creating sender identity: no id returned")
	}
	return created.ID, nil
}

// parseTimestamp reads the gateway's timestamp, falling back to now.
func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Now().UTC()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
