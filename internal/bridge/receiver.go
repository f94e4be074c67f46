// ABOUTME: Fallback receiver used when no record store is configured
// ABOUTME: Logs each inbound message and hands back an unsaved Message

package bridge

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/2389/junebug-bridge/internal/backend"
)

type logReceiver struct {
	logger *slog.Logger
}

func newLogReceiver(logger *slog.Logger) *logReceiver {
	return &logReceiver{logger: logger.With("component", "inbound")}
}

func (l *logReceiver) ReceiveMessage(ctx context.Context, in backend.IncomingMessage) (*backend.Message, error) {
	backendID := in.ExternalID
	if backendID == "" {
		backendID = uuid.NewString()
	}
	created := in.CreatedOn
	if created.IsZero() {
		created = time.Now().UTC()
	}

	l.logger.Info("inbound message",
		"backend_id", backendID,
		"contact", in.ContactUUID,
		"urn", in.URN,
		"length", len(in.Text),
	)

	return &backend.Message{
		BackendID:   backendID,
		ContactUUID: in.ContactUUID,
		Type:        backend.MessageTypeInbox,
		Text:        in.Text,
		CreatedOn:   created,
	}, nil
}
