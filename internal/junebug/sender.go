// ABOUTME: HTTP client for the Junebug channel messages API
// ABOUTME: Submits one SMS per call and decodes the gateway's reply

package junebug

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/2389/junebug-bridge/internal/metrics"
)

var tracer = otel.Tracer("github.com/2389/junebug-bridge/internal/junebug")

// sendRequest is the body of POST /channels/{id}/messages/. From is null
// when no from address is configured.
type sendRequest struct {
	To      string  `json:"to"`
	From    *string `json:"from"`
	Content string  `json:"content"`
}

// sendResponse is the gateway's reply envelope.
type sendResponse struct {
	Status      int    `json:"status"`
	Code        string `json:"code"`
	Description string `json:"description"`
	Result      struct {
		ID string `json:"id"`
	} `json:"result"`
}

// SendResult describes a submitted message.
type SendResult struct {
	MessageID string `json:"message_id"`
	To        string `json:"to"`
}

// Sender submits messages to one gateway channel.
type Sender struct {
	url        string
	token      string
	from       string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewSender creates a Sender for the channel named in cfg.
func NewSender(cfg Config, opts ...Option) *Sender {
	cfg = cfg.withDefaults()
	o := buildOptions(opts)
	return &Sender{
		url:        strings.TrimSuffix(cfg.URL, "/") + "/channels/" + url.PathEscape(cfg.ChannelID) + "/messages/",
		token:      cfg.AuthToken,
		from:       cfg.FromAddress,
		httpClient: o.httpClient,
		logger:     o.logger.With("component", "junebug.sender"),
		metrics:    o.metrics,
	}
}

// URL returns the endpoint messages are posted to.
func (s *Sender) URL() string {
	return s.url
}

// Send submits content for delivery to the address to.
func (s *Sender) Send(ctx context.Context, to, content string) (SendResult, error) {
	ctx, span := tracer.Start(ctx, "junebug.Send", trace.WithAttributes(
		attribute.String("junebug.url", s.url),
	))
	defer span.End()

	req := sendRequest{To: to, Content: content}
	if s.from != "" {
		from := s.from
		req.From = &from
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return SendResult{}, failSpan(span, fmt.Errorf("marshaling message: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return SendResult{}, failSpan(span, &SendError{Err: fmt.Errorf("creating request: %w", err)})
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		httpReq.Header.Set("Authorization", "Token "+s.token)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	start := time.Now()
	resp, err := s.httpClient.Do(httpReq)
	s.metrics.ObserveSend(time.Since(start))
	if err != nil {
		return SendResult{}, failSpan(span, &SendError{Err: fmt.Errorf("sending request: %w", err)})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return SendResult{}, failSpan(span, &SendError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("reading response: %w", err),
		})
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return SendResult{}, failSpan(span, &SendError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
		})
	}

	var reply sendResponse
	if err := json.Unmarshal(body, &reply); err != nil {
		return SendResult{}, failSpan(span, &SendError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
			Err:        fmt.Errorf("decoding reply: %w", err),
		})
	}

	if reply.Result.ID == "" {
		return SendResult{}, failSpan(span, &SendError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
			Err:        ErrMalformedReply,
		})
	}

	s.logger.Debug("message submitted",
		"message_id", reply.Result.ID,
		"status_code", resp.StatusCode,
	)
	span.SetAttributes(attribute.String("junebug.message_id", reply.Result.ID))
	return SendResult{MessageID: reply.Result.ID, To: to}, nil
}

func failSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
