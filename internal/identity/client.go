// ABOUTME: HTTP client for the identity store API
// ABOUTME: Resolves identities to addresses, following communicate_through and pagination

package identity

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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/2389/junebug-bridge/internal/metrics"
)

// DefaultMaxIndirection bounds how many communicate_through hops are followed.
const DefaultMaxIndirection = 10

var tracer = otel.Tracer("github.com/2389/junebug-bridge/internal/identity")

// Client talks to the identity store. It holds configuration only and is
// safe for concurrent use.
type Client struct {
	baseURL        string
	token          string
	addressType    string
	maxIndirection int
	httpClient     *http.Client
	logger         *slog.Logger
	metrics        *metrics.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithMaxIndirection sets the longest communicate_through chain followed.
func WithMaxIndirection(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxIndirection = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics records request outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a Client for the identity store at baseURL.
func New(baseURL, token, addressType string, opts ...Option) *Client {
	if addressType == "" {
		addressType = DefaultAddressType
	}
	c := &Client{
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		token:          token,
		addressType:    addressType,
		maxIndirection: DefaultMaxIndirection,
		httpClient:     http.DefaultClient,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "identity")
	return c
}

// AddressType returns the configured default address type.
func (c *Client) AddressType() string {
	return c.addressType
}

// endpoint joins path segments onto the base URL, escaping each one.
func (c *Client) endpoint(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return c.baseURL + "/" + strings.Join(escaped, "/")
}

// GetIdentity fetches a single identity record.
func (c *Client) GetIdentity(ctx context.Context, ref string) (*Identity, error) {
	ctx, span := tracer.Start(ctx, "identity.GetIdentity",
		trace.WithAttributes(attribute.String("identity.ref", ref)))
	defer span.End()

	u := c.endpoint("api", "v1", "identities", ref) + "/"
	body, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		c.metrics.IdentityRequest("identity", metrics.OutcomeError)
		return nil, failSpan(span, withIdentity(err, ref))
	}

	var ident Identity
	if err := json.Unmarshal(body, &ident); err != nil {
		c.metrics.IdentityRequest("identity", metrics.OutcomeError)
		return nil, failSpan(span, &ResolutionError{
			Identity: ref,
			URL:      u,
			Err:      fmt.Errorf("%w: decoding identity: %v", ErrMalformedResponse, err),
		})
	}
	if ident.ID == "" {
		c.metrics.IdentityRequest("identity", metrics.OutcomeError)
		return nil, failSpan(span, &ResolutionError{
			Identity: ref,
			URL:      u,
			Err:      fmt.Errorf("%w: identity has no id", ErrMalformedResponse),
		})
	}

	c.metrics.IdentityRequest("identity", metrics.OutcomeOK)
	return &ident, nil
}

// GetAddresses returns every address of addressType through which the
// identity ref can be reached. An empty addressType selects the client's
// configured type. When ref communicates through another identity, the
// addresses of the final identity in the chain are returned.
//
// The result keeps fetch order and drops repeated addresses.
func (c *Client) GetAddresses(ctx context.Context, ref, addressType string) ([]string, error) {
	if addressType == "" {
		addressType = c.addressType
	}

	ctx, span := tracer.Start(ctx, "identity.GetAddresses", trace.WithAttributes(
		attribute.String("identity.ref", ref),
		attribute.String("identity.address_type", addressType),
	))
	defer span.End()

	target, err := c.resolveTarget(ctx, ref)
	if err != nil {
		return nil, failSpan(span, err)
	}
	if target != ref {
		span.SetAttributes(attribute.String("identity.target", target))
	}

	u := c.endpoint("api", "v1", "identities", target, "addresses", addressType)
	results, err := c.GetPaginatedResponse(ctx, u, url.Values{"default": {"True"}})
	if err != nil {
		return nil, failSpan(span, withIdentity(err, target))
	}

	addresses := make([]string, 0, len(results))
	seen := make(map[string]bool, len(results))
	for _, raw := range results {
		var a Address
		if err := json.Unmarshal(raw, &a); err != nil || a.Address == "" {
			return nil, failSpan(span, &ResolutionError{
				Identity: target,
				URL:      u,
				Err:      fmt.Errorf("%w: address record without address: %s", ErrMalformedResponse, raw),
			})
		}
		if seen[a.Address] {
			continue
		}
		seen[a.Address] = true
		addresses = append(addresses, a.Address)
	}

	c.logger.Debug("resolved addresses",
		"identity", ref,
		"target", target,
		"address_type", addressType,
		"count", len(addresses),
	)
	span.SetAttributes(attribute.Int("identity.address_count", len(addresses)))
	return addresses, nil
}

// resolveTarget follows communicate_through from ref and returns the
// identity whose addresses should be used.
func (c *Client) resolveTarget(ctx context.Context, ref string) (string, error) {
	visited := make(map[string]bool)
	current := ref

	for hops := 0; ; hops++ {
		if visited[current] {
			return "", &ResolutionError{
				Identity: ref,
				Err:      fmt.Errorf("%w: %s seen twice", ErrIndirectionCycle, current),
			}
		}
		visited[current] = true

		ident, err := c.GetIdentity(ctx, current)
		if err != nil {
			return "", err
		}

		next := ident.Delegate()
		if next == "" {
			return current, nil
		}
		if hops >= c.maxIndirection {
			return "", &ResolutionError{
				Identity: ref,
				Err:      fmt.Errorf("%w: more than %d hops", ErrIndirectionDepth, c.maxIndirection),
			}
		}

		c.logger.Debug("following communicate_through", "identity", current, "through", next)
		current = next
	}
}

// GetPaginatedResponse issues an authenticated GET for rawURL with params,
// then follows each page's next link (which already carries its own query)
// until next is null. It returns all results in fetch order.
func (c *Client) GetPaginatedResponse(ctx context.Context, rawURL string, params url.Values) ([]json.RawMessage, error) {
	var all []json.RawMessage
	visited := make(map[string]bool)

	next := rawURL
	for next != "" {
		pageURL := next
		if params != nil {
			pageURL = withQuery(next, params)
			params = nil
		}
		if visited[pageURL] {
			return nil, &ResolutionError{
				URL: pageURL,
				Err: fmt.Errorf("%w: pagination loops back to a visited page", ErrMalformedResponse),
			}
		}
		visited[pageURL] = true

		body, err := c.do(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			c.metrics.IdentityRequest("page", metrics.OutcomeError)
			return nil, err
		}

		var p page
		if err := json.Unmarshal(body, &p); err != nil {
			c.metrics.IdentityRequest("page", metrics.OutcomeError)
			return nil, &ResolutionError{
				URL: pageURL,
				Err: fmt.Errorf("%w: decoding page: %v", ErrMalformedResponse, err),
			}
		}
		if p.Results == nil {
			c.metrics.IdentityRequest("page", metrics.OutcomeError)
			return nil, &ResolutionError{
				URL: pageURL,
				Err: fmt.Errorf("%w: page has no results", ErrMalformedResponse),
			}
		}
		c.metrics.IdentityRequest("page", metrics.OutcomeOK)

		all = append(all, p.Results...)
		next = ""
		if p.Next != nil {
			next = *p.Next
		}
	}

	if all == nil {
		all = []json.RawMessage{}
	}
	return all, nil
}

// GetIdentitiesForAddress lists identities that own address.
func (c *Client) GetIdentitiesForAddress(ctx context.Context, address, addressType string) ([]Identity, error) {
	if addressType == "" {
		addressType = c.addressType
	}

	ctx, span := tracer.Start(ctx, "identity.GetIdentitiesForAddress",
		trace.WithAttributes(attribute.String("identity.address_type", addressType)))
	defer span.End()

	u := c.endpoint("api", "v1", "identities", "search") + "/"
	results, err := c.GetPaginatedResponse(ctx, u, url.Values{
		"details__addresses__" + addressType: {address},
	})
	if err != nil {
		return nil, failSpan(span, err)
	}

	identities := make([]Identity, 0, len(results))
	for _, raw := range results {
		var ident Identity
		if err := json.Unmarshal(raw, &ident); err != nil || ident.ID == "" {
			return nil, failSpan(span, &ResolutionError{
				URL: u,
				Err: fmt.Errorf("%w: search result is not an identity: %s", ErrMalformedResponse, raw),
			})
		}
		identities = append(identities, ident)
	}
	return identities, nil
}

// CreateIdentity creates a new identity owning addresses.
func (c *Client) CreateIdentity(ctx context.Context, addresses []string, addressType string) (*Identity, error) {
	if addressType == "" {
		addressType = c.addressType
	}

	ctx, span := tracer.Start(ctx, "identity.CreateIdentity",
		trace.WithAttributes(attribute.String("identity.address_type", addressType)))
	defer span.End()

	byAddr := make(map[string]map[string]any, len(addresses))
	for _, a := range addresses {
		byAddr[a] = map[string]any{}
	}
	payload, err := json.Marshal(newIdentityRequest{
		Details: newIdentityDetails{
			DefaultAddrType: addressType,
			Addresses:       map[string]map[string]map[string]any{addressType: byAddr},
		},
	})
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("marshaling identity: %w", err))
	}

	u := c.endpoint("api", "v1", "identities") + "/"
	body, err := c.do(ctx, http.MethodPost, u, payload)
	if err != nil {
		c.metrics.IdentityRequest("create", metrics.OutcomeError)
		return nil, failSpan(span, err)
	}

	var ident Identity
	if err := json.Unmarshal(body, &ident); err != nil || ident.ID == "" {
		c.metrics.IdentityRequest("create", metrics.OutcomeError)
		return nil, failSpan(span, &ResolutionError{
			URL: u,
			Err: fmt.Errorf("%w: created identity has no id", ErrMalformedResponse),
		})
	}

	c.metrics.IdentityRequest("create", metrics.OutcomeOK)
	c.logger.Info("created identity", "identity", ident.ID, "address_type", addressType)
	return &ident, nil
}

// do performs one authenticated request and returns the body of a 2xx reply.
func (c *Client) do(ctx context.Context, method, rawURL string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return nil, &ResolutionError{URL: rawURL, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+c.token)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ResolutionError{URL: rawURL, Err: fmt.Errorf("sending request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ResolutionError{URL: rawURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ResolutionError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Body:       string(body),
			Err:        fmt.Errorf("%w %d from %s", ErrUnexpectedStatus, resp.StatusCode, rawURL),
		}
	}
	return body, nil
}

// withQuery appends params to rawURL, keeping any query it already has.
func withQuery(rawURL string, params url.Values) string {
	if len(params) == 0 {
		return rawURL
	}
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + params.Encode()
}

// withIdentity fills in the identity on a ResolutionError that lacks one.
func withIdentity(err error, ref string) error {
	if re, ok := err.(*ResolutionError); ok && re.Identity == "" {
		re.Identity = ref
	}
	return err
}

func failSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
