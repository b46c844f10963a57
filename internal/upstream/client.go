// Package upstream executes requests against the recommendation engine.
package upstream

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tjfontaine/recommendation-gateway/internal/pkg/safehttp"
)

// Executor performs one exchange with the engine. *Client implements it.
// A nil error comes with a non-nil Response; callers treat a nil Response
// as a transport failure.
type Executor interface {
	Execute(ctx context.Context, req *CanonicalRequest) (*Response, error)
}

var _ Executor = (*Client)(nil)

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client. The endpoint's overall deadline
// still applies through the request context.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger used for failed exchanges.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// Client performs single-attempt exchanges with the recommendation engine.
// It is safe for concurrent use.
type Client struct {
	endpoint   *Endpoint
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client bound to endpoint. Without WithHTTPClient it
// uses a pooled transport whose connect and read phases are bounded by the
// endpoint's timeouts.
func NewClient(endpoint *Endpoint, opts ...ClientOption) *Client {
	c := &Client{
		endpoint: endpoint,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		transport := safehttp.NewTransport(safehttp.TransportOptions{
			ConnectTimeout:      endpoint.ConnectTimeout(),
			ReadTimeout:         endpoint.ReadTimeout(),
			MaxIdleConns:        endpoint.MaxIdleConns(),
			DenyPrivateNetworks: endpoint.DenyPrivateNetworks(),
		})
		c.httpClient = &http.Client{
			Transport: otelhttp.NewTransport(transport),
			// Redirects would resend the API key to wherever the engine points.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	return c
}

// Endpoint returns the endpoint the client is bound to.
func (c *Client) Endpoint() *Endpoint { return c.endpoint }

// Execute sends req once. Any HTTP status is returned as a Response; a
// transport problem, an expired budget or an oversized 2xx body is returned
// as a *Failure. Non-2xx bodies are truncated to the size bound. The whole exchange, body included, must finish within the
// connect and read budgets combined.
func (c *Client) Execute(ctx context.Context, req *CanonicalRequest) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.endpoint.ConnectTimeout()+c.endpoint.ReadTimeout())
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, nil)
	if err != nil {
		return nil, c.fail(req, &Failure{Kind: FailureTransport, cause: err})
	}
	httpReq.Header = req.Header.Clone()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.fail(req, classify(err))
	}
	defer resp.Body.Close()

	out := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
	}

	limit := c.endpoint.MaxResponseBytes()
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if !out.OK() {
		// The status alone classifies a non-2xx answer, so its body is
		// truncated to the bound and a failed read drops it.
		if err != nil {
			return out, nil
		}
		if int64(len(body)) > limit {
			body = body[:limit]
		}
		out.Body = body
		return out, nil
	}
	if err != nil {
		return nil, c.fail(req, classify(err))
	}
	if int64(len(body)) > limit {
		return nil, c.fail(req, &Failure{Kind: FailureResponseTooLarge, StatusCode: resp.StatusCode})
	}

	out.Body = body
	return out, nil
}

func (c *Client) fail(req *CanonicalRequest, f *Failure) *Failure {
	// Only the path is logged; the query holds caller input and the
	// headers hold the API key.
	c.logger.Warn("upstream request failed",
		slog.String("method", req.Method),
		slog.String("path", req.Path()),
		slog.String("kind", string(f.Kind)),
	)
	if f.cause != nil {
		c.logger.Debug("upstream failure cause", slog.String("path", req.Path()), slog.String("cause", f.cause.Error()))
	}
	return f
}
