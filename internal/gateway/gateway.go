// Package gateway orchestrates authorized calls to the recommendation engine.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tjfontaine/recommendation-gateway/internal/authz"
	"github.com/tjfontaine/recommendation-gateway/internal/domain"
	"github.com/tjfontaine/recommendation-gateway/internal/health"
	"github.com/tjfontaine/recommendation-gateway/internal/query"
	"github.com/tjfontaine/recommendation-gateway/internal/upstream"
)

// Option configures the gateway.
type Option func(*Gateway)

// WithLogger sets the gateway logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// Gateway authorizes, builds and forwards recommendation operations.
// It is safe for concurrent use.
type Gateway struct {
	endpoint *upstream.Endpoint
	exec     upstream.Executor
	probe    *health.Probe
	logger   *slog.Logger
}

// New creates a gateway that reaches the engine at endpoint through exec.
func New(endpoint *upstream.Endpoint, exec upstream.Executor, opts ...Option) *Gateway {
	g := &Gateway{
		endpoint: endpoint,
		exec:     exec,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.probe = health.NewProbe(endpoint, exec, g.logger)
	return g
}

// Clustering returns playlist-based recommendations.
func (g *Gateway) Clustering(ctx context.Context, principal domain.Principal, playlistName string, k, nNeighbors int) (domain.RecommendationResult, error) {
	return g.Invoke(ctx, principal, domain.Clustering{PlaylistName: playlistName, K: k, NNeighbors: nNeighbors})
}

// Collaborative returns recommendations seeded by item URIs.
func (g *Gateway) Collaborative(ctx context.Context, principal domain.Principal, queryURIs []string, k int) (domain.RecommendationResult, error) {
	return g.Invoke(ctx, principal, domain.Collaborative{QueryURIs: queryURIs, K: k})
}

// Hybrid returns recommendations seeded by both a playlist and item URIs.
func (g *Gateway) Hybrid(ctx context.Context, principal domain.Principal, playlistName string, queryURIs []string, k, nNeighbors int) (domain.RecommendationResult, error) {
	return g.Invoke(ctx, principal, domain.Hybrid{PlaylistName: playlistName, QueryURIs: queryURIs, K: k, NNeighbors: nNeighbors})
}

// Invoke runs a recommendation operation. The authorization gate runs before
// anything else, so a Forbidden result never reaches the engine. The engine
// is called at most once.
func (g *Gateway) Invoke(ctx context.Context, principal domain.Principal, op domain.Operation) (domain.RecommendationResult, error) {
	if err := authz.AuthorizeOperation(principal, op); err != nil {
		forbiddenTotal.WithLabelValues(string(op.Kind())).Inc()
		g.logger.Info("operation forbidden",
			slog.String("operation", string(op.Kind())),
			slog.String("subject", principal.Subject),
		)
		return nil, err
	}

	if _, ok := op.(domain.Health); ok {
		return nil, domain.ErrInvalidRequest("health check has no recommendation result")
	}

	if err := op.Validate(); err != nil {
		return nil, err
	}

	req, err := query.Build(g.endpoint, op)
	if err != nil {
		return nil, domain.ErrInvalidRequest(err.Error())
	}

	start := time.Now()
	items, err := g.call(ctx, req)
	if err != nil {
		gwErr := Translate(err, op.Name())
		observeUpstream(string(op.Kind()), string(gwErr.Kind), start)
		g.logger.Warn("recommendation call failed",
			slog.String("operation", string(op.Kind())),
			slog.String("kind", string(gwErr.Kind)),
			slog.String("cause", err.Error()),
		)
		return nil, gwErr
	}
	observeUpstream(string(op.Kind()), outcomeOK, start)

	g.logger.Debug("recommendation call succeeded",
		slog.String("operation", string(op.Kind())),
		slog.Int("items", len(items)),
	)
	return items, nil
}

func (g *Gateway) call(ctx context.Context, req *upstream.CanonicalRequest) (domain.RecommendationResult, error) {
	resp, err := g.exec.Execute(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, &upstream.Failure{Kind: upstream.FailureTransport}
	}
	if !resp.OK() {
		return nil, upstream.StatusFailure(resp.StatusCode)
	}

	var items []string
	if err := json.Unmarshal(resp.Body, &items); err != nil {
		return nil, upstream.DecodeFailure(resp.StatusCode, fmt.Errorf("decode recommendation list: %w", err))
	}
	if items == nil {
		items = []string{}
	}
	return domain.RecommendationResult(items), nil
}

// Health reports the engine's health. Only ADMIN may call it. Any probe
// failure is reported as an unhealthy status rather than an error.
func (g *Gateway) Health(ctx context.Context, principal domain.Principal) (domain.HealthStatus, error) {
	op := domain.Health{}
	if err := authz.AuthorizeOperation(principal, op); err != nil {
		forbiddenTotal.WithLabelValues(string(op.Kind())).Inc()
		return domain.HealthStatus{}, err
	}

	healthy := g.probe.Probe(ctx)
	status := domain.NewHealthStatus(healthy)
	healthProbeResults.WithLabelValues(status.Status).Inc()
	return status, nil
}
