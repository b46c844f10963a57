// Package health probes the recommendation engine.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tjfontaine/recommendation-gateway/internal/domain"
	"github.com/tjfontaine/recommendation-gateway/internal/query"
	"github.com/tjfontaine/recommendation-gateway/internal/upstream"
)

// Probe reports whether the recommendation engine is up.
type Probe struct {
	endpoint *upstream.Endpoint
	exec     upstream.Executor
	logger   *slog.Logger
}

// NewProbe creates a probe that calls endpoint through exec.
func NewProbe(endpoint *upstream.Endpoint, exec upstream.Executor, logger *slog.Logger) *Probe {
	if logger == nil {
		logger = slog.Default()
	}
	return &Probe{endpoint: endpoint, exec: exec, logger: logger}
}

// Probe returns true iff the engine answers the health route with status 200
// and a JSON object body. It has no error result: every failure, a panic in
// the executor included, reads as unhealthy.
func (p *Probe) Probe(ctx context.Context) (healthy bool) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("health probe panicked", slog.String("panic", fmt.Sprint(r)))
			healthy = false
		}
	}()

	req, err := query.Build(p.endpoint, domain.Health{})
	if err != nil {
		p.logger.Warn("health probe: build request", slog.String("error", err.Error()))
		return false
	}

	resp, err := p.exec.Execute(ctx, req)
	if err != nil {
		p.logger.Warn("health probe: engine unreachable", slog.String("error", err.Error()))
		return false
	}

	if resp.StatusCode != http.StatusOK {
		p.logger.Warn("health probe: unexpected status", slog.Int("status", resp.StatusCode))
		return false
	}

	var body map[string]any
	if err := json.Unmarshal(resp.Body, &body); err != nil || body == nil {
		p.logger.Warn("health probe: malformed body")
		return false
	}

	return true
}
