package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tjfontaine/recommendation-gateway/internal/authz"
	"github.com/tjfontaine/recommendation-gateway/internal/domain"
	"github.com/tjfontaine/recommendation-gateway/internal/storage"
)

// Query parameter names accepted on the inbound routes.
const (
	paramPlaylistName = "playlistName"
	paramQueryURIs    = "queryUris"
	paramK            = "k"
	paramNNeighbors   = "nNeighbors"
)

const outcomeOK = "ok"

// Recommender is the gateway surface the handlers drive.
type Recommender interface {
	Clustering(ctx context.Context, principal domain.Principal, playlistName string, k, nNeighbors int) (domain.RecommendationResult, error)
	Collaborative(ctx context.Context, principal domain.Principal, queryURIs []string, k int) (domain.RecommendationResult, error)
	Hybrid(ctx context.Context, principal domain.Principal, playlistName string, queryURIs []string, k, nNeighbors int) (domain.RecommendationResult, error)
	Health(ctx context.Context, principal domain.Principal) (domain.HealthStatus, error)
}

type handlers struct {
	gw     Recommender
	store  storage.InvocationStore
	logger *slog.Logger
}

func (h *handlers) clustering(w http.ResponseWriter, r *http.Request) {
	h.recommend(w, r, domain.OpClustering, func(ctx context.Context, p domain.Principal, q url.Values) (domain.RecommendationResult, error) {
		k, err := intParam(q, paramK, domain.DefaultK)
		if err != nil {
			return nil, err
		}
		nNeighbors, err := intParam(q, paramNNeighbors, domain.DefaultNNeighbors)
		if err != nil {
			return nil, err
		}
		return h.gw.Clustering(ctx, p, q.Get(paramPlaylistName), k, nNeighbors)
	})
}

func (h *handlers) collaborative(w http.ResponseWriter, r *http.Request) {
	h.recommend(w, r, domain.OpCollaborative, func(ctx context.Context, p domain.Principal, q url.Values) (domain.RecommendationResult, error) {
		k, err := intParam(q, paramK, domain.DefaultK)
		if err != nil {
			return nil, err
		}
		return h.gw.Collaborative(ctx, p, listParam(q, paramQueryURIs), k)
	})
}

func (h *handlers) hybrid(w http.ResponseWriter, r *http.Request) {
	h.recommend(w, r, domain.OpHybrid, func(ctx context.Context, p domain.Principal, q url.Values) (domain.RecommendationResult, error) {
		k, err := intParam(q, paramK, domain.DefaultK)
		if err != nil {
			return nil, err
		}
		nNeighbors, err := intParam(q, paramNNeighbors, domain.DefaultNNeighbors)
		if err != nil {
			return nil, err
		}
		return h.gw.Hybrid(ctx, p, q.Get(paramPlaylistName), listParam(q, paramQueryURIs), k, nNeighbors)
	})
}

type recommendFunc func(ctx context.Context, p domain.Principal, q url.Values) (domain.RecommendationResult, error)

func (h *handlers) recommend(w http.ResponseWriter, r *http.Request, kind domain.OperationKind, run recommendFunc) {
	start := time.Now()
	ctx := r.Context()
	principal := GetPrincipal(ctx)
	AddLogField(ctx, "operation", string(kind))

	items, err := run(ctx, principal, r.URL.Query())
	h.audit(ctx, kind, principal, err, len(items), start)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, items)
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	principal := GetPrincipal(ctx)
	AddLogField(ctx, "operation", string(domain.OpHealth))

	status, err := h.gw.Health(ctx, principal)
	h.audit(ctx, domain.OpHealth, principal, err, 0, start)
	if err != nil {
		writeError(w, r, err)
		return
	}

	AddLogField(ctx, "engine_status", status.Status)
	writeJSON(w, http.StatusOK, status)
}

func (h *handlers) listInvocations(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipal(r.Context())
	if err := authz.Authorize(principal, domain.NewRoleSet(domain.RoleAdmin), "invocation audit"); err != nil {
		writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	limit, err := intParam(q, "limit", storage.DefaultListLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	records, err := h.store.ListInvocations(r.Context(), storage.ListOptions{
		Limit:     limit,
		Operation: q.Get("operation"),
		Subject:   q.Get("subject"),
	})
	if err != nil {
		h.logger.Error("failed to list invocations", slog.String("error", err.Error()))
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"invocations": records})
}

func (h *handlers) liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// audit stores one invocation record before the response is written. A
// storage failure is logged and never changes the response.
func (h *handlers) audit(ctx context.Context, kind domain.OperationKind, principal domain.Principal, err error, items int, start time.Time) {
	if h.store == nil {
		return
	}

	rec := &storage.InvocationRecord{
		RequestID:  GetRequestID(ctx),
		Operation:  string(kind),
		Subject:    principal.Subject,
		Outcome:    outcomeOK,
		StatusCode: http.StatusOK,
		ItemCount:  items,
		Duration:   time.Since(start),
	}
	if err != nil {
		rec.Outcome = errTypeInternal
		rec.StatusCode = http.StatusInternalServerError
		if gwErr, ok := domain.AsGatewayError(err); ok {
			rec.Outcome = string(gwErr.Kind)
			rec.StatusCode = gwErr.HTTPStatusCode()
		}
	}

	// The request context may already be done; the record still belongs to it.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := h.store.RecordInvocation(writeCtx, rec); err != nil {
		auditFailures.Inc()
		h.logger.Warn("failed to record invocation",
			slog.String("request_id", rec.RequestID),
			slog.String("error", err.Error()),
		)
	}
}

// intParam reads an integer parameter, returning def when it is absent.
// Range checks are left to operation validation.
func intParam(q url.Values, name string, def int) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, domain.ErrInvalidRequest(fmt.Sprintf("%s must be an integer", name))
	}
	return v, nil
}

// listParam reads a list parameter given either as repeated parameters
// (?a=x&a=y) or as one comma-separated value (?a=x,y). Order is preserved
// and empty elements are kept for validation to reject.
func listParam(q url.Values, name string) []string {
	values := q[name]
	if len(values) == 1 {
		return strings.Split(values[0], ",")
	}
	return values
}
