// Package server exposes the recommendation gateway over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/tjfontaine/recommendation-gateway/internal/auth"
	"github.com/tjfontaine/recommendation-gateway/internal/storage"
)

// Options configures the HTTP server.
type Options struct {
	Port           int
	RequestTimeout time.Duration
	RateLimit      float64 // requests per second, 0 disables
	RateLimitBurst int
	Logger         *slog.Logger
	Authenticator  *auth.Authenticator
	Gateway        Recommender
	Store          storage.InvocationStore // optional: nil disables auditing
}

type Server struct {
	Router *chi.Mux
	Port   int
	logger *slog.Logger
	http   *http.Server
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := &handlers{gw: opts.Gateway, store: opts.Store, logger: logger}

	r := chi.NewRouter()

	// Apply middleware in order
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(MetricsMiddleware)
	r.Use(middleware.Recoverer)

	// Wrap with OpenTelemetry HTTP instrumentation
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "recommendation-gateway")
	})

	r.Get("/healthz", h.liveness)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(TimeoutMiddleware(opts.RequestTimeout))
		r.Use(RateLimitMiddleware(rate.Limit(opts.RateLimit), opts.RateLimitBurst))
		r.Use(AuthMiddleware(opts.Authenticator))

		r.Route("/api/recommendations", func(r chi.Router) {
			r.Get("/clustering", h.clustering)
			r.Get("/collaborative", h.collaborative)
			r.Get("/hybrid", h.hybrid)
			r.Get("/health", h.health)
		})

		if opts.Store != nil {
			r.Get("/api/admin/invocations", h.listInvocations)
		}
	})

	s := &Server{
		Router: r,
		Port:   opts.Port,
		logger: logger,
	}
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until Shutdown is called. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting server", slog.Int("port", s.Port))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
