package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tjfontaine/recommendation-gateway/internal/auth"
	"github.com/tjfontaine/recommendation-gateway/internal/config"
	"github.com/tjfontaine/recommendation-gateway/internal/gateway"
	"github.com/tjfontaine/recommendation-gateway/internal/server"
	"github.com/tjfontaine/recommendation-gateway/internal/storage"
	"github.com/tjfontaine/recommendation-gateway/internal/storage/memory"
	"github.com/tjfontaine/recommendation-gateway/internal/storage/sqlite"
	"github.com/tjfontaine/recommendation-gateway/internal/telemetry"
	"github.com/tjfontaine/recommendation-gateway/internal/upstream"
)

const serviceName = "recommendation-gateway"

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	os.Exit(run(*configPath))
}

// run wires and serves the gateway, returning the process exit code so that
// deferred cleanup runs before exit.
func run(configPath string) int {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		return 1
	}

	// Initialize structured logger
	level, _ := cfg.Log.SlogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// Initialize OpenTelemetry
	shutdownTracer, err := telemetry.InitTracer(telemetry.Options{
		ServiceName: serviceName,
		Enabled:     cfg.Telemetry.Enabled,
	}, logger)
	if err != nil {
		logger.Error("failed to initialize tracer", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	endpoint, err := upstream.NewEndpoint(cfg.Endpoint())
	if err != nil {
		logger.Error("invalid upstream configuration", slog.String("error", err.Error()))
		return 1
	}

	authenticator, err := auth.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		logger.Error("invalid auth configuration", slog.String("error", err.Error()))
		return 1
	}

	store, err := openStore(cfg.Storage)
	if err != nil {
		logger.Error("failed to open storage", slog.String("error", err.Error()))
		return 1
	}
	if store != nil {
		defer store.Close()
	}

	client := upstream.NewClient(endpoint, upstream.WithLogger(logger))
	gw := gateway.New(endpoint, client, gateway.WithLogger(logger))

	srv := server.New(server.Options{
		Port:           cfg.Server.Port,
		RequestTimeout: cfg.Server.RequestTimeout,
		RateLimit:      cfg.Server.RateLimit,
		RateLimitBurst: cfg.Server.RateLimitBurst,
		Logger:         logger,
		Authenticator:  authenticator,
		Gateway:        gw,
		Store:          store,
	})

	logger.Info("recommendation gateway configured",
		slog.Any("endpoint", endpoint),
		slog.String("storage", cfg.Storage.Type),
		slog.Float64("rate_limit", cfg.Server.RateLimit),
		slog.Bool("tracing", cfg.Telemetry.Enabled),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", slog.String("error", err.Error()))
			return 1
		}
		return 0
	case <-sigChan:
	}

	logger.Info("Shutdown signal received, stopping gateway...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		return 1
	}

	logger.Info("Gateway shutdown complete")
	return 0
}

// openStore returns the configured invocation store, or nil for "none".
func openStore(cfg config.StorageConfig) (storage.InvocationStore, error) {
	switch cfg.Type {
	case "sqlite":
		return sqlite.New(cfg.SQLite.Path)
	case "memory":
		return memory.New(memory.DefaultCapacity), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported storage type %q", cfg.Type)
	}
}
