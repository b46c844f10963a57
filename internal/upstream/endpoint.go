package upstream

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
)

// Defaults for the recommendation engine connection.
const (
	DefaultConnectTimeout   = 20 * time.Second
	DefaultReadTimeout      = 40 * time.Second
	DefaultMaxResponseBytes = 1 << 20
	DefaultMaxIdleConns     = 16
)

const redacted = "[REDACTED]"

// EndpointConfig is the mutable input used to build an Endpoint.
type EndpointConfig struct {
	BaseURL             string
	APIKey              string
	ConnectTimeout      time.Duration
	ReadTimeout         time.Duration
	MaxResponseBytes    int64
	MaxIdleConns        int
	DenyPrivateNetworks bool
}

// Endpoint is the immutable description of the recommendation engine. It is
// built once at startup and shared read-only by every request; all fields
// are unexported so nothing can change it after construction.
type Endpoint struct {
	baseURL             string
	apiKey              string
	connectTimeout      time.Duration
	readTimeout         time.Duration
	maxResponseBytes    int64
	maxIdleConns        int
	denyPrivateNetworks bool
}

// NewEndpoint validates cfg and returns the endpoint it describes.
func NewEndpoint(cfg EndpointConfig) (*Endpoint, error) {
	base := strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base URL must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("base URL %q has no host", base)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return nil, fmt.Errorf("base URL must not carry a query or fragment")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	e := &Endpoint{
		baseURL:             base,
		apiKey:              cfg.APIKey,
		connectTimeout:      cfg.ConnectTimeout,
		readTimeout:         cfg.ReadTimeout,
		maxResponseBytes:    cfg.MaxResponseBytes,
		maxIdleConns:        cfg.MaxIdleConns,
		denyPrivateNetworks: cfg.DenyPrivateNetworks,
	}
	if e.connectTimeout <= 0 {
		e.connectTimeout = DefaultConnectTimeout
	}
	if e.readTimeout <= 0 {
		e.readTimeout = DefaultReadTimeout
	}
	if e.maxResponseBytes <= 0 {
		e.maxResponseBytes = DefaultMaxResponseBytes
	}
	if e.maxIdleConns <= 0 {
		e.maxIdleConns = DefaultMaxIdleConns
	}
	return e, nil
}

func (e *Endpoint) BaseURL() string               { return e.baseURL }
func (e *Endpoint) APIKey() string                { return e.apiKey }
func (e *Endpoint) ConnectTimeout() time.Duration { return e.connectTimeout }
func (e *Endpoint) ReadTimeout() time.Duration    { return e.readTimeout }
func (e *Endpoint) MaxResponseBytes() int64       { return e.maxResponseBytes }
func (e *Endpoint) MaxIdleConns() int             { return e.maxIdleConns }
func (e *Endpoint) DenyPrivateNetworks() bool     { return e.denyPrivateNetworks }

// String describes the endpoint without its API key.
func (e *Endpoint) String() string {
	return fmt.Sprintf("Endpoint{base_url=%s api_key=%s connect_timeout=%s read_timeout=%s}",
		e.baseURL, redacted, e.connectTimeout, e.readTimeout)
}

// LogValue implements slog.LogValuer so the API key never reaches a log line.
func (e *Endpoint) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("base_url", e.baseURL),
		slog.String("api_key", redacted),
		slog.Duration("connect_timeout", e.connectTimeout),
		slog.Duration("read_timeout", e.readTimeout),
		slog.Int64("max_response_bytes", e.maxResponseBytes),
	)
}
