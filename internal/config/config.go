package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/tjfontaine/recommendation-gateway/internal/upstream"
)

// EnvPrefix prefixes every environment override. Nested keys use "__",
// e.g. RECGW_UPSTREAM__BASE_URL.
const EnvPrefix = "RECGW_"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Upstream  UpstreamConfig  `koanf:"upstream"`
	Auth      AuthConfig      `koanf:"auth"`
	Storage   StorageConfig   `koanf:"storage"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Log       LogConfig       `koanf:"log"`
}

type ServerConfig struct {
	Port           int           `koanf:"port"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	RateLimit      float64       `koanf:"rate_limit"` // requests per second, 0 disables
	RateLimitBurst int           `koanf:"rate_limit_burst"`
}

type UpstreamConfig struct {
	BaseURL             string        `koanf:"base_url"`
	APIKey              string        `koanf:"api_key"`
	ConnectTimeout      time.Duration `koanf:"connect_timeout"`
	ReadTimeout         time.Duration `koanf:"read_timeout"`
	MaxResponseBytes    int64         `koanf:"max_response_bytes"`
	MaxIdleConns        int           `koanf:"max_idle_conns"`
	DenyPrivateNetworks bool          `koanf:"deny_private_networks"`
}

type AuthConfig struct {
	JWTSecret string `koanf:"jwt_secret"`
	Issuer    string `koanf:"issuer"` // optional: required iss claim
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // sqlite, memory, none
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type TelemetryConfig struct {
	Enabled bool `koanf:"enabled"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

var defaults = map[string]any{
	"server.port":                 8080,
	"server.request_timeout":      "90s",
	"server.rate_limit":           0,
	"server.rate_limit_burst":     20,
	"upstream.connect_timeout":    upstream.DefaultConnectTimeout.String(),
	"upstream.read_timeout":       upstream.DefaultReadTimeout.String(),
	"upstream.max_response_bytes": upstream.DefaultMaxResponseBytes,
	"upstream.max_idle_conns":     upstream.DefaultMaxIdleConns,
	"storage.type":                "memory",
	"storage.sqlite.path":         "recgw.db",
	"log.level":                   "info",
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads configuration from the YAML file at path (skipped when it does
// not exist), then RECGW_ environment variables, then fills defaults.
// ${VAR} references in secrets are expanded from the environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			// File not found is OK, we'll use env vars
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
		}
	}

	// Load environment variables (can override file config)
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	// Default values
	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Upstream.APIKey = substituteEnvVars(cfg.Upstream.APIKey)
	cfg.Auth.JWTSecret = substituteEnvVars(cfg.Auth.JWTSecret)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	case c.Server.RequestTimeout <= 0:
		return fmt.Errorf("server.request_timeout must be positive")
	case c.Server.RateLimit < 0:
		return fmt.Errorf("server.rate_limit must not be negative")
	case c.Server.RateLimit > 0 && c.Server.RateLimitBurst <= 0:
		return fmt.Errorf("server.rate_limit_burst must be positive when rate limiting is on")
	case c.Upstream.BaseURL == "":
		return fmt.Errorf("upstream.base_url is required")
	case c.Upstream.APIKey == "":
		return fmt.Errorf("upstream.api_key is required")
	case c.Upstream.ConnectTimeout <= 0 || c.Upstream.ReadTimeout <= 0:
		return fmt.Errorf("upstream timeouts must be positive")
	case c.Upstream.MaxResponseBytes <= 0:
		return fmt.Errorf("upstream.max_response_bytes must be positive")
	case c.Auth.JWTSecret == "":
		return fmt.Errorf("auth.jwt_secret is required")
	}

	switch c.Storage.Type {
	case "sqlite":
		if c.Storage.SQLite.Path == "" {
			return fmt.Errorf("storage.sqlite.path is required for sqlite storage")
		}
	case "memory", "none":
	default:
		return fmt.Errorf("unsupported storage.type %q", c.Storage.Type)
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// Endpoint returns the upstream settings in the form upstream.NewEndpoint takes.
func (c *Config) Endpoint() upstream.EndpointConfig {
	return upstream.EndpointConfig{
		BaseURL:             c.Upstream.BaseURL,
		APIKey:              c.Upstream.APIKey,
		ConnectTimeout:      c.Upstream.ConnectTimeout,
		ReadTimeout:         c.Upstream.ReadTimeout,
		MaxResponseBytes:    c.Upstream.MaxResponseBytes,
		MaxIdleConns:        c.Upstream.MaxIdleConns,
		DenyPrivateNetworks: c.Upstream.DenyPrivateNetworks,
	}
}

// SlogLevel parses the configured log level (debug, info, warn, error).
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
