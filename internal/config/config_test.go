package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("RECGW_UPSTREAM__BASE_URL", "http://engine.internal:8000")
	t.Setenv("RECGW_UPSTREAM__API_KEY", "engine-key")
	t.Setenv("RECGW_AUTH__JWT_SECRET", "jwt-secret")
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		setRequired(t)

		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.Server.Port != 8080 {
			t.Errorf("Load() port = %v, want 8080", cfg.Server.Port)
		}
		if cfg.Upstream.ConnectTimeout != 20*time.Second {
			t.Errorf("Load() connect_timeout = %v, want 20s", cfg.Upstream.ConnectTimeout)
		}
		if cfg.Upstream.ReadTimeout != 40*time.Second {
			t.Errorf("Load() read_timeout = %v, want 40s", cfg.Upstream.ReadTimeout)
		}
		if cfg.Upstream.MaxResponseBytes != 1<<20 {
			t.Errorf("Load() max_response_bytes = %v, want %v", cfg.Upstream.MaxResponseBytes, 1<<20)
		}
		if cfg.Storage.Type != "memory" {
			t.Errorf("Load() storage.type = %v, want memory", cfg.Storage.Type)
		}
		if cfg.Server.RateLimit != 0 {
			t.Errorf("Load() rate_limit = %v, want 0", cfg.Server.RateLimit)
		}
	})

	t.Run("env var port override", func(t *testing.T) {
		setRequired(t)
		t.Setenv("RECGW_SERVER__PORT", "9000")
		t.Setenv("RECGW_UPSTREAM__READ_TIMEOUT", "5s")

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.Server.Port != 9000 {
			t.Errorf("Load() port = %v, want 9000", cfg.Server.Port)
		}
		if cfg.Upstream.ReadTimeout != 5*time.Second {
			t.Errorf("Load() read_timeout = %v, want 5s", cfg.Upstream.ReadTimeout)
		}
	})

	t.Run("yaml file with substitution", func(t *testing.T) {
		t.Setenv("ENGINE_KEY", "from-env")
		t.Setenv("GATEWAY_JWT", "jwt-from-env")

		path := filepath.Join(t.TempDir(), "config.yaml")
		yaml := `server:
  port: 8181
  rate_limit: 2.5
  rate_limit_burst: 5
upstream:
  base_url: http://engine.internal:8000
  api_key: ${ENGINE_KEY}
  connect_timeout: 3s
auth:
  jwt_secret: ${GATEWAY_JWT}
  issuer: recgw
storage:
  type: sqlite
  sqlite:
    path: /var/lib/recgw/audit.db
log:
  level: debug
`
		if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.Server.Port != 8181 {
			t.Errorf("port = %v, want 8181", cfg.Server.Port)
		}
		if cfg.Server.RateLimit != 2.5 || cfg.Server.RateLimitBurst != 5 {
			t.Errorf("rate limit = %v/%v, want 2.5/5", cfg.Server.RateLimit, cfg.Server.RateLimitBurst)
		}
		if cfg.Upstream.APIKey != "from-env" {
			t.Errorf("api_key = %q, want from-env", cfg.Upstream.APIKey)
		}
		if cfg.Auth.JWTSecret != "jwt-from-env" || cfg.Auth.Issuer != "recgw" {
			t.Errorf("auth = %+v", cfg.Auth)
		}
		if cfg.Upstream.ConnectTimeout != 3*time.Second {
			t.Errorf("connect_timeout = %v, want 3s", cfg.Upstream.ConnectTimeout)
		}
		if cfg.Storage.Type != "sqlite" || cfg.Storage.SQLite.Path != "/var/lib/recgw/audit.db" {
			t.Errorf("storage = %+v", cfg.Storage)
		}
		level, err := cfg.Log.SlogLevel()
		if err != nil || level != slog.LevelDebug {
			t.Errorf("SlogLevel() = %v, %v, want debug", level, err)
		}
	})

	t.Run("env overrides file", func(t *testing.T) {
		setRequired(t)
		t.Setenv("RECGW_SERVER__PORT", "7000")

		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("server:\n  port: 8181\n"), 0o600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Server.Port != 7000 {
			t.Errorf("port = %v, want 7000", cfg.Server.Port)
		}
	})

	t.Run("missing upstream key", func(t *testing.T) {
		setRequired(t)
		t.Setenv("RECGW_UPSTREAM__API_KEY", "")

		if _, err := Load(""); err == nil {
			t.Fatal("Load() error = nil, want error")
		}
	})
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:   ServerConfig{Port: 8080, RequestTimeout: time.Minute},
			Upstream: UpstreamConfig{BaseURL: "http://e", APIKey: "k", ConnectTimeout: time.Second, ReadTimeout: time.Second, MaxResponseBytes: 1},
			Auth:     AuthConfig{JWTSecret: "s"},
			Storage:  StorageConfig{Type: "memory"},
			Log:      LogConfig{Level: "info"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, true},
		{"negative rate", func(c *Config) { c.Server.RateLimit = -1 }, true},
		{"rate without burst", func(c *Config) { c.Server.RateLimit = 1 }, true},
		{"no base url", func(c *Config) { c.Upstream.BaseURL = "" }, true},
		{"zero read timeout", func(c *Config) { c.Upstream.ReadTimeout = 0 }, true},
		{"no jwt secret", func(c *Config) { c.Auth.JWTSecret = "" }, true},
		{"sqlite without path", func(c *Config) { c.Storage.Type = "sqlite" }, true},
		{"postgres", func(c *Config) { c.Storage.Type = "postgres" }, true},
		{"none storage", func(c *Config) { c.Storage.Type = "none" }, false},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEndpoint(t *testing.T) {
	cfg := Config{Upstream: UpstreamConfig{
		BaseURL:          "http://e",
		APIKey:           "k",
		ConnectTimeout:   time.Second,
		ReadTimeout:      2 * time.Second,
		MaxResponseBytes: 64,
		MaxIdleConns:     4,
	}}

	ep := cfg.Endpoint()
	if ep.BaseURL != "http://e" || ep.APIKey != "k" || ep.ReadTimeout != 2*time.Second || ep.MaxResponseBytes != 64 || ep.MaxIdleConns != 4 {
		t.Errorf("Endpoint() = %+v", ep)
	}
}

func TestSubstituteEnvVars(t *testing.T) {
	// Set test env var
	t.Setenv("TEST_VAR", "test-value")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "simple substitution",
			input: "${TEST_VAR}",
			want:  "test-value",
		},
		{
			name:  "substitution in string",
			input: "prefix-${TEST_VAR}-suffix",
			want:  "prefix-test-value-suffix",
		},
		{
			name:  "no substitution",
			input: "plain-string",
			want:  "plain-string",
		},
		{
			name:  "undefined var",
			input: "${UNDEFINED_VAR}",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := substituteEnvVars(tt.input)
			if got != tt.want {
				t.Errorf("substituteEnvVars() = %v, want %v", got, tt.want)
			}
		})
	}
}
