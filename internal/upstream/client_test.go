package upstream

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestEndpoint(t *testing.T, baseURL string, mutate func(*EndpointConfig)) *Endpoint {
	t.Helper()
	cfg := EndpointConfig{
		BaseURL:        baseURL,
		APIKey:         "test-key",
		ConnectTimeout: time.Second,
		ReadTimeout:    time.Second,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	ep, err := NewEndpoint(cfg)
	if err != nil {
		t.Fatalf("NewEndpoint() error = %v", err)
	}
	return ep
}

func getRequest(ep *Endpoint, path string) *CanonicalRequest {
	h := http.Header{}
	h.Set(HeaderAPIKey, ep.APIKey())
	return &CanonicalRequest{Method: http.MethodGet, URL: ep.BaseURL() + path, Header: h}
}

func TestClient_Execute_Success(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`["trackA","trackB"]`))
	}))
	defer srv.Close()

	ep := newTestEndpoint(t, srv.URL, nil)
	client := NewClient(ep)

	resp, err := client.Execute(context.Background(), getRequest(ep, "/recommend/recommend-clustering"))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !resp.OK() {
		t.Errorf("StatusCode = %d, want 2xx", resp.StatusCode)
	}
	if string(resp.Body) != `["trackA","trackB"]` {
		t.Errorf("Body = %s", resp.Body)
	}
	if gotKey != "test-key" {
		t.Errorf("upstream saw X-API-Key = %q", gotKey)
	}
}

func TestClient_Execute_NonSuccessStatusIsAResponse(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusNotFound, http.StatusInternalServerError} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))

		ep := newTestEndpoint(t, srv.URL, nil)
		resp, err := NewClient(ep).Execute(context.Background(), getRequest(ep, "/x"))
		srv.Close()

		if err != nil {
			t.Fatalf("status %d: Execute() error = %v", code, err)
		}
		if resp.StatusCode != code || resp.OK() {
			t.Errorf("status %d: got StatusCode %d OK=%v", code, resp.StatusCode, resp.OK())
		}
	}
}

func TestClient_Execute_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	ep := newTestEndpoint(t, url, nil)
	_, err := NewClient(ep).Execute(context.Background(), getRequest(ep, "/health"))

	f, ok := AsFailure(err)
	if !ok {
		t.Fatalf("Execute() error = %v, want *Failure", err)
	}
	if f.Kind != FailureConnection {
		t.Errorf("Kind = %s, want %s", f.Kind, FailureConnection)
	}
}

func TestClient_Execute_ReadTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ep := newTestEndpoint(t, srv.URL, func(c *EndpointConfig) {
		c.ReadTimeout = 50 * time.Millisecond
	})

	start := time.Now()
	_, err := NewClient(ep).Execute(context.Background(), getRequest(ep, "/slow"))
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Execute() took %v, timeout not enforced", elapsed)
	}

	f, ok := AsFailure(err)
	if !ok {
		t.Fatalf("Execute() error = %v, want *Failure", err)
	}
	if f.Kind != FailureTimeout {
		t.Errorf("Kind = %s, want %s", f.Kind, FailureTimeout)
	}
}

func TestClient_Execute_ResponseTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte("x"), 64))
	}))
	defer srv.Close()

	ep := newTestEndpoint(t, srv.URL, func(c *EndpointConfig) {
		c.MaxResponseBytes = 16
	})
	_, err := NewClient(ep).Execute(context.Background(), getRequest(ep, "/big"))

	f, ok := AsFailure(err)
	if !ok || f.Kind != FailureResponseTooLarge {
		t.Fatalf("Execute() error = %v, want response_too_large failure", err)
	}
}

func TestClient_Execute_OversizedErrorBodyKeepsStatus(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusNotFound, http.StatusInternalServerError} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(code)
				w.Write(bytes.Repeat([]byte("x"), 2048))
			}))
			defer srv.Close()

			ep := newTestEndpoint(t, srv.URL, func(c *EndpointConfig) {
				c.MaxResponseBytes = 1024
			})
			resp, err := NewClient(ep).Execute(context.Background(), getRequest(ep, "/big"))
			if err != nil {
				t.Fatalf("Execute() error = %v, want a response", err)
			}
			if resp.StatusCode != code {
				t.Errorf("StatusCode = %d, want %d", resp.StatusCode, code)
			}
			if len(resp.Body) != 1024 {
				t.Errorf("len(Body) = %d, want 1024", len(resp.Body))
			}
		})
	}
}

func TestClient_Execute_DoesNotFollowRedirects(t *testing.T) {
	var redirected bool
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		redirected = true
	}))
	defer target.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL, http.StatusFound)
	}))
	defer srv.Close()

	ep := newTestEndpoint(t, srv.URL, nil)
	resp, err := NewClient(ep).Execute(context.Background(), getRequest(ep, "/moved"))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if resp.StatusCode != http.StatusFound {
		t.Errorf("StatusCode = %d, want 302", resp.StatusCode)
	}
	if redirected {
		t.Error("client followed a redirect with the API key attached")
	}
}

func TestClient_FailureNeverLeaksCause(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelInfo}))

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	ep := newTestEndpoint(t, url, nil)
	req := getRequest(ep, "/health?playlist_name=secret-playlist")
	_, err := NewClient(ep, WithLogger(logger)).Execute(context.Background(), req)
	if err == nil {
		t.Fatal("expected failure")
	}

	msg := err.Error()
	if strings.Contains(msg, "refused") || strings.Contains(msg, "dial") || strings.Contains(msg, "127.0.0.1") {
		t.Errorf("Failure.Error() leaks transport detail: %q", msg)
	}
	if errors.Unwrap(err) == nil {
		t.Error("cause should remain reachable through Unwrap")
	}
	if strings.Contains(logs.String(), "test-key") || strings.Contains(logs.String(), "secret-playlist") {
		t.Errorf("log output leaks request detail: %s", logs.String())
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"deadline", context.DeadlineExceeded, FailureTimeout},
		{"canceled", context.Canceled, FailureCanceled},
		{"other", errors.New("boom"), FailureTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.err).Kind; got != tt.want {
				t.Errorf("classify() = %s, want %s", got, tt.want)
			}
		})
	}
}
