package safehttp

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewTransport_AppliesTimeouts(t *testing.T) {
	tr := NewTransport(TransportOptions{
		ConnectTimeout: 2 * time.Second,
		ReadTimeout:    3 * time.Second,
		MaxIdleConns:   4,
	})

	if tr.TLSHandshakeTimeout != 2*time.Second {
		t.Errorf("TLSHandshakeTimeout = %v, want 2s", tr.TLSHandshakeTimeout)
	}
	if tr.ResponseHeaderTimeout != 3*time.Second {
		t.Errorf("ResponseHeaderTimeout = %v, want 3s", tr.ResponseHeaderTimeout)
	}
	if tr.MaxIdleConnsPerHost != 4 {
		t.Errorf("MaxIdleConnsPerHost = %d, want 4", tr.MaxIdleConnsPerHost)
	}
}

func TestNewTransport_DefaultIdlePool(t *testing.T) {
	tr := NewTransport(TransportOptions{ConnectTimeout: time.Second, ReadTimeout: time.Second})
	if tr.MaxIdleConns != 16 {
		t.Errorf("MaxIdleConns = %d, want 16", tr.MaxIdleConns)
	}
}

func TestNewTransport_DenyPrivateNetworks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := &http.Client{Transport: NewTransport(TransportOptions{
		ConnectTimeout:      time.Second,
		ReadTimeout:         time.Second,
		DenyPrivateNetworks: true,
	})}

	_, err := client.Get(srv.URL)
	if err == nil {
		t.Fatal("expected loopback dial to be denied")
	}
	if !strings.Contains(err.Error(), "denied") {
		t.Errorf("error = %v, want denial", err)
	}

	open := &http.Client{Transport: NewTransport(TransportOptions{
		ConnectTimeout: time.Second,
		ReadTimeout:    time.Second,
	})}
	resp, err := open.Get(srv.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()
}
