// Package safehttp builds outbound HTTP transports whose every blocking phase
// is bounded by a timeout.
package safehttp

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

// TransportOptions bounds the phases of an outbound exchange.
type TransportOptions struct {
	// ConnectTimeout bounds DNS resolution, TCP connect and the TLS handshake.
	ConnectTimeout time.Duration
	// ReadTimeout bounds the wait for response headers once the request is written.
	ReadTimeout time.Duration
	// MaxIdleConns caps idle pooled connections to the upstream host.
	MaxIdleConns int
	// DenyPrivateNetworks rejects connections to loopback, private and
	// link-local addresses to reduce SSRF risk.
	DenyPrivateNetworks bool
}

// NewTransport returns a transport configured from opts. Zero durations leave
// the corresponding phase unbounded, so callers should always set both.
func NewTransport(opts TransportOptions) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   opts.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}

	dial := dialer.DialContext
	if opts.DenyPrivateNetworks {
		dial = denyPrivate(dialer)
	}

	idle := opts.MaxIdleConns
	if idle <= 0 {
		idle = 16
	}

	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dial,
		TLSHandshakeTimeout:   opts.ConnectTimeout,
		ResponseHeaderTimeout: opts.ReadTimeout,
		MaxIdleConns:          idle,
		MaxIdleConnsPerHost:   idle,
		IdleConnTimeout:       90 * time.Second,
		ForceAttemptHTTP2:     true,
	}
}

func denyPrivate(dialer *net.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
		ip := net.ParseIP(host)
		if ip == nil {
			conn.Close()
			return nil, fmt.Errorf("failed to parse remote IP for %q", addr)
		}

		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() {
			conn.Close()
			return nil, fmt.Errorf("access to private IP %s is denied", ip)
		}

		return conn, nil
	}
}
