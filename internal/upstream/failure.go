package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// FailureKind classifies why an upstream exchange did not yield a usable response.
type FailureKind string

const (
	// FailureTimeout means the connect or read budget expired.
	FailureTimeout FailureKind = "timeout"
	// FailureConnection covers DNS errors, refused and reset connections.
	FailureConnection FailureKind = "connection"
	// FailureCanceled means the caller's context was canceled.
	FailureCanceled FailureKind = "canceled"
	// FailureResponseTooLarge means the body exceeded the endpoint's size bound.
	FailureResponseTooLarge FailureKind = "response_too_large"
	// FailureStatus means the engine answered with a non-2xx status.
	FailureStatus FailureKind = "status"
	// FailureDecode means a 2xx body could not be decoded.
	FailureDecode FailureKind = "decode"
	// FailureTransport is any other transport error.
	FailureTransport FailureKind = "transport"
)

// Failure is a classified upstream failure. Its Error text is built only from
// the kind and status code; the underlying cause is reachable through Unwrap
// for debugging but is never part of the message.
type Failure struct {
	Kind       FailureKind
	StatusCode int
	cause      error
}

func (f *Failure) Error() string {
	if f.Kind == FailureStatus {
		return fmt.Sprintf("upstream returned status %d", f.StatusCode)
	}
	return "upstream " + string(f.Kind) + " failure"
}

func (f *Failure) Unwrap() error { return f.cause }

// StatusFailure reports a non-2xx upstream status.
func StatusFailure(code int) *Failure {
	return &Failure{Kind: FailureStatus, StatusCode: code}
}

// DecodeFailure reports a 2xx response whose body could not be decoded.
func DecodeFailure(code int, cause error) *Failure {
	return &Failure{Kind: FailureDecode, StatusCode: code, cause: cause}
}

// AsFailure extracts a *Failure from err's chain.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// classify maps a transport error from http.Client.Do or a body read.
func classify(err error) *Failure {
	f := &Failure{Kind: FailureTransport, cause: err}

	var netErr net.Error
	var dnsErr *net.DNSError
	var opErr *net.OpError

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		f.Kind = FailureTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		f.Kind = FailureTimeout
	case errors.Is(err, context.Canceled):
		f.Kind = FailureCanceled
	case errors.As(err, &dnsErr),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.As(err, &opErr):
		f.Kind = FailureConnection
	}
	return f
}
