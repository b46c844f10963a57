// Package domain provides the canonical types and error kinds for the gateway.
package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind represents the category of a gateway error.
type ErrorKind string

const (
	// ErrorKindForbidden indicates the caller lacks every role the operation requires.
	ErrorKindForbidden ErrorKind = "forbidden"

	// ErrorKindUnauthorized indicates the recommendation engine rejected the gateway's API key.
	ErrorKindUnauthorized ErrorKind = "unauthorized"

	// ErrorKindEndpointNotFound indicates the recommendation engine has no such route.
	ErrorKindEndpointNotFound ErrorKind = "endpoint_not_found"

	// ErrorKindUpstream covers every other upstream failure, transport failures included.
	ErrorKindUpstream ErrorKind = "upstream_error"

	// ErrorKindInvalidRequest indicates the operation request failed validation.
	ErrorKindInvalidRequest ErrorKind = "invalid_request"
)

// GatewayError is the only error type the gateway surfaces to its callers.
// Message is safe to show to clients: it never carries upstream response
// bodies, transport error text, or credentials.
type GatewayError struct {
	// Kind is the category of error
	Kind ErrorKind `json:"type"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// Operation is the operation that failed (if applicable)
	Operation string `json:"operation,omitempty"`

	// RequiredRoles is set for Forbidden errors
	RequiredRoles RoleSet `json:"required_roles,omitempty"`

	// StatusCode overrides the default HTTP status code
	StatusCode int `json:"-"`
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// HTTPStatusCode returns the HTTP status code used when the error is written to a client.
func (e *GatewayError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}

	switch e.Kind {
	case ErrorKindInvalidRequest:
		return http.StatusBadRequest
	case ErrorKindForbidden:
		return http.StatusForbidden
	case ErrorKindUnauthorized, ErrorKindEndpointNotFound, ErrorKindUpstream:
		// The caller did nothing wrong; the gateway's dependency failed.
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NewGatewayError creates a new gateway error.
func NewGatewayError(kind ErrorKind, message string) *GatewayError {
	return &GatewayError{
		Kind:    kind,
		Message: message,
	}
}

// WithOperation records the operation name on the error.
func (e *GatewayError) WithOperation(op string) *GatewayError {
	e.Operation = op
	return e
}

// WithStatusCode sets a specific HTTP status code.
func (e *GatewayError) WithStatusCode(code int) *GatewayError {
	e.StatusCode = code
	return e
}

// Convenience constructors for common errors

// ErrForbidden creates a forbidden error listing the roles that would have been accepted.
func ErrForbidden(op string, required RoleSet) *GatewayError {
	return &GatewayError{
		Kind:          ErrorKindForbidden,
		Message:       fmt.Sprintf("%s requires one of roles [%s]", op, strings.Join(required.Strings(), ", ")),
		Operation:     op,
		RequiredRoles: required,
	}
}

// ErrUnauthorized creates the error used when the engine rejects the gateway's API key.
func ErrUnauthorized() *GatewayError {
	return NewGatewayError(ErrorKindUnauthorized, "invalid API key for recommendation service")
}

// ErrEndpointNotFound creates the error used when the engine reports a missing route.
func ErrEndpointNotFound() *GatewayError {
	return NewGatewayError(ErrorKindEndpointNotFound, "recommendation endpoint not found")
}

// ErrUpstream creates the catch-all upstream error for an operation.
func ErrUpstream(op string) *GatewayError {
	return NewGatewayError(ErrorKindUpstream, "error calling recommendation service for "+op).
		WithOperation(op)
}

// ErrInvalidRequest creates a validation error.
func ErrInvalidRequest(message string) *GatewayError {
	return NewGatewayError(ErrorKindInvalidRequest, message)
}

// AsGatewayError extracts a *GatewayError from err's chain.
func AsGatewayError(err error) (*GatewayError, bool) {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr, true
	}
	return nil, false
}

// IsKind reports whether err is a *GatewayError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	gwErr, ok := AsGatewayError(err)
	return ok && gwErr.Kind == kind
}
