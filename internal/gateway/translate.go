package gateway

import (
	"net/http"

	"github.com/tjfontaine/recommendation-gateway/internal/domain"
	"github.com/tjfontaine/recommendation-gateway/internal/upstream"
)

// Translate maps an upstream failure to the gateway error surfaced to
// callers. A rejected API key (401) and a missing route (404) keep their own
// kinds; every other status and every transport failure becomes
// ErrorKindUpstream naming operation. Errors that are already
// *domain.GatewayError pass through unchanged.
func Translate(err error, operation string) *domain.GatewayError {
	if err == nil {
		return nil
	}
	if gwErr, ok := domain.AsGatewayError(err); ok {
		return gwErr
	}

	f, ok := upstream.AsFailure(err)
	if !ok || f.Kind != upstream.FailureStatus {
		return domain.ErrUpstream(operation)
	}

	switch f.StatusCode {
	case http.StatusUnauthorized:
		return domain.ErrUnauthorized().WithOperation(operation)
	case http.StatusNotFound:
		return domain.ErrEndpointNotFound().WithOperation(operation)
	default:
		return domain.ErrUpstream(operation)
	}
}
