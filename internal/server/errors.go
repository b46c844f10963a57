package server

import (
	"encoding/json"
	"net/http"

	"github.com/tjfontaine/recommendation-gateway/internal/domain"
)

// Error types for failures raised by the HTTP layer itself.
const (
	errTypeAuthentication = "authentication_error"
	errTypeRateLimited    = "rate_limit_exceeded"
	errTypeInternal       = "internal_error"
)

type errorEnvelope struct {
	Error any `json:"error"`
}

type errorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes err as {"error":{"type":..,"message":..}}. Errors that
// are not a *domain.GatewayError are reported as a generic internal error so
// their text never reaches the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	AddError(r.Context(), err)

	gwErr, ok := domain.AsGatewayError(err)
	if !ok {
		writeErrorDetail(w, http.StatusInternalServerError, errTypeInternal, "internal server error")
		return
	}
	writeJSON(w, gwErr.HTTPStatusCode(), errorEnvelope{Error: gwErr})
}

func writeErrorDetail(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorDetail{Type: errType, Message: message}})
}
