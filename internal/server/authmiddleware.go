package server

import (
	"context"
	"net/http"

	"github.com/tjfontaine/recommendation-gateway/internal/auth"
	"github.com/tjfontaine/recommendation-gateway/internal/domain"
)

// principalKey is the context key for the authenticated principal.
type principalKey struct{}

// AuthMiddleware verifies the bearer token and injects the principal.
// Requests without a valid token get 401 and never reach the handler.
func AuthMiddleware(authenticator *auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.ExtractBearerToken(r)
			if err != nil {
				unauthenticated(w, r, err.Error())
				return
			}

			principal, err := authenticator.Authenticate(token)
			if err != nil {
				AddError(r.Context(), err)
				unauthenticated(w, r, "invalid bearer token")
				return
			}

			AddLogField(r.Context(), "subject", principal.Subject)
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

func unauthenticated(w http.ResponseWriter, r *http.Request, message string) {
	authRejects.Inc()
	w.Header().Set("WWW-Authenticate", `Bearer realm="recommendation-gateway"`)
	writeErrorDetail(w, http.StatusUnauthorized, errTypeAuthentication, message)
}

// WithPrincipal stores principal in ctx.
func WithPrincipal(ctx context.Context, principal domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// GetPrincipal retrieves the principal from context.
// Returns the zero Principal, which holds no roles, if none is set.
func GetPrincipal(ctx context.Context) domain.Principal {
	if p, ok := ctx.Value(principalKey{}).(domain.Principal); ok {
		return p
	}
	return domain.Principal{}
}
