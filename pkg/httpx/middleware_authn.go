package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/datakwip/mcp-gateway/pkg/jwtx"
	"github.com/datakwip/mcp-gateway/pkg/slogx"
)

// failureClass maps a verification failure onto the generic code the caller
// sees. The mapping deliberately loses detail: the caller learns the
// category, the logs keep the classification.
func failureClass(err error) (status int, code, desc string) {
	switch {
	case errors.Is(err, jwtx.ErrUpstream):
		return http.StatusServiceUnavailable, "temporarily_unavailable",
			"Token validation is temporarily unavailable"
	case errors.Is(err, jwtx.ErrExpired):
		return http.StatusUnauthorized, "invalid_token", "Token has expired"
	case errors.Is(err, jwtx.ErrInsufficientScope):
		return http.StatusForbidden, "insufficient_scope", "Insufficient token scopes"
	default:
		return http.StatusUnauthorized, "invalid_token", "Invalid authentication token"
	}
}

// AuthnMiddleware extracts the bearer token, runs full verification, and
// attaches the resulting Principal to the request context. Every failure
// short-circuits with the generic response contract; the classification is
// logged but never echoed verbatim to the caller.
func AuthnMiddleware(v jwtx.Verifier, sensitiveLogs bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, http.StatusUnauthorized, "invalid_token", "Authorization header required")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			principal, err := v.Verify(ctx, raw)
			if err != nil {
				status, code, desc := failureClass(err)
				log.Warn("token verification failed",
					"classification", err.Error(),
					"client_ip", ClientIP(r),
					"token", slogx.TokenPreview(raw, sensitiveLogs),
				)
				writeBearerError(w, status, code, desc)
				return
			}

			log.Debug("token verified", "sub", principal.Subject)
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(ctx, principal)))
		})
	}
}

// writeBearerError emits an RFC 6750 bearer challenge plus the standard
// error envelope.
func writeBearerError(w http.ResponseWriter, status int, code, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="`+code+`"`)
	WriteError(w, status, code, desc)
}

// VerifierFunc adapts a function to the jwtx.Verifier interface, handy for
// test doubles.
type VerifierFunc func(ctx context.Context, raw string) (jwtx.Principal, error)

func (f VerifierFunc) Verify(ctx context.Context, raw string) (jwtx.Principal, error) {
	return f(ctx, raw)
}
