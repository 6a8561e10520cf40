package httpx_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datakwip/mcp-gateway/pkg/httpx"
	"github.com/datakwip/mcp-gateway/pkg/jwtx"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestChainOrder(t *testing.T) {
	var order []string
	tag := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(okHandler(), tag("inner"), tag("outer"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	// The last listed middleware runs first.
	require.Equal(t, []string{"outer", "inner"}, order)
}

func TestAuthnMiddleware(t *testing.T) {
	accept := httpx.VerifierFunc(func(_ context.Context, raw string) (jwtx.Principal, error) {
		return jwtx.NewPrincipal("user-123", "tools:read"), nil
	})

	t.Run("missing authorization header", func(t *testing.T) {
		h := httpx.Chain(okHandler(), httpx.AuthnMiddleware(accept, false))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("POST", "/mcp", nil))

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
		assert.Contains(t, rec.Body.String(), "error_id")
	})

	t.Run("non-bearer scheme rejected", func(t *testing.T) {
		h := httpx.Chain(okHandler(), httpx.AuthnMiddleware(accept, false))

		req := httptest.NewRequest("POST", "/mcp", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token attaches principal", func(t *testing.T) {
		var got jwtx.Principal
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := httpx.PrincipalFromContext(r.Context())
			require.True(t, ok)
			got = p
			w.WriteHeader(http.StatusOK)
		})
		h := httpx.Chain(inner, httpx.AuthnMiddleware(accept, false))

		req := httptest.NewRequest("POST", "/mcp", nil)
		req.Header.Set("Authorization", "Bearer some.jwt.token")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user-123", got.Subject)
		assert.True(t, got.HasScope("tools:read"))
	})

	t.Run("failure classes map to response contract", func(t *testing.T) {
		tests := []struct {
			name       string
			err        error
			wantStatus int
			wantCode   string
		}{
			{"expired", jwtx.ErrExpired, http.StatusUnauthorized, "invalid_token"},
			{"bad signature", jwtx.ErrInvalidSig, http.StatusUnauthorized, "invalid_token"},
			{"unknown kid", jwtx.ErrUnknownKID, http.StatusUnauthorized, "invalid_token"},
			{"jwks unreachable", jwtx.ErrUpstream, http.StatusServiceUnavailable, "temporarily_unavailable"},
			{"missing scope", jwtx.ErrInsufficientScope, http.StatusForbidden, "insufficient_scope"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				reject := httpx.VerifierFunc(func(context.Context, string) (jwtx.Principal, error) {
					return jwtx.Principal{}, tt.err
				})
				h := httpx.Chain(okHandler(), httpx.AuthnMiddleware(reject, false))

				req := httptest.NewRequest("POST", "/mcp", nil)
				req.Header.Set("Authorization", "Bearer whatever")
				rec := httptest.NewRecorder()
				h.ServeHTTP(rec, req)

				require.Equal(t, tt.wantStatus, rec.Code)
				assert.Contains(t, rec.Body.String(), tt.wantCode)
				// The response never carries the internal classification.
				assert.NotContains(t, rec.Body.String(), tt.err.Error())
			})
		}
	})
}

func TestSecurityHeaders(t *testing.T) {
	h := httpx.Chain(okHandler(), httpx.SecurityHeaders("production"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	hdr := rec.Header()
	assert.Equal(t, "nosniff", hdr.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", hdr.Get("X-Frame-Options"))
	assert.Contains(t, hdr.Get("Strict-Transport-Security"), "max-age=31536000")
	assert.Contains(t, hdr.Get("Content-Security-Policy"), "object-src 'none'")
	assert.Equal(t, "no-store, no-cache, must-revalidate, private", hdr.Get("Cache-Control"))
	assert.Empty(t, hdr.Get("Server"))
}

func TestCSPPolicyByEnvironment(t *testing.T) {
	dev := httpx.CSPPolicy("development")
	prod := httpx.CSPPolicy("production")

	assert.Contains(t, dev, "'unsafe-eval'")
	assert.NotContains(t, prod, "'unsafe-eval'")
	assert.Contains(t, prod, "frame-src 'none'")
}

func TestCORSMiddleware(t *testing.T) {
	cfg := httpx.CORSConfig{AllowedOrigins: []string{"https://claude.ai", "http://localhost:3000"}}
	h := httpx.Chain(okHandler(), httpx.CORSMiddleware(cfg))

	t.Run("preflight from allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/mcp", nil)
		req.Header.Set("Origin", "https://claude.ai")
		req.Header.Set("Access-Control-Request-Method", "POST")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "https://claude.ai", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
		assert.NotEmpty(t, rec.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("preflight from disallowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/mcp", nil)
		req.Header.Set("Origin", "https://evil.example")
		req.Header.Set("Access-Control-Request-Method", "POST")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusForbidden, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("actual request from allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Origin", rec.Header().Get("Vary"))
	})

	t.Run("wildcard is never honoured", func(t *testing.T) {
		wild := httpx.CORSConfig{AllowedOrigins: []string{"*"}}
		assert.False(t, wild.OriginAllowed("https://anything.example"))
	})

	t.Run("request without origin passes untouched", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}
