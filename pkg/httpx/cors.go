package httpx

import (
	"net/http"
	"slices"
	"strconv"
)

// CORSConfig is the cross-origin policy. Origins are an explicit allow-list;
// wildcard is never honoured.
type CORSConfig struct {
	AllowedOrigins []string
	MaxAge         int // preflight cache seconds
}

const (
	corsAllowMethods = "GET, POST, OPTIONS"
	corsAllowHeaders = "Authorization, Content-Type, MCP-Protocol-Version"
)

// OriginAllowed reports whether the Origin header value is on the allow-list.
func (c CORSConfig) OriginAllowed(origin string) bool {
	if origin == "" {
		return false
	}
	return slices.Contains(c.AllowedOrigins, origin)
}

// CORSMiddleware applies the cross-origin policy. Preflight requests are
// answered before any other pipeline step; actual requests from allowed
// origins get the standard response headers. Disallowed origins simply get
// no CORS headers, which is how the browser is told no.
func CORSMiddleware(cfg CORSConfig) Middleware {
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = 600
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowed := cfg.OriginAllowed(origin)

			if allowed {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Vary", "Origin")
			}

			// Preflight short-circuits here, before auth and rate limiting.
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				if allowed {
					h := w.Header()
					h.Set("Access-Control-Allow-Methods", corsAllowMethods)
					h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
					h.Set("Access-Control-Max-Age", strconv.Itoa(maxAge))
					w.WriteHeader(http.StatusNoContent)
					return
				}
				w.WriteHeader(http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
