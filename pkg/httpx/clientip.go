package httpx

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP resolves the real client address behind proxies and load
// balancers. Precedence: first entry of X-Forwarded-For (the original
// client) when it parses as an address, then X-Real-IP, then the direct
// connection address.
//
// The result keys rate-limit counters. It is never an authorization signal
// on its own: an IP is not an identity.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		first = strings.TrimSpace(first)
		if net.ParseIP(first) != nil {
			return first
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if net.ParseIP(xri) != nil {
			return xri
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// KeyExtractor derives the rate-limit client key from a request.
type KeyExtractor func(*http.Request) string

// IPKeyExtractor keys by resolved client IP.
func IPKeyExtractor(r *http.Request) string {
	return ClientIP(r)
}

// PrincipalKeyExtractor keys by the authenticated subject, falling back to
// the client IP for unauthenticated traffic.
func PrincipalKeyExtractor(r *http.Request) string {
	if p, ok := PrincipalFromContext(r.Context()); ok && p.Subject != "" {
		return p.Subject
	}
	return ClientIP(r)
}
