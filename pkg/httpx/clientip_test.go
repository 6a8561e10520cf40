package httpx_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/datakwip/mcp-gateway/pkg/httpx"
	"github.com/datakwip/mcp-gateway/pkg/jwtx"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		realIP     string
		remoteAddr string
		want       string
	}{
		{
			name:       "x-forwarded-for first entry wins",
			xff:        "203.0.113.5, 10.0.0.1",
			realIP:     "192.0.2.9",
			remoteAddr: "10.0.0.1:443",
			want:       "203.0.113.5",
		},
		{
			name:       "single forwarded entry",
			xff:        "203.0.113.5",
			remoteAddr: "10.0.0.1:443",
			want:       "203.0.113.5",
		},
		{
			name:       "garbage forwarded falls through to real-ip",
			xff:        "not-an-ip",
			realIP:     "192.0.2.9",
			remoteAddr: "10.0.0.1:443",
			want:       "192.0.2.9",
		},
		{
			name:       "real-ip when no forwarded header",
			realIP:     "192.0.2.9",
			remoteAddr: "10.0.0.1:443",
			want:       "192.0.2.9",
		},
		{
			name:       "direct connection strips port",
			remoteAddr: "198.51.100.7:52110",
			want:       "198.51.100.7",
		},
		{
			name:       "ipv6 forwarded entry",
			xff:        "2001:db8::1, 10.0.0.1",
			remoteAddr: "10.0.0.1:443",
			want:       "2001:db8::1",
		},
		{
			name:       "remote addr without port returned as-is",
			remoteAddr: "198.51.100.7",
			want:       "198.51.100.7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}

			assert.Equal(t, tt.want, httpx.ClientIP(req))
		})
	}
}

func TestPrincipalKeyExtractor(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "198.51.100.7:52110"

	// Unauthenticated traffic keys by IP.
	assert.Equal(t, "198.51.100.7", httpx.PrincipalKeyExtractor(req))

	p := jwtx.Principal{Subject: "user-123"}
	req = req.WithContext(httpx.ContextWithPrincipal(req.Context(), p))
	assert.Equal(t, "user-123", httpx.PrincipalKeyExtractor(req))
}
