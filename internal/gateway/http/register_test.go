package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gatewayhttp "github.com/datakwip/mcp-gateway/internal/gateway/http"
)

func postRegister(t *testing.T, h http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeRegistration(t *testing.T, rec *httptest.ResponseRecorder) gatewayhttp.RegistrationResponse {
	t.Helper()

	var resp gatewayhttp.RegistrationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestRegisterDefaultClient(t *testing.T) {
	h := newTestRouter(t, acceptVerifier())

	rec := postRegister(t, h,
		`{"client_name":"My MCP Client","redirect_uris":["https://example.com/callback"]}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeRegistration(t, rec)
	assert.NotEmpty(t, resp.ClientID)
	assert.Equal(t, "My MCP Client", resp.ClientName)
	assert.Equal(t, []string{"https://example.com/callback"}, resp.RedirectURIs)
	assert.Equal(t, "none", resp.TokenEndpointAuthMethod)
	assert.Equal(t, []string{"code"}, resp.ResponseTypes)
	assert.Positive(t, resp.ClientIDIssuedAt)
}

func TestRegisterDetectsClaude(t *testing.T) {
	h := newTestRouter(t, acceptVerifier())

	// A detected Claude registration always gets the canonical callback
	// URIs, not whatever the request asked for.
	rec := postRegister(t, h,
		`{"client_name":"x","redirect_uris":["https://evil.example/steal"]}`,
		map[string]string{"User-Agent": "Claude-User/1.0"})
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeRegistration(t, rec)
	assert.Contains(t, resp.RedirectURIs, "https://claude.ai/api/mcp/auth_callback")
	assert.NotContains(t, resp.RedirectURIs, "https://evil.example/steal")
}

func TestRegisterDetectsClaudeFromRedirectURIs(t *testing.T) {
	h := newTestRouter(t, acceptVerifier())

	// No identifying headers, but the requested callback lands on claude.ai;
	// the registration still resolves to the canonical Claude URIs.
	rec := postRegister(t, h,
		`{"client_name":"x","redirect_uris":["https://claude.ai/api/mcp/auth_callback"]}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeRegistration(t, rec)
	assert.Contains(t, resp.RedirectURIs, "https://claude.com/api/mcp/auth_callback")
}

func TestRegisterDetectsJulius(t *testing.T) {
	h := newTestRouter(t, acceptVerifier())

	rec := postRegister(t, h, `{"client_name":"x"}`,
		map[string]string{"Origin": "https://julius.ai"})
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeRegistration(t, rec)
	assert.Equal(t, []string{"https://julius.ai/oauth/callback"}, resp.RedirectURIs)
}

func TestRegisterRejectsBadRedirects(t *testing.T) {
	h := newTestRouter(t, acceptVerifier())

	tests := []struct {
		name string
		body string
	}{
		{"no redirect uris", `{"client_name":"x"}`},
		{"plain http", `{"redirect_uris":["http://example.com/cb"]}`},
		{"not a url", `{"redirect_uris":["::::"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postRegister(t, h, tt.body, nil)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "invalid_redirect_uri")
		})
	}
}

func TestRegisterAllowsLoopbackHTTP(t *testing.T) {
	h := newTestRouter(t, acceptVerifier())

	rec := postRegister(t, h, `{"redirect_uris":["http://localhost:8765/cb"]}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestRegisterInvalidJSON(t *testing.T) {
	h := newTestRouter(t, acceptVerifier())

	rec := postRegister(t, h, `{broken`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_client_metadata")
}

func TestRegisterStripsHostileClientName(t *testing.T) {
	h := newTestRouter(t, acceptVerifier())

	rec := postRegister(t, h,
		`{"client_name":"evil\u0000\u001bname","redirect_uris":["https://example.com/cb"]}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeRegistration(t, rec)
	assert.Equal(t, "evilname", resp.ClientName)
}
