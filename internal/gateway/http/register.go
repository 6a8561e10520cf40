package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/datakwip/mcp-gateway/internal/gateway/domain"
	"github.com/datakwip/mcp-gateway/internal/gateway/store"
	"github.com/datakwip/mcp-gateway/pkg/httpx"
	"github.com/datakwip/mcp-gateway/pkg/idx"
	"github.com/datakwip/mcp-gateway/pkg/slogx"
)

const maxRegisterBodySize = 64 << 10

// Canonical callback URIs for the MCP clients the gateway recognises.
// Detected profiles always get these, regardless of what the request asked
// for: a spoofed registration can't redirect a known client elsewhere.
var profileRedirectURIs = map[string][]string{
	domain.ClientProfileClaude: {
		"https://claude.ai/api/mcp/auth_callback",
		"https://claude.com/api/mcp/auth_callback",
	},
	domain.ClientProfileJulius: {
		"https://julius.ai/oauth/callback",
	},
}

// RegistrationRequest is the RFC 7591 dynamic client registration request
// subset the gateway accepts.
type RegistrationRequest struct {
	ClientName   string   `json:"client_name"`
	RedirectURIs []string `json:"redirect_uris"`
	GrantTypes   []string `json:"grant_types"`
	Scope        string   `json:"scope"`
}

// RegistrationResponse is the RFC 7591 response.
type RegistrationResponse struct {
	ClientID                string   `json:"client_id"`
	ClientName              string   `json:"client_name"`
	RedirectURIs            []string `json:"redirect_uris"`
	GrantTypes              []string `json:"grant_types"`
	ResponseTypes           []string `json:"response_types"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
	Scope                   string   `json:"scope"`
	ClientIDIssuedAt        int64    `json:"client_id_issued_at"`
}

// RegisterHandler implements dynamic client registration. The gateway
// issues public-client registrations only, so there is no secret to mint.
type RegisterHandler struct {
	Store   store.Store
	BaseURL string
	Scope   string
	Logger  *slog.Logger
}

func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxRegisterBodySize)

	var req RegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_client_metadata", "Request body must be valid JSON")
		return
	}

	profile := detectClientProfile(r, req.RedirectURIs)

	redirectURIs, ok := resolveRedirectURIs(profile, req.RedirectURIs)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_redirect_uri", "redirect_uris must be valid https URLs")
		return
	}

	name := slogx.Sanitize(req.ClientName, 200)
	if name == "" {
		name = profile + " client"
	}

	reg := domain.RegisteredClient{
		ID:           idx.New().String(),
		ClientID:     idx.New().String(),
		ClientName:   name,
		Profile:      profile,
		RedirectURIs: redirectURIs,
		GrantTypes:   []string{"authorization_code", "refresh_token"},
		Scope:        h.Scope,
		CreatedAt:    time.Now().UTC(),
	}

	if err := h.Store.Registrations().CreateRegistration(r.Context(), reg); err != nil {
		errID := httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Registration could not be stored")
		log.Error("client registration failed", "error_id", errID, "error", err)
		return
	}

	log.Info("client registered",
		"client_id", reg.ClientID,
		"profile", profile,
		"client_ip", httpx.ClientIP(r),
	)

	httpx.WriteJSON(w, http.StatusCreated, RegistrationResponse{
		ClientID:                reg.ClientID,
		ClientName:              reg.ClientName,
		RedirectURIs:            reg.RedirectURIs,
		GrantTypes:              reg.GrantTypes,
		ResponseTypes:           []string{"code"},
		TokenEndpointAuthMethod: "none",
		Scope:                   reg.Scope,
		ClientIDIssuedAt:        reg.CreatedAt.Unix(),
	})
}

// detectClientProfile sniffs which known MCP client is registering from the
// request's User-Agent, Origin, and Referer, falling back to the hosts of
// the requested redirect URIs. Unknown callers get the default profile.
// Recognised profiles always resolve to canonical redirect URIs, so a
// spoofed signal only narrows where the flow can land.
func detectClientProfile(r *http.Request, redirectURIs []string) string {
	signals := strings.ToLower(strings.Join([]string{
		r.Header.Get("User-Agent"),
		r.Header.Get("Origin"),
		r.Header.Get("Referer"),
	}, " "))

	switch {
	case strings.Contains(signals, "claude"):
		return domain.ClientProfileClaude
	case strings.Contains(signals, "julius"):
		return domain.ClientProfileJulius
	}

	for _, raw := range redirectURIs {
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		switch host := strings.ToLower(u.Hostname()); {
		case host == "claude.ai" || host == "claude.com" ||
			strings.HasSuffix(host, ".claude.ai") || strings.HasSuffix(host, ".claude.com"):
			return domain.ClientProfileClaude
		case host == "julius.ai" || strings.HasSuffix(host, ".julius.ai"):
			return domain.ClientProfileJulius
		}
	}

	return domain.ClientProfileDefault
}

// resolveRedirectURIs returns the canonical URIs for recognised profiles
// and validates caller-supplied ones for the default profile.
func resolveRedirectURIs(profile string, requested []string) ([]string, bool) {
	if uris, ok := profileRedirectURIs[profile]; ok {
		return uris, true
	}

	if len(requested) == 0 {
		return nil, false
	}
	for _, raw := range requested {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return nil, false
		}
		if u.Scheme != "https" && !(u.Scheme == "http" && isLoopback(u.Hostname())) {
			return nil, false
		}
	}
	return requested, true
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
