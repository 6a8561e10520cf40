package http

import (
	"net/http"
	"strings"

	"github.com/datakwip/mcp-gateway/internal/gateway/app"
	"github.com/datakwip/mcp-gateway/pkg/httpx"
)

// AuthorizationServerMetadata is the RFC 8414 discovery document. The
// gateway is not the authorization server; it points clients at the Cognito
// pool that is.
type AuthorizationServerMetadata struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	JWKSURI                           string   `json:"jwks_uri"`
	RegistrationEndpoint              string   `json:"registration_endpoint"`
	ScopesSupported                   []string `json:"scopes_supported"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported"`
}

// ProtectedResourceMetadata is the RFC 9728 document describing this
// gateway as an OAuth protected resource.
type ProtectedResourceMetadata struct {
	Resource               string   `json:"resource"`
	AuthorizationServers   []string `json:"authorization_servers"`
	ScopesSupported        []string `json:"scopes_supported"`
	BearerMethodsSupported []string `json:"bearer_methods_supported"`
}

func AuthorizationServerMetadataHandler(cfg app.Config) http.HandlerFunc {
	// Cognito's hosted UI serves the interactive endpoints; the issuer
	// serves keys. Without a configured domain the issuer hosts both.
	authBase := cfg.Issuer()
	if cfg.CognitoDomain != "" {
		authBase = "https://" + cfg.CognitoDomain
	}

	meta := AuthorizationServerMetadata{
		Issuer:                            cfg.Issuer(),
		AuthorizationEndpoint:             authBase + "/oauth2/authorize",
		TokenEndpoint:                     authBase + "/oauth2/token",
		JWKSURI:                           cfg.JWKSURL(),
		RegistrationEndpoint:              cfg.ServerBaseURL + "/register",
		ScopesSupported:                   strings.Fields(cfg.OAuthScopes),
		ResponseTypesSupported:            []string{"code"},
		GrantTypesSupported:               []string{"authorization_code", "refresh_token"},
		TokenEndpointAuthMethodsSupported: []string{"none", "client_secret_basic"},
		CodeChallengeMethodsSupported:     []string{"S256"},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, meta)
	}
}

func ProtectedResourceMetadataHandler(cfg app.Config) http.HandlerFunc {
	meta := ProtectedResourceMetadata{
		Resource:               cfg.ServerBaseURL,
		AuthorizationServers:   []string{cfg.Issuer()},
		ScopesSupported:        strings.Fields(cfg.OAuthScopes),
		BearerMethodsSupported: []string{"header"},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, meta)
	}
}
