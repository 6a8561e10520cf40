package http

import (
	"net/http"
	"strings"

	"github.com/datakwip/mcp-gateway/internal/gateway/app"
	"github.com/datakwip/mcp-gateway/internal/gateway/mcp"
	"github.com/datakwip/mcp-gateway/pkg/httpx"
)

// MCPServerMetadata describes the server on the unauthenticated discovery
// paths. The authentication block is advertised only to callers that have
// not presented a bearer token yet.
type MCPServerMetadata struct {
	MCPVersion     string             `json:"mcpVersion"`
	Server         MCPServerInfo      `json:"server"`
	Capabilities   map[string]any     `json:"capabilities"`
	Authentication *MCPAuthentication `json:"authentication,omitempty"`
}

type MCPServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type MCPAuthentication struct {
	Type   string       `json:"type"`
	OAuth2 MCPOAuth2Ref `json:"oauth2"`
}

type MCPOAuth2Ref struct {
	AuthorizationURL string   `json:"authorizationUrl"`
	TokenURL         string   `json:"tokenUrl"`
	ClientID         string   `json:"clientId"`
	Scopes           []string `json:"scopes"`
}

// MCPMetadataHandler serves GET /.well-known/mcp and GET /mcp. HEAD /mcp
// rides on the GET registration; net/http suppresses the body.
// withAuthAlways forces the authentication block regardless of headers,
// matching the well-known document.
func MCPMetadataHandler(cfg app.Config, version string, withAuthAlways bool) http.HandlerFunc {
	authBase := cfg.Issuer()
	if cfg.CognitoDomain != "" {
		authBase = "https://" + cfg.CognitoDomain
	}
	auth := &MCPAuthentication{
		Type: "oauth2",
		OAuth2: MCPOAuth2Ref{
			AuthorizationURL: authBase + "/oauth2/authorize",
			TokenURL:         authBase + "/oauth2/token",
			ClientID:         cfg.CognitoClientID,
			Scopes:           strings.Fields(cfg.OAuthScopes),
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		meta := MCPServerMetadata{
			MCPVersion: mcp.ProtocolVersion,
			Server:     MCPServerInfo{Name: "mcp-gateway", Version: version},
			Capabilities: map[string]any{
				"tools":     map[string]any{"listChanged": true},
				"prompts":   map[string]any{},
				"resources": map[string]any{},
			},
		}
		if withAuthAlways || !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			meta.Authentication = auth
		}
		httpx.WriteJSON(w, http.StatusOK, meta)
	}
}
