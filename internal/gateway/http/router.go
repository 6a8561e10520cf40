// Package http wires the gateway's HTTP surface: the MCP endpoint, OAuth
// discovery metadata, dynamic client registration, and health probes. Every
// route carries its own rate-limit class; authentication applies only where
// the route is protected.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/datakwip/mcp-gateway/internal/gateway/app"
	"github.com/datakwip/mcp-gateway/internal/gateway/mcp"
	"github.com/datakwip/mcp-gateway/internal/gateway/store"
	"github.com/datakwip/mcp-gateway/pkg/httpx"
	"github.com/datakwip/mcp-gateway/pkg/jwtx"
	"github.com/datakwip/mcp-gateway/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	cfg          app.Config
	verifier     jwtx.Verifier
	keys         *jwtx.RemoteKeyStore
	limiter      *httpx.Limiter
	registry     *mcp.Registry
	store        store.Store
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
}

func NewRouter(
	cfg app.Config,
	verifier jwtx.Verifier,
	keys *jwtx.RemoteKeyStore,
	limiter *httpx.Limiter,
	registry *mcp.Registry,
	st store.Store,
	buildVersion string,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		cfg:          cfg,
		verifier:     verifier,
		keys:         keys,
		limiter:      limiter,
		registry:     registry,
		store:        st,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
	}

	// Outermost first in request order: security headers wrap everything,
	// CORS answers preflights before logging, logging wraps the routes.
	// Chain applies listed-innermost-first, so the list is reversed.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.CORSMiddleware(httpx.CORSConfig{AllowedOrigins: cfg.CORSAllowedOrigins}),
		httpx.SecurityHeaders(cfg.Env),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerMCP()
	r.registerOAuthMetadata()
	r.registerRegistration()
	r.registerSystem()
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerMCP() {
	mcpHandler := &MCPHandler{
		Registry: r.registry,
		Limiter:  r.limiter,
		Version:  r.buildVersion,
		Logger:   r.logger,
	}

	// POST /mcp - token verification runs first so the endpoint budget
	// keys by authenticated subject rather than source address. The
	// observer wraps outside to record 401s and 429s alike.
	obs := observe("mcp")
	r.Mux.Handle("POST /mcp",
		obs(httpx.Chain(mcpHandler,
			httpx.RateLimitByPrincipal(r.limiter, "mcp", httpx.MCPLimit),
			httpx.AuthnMiddleware(r.verifier, r.cfg.LogSensitive),
		)),
	)

	// GET /mcp (and HEAD, via the GET registration) serves server metadata
	// so clients can probe the endpoint before authenticating.
	r.Mux.Handle("GET /mcp",
		httpx.Chain(MCPMetadataHandler(r.cfg, r.buildVersion, false),
			rateLimited(r.limiter, "mcp", httpx.MCPLimit),
		),
	)

	r.Mux.Handle("GET /.well-known/mcp",
		httpx.Chain(MCPMetadataHandler(r.cfg, r.buildVersion, true),
			rateLimited(r.limiter, "metadata", httpx.MetadataLimit),
		),
	)
}

func (r *Router) registerOAuthMetadata() {
	authServer := httpx.Chain(AuthorizationServerMetadataHandler(r.cfg),
		rateLimited(r.limiter, "auth", httpx.AuthLimit),
	)
	protectedResource := httpx.Chain(ProtectedResourceMetadataHandler(r.cfg),
		rateLimited(r.limiter, "metadata", httpx.MetadataLimit),
	)

	// Some MCP clients resolve discovery relative to the resource path, so
	// both documents are also served under the /mcp suffix.
	r.Mux.Handle("GET /.well-known/oauth-authorization-server", authServer)
	r.Mux.Handle("GET /.well-known/oauth-authorization-server/mcp", authServer)
	r.Mux.Handle("GET /.well-known/oauth-protected-resource", protectedResource)
	r.Mux.Handle("GET /.well-known/oauth-protected-resource/mcp", protectedResource)
}

func (r *Router) registerRegistration() {
	registerHandler := &RegisterHandler{
		Store:   r.store,
		BaseURL: r.cfg.ServerBaseURL,
		Scope:   r.cfg.OAuthScopes,
		Logger:  r.logger,
	}

	// POST /register - tightest limit, registration is rare and abusable
	r.Mux.Handle("POST /register",
		httpx.Chain(registerHandler,
			rateLimited(r.limiter, "register", httpx.RegisterLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			rateLimited(r.limiter, "health", httpx.HealthLimit),
		),
	)

	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys),
			rateLimited(r.limiter, "health", httpx.HealthLimit),
		),
	)

	r.Mux.Handle("GET /metrics",
		httpx.Chain(promhttp.Handler(),
			rateLimited(r.limiter, "health", httpx.HealthLimit),
		),
	)
}

// rateLimited is the per-route limit plus the latency/rejection metrics.
// The observer wraps outside the limiter so rejections are counted too.
func rateLimited(l *httpx.Limiter, class string, cfg httpx.RateLimitConfig) httpx.Middleware {
	limit := httpx.RateLimitByIP(l, class, cfg)
	obs := observe(class)
	return func(next http.Handler) http.Handler {
		return obs(limit(next))
	}
}
