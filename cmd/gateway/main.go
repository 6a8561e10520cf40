package main

import (
	"log"
	"log/slog"
	"net/http"

	"github.com/datakwip/mcp-gateway/internal/gateway/app"
	gatewayhttp "github.com/datakwip/mcp-gateway/internal/gateway/http"
	"github.com/datakwip/mcp-gateway/internal/gateway/mcp"
	"github.com/datakwip/mcp-gateway/internal/gateway/store"
	"github.com/datakwip/mcp-gateway/pkg/httpx"
	"github.com/datakwip/mcp-gateway/pkg/jwtx"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	application, err := app.New(cfg, newRouter)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}

func newRouter(
	cfg app.Config,
	verifier jwtx.Verifier,
	keys *jwtx.RemoteKeyStore,
	limiter *httpx.Limiter,
	registry *mcp.Registry,
	st store.Store,
	buildVersion string,
	logger *slog.Logger,
) http.Handler {
	router := gatewayhttp.NewRouter(cfg, verifier, keys, limiter, registry, st, buildVersion, logger)
	router.ApplyRoutes()
	return router
}
