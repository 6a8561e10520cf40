package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/datakwip/mcp-gateway/internal/gateway/mcp"
	"github.com/datakwip/mcp-gateway/internal/gateway/metrics"
	"github.com/datakwip/mcp-gateway/internal/gateway/store"
	"github.com/datakwip/mcp-gateway/internal/gateway/store/drivers/sqlite"
	"github.com/datakwip/mcp-gateway/pkg/httpx"
	"github.com/datakwip/mcp-gateway/pkg/jwtx"
	"github.com/datakwip/mcp-gateway/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// RouterFactory builds the HTTP handler from the wired dependencies. It
// exists so the app package doesn't import the http package (which imports
// this one for Config).
type RouterFactory func(
	cfg Config,
	verifier jwtx.Verifier,
	keys *jwtx.RemoteKeyStore,
	limiter *httpx.Limiter,
	registry *mcp.Registry,
	st store.Store,
	buildVersion string,
	logger *slog.Logger,
) http.Handler

// Application encapsulates the gateway with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	keys     *jwtx.RemoteKeyStore
	verifier jwtx.Verifier
	limiter  *httpx.Limiter
	registry *mcp.Registry

	server *http.Server
}

// New creates an Application with all dependencies initialized.
func New(cfg Config, newRouter RouterFactory) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service:      "mcp-gateway",
			Version:      BuildVersion,
			Env:          cfg.Env,
			Level:        cfg.LogLevel,
			Format:       cfg.LogFormat,
			LogSensitive: cfg.LogSensitive,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	keys, err := jwtx.NewRemoteKeyStore(cfg.JWKSURL(), jwtx.KeyStoreOptions{
		OnFetch: metrics.FetchObserver,
	})
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize key store: %w", err)
	}
	app.keys = keys

	app.verifier = metrics.InstrumentVerifier(jwtx.NewVerifierRS256(keys, jwtx.VerifyOptions{
		Issuer:   cfg.Issuer(),
		Audience: cfg.CognitoClientID,
	}))

	// Two envelopes bound every client on top of the per-route classes.
	app.limiter = httpx.NewLimiter(httpx.GlobalMinuteLimit, httpx.GlobalHourLimit)

	app.registry = mcp.NewRegistry(mcp.EchoTool{}, mcp.AddTool{})

	handler := newRouter(cfg, app.verifier, app.keys, app.limiter, app.registry, app.db, BuildVersion, app.logger)
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	// Prime the key cache so the first request doesn't pay the fetch. A
	// failure here is logged, not fatal: keys load lazily on demand.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := app.keys.Refresh(ctx); err != nil {
		app.logger.Warn("initial key fetch failed, will retry on demand", "error", err)
	}
	cancel()

	app.logger.Info("gateway starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"issuer", app.cfg.Issuer(),
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down gateway...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("gateway stopped")
	return nil
}

// initDatabase initializes the database and applies migrations.
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}
