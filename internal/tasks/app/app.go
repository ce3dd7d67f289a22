// Package app assembles the task service: configuration, database, token
// signers, business services, and the HTTP server lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/copperkettle/tasklist/internal/tasks/http"
	"github.com/copperkettle/tasklist/internal/tasks/observability"
	"github.com/copperkettle/tasklist/internal/tasks/service"
	"github.com/copperkettle/tasklist/internal/tasks/store"
	"github.com/copperkettle/tasklist/internal/tasks/store/drivers/sqlite"
	"github.com/copperkettle/tasklist/pkg/jwtx"
	"github.com/copperkettle/tasklist/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// ErrMissingSecret means JWT_SECRET was not configured. The service refuses
// to start rather than fall back to a guessable default.
var ErrMissingSecret = errors.New("app: JWT_SECRET must be set")

// Application holds the wired-up service and its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db store.Store

	authService  *service.AuthService
	tokenService *service.TokenService
	todoService  *service.TodoService

	server *http.Server
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "tasklist",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if cfg.AccessSecret == "" {
		return nil, ErrMissingSecret
	}

	if err := observability.InitSentry(cfg.SentryDSN, cfg.Env); err != nil {
		return nil, fmt.Errorf("failed to initialize error reporting: %w", err)
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("task service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"env", app.cfg.Env,
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

// Shutdown gracefully stops the HTTP server and closes the database.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down task service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	observability.FlushSentry()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("task service stopped")
	return nil
}

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

func (app *Application) initServices() error {
	accessSigner, err := jwtx.NewSignerHS256([]byte(app.cfg.AccessSecret))
	if err != nil {
		return err
	}
	refreshSigner, err := jwtx.NewSignerHS256([]byte(app.cfg.RefreshSecret))
	if err != nil {
		return err
	}

	app.tokenService = &service.TokenService{
		Store:           app.db,
		AccessSigner:    accessSigner,
		RefreshSigner:   refreshSigner,
		RefreshVerifier: jwtx.NewVerifierHS256([]byte(app.cfg.RefreshSecret)),
		AccessTTL:       app.cfg.AccessTTL,
		RefreshTTL:      app.cfg.RefreshTTL,
	}
	app.authService = &service.AuthService{Store: app.db}
	app.todoService = &service.TodoService{Store: app.db}

	return nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(httpapi.RouterConfig{
		Logger:           app.logger,
		Store:            app.db,
		Verifier:         jwtx.NewVerifierHS256([]byte(app.cfg.AccessSecret)),
		Auth:             app.authService,
		Tokens:           app.tokenService,
		Todos:            app.todoService,
		RateLimitEnabled: app.cfg.IsProduction(),
		CookieSecure:     app.cfg.IsProduction(),
	})

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
