// Package http wires the service layer onto the HTTP surface: routing,
// request parsing, the error taxonomy on the wire, and the static web
// client.
package http

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/copperkettle/tasklist/internal/tasks/service"
	"github.com/copperkettle/tasklist/internal/tasks/store"
	"github.com/copperkettle/tasklist/pkg/httpx"
	"github.com/copperkettle/tasklist/pkg/jwtx"
	"github.com/copperkettle/tasklist/pkg/slogx"
	"github.com/copperkettle/tasklist/web"
)

// RouterConfig carries everything the router needs that is decided at
// startup rather than per-request.
type RouterConfig struct {
	Logger   *slog.Logger
	Store    store.Store
	Verifier jwtx.Verifier

	Auth   *service.AuthService
	Tokens *service.TokenService
	Todos  *service.TodoService

	// RateLimitEnabled switches the limiter middlewares on; kept off in
	// development and tests so local iteration is not throttled.
	RateLimitEnabled bool

	// CookieSecure marks the refresh cookie Secure, for deployments behind
	// HTTPS.
	CookieSecure bool
}

// NewRouter assembles the full route table.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	authn := httpx.AuthnMiddleware(cfg.Verifier)

	authLimit := noopMiddleware
	userLimit := noopMiddleware
	if cfg.RateLimitEnabled {
		authLimit = httpx.RateLimitByIP(httpx.AuthLimit)
		userLimit = httpx.RateLimitByUser(httpx.UserLimit)
	}

	auth := &AuthHandler{
		Auth:         cfg.Auth,
		Tokens:       cfg.Tokens,
		CookieSecure: cfg.CookieSecure,
	}
	todos := &TodosHandler{Todos: cfg.Todos}
	health := &HealthHandler{Store: cfg.Store}

	// Anonymous auth endpoints, throttled per IP.
	mux.Handle("POST /auth/register", httpx.Chain(http.HandlerFunc(auth.HandleRegister), authLimit))
	mux.Handle("POST /auth/login", httpx.Chain(http.HandlerFunc(auth.HandleLogin), authLimit))
	mux.Handle("POST /auth/refresh", httpx.Chain(http.HandlerFunc(auth.HandleRefresh), authLimit))

	// Authenticated auth endpoints.
	mux.Handle("GET /auth/me", httpx.Chain(http.HandlerFunc(auth.HandleMe), authn))
	mux.Handle("POST /auth/logout", httpx.Chain(http.HandlerFunc(auth.HandleLogout), authn))

	// Task endpoints, all behind the bearer gate and the per-user limiter.
	mux.Handle("POST /todos", httpx.Chain(http.HandlerFunc(todos.HandleCreate), authn, userLimit))
	mux.Handle("GET /todos", httpx.Chain(http.HandlerFunc(todos.HandleList), authn, userLimit))
	mux.Handle("GET /todos/{id}", httpx.Chain(http.HandlerFunc(todos.HandleGet), authn, userLimit))
	mux.Handle("PATCH /todos/{id}", httpx.Chain(http.HandlerFunc(todos.HandleUpdate), authn, userLimit))
	mux.Handle("DELETE /todos/{id}", httpx.Chain(http.HandlerFunc(todos.HandleDelete), authn, userLimit))

	mux.HandleFunc("GET /health", health.HandleHealth)

	// Browser client, served from the embedded assets.
	staticFS, err := fs.Sub(web.Assets, "static")
	if err != nil {
		panic(err)
	}
	mux.Handle("GET /", http.FileServerFS(staticFS))

	return httpx.Chain(mux, slogx.HTTPMiddleware(cfg.Logger))
}

func noopMiddleware(next http.Handler) http.Handler { return next }
