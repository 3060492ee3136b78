// Copyright (c) 2026 RoadRW. All rights reserved.

/*
Package gateway wires together the HTTP router, middleware chain, and all
session and console handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package and cmd/gateway are allowed to import net/http server primitives.

Route protection follows the access model: every protected group carries a
guard middleware built from an [access.Requirement]; handlers behind it
can assume an authenticated, authorized user in context.
*/
package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/roadrw/consolekit/internal/access"
	"github.com/roadrw/consolekit/internal/auth"
	"github.com/roadrw/consolekit/internal/console"
	"github.com/roadrw/consolekit/internal/guard"
	"github.com/roadrw/consolekit/internal/platform/config"
	"github.com/roadrw/consolekit/internal/platform/constants"
	"github.com/roadrw/consolekit/internal/platform/middleware"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all handler sets the gateway serves.
//
// # Usage
//
// New resource areas add a field here — no other change to server.go is required.
type Handlers struct {
	// Liveness is the /health handler — always returns 200 if process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler — returns 200 when all deps are healthy.
	Readiness http.HandlerFunc

	// Session handles the authentication lifecycle (login, logout, refresh).
	Session *SessionHandler

	// Environments handles the backend environment switcher.
	Environments *EnvironmentHandler

	// Console handles the logistics resources (carriers, customers, invoices).
	Console *console.Handler

	// Proxy forwards everything without a dedicated handler to the backend.
	Proxy *Proxy
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
func NewServer(context context.Context, cfg *config.Config, log *slog.Logger, sessions *auth.Controller, h Handlers) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(middleware.RateLimit(context))
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.CORS(cfg))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	// Unauthenticated health probes for container orchestration.
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)

	// # Application API
	// Route groups mounted under versioned prefix, each behind its own guard.
	r.Route("/api/v1", func(api chi.Router) {
		api.Mount("/auth", h.Session.Routes())

		// Administrative area: environment switching and provider settings.
		api.Group(func(admin chi.Router) {
			admin.Use(guard.Protect(sessions, access.Roles(auth.RoleAdmin)))
			admin.Mount("/environments", h.Environments.Routes())
			admin.Mount("/settings", h.Console.SettingsRoutes())
		})

		// Operational area: the day-to-day logistics resources.
		api.Group(func(ops chi.Router) {
			ops.Use(guard.Protect(sessions, access.Roles(auth.RoleAdmin, auth.RoleGestor, auth.RoleOperador)))
			ops.Mount("/", h.Console.Routes())
		})
	})

	// # Backend Pass-Through
	// Any other backend endpoint, for any authenticated user.
	r.Group(func(pass chi.Router) {
		pass.Use(guard.Protect(sessions, access.Any))
		pass.Handle("/backend/*", h.Proxy)
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}
