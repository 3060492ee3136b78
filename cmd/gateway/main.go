// Copyright (c) 2026 RoadRW. All rights reserved.

// Command gateway is the entry point for the RoadRW console gateway.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Build the environment catalogue and the credential store.
//  4. Wire the REST client and the session controller.
//  5. Restore the persisted session in the background.
//  6. Start the renewal loop and the HTTP server with graceful shutdown.
//
// No session logic lives here. All wiring is explicit constructor injection.
package main

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

	goredis "github.com/redis/go-redis/v9"

	"github.com/roadrw/consolekit/internal/auth"
	"github.com/roadrw/consolekit/internal/console"
	"github.com/roadrw/consolekit/internal/environment"
	"github.com/roadrw/consolekit/internal/gateway"
	"github.com/roadrw/consolekit/internal/platform/config"
	"github.com/roadrw/consolekit/internal/platform/constants"
	redisstore "github.com/roadrw/consolekit/internal/platform/redis"
	"github.com/roadrw/consolekit/internal/platform/restclient"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("[RoadRW] gateway_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("credential_store", cfg.CredentialStore),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. Backend Environments ───────────────────────────────────────────
	catalogue := []environment.Environment{
		{Name: "development", BaseURL: cfg.APIURLDevelopment},
	}
	if cfg.APIURLProduction != "" {
		catalogue = append(catalogue, environment.Environment{
			Name: "production", BaseURL: cfg.APIURLProduction,
		})
	}

	environments, err := environment.NewManager(catalogue, cfg.APIEnvironment, cfg.EnvStatePath)
	must(log, err, "build environment catalogue")

	active := environments.Active()
	log.Info("backend_environment_selected",
		slog.String("environment", active.Name),
		slog.String("base_url", active.BaseURL),
	)

	// ── 4. Credential Store ───────────────────────────────────────────────
	var store auth.CredentialStore
	var rdb *goredis.Client

	switch cfg.CredentialStore {
	case "redis":
		rdb, err = redisstore.NewClient(startupCtx, cfg.RedisURL, log)
		must(log, err, "connect to redis")
		defer func() {
			log.Info("closing redis client")
			if cerr := rdb.Close(); cerr != nil {
				log.Error("redis close error", slog.Any("error", cerr))
			}
		}()
		store = auth.NewRedisStore(rdb, cfg.RedisKeyPrefix)

	case "memory":
		store = auth.NewMemoryStore()

	default:
		store = auth.NewFileStore(cfg.CredentialFile, cfg.CredentialPassphrase)
	}

	// ── 5. REST Client & Session Controller ───────────────────────────────
	client := restclient.New(active.BaseURL, restclient.Options{
		Timeout: cfg.BackendTimeout,
		Logger:  log,
	})

	// An environment switch re-points every future outbound call.
	environments.Subscribe(func(env environment.Environment) {
		client.SetBaseURL(env.BaseURL)
	})

	sessions := auth.NewController(store, client, log, auth.Options{
		RenewalThreshold: cfg.RenewalThreshold,
		RenewalInterval:  cfg.RenewalInterval,
	})
	client.BindTokens(sessions)

	// Lifecycle context for the background loops.
	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	// Restore the persisted session without blocking startup; route guards
	// wait on the controller until this resolves.
	go sessions.Initialize(runCtx)
	go sessions.RunRenewal(runCtx)

	// ── 6. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := gateway.NewHealthHandlers(gateway.HealthDependencies{
		CheckBackend: func() error {
			return pingBackend(client.BaseURL())
		},
		CheckStore: func() error {
			if rdb == nil {
				return nil
			}
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	// ── 7. Handler Wiring ─────────────────────────────────────────────────
	consoleService := console.NewService(client)

	handlers := gateway.Handlers{
		Liveness:     liveness,
		Readiness:    readiness,
		Session:      gateway.NewSessionHandler(sessions),
		Environments: gateway.NewEnvironmentHandler(environments),
		Console:      console.NewHandler(consoleService),
		Proxy:        gateway.NewProxy(client, sessions, cfg.BackendTimeout, log),
	}

	// ── 8. HTTP Server ────────────────────────────────────────────────────
	server := gateway.NewServer(runCtx, cfg, log, sessions, handlers)

	// ── 9. Graceful Shutdown ──────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Stop background loops before the server drains.
	runCancel()

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// pingBackend probes the backend's health endpoint.
func pingBackend(baseURL string) error {
	probe := &http.Client{Timeout: 3 * time.Second}
	response, err := probe.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer response.Body.Close()
	if response.StatusCode >= 500 {
		return fmt.Errorf("backend health returned %d", response.StatusCode)
	}
	return nil
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
