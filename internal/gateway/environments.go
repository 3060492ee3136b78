// Copyright (c) 2026 RoadRW. All rights reserved.

package gateway

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/roadrw/consolekit/internal/environment"
	"github.com/roadrw/consolekit/internal/platform/apperr"
	"github.com/roadrw/consolekit/internal/platform/ctxutil"
	requestutil "github.com/roadrw/consolekit/internal/platform/request"
	"github.com/roadrw/consolekit/internal/platform/respond"
	"github.com/roadrw/consolekit/internal/platform/validate"
)

// EnvironmentHandler exposes the backend environment switcher.
//
// Switching is an administrative action: it re-points every outbound call
// the gateway makes, for every operator using it.
type EnvironmentHandler struct {
	environments *environment.Manager
}

// NewEnvironmentHandler constructs a new [EnvironmentHandler].
func NewEnvironmentHandler(environments *environment.Manager) *EnvironmentHandler {
	return &EnvironmentHandler{environments: environments}
}

// Routes returns a [chi.Router] with the environment endpoints.
//
// # Endpoints
//   - GET /          : List environments and the active selection.
//   - PUT /active    : Switch the active environment.
func (handler *EnvironmentHandler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.list)
	router.Put("/active", handler.activate)

	return router
}

type environmentList struct {
	Active       string                    `json:"active"`
	Environments []environment.Environment `json:"environments"`
}

type activateRequest struct {
	Name string `json:"name"`
}

func (handler *EnvironmentHandler) list(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, environmentList{
		Active:       handler.environments.Active().Name,
		Environments: handler.environments.List(),
	})
}

func (handler *EnvironmentHandler) activate(writer http.ResponseWriter, request *http.Request) {
	var input activateRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}
	if err := (&validate.Validator{}).Required("name", input.Name).Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	env, err := handler.environments.Switch(input.Name)
	if err != nil {
		respond.Error(writer, request, apperr.NotFound("Environment"))
		return
	}

	logger := ctxutil.GetLogger(request.Context())
	logger.InfoContext(request.Context(), "environment_switched",
		slog.String("environment", env.Name),
		slog.String("base_url", env.BaseURL),
	)

	respond.OK(writer, env)
}
