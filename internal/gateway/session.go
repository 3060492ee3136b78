// Copyright (c) 2026 RoadRW. All rights reserved.

package gateway

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/roadrw/consolekit/internal/access"
	"github.com/roadrw/consolekit/internal/auth"
	"github.com/roadrw/consolekit/internal/guard"
	"github.com/roadrw/consolekit/internal/platform/apperr"
	requestutil "github.com/roadrw/consolekit/internal/platform/request"
	"github.com/roadrw/consolekit/internal/platform/respond"
	"github.com/roadrw/consolekit/internal/platform/restclient"
	"github.com/roadrw/consolekit/internal/platform/validate"
)

// # Definitions & Constructors

// SessionHandler implements the authentication lifecycle endpoints.
//
// # Scope
//
// It is a thin transport adapter over the session controller: every state
// decision (verification, refresh, expiry) lives in [auth.Controller].
type SessionHandler struct {
	sessions *auth.Controller
}

// NewSessionHandler constructs a new [SessionHandler].
func NewSessionHandler(sessions *auth.Controller) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Routes returns a [chi.Router] configured with the session lifecycle routes.
//
// # Endpoints
//   - POST /login           : Authenticates and establishes the session.
//   - POST /register        : Creates an account and establishes the session.
//   - POST /logout          : Destroys the session (idempotent).
//   - GET  /session         : Session status introspection.
//   - POST /session/refresh : Forces a silent renewal.
func (handler *SessionHandler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/login", handler.login)
	router.Post("/register", handler.register)
	router.Post("/logout", handler.logout)
	router.Get("/session", handler.session)
	router.Post("/session/refresh", handler.refresh)
	router.Post("/forgot-password", handler.forgotPassword)
	router.Post("/reset-password", handler.resetPassword)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(guard.Protect(handler.sessions, access.Any))
		r.Post("/change-password", handler.changePassword)
		r.Get("/profile", handler.profile)
	})

	return router
}

// # Request Payloads

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"nome"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"newPassword"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// sessionStatus is the introspection payload of GET /session.
type sessionStatus struct {
	State        string     `json:"state"`
	User         *auth.User `json:"user,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	ExpiringSoon bool       `json:"expiringSoon"`
	LastActivity *time.Time `json:"lastActivity,omitempty"`
}

// # Handlers

/*
login authenticates an operator and establishes the gateway session.

POST /api/v1/auth/login

Response:
  - 200: User profile and session expiry
  - 401: INVALID_CREDENTIALS
  - 423: ACCOUNT_LOCKED
  - 429: RATE_LIMITED
  - 502: NETWORK_ERROR (backend unreachable)
*/
func (handler *SessionHandler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required("email", input.Email).
		Email("email", input.Email).
		Required("password", input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.sessions.Login(request.Context(), auth.Credentials{
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	expiresAt := handler.sessions.SessionExpiry()
	respond.OK(writer, map[string]any{
		"user":      user,
		"expiresAt": expiresAt,
	})
}

/*
register creates a console account and establishes the session.

POST /api/v1/auth/register

Response:
  - 201: User profile
  - 409: CONFLICT (email already registered)
  - 422: VALIDATION_ERROR with field details
*/
func (handler *SessionHandler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required("nome", input.Name).
		MinLen("nome", input.Name, 3).
		Required("email", input.Email).
		Email("email", input.Email).
		Required("password", input.Password).
		MinLen("password", input.Password, 8)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.sessions.Register(request.Context(), auth.RegisterInput{
		Name:     input.Name,
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, user)
}

/*
logout destroys the session. It always succeeds, even with no session and
even when the backend cannot be notified.

POST /api/v1/auth/logout
*/
func (handler *SessionHandler) logout(writer http.ResponseWriter, request *http.Request) {
	handler.sessions.Logout(request.Context())
	respond.NoContent(writer)
}

/*
session reports the current session state without touching the backend.

GET /api/v1/auth/session
*/
func (handler *SessionHandler) session(writer http.ResponseWriter, request *http.Request) {
	status := sessionStatus{
		State:        handler.sessions.State().String(),
		User:         handler.sessions.CurrentUser(),
		ExpiringSoon: handler.sessions.ExpiringSoon(),
	}
	if expiresAt := handler.sessions.SessionExpiry(); !expiresAt.IsZero() {
		status.ExpiresAt = &expiresAt
	}
	if lastActivity := handler.sessions.LastActivity(); !lastActivity.IsZero() {
		status.LastActivity = &lastActivity
	}
	respond.OK(writer, status)
}

/*
refresh forces one silent renewal cycle.

POST /api/v1/auth/session/refresh

Response:
  - 200: Renewed session status
  - 401: SESSION_EXPIRED (refresh token rejected)
  - 502: NETWORK_ERROR (no verdict; the session is retained)
*/
func (handler *SessionHandler) refresh(writer http.ResponseWriter, request *http.Request) {
	switch handler.sessions.Refresh(request.Context()) {
	case restclient.RefreshRenewed:
		handler.session(writer, request)
	case restclient.RefreshTransient:
		respond.Error(writer, request, apperr.Network(errRefreshInterrupted))
	default:
		respond.Error(writer, request, apperr.SessionExpired())
	}
}

/*
forgotPassword requests a recovery email. It always answers 200 so the
endpoint cannot be used to probe which addresses have accounts.

POST /api/v1/auth/forgot-password
*/
func (handler *SessionHandler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input forgotPasswordRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required("email", input.Email).Email("email", input.Email)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.sessions.ForgotPassword(request.Context(), input.Email); err != nil {
		// Only transport failures surface; a backend rejection is hidden.
		if apperr.IsNetwork(err) {
			respond.Error(writer, request, err)
			return
		}
	}
	respond.OK(writer, map[string]string{"status": "sent"})
}

/*
resetPassword redeems a recovery token for a new password.

POST /api/v1/auth/reset-password
*/
func (handler *SessionHandler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required("token", input.Token).
		Required("newPassword", input.Password).
		MinLen("newPassword", input.Password, 8)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.sessions.ResetPassword(request.Context(), input.Token, input.Password); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]string{"status": "reset"})
}

/*
changePassword changes the authenticated account's password.

POST /api/v1/auth/change-password
*/
func (handler *SessionHandler) changePassword(writer http.ResponseWriter, request *http.Request) {
	var input changePasswordRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required("currentPassword", input.CurrentPassword).
		Required("newPassword", input.NewPassword).
		MinLen("newPassword", input.NewPassword, 8).
		Custom("newPassword", input.NewPassword == input.CurrentPassword, "Must differ from the current password")
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.sessions.ChangePassword(request.Context(), input.CurrentPassword, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]string{"status": "changed"})
}

/*
profile fetches a fresh profile from the backend and updates the session.

GET /api/v1/auth/profile
*/
func (handler *SessionHandler) profile(writer http.ResponseWriter, request *http.Request) {
	user, err := handler.sessions.RefreshProfile(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, user)
}
