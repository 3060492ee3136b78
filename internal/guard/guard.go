// Copyright (c) 2026 RoadRW. All rights reserved.

/*
Package guard gates rendering of protected console routes.

It replaces the old console's three near-identical route-guard components
with one parameterized middleware taking an [access.Requirement].

# Flow

 1. While the session controller has not resolved its initial state, the
    guard waits (bounded by the request context) instead of racing ahead.
 2. Unauthenticated: redirect browser navigation to the login view with
    the originally requested location, or answer 401 for API calls.
 3. Authenticated: evaluate the access decision; a denial renders an
    "access denied" view carrying the user's actual role and the route's
    requirement, and never reaches the protected handler.
 4. Allowed: the protected handler runs with the user in context.
*/
package guard

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"

	"github.com/roadrw/consolekit/internal/access"
	"github.com/roadrw/consolekit/internal/auth"
	"github.com/roadrw/consolekit/internal/platform/apperr"
	"github.com/roadrw/consolekit/internal/platform/constants"
	"github.com/roadrw/consolekit/internal/platform/ctxutil"
	"github.com/roadrw/consolekit/internal/platform/respond"
)

// SessionSource is the guard's view of the session controller.
type SessionSource interface {
	WaitReady(ctx context.Context) error
	State() auth.State
	CurrentUser() *auth.User
	RecordActivity()
}

// Protect builds the middleware for one protected route group.
func Protect(sessions SessionSource, requirement access.Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// ── 1. Wait for the initial session resolution ────────────────────
			if err := sessions.WaitReady(request.Context()); err != nil {
				// Still unknown when the caller gave up: neutral answer,
				// no redirect, nothing rendered.
				respond.Error(writer, request,
					apperr.Wrap("SESSION_PENDING", "Session verification in progress", err))
				return
			}

			// ── 2. Authentication ─────────────────────────────────────────────
			if sessions.State() != auth.StateAuthenticated {
				redirectToLogin(writer, request)
				return
			}

			// ── 3. Authorization ──────────────────────────────────────────────
			user := sessions.CurrentUser()
			if !access.Allow(user, requirement) {
				renderDenied(writer, request, user, requirement)
				return
			}

			// ── 4. Render protected children ──────────────────────────────────
			sessions.RecordActivity()
			ctx := ctxutil.WithUser(request.Context(), user)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// redirectToLogin sends the caller to the login view, preserving the
// originally requested location for the post-login redirect.
func redirectToLogin(writer http.ResponseWriter, request *http.Request) {
	from := request.URL.RequestURI()

	if wantsHTML(request) {
		target := constants.LoginPath + "?" + url.Values{constants.FromParam: {from}}.Encode()
		http.Redirect(writer, request, target, http.StatusFound)
		return
	}

	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(http.StatusUnauthorized)
	respondLoginPayload(writer, from)
}

// respondLoginPayload writes the JSON body telling an API caller where to
// authenticate.
func respondLoginPayload(writer http.ResponseWriter, from string) {
	payload := fmt.Sprintf(
		`{"success":false,"error":"Authentication required","code":"UNAUTHORIZED","login":%q,"from":%q}`,
		constants.LoginPath, from)
	_, _ = writer.Write([]byte(payload + "\n"))
}

// deniedView is the diagnostics payload for a 403.
type deniedView struct {
	Role                auth.Role   `json:"role"`
	RequiredRoles       []auth.Role `json:"requiredRoles,omitempty"`
	RequiredPermissions []string    `json:"requiredPermissions,omitempty"`
}

// renderDenied shows the access-denied view with the user's actual role
// and the route's requirement, for diagnostics.
func renderDenied(writer http.ResponseWriter, request *http.Request, user *auth.User, requirement access.Requirement) {
	if wantsHTML(request) {
		writer.Header().Set("Content-Type", "text/html; charset=utf-8")
		writer.WriteHeader(http.StatusForbidden)
		fmt.Fprintf(writer,
			"<!doctype html><title>Access denied</title>"+
				"<h1>Access denied</h1>"+
				"<p>Your role <strong>%s</strong> does not grant access to this area.</p>"+
				"<p>Required: %s</p>",
			html.EscapeString(string(user.Role)),
			html.EscapeString(describeRequirement(requirement)),
		)
		return
	}

	respond.JSON(writer, http.StatusForbidden, struct {
		Success bool       `json:"success"`
		Error   string     `json:"error"`
		Code    string     `json:"code"`
		Denied  deniedView `json:"denied"`
	}{
		Error: "Insufficient permissions for this area",
		Code:  "FORBIDDEN",
		Denied: deniedView{
			Role:                user.Role,
			RequiredRoles:       requirement.Roles,
			RequiredPermissions: requirement.Permissions,
		},
	})
}

// describeRequirement formats a requirement for the HTML denied view.
func describeRequirement(requirement access.Requirement) string {
	parts := make([]string, 0, 2)
	if len(requirement.Roles) > 0 {
		names := make([]string, len(requirement.Roles))
		for i, role := range requirement.Roles {
			names[i] = string(role)
		}
		parts = append(parts, "role "+strings.Join(names, " or "))
	}
	if len(requirement.Permissions) > 0 {
		parts = append(parts, "permission "+strings.Join(requirement.Permissions, " or "))
	}
	if len(parts) == 0 {
		return "authenticated user"
	}
	return strings.Join(parts, "; ")
}

// wantsHTML reports whether the request is browser navigation rather than
// an API call.
func wantsHTML(request *http.Request) bool {
	accept := request.Header.Get("Accept")
	return strings.Contains(accept, "text/html")
}
