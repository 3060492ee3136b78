// Copyright (c) 2026 RoadRW. All rights reserved.

// Package auth owns the authenticated session against the RoadRW backend.
//
// # Architecture
//
// The session controller is the only component allowed to mutate the
// session. The credential store is a durable mirror of the controller's
// in-memory state, never an independent owner. Everything else reads
// session state through controller accessors.
package auth

// # User Roles

// Role represents the authorization level granted to a console account.
type Role string

const (
	// Unrestricted system access
	RoleAdmin Role = "admin"

	// Manages carriers, clients, and invoices for their unit
	RoleGestor Role = "gestor"

	// Day-to-day operations: shipments and occurrence handling
	RoleOperador Role = "operador"

	// Default role with read-mostly access
	RoleUser Role = "user"
)

// Valid reports whether the role is one of the known console roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleGestor, RoleOperador, RoleUser:
		return true
	}
	return false
}

// # Authenticated Principal

// User is the authenticated principal of a session.
//
// The struct is replaced wholesale whenever the backend returns an updated
// profile (login, refresh, explicit profile fetch). It is never patched
// field-by-field from untrusted input.
type User struct {
	ID            string   `json:"id"`
	Name          string   `json:"nome"`
	Email         string   `json:"email"`
	Role          Role     `json:"role"`
	Permissions   []string `json:"permissions,omitempty"`
	EmailVerified bool     `json:"emailVerified"`
}

// HasRole reports whether the user holds exactly the given role.
func (u *User) HasRole(role Role) bool {
	if u == nil {
		return false
	}
	return u.Role == role
}

// HasAnyRole reports whether the user's role is a member of the given set.
// An empty set passes: it means "any authenticated user".
func (u *User) HasAnyRole(roles ...Role) bool {
	if len(roles) == 0 {
		return true
	}
	if u == nil {
		return false
	}
	for _, role := range roles {
		if u.Role == role {
			return true
		}
	}
	return false
}

// HasPermission reports whether the user holds the named permission.
//
// Admin is a universal override: an admin holds every permission regardless
// of the permissions slice.
func (u *User) HasPermission(permission string) bool {
	if u == nil {
		return false
	}
	if u.Role == RoleAdmin {
		return true
	}
	for _, held := range u.Permissions {
		if held == permission {
			return true
		}
	}
	return false
}
