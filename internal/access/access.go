// Copyright (c) 2026 RoadRW. All rights reserved.

/*
Package access implements the console's access decision function.

It is a pure package: no I/O, no side effects, no clock. Given a user and
a route requirement it answers allow/deny, totally and deterministically.
Route guards and the gateway proxy consult it; nothing else embeds role
logic.
*/
package access

import "github.com/roadrw/consolekit/internal/auth"

// Requirement describes what a protected route demands.
//
// # Semantics
//
//   - Empty Roles: any authenticated user passes the role check.
//   - Non-empty Roles: the user's role must be a member.
//   - Non-empty Permissions: holding ANY ONE of them suffices (logical OR,
//     not AND). The asymmetry with role membership is deliberate and
//     preserved from the console's access policy.
//   - Admin overrides the permission check entirely.
type Requirement struct {
	Roles       []auth.Role
	Permissions []string
}

// Any is the requirement that only demands authentication.
var Any = Requirement{}

// Roles builds a role-membership requirement.
func Roles(roles ...auth.Role) Requirement {
	return Requirement{Roles: roles}
}

// Permissions builds an any-of permission requirement.
func Permissions(permissions ...string) Requirement {
	return Requirement{Permissions: permissions}
}

// Allow decides whether user may enter a route with the given requirement.
//
// Total and deterministic: an absent user is a deny, never a panic.
func Allow(user *auth.User, requirement Requirement) bool {
	if user == nil {
		return false
	}

	if !user.HasAnyRole(requirement.Roles...) {
		return false
	}

	if len(requirement.Permissions) > 0 {
		for _, permission := range requirement.Permissions {
			if user.HasPermission(permission) {
				return true
			}
		}
		return false
	}

	return true
}
