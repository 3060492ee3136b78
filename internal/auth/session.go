// Copyright (c) 2026 RoadRW. All rights reserved.

package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// # Session

// Session represents the authenticated state of the gateway process.
//
// A session is either fully present (all required fields populated) or
// treated as absent. Partial sessions — a token without a user, or a user
// without an expiry — are invalid and force a logout.
type Session struct {
	// AccessToken is the opaque bearer token attached to backend calls.
	AccessToken string `json:"accessToken"`

	// RefreshToken renews the access token. Optional: the backend may not
	// issue one, in which case the session simply ends at expiry.
	RefreshToken string `json:"refreshToken,omitempty"`

	// User is the authenticated principal. Exactly one per session.
	User *User `json:"user"`

	// IssuedAt is when this token pair was received.
	IssuedAt time.Time `json:"issuedAt"`

	// ExpiresAt is the absolute expiry instant, derived from the backend's
	// expiresIn at receipt time. Persisting the absolute value (not the
	// duration) keeps it correct across process restarts.
	ExpiresAt time.Time `json:"expiresAt"`
}

// Complete reports whether every required field is populated.
//
// The credential store uses this to decide between "session" and "absent":
// a stored record failing this check is discarded rather than surfaced.
func (s *Session) Complete() bool {
	return s != nil &&
		s.AccessToken != "" &&
		s.User != nil &&
		s.User.ID != "" &&
		!s.ExpiresAt.IsZero()
}

// Expired reports whether the access token lifetime has fully elapsed.
func (s *Session) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	return !now.Before(s.ExpiresAt)
}

// Remaining returns the time left before expiry, clamped at zero.
func (s *Session) Remaining(now time.Time) time.Duration {
	if s == nil {
		return 0
	}
	remaining := s.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// clone returns a deep enough copy for handing out to readers without
// exposing controller-owned state to mutation.
func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	copied := *s
	if s.User != nil {
		user := *s.User
		user.Permissions = append([]string(nil), s.User.Permissions...)
		copied.User = &user
	}
	return &copied
}

// tokenExpiry extracts the registered "exp" claim from a JWT access token
// without verifying its signature. The gateway is a token consumer, not an
// issuer, so signature validation belongs to the backend; the claim is only
// a fallback when the login response omits expiresIn.
func tokenExpiry(accessToken string) (time.Time, bool) {
	parser := jwt.NewParser()
	claims := jwt.RegisteredClaims{}
	if _, _, err := parser.ParseUnverified(accessToken, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
