// Copyright (c) 2026 RoadRW. All rights reserved.

package auth

import (
	"context"
	"encoding/json"
	"time"
)

// # Credential Store

// CredentialStore is the durable mirror of the controller's session.
//
// # Contract
//
//   - Save persists all four credential fields (access token, refresh token,
//     serialized user, absolute expiry) atomically from the caller's view.
//   - Load returns (nil, nil) — absent — when the record is missing, partial,
//     or unparseable. Corruption never surfaces as an error to the caller.
//   - Clear removes all four fields together; a partially cleared record
//     must never be observable.
//
// Only the session controller writes through this interface. Other
// components read session state via controller accessors so the storage
// format can change without breaking them.
type CredentialStore interface {
	Save(ctx context.Context, session *Session) error
	Load(ctx context.Context) (*Session, error)
	Clear(ctx context.Context) error
}

// # Wire Format

// storedSession is the serialized record shared by all store backends.
//
// ExpiresAt is an absolute epoch-millisecond timestamp, not a duration, so
// the value survives process restarts without drift.
type storedSession struct {
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken,omitempty"`
	User         json.RawMessage `json:"user"`
	IssuedAt     int64           `json:"issuedAt"`
	ExpiresAt    int64           `json:"expiresAt"`
}

// encodeSession converts a complete session to its persisted form.
func encodeSession(session *Session) ([]byte, error) {
	userJSON, err := json.Marshal(session.User)
	if err != nil {
		return nil, err
	}
	return json.Marshal(storedSession{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		User:         userJSON,
		IssuedAt:     session.IssuedAt.UnixMilli(),
		ExpiresAt:    session.ExpiresAt.UnixMilli(),
	})
}

// decodeSession parses a persisted record back into a session.
//
// It returns nil (absent) for anything short of a complete record: missing
// fields, malformed JSON, or an unparseable user payload.
func decodeSession(data []byte) *Session {
	var record storedSession
	if err := json.Unmarshal(data, &record); err != nil {
		return nil
	}
	if record.AccessToken == "" || len(record.User) == 0 || record.ExpiresAt == 0 {
		return nil
	}

	user := &User{}
	if err := json.Unmarshal(record.User, user); err != nil {
		return nil
	}

	session := &Session{
		AccessToken:  record.AccessToken,
		RefreshToken: record.RefreshToken,
		User:         user,
		IssuedAt:     time.UnixMilli(record.IssuedAt),
		ExpiresAt:    time.UnixMilli(record.ExpiresAt),
	}
	if !session.Complete() {
		return nil
	}
	return session
}
