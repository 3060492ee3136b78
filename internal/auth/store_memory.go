// Copyright (c) 2026 RoadRW. All rights reserved.

package auth

import (
	"context"
	"sync"
)

// MemoryStore is an in-process [CredentialStore].
//
// It backs ephemeral deployments (and tests) where the session should not
// outlive the process. Save/Load still round-trip through the shared wire
// format so all backends enforce the same completeness rules.
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryStore creates an empty in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save serializes and retains the session.
func (s *MemoryStore) Save(_ context.Context, session *Session) error {
	encoded, err := encodeSession(session)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = encoded
	return nil
}

// Load returns the stored session, or nil when absent or incomplete.
func (s *MemoryStore) Load(_ context.Context) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.data) == 0 {
		return nil, nil
	}
	return decodeSession(s.data), nil
}

// Clear drops the stored session.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
	return nil
}
