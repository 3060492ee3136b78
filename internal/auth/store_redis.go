// Copyright (c) 2026 RoadRW. All rights reserved.

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a [CredentialStore] backed by Redis.
//
// It serves deployments where several gateway replicas must share one
// console session. The record is a single string key, so Save and Clear are
// naturally atomic on the Redis side.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore creates a Redis-backed credential store.
// keyPrefix namespaces the record, e.g. "console" -> "console:session".
func NewRedisStore(client *redis.Client, keyPrefix string) *RedisStore {
	return &RedisStore{
		client: client,
		key:    keyPrefix + ":session",
	}
}

// Save persists the session under the store key.
//
// The key TTL is tied to the refresh window rather than the access token:
// a session holding a refresh token is still renewable after expiry, so it
// must outlive ExpiresAt.
func (s *RedisStore) Save(ctx context.Context, session *Session) error {
	encoded, err := encodeSession(session)
	if err != nil {
		return fmt.Errorf("auth: encode session: %w", err)
	}

	ttl := time.Until(session.ExpiresAt)
	if session.RefreshToken != "" || ttl <= 0 {
		// Renewable sessions keep a generous window for the refresh flow.
		ttl = 30 * 24 * time.Hour
	}

	if err := s.client.Set(ctx, s.key, encoded, ttl).Err(); err != nil {
		return fmt.Errorf("auth: save session to redis: %w", err)
	}
	return nil
}

// Load fetches and decodes the stored session. A missing or corrupt record
// is absent, not an error; only transport failures propagate.
func (s *RedisStore) Load(ctx context.Context) (*Session, error) {
	encoded, err := s.client.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("auth: load session from redis: %w", err)
	}
	return decodeSession(encoded), nil
}

// Clear deletes the session record.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("auth: clear session in redis: %w", err)
	}
	return nil
}
