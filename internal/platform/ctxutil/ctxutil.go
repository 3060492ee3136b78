// Copyright (c) 2026 RoadRW. All rights reserved.

// Package ctxutil provides helpers for interacting with values stored in [context.Context].
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/roadrw/consolekit/internal/auth"
	"github.com/roadrw/consolekit/internal/platform/ctxkey"
)

// # Request Tracing

// WithRequestID returns a new context with the provided request ID attached.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyRequestID, id)
}

// GetRequestID retrieves the request ID from the context.
// Returns an empty string if not found.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.KeyRequestID).(string)
	return id
}

// # Structured Logging

// WithLogger returns a new context with the provided logger attached.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.KeyLogger, logger)
}

// GetLogger retrieves the logger from the context.
// If no logger is found, it returns the global default logger.
func GetLogger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(ctxkey.KeyLogger).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return logger
}

// # Identity & Access

// WithUser returns a new context with the authenticated console user attached.
func WithUser(ctx context.Context, user *auth.User) context.Context {
	return context.WithValue(ctx, ctxkey.KeyUser, user)
}

// GetUser retrieves the [*auth.User] from the [context.Context].
// Returns nil for anonymous requests.
func GetUser(ctx context.Context) *auth.User {
	user, ok := ctx.Value(ctxkey.KeyUser).(*auth.User)
	if !ok {
		return nil
	}
	return user
}
