// Copyright (c) 2026 RoadRW. All rights reserved.

package ctxutil_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roadrw/consolekit/internal/auth"
	"github.com/roadrw/consolekit/internal/platform/ctxutil"
)

/*
TestContext_RequestID verifies that Request IDs can be injected and retrieved.
*/
func TestContext_RequestID(t *testing.T) {
	ctx := context.Background()
	requestID := "test-request-id"

	// 1. Initially should be empty
	assert.Empty(t, ctxutil.GetRequestID(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithRequestID(ctx, requestID)
	assert.Equal(t, requestID, ctxutil.GetRequestID(ctx))
}

/*
TestContext_Logger verifies that a custom logger can be stored in context.
*/
func TestContext_Logger(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// 1. Initially should return the default logger
	assert.Equal(t, slog.Default(), ctxutil.GetLogger(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithLogger(ctx, logger)
	assert.Equal(t, logger, ctxutil.GetLogger(ctx))
}

/*
TestContext_User verifies that the session user can be stored in context.
*/
func TestContext_User(t *testing.T) {
	ctx := context.Background()
	user := &auth.User{
		ID:   "user-123",
		Role: auth.RoleAdmin,
	}

	// 1. Initially should be nil
	assert.Nil(t, ctxutil.GetUser(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithUser(ctx, user)
	retrieved := ctxutil.GetUser(ctx)

	assert.NotNil(t, retrieved)
	assert.Equal(t, "user-123", retrieved.ID)
	assert.Equal(t, auth.RoleAdmin, retrieved.Role)
}
