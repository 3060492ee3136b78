// Copyright (c) 2026 RoadRW. All rights reserved.

/*
Package constants provides centralized, immutable values for the console kit.

It defines default timeouts, rate limits, and cross-cutting keys that are
shared between the gateway, the REST client, and the session controller.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the gateway HTTP server.
  - Session Timing: Renewal threshold and background check cadence.
  - Rate Limiting: Burst capacities and IP tracking TTLs.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the session and transport logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "roadrw-console"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 30 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second

	// GlobalRequestTimeout bounds the total handling time of any request,
	// proxied calls included.
	GlobalRequestTimeout = 60 * time.Second
)

// # Session Timing

const (
	// DefaultBackendTimeout bounds every outbound call to the backend API.
	// A call that exceeds it surfaces as a NETWORK_ERROR.
	DefaultBackendTimeout = 30 * time.Second

	// DefaultRenewalThreshold is how close to expiry the session must be
	// before the background loop renews it preemptively.
	DefaultRenewalThreshold = 5 * time.Minute

	// DefaultRenewalInterval is the cadence of the background expiry check.
	DefaultRenewalInterval = 1 * time.Minute

	// LogoutNotifyTimeout bounds the best-effort backend logout call.
	LogoutNotifyTimeout = 5 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 150

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute

	// OutboundRPS caps the steady request rate against the backend API.
	OutboundRPS = 50.0

	// OutboundBurst is the burst capacity for outbound backend calls.
	OutboundBurst = 100
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
	HeaderAuthorization = "Authorization"
)

// # Routing

const (
	// LoginPath is where unauthenticated navigation is redirected.
	LoginPath = "/login"

	// FromParam carries the originally requested location through the login
	// redirect so the operator lands back where they started.
	FromParam = "from"
)

// # JSON Field Identifiers

const (
	FieldError = "error"
	FieldCode  = "code"
)
