// Copyright (c) 2026 RoadRW. All rights reserved.

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only. Runtime backend
    switching is handled by the environment manager, never by mutating Config.
  - DI-Friendly: Passed to core components (controller, REST client, stores)
    via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the gateway is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the console gateway.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Backend API environments. The active one can be switched at runtime
	// through the environment manager; the selection survives restarts via
	// EnvStatePath.
	APIURLDevelopment string `env:"API_URL_DEVELOPMENT" envDefault:"http://localhost:3001/api"`
	APIURLProduction  string `env:"API_URL_PRODUCTION"`
	APIEnvironment    string `env:"API_ENVIRONMENT"     envDefault:"development"`
	EnvStatePath      string `env:"ENV_STATE_PATH"      envDefault:""`

	// Outbound request bound. Calls exceeding it surface as network errors.
	BackendTimeout time.Duration `env:"BACKEND_TIMEOUT" envDefault:"30s"`

	// Session renewal tuning.
	RenewalThreshold time.Duration `env:"RENEWAL_THRESHOLD" envDefault:"5m"`
	RenewalInterval  time.Duration `env:"RENEWAL_INTERVAL"  envDefault:"1m"`

	// Credential store backend: file, redis, or memory.
	CredentialStore string `env:"CREDENTIAL_STORE" envDefault:"file"`

	// File store settings. The passphrase encrypts tokens at rest.
	CredentialFile       string `env:"CREDENTIAL_FILE"       envDefault:".console-session"`
	CredentialPassphrase string `env:"CREDENTIAL_PASSPHRASE" envDefault:""`

	// Redis store settings (only required when CREDENTIAL_STORE=redis).
	RedisURL       string `env:"REDIS_URL"`
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"console"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate enforces cross-field rules the env tags cannot express.
func (c *Config) validate() error {
	switch c.CredentialStore {
	case "file", "memory":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("config: REDIS_URL is required when CREDENTIAL_STORE=redis")
		}
	default:
		return fmt.Errorf("config: unknown CREDENTIAL_STORE %q (want file, redis, or memory)", c.CredentialStore)
	}

	if c.APIEnvironment == "production" && c.APIURLProduction == "" {
		return fmt.Errorf("config: API_URL_PRODUCTION is required when API_ENVIRONMENT=production")
	}

	return nil
}

// AllowedOrigins returns the extra CORS origins as a cleaned slice.
func (c *Config) AllowedOrigins() []string {
	if c.ExtraOrigins == "" {
		return nil
	}
	parts := strings.Split(c.ExtraOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// IsDevelopment reports whether the gateway is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the gateway is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
