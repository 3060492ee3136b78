// Copyright (c) 2026 RoadRW. All rights reserved.

// Package expiry centralizes access-token lifetime arithmetic.
//
// # Overview
//
// The backend reports token lifetimes in two shapes: a bare JSON number
// (seconds) or a suffixed duration string such as "1h", "30m", or "7d".
// This package converts either form into a concrete duration and derives
// the absolute expiry instant that is persisted by the credential store.
package expiry

import (
	"encoding/json"
	"regexp"
	"strconv"
	"time"
)

// DefaultLifetime is assumed when the backend sends no lifetime or one
// that cannot be parsed.
const DefaultLifetime = 24 * time.Hour

// suffixedRegex matches durations like "3600s", "30m", "1h", "7d".
var suffixedRegex = regexp.MustCompile(`^(\d+)([smhd])$`)

// ExpiresIn is the wire form of a token lifetime. It accepts both a JSON
// number (seconds) and a suffixed duration string.
type ExpiresIn struct {
	raw string
}

// UnmarshalJSON accepts `3600`, `"3600"`, `"1h"`, `"30m"`, `"7d"` and null.
func (e *ExpiresIn) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		e.raw = asString
		return nil
	}

	var asNumber float64
	if err := json.Unmarshal(data, &asNumber); err == nil {
		e.raw = strconv.FormatInt(int64(asNumber), 10)
		return nil
	}

	// Unknown shape: leave raw empty so the default lifetime applies.
	e.raw = ""
	return nil
}

// IsZero reports whether no lifetime was provided.
func (e ExpiresIn) IsZero() bool { return e.raw == "" }

// String returns the raw wire value.
func (e ExpiresIn) String() string { return e.raw }

// Duration converts the wire value to a [time.Duration], falling back to
// [DefaultLifetime] for empty or malformed input.
func (e ExpiresIn) Duration() time.Duration {
	return Parse(e.raw)
}

// Parse converts a lifetime string to a duration.
//
// Accepted forms:
//   - bare integer: seconds ("3600")
//   - suffixed: "3600s", "30m", "1h", "7d"
//
// Anything else yields [DefaultLifetime].
func Parse(raw string) time.Duration {
	if raw == "" {
		return DefaultLifetime
	}

	if seconds, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if seconds <= 0 {
			return DefaultLifetime
		}
		return time.Duration(seconds) * time.Second
	}

	matches := suffixedRegex.FindStringSubmatch(raw)
	if matches == nil {
		return DefaultLifetime
	}

	value, err := strconv.ParseInt(matches[1], 10, 64)
	if err != nil || value <= 0 {
		return DefaultLifetime
	}

	switch matches[2] {
	case "s":
		return time.Duration(value) * time.Second
	case "m":
		return time.Duration(value) * time.Minute
	case "h":
		return time.Duration(value) * time.Hour
	case "d":
		return time.Duration(value) * 24 * time.Hour
	}

	return DefaultLifetime
}

// Compute derives the absolute expiry instant from the issue time and the
// reported lifetime. The result is always strictly after issuedAt because
// Parse never returns a non-positive duration.
func Compute(issuedAt time.Time, in ExpiresIn) time.Time {
	return issuedAt.Add(in.Duration())
}
