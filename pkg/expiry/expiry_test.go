// Copyright (c) 2026 RoadRW. All rights reserved.

package expiry_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadrw/consolekit/pkg/expiry"
)

/*
TestParse_NumericSeconds verifies bare integer lifetimes are read as seconds.
*/
func TestParse_NumericSeconds(t *testing.T) {
	assert.Equal(t, 3600*time.Second, expiry.Parse("3600"))
	assert.Equal(t, 1*time.Second, expiry.Parse("1"))
}

/*
TestParse_SuffixedForms verifies the s/m/h/d suffixed duration strings.
*/
func TestParse_SuffixedForms(t *testing.T) {
	cases := map[string]time.Duration{
		"3600s": 3600 * time.Second,
		"30m":   30 * time.Minute,
		"1h":    1 * time.Hour,
		"7d":    7 * 24 * time.Hour,
	}

	for raw, want := range cases {
		assert.Equal(t, want, expiry.Parse(raw), "input %q", raw)
	}
}

/*
TestParse_Malformed verifies junk input falls back to the default lifetime
instead of failing.
*/
func TestParse_Malformed(t *testing.T) {
	for _, raw := range []string{"", "abc", "-5", "0", "10w", "1h30m"} {
		assert.Equal(t, expiry.DefaultLifetime, expiry.Parse(raw), "input %q", raw)
	}
}

/*
TestExpiresIn_UnmarshalJSON verifies both wire shapes (number and string)
decode into the same lifetime.
*/
func TestExpiresIn_UnmarshalJSON(t *testing.T) {
	type payload struct {
		ExpiresIn expiry.ExpiresIn `json:"expiresIn"`
	}

	var fromNumber payload
	require.NoError(t, json.Unmarshal([]byte(`{"expiresIn":3600}`), &fromNumber))
	assert.Equal(t, time.Hour, fromNumber.ExpiresIn.Duration())

	var fromString payload
	require.NoError(t, json.Unmarshal([]byte(`{"expiresIn":"1h"}`), &fromString))
	assert.Equal(t, time.Hour, fromString.ExpiresIn.Duration())

	var fromNull payload
	require.NoError(t, json.Unmarshal([]byte(`{"expiresIn":null}`), &fromNull))
	assert.True(t, fromNull.ExpiresIn.IsZero())
	assert.Equal(t, expiry.DefaultLifetime, fromNull.ExpiresIn.Duration())
}

/*
TestCompute_Monotonic verifies a later issue time with the same lifetime
always yields a strictly later expiry instant.
*/
func TestCompute_Monotonic(t *testing.T) {
	var in expiry.ExpiresIn
	require.NoError(t, json.Unmarshal([]byte(`"15m"`), &in))

	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(1 * time.Minute)

	firstExpiry := expiry.Compute(first, in)
	secondExpiry := expiry.Compute(second, in)

	assert.True(t, firstExpiry.After(first))
	assert.True(t, secondExpiry.After(firstExpiry))
}
