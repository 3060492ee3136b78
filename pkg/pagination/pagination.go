// Copyright (c) 2026 RoadRW. All rights reserved.

// Package pagination provides shared types for the backend's paginated
// list endpoints.
//
// # Overview
//
// It standardizes how page-based navigation is requested via query
// parameters and how the resulting metadata is read back from the API
// response envelope.
package pagination

import (
	"net/url"
	"strconv"
)

const (
	// DefaultLimit is the number of items per page if not specified.
	DefaultLimit = 20
	// MaxLimit is the upper bound for items per page to prevent abuse.
	MaxLimit = 100
	// DefaultPage is the starting page (1-indexed).
	DefaultPage = 1
)

// Params holds the page and limit sent to a list endpoint.
type Params struct {
	Page  int
	Limit int
}

// Normalize clamps the parameters into their valid ranges.
func (p Params) Normalize() Params {
	if p.Page < DefaultPage {
		p.Page = DefaultPage
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Query encodes the parameters into URL query values.
func (p Params) Query() url.Values {
	p = p.Normalize()
	values := url.Values{}
	values.Set("page", strconv.Itoa(p.Page))
	values.Set("limit", strconv.Itoa(p.Limit))
	return values
}

// FromQuery parses page/limit from query values, applying defaults and
// clamping out-of-range input.
func FromQuery(values url.Values) Params {
	page, _ := strconv.Atoi(values.Get("page"))
	limit, _ := strconv.Atoi(values.Get("limit"))
	return Params{Page: page, Limit: limit}.Normalize()
}

// Meta is the pagination metadata block of an API list response.
type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// HasNext reports whether another page exists after the current one.
func (m Meta) HasNext() bool {
	return m.Page < m.TotalPages
}
