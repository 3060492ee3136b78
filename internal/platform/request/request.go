// Copyright (c) 2026 RoadRW. All rights reserved.

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/roadrw/consolekit/internal/auth"
	"github.com/roadrw/consolekit/internal/platform/apperr"
	"github.com/roadrw/consolekit/internal/platform/ctxutil"
	"github.com/roadrw/consolekit/internal/platform/validate"
)

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - request: *http.Request
  - target: interface{} (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target interface{}) error {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
Param retrieves a named URL parameter from the request.
*/
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
User extracts the authenticated console user from the request context.

Returns nil if the request is not authenticated.
*/
func User(request *http.Request) *auth.User {
	return ctxutil.GetUser(request.Context())
}

/*
RequiredUser ensures the request is authenticated and returns the user.

Returns:
  - *auth.User: The authenticated console user
  - error: apperr.Unauthorized if the request is not authenticated
*/
func RequiredUser(request *http.Request) (*auth.User, error) {

	// Get the session user
	user := ctxutil.GetUser(request.Context())

	// If the user is not authenticated, return an error
	if user == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}

	return user, nil
}
