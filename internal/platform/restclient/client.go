// Copyright (c) 2026 RoadRW. All rights reserved.

/*
Package restclient is the single chokepoint for outbound calls to the
RoadRW backend API.

Every request issued by the session controller, the console resource
clients, and the gateway proxy flows through [Client.Do], which:

  - attaches the bearer token of the current session,
  - stamps an X-Request-ID correlation header (UUID v7),
  - throttles the outbound rate (token bucket),
  - bounds each call with a timeout, and
  - on a 401 from a non-auth endpoint, performs exactly one
    refresh-and-retry cycle before surfacing a definitive failure.

Errors are surfaced as [apperr.AppError] values: NETWORK_ERROR when no
response arrived, a 4xx taxonomy entry, or SERVER_ERROR for 5xx. The
wrapper never swallows errors; it augments and rethrows.
*/
package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/roadrw/consolekit/internal/platform/apperr"
	"github.com/roadrw/consolekit/internal/platform/constants"
)

// maxResponseBytes caps how much of a backend response is buffered.
const maxResponseBytes = 4 << 20

// errRefreshInterrupted marks a refresh attempt that got no backend
// verdict, so the request fails without condemning the session.
var errRefreshInterrupted = errors.New("token refresh got no backend verdict")

// # Session Coupling

// RefreshOutcome classifies one silent renewal attempt.
//
// The distinction between Rejected and Transient is load-bearing: only an
// explicit backend rejection may destroy the session. A refresh that never
// reached a verdict (connection drop, canceled context) keeps the session
// so a network blip cannot force a logout.
type RefreshOutcome int

const (
	// RefreshRenewed means the session holds a fresh token; retry.
	RefreshRenewed RefreshOutcome = iota

	// RefreshRejected means the backend refused the refresh token; the
	// session is dead and the caller must treat the failure as definitive.
	RefreshRejected

	// RefreshTransient means no verdict arrived; the session is retained
	// and the original request fails with a network error.
	RefreshTransient
)

// TokenSource is the client's view of the session controller.
//
// Defining the interface here (instead of importing the auth package)
// keeps the dependency arrow pointing one way: the controller uses the
// client for its own backend calls, and the client calls back through
// this narrow surface on 401s.
type TokenSource interface {
	// AccessToken returns the current bearer token, or "" with no session.
	AccessToken() string

	// Refresh attempts one silent renewal. Implementations must be
	// single-flight: concurrent callers share one in-flight attempt and
	// its outcome.
	Refresh(ctx context.Context) RefreshOutcome

	// AuthFailed reports a definitive authentication failure so the
	// session is destroyed and navigation is redirected to login.
	AuthFailed(ctx context.Context)
}

// # Client

// Options tunes a [Client]. Zero values fall back to the defaults in
// [constants].
type Options struct {
	Timeout   time.Duration
	RPS       float64
	Burst     int
	Logger    *slog.Logger
	Transport http.RoundTripper
}

// Client is the outbound request pipeline.
type Client struct {
	mu      sync.RWMutex
	baseURL string
	tokens  TokenSource

	httpClient *http.Client
	limiter    *rate.Limiter
	timeout    time.Duration
	log        *slog.Logger
}

// New creates a client for the given backend base URL.
func New(baseURL string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = constants.DefaultBackendTimeout
	}
	if opts.RPS <= 0 {
		opts.RPS = constants.OutboundRPS
	}
	if opts.Burst <= 0 {
		opts.Burst = constants.OutboundBurst
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Transport: transport},
		limiter:    rate.NewLimiter(rate.Limit(opts.RPS), opts.Burst),
		timeout:    opts.Timeout,
		log:        opts.Logger,
	}
}

// BindTokens attaches the session controller after construction.
// The controller itself needs the client to exist first, so the binding is
// a separate wiring step in main.
func (c *Client) BindTokens(tokens TokenSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = tokens
}

// SetBaseURL switches the backend target, e.g. on an environment change.
func (c *Client) SetBaseURL(baseURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = strings.TrimRight(baseURL, "/")
}

// BaseURL returns the current backend target.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// # Requests

// Request describes one backend call.
type Request struct {
	Method string
	Path   string
	Query  url.Values

	// Body is JSON-marshaled when non-nil.
	Body any

	// NoAuthRetry disables the one-shot 401 refresh-and-retry cycle.
	// The auth endpoints set it so a rejected login or refresh does not
	// recurse into another refresh.
	NoAuthRetry bool
}

// Response is a decoded backend success envelope.
type Response struct {
	StatusCode int
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Meta       json.RawMessage `json:"meta"`
}

// errorEnvelope is the backend's failure payload.
type errorEnvelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Error   string              `json:"error"`
	Errors  []apperr.FieldError `json:"errors"`
}

// Do executes one backend call with the full pipeline applied.
//
// # Retry Discipline
//
// At most one refresh-and-retry cycle per original request, never a loop.
// A request that comes back 401 after a successful refresh is a definitive
// authentication failure. A refresh that reaches no verdict fails the
// request with NETWORK_ERROR but leaves the session alone.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperr.Network(err)
	}

	status, body, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized && !req.NoAuthRetry {
		tokens := c.tokenSource()
		if tokens == nil {
			return nil, c.mapFailure(status, body)
		}

		// One shared refresh; concurrent 401 handlers await the same
		// attempt inside the controller.
		switch tokens.Refresh(ctx) {
		case RefreshRenewed:
		case RefreshTransient:
			return nil, apperr.Network(errRefreshInterrupted)
		default:
			tokens.AuthFailed(ctx)
			return nil, apperr.SessionExpired()
		}

		status, body, err = c.send(ctx, req)
		if err != nil {
			return nil, err
		}
		if status == http.StatusUnauthorized {
			tokens.AuthFailed(ctx)
			return nil, apperr.SessionExpired()
		}
	}

	if status < 200 || status > 299 {
		return nil, c.mapFailure(status, body)
	}

	response := &Response{StatusCode: status, Success: true}
	if len(body) > 0 {
		if err := json.Unmarshal(body, response); err != nil {
			return nil, apperr.Wrap("BAD_RESPONSE", "Unexpected response from the server", err)
		}
	}
	return response, nil
}

// DoJSON executes the call and unmarshals the envelope's data field.
func (c *Client) DoJSON(ctx context.Context, req Request, out any) error {
	response, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(response.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(response.Data, out); err != nil {
		return apperr.Wrap("BAD_RESPONSE", "Unexpected response from the server", err)
	}
	return nil
}

// send performs a single HTTP round trip and buffers the response body.
func (c *Client) send(ctx context.Context, req Request) (int, []byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var bodyReader io.Reader
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return 0, nil, apperr.Internal(fmt.Errorf("restclient: marshal request body: %w", err))
		}
		bodyReader = bytes.NewReader(encoded)
	}

	target := c.BaseURL() + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(callCtx, req.Method, target, bodyReader)
	if err != nil {
		return 0, nil, apperr.Internal(fmt.Errorf("restclient: build request: %w", err))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(constants.HeaderXRequestID, newRequestID())
	if tokens := c.tokenSource(); tokens != nil {
		if token := tokens.AccessToken(); token != "" {
			httpReq.Header.Set(constants.HeaderAuthorization, "Bearer "+token)
		}
	}

	started := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// No response arrived: connection failure, DNS error, or timeout.
		return 0, nil, apperr.Network(err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, apperr.Network(err)
	}

	c.log.Debug("backend_call",
		slog.String("method", req.Method),
		slog.String("path", req.Path),
		slog.Int("status", httpResp.StatusCode),
		slog.Int64("latency_ms", time.Since(started).Milliseconds()),
	)

	return httpResp.StatusCode, body, nil
}

// mapFailure translates a non-2xx backend response into the error taxonomy.
func (c *Client) mapFailure(status int, body []byte) error {
	var payload errorEnvelope
	_ = json.Unmarshal(body, &payload)

	message := payload.Message
	if message == "" {
		message = payload.Error
	}

	switch {
	case status == http.StatusTooManyRequests:
		return apperr.RateLimited()
	case status == http.StatusConflict:
		if message == "" {
			message = "Resource already exists"
		}
		return apperr.Conflict(message)
	case status == http.StatusUnprocessableEntity,
		status == http.StatusBadRequest && len(payload.Errors) > 0:
		if message == "" {
			message = "Validation failed"
		}
		return apperr.ValidationError(message, payload.Errors...)
	case status >= 500:
		return apperr.ServerError(status, message)
	default:
		return apperr.ClientError(status, message)
	}
}

// tokenSource returns the bound session controller, if any.
func (c *Client) tokenSource() TokenSource {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens
}

// newRequestID mints a time-sortable correlation ID.
func newRequestID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.New().String()
}
