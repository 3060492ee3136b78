// Copyright (c) 2026 RoadRW. All rights reserved.

package gateway

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/roadrw/consolekit/internal/platform/apperr"
	"github.com/roadrw/consolekit/internal/platform/constants"
	"github.com/roadrw/consolekit/internal/platform/ctxutil"
	"github.com/roadrw/consolekit/internal/platform/respond"
	"github.com/roadrw/consolekit/internal/platform/restclient"
)

// maxProxyBodyBytes caps buffered request bodies. Buffering is required
// because a 401-triggered retry must replay the body.
const maxProxyBodyBytes = 8 << 20

// errRefreshInterrupted marks a refresh attempt that got no backend
// verdict; the proxied request fails without condemning the session.
var errRefreshInterrupted = errors.New("token refresh got no backend verdict")

// Proxy forwards backend endpoints the gateway has no dedicated handler
// for, attaching the operator's bearer token on the way out.
//
// # Retry Discipline
//
// Same as the REST client: at most one refresh-and-retry cycle per
// request. A 401 after a successful refresh destroys the session; a
// refresh with no verdict fails the request but keeps the session.
type Proxy struct {
	client     *restclient.Client
	tokens     restclient.TokenSource
	httpClient *http.Client
	timeout    time.Duration
	log        *slog.Logger
}

// NewProxy constructs the pass-through proxy.
//
// The base URL is read from the REST client on every request, so an
// environment switch re-points the proxy automatically.
func NewProxy(client *restclient.Client, tokens restclient.TokenSource, timeout time.Duration, log *slog.Logger) *Proxy {
	if timeout <= 0 {
		timeout = constants.DefaultBackendTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Proxy{
		client:     client,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
		log:        log,
	}
}

// ServeHTTP implements [http.Handler].
func (p *Proxy) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	tail := chi.URLParam(request, "*")

	// MaxBytesReader (not LimitReader) so an oversize body is rejected
	// instead of silently truncated and forwarded corrupted.
	request.Body = http.MaxBytesReader(writer, request.Body, maxProxyBodyBytes)
	body, err := io.ReadAll(request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(writer, request, apperr.ClientError(http.StatusRequestEntityTooLarge, "Request body is too large"))
			return
		}
		respond.Error(writer, request, apperr.Internal(err))
		return
	}

	response, err := p.forward(request, tail, body)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if response.StatusCode == http.StatusUnauthorized {
		// One shared refresh; the controller single-flights concurrent
		// attempts across proxy and client callers.
		drain(response)
		switch p.tokens.Refresh(request.Context()) {
		case restclient.RefreshRenewed:
		case restclient.RefreshTransient:
			respond.Error(writer, request, apperr.Network(errRefreshInterrupted))
			return
		default:
			p.tokens.AuthFailed(request.Context())
			respond.Error(writer, request, apperr.SessionExpired())
			return
		}

		response, err = p.forward(request, tail, body)
		if err != nil {
			respond.Error(writer, request, err)
			return
		}
		if response.StatusCode == http.StatusUnauthorized {
			drain(response)
			p.tokens.AuthFailed(request.Context())
			respond.Error(writer, request, apperr.SessionExpired())
			return
		}
	}

	defer response.Body.Close()

	copyHeaders(writer.Header(), response.Header)
	writer.WriteHeader(response.StatusCode)
	if _, err := io.Copy(writer, response.Body); err != nil {
		p.log.Warn("proxy_body_copy_failed", slog.Any("error", err))
	}
}

// forward performs a single upstream round trip.
func (p *Proxy) forward(request *http.Request, tail string, body []byte) (*http.Response, error) {
	target := p.client.BaseURL() + "/" + tail
	if raw := request.URL.RawQuery; raw != "" {
		target += "?" + raw
	}

	upstream, err := http.NewRequestWithContext(request.Context(), request.Method, target, bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Internal(err)
	}

	if contentType := request.Header.Get("Content-Type"); contentType != "" {
		upstream.Header.Set("Content-Type", contentType)
	}
	if accept := request.Header.Get("Accept"); accept != "" {
		upstream.Header.Set("Accept", accept)
	}
	upstream.Header.Set(constants.HeaderXRequestID, ctxutil.GetRequestID(request.Context()))
	if token := p.tokens.AccessToken(); token != "" {
		upstream.Header.Set(constants.HeaderAuthorization, "Bearer "+token)
	}

	response, err := p.httpClient.Do(upstream)
	if err != nil {
		return nil, apperr.Network(err)
	}
	return response, nil
}

// copyHeaders forwards upstream response headers, skipping hop-by-hop ones.
func copyHeaders(dst, src http.Header) {
	for name, values := range src {
		switch name {
		case "Connection", "Keep-Alive", "Transfer-Encoding", "Upgrade":
			continue
		}
		for _, value := range values {
			dst.Add(name, value)
		}
	}
}

// drain discards a response body so the connection can be reused.
func drain(response *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, maxProxyBodyBytes))
	_ = response.Body.Close()
}
