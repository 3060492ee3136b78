// Copyright (c) 2026 RoadRW. All rights reserved.

package gateway_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadrw/consolekit/internal/gateway"
	"github.com/roadrw/consolekit/internal/platform/restclient"
)

// stubTokens is a scripted [restclient.TokenSource].
type stubTokens struct {
	mu         sync.Mutex
	token      string
	outcome    restclient.RefreshOutcome
	nextToken  string
	refreshed  int
	authFailed int
}

func (s *stubTokens) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *stubTokens) Refresh(ctx context.Context) restclient.RefreshOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshed++
	if s.outcome == restclient.RefreshRenewed {
		s.token = s.nextToken
	}
	return s.outcome
}

func (s *stubTokens) AuthFailed(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authFailed++
}

// serveProxy routes one request through a chi-mounted proxy so the
// wildcard tail parameter resolves like it does in the real server.
func serveProxy(t *testing.T, upstreamURL string, tokens *stubTokens, request *http.Request) *httptest.ResponseRecorder {
	t.Helper()

	client := restclient.New(upstreamURL, restclient.Options{
		Timeout: 2 * time.Second,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	proxy := gateway.NewProxy(client, tokens, 2*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))

	router := chi.NewRouter()
	router.Handle("/backend/*", proxy)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func decodeErrorEnvelope(t *testing.T, recorder *httptest.ResponseRecorder) (code string) {
	t.Helper()
	var payload struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	return payload.Code
}

/*
TestProxy_ForwardsWithBearer verifies the pass-through: path tail, query,
body, and bearer token all reach the upstream, and the response is
relayed untouched.
*/
func TestProxy_ForwardsWithBearer(t *testing.T) {
	var gotPath, gotQuery, gotAuth, gotBody string
	upstream := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		gotPath = request.URL.Path
		gotQuery = request.URL.RawQuery
		gotAuth = request.Header.Get("Authorization")
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(request.Body)
		gotBody = buf.String()
		writer.Header().Set("Content-Type", "application/json")
		writer.WriteHeader(http.StatusOK)
		_, _ = writer.Write([]byte(`{"success":true}`))
	}))
	defer upstream.Close()

	request := httptest.NewRequest(http.MethodPost, "/backend/faturas/f-1/baixa?motivo=pago", bytes.NewReader([]byte(`{"valor":10}`)))
	request.Header.Set("Content-Type", "application/json")

	recorder := serveProxy(t, upstream.URL, &stubTokens{token: "tok-1"}, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "/faturas/f-1/baixa", gotPath)
	assert.Equal(t, "motivo=pago", gotQuery)
	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.Equal(t, `{"valor":10}`, gotBody)
	assert.JSONEq(t, `{"success":true}`, recorder.Body.String())
}

/*
TestProxy_OversizeBodyRejected verifies that a body over the buffering cap
is answered with 413 and never forwarded, instead of being truncated and
relayed corrupted.
*/
func TestProxy_OversizeBodyRejected(t *testing.T) {
	var upstreamHits int
	upstream := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		upstreamHits++
		writer.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	oversize := make([]byte, (8<<20)+1)
	request := httptest.NewRequest(http.MethodPost, "/backend/faturas", bytes.NewReader(oversize))

	recorder := serveProxy(t, upstream.URL, &stubTokens{token: "tok-1"}, request)

	assert.Equal(t, http.StatusRequestEntityTooLarge, recorder.Code)
	assert.Equal(t, "CLIENT_ERROR", decodeErrorEnvelope(t, recorder))
	assert.Zero(t, upstreamHits)
}

/*
TestProxy_RefreshRetryCycle verifies the one-shot 401 recovery through the
proxy: refresh once, replay the buffered body with the renewed token.
*/
func TestProxy_RefreshRetryCycle(t *testing.T) {
	var bodies []string
	upstream := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(request.Body)
		bodies = append(bodies, buf.String())
		if request.Header.Get("Authorization") != "Bearer tok-2" {
			writer.WriteHeader(http.StatusUnauthorized)
			return
		}
		writer.WriteHeader(http.StatusOK)
		_, _ = writer.Write([]byte(`{"success":true}`))
	}))
	defer upstream.Close()

	tokens := &stubTokens{token: "tok-1", outcome: restclient.RefreshRenewed, nextToken: "tok-2"}
	request := httptest.NewRequest(http.MethodPost, "/backend/clientes", bytes.NewReader([]byte(`{"nome":"Alfa"}`)))

	recorder := serveProxy(t, upstream.URL, tokens, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, []string{`{"nome":"Alfa"}`, `{"nome":"Alfa"}`}, bodies)
	assert.Equal(t, 1, tokens.refreshed)
	assert.Zero(t, tokens.authFailed)
}

/*
TestProxy_TransientRefreshKeepsSession verifies that a refresh reaching no
verdict answers NETWORK_ERROR without destroying the session.
*/
func TestProxy_TransientRefreshKeepsSession(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusUnauthorized)
	}))
	defer upstream.Close()

	tokens := &stubTokens{token: "tok-1", outcome: restclient.RefreshTransient}
	request := httptest.NewRequest(http.MethodGet, "/backend/faturas", nil)

	recorder := serveProxy(t, upstream.URL, tokens, request)

	assert.Equal(t, http.StatusBadGateway, recorder.Code)
	assert.Equal(t, "NETWORK_ERROR", decodeErrorEnvelope(t, recorder))
	assert.Equal(t, 1, tokens.refreshed)
	assert.Zero(t, tokens.authFailed)
}

/*
TestProxy_RejectedRefreshEndsSession verifies that an explicit refresh
rejection is definitive: 401 SESSION_EXPIRED and the session destroyed.
*/
func TestProxy_RejectedRefreshEndsSession(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusUnauthorized)
	}))
	defer upstream.Close()

	tokens := &stubTokens{token: "tok-1", outcome: restclient.RefreshRejected}
	request := httptest.NewRequest(http.MethodGet, "/backend/faturas", nil)

	recorder := serveProxy(t, upstream.URL, tokens, request)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "SESSION_EXPIRED", decodeErrorEnvelope(t, recorder))
	assert.Equal(t, 1, tokens.authFailed)
}
