// Copyright (c) 2026 RoadRW. All rights reserved.

package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadrw/consolekit/internal/platform/apperr"
	"github.com/roadrw/consolekit/internal/platform/restclient"
)

// testBackend builds an httptest server with per-endpoint handlers,
// standing in for the RoadRW API.
func testBackend(handlers map[string]http.HandlerFunc) *httptest.Server {
	mux := http.NewServeMux()
	for pattern, handler := range handlers {
		mux.HandleFunc(pattern, handler)
	}
	return httptest.NewServer(mux)
}

// writeEnvelope writes the backend's success envelope around data.
func writeEnvelope(writer http.ResponseWriter, status int, data any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(map[string]any{
		"success": status < 400,
		"data":    data,
	})
}

// writeFailure writes the backend's error envelope.
func writeFailure(writer http.ResponseWriter, status int, message string) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(map[string]any{
		"success": false,
		"message": message,
	})
}

// tokenData is a canonical token-issuing response body.
func tokenData(token string) map[string]any {
	return map[string]any{
		"token":        token,
		"refreshToken": "rt-" + token,
		"user": map[string]any{
			"id":   "u-1",
			"nome": "Ana Souza",
			"role": "gestor",
		},
		"expiresIn": 3600,
	}
}

// newTestController wires a controller and client against the given server.
func newTestController(t *testing.T, serverURL string, store CredentialStore, opts Options) *Controller {
	t.Helper()
	client := restclient.New(serverURL, restclient.Options{
		Timeout: 2 * time.Second,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	controller := NewController(store, client, slog.New(slog.NewTextHandler(io.Discard, nil)), opts)
	client.BindTokens(controller)
	return controller
}

/*
TestLogin_EstablishesSession verifies the happy path: credentials in,
authenticated session out, with all four credential fields persisted.
*/
func TestLogin_EstablishesSession(t *testing.T) {
	server := testBackend(map[string]http.HandlerFunc{
		"/auth/login": func(writer http.ResponseWriter, request *http.Request) {
			writeEnvelope(writer, http.StatusOK, tokenData("tok-1"))
		},
	})
	defer server.Close()

	store := NewMemoryStore()
	controller := newTestController(t, server.URL, store, Options{})

	user, err := controller.Login(context.Background(), Credentials{Email: "ana@roadrw.com.br", Password: "secret"})
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "u-1", user.ID)
	assert.Equal(t, StateAuthenticated, controller.State())

	// The durable mirror holds the full session
	stored, err := store.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "tok-1", stored.AccessToken)
	assert.Equal(t, "rt-tok-1", stored.RefreshToken)
	assert.Equal(t, "u-1", stored.User.ID)
	assert.False(t, stored.ExpiresAt.IsZero())
}

/*
TestLogin_ErrorTaxonomy verifies the mapping of backend rejections onto
the login error codes.
*/
func TestLogin_ErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantCode string
	}{
		{"rejected_credentials", http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"locked_account", http.StatusLocked, "ACCOUNT_LOCKED"},
		{"throttled", http.StatusTooManyRequests, "RATE_LIMITED"},
		{"server_error", http.StatusInternalServerError, "SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := testBackend(map[string]http.HandlerFunc{
				"/auth/login": func(writer http.ResponseWriter, request *http.Request) {
					writeFailure(writer, tt.status, "nope")
				},
			})
			defer server.Close()

			controller := newTestController(t, server.URL, NewMemoryStore(), Options{})
			_, err := controller.Login(context.Background(), Credentials{Email: "a@b.c", Password: "x"})

			require.Error(t, err)
			ae := apperr.As(err)
			require.NotNil(t, ae)
			assert.Equal(t, tt.wantCode, ae.Code)
		})
	}
}

/*
TestLogin_NetworkErrorLeavesNoSession verifies that an unreachable backend
surfaces NETWORK_ERROR and the controller stays unauthenticated.
*/
func TestLogin_NetworkErrorLeavesNoSession(t *testing.T) {
	server := testBackend(nil)
	server.Close() // nothing listening

	controller := newTestController(t, server.URL, NewMemoryStore(), Options{})
	_, err := controller.Login(context.Background(), Credentials{Email: "a@b.c", Password: "x"})

	require.Error(t, err)
	assert.True(t, apperr.IsNetwork(err))
	assert.NotEqual(t, StateAuthenticated, controller.State())
}

/*
TestLogout_IsIdempotent verifies that logout always clears local state —
with a session, without one, and when the backend notification fails.
*/
func TestLogout_IsIdempotent(t *testing.T) {
	server := testBackend(map[string]http.HandlerFunc{
		"/auth/login": func(writer http.ResponseWriter, request *http.Request) {
			writeEnvelope(writer, http.StatusOK, tokenData("tok-1"))
		},
		"/auth/logout": func(writer http.ResponseWriter, request *http.Request) {
			writeFailure(writer, http.StatusInternalServerError, "logout exploded")
		},
	})
	defer server.Close()

	store := NewMemoryStore()
	controller := newTestController(t, server.URL, store, Options{})

	_, err := controller.Login(context.Background(), Credentials{Email: "a@b.c", Password: "x"})
	require.NoError(t, err)

	// First logout: backend notification fails, local state clears anyway
	controller.Logout(context.Background())
	assert.Equal(t, StateUnauthenticated, controller.State())
	assert.Nil(t, controller.CurrentUser())

	stored, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, stored)

	// Second logout with no session: still fine
	controller.Logout(context.Background())
	assert.Equal(t, StateUnauthenticated, controller.State())
}

/*
TestInitialize_RestoresVerifiedSession verifies the restart path: a stored
session that the backend verifies comes back as Authenticated.
*/
func TestInitialize_RestoresVerifiedSession(t *testing.T) {
	var verifyAuth atomic.Value
	server := testBackend(map[string]http.HandlerFunc{
		"/auth/verify": func(writer http.ResponseWriter, request *http.Request) {
			verifyAuth.Store(request.Header.Get("Authorization"))
			writeEnvelope(writer, http.StatusOK, map[string]any{"valid": true})
		},
	})
	defer server.Close()

	store := NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), sampleSession()))

	controller := newTestController(t, server.URL, store, Options{})
	controller.Initialize(context.Background())

	assert.Equal(t, StateAuthenticated, controller.State())
	require.NotNil(t, controller.CurrentUser())
	assert.Equal(t, "u-1", controller.CurrentUser().ID)

	// The verify call carried the stored token
	assert.Equal(t, "Bearer access-token-1", verifyAuth.Load())
}

/*
TestInitialize_EmptyStoreResolvesUnauthenticated verifies that a fresh
process with no stored credentials resolves without any backend call.
*/
func TestInitialize_EmptyStoreResolvesUnauthenticated(t *testing.T) {
	var hits int32
	server := testBackend(map[string]http.HandlerFunc{
		"/": func(writer http.ResponseWriter, request *http.Request) {
			atomic.AddInt32(&hits, 1)
			writeEnvelope(writer, http.StatusOK, nil)
		},
	})
	defer server.Close()

	controller := newTestController(t, server.URL, NewMemoryStore(), Options{})
	controller.Initialize(context.Background())

	assert.Equal(t, StateUnauthenticated, controller.State())
	assert.Zero(t, atomic.LoadInt32(&hits))

	// Ready resolves
	select {
	case <-controller.Ready():
	default:
		t.Fatal("controller not ready after Initialize")
	}
}

/*
TestInitialize_ExpiredWithoutRefreshTokenClears verifies that an expired
stored session with no refresh token is discarded without touching the
network.
*/
func TestInitialize_ExpiredWithoutRefreshTokenClears(t *testing.T) {
	var hits int32
	server := testBackend(map[string]http.HandlerFunc{
		"/": func(writer http.ResponseWriter, request *http.Request) {
			atomic.AddInt32(&hits, 1)
			writeEnvelope(writer, http.StatusOK, nil)
		},
	})
	defer server.Close()

	session := sampleSession()
	session.RefreshToken = ""
	session.ExpiresAt = time.Now().Add(-time.Minute)

	store := NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), session))

	controller := newTestController(t, server.URL, store, Options{})
	controller.Initialize(context.Background())

	assert.Equal(t, StateUnauthenticated, controller.State())
	assert.Zero(t, atomic.LoadInt32(&hits))

	stored, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, stored)
}

/*
TestInitialize_RejectedVerifyRecoversViaRefresh verifies that a stale
access token with a live refresh token is silently renewed on startup.
*/
func TestInitialize_RejectedVerifyRecoversViaRefresh(t *testing.T) {
	server := testBackend(map[string]http.HandlerFunc{
		"/auth/verify": func(writer http.ResponseWriter, request *http.Request) {
			writeFailure(writer, http.StatusUnauthorized, "token expired")
		},
		"/auth/refresh": func(writer http.ResponseWriter, request *http.Request) {
			var body map[string]string
			_ = json.NewDecoder(request.Body).Decode(&body)
			if body["refreshToken"] != "refresh-token-1" {
				writeFailure(writer, http.StatusUnauthorized, "bad refresh token")
				return
			}
			writeEnvelope(writer, http.StatusOK, tokenData("tok-2"))
		},
	})
	defer server.Close()

	store := NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), sampleSession()))

	controller := newTestController(t, server.URL, store, Options{})
	controller.Initialize(context.Background())

	assert.Equal(t, StateAuthenticated, controller.State())

	stored, err := store.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "tok-2", stored.AccessToken)
}

/*
TestInitialize_RefreshFailureClears verifies that a startup whose one
refresh attempt fails resolves to Unauthenticated with the store cleared.
*/
func TestInitialize_RefreshFailureClears(t *testing.T) {
	server := testBackend(map[string]http.HandlerFunc{
		"/auth/verify": func(writer http.ResponseWriter, request *http.Request) {
			writeFailure(writer, http.StatusUnauthorized, "token expired")
		},
		"/auth/refresh": func(writer http.ResponseWriter, request *http.Request) {
			writeFailure(writer, http.StatusUnauthorized, "refresh token revoked")
		},
	})
	defer server.Close()

	store := NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), sampleSession()))

	controller := newTestController(t, server.URL, store, Options{})
	controller.Initialize(context.Background())

	assert.Equal(t, StateUnauthenticated, controller.State())
	stored, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, stored)
}

/*
TestRefresh_RejectionClearsButNetworkErrorRetains verifies the refresh
failure policy: explicit rejection destroys the session, a transient
network error keeps it for the next attempt.
*/
func TestRefresh_RejectionClearsButNetworkErrorRetains(t *testing.T) {
	var refuse atomic.Bool
	var reject atomic.Bool
	server := testBackend(map[string]http.HandlerFunc{
		"/auth/login": func(writer http.ResponseWriter, request *http.Request) {
			writeEnvelope(writer, http.StatusOK, tokenData("tok-1"))
		},
		"/auth/refresh": func(writer http.ResponseWriter, request *http.Request) {
			if refuse.Load() {
				// Simulate a dead connection: hijack and drop.
				if hijacker, ok := writer.(http.Hijacker); ok {
					if conn, _, err := hijacker.Hijack(); err == nil {
						conn.Close()
					}
				}
				return
			}
			if reject.Load() {
				writeFailure(writer, http.StatusUnauthorized, "revoked")
				return
			}
			writeEnvelope(writer, http.StatusOK, tokenData("tok-2"))
		},
	})
	defer server.Close()

	store := NewMemoryStore()
	controller := newTestController(t, server.URL, store, Options{})
	_, err := controller.Login(context.Background(), Credentials{Email: "a@b.c", Password: "x"})
	require.NoError(t, err)

	// Network error: refresh reports no verdict and the session survives
	refuse.Store(true)
	assert.Equal(t, restclient.RefreshTransient, controller.Refresh(context.Background()))
	assert.Equal(t, StateAuthenticated, controller.State())
	stored, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, stored)

	// Explicit rejection: session destroyed
	refuse.Store(false)
	reject.Store(true)
	assert.Equal(t, restclient.RefreshRejected, controller.Refresh(context.Background()))
	assert.Equal(t, StateUnauthenticated, controller.State())
	stored, err = store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, stored)
}

/*
TestClientRetry_NetworkFaultDuringRefreshRetainsSession verifies the full
401-recovery path through the REST client: when the refresh round trip
dies mid-flight, the original request fails with NETWORK_ERROR and the
authenticated session survives, in memory and in the store.
*/
func TestClientRetry_NetworkFaultDuringRefreshRetainsSession(t *testing.T) {
	server := testBackend(map[string]http.HandlerFunc{
		"/auth/login": func(writer http.ResponseWriter, request *http.Request) {
			writeEnvelope(writer, http.StatusOK, tokenData("tok-1"))
		},
		"/carriers": func(writer http.ResponseWriter, request *http.Request) {
			writeFailure(writer, http.StatusUnauthorized, "expired")
		},
		"/auth/refresh": func(writer http.ResponseWriter, request *http.Request) {
			// Simulate a dead connection: hijack and drop.
			if hijacker, ok := writer.(http.Hijacker); ok {
				if conn, _, err := hijacker.Hijack(); err == nil {
					conn.Close()
				}
			}
		},
	})
	defer server.Close()

	store := NewMemoryStore()
	controller := newTestController(t, server.URL, store, Options{})
	_, err := controller.Login(context.Background(), Credentials{Email: "a@b.c", Password: "x"})
	require.NoError(t, err)

	_, err = controller.client.Do(context.Background(), restclient.Request{
		Method: http.MethodGet,
		Path:   "/carriers",
	})
	require.Error(t, err)
	assert.True(t, apperr.IsNetwork(err))

	// The blip did not log the operator out
	assert.Equal(t, StateAuthenticated, controller.State())
	assert.Equal(t, "tok-1", controller.AccessToken())
	stored, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, stored)
}

/*
TestRefresh_SingleFlight verifies that concurrent refresh callers share
one backend round trip and all observe its outcome.
*/
func TestRefresh_SingleFlight(t *testing.T) {
	var refreshHits int32
	release := make(chan struct{})

	server := testBackend(map[string]http.HandlerFunc{
		"/auth/login": func(writer http.ResponseWriter, request *http.Request) {
			writeEnvelope(writer, http.StatusOK, tokenData("tok-1"))
		},
		"/auth/refresh": func(writer http.ResponseWriter, request *http.Request) {
			atomic.AddInt32(&refreshHits, 1)
			<-release
			writeEnvelope(writer, http.StatusOK, tokenData("tok-2"))
		},
	})
	defer server.Close()

	controller := newTestController(t, server.URL, NewMemoryStore(), Options{})
	_, err := controller.Login(context.Background(), Credentials{Email: "a@b.c", Password: "x"})
	require.NoError(t, err)

	const callers = 8
	var started, finished sync.WaitGroup
	results := make([]restclient.RefreshOutcome, callers)

	started.Add(callers)
	finished.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer finished.Done()
			started.Done()
			results[i] = controller.Refresh(context.Background())
		}(i)
	}

	started.Wait()
	time.Sleep(50 * time.Millisecond) // let all callers reach the gate
	close(release)
	finished.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshHits))
	for i, outcome := range results {
		assert.Equal(t, restclient.RefreshRenewed, outcome, fmt.Sprintf("caller %d", i))
	}
	assert.Equal(t, "tok-2", controller.AccessToken())
}

/*
TestCheckRenewal_TriggersInsideThreshold verifies the background renewal
policy: no action with plenty of time left, a refresh inside the window,
and a logout at expiry.
*/
func TestCheckRenewal_TriggersInsideThreshold(t *testing.T) {
	var refreshHits int32
	server := testBackend(map[string]http.HandlerFunc{
		"/auth/login": func(writer http.ResponseWriter, request *http.Request) {
			writeEnvelope(writer, http.StatusOK, tokenData("tok-1"))
		},
		"/auth/refresh": func(writer http.ResponseWriter, request *http.Request) {
			atomic.AddInt32(&refreshHits, 1)
			writeEnvelope(writer, http.StatusOK, tokenData("tok-2"))
		},
		"/auth/logout": func(writer http.ResponseWriter, request *http.Request) {
			writeEnvelope(writer, http.StatusOK, nil)
		},
	})
	defer server.Close()

	now := time.Now()
	clock := &fakeClock{now: now}

	controller := newTestController(t, server.URL, NewMemoryStore(), Options{
		RenewalThreshold: 5 * time.Minute,
		Clock:            clock.Now,
	})
	_, err := controller.Login(context.Background(), Credentials{Email: "a@b.c", Password: "x"})
	require.NoError(t, err)

	// Far from expiry (1h lifetime): nothing happens
	controller.CheckRenewal(context.Background())
	assert.Zero(t, atomic.LoadInt32(&refreshHits))

	// Step inside the threshold: one refresh
	clock.Advance(56 * time.Minute)
	controller.CheckRenewal(context.Background())
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshHits))
	assert.Equal(t, StateAuthenticated, controller.State())

	// Step past expiry of the renewed token: logout
	clock.Advance(2 * time.Hour)
	controller.CheckRenewal(context.Background())
	assert.Equal(t, StateUnauthenticated, controller.State())
}

/*
TestCheckRenewal_OverlappingTicksAreNoOps verifies that a tick arriving
while a renewal is still in flight does nothing: exactly one backend
round trip for any number of overlapping ticks.
*/
func TestCheckRenewal_OverlappingTicksAreNoOps(t *testing.T) {
	var refreshHits int32
	entered := make(chan struct{}, 1)
	release := make(chan struct{})

	server := testBackend(map[string]http.HandlerFunc{
		"/auth/login": func(writer http.ResponseWriter, request *http.Request) {
			writeEnvelope(writer, http.StatusOK, tokenData("tok-1"))
		},
		"/auth/refresh": func(writer http.ResponseWriter, request *http.Request) {
			atomic.AddInt32(&refreshHits, 1)
			select {
			case entered <- struct{}{}:
			default:
			}
			<-release
			writeEnvelope(writer, http.StatusOK, tokenData("tok-2"))
		},
	})
	defer server.Close()

	clock := &fakeClock{now: time.Now()}
	controller := newTestController(t, server.URL, NewMemoryStore(), Options{
		RenewalThreshold: 5 * time.Minute,
		Clock:            clock.Now,
	})
	_, err := controller.Login(context.Background(), Credentials{Email: "a@b.c", Password: "x"})
	require.NoError(t, err)

	// Step inside the threshold and let the first tick start a renewal
	clock.Advance(56 * time.Minute)

	var firstDone sync.WaitGroup
	firstDone.Add(1)
	go func() {
		defer firstDone.Done()
		controller.CheckRenewal(context.Background())
	}()
	<-entered

	// Ticks while the renewal is in flight must not start another one
	controller.CheckRenewal(context.Background())
	controller.CheckRenewal(context.Background())
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshHits))

	close(release)
	firstDone.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshHits))
	assert.Equal(t, StateAuthenticated, controller.State())
	assert.Equal(t, "tok-2", controller.AccessToken())
}

/*
TestSessionExpiry_IsAbsoluteAndForward verifies that adopting a login
response yields an expiry strictly after the issue instant, derived from
the response's expiresIn.
*/
func TestSessionExpiry_IsAbsoluteAndForward(t *testing.T) {
	server := testBackend(map[string]http.HandlerFunc{
		"/auth/login": func(writer http.ResponseWriter, request *http.Request) {
			writeEnvelope(writer, http.StatusOK, tokenData("tok-1"))
		},
	})
	defer server.Close()

	now := time.Now()
	clock := &fakeClock{now: now}
	controller := newTestController(t, server.URL, NewMemoryStore(), Options{Clock: clock.Now})

	_, err := controller.Login(context.Background(), Credentials{Email: "a@b.c", Password: "x"})
	require.NoError(t, err)

	session := controller.Session()
	require.NotNil(t, session)
	assert.True(t, session.ExpiresAt.After(session.IssuedAt))
	assert.Equal(t, now.Add(time.Hour).Unix(), session.ExpiresAt.Unix())
	assert.Equal(t, time.Hour, controller.TimeRemaining())
}

/*
TestSubscribe_DeliversStateChanges verifies the typed event stream across
a login/logout cycle.
*/
func TestSubscribe_DeliversStateChanges(t *testing.T) {
	server := testBackend(map[string]http.HandlerFunc{
		"/auth/login": func(writer http.ResponseWriter, request *http.Request) {
			writeEnvelope(writer, http.StatusOK, tokenData("tok-1"))
		},
		"/auth/logout": func(writer http.ResponseWriter, request *http.Request) {
			writeEnvelope(writer, http.StatusOK, nil)
		},
	})
	defer server.Close()

	controller := newTestController(t, server.URL, NewMemoryStore(), Options{})
	events, cancel := controller.Subscribe()
	defer cancel()

	_, err := controller.Login(context.Background(), Credentials{Email: "a@b.c", Password: "x"})
	require.NoError(t, err)
	controller.Logout(context.Background())

	first := <-events
	assert.Equal(t, StateAuthenticated, first.State)
	require.NotNil(t, first.User)
	assert.Equal(t, "u-1", first.User.ID)

	second := <-events
	assert.Equal(t, StateUnauthenticated, second.State)
	assert.Nil(t, second.User)
	assert.Equal(t, "logout", second.Reason)
}

// fakeClock is a mutable time source for renewal tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
