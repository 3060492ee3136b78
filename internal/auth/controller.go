// Copyright (c) 2026 RoadRW. All rights reserved.

package auth

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roadrw/consolekit/internal/platform/apperr"
	"github.com/roadrw/consolekit/internal/platform/constants"
	"github.com/roadrw/consolekit/internal/platform/restclient"
	"github.com/roadrw/consolekit/pkg/expiry"
)

// # Session State Machine

// State is the controller's authentication state.
//
// Transitions:
//
//	Unknown ──Initialize──▶ Authenticated | Unauthenticated
//	Unauthenticated ──Login/Register──▶ Authenticated
//	Authenticated ──Logout/refresh rejection/expiry──▶ Unauthenticated
type State int

const (
	// StateUnknown holds from process start until Initialize resolves.
	// Route guards must wait it out rather than racing ahead.
	StateUnknown State = iota

	// StateAuthenticated means a valid, verified session is present.
	StateAuthenticated

	// StateUnauthenticated means no valid session exists.
	StateUnauthenticated
)

// String returns the lowercase state name for logs and status payloads.
func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Event is the typed state-change notification delivered to subscribers.
// It replaces the ad hoc browser-global events of the old console with an
// explicit subscription surface.
type Event struct {
	State  State
	User   *User
	Reason string
}

// # Controller

// Options configures a [Controller].
type Options struct {
	// RenewalThreshold is how close to expiry the background loop renews
	// preemptively. Defaults to [constants.DefaultRenewalThreshold].
	RenewalThreshold time.Duration

	// RenewalInterval is the background check cadence.
	// Defaults to [constants.DefaultRenewalInterval].
	RenewalInterval time.Duration

	// Clock overrides the time source. Defaults to [time.Now].
	Clock func() time.Time
}

// Controller owns the session and is the only component that mutates it.
//
// # Concurrency
//
// All state is guarded by one mutex. Refresh is single-flight: concurrent
// callers (401 handlers, the renewal loop, route guards) share one
// in-flight attempt and observe its outcome.
type Controller struct {
	store  CredentialStore
	client *restclient.Client
	log    *slog.Logger

	renewalThreshold time.Duration
	renewalInterval  time.Duration
	now              func() time.Time

	mu           sync.Mutex
	state        State
	session      *Session
	lastActivity time.Time
	subscribers  map[int]chan Event
	nextSubID    int

	// refreshDone is non-nil while a refresh is in flight; waiters block
	// on it and then read refreshOutcome.
	refreshDone    chan struct{}
	refreshOutcome restclient.RefreshOutcome

	// renewing makes background renewal ticks idempotent.
	renewing atomic.Bool

	initOnce sync.Once
	ready    chan struct{}
}

// NewController wires a controller to its store and REST client.
//
// The caller must also bind the controller to the client afterwards
// (client.BindTokens) so 401 handling can reach the refresh logic.
func NewController(store CredentialStore, client *restclient.Client, log *slog.Logger, opts Options) *Controller {
	if opts.RenewalThreshold <= 0 {
		opts.RenewalThreshold = constants.DefaultRenewalThreshold
	}
	if opts.RenewalInterval <= 0 {
		opts.RenewalInterval = constants.DefaultRenewalInterval
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if log == nil {
		log = slog.Default()
	}

	return &Controller{
		store:            store,
		client:           client,
		log:              log,
		renewalThreshold: opts.RenewalThreshold,
		renewalInterval:  opts.RenewalInterval,
		now:              opts.Clock,
		state:            StateUnknown,
		subscribers:      make(map[int]chan Event),
		ready:            make(chan struct{}),
	}
}

// # Startup

// Initialize reconstructs the session from the credential store and
// validates it against the backend. It runs once per process lifetime and
// always resolves — a dead network counts as verification failure, which
// triggers the one refresh attempt, whose failure resolves to
// Unauthenticated instead of blocking.
func (c *Controller) Initialize(ctx context.Context) {
	c.initOnce.Do(func() {
		defer close(c.ready)
		c.initialize(ctx)
	})
}

func (c *Controller) initialize(ctx context.Context) {
	stored, err := c.store.Load(ctx)
	if err != nil {
		c.log.Warn("session_store_load_failed", slog.Any("error", err))
	}
	if stored == nil || !stored.Complete() {
		c.setState(StateUnauthenticated, nil, "no_stored_session")
		return
	}

	// Adopt the stored session so the verify call carries its token.
	c.mu.Lock()
	c.session = stored
	c.mu.Unlock()

	// An expired session with no refresh token cannot be revived; skip
	// the network entirely.
	if stored.Expired(c.now()) && stored.RefreshToken == "" {
		c.clearSession(ctx, "expired_without_refresh_token")
		return
	}

	_, err = c.client.Do(ctx, restclient.Request{
		Method:      http.MethodGet,
		Path:        "/auth/verify",
		NoAuthRetry: true,
	})
	if err == nil {
		c.log.Info("session_restored", slog.String("user_id", stored.User.ID))
		c.setState(StateAuthenticated, stored.User, "verified")
		return
	}

	// Verification failed (explicit 401 or network trouble): exactly one
	// refresh attempt decides the outcome. A session that cannot be proven
	// at startup is not kept.
	if c.Refresh(ctx) == restclient.RefreshRenewed {
		return
	}
	c.clearSession(ctx, "initialize_refresh_failed")
}

// Ready returns a channel closed once Initialize has resolved.
func (c *Controller) Ready() <-chan struct{} { return c.ready }

// WaitReady blocks until Initialize resolves or ctx is done.
func (c *Controller) WaitReady(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// # Authentication Operations

// Credentials are the login form fields.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterInput enrolls a new console account.
type RegisterInput struct {
	Name     string `json:"nome"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionPayload is the backend's token-issuing response shape, shared by
// login, register, and refresh.
type sessionPayload struct {
	Token        string           `json:"token"`
	RefreshToken string           `json:"refreshToken"`
	User         *User            `json:"user"`
	ExpiresIn    expiry.ExpiresIn `json:"expiresIn"`
}

// Login authenticates against the backend and establishes the session.
//
// # Error Mapping
//
//	401 → INVALID_CREDENTIALS
//	423 → ACCOUNT_LOCKED
//	429 → RATE_LIMITED
//	no response → NETWORK_ERROR (an existing session is left untouched)
//	anything else → surfaced with the backend message
func (c *Controller) Login(ctx context.Context, credentials Credentials) (*User, error) {
	var payload sessionPayload
	err := c.client.DoJSON(ctx, restclient.Request{
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Body:        credentials,
		NoAuthRetry: true,
	}, &payload)
	if err != nil {
		return nil, translateLoginErr(err)
	}

	session, adoptErr := c.adopt(ctx, payload, "login")
	if adoptErr != nil {
		return nil, adoptErr
	}
	return session.User, nil
}

// Register creates an account and establishes the session, mirroring the
// login flow. Validation failures carry field-level details.
func (c *Controller) Register(ctx context.Context, input RegisterInput) (*User, error) {
	var payload sessionPayload
	err := c.client.DoJSON(ctx, restclient.Request{
		Method:      http.MethodPost,
		Path:        "/auth/register",
		Body:        input,
		NoAuthRetry: true,
	}, &payload)
	if err != nil {
		if ae := apperr.As(err); ae != nil && ae.HTTPStatus == http.StatusConflict {
			return nil, apperr.Conflict("Email is already registered")
		}
		return nil, err
	}

	session, adoptErr := c.adopt(ctx, payload, "register")
	if adoptErr != nil {
		return nil, adoptErr
	}
	return session.User, nil
}

// Logout notifies the backend best-effort, then unconditionally clears the
// local session. It never fails from the caller's perspective and is
// idempotent.
func (c *Controller) Logout(ctx context.Context) {
	c.mu.Lock()
	refreshToken := ""
	if c.session != nil {
		refreshToken = c.session.RefreshToken
	}
	c.mu.Unlock()

	if refreshToken != "" {
		notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.LogoutNotifyTimeout)
		defer cancel()

		_, err := c.client.Do(notifyCtx, restclient.Request{
			Method:      http.MethodPost,
			Path:        "/auth/logout",
			Body:        map[string]string{"refreshToken": refreshToken},
			NoAuthRetry: true,
		})
		if err != nil {
			// Best effort only. The local session is cleared regardless.
			c.log.Debug("logout_notify_failed", slog.Any("error", err))
		}
	}

	c.clearSession(ctx, "logout")
}

// # Silent Refresh

// Refresh renews the access token using the stored refresh token.
//
// # Single Flight
//
// Concurrent callers share one in-flight attempt: the first caller issues
// the backend call, the rest block until it settles and adopt its result.
// This prevents refresh-token races when several requests hit 401 at once.
//
// # Failure Policy
//
// An explicit backend rejection clears the session — the token is dead —
// and reports [restclient.RefreshRejected]. A transient network error (or
// a canceled waiter context) reports [restclient.RefreshTransient] and
// retains the session, so an operator is not logged out because the
// network blipped; the next check simply tries again.
func (c *Controller) Refresh(ctx context.Context) restclient.RefreshOutcome {
	c.mu.Lock()
	if c.refreshDone != nil {
		done := c.refreshDone
		c.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			// The waiter gave up, not the refresh. No verdict for them.
			return restclient.RefreshTransient
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		return c.refreshOutcome
	}

	done := make(chan struct{})
	c.refreshDone = done
	c.mu.Unlock()

	outcome := c.refresh(ctx)

	c.mu.Lock()
	c.refreshOutcome = outcome
	c.refreshDone = nil
	c.mu.Unlock()
	close(done)

	return outcome
}

// refresh performs the actual renewal round trip.
func (c *Controller) refresh(ctx context.Context) restclient.RefreshOutcome {
	c.mu.Lock()
	refreshToken := ""
	if c.session != nil {
		refreshToken = c.session.RefreshToken
	}
	c.mu.Unlock()

	if refreshToken == "" {
		return restclient.RefreshRejected
	}

	var payload sessionPayload
	err := c.client.DoJSON(ctx, restclient.Request{
		Method:      http.MethodPost,
		Path:        "/auth/refresh",
		Body:        map[string]string{"refreshToken": refreshToken},
		NoAuthRetry: true,
	}, &payload)
	if err != nil {
		if apperr.IsNetwork(err) {
			// Transient: keep the cached session until the next check.
			c.log.Warn("session_refresh_network_error", slog.Any("error", err))
			return restclient.RefreshTransient
		}
		c.log.Info("session_refresh_rejected", slog.Any("error", err))
		c.clearSession(ctx, "refresh_rejected")
		return restclient.RefreshRejected
	}

	// The backend may rotate the refresh token or keep the old one.
	if payload.RefreshToken == "" {
		payload.RefreshToken = refreshToken
	}

	if _, err := c.adopt(ctx, payload, "refresh"); err != nil {
		// A malformed renewal response is not a verdict on the old token.
		c.log.Error("session_refresh_adopt_failed", slog.Any("error", err))
		return restclient.RefreshTransient
	}
	return restclient.RefreshRenewed
}

// adopt swaps the new token pair and profile in atomically, persists the
// durable mirror, and transitions to Authenticated.
func (c *Controller) adopt(ctx context.Context, payload sessionPayload, reason string) (*Session, error) {
	now := c.now()

	expiresAt := expiry.Compute(now, payload.ExpiresIn)
	if payload.ExpiresIn.IsZero() {
		// No lifetime in the response: fall back to the token's own exp
		// claim before assuming the default.
		if claimExpiry, ok := tokenExpiry(payload.Token); ok {
			expiresAt = claimExpiry
		}
	}

	session := &Session{
		AccessToken:  payload.Token,
		RefreshToken: payload.RefreshToken,
		User:         payload.User,
		IssuedAt:     now,
		ExpiresAt:    expiresAt,
	}
	if !session.Complete() {
		// A token without a user (or vice versa) is not a session.
		return nil, apperr.Wrap("BAD_RESPONSE", "Incomplete session in server response", nil)
	}

	c.mu.Lock()
	c.session = session
	c.lastActivity = now
	c.mu.Unlock()

	if err := c.store.Save(ctx, session); err != nil {
		// The in-memory session is valid; a persistence failure only
		// costs durability across restarts.
		c.log.Error("session_store_save_failed", slog.Any("error", err))
	}

	c.setState(StateAuthenticated, session.User, reason)
	return session, nil
}

// clearSession destroys local session state: store and memory together,
// never partially.
func (c *Controller) clearSession(ctx context.Context, reason string) {
	if err := c.store.Clear(ctx); err != nil {
		c.log.Error("session_store_clear_failed", slog.Any("error", err))
	}

	c.mu.Lock()
	c.session = nil
	c.lastActivity = time.Time{}
	c.mu.Unlock()

	c.setState(StateUnauthenticated, nil, reason)
}

// # Background Renewal

// RunRenewal drives the periodic expiry check until ctx is canceled.
// It is started once from main, alongside the HTTP server.
func (c *Controller) RunRenewal(ctx context.Context) {
	ticker := time.NewTicker(c.renewalInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.CheckRenewal(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// CheckRenewal performs one renewal tick.
//
// Within the threshold window it triggers a preemptive refresh; at zero
// remaining it logs the session out. Ticks are idempotent: if a renewal is
// already in flight, the tick is a no-op.
func (c *Controller) CheckRenewal(ctx context.Context) {
	c.mu.Lock()
	if c.state != StateAuthenticated || c.session == nil {
		c.mu.Unlock()
		return
	}
	remaining := c.session.Remaining(c.now())
	c.mu.Unlock()

	if remaining <= 0 {
		c.log.Info("session_expired")
		c.Logout(ctx)
		return
	}
	if remaining >= c.renewalThreshold {
		return
	}

	if !c.renewing.CompareAndSwap(false, true) {
		return
	}
	defer c.renewing.Store(false)

	c.log.Debug("session_renewal_triggered", slog.Duration("remaining", remaining))
	c.Refresh(ctx)
}

// # Password & Profile Operations

// ForgotPassword requests a password recovery email.
func (c *Controller) ForgotPassword(ctx context.Context, email string) error {
	_, err := c.client.Do(ctx, restclient.Request{
		Method:      http.MethodPost,
		Path:        "/auth/forgot-password",
		Body:        map[string]string{"email": email},
		NoAuthRetry: true,
	})
	return err
}

// ResetPassword redeems a recovery token for a new password.
func (c *Controller) ResetPassword(ctx context.Context, token, newPassword string) error {
	_, err := c.client.Do(ctx, restclient.Request{
		Method:      http.MethodPost,
		Path:        "/auth/reset-password",
		Body:        map[string]string{"token": token, "newPassword": newPassword},
		NoAuthRetry: true,
	})
	if err != nil {
		if ae := apperr.As(err); ae != nil && ae.HTTPStatus == http.StatusBadRequest {
			return apperr.InvalidRefreshToken()
		}
	}
	return err
}

// ChangePassword changes the authenticated account's password.
func (c *Controller) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	_, err := c.client.Do(ctx, restclient.Request{
		Method: http.MethodPost,
		Path:   "/auth/change-password",
		Body: map[string]string{
			"currentPassword": currentPassword,
			"newPassword":     newPassword,
		},
	})
	return err
}

// RefreshProfile fetches the current profile and replaces the session's
// user wholesale.
func (c *Controller) RefreshProfile(ctx context.Context) (*User, error) {
	var payload struct {
		User *User `json:"user"`
	}
	if err := c.client.DoJSON(ctx, restclient.Request{
		Method: http.MethodGet,
		Path:   "/auth/profile",
	}, &payload); err != nil {
		return nil, err
	}
	if payload.User == nil || payload.User.ID == "" {
		return nil, apperr.Wrap("BAD_RESPONSE", "Profile missing from server response", nil)
	}

	c.mu.Lock()
	var session *Session
	if c.session != nil {
		c.session.User = payload.User
		session = c.session.clone()
	}
	c.mu.Unlock()

	if session != nil {
		if err := c.store.Save(ctx, session); err != nil {
			c.log.Error("session_store_save_failed", slog.Any("error", err))
		}
	}
	return payload.User, nil
}

// # Accessors

// State returns the current controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CurrentUser returns the authenticated principal, or nil.
func (c *Controller) CurrentUser() *User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	return c.session.clone().User
}

// Session returns a copy of the current session, or nil.
func (c *Controller) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.clone()
}

// AccessToken implements [restclient.TokenSource].
func (c *Controller) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.AccessToken
}

// AuthFailed implements [restclient.TokenSource]: a definitive 401 after
// the one-shot retry destroys the session.
func (c *Controller) AuthFailed(ctx context.Context) {
	c.clearSession(ctx, "auth_failed")
}

// TimeRemaining returns how long the session stays valid, zero when absent.
func (c *Controller) TimeRemaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Remaining(c.now())
}

// ExpiringSoon reports whether the session is inside the renewal window.
func (c *Controller) ExpiringSoon() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return false
	}
	remaining := c.session.Remaining(c.now())
	return remaining > 0 && remaining < c.renewalThreshold
}

// SessionExpiry returns the absolute expiry instant, zero when absent.
func (c *Controller) SessionExpiry() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return time.Time{}
	}
	return c.session.ExpiresAt
}

// # Activity Tracking

// RecordActivity stamps the last-interaction time. Informational only:
// expiry is governed solely by the token's server-issued lifetime.
func (c *Controller) RecordActivity() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateAuthenticated {
		c.lastActivity = c.now()
	}
}

// LastActivity returns the last recorded interaction time (zero when
// unauthenticated).
func (c *Controller) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

// # State Notification

// Subscribe registers for state-change events. The returned cancel
// function removes the subscription and closes the channel.
func (c *Controller) Subscribe() (<-chan Event, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSubID
	c.nextSubID++
	events := make(chan Event, 8)
	c.subscribers[id] = events

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if ch, ok := c.subscribers[id]; ok {
			delete(c.subscribers, id)
			close(ch)
		}
	}
	return events, cancel
}

// setState transitions the machine and fans the event out. Slow
// subscribers drop events rather than blocking the controller.
func (c *Controller) setState(state State, user *User, reason string) {
	c.mu.Lock()
	c.state = state
	event := Event{State: state, User: user, Reason: reason}
	channels := make([]chan Event, 0, len(c.subscribers))
	for _, ch := range c.subscribers {
		channels = append(channels, ch)
	}
	c.mu.Unlock()

	c.log.Info("session_state_changed",
		slog.String("state", state.String()),
		slog.String("reason", reason),
	)

	for _, ch := range channels {
		select {
		case ch <- event:
		default:
		}
	}
}

// translateLoginErr maps raw backend failures to the login taxonomy.
func translateLoginErr(err error) error {
	ae := apperr.As(err)
	if ae == nil {
		return err
	}
	switch ae.HTTPStatus {
	case http.StatusUnauthorized:
		return apperr.InvalidCredentials()
	case http.StatusLocked:
		return apperr.AccountLocked()
	default:
		return err
	}
}
