// Package session holds the authenticated-user state of the console: login,
// logout, expiry, and role/permission lookups. State is persisted through the
// shared key-value store and survives restarts; anything malformed on load is
// treated as "no session" and cleared.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/sajagmathur/mlconsole/internal/crypto"
	"github.com/sajagmathur/mlconsole/internal/state"
)

// Backend performs remote authentication calls. All calls are best-effort
// from the store's perspective except Login, whose failure surfaces as an
// *AuthenticationError.
type Backend interface {
	Login(ctx context.Context, email, password string) (token string, user *User, err error)
	Logout(ctx context.Context) error
	Extend(ctx context.Context) error
}

// Options configures a session Store.
type Options struct {
	Backend          Backend
	Sealer           *crypto.Sealer
	TTL              time.Duration
	WarningThreshold time.Duration
	DemoLogins       bool

	// OnWarning fires once per session when remaining time drops below the
	// warning threshold. OnExpired fires when the deadline passes; the store
	// has already logged out by then.
	OnWarning func(remaining time.Duration)
	OnExpired func(err *SessionExpiredError)
}

// Store owns the session state. Exactly one instance exists per running
// console; all session reads and writes go through it.
type Store struct {
	mu      sync.Mutex
	kv      *state.Store
	backend Backend
	sealer  *crypto.Sealer

	ttl      time.Duration
	warnIn   time.Duration
	demo     bool
	now      func() time.Time
	timer    *time.Timer
	closed   bool

	user      *User
	token     string
	issuedAt  time.Time
	expiresAt time.Time
	warned    bool
	lastErr   error

	onWarning func(time.Duration)
	onExpired func(*SessionExpiredError)
}

// New creates a session store. Call Load before use.
func New(kv *state.Store, opts Options) *Store {
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.WarningThreshold <= 0 {
		opts.WarningThreshold = time.Hour
	}
	return &Store{
		kv:        kv,
		backend:   opts.Backend,
		sealer:    opts.Sealer,
		ttl:       opts.TTL,
		warnIn:    opts.WarningThreshold,
		demo:      opts.DemoLogins,
		now:       time.Now,
		onWarning: opts.OnWarning,
		onExpired: opts.OnExpired,
	}
}

// Load restores the persisted session. An expired or malformed session is
// self-healing: storage is cleared and the store comes up logged out. Load
// never reports corruption as an error.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok, err := s.kv.Get(state.KeySessionTimeout)
	if err != nil {
		return fmt.Errorf("loading session deadline: %w", err)
	}
	if !ok {
		return s.clearLocked()
	}

	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return s.clearLocked()
	}
	expiresAt := time.UnixMilli(millis)
	if !s.now().Before(expiresAt) {
		return s.clearLocked()
	}

	sealed, ok, err := s.kv.Get(state.KeyToken)
	if err != nil {
		return fmt.Errorf("loading token: %w", err)
	}
	if !ok {
		return s.clearLocked()
	}
	token, err := s.sealer.Open(sealed)
	if err != nil {
		return s.clearLocked()
	}

	var u User
	ok, err = s.kv.GetJSON(state.KeyUser, &u)
	if err != nil {
		return fmt.Errorf("loading user: %w", err)
	}
	if !ok || u.Email == "" {
		return s.clearLocked()
	}

	warned := false
	if v, ok, _ := s.kv.Get(state.KeySessionWarning); ok {
		warned = v == "1"
	}

	s.user = &u
	s.token = token
	s.expiresAt = expiresAt
	s.issuedAt = expiresAt.Add(-s.ttl)
	s.warned = warned
	s.scheduleLocked()
	return nil
}

// Login authenticates email/password against the demo credential table (when
// enabled) or the remote backend. On failure nothing is persisted and the
// call returns an *AuthenticationError.
func (s *Store) Login(ctx context.Context, email, password string) (*User, error) {
	var (
		token string
		user  *User
	)

	if s.demo {
		if u, ok := lookupDemoUser(email, password); ok {
			t, err := demoToken()
			if err != nil {
				return nil, s.fail(&AuthenticationError{Reason: "generating token", Err: err})
			}
			token, user = t, u
		}
	}

	if user == nil {
		if s.backend == nil {
			return nil, s.fail(&AuthenticationError{Reason: "invalid email or password"})
		}
		t, u, err := s.backend.Login(ctx, email, password)
		if err != nil {
			if ae, ok := err.(*AuthenticationError); ok {
				return nil, s.fail(ae)
			}
			return nil, s.fail(&AuthenticationError{Reason: "backend unreachable", Err: err})
		}
		token, user = t, u
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.user = user
	s.token = token
	s.issuedAt = now
	s.expiresAt = now.Add(s.ttl)
	s.warned = false
	s.lastErr = nil

	if err := s.persistLocked(); err != nil {
		return nil, fmt.Errorf("persisting session: %w", err)
	}
	s.scheduleLocked()

	slog.Info("logged in", "email", user.Email, "role", user.Role, "expires_at", s.expiresAt)
	u := *user
	return &u, nil
}

// Logout invalidates the remote session best-effort and clears all stored
// session fields unconditionally. It cannot fail from the caller's view.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	hadSession := s.user != nil
	backend := s.backend
	s.mu.Unlock()

	if hadSession && backend != nil {
		if err := backend.Logout(ctx); err != nil {
			slog.Warn("remote logout failed", "error", err)
		}
	}

	s.mu.Lock()
	_ = s.clearLocked()
	s.mu.Unlock()
}

// Extend resets the expiry to now + TTL and clears any pending warning. It is
// a no-op when no session exists.
func (s *Store) Extend(ctx context.Context) error {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return nil
	}
	backend := s.backend
	s.mu.Unlock()

	if backend != nil {
		if err := backend.Extend(ctx); err != nil {
			slog.Warn("remote session extend failed", "error", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		// A logout raced the extend; stay logged out.
		return nil
	}
	s.expiresAt = s.now().Add(s.ttl)
	s.warned = false
	if err := s.persistLocked(); err != nil {
		return fmt.Errorf("persisting extended session: %w", err)
	}
	s.scheduleLocked()
	return nil
}

// HasRole reports whether the current user holds the given role.
func (s *Store) HasRole(role Role) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil && s.user.Role == role
}

// HasPermission reports whether the current user's role grants perm. Admin
// implicitly holds every permission.
func (s *Store) HasPermission(perm Permission) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return false
	}
	if s.user.Role == RoleAdmin {
		return true
	}
	for _, p := range rolePermissions[s.user.Role] {
		if p == perm {
			return true
		}
	}
	return false
}

// User returns a copy of the current user, or nil when logged out.
func (s *Store) User() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Token returns the current bearer token, or "" when logged out.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// ExpiresAt returns the session deadline (zero when logged out).
func (s *Store) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

// Err returns the error recorded by the last failed Login.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Invalidate clears the session without contacting the backend. Used when a
// request comes back 401: the token is dead, keeping it would loop.
func (s *Store) Invalidate() {
	s.mu.Lock()
	_ = s.clearLocked()
	s.mu.Unlock()
}

// Check compares the current time to the session deadline and fires the
// warning or expiry transitions. It is level-triggered and idempotent: calling
// it any number of times in any state is safe. The expiry timer lands here,
// but callers may invoke it directly too.
func (s *Store) Check() {
	s.mu.Lock()
	if s.user == nil || s.closed {
		s.mu.Unlock()
		return
	}

	now := s.now()
	remaining := s.expiresAt.Sub(now)

	if remaining <= 0 {
		expErr := &SessionExpiredError{ExpiredAt: s.expiresAt}
		_ = s.clearLocked()
		cb := s.onExpired
		s.mu.Unlock()
		slog.Info("session expired, forced logout", "expired_at", expErr.ExpiredAt)
		if cb != nil {
			cb(expErr)
		}
		return
	}

	if remaining <= s.warnIn && !s.warned {
		s.warned = true
		_ = s.kv.Put(state.KeySessionWarning, "1")
		cb := s.onWarning
		s.scheduleLocked()
		s.mu.Unlock()
		if cb != nil {
			cb(remaining)
		}
		return
	}

	s.scheduleLocked()
	s.mu.Unlock()
}

// Close stops the expiry timer. The store must not be used afterwards.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Store) fail(err *AuthenticationError) error {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	return err
}

// scheduleLocked arms a single wake-up computed from the deadline: first at
// the warning threshold, then at expiry. Must be called with s.mu held.
func (s *Store) scheduleLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.user == nil || s.closed {
		return
	}

	now := s.now()
	wake := s.expiresAt
	if warnAt := s.expiresAt.Add(-s.warnIn); !s.warned && now.Before(warnAt) {
		wake = warnAt
	}

	d := wake.Sub(now)
	if d < 0 {
		d = 0
	}
	s.timer = time.AfterFunc(d, s.Check)
}

// persistLocked writes the whole session to storage. Must be called with
// s.mu held.
func (s *Store) persistLocked() error {
	sealed, err := s.sealer.Seal(s.token)
	if err != nil {
		return fmt.Errorf("sealing token: %w", err)
	}
	if err := s.kv.Put(state.KeyToken, sealed); err != nil {
		return err
	}
	if err := s.kv.PutJSON(state.KeyUser, s.user); err != nil {
		return err
	}
	if err := s.kv.Put(state.KeySessionTimeout, strconv.FormatInt(s.expiresAt.UnixMilli(), 10)); err != nil {
		return err
	}
	if s.warned {
		return s.kv.Put(state.KeySessionWarning, "1")
	}
	return s.kv.Delete(state.KeySessionWarning)
}

// clearLocked zeroes the in-memory session and removes the four session keys
// from storage. Clearing is idempotent. Must be called with s.mu held.
func (s *Store) clearLocked() error {
	s.user = nil
	s.token = ""
	s.issuedAt = time.Time{}
	s.expiresAt = time.Time{}
	s.warned = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	return s.kv.Delete(
		state.KeyToken,
		state.KeyUser,
		state.KeySessionTimeout,
		state.KeySessionWarning,
	)
}

// demoToken builds an opaque demo token: "demo-token-" + 32 hex chars.
func demoToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating random bytes: %w", err)
	}
	return "demo-token-" + hex.EncodeToString(b), nil
}
