package session

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sajagmathur/mlconsole/internal/state"
)

func openTestKV(t *testing.T) *state.Store {
	t.Helper()
	kv, err := state.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("opening state store: %v", err)
	}
	t.Cleanup(func() { kv.Close() })
	return kv
}

func newTestStore(t *testing.T, kv *state.Store, opts Options) *Store {
	t.Helper()
	if opts.TTL == 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.WarningThreshold == 0 {
		opts.WarningThreshold = time.Hour
	}
	s := New(kv, opts)
	t.Cleanup(s.Close)
	return s
}

type fakeBackend struct {
	loginFn  func(email, password string) (string, *User, error)
	logoutFn func() error
	extendFn func() error
}

func (f *fakeBackend) Login(_ context.Context, email, password string) (string, *User, error) {
	if f.loginFn == nil {
		return "", nil, &AuthenticationError{Reason: "invalid email or password"}
	}
	return f.loginFn(email, password)
}

func (f *fakeBackend) Logout(context.Context) error {
	if f.logoutFn == nil {
		return nil
	}
	return f.logoutFn()
}

func (f *fakeBackend) Extend(context.Context) error {
	if f.extendFn == nil {
		return nil
	}
	return f.extendFn()
}

func TestDemoLoginSucceeds(t *testing.T) {
	kv := openTestKV(t)
	s := newTestStore(t, kv, Options{DemoLogins: true})

	u, err := s.Login(context.Background(), "demo@mlmonitoring.com", "demo123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if u.Role != RoleAdmin {
		t.Errorf("expected admin role, got %s", u.Role)
	}
	if !strings.HasPrefix(s.Token(), "demo-token-") {
		t.Errorf("expected demo-token- prefix, got %q", s.Token())
	}

	// The session must be persisted.
	for _, key := range []string{state.KeyToken, state.KeyUser, state.KeySessionTimeout} {
		if _, ok, _ := kv.Get(key); !ok {
			t.Errorf("expected key %q persisted", key)
		}
	}
}

func TestDemoLoginWrongPassword(t *testing.T) {
	kv := openTestKV(t)
	s := newTestStore(t, kv, Options{DemoLogins: true})

	_, err := s.Login(context.Background(), "demo@mlmonitoring.com", "nope")
	var ae *AuthenticationError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AuthenticationError, got %v", err)
	}
	if s.User() != nil {
		t.Error("expected no user after failed login")
	}
	if s.Err() == nil {
		t.Error("expected Err() to report the failure")
	}

	// Nothing may be persisted on failure.
	for _, key := range []string{state.KeyToken, state.KeyUser, state.KeySessionTimeout} {
		if _, ok, _ := kv.Get(key); ok {
			t.Errorf("key %q must not be written on failed login", key)
		}
	}
}

func TestDemoLoginDisabled(t *testing.T) {
	kv := openTestKV(t)
	s := newTestStore(t, kv, Options{DemoLogins: false})

	_, err := s.Login(context.Background(), "demo@mlmonitoring.com", "demo123")
	var ae *AuthenticationError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AuthenticationError with demo logins off, got %v", err)
	}
}

func TestRemoteLogin(t *testing.T) {
	kv := openTestKV(t)
	backend := &fakeBackend{
		loginFn: func(email, password string) (string, *User, error) {
			if password != "right" {
				return "", nil, &AuthenticationError{Reason: "invalid email or password"}
			}
			return "srv-token", &User{ID: "u1", Email: email, Name: "U", Role: RoleMLEngineer}, nil
		},
	}
	s := newTestStore(t, kv, Options{Backend: backend})

	if _, err := s.Login(context.Background(), "x@y.com", "wrong"); err == nil {
		t.Fatal("expected failure")
	}

	u, err := s.Login(context.Background(), "x@y.com", "right")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if u.Role != RoleMLEngineer || s.Token() != "srv-token" {
		t.Errorf("unexpected session: role=%s token=%s", u.Role, s.Token())
	}
}

func TestUnreachableBackendIsAuthError(t *testing.T) {
	kv := openTestKV(t)
	backend := &fakeBackend{
		loginFn: func(string, string) (string, *User, error) {
			return "", nil, errors.New("dial tcp: connection refused")
		},
	}
	s := newTestStore(t, kv, Options{Backend: backend})

	_, err := s.Login(context.Background(), "x@y.com", "pw")
	var ae *AuthenticationError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AuthenticationError for unreachable backend, got %v", err)
	}
}

func TestExpiredSessionClearedOnLoad(t *testing.T) {
	kv := openTestKV(t)

	past := time.Now().Add(-time.Minute).UnixMilli()
	mustPut(t, kv, state.KeyToken, "stale-token")
	mustPut(t, kv, state.KeyUser, `{"id":"u1","email":"x@y.com","role":"viewer"}`)
	mustPut(t, kv, state.KeySessionTimeout, strconv.FormatInt(past, 10))
	mustPut(t, kv, state.KeySessionWarning, "1")

	s := newTestStore(t, kv, Options{})
	if err := s.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if s.User() != nil || s.Token() != "" {
		t.Error("expected logged-out store after expired load")
	}
	for _, key := range []string{state.KeyToken, state.KeyUser, state.KeySessionTimeout, state.KeySessionWarning} {
		if _, ok, _ := kv.Get(key); ok {
			t.Errorf("expected key %q cleared", key)
		}
	}
}

func TestMalformedSessionSelfHeals(t *testing.T) {
	kv := openTestKV(t)

	future := time.Now().Add(time.Hour).UnixMilli()
	mustPut(t, kv, state.KeyToken, "tok")
	mustPut(t, kv, state.KeyUser, "{corrupt")
	mustPut(t, kv, state.KeySessionTimeout, strconv.FormatInt(future, 10))

	s := newTestStore(t, kv, Options{})
	if err := s.Load(); err != nil {
		t.Fatalf("Load must not surface corruption: %v", err)
	}
	if s.User() != nil {
		t.Error("expected no session from corrupt user record")
	}
	if _, ok, _ := kv.Get(state.KeyToken); ok {
		t.Error("expected token cleared alongside corrupt user")
	}
}

func TestGarbageTimeoutSelfHeals(t *testing.T) {
	kv := openTestKV(t)
	mustPut(t, kv, state.KeySessionTimeout, "not-a-number")

	s := newTestStore(t, kv, Options{})
	if err := s.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, ok, _ := kv.Get(state.KeySessionTimeout); ok {
		t.Error("expected garbage deadline cleared")
	}
}

func TestLoadRoundTrip(t *testing.T) {
	kv := openTestKV(t)
	s := newTestStore(t, kv, Options{DemoLogins: true})

	if _, err := s.Login(context.Background(), "engineer@mlmonitoring.com", "engineer123"); err != nil {
		t.Fatal(err)
	}
	token := s.Token()
	s.Close()

	s2 := newTestStore(t, kv, Options{DemoLogins: true})
	if err := s2.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	u := s2.User()
	if u == nil || u.Email != "engineer@mlmonitoring.com" || u.Role != RoleMLEngineer {
		t.Fatalf("unexpected restored user: %+v", u)
	}
	if s2.Token() != token {
		t.Errorf("expected restored token %q, got %q", token, s2.Token())
	}
}

func TestExtendMovesDeadlineForward(t *testing.T) {
	kv := openTestKV(t)
	s := newTestStore(t, kv, Options{DemoLogins: true})

	if _, err := s.Login(context.Background(), "demo@mlmonitoring.com", "demo123"); err != nil {
		t.Fatal(err)
	}
	before := s.ExpiresAt()

	// Pretend time has moved on, then extend.
	s.mu.Lock()
	base := s.now()
	s.now = func() time.Time { return base.Add(2 * time.Hour) }
	s.warned = true
	s.mu.Unlock()

	if err := s.Extend(context.Background()); err != nil {
		t.Fatalf("Extend failed: %v", err)
	}
	if !s.ExpiresAt().After(before) {
		t.Error("expected deadline strictly after previous one")
	}

	s.mu.Lock()
	warned := s.warned
	s.mu.Unlock()
	if warned {
		t.Error("expected warning latch cleared by Extend")
	}
}

func TestExtendLoggedOutIsNoop(t *testing.T) {
	kv := openTestKV(t)
	s := newTestStore(t, kv, Options{})

	if err := s.Extend(context.Background()); err != nil {
		t.Fatalf("Extend on logged-out store must be a no-op: %v", err)
	}
	if _, ok, _ := kv.Get(state.KeySessionTimeout); ok {
		t.Error("no deadline may be written while logged out")
	}
}

func TestCheckWarnsOnce(t *testing.T) {
	kv := openTestKV(t)

	var mu sync.Mutex
	warnings := 0
	s := newTestStore(t, kv, Options{
		DemoLogins:       true,
		TTL:              24 * time.Hour,
		WarningThreshold: time.Hour,
		OnWarning: func(time.Duration) {
			mu.Lock()
			warnings++
			mu.Unlock()
		},
	})

	if _, err := s.Login(context.Background(), "demo@mlmonitoring.com", "demo123"); err != nil {
		t.Fatal(err)
	}

	s.mu.Lock()
	base := s.now()
	s.now = func() time.Time { return base.Add(23*time.Hour + 30*time.Minute) }
	s.mu.Unlock()

	// Level-triggered: repeated checks raise the warning exactly once.
	s.Check()
	s.Check()
	s.Check()

	mu.Lock()
	defer mu.Unlock()
	if warnings != 1 {
		t.Errorf("expected exactly one warning, got %d", warnings)
	}
	if s.User() == nil {
		t.Error("warning must not log the user out")
	}
}

func TestCheckExpiresAndForcesLogout(t *testing.T) {
	kv := openTestKV(t)

	var mu sync.Mutex
	expirations := 0
	s := newTestStore(t, kv, Options{
		DemoLogins: true,
		OnExpired: func(err *SessionExpiredError) {
			mu.Lock()
			expirations++
			mu.Unlock()
			if err == nil {
				t.Error("expected SessionExpiredError")
			}
		},
	})

	if _, err := s.Login(context.Background(), "demo@mlmonitoring.com", "demo123"); err != nil {
		t.Fatal(err)
	}

	s.mu.Lock()
	base := s.now()
	s.now = func() time.Time { return base.Add(25 * time.Hour) }
	s.mu.Unlock()

	s.Check()
	s.Check() // idempotent: already logged out

	mu.Lock()
	defer mu.Unlock()
	if expirations != 1 {
		t.Errorf("expected exactly one expiry callback, got %d", expirations)
	}
	if s.User() != nil || s.Token() != "" {
		t.Error("expected forced logout")
	}
	if _, ok, _ := kv.Get(state.KeyToken); ok {
		t.Error("expected persisted token cleared on expiry")
	}
}

func TestLogoutAlwaysClears(t *testing.T) {
	kv := openTestKV(t)
	backend := &fakeBackend{
		loginFn: func(email, _ string) (string, *User, error) {
			return "tok", &User{ID: "u1", Email: email, Role: RoleViewer}, nil
		},
		logoutFn: func() error { return errors.New("backend down") },
	}
	s := newTestStore(t, kv, Options{Backend: backend})

	if _, err := s.Login(context.Background(), "x@y.com", "pw"); err != nil {
		t.Fatal(err)
	}

	s.Logout(context.Background())

	if s.User() != nil || s.Token() != "" {
		t.Error("expected cleared session even when remote logout fails")
	}
	for _, key := range []string{state.KeyToken, state.KeyUser, state.KeySessionTimeout, state.KeySessionWarning} {
		if _, ok, _ := kv.Get(key); ok {
			t.Errorf("expected key %q cleared", key)
		}
	}
}

func TestInvalidateClears(t *testing.T) {
	kv := openTestKV(t)
	s := newTestStore(t, kv, Options{DemoLogins: true})

	if _, err := s.Login(context.Background(), "demo@mlmonitoring.com", "demo123"); err != nil {
		t.Fatal(err)
	}
	s.Invalidate()
	if s.User() != nil || s.Token() != "" {
		t.Error("expected cleared session after Invalidate")
	}
}

func TestHasRoleAndPermission(t *testing.T) {
	kv := openTestKV(t)
	s := newTestStore(t, kv, Options{DemoLogins: true})

	if s.HasPermission(PermProjectsRead) {
		t.Error("logged-out store must grant nothing")
	}

	if _, err := s.Login(context.Background(), "viewer@mlmonitoring.com", "viewer123"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		perm Permission
		want bool
	}{
		{PermProjectsRead, true},
		{PermProjectsWrite, false},
		{PermModelsApprove, false},
		{PermAuditClear, false},
	}
	for _, tt := range tests {
		if got := s.HasPermission(tt.perm); got != tt.want {
			t.Errorf("viewer HasPermission(%s) = %v, want %v", tt.perm, got, tt.want)
		}
	}

	if !s.HasRole(RoleViewer) || s.HasRole(RoleAdmin) {
		t.Error("unexpected HasRole results for viewer")
	}

	// Admin implicitly has everything.
	if _, err := s.Login(context.Background(), "demo@mlmonitoring.com", "demo123"); err != nil {
		t.Fatal(err)
	}
	for _, tt := range tests {
		if !s.HasPermission(tt.perm) {
			t.Errorf("admin must hold %s", tt.perm)
		}
	}
}

func mustPut(t *testing.T, kv *state.Store, key, value string) {
	t.Helper()
	if err := kv.Put(key, value); err != nil {
		t.Fatal(err)
	}
}
