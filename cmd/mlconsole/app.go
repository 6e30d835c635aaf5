package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sajagmathur/mlconsole/internal/client"
	"github.com/sajagmathur/mlconsole/internal/config"
	"github.com/sajagmathur/mlconsole/internal/crypto"
	"github.com/sajagmathur/mlconsole/internal/metrics"
	"github.com/sajagmathur/mlconsole/internal/notify"
	"github.com/sajagmathur/mlconsole/internal/resource"
	"github.com/sajagmathur/mlconsole/internal/session"
	"github.com/sajagmathur/mlconsole/internal/state"
)

// app bundles the wired console: config, persistent state, and the three
// stores every command works through.
type app struct {
	cfg      *config.Config
	kv       *state.Store
	metrics  *metrics.Metrics
	api      *client.Client
	sessions *session.Store
	notify   *notify.Store
	catalog  *resource.Catalog
}

// newApp loads config, opens the state database, and wires the stores. The
// session and audit log are restored from the previous run.
func newApp() (*app, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	kv, err := state.Open(cfg.State.Path)
	if err != nil {
		return nil, err
	}

	sealer, err := crypto.NewSealer(cfg.State.EncryptionKey)
	if err != nil {
		kv.Close()
		return nil, err
	}

	m := metrics.New()
	m.RegisterStateCollector(func() (int, int, int) {
		st := kv.Stats()
		return st.OpenConnections, st.Idle, st.InUse
	})

	a := &app{cfg: cfg, kv: kv, metrics: m}

	a.api = client.New(cfg.API.BaseURL, client.Options{
		Timeout:        cfg.API.Timeout,
		TokenSource:    func() string { return a.sessions.Token() },
		OnUnauthorized: func() { a.sessions.Invalidate() },
		Metrics:        m,
	})

	a.sessions = session.New(kv, session.Options{
		Backend:          session.NewRemoteBackend(a.api),
		Sealer:           sealer,
		TTL:              cfg.Session.TTL,
		WarningThreshold: cfg.Session.WarningThreshold,
		DemoLogins:       cfg.Auth.DemoLogins,
		OnWarning: func(remaining time.Duration) {
			a.notify.Show(fmt.Sprintf("Session expires in %s", remaining.Round(time.Minute)), notify.SeverityWarning, 0)
		},
		OnExpired: func(err *session.SessionExpiredError) {
			a.notify.Show("Session expired, please log in again", notify.SeverityError, 0)
		},
	})

	a.notify = notify.New(kv, notify.Options{
		MaxEntries:    cfg.Audit.MaxEntries,
		ToastDuration: cfg.Audit.ToastDuration,
		PendingWindow: cfg.Audit.PendingWindow,
		Actor: func() string {
			if u := a.sessions.User(); u != nil {
				return u.Email
			}
			return "anonymous"
		},
		Metrics: m,
	})

	a.catalog = resource.NewCatalog(a.api, m, resource.CatalogOptions{})

	if err := a.sessions.Load(); err != nil {
		a.close()
		return nil, err
	}
	if err := a.notify.Load(); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) close() {
	if a.catalog != nil {
		a.catalog.Close()
	}
	if a.notify != nil {
		a.notify.Close()
	}
	if a.sessions != nil {
		a.sessions.Close()
	}
	if a.kv != nil {
		a.kv.Close()
	}
}

// requireLogin fails fast for commands that need a session.
func (a *app) requireLogin() error {
	if a.sessions.User() == nil {
		return fmt.Errorf("not logged in, run: mlconsole login <email> <password>")
	}
	return nil
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printOutcome tells the user whether a mutation reached the backend or was
// applied locally only.
func printOutcome(o resource.Outcome) {
	if o == resource.AppliedLocally {
		fmt.Println("warning: backend unreachable, change applied locally only")
	}
}
