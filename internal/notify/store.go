// Package notify provides ephemeral UI feedback (toasts) and the durable,
// bounded audit log, keeping the two consistent: every logged action raises
// exactly one toast, and the persisted notifications mirror is re-derived
// from the audit log on every write.
package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sajagmathur/mlconsole/internal/metrics"
	"github.com/sajagmathur/mlconsole/internal/state"
)

// Options configures a notify Store.
type Options struct {
	// MaxEntries bounds the audit log (oldest evicted first).
	MaxEntries int
	// ToastDuration is the auto-dismiss delay for toasts raised by LogAction.
	ToastDuration time.Duration
	// PendingWindow bounds how stale a persisted toast snapshot may be before
	// it is discarded on load.
	PendingWindow time.Duration
	// Actor resolves the acting user for audit entries; may be nil.
	Actor   func() string
	Metrics *metrics.Metrics
}

// Store owns the notification list and the audit log. One instance per
// running console.
type Store struct {
	mu sync.Mutex
	kv *state.Store

	maxEntries    int
	toastDuration time.Duration
	pendingWindow time.Duration
	actor         func() string
	metrics       *metrics.Metrics
	now           func() time.Time
	closed        bool

	toasts  []Notification
	timers  map[string]*time.Timer
	entries []AuditEntry
}

// New creates a notify store. Call Load to restore persisted state.
func New(kv *state.Store, opts Options) *Store {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = 100
	}
	if opts.ToastDuration <= 0 {
		opts.ToastDuration = 5 * time.Second
	}
	if opts.PendingWindow <= 0 {
		opts.PendingWindow = 30 * time.Second
	}
	return &Store{
		kv:            kv,
		maxEntries:    opts.MaxEntries,
		toastDuration: opts.ToastDuration,
		pendingWindow: opts.PendingWindow,
		actor:         opts.Actor,
		metrics:       opts.Metrics,
		now:           time.Now,
		timers:        make(map[string]*time.Timer),
	}
}

// Load restores the audit log and any still-fresh toast snapshot. Malformed
// state self-heals to empty via the state layer and never surfaces here.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []AuditEntry
	if _, err := s.kv.GetJSON(state.KeyAuditLogs, &entries); err != nil {
		return err
	}
	if len(entries) > s.maxEntries {
		entries = entries[:s.maxEntries]
	}
	s.entries = entries

	var pending []Notification
	if _, err := s.kv.GetJSON(state.KeyPendingNotifications, &pending); err != nil {
		return err
	}
	now := s.now()
	for _, n := range pending {
		if now.Sub(n.CreatedAt) > s.pendingWindow {
			continue
		}
		s.toasts = append(s.toasts, n)
		if n.AutoDismissAfter > 0 {
			remaining := n.CreatedAt.Add(n.AutoDismissAfter).Sub(now)
			if remaining <= 0 {
				remaining = time.Millisecond
			}
			s.armTimerLocked(n.ID, remaining)
		}
	}
	s.persistPendingLocked()
	s.observeLocked()
	return nil
}

// Show appends a toast and returns its id. A positive duration schedules
// automatic removal; zero or negative means the toast stays until dismissed.
func (s *Store) Show(message string, severity Severity, duration time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := Notification{
		ID:               uuid.NewString(),
		Message:          message,
		Severity:         severity,
		CreatedAt:        s.now(),
		AutoDismissAfter: duration,
	}
	s.toasts = append(s.toasts, n)
	if duration > 0 {
		s.armTimerLocked(n.ID, duration)
	}
	s.persistPendingLocked()
	s.observeLocked()
	return n.ID
}

// Remove dismisses a toast and cancels its timer. Removing an unknown id is
// a no-op.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(id)
}

// Active returns a copy of the currently visible toasts.
func (s *Store) Active() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, len(s.toasts))
	copy(out, s.toasts)
	return out
}

// LogAction appends one entry to the front of the audit log, truncates to
// the bound, re-derives the persisted notifications mirror, and raises a
// single short-lived toast summarizing the action.
func (s *Store) LogAction(action, details string, category Category) AuditEntry {
	s.mu.Lock()

	actor := ""
	if s.actor != nil {
		actor = s.actor()
	}
	entry := AuditEntry{
		ID:        uuid.NewString(),
		Action:    action,
		Details:   details,
		Timestamp: s.now(),
		Category:  category,
		User:      actor,
	}

	s.entries = append([]AuditEntry{entry}, s.entries...)
	if len(s.entries) > s.maxEntries {
		s.entries = s.entries[:s.maxEntries]
	}
	s.persistAuditLocked()
	s.observeLocked()
	toastDuration := s.toastDuration
	s.mu.Unlock()

	slog.Info("audit",
		"action", action,
		"category", category,
		"user", actor,
		"details", details,
	)

	s.Show(action, severityFor(category), toastDuration)
	return entry
}

// Entries returns a copy of the audit log, most recent first.
func (s *Store) Entries() []AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AuditEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// ClearAuditLog empties the log and both persisted representations. Callers
// observe either the full log or the empty one, never a partial clear.
func (s *Store) ClearAuditLog() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
	if err := s.kv.Delete(state.KeyAuditLogs, state.KeyNotifications); err != nil {
		return err
	}
	s.observeLocked()
	return nil
}

// Close cancels all pending dismiss timers. Late timer fires become no-ops.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

func (s *Store) armTimerLocked(id string, d time.Duration) {
	s.timers[id] = time.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return
		}
		s.removeLocked(id)
	})
}

// removeLocked dismisses a toast; the timer is cancelled first so a manual
// dismiss and a firing timer cannot both run. Must be called with s.mu held.
func (s *Store) removeLocked(id string) {
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	for i, n := range s.toasts {
		if n.ID == id {
			s.toasts = append(s.toasts[:i], s.toasts[i+1:]...)
			s.persistPendingLocked()
			s.observeLocked()
			return
		}
	}
}

// persistAuditLocked writes the audit log and re-derives its notifications
// mirror. Must be called with s.mu held.
func (s *Store) persistAuditLocked() {
	if err := s.kv.PutJSON(state.KeyAuditLogs, s.entries); err != nil {
		slog.Warn("persisting audit log failed", "error", err)
		return
	}

	mirror := make([]mirrorRecord, len(s.entries))
	for i, e := range s.entries {
		mirror[i] = mirrorRecord{
			ID:        e.ID,
			Message:   e.Action,
			Severity:  severityFor(e.Category),
			CreatedAt: e.Timestamp,
		}
	}
	if err := s.kv.PutJSON(state.KeyNotifications, mirror); err != nil {
		slog.Warn("persisting notifications mirror failed", "error", err)
	}
}

// persistPendingLocked snapshots the active toasts. Must be called with
// s.mu held.
func (s *Store) persistPendingLocked() {
	if err := s.kv.PutJSON(state.KeyPendingNotifications, s.toasts); err != nil {
		slog.Warn("persisting pending notifications failed", "error", err)
	}
}

func (s *Store) observeLocked() {
	if s.metrics == nil {
		return
	}
	s.metrics.SetActiveToasts(len(s.toasts))
	s.metrics.SetAuditEntries(len(s.entries))
}
