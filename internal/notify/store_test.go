package notify

import (
	"fmt"
	"path/filepath"
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
	s := New(kv, opts)
	t.Cleanup(s.Close)
	return s
}

func TestSeverityMapping(t *testing.T) {
	tests := []struct {
		category Category
		want     Severity
	}{
		{CategoryCreate, SeveritySuccess},
		{CategoryRun, SeveritySuccess},
		{CategoryApprove, SeveritySuccess},
		{CategoryDelete, SeverityWarning},
		{CategoryReject, SeverityWarning},
		{CategoryUpdate, SeverityInfo},
		{CategoryOther, SeverityInfo},
	}
	for _, tt := range tests {
		if got := severityFor(tt.category); got != tt.want {
			t.Errorf("severityFor(%s) = %s, want %s", tt.category, got, tt.want)
		}
	}
}

func TestShowAndRemove(t *testing.T) {
	s := newTestStore(t, openTestKV(t), Options{})

	a := s.Show("first", SeverityInfo, 0)
	b := s.Show("second", SeverityError, 0)

	if got := len(s.Active()); got != 2 {
		t.Fatalf("expected 2 active toasts, got %d", got)
	}

	s.Remove(a)
	active := s.Active()
	if len(active) != 1 || active[0].ID != b {
		t.Errorf("expected only second toast left, got %+v", active)
	}

	// Removing a nonexistent or already-removed id is a no-op.
	s.Remove(a)
	s.Remove("no-such-id")
	if got := len(s.Active()); got != 1 {
		t.Errorf("expected 1 active toast, got %d", got)
	}
}

func TestAutoDismiss(t *testing.T) {
	s := newTestStore(t, openTestKV(t), Options{})

	s.Show("ephemeral", SeverityInfo, 20*time.Millisecond)
	s.Show("sticky", SeverityInfo, 0)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(s.Active()) == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	active := s.Active()
	if len(active) != 1 || active[0].Message != "sticky" {
		t.Errorf("expected only the sticky toast to remain, got %+v", active)
	}
}

func TestManualDismissCancelsTimer(t *testing.T) {
	s := newTestStore(t, openTestKV(t), Options{})

	id := s.Show("toast", SeverityInfo, 30*time.Millisecond)
	s.Remove(id)

	time.Sleep(80 * time.Millisecond)
	if got := len(s.Active()); got != 0 {
		t.Errorf("expected no active toasts, got %d", got)
	}
}

func TestLogActionAppendsFrontAndRaisesOneToast(t *testing.T) {
	s := newTestStore(t, openTestKV(t), Options{
		Actor:         func() string { return "demo@mlmonitoring.com" },
		ToastDuration: time.Hour, // keep visible for assertions
	})

	s.LogAction("Created project alpha", "id=p1", CategoryCreate)
	s.LogAction("Deleted project alpha", "id=p1", CategoryDelete)

	entries := s.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Action != "Deleted project alpha" {
		t.Errorf("expected most-recent-first ordering, got %q first", entries[0].Action)
	}
	if entries[0].Category != CategoryDelete || entries[0].User != "demo@mlmonitoring.com" {
		t.Errorf("unexpected entry: %+v", entries[0])
	}

	toasts := s.Active()
	if len(toasts) != 2 {
		t.Fatalf("expected exactly one toast per action, got %d", len(toasts))
	}
	if toasts[0].Severity != SeveritySuccess || toasts[1].Severity != SeverityWarning {
		t.Errorf("unexpected toast severities: %+v", toasts)
	}
}

func TestAuditLogBounded(t *testing.T) {
	kv := openTestKV(t)
	s := newTestStore(t, kv, Options{MaxEntries: 100, ToastDuration: time.Millisecond})

	for i := 0; i < 120; i++ {
		s.LogAction(fmt.Sprintf("action %d", i), "", CategoryUpdate)
	}

	entries := s.Entries()
	if len(entries) != 100 {
		t.Fatalf("expected exactly 100 entries, got %d", len(entries))
	}
	if entries[0].Action != "action 119" {
		t.Errorf("expected newest entry first, got %q", entries[0].Action)
	}
	if entries[99].Action != "action 20" {
		t.Errorf("expected oldest retained entry to be action 20, got %q", entries[99].Action)
	}

	// The durable copy is capped too.
	var persisted []AuditEntry
	ok, err := kv.GetJSON(state.KeyAuditLogs, &persisted)
	if err != nil || !ok {
		t.Fatalf("reading persisted log: ok=%v err=%v", ok, err)
	}
	if len(persisted) != 100 {
		t.Errorf("expected durable log capped at 100, got %d", len(persisted))
	}
}

func TestMirrorDerivedFromAuditLog(t *testing.T) {
	kv := openTestKV(t)
	s := newTestStore(t, kv, Options{ToastDuration: time.Millisecond})

	s.LogAction("Approved model v3", "", CategoryApprove)

	var mirror []mirrorRecord
	ok, err := kv.GetJSON(state.KeyNotifications, &mirror)
	if err != nil || !ok {
		t.Fatalf("reading mirror: ok=%v err=%v", ok, err)
	}
	if len(mirror) != 1 {
		t.Fatalf("expected 1 mirror record, got %d", len(mirror))
	}
	if mirror[0].Message != "Approved model v3" || mirror[0].Severity != SeveritySuccess {
		t.Errorf("unexpected mirror record: %+v", mirror[0])
	}
}

func TestClearAuditLog(t *testing.T) {
	kv := openTestKV(t)
	s := newTestStore(t, kv, Options{ToastDuration: time.Millisecond})

	s.LogAction("something", "", CategoryOther)
	if err := s.ClearAuditLog(); err != nil {
		t.Fatalf("ClearAuditLog failed: %v", err)
	}

	if got := len(s.Entries()); got != 0 {
		t.Errorf("expected empty log, got %d entries", got)
	}
	if _, ok, _ := kv.Get(state.KeyAuditLogs); ok {
		t.Error("expected durable log cleared")
	}
	if _, ok, _ := kv.Get(state.KeyNotifications); ok {
		t.Error("expected mirror cleared")
	}
}

func TestLoadRestoresAuditLog(t *testing.T) {
	kv := openTestKV(t)

	s := newTestStore(t, kv, Options{ToastDuration: time.Millisecond})
	s.LogAction("persisted action", "", CategoryCreate)
	s.Close()

	s2 := newTestStore(t, kv, Options{})
	if err := s2.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	entries := s2.Entries()
	if len(entries) != 1 || entries[0].Action != "persisted action" {
		t.Errorf("unexpected restored entries: %+v", entries)
	}
}

func TestLoadDiscardsStalePendingToasts(t *testing.T) {
	kv := openTestKV(t)

	fresh := Notification{
		ID: "fresh", Message: "fresh", Severity: SeverityInfo,
		CreatedAt: time.Now().Add(-5 * time.Second),
	}
	stale := Notification{
		ID: "stale", Message: "stale", Severity: SeverityInfo,
		CreatedAt: time.Now().Add(-2 * time.Minute),
	}
	if err := kv.PutJSON(state.KeyPendingNotifications, []Notification{fresh, stale}); err != nil {
		t.Fatal(err)
	}

	s := newTestStore(t, kv, Options{PendingWindow: 30 * time.Second})
	if err := s.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	active := s.Active()
	if len(active) != 1 || active[0].ID != "fresh" {
		t.Errorf("expected only the fresh toast restored, got %+v", active)
	}
}

func TestLoadSelfHealsMalformedLog(t *testing.T) {
	kv := openTestKV(t)
	if err := kv.Put(state.KeyAuditLogs, "[broken"); err != nil {
		t.Fatal(err)
	}

	s := newTestStore(t, kv, Options{})
	if err := s.Load(); err != nil {
		t.Fatalf("Load must not surface corruption: %v", err)
	}
	if got := len(s.Entries()); got != 0 {
		t.Errorf("expected empty log after self-heal, got %d", got)
	}
}
