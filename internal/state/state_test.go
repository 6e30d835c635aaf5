package state

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)

	_, ok, err := s.Get(KeyToken)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Error("expected missing key")
	}
}

func TestPutOverwrites(t *testing.T) {
	s := openTestStore(t)

	if err := s.Put(KeyToken, "first"); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(KeyToken, "second"); err != nil {
		t.Fatal(err)
	}

	v, ok, err := s.Get(KeyToken)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if v != "second" {
		t.Errorf("expected last write to win, got %q", v)
	}
}

func TestDeleteIdempotent(t *testing.T) {
	s := openTestStore(t)

	if err := s.Put(KeyUser, `{"email":"x"}`); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(KeyUser, KeySessionTimeout); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete(KeyUser); err != nil {
		t.Fatalf("Delete of absent key should succeed: %v", err)
	}

	_, ok, _ := s.Get(KeyUser)
	if ok {
		t.Error("expected key deleted")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	s := openTestStore(t)

	type entry struct {
		ID     string `json:"id"`
		Action string `json:"action"`
	}

	in := []entry{{ID: "1", Action: "created"}, {ID: "2", Action: "deleted"}}
	if err := s.PutJSON(KeyAuditLogs, in); err != nil {
		t.Fatalf("PutJSON failed: %v", err)
	}

	var out []entry
	ok, err := s.GetJSON(KeyAuditLogs, &out)
	if err != nil || !ok {
		t.Fatalf("GetJSON: ok=%v err=%v", ok, err)
	}
	if len(out) != 2 || out[0].ID != "1" || out[1].Action != "deleted" {
		t.Errorf("unexpected round-trip value: %+v", out)
	}
}

func TestMalformedJSONSelfHeals(t *testing.T) {
	s := openTestStore(t)

	if err := s.Put(KeyAuditLogs, "{not json"); err != nil {
		t.Fatal(err)
	}

	var out []string
	ok, err := s.GetJSON(KeyAuditLogs, &out)
	if err != nil {
		t.Fatalf("GetJSON should swallow malformed data: %v", err)
	}
	if ok {
		t.Error("expected malformed value reported absent")
	}

	// The corrupt value must be gone.
	_, present, _ := s.Get(KeyAuditLogs)
	if present {
		t.Error("expected corrupt key cleared")
	}
}

func TestReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put(KeySessionTimeout, "1724500000000"); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	v, ok, err := s2.Get(KeySessionTimeout)
	if err != nil || !ok {
		t.Fatalf("Get after reopen: ok=%v err=%v", ok, err)
	}
	if v != "1724500000000" {
		t.Errorf("expected persisted value, got %q", v)
	}
}
