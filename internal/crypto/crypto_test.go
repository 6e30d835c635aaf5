package crypto

import (
	"encoding/base64"
	"testing"
)

func TestSealRoundTrip(t *testing.T) {
	s, err := NewSealer("console-passphrase")
	if err != nil {
		t.Fatalf("NewSealer failed: %v", err)
	}

	sealed, err := s.Seal("demo-token-abc123")
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if sealed == "demo-token-abc123" {
		t.Error("sealed value should differ from plaintext")
	}

	opened, err := s.Open(sealed)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if opened != "demo-token-abc123" {
		t.Errorf("expected round-trip, got %q", opened)
	}
}

func TestNilSealerPassthrough(t *testing.T) {
	var s *Sealer

	sealed, err := s.Seal("plain")
	if err != nil || sealed != "plain" {
		t.Errorf("nil Seal: got (%q, %v), want passthrough", sealed, err)
	}

	opened, err := s.Open("plain")
	if err != nil || opened != "plain" {
		t.Errorf("nil Open: got (%q, %v), want passthrough", opened, err)
	}
}

func TestEmptyPassphraseDisables(t *testing.T) {
	s, err := NewSealer("")
	if err != nil {
		t.Fatalf("NewSealer(\"\") should not error: %v", err)
	}
	if s != nil {
		t.Error("expected nil Sealer for empty passphrase")
	}
}

func TestSealDistinctNonces(t *testing.T) {
	s, err := NewSealer("k")
	if err != nil {
		t.Fatal(err)
	}

	a, _ := s.Seal("same")
	b, _ := s.Seal("same")
	if a == b {
		t.Error("two seals of the same plaintext should differ (random nonce)")
	}
}

func TestOpenErrors(t *testing.T) {
	s, err := NewSealer("k")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		sealed string
	}{
		{"not base64", "!!!not-base64!!!"},
		{"too short", "YWJj"},
		{"tampered", func() string {
			v, _ := s.Seal("value")
			raw, _ := base64.StdEncoding.DecodeString(v)
			raw[len(raw)-1] ^= 0xff
			return base64.StdEncoding.EncodeToString(raw)
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Open(tt.sealed); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestWrongPassphrase(t *testing.T) {
	a, _ := NewSealer("one")
	b, _ := NewSealer("two")

	sealed, err := a.Seal("secret")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Open(sealed); err == nil {
		t.Error("expected error opening with wrong passphrase")
	}
}
