package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBearerTokenAttached(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.URL, Options{TokenSource: func() string { return "tok-123" }})
	if err := c.Get(context.Background(), "/api/projects", nil); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q, want Bearer tok-123", gotAuth)
	}
}

func TestNoHeaderWhenLoggedOut(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.URL, Options{TokenSource: func() string { return "" }})
	if err := c.Get(context.Background(), "/", nil); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("Authorization = %q, want empty", gotAuth)
	}
}

func TestUnauthorizedRunsHookAndReturnsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	hookRan := false
	c := New(srv.URL, Options{OnUnauthorized: func() { hookRan = true }})

	err := c.Get(context.Background(), "/api/projects", nil)
	if !hookRan {
		t.Error("OnUnauthorized hook did not run")
	}
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.Status != http.StatusUnauthorized {
		t.Fatalf("err = %v, want HTTPError with status 401", err)
	}
}

func TestErrorBodyNotParsed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`this is not json {{{`))
	}))
	defer srv.Close()

	c := New(srv.URL, Options{})

	var out map[string]string
	err := c.Get(context.Background(), "/broken", &out)
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("err = %v, want HTTPError", err)
	}
	if httpErr.Status != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", httpErr.Status)
	}
	if out != nil {
		t.Error("out must stay untouched on error responses")
	}
}

func TestPostRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		var in map[string]string
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"p1","name":"` + in["name"] + `"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, Options{})

	var out struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	err := c.Post(context.Background(), "/api/projects", map[string]string{"name": "churn"}, &out)
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if out.ID != "p1" || out.Name != "churn" {
		t.Errorf("decoded %+v, want id p1 and name churn", out)
	}
}

func TestTransportErrorWrapped(t *testing.T) {
	// Nothing listens on this address.
	c := New("http://127.0.0.1:1", Options{})

	err := c.Get(context.Background(), "/api/projects", nil)
	if err == nil {
		t.Fatal("expected transport error")
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		t.Error("transport failures must not be HTTPErrors")
	}
}
