package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDownload(t *testing.T) {
	t.Run("attaches basic auth only when both parts are set", func(t *testing.T) {
		var authHeader string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader = r.Header.Get("Authorization")
			w.Write([]byte("archive"))
		}))
		defer srv.Close()

		c := New()

		if _, err := c.Download(context.Background(), srv.URL, "a/b", &Credentials{Username: "u", Password: "p"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if authHeader == "" {
			t.Error("expected Authorization header with full credentials")
		}

		if _, err := c.Download(context.Background(), srv.URL, "a/b", &Credentials{Username: "u"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if authHeader != "" {
			t.Error("expected no Authorization header without a password")
		}

		if _, err := c.Download(context.Background(), srv.URL, "a/b", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if authHeader != "" {
			t.Error("expected no Authorization header for anonymous access")
		}
	})

	t.Run("non-success status reports ErrDownloadFailed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer srv.Close()

		_, err := New().Download(context.Background(), srv.URL, "a/b", nil)
		if !errors.Is(err, ErrDownloadFailed) {
			t.Errorf("expected ErrDownloadFailed, got %v", err)
		}
	})

	t.Run("empty body reports ErrEmptyResponse", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer srv.Close()

		_, err := New().Download(context.Background(), srv.URL, "a/b", nil)
		if !errors.Is(err, ErrEmptyResponse) {
			t.Errorf("expected ErrEmptyResponse, got %v", err)
		}
	})

	t.Run("trailing slash on registry url is tolerated", func(t *testing.T) {
		var path string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path = r.URL.Path
			w.Write([]byte("archive"))
		}))
		defer srv.Close()

		if _, err := New().Download(context.Background(), srv.URL+"/", "acme/base", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if path != "/registry/acme/base" {
			t.Errorf("unexpected path: %s", path)
		}
	})
}

func TestRun(t *testing.T) {
	t.Run("posts body with content type and defaults response format", func(t *testing.T) {
		var gotType string
		var gotBody []byte
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotType = r.Header.Get("Content-Type")
			gotBody, _ = io.ReadAll(r.Body)
			// No Content-Type on the response.
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		resp, err := New().Run(context.Background(), srv.URL, "stof", []byte("fn main() {}"), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotType != "stof" {
			t.Errorf("expected content type stof, got %s", gotType)
		}
		if string(gotBody) != "fn main() {}" {
			t.Errorf("unexpected body: %q", gotBody)
		}
		if resp.ContentType != "bstof" {
			t.Errorf("expected default bstof content type, got %s", resp.ContentType)
		}
	})

	t.Run("non-success status reports ErrRunFailed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := New().Run(context.Background(), srv.URL, "stof", nil, nil)
		if !errors.Is(err, ErrRunFailed) {
			t.Errorf("expected ErrRunFailed, got %v", err)
		}
	})
}

func TestAdminRequests(t *testing.T) {
	var method, path, auth string
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		body, _ = io.ReadAll(r.Body)
		w.Write([]byte("user updated"))
	}))
	defer srv.Close()

	c := New()
	admin := Credentials{Username: "root", Password: "secret"}

	t.Run("set user", func(t *testing.T) {
		text, err := c.SetUser(context.Background(), srv.URL, admin, "alice", "pw", 9, "example")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if method != http.MethodPost || path != "/admin/users" {
			t.Errorf("unexpected request: %s %s", method, path)
		}
		if auth == "" {
			t.Error("expected admin Authorization header")
		}
		want := "username: alice\npassword: pw\nperms: 9\nscope: example\n"
		if string(body) != want {
			t.Errorf("unexpected payload: %q", body)
		}
		if text != "user updated" {
			t.Errorf("unexpected response text: %q", text)
		}
	})

	t.Run("delete user", func(t *testing.T) {
		if _, err := c.DeleteUser(context.Background(), srv.URL, admin, "alice"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if method != http.MethodDelete {
			t.Errorf("expected DELETE, got %s", method)
		}
		if string(body) != "username: alice\n" {
			t.Errorf("unexpected payload: %q", body)
		}
	})

	t.Run("failure reports ErrAdminRequest", func(t *testing.T) {
		failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "denied", http.StatusUnauthorized)
		}))
		defer failing.Close()

		_, err := c.SetUser(context.Background(), failing.URL, admin, "alice", "pw", 9, "")
		if !errors.Is(err, ErrAdminRequest) {
			t.Errorf("expected ErrAdminRequest, got %v", err)
		}
	})
}
