package remote

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"stof/internal/client"
)

func TestPermission(t *testing.T) {
	t.Run("default is read and exec", func(t *testing.T) {
		if DefaultPermissions != 9 {
			t.Errorf("expected bitmask 9, got %d", DefaultPermissions)
		}
		names := DefaultPermissions.Names()
		if len(names) != 2 || names[0] != "read" || names[1] != "exec" {
			t.Errorf("expected [read exec], got %v", names)
		}
	})

	t.Run("full bitmask", func(t *testing.T) {
		names := Permission(15).Names()
		want := []string{"read", "write", "delete", "exec"}
		if len(names) != len(want) {
			t.Fatalf("expected %v, got %v", want, names)
		}
		for i := range want {
			if names[i] != want[i] {
				t.Errorf("position %d: expected %s, got %s", i, want[i], names[i])
			}
		}
	})

	t.Run("empty bitmask", func(t *testing.T) {
		if names := Permission(0).Names(); len(names) != 0 {
			t.Errorf("expected no permissions, got %v", names)
		}
		if Permission(0).String() != "none" {
			t.Errorf("unexpected string: %s", Permission(0))
		}
	})

	t.Run("has checks all bits", func(t *testing.T) {
		p := PermRead | PermExec
		if !p.Has(PermRead) || !p.Has(PermExec) {
			t.Error("expected read and exec to be set")
		}
		if p.Has(PermWrite) || p.Has(PermRead|PermWrite) {
			t.Error("expected write to be unset")
		}
	})
}

func TestAdmin(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.Write([]byte("ok: user stored"))
	}))
	defer srv.Close()

	admin := NewAdmin(client.New(), nil)
	var out bytes.Buffer
	admin.SetOutput(&out)

	creds := client.Credentials{Username: "root", Password: "secret"}
	err := admin.SetUser(context.Background(), srv.URL, creds, "alice", "pw", DefaultPermissions, "example")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(string(body), "perms: 9") {
		t.Errorf("expected default perms in payload, got %q", body)
	}
	// The raw response text is printed verbatim.
	if out.String() != "ok: user stored\n" {
		t.Errorf("unexpected output: %q", out.String())
	}

	out.Reset()
	if err := admin.DeleteUser(context.Background(), srv.URL, creds, "alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != "username: alice\n" {
		t.Errorf("unexpected payload: %q", body)
	}
}
