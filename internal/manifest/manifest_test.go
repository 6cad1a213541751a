package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestStripName(t *testing.T) {
	if got := StripName("@acme/tool"); got != "acme/tool" {
		t.Errorf("expected acme/tool, got %s", got)
	}
	if got := StripName("plain"); got != "plain" {
		t.Errorf("expected plain, got %s", got)
	}
}

func TestLoad(t *testing.T) {
	t.Run("missing file reports ErrManifestNotFound", func(t *testing.T) {
		_, err := Load(t.TempDir())
		if !errors.Is(err, ErrManifestNotFound) {
			t.Errorf("expected ErrManifestNotFound, got %v", err)
		}
	})

	t.Run("unparsable file reports ErrManifestNotFound", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, FileName), []byte("not a manifest {{"), 0o644); err != nil {
			t.Fatalf("failed to write manifest: %v", err)
		}
		_, err := Load(dir)
		if !errors.Is(err, ErrManifestNotFound) {
			t.Errorf("expected ErrManifestNotFound, got %v", err)
		}
	})

	t.Run("loads full manifest", func(t *testing.T) {
		dir := t.TempDir()
		data := `{
			"name": "@acme/tool",
			"dependencies": ["@acme/base", {"name": "@x/y", "registry": "alt"}],
			"registries": {
				"main": {"url": "https://reg.example.com", "default": true},
				"alt": {"url": "https://alt.example.com"}
			},
			"publish": ["main", {"url": "https://other.example.com"}],
			"include": ["^src/"],
			"exclude": ["\\.secret$"]
		}`
		if err := os.WriteFile(filepath.Join(dir, FileName), []byte(data), 0o644); err != nil {
			t.Fatalf("failed to write manifest: %v", err)
		}

		m, err := Load(dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if m.Name != "@acme/tool" {
			t.Errorf("expected @acme/tool, got %s", m.Name)
		}
		if m.StrippedName() != "acme/tool" {
			t.Errorf("expected acme/tool, got %s", m.StrippedName())
		}

		if len(m.Dependencies) != 2 {
			t.Fatalf("expected 2 dependencies, got %d", len(m.Dependencies))
		}
		if m.Dependencies[0].Name != "@acme/base" || m.Dependencies[0].Registry != "" {
			t.Errorf("unexpected first dependency: %+v", m.Dependencies[0])
		}
		if m.Dependencies[1].Name != "@x/y" || m.Dependencies[1].Registry != "alt" {
			t.Errorf("unexpected second dependency: %+v", m.Dependencies[1])
		}

		if len(m.Registries) != 2 {
			t.Fatalf("expected 2 registries, got %d", len(m.Registries))
		}
		if m.Registries[0].Name != "main" || !m.Registries[0].Default {
			t.Errorf("unexpected first registry: %+v", m.Registries[0])
		}
		if m.Registries[1].Name != "alt" || m.Registries[1].Default {
			t.Errorf("unexpected second registry: %+v", m.Registries[1])
		}

		if len(m.Publish) != 2 {
			t.Fatalf("expected 2 publish targets, got %d", len(m.Publish))
		}
		if m.Publish[0].URL != "https://reg.example.com" {
			t.Errorf("named publish entry did not resolve: %+v", m.Publish[0])
		}
		if m.Publish[1].URL != "https://other.example.com" {
			t.Errorf("unexpected inline publish entry: %+v", m.Publish[1])
		}

		if len(m.Include) != 1 || len(m.Exclude) != 1 {
			t.Errorf("unexpected include/exclude: %v / %v", m.Include, m.Exclude)
		}
	})

	t.Run("absent optional fields default to empty", func(t *testing.T) {
		m, err := Parse([]byte(`{"name": "@a/b"}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(m.Dependencies) != 0 || len(m.Registries) != 0 || len(m.Publish) != 0 {
			t.Errorf("expected empty defaults, got %+v", m)
		}
	})
}

func TestParseRegistryOrder(t *testing.T) {
	// Declaration order must survive the decode; resolution depends on it.
	data := `{"registries": {"c": {"url": "u3"}, "a": {"url": "u1"}, "b": {"url": "u2"}}}`
	m, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"c", "a", "b"}
	for i, reg := range m.Registries {
		if reg.Name != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], reg.Name)
		}
	}
}

func TestParsePublishUnknownName(t *testing.T) {
	_, err := Parse([]byte(`{"publish": ["nope"]}`))
	if !errors.Is(err, ErrRegistryNotFound) {
		t.Errorf("expected ErrRegistryNotFound, got %v", err)
	}
}
