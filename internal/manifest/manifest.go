// Package manifest reads pkg.stof package manifests and resolves the
// registries they declare. Only the JSON-compatible subset of stof is
// understood here; full document parsing lives behind the engine
// interface and is not needed for the distribution fields.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileName is the well-known manifest file inside a package directory.
const FileName = "pkg.stof"

var (
	ErrManifestNotFound   = errors.New("manifest not found")
	ErrRegistryNotFound   = errors.New("registry not found")
	ErrRegistryURLMissing = errors.New("registry url missing")
	ErrInvalidManifest    = errors.New("invalid manifest")
)

// Registry is a named archive endpoint. Default carries the manifest's
// default tag; declaration order matters for registry resolution.
type Registry struct {
	Name    string
	URL     string
	Default bool
}

// Dependency references a package, optionally pinned to a named registry.
type Dependency struct {
	Name     string
	Registry string
}

// Manifest is the structured description of a package. It is read fresh
// for every operation and never cached across invocations.
type Manifest struct {
	Name         string
	Dependencies []Dependency
	Registries   []Registry // declaration order preserved
	Publish      []Registry
	Include      []string
	Exclude      []string
}

// StripName removes the leading "@" from a package name, yielding the
// canonical transfer/on-disk path.
func StripName(name string) string {
	return strings.TrimPrefix(name, "@")
}

// StrippedName returns the manifest's package name without its "@" prefix.
func (m *Manifest) StrippedName() string {
	return StripName(m.Name)
}

// Load reads the manifest from a package directory. A missing or
// unparsable file reports ErrManifestNotFound.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, path)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrManifestNotFound, path, err)
	}
	return m, nil
}

// rawRegistry is the wire shape of a registry object.
type rawRegistry struct {
	URL     string `json:"url"`
	Default bool   `json:"default"`
}

// Parse decodes manifest bytes. Absent optional fields resolve to empty
// defaults rather than errors.
func Parse(data []byte) (*Manifest, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, err
	}

	m := &Manifest{}

	if raw, ok := top["name"]; ok {
		if err := json.Unmarshal(raw, &m.Name); err != nil {
			return nil, fmt.Errorf("name: %w", err)
		}
	}

	if raw, ok := top["registries"]; ok {
		regs, err := parseRegistries(raw)
		if err != nil {
			return nil, fmt.Errorf("registries: %w", err)
		}
		m.Registries = regs
	}

	if raw, ok := top["dependencies"]; ok {
		deps, err := parseDependencies(raw)
		if err != nil {
			return nil, fmt.Errorf("dependencies: %w", err)
		}
		m.Dependencies = deps
	}

	if raw, ok := top["publish"]; ok {
		pub, err := parsePublish(raw, m.Registries)
		if err != nil {
			return nil, fmt.Errorf("publish: %w", err)
		}
		m.Publish = pub
	}

	if raw, ok := top["include"]; ok {
		if err := json.Unmarshal(raw, &m.Include); err != nil {
			return nil, fmt.Errorf("include: %w", err)
		}
	}
	if raw, ok := top["exclude"]; ok {
		if err := json.Unmarshal(raw, &m.Exclude); err != nil {
			return nil, fmt.Errorf("exclude: %w", err)
		}
	}

	return m, nil
}

// parseRegistries walks the registries object with a token decoder so the
// declaration order survives; the default-selection tie-break depends on it.
func parseRegistries(raw json.RawMessage) ([]Registry, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var regs []Registry
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected registry name, got %v", keyTok)
		}

		var rr rawRegistry
		if err := dec.Decode(&rr); err != nil {
			return nil, fmt.Errorf("registry %q: %w", name, err)
		}
		regs = append(regs, Registry{Name: name, URL: rr.URL, Default: rr.Default})
	}
	return regs, nil
}

// parseDependencies accepts bare name strings and {name, registry} objects.
func parseDependencies(raw json.RawMessage) ([]Dependency, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}

	deps := make([]Dependency, 0, len(items))
	for i, item := range items {
		var name string
		if err := json.Unmarshal(item, &name); err == nil {
			deps = append(deps, Dependency{Name: name})
			continue
		}

		var obj struct {
			Name     string `json:"name"`
			Registry string `json:"registry"`
		}
		if err := json.Unmarshal(item, &obj); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if obj.Name == "" {
			return nil, fmt.Errorf("entry %d: missing name", i)
		}
		deps = append(deps, Dependency{Name: obj.Name, Registry: obj.Registry})
	}
	return deps, nil
}

// parsePublish accepts inline registry objects and name strings that
// reference entries of the registries section.
func parsePublish(raw json.RawMessage, known []Registry) ([]Registry, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}

	pub := make([]Registry, 0, len(items))
	for i, item := range items {
		var name string
		if err := json.Unmarshal(item, &name); err == nil {
			found := false
			for _, reg := range known {
				if reg.Name == name {
					pub = append(pub, reg)
					found = true
					break
				}
			}
			if !found {
				return nil, fmt.Errorf("entry %d: %w: %s", i, ErrRegistryNotFound, name)
			}
			continue
		}

		var rr rawRegistry
		if err := json.Unmarshal(item, &rr); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		pub = append(pub, Registry{URL: rr.URL, Default: rr.Default})
	}
	return pub, nil
}
