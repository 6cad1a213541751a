package manifest

import "fmt"

// ResolveRegistry finds a registry in the manifest. With a name, only an
// exact match in the registries section counts. Without one, the first
// declared registry is the provisional choice and any later entry tagged
// default overrides it; when several carry the tag the last one wins.
func (m *Manifest) ResolveRegistry(name string) (Registry, error) {
	if name != "" {
		for _, reg := range m.Registries {
			if reg.Name == name {
				return reg, nil
			}
		}
		return Registry{}, fmt.Errorf("%w: %s", ErrRegistryNotFound, name)
	}

	if len(m.Registries) == 0 {
		return Registry{}, ErrRegistryNotFound
	}

	chosen := m.Registries[0]
	for _, reg := range m.Registries[1:] {
		if reg.Default {
			chosen = reg
		}
	}
	return chosen, nil
}

// RegistryURL resolves a registry and requires its URL to be set.
func (m *Manifest) RegistryURL(name string) (string, error) {
	reg, err := m.ResolveRegistry(name)
	if err != nil {
		return "", err
	}
	if reg.URL == "" {
		if reg.Name != "" {
			return "", fmt.Errorf("%w: %s", ErrRegistryURLMissing, reg.Name)
		}
		return "", ErrRegistryURLMissing
	}
	return reg.URL, nil
}
