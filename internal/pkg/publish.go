package pkg

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/log"

	"stof/internal/client"
	"stof/internal/manifest"
)

// Publisher uploads a package's archive to the registries named in its
// manifest, and removes it from them again.
type Publisher struct {
	client *client.Client
	logger *log.Logger
}

// NewPublisher creates a Publisher around a shared registry client.
func NewPublisher(c *client.Client, logger *log.Logger) *Publisher {
	if logger == nil {
		logger = log.Default()
	}
	return &Publisher{client: c, logger: logger}
}

// PublishResult is the per-registry outcome of a publish or unpublish.
type PublishResult struct {
	URL  string
	Text string
	Err  error
}

// publishTargets loads the manifest and picks the target registries:
// the publish list, or a single named registry when one is requested.
func publishTargets(dir, registryName string) (*manifest.Manifest, []manifest.Registry, error) {
	m, err := manifest.Load(dir)
	if err != nil {
		return nil, nil, err
	}

	if registryName != "" {
		reg, err := m.ResolveRegistry(registryName)
		if err != nil {
			return nil, nil, err
		}
		if m.Name == "" {
			return nil, nil, fmt.Errorf("%w: missing package name", manifest.ErrInvalidManifest)
		}
		return m, []manifest.Registry{reg}, nil
	}

	if m.Name == "" || len(m.Publish) == 0 {
		return nil, nil, fmt.Errorf("%w: missing package name or empty publish list", manifest.ErrInvalidManifest)
	}
	return m, m.Publish, nil
}

// Publish archives the package at dir and uploads it to every target
// registry concurrently. Every upload runs to completion; one registry
// failing does not stop or cancel the others. The result slice matches
// the registry declaration order.
func (p *Publisher) Publish(ctx context.Context, dir, registryName string, creds *client.Credentials) ([]PublishResult, error) {
	m, targets, err := publishTargets(dir, registryName)
	if err != nil {
		return nil, err
	}

	archivePath, err := CreateTempArchive(dir, m.Include, m.Exclude)
	if err != nil {
		return nil, err
	}
	defer os.Remove(archivePath)

	data, err := os.ReadFile(archivePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchive, err)
	}

	stripped := m.StrippedName()
	results := make([]PublishResult, len(targets))

	var wg sync.WaitGroup
	for i, reg := range targets {
		wg.Add(1)
		go func(i int, reg manifest.Registry) {
			defer wg.Done()
			results[i].URL = reg.URL
			if reg.URL == "" {
				results[i].Err = manifest.ErrRegistryURLMissing
				return
			}
			text, err := p.client.Upload(ctx, reg.URL, stripped, data, creds)
			results[i].Text = text
			results[i].Err = err
		}(i, reg)
	}
	wg.Wait()

	for _, res := range results {
		if res.Err != nil {
			p.logger.Error("publish", "package", m.Name, "registry", res.URL, "err", res.Err)
		} else {
			p.logger.Info("published", "package", m.Name, "registry", res.URL)
		}
	}
	return results, nil
}

// Unpublish deletes the package from every target registry, one at a
// time, accumulating the per-registry response text.
func (p *Publisher) Unpublish(ctx context.Context, dir, registryName string, creds *client.Credentials) ([]PublishResult, error) {
	m, targets, err := publishTargets(dir, registryName)
	if err != nil {
		return nil, err
	}

	stripped := m.StrippedName()
	results := make([]PublishResult, 0, len(targets))
	for _, reg := range targets {
		res := PublishResult{URL: reg.URL}
		if reg.URL == "" {
			res.Err = manifest.ErrRegistryURLMissing
		} else {
			res.Text, res.Err = p.client.Remove(ctx, reg.URL, stripped, creds)
		}
		if res.Err != nil {
			p.logger.Error("unpublish", "package", m.Name, "registry", res.URL, "err", res.Err)
		} else {
			p.logger.Info("unpublished", "package", m.Name, "registry", res.URL)
		}
		results = append(results, res)
	}
	return results, nil
}
