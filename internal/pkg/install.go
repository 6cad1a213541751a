package pkg

import (
	"context"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"stof/internal/client"
	"stof/internal/manifest"
)

// Installer downloads packages from registries and unpacks them, with
// their transitive dependencies, into a workspace's install directory.
type Installer struct {
	client *client.Client
	logger *log.Logger
}

// NewInstaller creates an Installer around a shared registry client.
func NewInstaller(c *client.Client, logger *log.Logger) *Installer {
	if logger == nil {
		logger = log.Default()
	}
	return &Installer{client: c, logger: logger}
}

// installTask is one pending package on the worklist.
type installTask struct {
	name       string
	registry   string
	transitive bool
}

// Install resolves pkgSpec against the workspace manifest's registries,
// downloads and unpacks it under the install directory, then walks its
// dependencies depth-first in declaration order. A visited set keyed by
// stripped name makes revisits (including cycles) no-ops. Registries are
// always resolved against the workspace manifest, re-read per package so
// nothing is cached across operations.
func (in *Installer) Install(ctx context.Context, workspaceDir, pkgSpec, registryName string, creds *client.Credentials) error {
	stack := []installTask{{name: pkgSpec, registry: registryName}}
	visited := make(map[string]bool)

	for len(stack) > 0 {
		task := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		stripped := manifest.StripName(task.name)
		if visited[stripped] {
			continue
		}
		visited[stripped] = true

		installed, err := in.installOne(ctx, workspaceDir, task, stripped, creds)
		if err != nil {
			if !task.transitive {
				return err
			}
			// A failed transitive dependency does not block its siblings.
			in.logger.Error("failed to add dependency", "package", task.name, "err", err)
			continue
		}

		// Push in reverse so declaration order is installed first.
		deps := installed.Dependencies
		for i := len(deps) - 1; i >= 0; i-- {
			stack = append(stack, installTask{
				name:       deps[i].Name,
				registry:   deps[i].Registry,
				transitive: true,
			})
		}

		if task.transitive {
			in.logger.Info("added dependency", "package", task.name)
		} else {
			in.logger.Info("added", "package", task.name)
		}
	}
	return nil
}

// installOne performs a single download-and-unpack and returns the
// installed package's manifest (empty when the package carries none).
func (in *Installer) installOne(ctx context.Context, workspaceDir string, task installTask, stripped string, creds *client.Credentials) (*manifest.Manifest, error) {
	ws, err := manifest.Load(workspaceDir)
	if err != nil {
		return nil, err
	}

	url, err := ws.RegistryURL(task.registry)
	if err != nil {
		return nil, err
	}

	data, err := in.client.Download(ctx, url, stripped, creds)
	if err != nil {
		return nil, err
	}

	destDir := filepath.Join(workspaceDir, InstallDirName, filepath.FromSlash(stripped))
	if err := os.RemoveAll(destDir); err != nil {
		return nil, err
	}
	if err := Extract(data, destDir); err != nil {
		return nil, err
	}

	installed, err := manifest.Load(destDir)
	if err != nil {
		// Packages without a manifest simply have no dependencies.
		return &manifest.Manifest{}, nil
	}
	return installed, nil
}

// Remove deletes an installed package from the workspace. It reports
// success when the directory is gone afterwards, which includes the case
// where it never existed.
func Remove(workspaceDir, name string) bool {
	dir := filepath.Join(workspaceDir, InstallDirName, filepath.FromSlash(manifest.StripName(name)))
	return os.RemoveAll(dir) == nil
}
