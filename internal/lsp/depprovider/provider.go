// Package depprovider resolves the executable for a language server: by
// searching $PATH and declared extra directories (PathProvider), or by
// downloading and installing a pinned GitHub release (InstallProvider).
// The teacher this module is built from assumes servers are already
// installed; this package is built fresh to remove that assumption.
package depprovider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// ErrNotFound indicates no provider could locate a usable executable.
var ErrNotFound = errors.New("language server executable not found")

// Provider resolves the path to a language server's executable.
type Provider interface {
	// Resolve returns an absolute path to a runnable executable, or
	// ErrNotFound (wrapped with the locations searched) if none exists.
	Resolve(ctx context.Context) (string, error)

	// Name identifies the provider for logging/diagnostics.
	Name() string
}

// PathProvider searches $PATH plus a list of extra directories for a
// named executable.
type PathProvider struct {
	binaryName string
	extraDirs  []string
}

// PathProviderOption configures a PathProvider.
type PathProviderOption func(*PathProvider)

// WithExtraSearchDirs adds additional directories to search before $PATH.
func WithExtraSearchDirs(dirs ...string) PathProviderOption {
	return func(p *PathProvider) {
		p.extraDirs = append(p.extraDirs, dirs...)
	}
}

// NewPathProvider creates a Provider that looks for binaryName.
func NewPathProvider(binaryName string, opts ...PathProviderOption) *PathProvider {
	p := &PathProvider{binaryName: binaryName}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *PathProvider) Name() string { return "path:" + p.binaryName }

// Resolve searches extra directories first, then $PATH.
func (p *PathProvider) Resolve(ctx context.Context) (string, error) {
	searched := make([]string, 0, len(p.extraDirs)+1)

	for _, dir := range p.extraDirs {
		candidate := filepath.Join(dir, p.binaryName)
		searched = append(searched, candidate)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() && isExecutable(info) {
			return candidate, nil
		}
	}

	if found, err := exec.LookPath(p.binaryName); err == nil {
		return found, nil
	}
	searched = append(searched, "$PATH")

	return "", fmt.Errorf("%w: %s searched %v", ErrNotFound, p.binaryName, searched)
}

func isExecutable(info os.FileInfo) bool {
	return info.Mode()&0o111 != 0
}
