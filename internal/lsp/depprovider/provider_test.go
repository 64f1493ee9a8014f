package depprovider

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestPathProvider_Name(t *testing.T) {
	p := NewPathProvider("gopls")
	if p.Name() != "path:gopls" {
		t.Errorf("expected path:gopls, got %s", p.Name())
	}
}

func TestPathProvider_Resolve_NotFound(t *testing.T) {
	p := NewPathProvider("definitely-not-a-real-binary-xyz")
	_, err := p.Resolve(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPathProvider_Resolve_ExtraDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("executable bit semantics differ on windows")
	}

	dir := t.TempDir()
	binPath := filepath.Join(dir, "fake-lsp")
	if err := os.WriteFile(binPath, []byte("#!/bin/sh\necho hi\n"), 0o755); err != nil {
		t.Fatalf("failed to write fixture binary: %v", err)
	}

	p := NewPathProvider("fake-lsp", WithExtraSearchDirs(dir))
	got, err := p.Resolve(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != binPath {
		t.Errorf("expected %s, got %s", binPath, got)
	}
}

func TestPathProvider_Resolve_ExtraDirSkipsNonExecutable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("executable bit semantics differ on windows")
	}

	dir := t.TempDir()
	binPath := filepath.Join(dir, "fake-lsp")
	if err := os.WriteFile(binPath, []byte("not executable"), 0o644); err != nil {
		t.Fatalf("failed to write fixture file: %v", err)
	}

	p := NewPathProvider("fake-lsp", WithExtraSearchDirs(dir))
	if _, err := p.Resolve(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for non-executable candidate, got %v", err)
	}
}
