// Package pathutil provides project-relative path helpers used by the
// symbol and editor packages: membership checks that reject symlink or
// ".." escapes out of a project root, and gitignore-style filtering
// grounded on internal/project/watcher's pattern matcher.
package pathutil

import (
	"errors"
	"path/filepath"
	"strings"
)

// ErrOutsideProject indicates a path falls outside the project root.
var ErrOutsideProject = errors.New("path is outside the project")

// IsPathInProject reports whether p resolves to root or a descendant of
// root. Both paths are made absolute and cleaned first, so ".." segments
// in p are resolved against its parent before the comparison; this means
// a path that only *textually* contains ".." but normalizes back inside
// root (e.g. "sub/../file.go") is accepted, while one that walks out is
// not. Only the leaf component of p is symlink-resolved (via
// filepath.EvalSymlinks), not every parent directory, so a symlink that
// lives inside root but points elsewhere on disk still reads as in the
// project from the caller's point of view.
func IsPathInProject(root, p string) (bool, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false, err
	}
	absRoot = filepath.Clean(absRoot)

	absPath, err := filepath.Abs(p)
	if err != nil {
		return false, err
	}
	absPath = filepath.Clean(absPath)

	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		absPath = resolved
	}

	if absPath == absRoot {
		return true, nil
	}

	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return false, nil
	}
	if rel == "." {
		return true, nil
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false, nil
	}

	return true, nil
}

// RequireInProject is IsPathInProject but returns ErrOutsideProject
// instead of a false result, for call sites that want to fail fast.
func RequireInProject(root, p string) error {
	ok, err := IsPathInProject(root, p)
	if err != nil {
		return err
	}
	if !ok {
		return ErrOutsideProject
	}
	return nil
}
