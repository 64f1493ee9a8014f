package pathutil

import "github.com/corvid-dev/lspcore/internal/project/watcher"

// IgnoreSet wraps watcher.IgnorePatterns for callers in the lsp package
// tree that only need gitignore-style matching, without depending on the
// rest of internal/project/watcher's file-watching machinery.
type IgnoreSet struct {
	patterns *watcher.IgnorePatterns
}

// NewIgnoreSet builds an IgnoreSet from gitignore-syntax pattern lines.
func NewIgnoreSet(patterns ...string) (*IgnoreSet, error) {
	ip := watcher.NewIgnorePatterns()
	if err := ip.AddPatterns(patterns); err != nil {
		return nil, err
	}
	return &IgnoreSet{patterns: ip}, nil
}

// DefaultIgnoreSet builds an IgnoreSet from watcher.DefaultIgnorePatterns,
// the common VCS/dependency/build-output directories adapters should skip
// when walking a workspace for IsIgnoredDirname checks.
func DefaultIgnoreSet() *IgnoreSet {
	return &IgnoreSet{patterns: watcher.NewDefaultIgnorePatterns()}
}

// Ignores reports whether relPath (relative to the project root) should be
// skipped.
func (s *IgnoreSet) Ignores(relPath string, isDir bool) bool {
	return s.patterns.Match(relPath, isDir)
}
