package watcher

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// IgnorePatterns manages gitignore-style file ignore rules.
// It supports patterns like:
//   - *.log       - match files ending in .log
//   - /build/     - match build directory at root
//   - **/node_modules/** - match node_modules anywhere
//   - !important.log - negate (don't ignore) important.log
type IgnorePatterns struct {
	mu       sync.RWMutex
	patterns []ignorePattern
}

// ignorePattern represents a single ignore pattern.
type ignorePattern struct {
	original string // Original pattern string
	pattern  string // Normalized pattern
	negation bool   // Pattern starts with !
	dirOnly  bool   // Pattern ends with /
	rooted   bool   // Pattern starts with /
}

// NewIgnorePatterns creates a new ignore pattern matcher.
func NewIgnorePatterns() *IgnorePatterns {
	return &IgnorePatterns{
		patterns: make([]ignorePattern, 0),
	}
}

// AddPattern adds an ignore pattern (gitignore syntax).
// Returns an error if the pattern is invalid.
func (ip *IgnorePatterns) AddPattern(pattern string) error {
	if pattern == "" || pattern == "#" {
		return nil // Skip empty or comment-only lines
	}

	// Skip comments
	if strings.HasPrefix(pattern, "#") {
		return nil
	}

	// Trim trailing spaces (unless escaped)
	pattern = strings.TrimRight(pattern, " \t")
	if pattern == "" {
		return nil
	}

	p := ignorePattern{
		original: pattern,
	}

	// Check for negation
	if strings.HasPrefix(pattern, "!") {
		p.negation = true
		pattern = pattern[1:]
	}

	// Check for directory-only
	if strings.HasSuffix(pattern, "/") {
		p.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}

	// Check for rooted pattern
	if strings.HasPrefix(pattern, "/") {
		p.rooted = true
		pattern = pattern[1:]
	}

	p.pattern = pattern

	ip.mu.Lock()
	ip.patterns = append(ip.patterns, p)
	ip.mu.Unlock()

	return nil
}

// AddPatterns adds multiple ignore patterns.
func (ip *IgnorePatterns) AddPatterns(patterns []string) error {
	for _, pattern := range patterns {
		if err := ip.AddPattern(pattern); err != nil {
			return err
		}
	}
	return nil
}

// AddFromFile loads patterns from a file (e.g., .gitignore).
// Each line is treated as a pattern.
func (ip *IgnorePatterns) AddFromFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if err := ip.AddPattern(line); err != nil {
			return err
		}
	}

	return scanner.Err()
}

// Match returns true if the path should be ignored.
// basePath is used to make relative comparisons for rooted patterns.
func (ip *IgnorePatterns) Match(path string, isDir bool) bool {
	return ip.MatchRelative(path, "", isDir)
}

// MatchRelative checks if path should be ignored, relative to basePath.
func (ip *IgnorePatterns) MatchRelative(path, basePath string, isDir bool) bool {
	ip.mu.RLock()
	defer ip.mu.RUnlock()

	// Get relative path if basePath is provided
	relPath := path
	if basePath != "" {
		rel, err := filepath.Rel(basePath, path)
		if err == nil {
			relPath = rel
		}
	}

	// Normalize path separators
	relPath = filepath.ToSlash(relPath)

	// Check each pattern in order (later patterns can override earlier ones)
	ignored := false
	for _, p := range ip.patterns {
		if p.dirOnly && !isDir {
			continue // Pattern only applies to directories
		}

		matched := ip.matchPattern(p, relPath, isDir)
		if matched {
			ignored = !p.negation
		}
	}

	return ignored
}

// matchPattern checks if a path matches a single pattern. Glob matching
// (including "**" components) is delegated to doublestar so patterns like
// "**/node_modules/**" behave the way git itself interprets them.
func (ip *IgnorePatterns) matchPattern(p ignorePattern, relPath string, isDir bool) bool {
	pattern := p.pattern

	// Handle rooted patterns - only match at root level
	if p.rooted {
		// For rooted patterns, check if the first path component matches
		// e.g., /build should only match "build" or "build/..." but not "src/build"
		if strings.Contains(pattern, "/") || strings.Contains(pattern, "**") {
			return ip.matchGlob(pattern, relPath)
		}
		parts := strings.SplitN(relPath, "/", 2)
		return ip.matchGlob(pattern, parts[0])
	}

	// Non-rooted patterns can match at any level
	// Try matching against full path
	if ip.matchGlob(pattern, relPath) {
		return true
	}

	// Try matching against just the filename
	if !strings.Contains(pattern, "/") {
		if ip.matchGlob(pattern, filepath.Base(relPath)) {
			return true
		}
	}

	// Try matching against path suffixes, so "build/*.o" ignores src/build/*.o too
	parts := strings.Split(relPath, "/")
	for i := range parts {
		suffix := strings.Join(parts[i:], "/")
		if ip.matchGlob(pattern, suffix) {
			return true
		}
	}

	return false
}

// matchGlob matches a pattern against a path, understanding "**" the way
// gitignore does (match zero or more path components).
func (ip *IgnorePatterns) matchGlob(pattern, path string) bool {
	if matched, _ := doublestar.Match(pattern, path); matched {
		return true
	}
	if !strings.Contains(pattern, "/") {
		if matched, _ := doublestar.Match(pattern, filepath.Base(path)); matched {
			return true
		}
	}
	return false
}

// Clear removes all patterns.
func (ip *IgnorePatterns) Clear() {
	ip.mu.Lock()
	defer ip.mu.Unlock()
	ip.patterns = ip.patterns[:0]
}

// Count returns the number of patterns.
func (ip *IgnorePatterns) Count() int {
	ip.mu.RLock()
	defer ip.mu.RUnlock()
	return len(ip.patterns)
}

// Patterns returns a copy of all patterns.
func (ip *IgnorePatterns) Patterns() []string {
	ip.mu.RLock()
	defer ip.mu.RUnlock()

	patterns := make([]string, len(ip.patterns))
	for i, p := range ip.patterns {
		patterns[i] = p.original
	}
	return patterns
}

// DefaultIgnorePatterns are common patterns to ignore in most projects.
var DefaultIgnorePatterns = []string{
	// Version control
	".git/",
	".svn/",
	".hg/",

	// Dependencies
	"node_modules/",
	"vendor/",
	".venv/",
	"venv/",
	"__pycache__/",
	"*.pyc",

	// Build outputs
	"dist/",
	"build/",
	"out/",
	"target/",
	"bin/",
	"obj/",

	// IDE/Editor
	".idea/",
	".vscode/",
	".vs/",
	"*.swp",
	"*.swo",
	"*~",

	// OS
	".DS_Store",
	"Thumbs.db",

	// Logs and temp
	"*.log",
	"tmp/",
	"temp/",
}

// NewDefaultIgnorePatterns creates an IgnorePatterns with default patterns.
func NewDefaultIgnorePatterns() *IgnorePatterns {
	ip := NewIgnorePatterns()
	_ = ip.AddPatterns(DefaultIgnorePatterns)
	return ip
}
