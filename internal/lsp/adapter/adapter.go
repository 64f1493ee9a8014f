// Package adapter provides a polymorphic, per-language contract around
// internal/lsp's generic Server/Manager: how to launch a server, what to
// send it during initialize, what to wait for after start, which
// directories it never needs to see, and how to reshape its responses
// where a server's behavior needs normalizing (markdown hover content,
// duplicate document symbols, and similar quirks real servers have).
package adapter

import (
	"context"
	"fmt"
	"sync"

	"github.com/corvid-dev/lspcore/internal/lsp"
)

// Adapter adapts one language server's quirks to the generic Manager.
type Adapter interface {
	// LanguageID is the LSP language identifier this adapter serves, e.g. "go".
	LanguageID() string

	// LaunchCommand returns the ServerConfig used to start the server.
	// Resolution of the executable path (PATH search or install) happens
	// before this is called; cmd is the resolved executable.
	LaunchCommand(cmd string) lsp.ServerConfig

	// InitializeParams returns adapter-specific initializationOptions sent
	// during the initialize handshake, or nil if the server needs none.
	InitializeParams() any

	// OnStart runs after the server reaches ServerStatusReady and before
	// the adapter is handed back to its caller. Servers that need a
	// settling period after initialize (index warm-up, workspace scan)
	// block here for as long as the adapter requires.
	OnStart(ctx context.Context, server *lsp.Server) error

	// IsIgnoredDirname reports whether dirname should never be descended
	// into on this language's behalf (build output, vendored deps, caches).
	IsIgnoredDirname(dirname string) bool

	// LanguageIDForFile reports whether path belongs to this adapter, and
	// if so the language ID to report for it. Most adapters only claim
	// their own LanguageID's default extensions and return ok=false
	// otherwise, deferring to lsp.DetectLanguageID.
	LanguageIDForFile(path string) (languageID string, ok bool)

	// DocumentSymbolsPost reshapes a DocumentSymbols response before it
	// reaches the symbol tree builder. The default (BaseAdapter) returns
	// symbols unchanged.
	DocumentSymbolsPost(symbols []lsp.DocumentSymbol) []lsp.DocumentSymbol

	// HoverPost reshapes a Hover response before it reaches the caller.
	// The default (BaseAdapter) returns hover unchanged.
	HoverPost(hover *lsp.Hover) *lsp.Hover
}

// BaseAdapter implements Adapter with conservative no-op defaults. Concrete
// adapters embed it and override only what their server needs.
type BaseAdapter struct {
	languageID    string
	command       string
	args          []string
	ignoredDirs   map[string]bool
	fileExtension map[string]bool
}

// BaseAdapterOption configures a BaseAdapter.
type BaseAdapterOption func(*BaseAdapter)

// WithIgnoredDirs adds directory basenames this language's servers never
// need to descend into.
func WithIgnoredDirs(dirs ...string) BaseAdapterOption {
	return func(b *BaseAdapter) {
		for _, d := range dirs {
			b.ignoredDirs[d] = true
		}
	}
}

// WithExtensions claims additional file extensions (without a leading dot)
// for this adapter's LanguageIDForFile.
func WithExtensions(exts ...string) BaseAdapterOption {
	return func(b *BaseAdapter) {
		for _, e := range exts {
			b.fileExtension[e] = true
		}
	}
}

// NewBaseAdapter creates a BaseAdapter that launches command with args for
// languageID.
func NewBaseAdapter(languageID, command string, args []string, opts ...BaseAdapterOption) BaseAdapter {
	b := BaseAdapter{
		languageID:    languageID,
		command:       command,
		args:          args,
		ignoredDirs:   make(map[string]bool),
		fileExtension: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b BaseAdapter) LanguageID() string { return b.languageID }

func (b BaseAdapter) LaunchCommand(cmd string) lsp.ServerConfig {
	return lsp.ServerConfig{
		Command:     cmd,
		Args:        b.args,
		LanguageIDs: []string{b.languageID},
	}
}

func (b BaseAdapter) InitializeParams() any { return nil }

func (b BaseAdapter) OnStart(ctx context.Context, server *lsp.Server) error { return nil }

func (b BaseAdapter) IsIgnoredDirname(dirname string) bool {
	return b.ignoredDirs[dirname]
}

func (b BaseAdapter) LanguageIDForFile(path string) (string, bool) {
	for ext := range b.fileExtension {
		if hasExt(path, ext) {
			return b.languageID, true
		}
	}
	return "", false
}

func (b BaseAdapter) DocumentSymbolsPost(symbols []lsp.DocumentSymbol) []lsp.DocumentSymbol {
	return symbols
}

func (b BaseAdapter) HoverPost(hover *lsp.Hover) *lsp.Hover { return hover }

func hasExt(path, ext string) bool {
	n, e := len(path), len(ext)+1
	return n >= e && path[n-e] == '.' && path[n-e+1:] == ext
}

// Registry maps language IDs to their Adapter.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry creates a Registry seeded with the built-in adapters.
func NewRegistry() *Registry {
	r := &Registry{adapters: make(map[string]Adapter)}
	for _, a := range builtins() {
		r.Register(a)
	}
	return r
}

// Register adds or replaces the adapter for its LanguageID.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.LanguageID()] = a
}

// Get returns the adapter registered for languageID, if any.
func (r *Registry) Get(languageID string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[languageID]
	return a, ok
}

// ForFile returns the adapter claiming path, trying each registered
// adapter's LanguageIDForFile before falling back to lsp.DetectLanguageID.
func (r *Registry) ForFile(path string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.adapters {
		if _, ok := a.LanguageIDForFile(path); ok {
			return a, nil
		}
	}
	languageID := lsp.DetectLanguageID(path)
	if a, ok := r.adapters[languageID]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("adapter: no adapter registered for %s", path)
}

func builtins() []Adapter {
	return []Adapter{
		NewGoAdapter(),
		NewRustAdapter(),
		NewTypeScriptAdapter(),
		NewPythonAdapter(),
		NewCFamilyAdapter(),
		NewVueAdapter(),
		NewHaskellAdapter(),
		NewSwiftAdapter(),
	}
}
