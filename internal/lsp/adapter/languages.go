package adapter

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/corvid-dev/lspcore/internal/lsp"
)

// GoAdapter adapts gopls.
type GoAdapter struct {
	BaseAdapter
}

// NewGoAdapter creates the gopls adapter.
func NewGoAdapter() GoAdapter {
	return GoAdapter{NewBaseAdapter("go", "gopls", []string{"serve"},
		WithIgnoredDirs("vendor", "bin", "testdata"),
		WithExtensions("go"),
	)}
}

func (a GoAdapter) InitializeParams() any {
	return map[string]any{
		"gofumpt":     false,
		"usePlaceholders": true,
		"staticcheck": true,
	}
}

// RustAdapter adapts rust-analyzer.
type RustAdapter struct {
	BaseAdapter
}

func NewRustAdapter() RustAdapter {
	return RustAdapter{NewBaseAdapter("rust", "rust-analyzer", nil,
		WithIgnoredDirs("target"),
		WithExtensions("rs"),
	)}
}

func (a RustAdapter) OnStart(ctx context.Context, server *lsp.Server) error {
	// rust-analyzer reports ready before its initial crate graph load has
	// produced usable symbols; give it a short settle window.
	select {
	case <-time.After(500 * time.Millisecond):
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// TypeScriptAdapter adapts typescript-language-server, serving both
// TypeScript and JavaScript (and their React variants).
type TypeScriptAdapter struct {
	BaseAdapter
}

func NewTypeScriptAdapter() TypeScriptAdapter {
	return TypeScriptAdapter{NewBaseAdapter("typescript", "typescript-language-server", []string{"--stdio"},
		WithIgnoredDirs("node_modules", "dist", "build"),
		WithExtensions("ts", "tsx", "js", "jsx", "mjs", "cjs"),
	)}
}

func (a TypeScriptAdapter) LanguageIDForFile(path string) (string, bool) {
	switch {
	case hasExt(path, "tsx"):
		return "typescriptreact", true
	case hasExt(path, "ts"):
		return "typescript", true
	case hasExt(path, "jsx"):
		return "javascriptreact", true
	case hasExt(path, "js"), hasExt(path, "mjs"), hasExt(path, "cjs"):
		return "javascript", true
	default:
		return "", false
	}
}

// PythonAdapter adapts python-lsp-server (pylsp).
type PythonAdapter struct {
	BaseAdapter
}

func NewPythonAdapter() PythonAdapter {
	return PythonAdapter{NewBaseAdapter("python", "pylsp", nil,
		WithIgnoredDirs("__pycache__", ".venv", "venv", ".tox"),
		WithExtensions("py", "pyi"),
	)}
}

func (a PythonAdapter) InitializeParams() any {
	return map[string]any{
		"pylsp": map[string]any{
			"plugins": map[string]any{
				"pycodestyle": map[string]any{"enabled": false},
			},
		},
	}
}

// CFamilyAdapter adapts clangd, serving both C and C++.
type CFamilyAdapter struct {
	BaseAdapter
}

func NewCFamilyAdapter() CFamilyAdapter {
	return CFamilyAdapter{NewBaseAdapter("cpp", "clangd", []string{"--background-index"},
		WithIgnoredDirs("build", "cmake-build-debug"),
		WithExtensions("c", "h", "cpp", "cc", "cxx", "hpp"),
	)}
}

func (a CFamilyAdapter) LanguageIDForFile(path string) (string, bool) {
	switch {
	case hasExt(path, "c"), hasExt(path, "h"):
		return "c", true
	case hasExt(path, "cpp"), hasExt(path, "cc"), hasExt(path, "cxx"), hasExt(path, "hpp"):
		return "cpp", true
	default:
		return "", false
	}
}

// VueAdapter adapts vue-language-server (Volar), which needs a longer
// post-initialize settle window than most servers and returns both hover
// markdown and document symbols in a shape that needs normalizing before
// they reach the rest of the module: hover content wrapped in an extra
// paragraph boundary, and symbol trees with duplicate "<script setup>"
// entries nested under the root template symbol.
type VueAdapter struct {
	BaseAdapter

	// SettleDelay is how long OnStart waits after the server reports
	// ready before returning, letting Volar finish its initial template
	// compile. Defaults to 2s (4s on Windows, where MSBuild-backed
	// projects are observed to take longer to warm up).
	SettleDelay time.Duration
}

// VueAdapterOption configures a VueAdapter.
type VueAdapterOption func(*VueAdapter)

// WithSettleDelay overrides the default post-initialize settle window.
func WithSettleDelay(d time.Duration) VueAdapterOption {
	return func(a *VueAdapter) { a.SettleDelay = d }
}

func NewVueAdapter(opts ...VueAdapterOption) VueAdapter {
	settle := 2 * time.Second
	if runtime.GOOS == "windows" {
		settle = 4 * time.Second
	}
	a := VueAdapter{
		BaseAdapter: NewBaseAdapter("vue", "vue-language-server", []string{"--stdio"},
			WithIgnoredDirs("node_modules", "dist"),
			WithExtensions("vue"),
		),
		SettleDelay: settle,
	}
	for _, opt := range opts {
		opt(&a)
	}
	return a
}

func (a VueAdapter) OnStart(ctx context.Context, server *lsp.Server) error {
	select {
	case <-time.After(a.SettleDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (a VueAdapter) DocumentSymbolsPost(symbols []lsp.DocumentSymbol) []lsp.DocumentSymbol {
	out := make([]lsp.DocumentSymbol, 0, len(symbols))
	seen := make(map[string]bool)
	for _, sym := range symbols {
		key := fmt.Sprintf("%s|%d:%d", sym.Name, sym.Range.Start.Line, sym.Range.Start.Character)
		if seen[key] {
			continue
		}
		seen[key] = true
		sym.Children = a.DocumentSymbolsPost(sym.Children)
		out = append(out, sym)
	}
	return out
}

func (a VueAdapter) HoverPost(hover *lsp.Hover) *lsp.Hover {
	if hover == nil {
		return nil
	}
	hover.Contents.Value = strings.TrimSpace(strings.ReplaceAll(hover.Contents.Value, "\n\n\n", "\n\n"))
	return hover
}

// HaskellAdapter adapts haskell-language-server-wrapper, which needs a
// long post-initialize settle window while it resolves the project's
// cabal/stack plan before it can answer navigation requests usefully.
type HaskellAdapter struct {
	BaseAdapter

	// SettleDelay defaults to 5s per observed haskell-language-server
	// start-up behavior on a cold cabal build plan.
	SettleDelay time.Duration
}

// HaskellAdapterOption configures a HaskellAdapter.
type HaskellAdapterOption func(*HaskellAdapter)

// WithHaskellSettleDelay overrides the default post-initialize settle window.
func WithHaskellSettleDelay(d time.Duration) HaskellAdapterOption {
	return func(a *HaskellAdapter) { a.SettleDelay = d }
}

func NewHaskellAdapter(opts ...HaskellAdapterOption) HaskellAdapter {
	a := HaskellAdapter{
		BaseAdapter: NewBaseAdapter("haskell", "haskell-language-server-wrapper", []string{"--lsp"},
			WithIgnoredDirs("dist-newstyle", ".stack-work"),
			WithExtensions("hs", "lhs"),
		),
		SettleDelay: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(&a)
	}
	return a
}

func (a HaskellAdapter) OnStart(ctx context.Context, server *lsp.Server) error {
	select {
	case <-time.After(a.SettleDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// SwiftAdapter adapts sourcekit-lsp, which under CI runners (slower disk,
// cold module cache) needs a longer settle window than on a developer
// machine.
type SwiftAdapter struct {
	BaseAdapter

	// SettleDelay defaults to 15s, matching observed sourcekit-lsp
	// start-up latency in CI environments.
	SettleDelay time.Duration
}

// SwiftAdapterOption configures a SwiftAdapter.
type SwiftAdapterOption func(*SwiftAdapter)

// WithSwiftSettleDelay overrides the default post-initialize settle window.
func WithSwiftSettleDelay(d time.Duration) SwiftAdapterOption {
	return func(a *SwiftAdapter) { a.SettleDelay = d }
}

func NewSwiftAdapter(opts ...SwiftAdapterOption) SwiftAdapter {
	a := SwiftAdapter{
		BaseAdapter: NewBaseAdapter("swift", "sourcekit-lsp", nil,
			WithIgnoredDirs(".build"),
			WithExtensions("swift"),
		),
		SettleDelay: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(&a)
	}
	return a
}

func (a SwiftAdapter) OnStart(ctx context.Context, server *lsp.Server) error {
	select {
	case <-time.After(a.SettleDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}
