package lsp

import (
	"context"
	"time"

	"github.com/corvid-dev/lspcore/internal/lsp/editor"
	"github.com/corvid-dev/lspcore/internal/lsp/symbol"
	"github.com/corvid-dev/lspcore/internal/plugin/api"
)

// SymbolicProvider implements api.SymbolicEditor over a Manager and
// DocumentManager, routing every operation through a symbol name path
// instead of a byte offset. It is the scripting surface's counterpart to
// Provider, which stays byte-offset based for completions/diagnostics/etc.
//
// SymbolicProvider is safe for concurrent use; Manager and DocumentManager
// already are.
type SymbolicProvider struct {
	manager *Manager
	dm      *DocumentManager
	timeout time.Duration
}

// SymbolicProviderOption configures a SymbolicProvider.
type SymbolicProviderOption func(*SymbolicProvider)

// WithSymbolicTimeout sets the per-request timeout.
func WithSymbolicTimeout(d time.Duration) SymbolicProviderOption {
	return func(p *SymbolicProvider) { p.timeout = d }
}

// NewSymbolicProvider creates a SymbolicProvider wrapping manager and dm.
// Panics if either is nil.
func NewSymbolicProvider(manager *Manager, dm *DocumentManager, opts ...SymbolicProviderOption) *SymbolicProvider {
	if manager == nil {
		panic("lsp: NewSymbolicProvider called with nil manager")
	}
	if dm == nil {
		panic("lsp: NewSymbolicProvider called with nil document manager")
	}

	p := &SymbolicProvider{manager: manager, dm: dm, timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *SymbolicProvider) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), p.timeout)
}

func (p *SymbolicProvider) ReplaceBody(bufferPath, namePath, newBody string) error {
	ctx, cancel := p.context()
	defer cancel()
	return editor.ReplaceBody(ctx, p.manager, p.dm, bufferPath, namePath, newBody)
}

func (p *SymbolicProvider) InsertAfterSymbol(bufferPath, namePath, text string) error {
	ctx, cancel := p.context()
	defer cancel()
	return editor.InsertAfterSymbol(ctx, p.manager, p.dm, bufferPath, namePath, text)
}

func (p *SymbolicProvider) InsertBeforeSymbol(bufferPath, namePath, text string) error {
	ctx, cancel := p.context()
	defer cancel()
	return editor.InsertBeforeSymbol(ctx, p.manager, p.dm, bufferPath, namePath, text)
}

func (p *SymbolicProvider) DeleteSymbol(bufferPath, namePath string) error {
	ctx, cancel := p.context()
	defer cancel()
	return editor.DeleteSymbol(ctx, p.manager, p.dm, bufferPath, namePath)
}

func (p *SymbolicProvider) RenameSymbol(bufferPath, namePath, newName string) ([]string, error) {
	ctx, cancel := p.context()
	defer cancel()

	result, err := editor.RenameSymbol(ctx, p.manager, p.dm, bufferPath, namePath, newName)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	return result.ModifiedFiles, nil
}

func (p *SymbolicProvider) HoverSymbol(bufferPath, namePath string) (*api.HoverInfo, error) {
	ctx, cancel := p.context()
	defer cancel()

	symbols, err := p.manager.DocumentSymbols(ctx, bufferPath)
	if err != nil {
		return nil, err
	}
	tree := symbol.BuildTree(FilePathToURI(bufferPath), bufferPath, symbols)
	sym, err := symbol.Resolve(tree, namePath)
	if err != nil {
		return nil, err
	}

	hover, err := p.manager.Hover(ctx, bufferPath, sym.SelectionRange.Start)
	if err != nil {
		return nil, err
	}
	if hover == nil {
		return nil, nil
	}
	return providerConvertHover(hover, ""), nil
}

func (p *SymbolicProvider) ReferencesSymbol(bufferPath, namePath string, includeDeclaration bool) ([]api.Location, error) {
	ctx, cancel := p.context()
	defer cancel()

	symbols, err := p.manager.DocumentSymbols(ctx, bufferPath)
	if err != nil {
		return nil, err
	}
	tree := symbol.BuildTree(FilePathToURI(bufferPath), bufferPath, symbols)
	sym, err := symbol.Resolve(tree, namePath)
	if err != nil {
		return nil, err
	}

	server, err := p.manager.ServerForFile(ctx, bufferPath)
	if err != nil {
		return nil, err
	}
	refs, err := server.References(ctx, bufferPath, sym.SelectionRange.Start, includeDeclaration)
	if err != nil {
		return nil, err
	}

	locs := make([]api.Location, len(refs))
	for i, loc := range refs {
		locs[i] = providerConvertLocation(loc, "")
	}
	return locs, nil
}

func (p *SymbolicProvider) ListSymbols(bufferPath string) ([]string, error) {
	ctx, cancel := p.context()
	defer cancel()

	symbols, err := p.manager.DocumentSymbols(ctx, bufferPath)
	if err != nil {
		return nil, err
	}
	tree := symbol.BuildTree(FilePathToURI(bufferPath), bufferPath, symbols)

	paths := make([]string, len(tree.All))
	for i, sym := range tree.All {
		paths[i] = sym.PathName
	}
	return paths, nil
}

// Verify SymbolicProvider implements api.SymbolicEditor.
var _ api.SymbolicEditor = (*SymbolicProvider)(nil)
