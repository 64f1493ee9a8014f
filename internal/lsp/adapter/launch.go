package adapter

import (
	"context"
	"fmt"

	"github.com/corvid-dev/lspcore/internal/lsp"
	"github.com/corvid-dev/lspcore/internal/lsp/depprovider"
)

// Launch resolves a's executable via provider, starts the server, waits
// through initialize, and runs OnStart's settling period before returning.
// It returns the started server and the state reached. If OnStart fails
// after the server has already started, the server is returned alongside
// the error so the caller can decide whether to shut it down or retry.
func Launch(ctx context.Context, a Adapter, provider depprovider.Provider, workspaceFolders []lsp.WorkspaceFolder) (*lsp.Server, State, error) {
	execPath, err := provider.Resolve(ctx)
	if err != nil {
		return nil, StateFailed, fmt.Errorf("adapter %s: resolve executable: %w", a.LanguageID(), err)
	}

	config := a.LaunchCommand(execPath)
	if config.InitializationOptions == nil {
		config.InitializationOptions = a.InitializeParams()
	}

	server := lsp.NewServer(config, a.LanguageID())
	if err := server.Start(ctx, workspaceFolders); err != nil {
		return nil, StateFailed, fmt.Errorf("adapter %s: start: %w", a.LanguageID(), err)
	}

	if err := a.OnStart(ctx, server); err != nil {
		return server, StateFailed, fmt.Errorf("adapter %s: post-start: %w", a.LanguageID(), err)
	}

	return server, StateFor(server.Status()), nil
}
