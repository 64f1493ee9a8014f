// Command lspcore is a thin demonstration CLI over the library in this
// module: start a language server for a file's extension, then run one
// navigation or symbolic-edit operation against it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corvid-dev/lspcore/internal/lsp"
	"github.com/corvid-dev/lspcore/internal/lsp/adapter"
	"github.com/corvid-dev/lspcore/internal/lsp/depprovider"
	"github.com/corvid-dev/lspcore/internal/lsp/editor"
	"github.com/corvid-dev/lspcore/internal/lsp/symbol"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return 1
	}

	switch args[0] {
	case "version":
		fmt.Printf("lspcore %s (commit %s, built %s)\n", version, commit, date)
		return 0
	case "symbols":
		return runSymbols(args[1:])
	case "hover":
		return runHover(args[1:])
	case "replace-body":
		return runReplaceBody(args[1:])
	case "insert-after":
		return runInsertAfter(args[1:])
	case "rename":
		return runRename(args[1:])
	case "help", "-h", "--help":
		usage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "lspcore: unknown command %q\n", args[0])
		usage()
		return 1
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `lspcore - language server client and symbolic code editor

Usage:
  lspcore symbols <file>
  lspcore hover <file> <name-path>
  lspcore replace-body <file> <name-path> <new-body-file>
  lspcore insert-after <file> <name-path> <text-file>
  lspcore rename <file> <name-path> <new-name>
  lspcore version
`)
}

// rootContext returns a context canceled on SIGINT/SIGTERM, with a
// generous timeout covering server start-up plus one request.
func rootContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	return sigCtx, func() { stop(); cancel() }
}

// newManagerFor builds a Manager with a single language registered: the
// one whose adapter claims path's extension. The server itself is not
// started here; Manager starts it lazily on first request.
func newManagerFor(path string) (*lsp.Manager, error) {
	registry := adapter.NewRegistry()
	a, err := registry.ForFile(path)
	if err != nil {
		return nil, err
	}

	provider := depprovider.NewPathProvider(a.LaunchCommand("").Command)
	execPath, err := provider.Resolve(context.Background())
	if err != nil {
		return nil, fmt.Errorf("adapter %s: %w", a.LanguageID(), err)
	}

	config := a.LaunchCommand(execPath)
	if config.InitializationOptions == nil {
		config.InitializationOptions = a.InitializeParams()
	}

	manager := lsp.NewManager()
	manager.RegisterServer(a.LanguageID(), config)
	manager.SetWorkspaceFolders([]lsp.WorkspaceFolder{lsp.WorkspaceFolderFromPath(".")})
	return manager, nil
}

func runSymbols(args []string) int {
	fs := flag.NewFlagSet("symbols", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: lspcore symbols <file>")
		return 1
	}
	path := fs.Arg(0)

	ctx, cancel := rootContext()
	defer cancel()

	manager, err := newManagerFor(path)
	if err != nil {
		return fail(err)
	}
	defer manager.Shutdown(context.Background())

	symbols, err := manager.DocumentSymbols(ctx, path)
	if err != nil {
		return fail(err)
	}

	tree := symbol.BuildTree(lsp.FilePathToURI(path), path, symbols)
	for _, sym := range tree.All {
		fmt.Printf("%s\t%s\tline %d\n", sym.PathName, sym.Kind, sym.Range.Start.Line+1)
	}
	return 0
}

func runHover(args []string) int {
	fs := flag.NewFlagSet("hover", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "usage: lspcore hover <file> <name-path>")
		return 1
	}
	path, namePath := fs.Arg(0), fs.Arg(1)

	ctx, cancel := rootContext()
	defer cancel()

	manager, err := newManagerFor(path)
	if err != nil {
		return fail(err)
	}
	defer manager.Shutdown(context.Background())

	symbols, err := manager.DocumentSymbols(ctx, path)
	if err != nil {
		return fail(err)
	}
	tree := symbol.BuildTree(lsp.FilePathToURI(path), path, symbols)
	sym, err := symbol.Resolve(tree, namePath)
	if err != nil {
		return fail(err)
	}

	hover, err := manager.Hover(ctx, path, sym.SelectionRange.Start)
	if err != nil {
		return fail(err)
	}
	if hover == nil {
		fmt.Println("(no hover information)")
		return 0
	}
	fmt.Println(hover.Contents.Value)
	return 0
}

func runReplaceBody(args []string) int {
	fs := flag.NewFlagSet("replace-body", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 3 {
		fmt.Fprintln(os.Stderr, "usage: lspcore replace-body <file> <name-path> <new-body-file>")
		return 1
	}
	path, namePath, bodyFile := fs.Arg(0), fs.Arg(1), fs.Arg(2)

	body, err := os.ReadFile(bodyFile)
	if err != nil {
		return fail(err)
	}

	ctx, cancel := rootContext()
	defer cancel()

	manager, err := newManagerFor(path)
	if err != nil {
		return fail(err)
	}
	defer manager.Shutdown(context.Background())
	dm := lsp.NewDocumentManager(manager)

	if err := editor.ReplaceBody(ctx, manager, dm, path, namePath, string(body)); err != nil {
		return fail(err)
	}
	fmt.Println("ok")
	return 0
}

func runInsertAfter(args []string) int {
	fs := flag.NewFlagSet("insert-after", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 3 {
		fmt.Fprintln(os.Stderr, "usage: lspcore insert-after <file> <name-path> <text-file>")
		return 1
	}
	path, namePath, textFile := fs.Arg(0), fs.Arg(1), fs.Arg(2)

	text, err := os.ReadFile(textFile)
	if err != nil {
		return fail(err)
	}

	ctx, cancel := rootContext()
	defer cancel()

	manager, err := newManagerFor(path)
	if err != nil {
		return fail(err)
	}
	defer manager.Shutdown(context.Background())
	dm := lsp.NewDocumentManager(manager)

	if err := editor.InsertAfterSymbol(ctx, manager, dm, path, namePath, string(text)); err != nil {
		return fail(err)
	}
	fmt.Println("ok")
	return 0
}

func runRename(args []string) int {
	fs := flag.NewFlagSet("rename", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 3 {
		fmt.Fprintln(os.Stderr, "usage: lspcore rename <file> <name-path> <new-name>")
		return 1
	}
	path, namePath, newName := fs.Arg(0), fs.Arg(1), fs.Arg(2)

	ctx, cancel := rootContext()
	defer cancel()

	manager, err := newManagerFor(path)
	if err != nil {
		return fail(err)
	}
	defer manager.Shutdown(context.Background())
	dm := lsp.NewDocumentManager(manager)

	result, err := editor.RenameSymbol(ctx, manager, dm, path, namePath, newName)
	if err != nil {
		return fail(err)
	}
	for _, f := range result.ModifiedFiles {
		fmt.Println(f)
	}
	return 0
}

func fail(err error) int {
	if errors.Is(err, context.Canceled) {
		return 130
	}
	fmt.Fprintf(os.Stderr, "lspcore: %v\n", err)
	return 1
}
