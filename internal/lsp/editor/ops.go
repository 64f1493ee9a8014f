package editor

import (
	"context"
	"strings"

	"github.com/corvid-dev/lspcore/internal/lsp"
	"github.com/corvid-dev/lspcore/internal/lsp/symbol"
)

// definitionSeparatedKinds are symbol kinds that conventionally want at
// least a blank line of separation from what comes before/after them,
// matching how a human editing the file by hand would space things out.
var definitionSeparatedKinds = map[lsp.SymbolKind]bool{
	lsp.SymbolKindFunction:  true,
	lsp.SymbolKindMethod:    true,
	lsp.SymbolKindClass:     true,
	lsp.SymbolKindInterface: true,
	lsp.SymbolKindStruct:    true,
}

func resolveSymbol(ctx context.Context, manager *lsp.Manager, path, namePath string) (*symbol.Tree, *symbol.Symbol, error) {
	symbols, err := manager.DocumentSymbols(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	tree := symbol.BuildTree(lsp.FilePathToURI(path), path, symbols)
	sym, err := symbol.Resolve(tree, namePath)
	if err != nil {
		return tree, nil, err
	}
	return tree, sym, nil
}

func applyAndPersist(dm *lsp.DocumentManager, path string, edits []lsp.TextEdit) error {
	handle, err := dm.Acquire(path, lsp.DetectLanguageID(path))
	if err != nil {
		return err
	}
	defer handle.Release()

	if err := dm.ApplyTextEdits(path, edits); err != nil {
		return err
	}

	content, _ := dm.GetContent(path)
	return writeFile(path, content)
}

// ReplaceBody replaces a symbol's full range (signature plus body, as
// reported by the server's DocumentSymbol.Range) with newBody.
func ReplaceBody(ctx context.Context, manager *lsp.Manager, dm *lsp.DocumentManager, path, namePath, newBody string) error {
	_, sym, err := resolveSymbol(ctx, manager, path, namePath)
	if err != nil {
		return err
	}
	return applyAndPersist(dm, path, []lsp.TextEdit{{Range: sym.Range, NewText: newBody}})
}

// InsertAfterSymbol inserts text on its own line(s) immediately after a
// symbol, applying the blank-line separation policy: a definition-kind
// symbol (function, method, class, interface, struct) gets at least one
// blank line before the inserted text; leading blank lines already present
// in text are preserved if there are more of them than the policy
// requires.
func InsertAfterSymbol(ctx context.Context, manager *lsp.Manager, dm *lsp.DocumentManager, path, namePath, text string) error {
	_, sym, err := resolveSymbol(ctx, manager, path, namePath)
	if err != nil {
		return err
	}

	insertLine := sym.Range.End.Line + 1
	body := withLeadingSeparation(text, definitionSeparatedKinds[sym.Kind])
	pos := lsp.Position{Line: insertLine, Character: 0}

	return applyAndPersist(dm, path, []lsp.TextEdit{{Range: lsp.Range{Start: pos, End: pos}, NewText: body}})
}

// InsertBeforeSymbol inserts text on its own line(s) immediately before a
// symbol, with the same blank-line separation policy as
// InsertAfterSymbol.
func InsertBeforeSymbol(ctx context.Context, manager *lsp.Manager, dm *lsp.DocumentManager, path, namePath, text string) error {
	_, sym, err := resolveSymbol(ctx, manager, path, namePath)
	if err != nil {
		return err
	}

	pos := lsp.Position{Line: sym.Range.Start.Line, Character: 0}
	body := withTrailingSeparation(text, definitionSeparatedKinds[sym.Kind])

	return applyAndPersist(dm, path, []lsp.TextEdit{{Range: lsp.Range{Start: pos, End: pos}, NewText: body}})
}

// InsertAtLine inserts text before the given zero-based line number.
func InsertAtLine(dm *lsp.DocumentManager, path string, line int, text string) error {
	pos := lsp.Position{Line: line, Character: 0}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return applyAndPersist(dm, path, []lsp.TextEdit{{Range: lsp.Range{Start: pos, End: pos}, NewText: text}})
}

// DeleteLines removes the zero-based line range [startLine, endLine)
// (endLine exclusive).
func DeleteLines(dm *lsp.DocumentManager, path string, startLine, endLine int) error {
	rng := lsp.Range{
		Start: lsp.Position{Line: startLine, Character: 0},
		End:   lsp.Position{Line: endLine, Character: 0},
	}
	return applyAndPersist(dm, path, []lsp.TextEdit{{Range: rng, NewText: ""}})
}

// DeleteSymbol removes a symbol's entire range. For a definition-separated
// kind the range is extended to the start of the following line, so the
// symbol's last line is removed together with its line break; blank lines
// around the symbol are left in place.
func DeleteSymbol(ctx context.Context, manager *lsp.Manager, dm *lsp.DocumentManager, path, namePath string) error {
	_, sym, err := resolveSymbol(ctx, manager, path, namePath)
	if err != nil {
		return err
	}

	end := sym.Range.End
	if definitionSeparatedKinds[sym.Kind] {
		end = lsp.Position{Line: sym.Range.End.Line + 1, Character: 0}
	}

	return applyAndPersist(dm, path, []lsp.TextEdit{{Range: lsp.Range{Start: sym.Range.Start, End: end}, NewText: ""}})
}

// RenameSymbol asks the language server to compute a rename's
// WorkspaceEdit and applies it through ApplyWorkspaceEdit.
func RenameSymbol(ctx context.Context, manager *lsp.Manager, dm *lsp.DocumentManager, path, namePath, newName string) (*Result, error) {
	_, sym, err := resolveSymbol(ctx, manager, path, namePath)
	if err != nil {
		return nil, err
	}

	edit, err := manager.Rename(ctx, path, sym.SelectionRange.Start, newName)
	if err != nil {
		return nil, err
	}
	if edit == nil {
		return &Result{}, nil
	}

	return ApplyWorkspaceEdit(dm, *edit)
}

func withLeadingSeparation(text string, needsBlankLine bool) string {
	if !needsBlankLine {
		return ensureTrailingNewline(text)
	}
	leadingBlanks := countLeadingBlankLines(text)
	if leadingBlanks > 0 {
		return ensureTrailingNewline(text)
	}
	return "\n" + ensureTrailingNewline(text)
}

func withTrailingSeparation(text string, needsBlankLine bool) string {
	body := ensureTrailingNewline(text)
	if needsBlankLine && !strings.HasSuffix(body, "\n\n") {
		body += "\n"
	}
	return body
}

func ensureTrailingNewline(text string) string {
	if !strings.HasSuffix(text, "\n") {
		return text + "\n"
	}
	return text
}

func countLeadingBlankLines(text string) int {
	lines := strings.Split(text, "\n")
	count := 0
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			break
		}
		count++
	}
	return count
}
