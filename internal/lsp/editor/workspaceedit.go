// Package editor is the real buffer-mutating counterpart to
// internal/lsp/actions.go's ActionsService, which only reports what a
// workspace edit would touch. It applies WorkspaceEdit results and
// provides symbol-relative editing operations (replace body, insert
// before/after a symbol, rename) built on top of the ref-counted buffer
// registry and the unified symbol tree.
package editor

import (
	"encoding/json"
	"errors"
	"os"
	"sort"

	"github.com/tidwall/gjson"

	"github.com/corvid-dev/lspcore/internal/lsp"
)

// ErrUnhandledEdit indicates a documentChanges entry is a kind this
// package does not know how to apply (e.g. CreateFile/DeleteFile).
var ErrUnhandledEdit = errors.New("unhandled workspace edit operation")

// Result reports which files were changed by applying a WorkspaceEdit.
type Result struct {
	ModifiedFiles []string
	RenamedFiles  map[string]string // old path -> new path
}

// ApplyWorkspaceEdit applies every change in edit: the legacy per-URI
// Changes map first, then the documentChanges array (which may carry
// TextDocumentEdit groups and RenameFile operations; CreateFile and
// DeleteFile members are rejected with ErrUnhandledEdit since this
// package's buffer registry has no matching primitive for them yet).
// Edits are applied and persisted to disk one file at a time; an error
// partway through leaves prior files in the batch already written.
func ApplyWorkspaceEdit(dm *lsp.DocumentManager, edit lsp.WorkspaceEdit) (*Result, error) {
	result := &Result{RenamedFiles: make(map[string]string)}

	uris := make([]lsp.DocumentURI, 0, len(edit.Changes))
	for uri := range edit.Changes {
		uris = append(uris, uri)
	}
	sort.Slice(uris, func(i, j int) bool { return uris[i] < uris[j] })

	for _, uri := range uris {
		path := lsp.URIToFilePath(uri)
		if err := applyEditsToFile(dm, path, edit.Changes[uri]); err != nil {
			return result, err
		}
		result.ModifiedFiles = append(result.ModifiedFiles, path)
	}

	if len(edit.DocumentChanges) == 0 {
		return result, nil
	}

	raw, err := json.Marshal(edit.DocumentChanges)
	if err != nil {
		return result, err
	}

	for _, item := range gjson.ParseBytes(raw).Array() {
		switch {
		case item.Get("kind").String() == "rename":
			oldPath := lsp.URIToFilePath(lsp.DocumentURI(item.Get("oldUri").String()))
			newPath := lsp.URIToFilePath(lsp.DocumentURI(item.Get("newUri").String()))
			if err := renameFile(dm, oldPath, newPath); err != nil {
				return result, err
			}
			result.RenamedFiles[oldPath] = newPath

		case item.Get("kind").String() == "create", item.Get("kind").String() == "delete":
			return result, ErrUnhandledEdit

		case item.Get("textDocument.uri").Exists():
			path := lsp.URIToFilePath(lsp.DocumentURI(item.Get("textDocument.uri").String()))
			edits, err := parseTextEdits(item.Get("edits"))
			if err != nil {
				return result, err
			}
			if err := applyEditsToFile(dm, path, edits); err != nil {
				return result, err
			}
			result.ModifiedFiles = append(result.ModifiedFiles, path)

		default:
			return result, ErrUnhandledEdit
		}
	}

	return result, nil
}

func parseTextEdits(arr gjson.Result) ([]lsp.TextEdit, error) {
	var edits []lsp.TextEdit
	var parseErr error
	arr.ForEach(func(_, item gjson.Result) bool {
		edit := lsp.TextEdit{
			NewText: item.Get("newText").String(),
			Range: lsp.Range{
				Start: lsp.Position{
					Line:      int(item.Get("range.start.line").Int()),
					Character: int(item.Get("range.start.character").Int()),
				},
				End: lsp.Position{
					Line:      int(item.Get("range.end.line").Int()),
					Character: int(item.Get("range.end.character").Int()),
				},
			},
		}
		edits = append(edits, edit)
		return true
	})
	return edits, parseErr
}

// applyEditsToFile acquires the buffer, applies edits, writes the result
// to disk, and releases the buffer.
func applyEditsToFile(dm *lsp.DocumentManager, path string, edits []lsp.TextEdit) error {
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

// renameFile moves a file on disk and rekeys any open buffer for it by
// closing the old path's reference and reopening the content under the
// new path, so the buffer registry and the filesystem never disagree
// about which path a given piece of open content belongs to.
func renameFile(dm *lsp.DocumentManager, oldPath, newPath string) error {
	content, wasOpen := dm.GetContent(oldPath)

	if err := os.Rename(oldPath, newPath); err != nil {
		return err
	}

	if wasOpen {
		_ = dm.CloseDocument(oldPath)
		return dm.OpenDocument(newPath, lsp.DetectLanguageID(newPath), content)
	}

	return nil
}
