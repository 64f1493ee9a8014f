// Package symbol builds a unified symbol tree from LSP DocumentSymbol
// results and resolves name paths against it. It is grounded on
// internal/lsp/navigation.go's SymbolNode/SymbolTree/buildSymbolTree,
// adding the two things that tree lacked: a stable full name path per
// node and an overload index for siblings that share a name.
package symbol

import (
	"fmt"

	"github.com/corvid-dev/lspcore/internal/lsp"
)

// Symbol is one node of the unified symbol tree.
type Symbol struct {
	lsp.DocumentSymbol

	Parent   *Symbol
	Children []*Symbol

	// PathName is the slash-joined path from the tree root to this
	// symbol, e.g. "/Server/handleRequest". A component is suffixed with
	// "[k]" when OverloadIndex is non-zero, so PathName alone is always
	// enough to identify one node even when siblings share a name.
	PathName string

	// OverloadIndex is this symbol's 0-based position among siblings
	// under the same parent that share its Name, in order of appearance.
	OverloadIndex int
}

// Tree is the symbol hierarchy for a single document.
type Tree struct {
	URI      lsp.DocumentURI
	FilePath string
	Roots    []*Symbol
	All      []*Symbol // flattened, pre-order
}

// BuildTree constructs a Tree from a DocumentSymbols result.
func BuildTree(uri lsp.DocumentURI, path string, symbols []lsp.DocumentSymbol) *Tree {
	tree := &Tree{
		URI:      uri,
		FilePath: path,
		Roots:    make([]*Symbol, 0, len(symbols)),
	}

	counts := make(map[string]int)
	for i := range symbols {
		idx := counts[symbols[i].Name]
		counts[symbols[i].Name]++
		node := buildNode(&symbols[i], nil, idx)
		tree.Roots = append(tree.Roots, node)
		tree.All = append(tree.All, flatten(node)...)
	}

	return tree
}

func buildNode(sym *lsp.DocumentSymbol, parent *Symbol, overloadIdx int) *Symbol {
	component := sym.Name
	if overloadIdx > 0 {
		component = fmt.Sprintf("%s[%d]", sym.Name, overloadIdx)
	}

	pathName := "/" + component
	if parent != nil {
		pathName = parent.PathName + "/" + component
	}

	node := &Symbol{
		DocumentSymbol: *sym,
		Parent:         parent,
		PathName:       pathName,
		OverloadIndex:  overloadIdx,
		Children:       make([]*Symbol, 0, len(sym.Children)),
	}

	counts := make(map[string]int)
	for i := range sym.Children {
		name := sym.Children[i].Name
		idx := counts[name]
		counts[name]++
		child := buildNode(&sym.Children[i], node, idx)
		node.Children = append(node.Children, child)
	}

	return node
}

func flatten(node *Symbol) []*Symbol {
	result := []*Symbol{node}
	for _, child := range node.Children {
		result = append(result, flatten(child)...)
	}
	return result
}

// ByPosition returns the smallest symbol in the tree whose range contains
// pos, or nil if none does.
func (t *Tree) ByPosition(pos lsp.Position) *Symbol {
	return smallestContaining(t.Roots, pos)
}

func smallestContaining(nodes []*Symbol, pos lsp.Position) *Symbol {
	for _, node := range nodes {
		if !rangeContains(node.Range, pos) {
			continue
		}
		if child := smallestContaining(node.Children, pos); child != nil {
			return child
		}
		return node
	}
	return nil
}

func rangeContains(r lsp.Range, pos lsp.Position) bool {
	if pos.Line < r.Start.Line || (pos.Line == r.Start.Line && pos.Character < r.Start.Character) {
		return false
	}
	if pos.Line > r.End.Line || (pos.Line == r.End.Line && pos.Character > r.End.Character) {
		return false
	}
	return true
}
