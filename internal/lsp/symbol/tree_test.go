package symbol

import (
	"testing"

	"github.com/corvid-dev/lspcore/internal/lsp"
)

func sampleSymbols() []lsp.DocumentSymbol {
	return []lsp.DocumentSymbol{
		{
			Name:  "Server",
			Kind:  lsp.SymbolKindClass,
			Range: lsp.Range{Start: lsp.Position{Line: 0}, End: lsp.Position{Line: 20}},
			Children: []lsp.DocumentSymbol{
				{
					Name:  "handleRequest",
					Kind:  lsp.SymbolKindMethod,
					Range: lsp.Range{Start: lsp.Position{Line: 2}, End: lsp.Position{Line: 10}},
				},
				{
					Name:  "handleRequest",
					Kind:  lsp.SymbolKindMethod,
					Range: lsp.Range{Start: lsp.Position{Line: 12}, End: lsp.Position{Line: 18}},
				},
			},
		},
		{
			Name:  "main",
			Kind:  lsp.SymbolKindFunction,
			Range: lsp.Range{Start: lsp.Position{Line: 22}, End: lsp.Position{Line: 25}},
		},
	}
}

func TestBuildTree_PathNamesAndOverloads(t *testing.T) {
	tree := BuildTree("file:///a.go", "/a.go", sampleSymbols())

	if len(tree.Roots) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(tree.Roots))
	}
	if len(tree.All) != 4 {
		t.Fatalf("expected 4 flattened symbols, got %d", len(tree.All))
	}

	server := tree.Roots[0]
	if server.PathName != "/Server" {
		t.Errorf("expected /Server, got %s", server.PathName)
	}

	if len(server.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(server.Children))
	}
	if server.Children[0].PathName != "/Server/handleRequest" {
		t.Errorf("expected first overload path /Server/handleRequest, got %s", server.Children[0].PathName)
	}
	if server.Children[1].PathName != "/Server/handleRequest[1]" {
		t.Errorf("expected second overload path /Server/handleRequest[1], got %s", server.Children[1].PathName)
	}
	if server.Children[0].OverloadIndex != 0 || server.Children[1].OverloadIndex != 1 {
		t.Error("expected overload indices 0 and 1")
	}
}

func TestBuildTree_ParentLinks(t *testing.T) {
	tree := BuildTree("file:///a.go", "/a.go", sampleSymbols())
	server := tree.Roots[0]
	if server.Children[0].Parent != server {
		t.Error("expected child's Parent to point back to its parent node")
	}
	if server.Parent != nil {
		t.Error("expected root's Parent to be nil")
	}
}

func TestTree_ByPosition(t *testing.T) {
	tree := BuildTree("file:///a.go", "/a.go", sampleSymbols())

	sym := tree.ByPosition(lsp.Position{Line: 5, Character: 0})
	if sym == nil || sym.Name != "handleRequest" {
		t.Fatalf("expected to find inner handleRequest symbol, got %v", sym)
	}

	sym = tree.ByPosition(lsp.Position{Line: 100, Character: 0})
	if sym != nil {
		t.Errorf("expected no symbol for out-of-range position, got %v", sym)
	}
}
