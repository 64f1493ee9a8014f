package symbol

import (
	"errors"
	"testing"

	"github.com/corvid-dev/lspcore/internal/lsp"
)

func TestResolve_AbsolutePath(t *testing.T) {
	tree := BuildTree("file:///a.go", "/a.go", sampleSymbols())

	sym, err := Resolve(tree, "/main")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sym.Name != "main" {
		t.Errorf("expected main, got %s", sym.Name)
	}
}

func TestResolve_RelativeSuffix(t *testing.T) {
	tree := BuildTree("file:///a.go", "/a.go", sampleSymbols())

	_, err := Resolve(tree, "Server/handleRequest")
	if !errors.Is(err, ErrAmbiguousSymbol) {
		t.Fatalf("expected ambiguous error across both overloads, got %v", err)
	}

	var ambigErr *AmbiguousError
	if !errors.As(err, &ambigErr) {
		t.Fatalf("expected *AmbiguousError, got %T", err)
	}
	if len(ambigErr.Candidates) != 2 {
		t.Errorf("expected 2 candidates, got %v", ambigErr.Candidates)
	}
}

func TestResolve_OverloadSuffixDisambiguates(t *testing.T) {
	tree := BuildTree("file:///a.go", "/a.go", sampleSymbols())

	sym, err := Resolve(tree, "Server/handleRequest[1]")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sym.PathName != "/Server/handleRequest[1]" {
		t.Errorf("expected second overload, got %s", sym.PathName)
	}
}

func TestResolve_LastComponentSubstringFallback(t *testing.T) {
	tree := BuildTree("file:///a.go", "/a.go", sampleSymbols())

	sym, err := Resolve(tree, "mai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sym.Name != "main" {
		t.Errorf("expected main via substring fallback, got %s", sym.Name)
	}
}

func TestResolve_NotFound(t *testing.T) {
	tree := BuildTree("file:///a.go", "/a.go", sampleSymbols())

	_, err := Resolve(tree, "doesNotExist")
	if !errors.Is(err, ErrSymbolNotFound) {
		t.Errorf("expected ErrSymbolNotFound, got %v", err)
	}
}

func TestResolve_SuffixDoesNotMatchAcrossComponentBoundary(t *testing.T) {
	symbols := []lsp.DocumentSymbol{
		{Name: "AB", Range: lsp.Range{}},
	}
	tree := BuildTree("file:///a.go", "/a.go", symbols)

	// "B" should not match the root symbol "AB" via suffix matching since
	// there is no "/" boundary before it; it still resolves via the
	// substring fallback on the symbol's own Name.
	sym, err := Resolve(tree, "B")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sym.Name != "AB" {
		t.Errorf("expected substring fallback match AB, got %s", sym.Name)
	}
}
