package adapter

import (
	"context"
	"testing"
	"time"

	"github.com/corvid-dev/lspcore/internal/lsp"
)

func TestGoAdapter_InitializeParams(t *testing.T) {
	a := NewGoAdapter()
	params, ok := a.InitializeParams().(map[string]any)
	if !ok {
		t.Fatalf("expected map[string]any, got %T", a.InitializeParams())
	}
	if params["staticcheck"] != true {
		t.Error("expected staticcheck enabled")
	}
}

func TestTypeScriptAdapter_LanguageIDForFile(t *testing.T) {
	a := NewTypeScriptAdapter()

	cases := map[string]string{
		"a.ts":  "typescript",
		"a.tsx": "typescriptreact",
		"a.js":  "javascript",
		"a.jsx": "javascriptreact",
		"a.mjs": "javascript",
	}
	for path, want := range cases {
		got, ok := a.LanguageIDForFile(path)
		if !ok || got != want {
			t.Errorf("%s: expected %s/true, got %s/%v", path, want, got, ok)
		}
	}

	if _, ok := a.LanguageIDForFile("a.py"); ok {
		t.Error("expected no match for .py")
	}
}

func TestCFamilyAdapter_LanguageIDForFile(t *testing.T) {
	a := NewCFamilyAdapter()

	if got, _ := a.LanguageIDForFile("main.h"); got != "c" {
		t.Errorf("expected c for .h, got %s", got)
	}
	if got, _ := a.LanguageIDForFile("main.hpp"); got != "cpp" {
		t.Errorf("expected cpp for .hpp, got %s", got)
	}
}

func TestVueAdapter_DefaultSettleDelay(t *testing.T) {
	a := NewVueAdapter()
	if a.SettleDelay != 2*time.Second {
		t.Errorf("expected default 2s settle delay, got %v", a.SettleDelay)
	}

	a = NewVueAdapter(WithSettleDelay(500 * time.Millisecond))
	if a.SettleDelay != 500*time.Millisecond {
		t.Errorf("expected overridden settle delay, got %v", a.SettleDelay)
	}
}

func TestVueAdapter_OnStart_RespectsContextCancellation(t *testing.T) {
	a := NewVueAdapter(WithSettleDelay(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := a.OnStart(ctx, nil); err == nil {
		t.Error("expected context error when canceled before settle window elapses")
	}
}

func TestVueAdapter_DocumentSymbolsPost_DedupesByPosition(t *testing.T) {
	a := NewVueAdapter()
	symbols := []lsp.DocumentSymbol{
		{Name: "setup", Range: lsp.Range{Start: lsp.Position{Line: 1, Character: 0}}},
		{Name: "setup", Range: lsp.Range{Start: lsp.Position{Line: 1, Character: 0}}},
		{Name: "render", Range: lsp.Range{Start: lsp.Position{Line: 10, Character: 0}}},
	}

	got := a.DocumentSymbolsPost(symbols)
	if len(got) != 2 {
		t.Fatalf("expected 2 deduped symbols, got %d", len(got))
	}
}

func TestVueAdapter_HoverPost_CollapsesBlankLines(t *testing.T) {
	a := NewVueAdapter()
	hover := &lsp.Hover{Contents: lsp.MarkupContent{Value: "a\n\n\nb"}}

	got := a.HoverPost(hover)
	if got.Contents.Value != "a\n\nb" {
		t.Errorf("expected collapsed blank lines, got %q", got.Contents.Value)
	}

	if a.HoverPost(nil) != nil {
		t.Error("expected nil hover to stay nil")
	}
}

func TestHaskellAdapter_DefaultSettleDelay(t *testing.T) {
	a := NewHaskellAdapter()
	if a.SettleDelay != 5*time.Second {
		t.Errorf("expected default 5s settle delay, got %v", a.SettleDelay)
	}

	a = NewHaskellAdapter(WithHaskellSettleDelay(time.Second))
	if a.SettleDelay != time.Second {
		t.Errorf("expected overridden settle delay, got %v", a.SettleDelay)
	}
}

func TestSwiftAdapter_DefaultSettleDelay(t *testing.T) {
	a := NewSwiftAdapter()
	if a.SettleDelay != 15*time.Second {
		t.Errorf("expected default 15s settle delay, got %v", a.SettleDelay)
	}

	a = NewSwiftAdapter(WithSwiftSettleDelay(3 * time.Second))
	if a.SettleDelay != 3*time.Second {
		t.Errorf("expected overridden settle delay, got %v", a.SettleDelay)
	}
}
