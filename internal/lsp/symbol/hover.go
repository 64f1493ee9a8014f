package symbol

import (
	"context"
	"time"

	"github.com/corvid-dev/lspcore/internal/lsp"
)

// Info pairs a symbol with its hover text, or a fetch error.
type Info struct {
	Symbol *Symbol
	Hover  *lsp.Hover
	Err    error
}

// RequestInfoForSymbols fetches hover information for each symbol, all
// of which are looked up in the file at path, stopping once budget has
// elapsed. A budget of zero
// disables the limit. The check happens before each request is made, not
// after, so a request already in flight is never cut off mid-call; a
// symbol skipped because the budget ran out gets Info.Err set to
// context.DeadlineExceeded rather than being silently dropped.
func RequestInfoForSymbols(ctx context.Context, manager *lsp.Manager, symbols []*Symbol, path string, budget time.Duration) []Info {
	results := make([]Info, len(symbols))
	start := time.Now()

	for i, sym := range symbols {
		if budget > 0 && time.Since(start) >= budget {
			results[i] = Info{Symbol: sym, Err: context.DeadlineExceeded}
			continue
		}

		hover, err := manager.Hover(ctx, path, sym.SelectionRange.Start)
		results[i] = Info{Symbol: sym, Hover: hover, Err: err}
	}

	return results
}
