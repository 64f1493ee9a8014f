package symbol

import (
	"errors"
	"strconv"
	"strings"

	"github.com/corvid-dev/lspcore/internal/lsp"
)

// ErrSymbolNotFound indicates a name path did not resolve to any symbol.
var ErrSymbolNotFound = lsp.ErrSymbolNotFound

// ErrAmbiguousSymbol indicates a name path resolved to more than one
// symbol and could not be narrowed to a unique match.
var ErrAmbiguousSymbol = lsp.ErrAmbiguousSymbol

// AmbiguousError carries the candidate paths a caller can use to
// disambiguate a ErrAmbiguousSymbol failure.
type AmbiguousError struct {
	NamePath   string
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	return "symbol reference \"" + e.NamePath + "\" is ambiguous: matches " + strings.Join(e.Candidates, ", ")
}

func (e *AmbiguousError) Unwrap() error { return ErrAmbiguousSymbol }

// Resolve finds the single symbol in tree identified by namePath, trying
// progressively looser matching rules until exactly one candidate
// remains:
//
//  1. Absolute path: namePath starting with "/" is compared against each
//     symbol's full PathName exactly.
//  2. Relative suffix: namePath is compared against the tail of each
//     symbol's PathName, aligned on "/" component boundaries (so "B"
//     matches "/A/B" but not "/A/AB").
//  3. Last-component substring: namePath is matched as a case-insensitive
//     substring of each symbol's own Name.
//
// Steps 1 and 2 compare against each symbol's PathName without its own
// trailing "[k]". An optional trailing "[k]" on namePath narrows every
// step's candidate set to the symbols with OverloadIndex == k.
func Resolve(tree *Tree, namePath string) (*Symbol, error) {
	base, overloadIdx, hasOverload := splitOverloadSuffix(namePath)

	// plainPath is PathName without the symbol's own "[k]" suffix.
	plainPath := func(s *Symbol) string {
		if s.OverloadIndex > 0 {
			return strings.TrimSuffix(s.PathName, "["+strconv.Itoa(s.OverloadIndex)+"]")
		}
		return s.PathName
	}

	if strings.HasPrefix(base, "/") {
		matches := filterFunc(tree.All, func(s *Symbol) bool { return plainPath(s) == base })
		return pickUnique(namePath, matches, hasOverload, overloadIdx)
	}

	trimmed := strings.TrimSuffix(base, "/")
	suffixMatches := filterFunc(tree.All, func(s *Symbol) bool { return matchesSuffix(plainPath(s), trimmed) })
	if sym, err := pickUnique(namePath, suffixMatches, hasOverload, overloadIdx); err == nil {
		return sym, nil
	} else if !errors.Is(err, ErrSymbolNotFound) {
		return nil, err
	}

	lowerBase := strings.ToLower(base)
	subMatches := filterFunc(tree.All, func(s *Symbol) bool {
		return strings.Contains(strings.ToLower(s.Name), lowerBase)
	})
	return pickUnique(namePath, subMatches, hasOverload, overloadIdx)
}

func filterFunc(symbols []*Symbol, pred func(*Symbol) bool) []*Symbol {
	var out []*Symbol
	for _, s := range symbols {
		if pred(s) {
			out = append(out, s)
		}
	}
	return out
}

// matchesSuffix reports whether full ends with suffix on a "/" boundary,
// e.g. matchesSuffix("/A/B/C", "B/C") is true but
// matchesSuffix("/A/XB/C", "B/C") is false.
func matchesSuffix(full, suffix string) bool {
	if !strings.HasSuffix(full, suffix) {
		return false
	}
	if len(full) == len(suffix) {
		return true
	}
	return full[len(full)-len(suffix)-1] == '/'
}

func pickUnique(namePath string, matches []*Symbol, hasOverload bool, overloadIdx int) (*Symbol, error) {
	if hasOverload {
		narrowed := filterFunc(matches, func(s *Symbol) bool { return s.OverloadIndex == overloadIdx })
		matches = narrowed
	}

	switch len(matches) {
	case 0:
		return nil, ErrSymbolNotFound
	case 1:
		return matches[0], nil
	default:
		candidates := make([]string, len(matches))
		for i, m := range matches {
			candidates[i] = m.PathName
		}
		return nil, &AmbiguousError{NamePath: namePath, Candidates: candidates}
	}
}

// splitOverloadSuffix splits a trailing "[k]" off namePath, if present.
func splitOverloadSuffix(namePath string) (base string, idx int, has bool) {
	if !strings.HasSuffix(namePath, "]") {
		return namePath, 0, false
	}
	open := strings.LastIndexByte(namePath, '[')
	if open < 0 {
		return namePath, 0, false
	}
	n, err := strconv.Atoi(namePath[open+1 : len(namePath)-1])
	if err != nil {
		return namePath, 0, false
	}
	return namePath[:open], n, true
}
