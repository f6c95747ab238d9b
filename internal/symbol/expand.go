package symbol

import (
	"sort"
	"strings"

	"github.com/jobdeck/jobdeck/internal/fault"
)

// DefaultMaxPasses bounds the rewrite loop. Symbol values may themselves
// contain &NAME references, so expansion repeats until a pass produces no
// change; the bound turns a self-referential definition into a hard error
// instead of an infinite loop.
const DefaultMaxPasses = 10

func isSymbolChar(ch byte) bool {
	return ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9' ||
		ch == '$' || ch == '#' || ch == '@'
}

// Expand substitutes all resolvable &NAME references in text using the
// table. It returns the resolved text and the names that remained
// unresolved (left verbatim, reported as warnings by the caller). When the
// pass bound is exceeded while the text is still changing it fails with
// SymbolExpansionDivergence.
func Expand(text string, t *Table, maxPasses int) (string, []string, error) {
	if maxPasses <= 0 {
		maxPasses = DefaultMaxPasses
	}

	unresolved := make(map[string]struct{})
	current := text
	for pass := 0; pass < maxPasses; pass++ {
		for k := range unresolved {
			delete(unresolved, k)
		}
		next := expandOnce(current, t, unresolved)
		if next == current {
			return current, sortedNames(unresolved), nil
		}
		current = next
	}

	// One more no-op pass is still a clean exit; anything else diverged.
	if expandOnce(current, t, map[string]struct{}{}) == current {
		return current, sortedNames(unresolved), nil
	}
	return "", nil, fault.New(fault.CodeSymbolExpansionDivergence,
		"symbol expansion did not converge after %d passes", maxPasses).
		WithContext("text", text)
}

// expandOnce performs a single left-to-right substitution pass.
func expandOnce(text string, t *Table, unresolved map[string]struct{}) string {
	var out strings.Builder
	out.Grow(len(text))

	for i := 0; i < len(text); {
		ch := text[i]
		if ch != '&' {
			out.WriteByte(ch)
			i++
			continue
		}

		// && introduces a temporary dataset name, never a symbol.
		if i+1 < len(text) && text[i+1] == '&' {
			out.WriteString("&&")
			i += 2
			continue
		}

		// Collect the candidate token after the ampersand.
		j := i + 1
		for j < len(text) && isSymbolChar(text[j]) {
			j++
		}
		token := text[i+1 : j]
		if token == "" {
			out.WriteByte('&')
			i++
			continue
		}

		// Longest defined name that is a prefix of the token wins, so
		// &VAR1 resolves to VAR1 rather than VAR when both are defined.
		value, matched := "", 0
		for l := len(token); l > 0; l-- {
			if v, ok := t.Lookup(token[:l]); ok {
				value, matched = v, l
				break
			}
		}
		if matched == 0 {
			unresolved[token] = struct{}{}
			out.WriteString(text[i:j])
			i = j
			continue
		}

		out.WriteString(value)
		rest := token[matched:]
		out.WriteString(rest)
		i = j

		// Period delimiter applies only directly after the matched name:
		// &VAR. consumes the period, &VAR.. leaves one literal period.
		if rest == "" && i < len(text) && text[i] == '.' {
			i++
			if i < len(text) && text[i] == '.' {
				out.WriteByte('.')
				i++
			}
		}
	}
	return out.String()
}

func sortedNames(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
