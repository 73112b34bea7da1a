package query

import "strings"

// Decompose splits a comparison-style query into independent item terms.
// The literal substring "compare" is removed and the remainder is split on
// the literal substring "and" with trimmed, non-empty segments kept in order.
// The split is purely lexical: it does not respect word boundaries, so item
// names containing "and" are over-split. That matches the original behaviour
// and is a known precision limitation.
func Decompose(q string) []string {
	stripped := strings.ReplaceAll(q, "compare", "")
	var items []string
	for _, part := range strings.Split(stripped, "and") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	if len(items) == 0 {
		return []string{q}
	}
	return items
}
