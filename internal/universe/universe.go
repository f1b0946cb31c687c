// Package universe resolves and persists the ticker universe: the
// ordered set of symbols whose price history the pipeline acquires.
package universe

import (
	"sort"
	"strings"
)

// Normalize canonicalizes a raw symbol token from the index document.
// Commas and periods are replaced with hyphens: the downstream price
// provider rejects dotted share-class symbols (BRK.B must be queried
// as BRK-B), and the same characters are unsafe in artifact file names.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, ".", "-")
	s = strings.ReplaceAll(s, ",", "-")
	return s
}

// Universe is the ordered set of tickers for one acquisition run
type Universe struct {
	Tickers []string
}

// Count returns the number of tickers in the universe
func (u Universe) Count() int {
	return len(u.Tickers)
}

// Sorted returns a copy of the universe in canonical lexicographic
// order. Persisting in this order makes downstream processing order
// deterministic across runs regardless of document order.
func (u Universe) Sorted() Universe {
	tickers := make([]string, len(u.Tickers))
	copy(tickers, u.Tickers)
	sort.Strings(tickers)
	return Universe{Tickers: tickers}
}
