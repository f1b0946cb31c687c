package universe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{
			name:     "plain symbol unchanged",
			raw:      "MMM",
			expected: "MMM",
		},
		{
			name:     "period replaced with hyphen",
			raw:      "BRK.B",
			expected: "BRK-B",
		},
		{
			name:     "comma replaced with hyphen",
			raw:      "BF,B",
			expected: "BF-B",
		},
		{
			name:     "both punctuation kinds replaced",
			raw:      "A.B,C",
			expected: "A-B-C",
		},
		{
			name:     "surrounding whitespace trimmed",
			raw:      "  AAPL\n",
			expected: "AAPL",
		},
		{
			name:     "empty input stays empty",
			raw:      "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.raw))
		})
	}
}

func TestUniverseSorted(t *testing.T) {
	u := Universe{Tickers: []string{"MSFT", "AAPL", "GOOG"}}

	sorted := u.Sorted()

	assert.Equal(t, []string{"AAPL", "GOOG", "MSFT"}, sorted.Tickers)
	// original order untouched
	assert.Equal(t, []string{"MSFT", "AAPL", "GOOG"}, u.Tickers)
}

func TestUniverseCount(t *testing.T) {
	assert.Equal(t, 0, Universe{}.Count())
	assert.Equal(t, 2, Universe{Tickers: []string{"AAA", "BBB"}}.Count())
}
