package universe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var (
	// ErrSourceUnavailable indicates the index document could not be retrieved
	ErrSourceUnavailable = errors.New("index document unavailable")
	// ErrParseFailure indicates the index document did not contain the expected ticker table
	ErrParseFailure = errors.New("index document format unexpected")
)

// Source resolves the ticker universe from some index
type Source interface {
	Resolve(ctx context.Context) (Universe, error)
}

// IndexSource resolves the universe from a remote HTML document
// containing a sortable constituents table. Retries, if desired, are
// the caller's responsibility.
type IndexSource struct {
	URL    string
	Client *http.Client
}

// NewIndexSource creates an index source for the given document URL
func NewIndexSource(url string) *IndexSource {
	return &IndexSource{
		URL: url,
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Resolve fetches the index document and extracts the ticker column in
// document order, normalized via Normalize. It fails with
// ErrSourceUnavailable on a non-success status and with ErrParseFailure
// when the ticker table or its symbol column cannot be located.
func (s *IndexSource) Resolve(ctx context.Context) (Universe, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return Universe{}, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return Universe{}, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Universe{}, fmt.Errorf("%w: status %d from %s", ErrSourceUnavailable, resp.StatusCode, s.URL)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return Universe{}, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}

	table := findTickerTable(doc)
	if table == nil {
		return Universe{}, fmt.Errorf("%w: no ticker table found", ErrParseFailure)
	}

	var tickers []string
	table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		cell := row.Find("td").First()
		if cell.Length() == 0 {
			return // header row
		}
		raw := cell.Find("a").First().Text()
		if raw == "" {
			raw = cell.Text()
		}
		if t := Normalize(raw); t != "" {
			tickers = append(tickers, t)
		}
	})

	if len(tickers) == 0 {
		return Universe{}, fmt.Errorf("%w: ticker table has no symbol rows", ErrParseFailure)
	}

	slog.Debug("Resolved ticker universe from index",
		slog.String("url", s.URL),
		slog.Int("count", len(tickers)))

	return Universe{Tickers: tickers}, nil
}

// findTickerTable locates the sortable table whose first header cell
// names the symbol column.
func findTickerTable(doc *goquery.Document) *goquery.Selection {
	var found *goquery.Selection
	doc.Find("table.wikitable.sortable, table.wikitable").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		header := strings.TrimSpace(table.Find("th").First().Text())
		if strings.EqualFold(header, "Symbol") ||
			strings.EqualFold(header, "Ticker symbol") ||
			strings.EqualFold(header, "Ticker") {
			found = table
			return false
		}
		return true
	})
	return found
}
