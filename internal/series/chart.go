package series

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"
)

// DefaultChartBaseURL is the public chart endpoint of the price provider
const DefaultChartBaseURL = "https://query1.finance.yahoo.com"

// Provider retrieves one ticker's price history for a date range.
// The ticker query is case-sensitive and must use the normalized form.
type Provider interface {
	History(ctx context.Context, ticker string, dr DateRange) (Series, error)
}

// ChartClient implements Provider against the Yahoo Finance chart API
type ChartClient struct {
	BaseURL string
	Client  *http.Client
}

// NewChartClient creates a chart API client with the given HTTP timeout
func NewChartClient(timeout time.Duration) *ChartClient {
	return &ChartClient{
		BaseURL: DefaultChartBaseURL,
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

// chartResponse is the response structure of the chart API
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []interface{} `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func toFloat(v interface{}) float64 {
	if v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

// History retrieves daily bars for ticker within dr. A single attempt,
// no retry: retry policy belongs to the Fetcher.
func (c *ChartClient) History(ctx context.Context, ticker string, dr DateRange) (Series, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d&includeAdjustedClose=true",
		c.BaseURL, url.PathEscape(ticker), dr.Start.Unix(), dr.End.Unix())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Series{}, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return Series{}, fmt.Errorf("chart fetch %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Series{}, fmt.Errorf("chart read body %s: %w", ticker, err)
	}
	if resp.StatusCode != http.StatusOK {
		return Series{}, fmt.Errorf("chart %s: status %d", ticker, resp.StatusCode)
	}

	var chart chartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return Series{}, fmt.Errorf("chart decode %s: %w", ticker, err)
	}
	if chart.Chart.Error != nil {
		return Series{}, fmt.Errorf("chart api error %s: %s", ticker, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return Series{}, fmt.Errorf("chart %s: no data returned", ticker)
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return Series{}, fmt.Errorf("chart %s: no quote block", ticker)
	}
	quote := result.Indicators.Quote[0]

	var adj []interface{}
	if len(result.Indicators.AdjClose) > 0 {
		adj = result.Indicators.AdjClose[0].AdjClose
	}

	bars := make([]Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		o := toFloat(at(quote.Open, i))
		h := toFloat(at(quote.High, i))
		l := toFloat(at(quote.Low, i))
		cl := toFloat(at(quote.Close, i))
		if o == 0 && h == 0 && l == 0 && cl == 0 {
			continue // null bars (holidays etc.)
		}
		ac := cl
		if v := toFloat(at(adj, i)); v != 0 {
			ac = v
		}
		bars = append(bars, Bar{
			Date:     time.Unix(ts, 0).UTC().Truncate(24 * time.Hour),
			Open:     o,
			High:     h,
			Low:      l,
			Close:    cl,
			AdjClose: ac,
			Volume:   int64(toFloat(at(quote.Volume, i))),
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return Series{Ticker: ticker, Bars: bars}, nil
}

func at(vals []interface{}, i int) interface{} {
	if i < 0 || i >= len(vals) {
		return nil
	}
	return vals[i]
}
