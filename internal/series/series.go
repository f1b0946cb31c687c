// Package series defines the per-ticker price history model, the
// remote provider client, and the retry-bounded fetcher used by the
// acquisition driver.
package series

import (
	"time"
)

// DateRange is an inclusive-start, exclusive-end pair of calendar
// dates supplied once per acquisition run.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Bar is one calendar-dated row of a ticker's price history
type Bar struct {
	Date     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	AdjClose float64
	Volume   int64
}

// Series is the raw per-ticker table returned by the provider
type Series struct {
	Ticker string
	Bars   []Bar
}

// Empty reports whether the series holds no rows
func (s Series) Empty() bool {
	return len(s.Bars) == 0
}
