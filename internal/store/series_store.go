// Package store persists per-ticker series artifacts and the
// acquisition ledger on durable storage.
package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"snpcli/internal/series"
)

var (
	// ErrNotFound indicates no artifact exists for the requested ticker
	ErrNotFound = errors.New("series artifact not found")
	// ErrExists indicates an artifact already exists and overwrite was not requested
	ErrExists = errors.New("series artifact already exists")
)

// artifactHeader is the column layout of a per-ticker artifact, date first
var artifactHeader = []string{"Date", "Open", "High", "Low", "Close", "Adj Close", "Volume"}

// SeriesStore persists one raw series table per ticker, keyed by
// ticker, as a flat CSV file with the date as the leading key column.
type SeriesStore struct {
	Dir string
}

// NewSeriesStore creates a store rooted at dir
func NewSeriesStore(dir string) *SeriesStore {
	return &SeriesStore{Dir: dir}
}

// Path returns the artifact path for a ticker
func (s *SeriesStore) Path(ticker string) string {
	return filepath.Join(s.Dir, ticker+".csv")
}

// Exists reports whether an artifact for the ticker is present.
// Artifact presence is the resume signal for the acquisition driver.
func (s *SeriesStore) Exists(ticker string) bool {
	_, err := os.Stat(s.Path(ticker))
	return err == nil
}

// Put writes the ticker's series table. Existing artifacts are only
// replaced when overwrite is set. The write is atomic (temp file then
// rename) so a concurrent reader never observes a half-written
// artifact as "already acquired".
func (s *SeriesStore) Put(ticker string, sr series.Series, overwrite bool) error {
	dest := s.Path(ticker)
	if !overwrite {
		if _, err := os.Stat(dest); err == nil {
			return fmt.Errorf("%w: %s", ErrExists, dest)
		}
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create stocks directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.Dir, ticker+"-*.csv.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp artifact for %s: %w", ticker, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := csv.NewWriter(tmp)
	if err := w.Write(artifactHeader); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write artifact header for %s: %w", ticker, err)
	}
	for _, bar := range sr.Bars {
		rec := []string{
			bar.Date.Format("2006-01-02"),
			formatFloat(bar.Open),
			formatFloat(bar.High),
			formatFloat(bar.Low),
			formatFloat(bar.Close),
			formatFloat(bar.AdjClose),
			strconv.FormatInt(bar.Volume, 10),
		}
		if err := w.Write(rec); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write artifact row for %s: %w", ticker, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush artifact for %s: %w", ticker, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp artifact for %s: %w", ticker, err)
	}

	if err := os.Rename(tmpName, dest); err != nil {
		return fmt.Errorf("failed to move artifact into place for %s: %w", ticker, err)
	}

	slog.Debug("Persisted series artifact",
		slog.String("ticker", ticker),
		slog.String("path", dest),
		slog.Int("rows", len(sr.Bars)))

	return nil
}

// Get loads a ticker's artifact. It fails with ErrNotFound when the
// artifact is absent; parse failures are returned verbatim so callers
// can classify them.
func (s *SeriesStore) Get(ticker string) (series.Series, error) {
	f, err := os.Open(s.Path(ticker))
	if err != nil {
		if os.IsNotExist(err) {
			return series.Series{}, fmt.Errorf("%w: %s", ErrNotFound, ticker)
		}
		return series.Series{}, fmt.Errorf("failed to open artifact for %s: %w", ticker, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return series.Series{}, fmt.Errorf("failed to parse artifact for %s: %w", ticker, err)
	}
	if len(records) == 0 {
		return series.Series{}, fmt.Errorf("artifact for %s is empty", ticker)
	}

	sr := series.Series{Ticker: ticker}
	for i, rec := range records {
		if i == 0 {
			continue // header
		}
		if len(rec) != len(artifactHeader) {
			return series.Series{}, fmt.Errorf("artifact for %s: row %d has %d columns, want %d",
				ticker, i, len(rec), len(artifactHeader))
		}
		bar, err := parseBar(rec)
		if err != nil {
			return series.Series{}, fmt.Errorf("artifact for %s: row %d: %w", ticker, i, err)
		}
		sr.Bars = append(sr.Bars, bar)
	}

	return sr, nil
}

// List returns the tickers with a persisted artifact, in directory order
func (s *SeriesStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read stocks directory: %w", err)
	}

	var tickers []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if filepath.Ext(name) != ".csv" {
			continue
		}
		tickers = append(tickers, name[:len(name)-len(".csv")])
	}
	return tickers, nil
}

func parseBar(rec []string) (series.Bar, error) {
	date, err := time.Parse("2006-01-02", rec[0])
	if err != nil {
		return series.Bar{}, fmt.Errorf("bad date %q: %w", rec[0], err)
	}

	fields := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(rec[i+1], 64)
		if err != nil {
			return series.Bar{}, fmt.Errorf("bad numeric field %q: %w", rec[i+1], err)
		}
		fields[i] = v
	}

	volume, err := strconv.ParseInt(rec[6], 10, 64)
	if err != nil {
		return series.Bar{}, fmt.Errorf("bad volume %q: %w", rec[6], err)
	}

	return series.Bar{
		Date:     date,
		Open:     fields[0],
		High:     fields[1],
		Low:      fields[2],
		Close:    fields[3],
		AdjClose: fields[4],
		Volume:   volume,
	}, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
