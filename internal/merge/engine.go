// Package merge folds all per-ticker artifacts into one wide table of
// adjusted closes keyed by date, via a full outer join on the date axis.
package merge

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"snpcli/internal/store"
)

// ErrEmptySourceSet indicates there were no artifacts to merge
var ErrEmptySourceSet = errors.New("no series artifacts to merge")

// CorruptArtifactError indicates a persisted artifact could not be
// parsed during the merge. The merge aborts, since the output would
// otherwise be silently incomplete.
type CorruptArtifactError struct {
	Ticker string
	Err    error
}

func (e *CorruptArtifactError) Error() string {
	return fmt.Sprintf("corrupt artifact for %s: %v", e.Ticker, e.Err)
}

func (e *CorruptArtifactError) Unwrap() error {
	return e.Err
}

// Table is the merged wide table: the union of all dates seen across
// all artifacts, with one adjusted-close column per ticker. A date a
// ticker lacks yields an undefined cell, never a dropped row.
type Table struct {
	Dates   []string // sorted ISO dates
	Tickers []string // column order (artifact processing order)
	cells   map[string]map[string]float64
}

// Cell returns the value for (date, ticker) and whether it is defined
func (t *Table) Cell(date, ticker string) (float64, bool) {
	row, ok := t.cells[date]
	if !ok {
		return 0, false
	}
	v, ok := row[ticker]
	return v, ok
}

func (t *Table) add(date, ticker string, value float64) {
	if t.cells == nil {
		t.cells = make(map[string]map[string]float64)
	}
	row, ok := t.cells[date]
	if !ok {
		row = make(map[string]float64)
		t.cells[date] = row
	}
	row[ticker] = value
}

// Result reports what one Merge call did
type Result struct {
	Table *Table
	// Skipped is set when the destination pre-existed and overwrite was
	// off; no artifacts were read.
	Skipped   bool
	Artifacts int
}

// Engine merges all artifacts in a SeriesStore into one wide CSV
type Engine struct {
	Store    *store.SeriesStore
	DestPath string
	// WorkbookPath, when set, additionally writes the merged table as
	// an Excel workbook.
	WorkbookPath string
	Logger       *slog.Logger
}

// Merge performs the outer-join fold. With overwrite off and an
// existing destination, the call is a no-op that reads zero artifacts.
// An unreadable artifact aborts the merge with a CorruptArtifactError;
// an empty source set fails with ErrEmptySourceSet.
func (e *Engine) Merge(ctx context.Context, overwrite bool) (Result, error) {
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if !overwrite {
		if _, err := os.Stat(e.DestPath); err == nil {
			logger.Info("Merged table already present, skipping",
				slog.String("path", e.DestPath))
			return Result{Skipped: true}, nil
		}
	}

	tickers, err := e.Store.List()
	if err != nil {
		return Result{}, err
	}
	if len(tickers) == 0 {
		return Result{}, fmt.Errorf("%w: %s", ErrEmptySourceSet, e.Store.Dir)
	}

	logger.Info("Merging series artifacts",
		slog.Int("artifacts", len(tickers)),
		slog.String("source_dir", e.Store.Dir))

	table := &Table{}
	for i, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		sr, err := e.Store.Get(ticker)
		if err != nil {
			return Result{}, &CorruptArtifactError{Ticker: ticker, Err: err}
		}

		// keep only the adjusted close, renamed to the ticker
		table.Tickers = append(table.Tickers, ticker)
		for _, bar := range sr.Bars {
			table.add(bar.Date.Format("2006-01-02"), ticker, bar.AdjClose)
		}

		logger.Debug("Merged artifact",
			slog.String("ticker", ticker),
			slog.Int("current", i+1),
			slog.Int("total", len(tickers)))
	}

	table.Dates = make([]string, 0, len(table.cells))
	for date := range table.cells {
		table.Dates = append(table.Dates, date)
	}
	sort.Strings(table.Dates)

	if err := e.writeCSV(table); err != nil {
		return Result{}, err
	}
	if e.WorkbookPath != "" {
		if err := writeWorkbook(e.WorkbookPath, table); err != nil {
			return Result{}, err
		}
		logger.Info("Wrote merged workbook", slog.String("path", e.WorkbookPath))
	}

	logger.Info("Merge completed",
		slog.String("path", e.DestPath),
		slog.Int("rows", len(table.Dates)),
		slog.Int("columns", len(table.Tickers)))

	return Result{Table: table, Artifacts: len(tickers)}, nil
}

// writeCSV persists the merged table atomically, date column first
func (e *Engine) writeCSV(table *Table) error {
	dir := filepath.Dir(e.DestPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create merged directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "merged-*.csv.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp merged file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := csv.NewWriter(tmp)

	header := append([]string{"Date"}, table.Tickers...)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write merged header: %w", err)
	}

	for _, date := range table.Dates {
		rec := make([]string, 0, len(header))
		rec = append(rec, date)
		for _, ticker := range table.Tickers {
			if v, ok := table.Cell(date, ticker); ok {
				rec = append(rec, strconv.FormatFloat(v, 'f', -1, 64))
			} else {
				rec = append(rec, "")
			}
		}
		if err := w.Write(rec); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write merged row %s: %w", date, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush merged file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp merged file: %w", err)
	}

	if err := os.Rename(tmpName, e.DestPath); err != nil {
		return fmt.Errorf("failed to move merged file into place: %w", err)
	}

	return nil
}
