// Package acquire orchestrates the per-ticker acquisition loop:
// resume from existing artifacts, fetch what is missing with a bounded
// retry budget, and record every outcome in the acquisition ledger.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"snpcli/internal/series"
	"snpcli/internal/store"
	"snpcli/internal/universe"
)

// SeriesFetcher retrieves one ticker's history with retry and backoff
type SeriesFetcher interface {
	Fetch(ctx context.Context, ticker string, dr series.DateRange) (series.Series, error)
}

// Summary reports the outcome of one acquisition run
type Summary struct {
	Total    int
	Existing int
	Fetched  int
	Failed   int
	// FailedTickers lists the tickers whose retry budget was exhausted
	FailedTickers []string
	Duration      time.Duration
}

// Driver runs the acquisition loop over the whole ticker universe.
// Per-ticker fetch failures are contained: they are recorded in the
// summary and the ledger, and the run proceeds to the next ticker.
type Driver struct {
	Fetcher SeriesFetcher
	Store   *store.SeriesStore
	Ledger  *store.Ledger
	// LedgerPath, when set, is rewritten after each ticker so partial
	// runs stay inspectable.
	LedgerPath string
	// Workers bounds concurrent fetches. Values below 2 keep the
	// historical sequential behavior.
	Workers int
	Logger  *slog.Logger
}

// Run processes every ticker in the universe in its stored order.
// A ticker with an existing artifact is skipped without a network
// call, so re-running against the same destination is idempotent.
// The returned error is non-nil only for run-level failures
// (cancellation, destination setup); exhausted retries surface in the
// summary instead.
func (d *Driver) Run(ctx context.Context, u universe.Universe, dr series.DateRange) (Summary, error) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(d.Store.Dir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("failed to create destination directory: %w", err)
	}

	start := time.Now()
	summary := &runState{total: u.Count()}

	logger.Info("Starting acquisition run",
		slog.Int("tickers", u.Count()),
		slog.String("from", dr.Start.Format("2006-01-02")),
		slog.String("to", dr.End.Format("2006-01-02")),
		slog.Int("workers", d.Workers))

	var runErr error
	if d.Workers > 1 {
		runErr = d.runParallel(ctx, u, dr, summary, logger)
	} else {
		runErr = d.runSequential(ctx, u, dr, summary, logger)
	}

	s := summary.snapshot()
	s.Duration = time.Since(start)

	logger.Info("Acquisition run finished",
		slog.Int("total", s.Total),
		slog.Int("existing", s.Existing),
		slog.Int("fetched", s.Fetched),
		slog.Int("failed", s.Failed),
		slog.Duration("duration", s.Duration))

	return s, runErr
}

func (d *Driver) runSequential(ctx context.Context, u universe.Universe, dr series.DateRange, state *runState, logger *slog.Logger) error {
	for _, ticker := range u.Tickers {
		// cancellation is checked between tickers; persisted artifacts
		// stay intact so partial runs resume safely
		if err := ctx.Err(); err != nil {
			return err
		}
		d.processTicker(ctx, ticker, dr, state, logger)
	}
	return nil
}

func (d *Driver) runParallel(ctx context.Context, u universe.Universe, dr series.DateRange, state *runState, logger *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.Workers)

	for _, ticker := range u.Tickers {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// per-ticker failures are recorded, never returned: one
			// exhausted ticker must not cancel sibling fetches
			d.processTicker(gctx, ticker, dr, state, logger)
			return nil
		})
	}

	return g.Wait()
}

func (d *Driver) processTicker(ctx context.Context, ticker string, dr series.DateRange, state *runState, logger *slog.Logger) {
	if d.Store.Exists(ticker) {
		processed := state.markExisting(ticker)
		d.record(ticker, store.StatusExisting, 0, nil, logger)
		logger.Info("Artifact already exists, skipping",
			slog.String("ticker", ticker),
			slog.Int("processed", processed),
			slog.Int("total", state.total))
		return
	}

	sr, err := d.Fetcher.Fetch(ctx, ticker, dr)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		attempts := 0
		var exhausted *series.RetriesExhaustedError
		if errors.As(err, &exhausted) {
			attempts = exhausted.Attempts
		}
		processed := state.markFailed(ticker)
		d.record(ticker, store.StatusExhausted, attempts, err, logger)
		logger.Error("Ticker fetch failed, continuing",
			slog.String("ticker", ticker),
			slog.Int("processed", processed),
			slog.Int("total", state.total),
			slog.String("error", err.Error()))
		return
	}

	if sr.Empty() {
		processed := state.markFailed(ticker)
		err := fmt.Errorf("provider returned no rows for %s", ticker)
		d.record(ticker, store.StatusFailed, 0, err, logger)
		logger.Error("Fetched series is empty, not persisting",
			slog.String("ticker", ticker),
			slog.Int("processed", processed),
			slog.Int("total", state.total))
		return
	}

	if err := d.Store.Put(ticker, sr, false); err != nil {
		if errors.Is(err, store.ErrExists) {
			// another worker or a prior run materialized it first
			processed := state.markExisting(ticker)
			d.record(ticker, store.StatusExisting, 0, nil, logger)
			logger.Info("Artifact appeared during fetch, keeping existing",
				slog.String("ticker", ticker),
				slog.Int("processed", processed),
				slog.Int("total", state.total))
			return
		}
		// a local persistence failure, not a retry exhaustion
		processed := state.markFailed(ticker)
		d.record(ticker, store.StatusFailed, 0, err, logger)
		logger.Error("Failed to persist artifact",
			slog.String("ticker", ticker),
			slog.Int("processed", processed),
			slog.Int("total", state.total),
			slog.String("error", err.Error()))
		return
	}

	processed := state.markFetched(ticker)
	d.record(ticker, store.StatusFetched, 0, nil, logger)
	logger.Info("Fetched ticker",
		slog.String("ticker", ticker),
		slog.Int("rows", len(sr.Bars)),
		slog.Int("processed", processed),
		slog.Int("total", state.total))
}

func (d *Driver) record(ticker string, status store.TickerStatus, attempts int, cause error, logger *slog.Logger) {
	if d.Ledger == nil {
		return
	}
	d.Ledger.Record(ticker, status, attempts, cause)
	if d.LedgerPath == "" {
		return
	}
	if err := d.Ledger.SaveToFile(d.LedgerPath); err != nil {
		logger.Warn("Failed to save acquisition ledger",
			slog.String("path", d.LedgerPath),
			slog.String("error", err.Error()))
	}
}

// runState accumulates summary counters across workers
type runState struct {
	mu            sync.Mutex
	total         int
	existing      int
	fetched       int
	failed        int
	failedTickers []string
}

func (s *runState) markExisting(string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.existing++
	return s.existing + s.fetched + s.failed
}

func (s *runState) markFetched(string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetched++
	return s.existing + s.fetched + s.failed
}

func (s *runState) markFailed(ticker string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed++
	s.failedTickers = append(s.failedTickers, ticker)
	return s.existing + s.fetched + s.failed
}

func (s *runState) snapshot() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	failed := make([]string, len(s.failedTickers))
	copy(failed, s.failedTickers)
	return Summary{
		Total:         s.total,
		Existing:      s.existing,
		Fetched:       s.fetched,
		Failed:        s.failed,
		FailedTickers: failed,
	}
}
