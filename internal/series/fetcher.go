package series

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// ErrExhaustedRetries indicates a ticker's fetch failed after the
// whole retry budget was consumed.
var ErrExhaustedRetries = errors.New("retries exhausted")

// RetriesExhaustedError carries the ticker and the number of attempts
// consumed; it matches ErrExhaustedRetries under errors.Is.
type RetriesExhaustedError struct {
	Ticker   string
	Attempts int
	Err      error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted: %s after %d attempts: %v", e.Ticker, e.Attempts, e.Err)
}

func (e *RetriesExhaustedError) Unwrap() error {
	return e.Err
}

func (e *RetriesExhaustedError) Is(target error) bool {
	return target == ErrExhaustedRetries
}

// RetryConfig defines retry behavior for a single ticker's fetch
type RetryConfig struct {
	// MaxAttempts bounds the number of provider calls per ticker.
	MaxAttempts int
	// Delay is the sleep between attempts.
	Delay time.Duration
	// Multiplier grows Delay after each failed attempt. 1.0 keeps the
	// delay constant, which is the historical behavior of this pipeline.
	Multiplier float64
}

// NewRetryConfig returns the default retry configuration
func NewRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 50,
		Delay:       2 * time.Second,
		Multiplier:  1.0,
	}
}

// Fetcher retrieves per-ticker series from a Provider with a bounded
// retry budget and a globally shared rate limit. One Fetcher is shared
// by all workers so the provider's rate tolerance is respected across
// the whole run, not per worker.
type Fetcher struct {
	provider Provider
	retry    RetryConfig
	limiter  *rate.Limiter

	// sleep is swappable for tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewFetcher creates a fetcher. limiter may be nil to disable rate limiting.
func NewFetcher(provider Provider, retry RetryConfig, limiter *rate.Limiter) *Fetcher {
	return &Fetcher{
		provider: provider,
		retry:    retry,
		limiter:  limiter,
		sleep:    sleepContext,
	}
}

// Fetch retrieves the series for one ticker. Each failed attempt
// consumes one unit of the retry budget and is followed by a backoff
// sleep; a success returns immediately without consuming the remaining
// budget. Once the budget is exhausted the last error is wrapped in
// ErrExhaustedRetries.
func (f *Fetcher) Fetch(ctx context.Context, ticker string, dr DateRange) (Series, error) {
	if f.retry.MaxAttempts < 1 {
		return Series{}, fmt.Errorf("invalid retry budget %d for %s", f.retry.MaxAttempts, ticker)
	}

	delay := f.retry.Delay
	var lastErr error

	for attempt := 1; attempt <= f.retry.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Series{}, err
		}
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return Series{}, err
			}
		}

		s, err := f.provider.History(ctx, ticker, dr)
		if err == nil {
			if attempt > 1 {
				slog.Info("Fetch succeeded after retries",
					slog.String("ticker", ticker),
					slog.Int("attempt", attempt))
			}
			return s, nil
		}
		lastErr = err

		slog.Debug("Fetch attempt failed",
			slog.String("ticker", ticker),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", f.retry.MaxAttempts),
			slog.String("error", err.Error()))

		if attempt == f.retry.MaxAttempts {
			break
		}
		if err := f.sleep(ctx, delay); err != nil {
			return Series{}, err
		}
		if f.retry.Multiplier > 1 {
			delay = time.Duration(float64(delay) * f.retry.Multiplier)
		}
	}

	return Series{}, &RetriesExhaustedError{
		Ticker:   ticker,
		Attempts: f.retry.MaxAttempts,
		Err:      lastErr,
	}
}

// sleepContext blocks for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
