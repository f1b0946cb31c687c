package series

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedProvider struct {
	calls   int
	failFor int
	err     error
}

func (p *scriptedProvider) History(ctx context.Context, ticker string, dr DateRange) (Series, error) {
	p.calls++
	if p.calls <= p.failFor {
		return Series{}, p.err
	}
	return Series{Ticker: ticker, Bars: []Bar{{AdjClose: 1}}}, nil
}

func testRange(t *testing.T) DateRange {
	t.Helper()
	start, _ := time.Parse("2006-01-02", "2020-01-01")
	end, _ := time.Parse("2006-01-02", "2020-02-01")
	return DateRange{Start: start, End: end}
}

func newTestFetcher(p Provider, retry RetryConfig) (*Fetcher, *int) {
	f := NewFetcher(p, retry, nil)
	sleeps := 0
	f.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps++
		return nil
	}
	return f, &sleeps
}

func TestFetcherFirstAttemptSuccess(t *testing.T) {
	provider := &scriptedProvider{failFor: 0}
	f, sleeps := newTestFetcher(provider, RetryConfig{MaxAttempts: 50, Delay: 2 * time.Second, Multiplier: 1.0})

	s, err := f.Fetch(context.Background(), "AAPL", testRange(t))

	require.NoError(t, err)
	assert.Equal(t, "AAPL", s.Ticker)
	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, 0, *sleeps)
}

func TestFetcherRetriesThenSucceeds(t *testing.T) {
	provider := &scriptedProvider{failFor: 2, err: errors.New("transient")}
	f, sleeps := newTestFetcher(provider, RetryConfig{MaxAttempts: 3, Delay: time.Millisecond, Multiplier: 1.0})

	_, err := f.Fetch(context.Background(), "AAPL", testRange(t))

	require.NoError(t, err)
	assert.Equal(t, 3, provider.calls)
	assert.Equal(t, 2, *sleeps)
}

func TestFetcherExhaustsBudget(t *testing.T) {
	provider := &scriptedProvider{failFor: 100, err: errors.New("persistent")}
	f, sleeps := newTestFetcher(provider, RetryConfig{MaxAttempts: 4, Delay: time.Millisecond, Multiplier: 1.0})

	_, err := f.Fetch(context.Background(), "AAPL", testRange(t))

	require.ErrorIs(t, err, ErrExhaustedRetries)
	assert.Contains(t, err.Error(), "persistent")
	assert.Equal(t, 4, provider.calls)
	// no sleep after the final attempt
	assert.Equal(t, 3, *sleeps)

	// the typed error reports how much budget was consumed
	var exhausted *RetriesExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, "AAPL", exhausted.Ticker)
	assert.Equal(t, 4, exhausted.Attempts)
}

func TestFetcherSuccessStopsConsumingBudget(t *testing.T) {
	provider := &scriptedProvider{failFor: 1, err: errors.New("transient")}
	f, _ := newTestFetcher(provider, RetryConfig{MaxAttempts: 50, Delay: time.Millisecond, Multiplier: 1.0})

	_, err := f.Fetch(context.Background(), "AAPL", testRange(t))

	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls)
}

func TestFetcherCancelledContext(t *testing.T) {
	provider := &scriptedProvider{failFor: 100, err: errors.New("transient")}
	f := NewFetcher(provider, RetryConfig{MaxAttempts: 50, Delay: time.Hour, Multiplier: 1.0}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Fetch(ctx, "AAPL", testRange(t))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, provider.calls)
}

func TestFetcherCancelDuringBackoff(t *testing.T) {
	provider := &scriptedProvider{failFor: 100, err: errors.New("transient")}
	f := NewFetcher(provider, RetryConfig{MaxAttempts: 50, Delay: time.Hour, Multiplier: 1.0}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := f.Fetch(ctx, "AAPL", testRange(t))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Minute)
}

func TestFetcherExponentialDelay(t *testing.T) {
	provider := &scriptedProvider{failFor: 100, err: errors.New("transient")}
	f := NewFetcher(provider, RetryConfig{MaxAttempts: 4, Delay: 100 * time.Millisecond, Multiplier: 2.0}, nil)

	var delays []time.Duration
	f.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	_, err := f.Fetch(context.Background(), "AAPL", testRange(t))

	require.ErrorIs(t, err, ErrExhaustedRetries)
	assert.Equal(t, []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
	}, delays)
}

func TestFetcherInvalidBudget(t *testing.T) {
	provider := &scriptedProvider{}
	f, _ := newTestFetcher(provider, RetryConfig{MaxAttempts: 0, Delay: time.Millisecond, Multiplier: 1.0})

	_, err := f.Fetch(context.Background(), "AAPL", testRange(t))

	require.Error(t, err)
	assert.Equal(t, 0, provider.calls)
}

func TestNewRetryConfigDefaults(t *testing.T) {
	rc := NewRetryConfig()

	assert.Equal(t, 50, rc.MaxAttempts)
	assert.Equal(t, 2*time.Second, rc.Delay)
	assert.Equal(t, 1.0, rc.Multiplier)
}
