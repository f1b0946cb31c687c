package universe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickers.csv")
	store := NewStore(path)

	u := Universe{Tickers: []string{"MSFT", "AAPL", "GOOGL"}}
	require.NoError(t, store.Save(u, 3))

	loaded, err := store.Load()
	require.NoError(t, err)

	// persisted in canonical sorted order regardless of input order
	assert.Equal(t, []string{"AAPL", "GOOGL", "MSFT"}, loaded.Tickers)
}

func TestStoreSaveCardinalityMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickers.csv")
	store := NewStore(path)

	u := Universe{Tickers: []string{"AAPL", "MSFT"}}
	err := store.Save(u, 505)

	var mismatch *CardinalityMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 505, mismatch.Expected)
	assert.Equal(t, 2, mismatch.Got)

	// the gate fires before any write
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestStoreSaveNoPartialFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tickers.csv")
	store := NewStore(path)

	require.NoError(t, store.Save(Universe{Tickers: []string{"AAPL"}}, 1))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "tickers.csv", entries[0].Name())
}

func TestStoreLoadNotFound(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.csv"))

	_, err := store.Load()

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreLoadSkipsHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickers.csv")
	require.NoError(t, os.WriteFile(path, []byte("Ticker\nAAPL\nBRK-B\n"), 0o644))

	loaded, err := NewStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "BRK-B"}, loaded.Tickers)
}

func TestStoreExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickers.csv")
	store := NewStore(path)

	assert.False(t, store.Exists())

	require.NoError(t, store.Save(Universe{Tickers: []string{"AAPL"}}, 1))
	assert.True(t, store.Exists())
}
