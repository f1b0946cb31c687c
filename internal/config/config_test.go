package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies", cfg.Universe.IndexURL)
	assert.Equal(t, 505, cfg.Universe.ExpectedCount)
	assert.Equal(t, "2000-01-01", cfg.Fetch.From)
	assert.Equal(t, "2017-01-01", cfg.Fetch.To)
	assert.Equal(t, 50, cfg.Fetch.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Fetch.BackoffDelay)
	assert.Equal(t, 1.0, cfg.Fetch.BackoffMultiplier)
	assert.Equal(t, 1, cfg.Fetch.Workers)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SNP_UNIVERSE_EXPECTED_COUNT", "503")
	t.Setenv("SNP_FETCH_MAX_RETRIES", "10")
	t.Setenv("SNP_FETCH_BACKOFF_DELAY", "500ms")
	t.Setenv("SNP_FETCH_WORKERS", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 503, cfg.Universe.ExpectedCount)
	assert.Equal(t, 10, cfg.Fetch.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.Fetch.BackoffDelay)
	assert.Equal(t, 8, cfg.Fetch.Workers)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "zero retries", key: "SNP_FETCH_MAX_RETRIES", value: "0"},
		{name: "bad from date", key: "SNP_FETCH_FROM", value: "01/01/2000"},
		{name: "multiplier below one", key: "SNP_FETCH_BACKOFF_MULTIPLIER", value: "0.5"},
		{name: "index url not a url", key: "SNP_UNIVERSE_INDEX_URL", value: "not a url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsInvertedDateRange(t *testing.T) {
	t.Setenv("SNP_FETCH_FROM", "2017-01-01")
	t.Setenv("SNP_FETCH_TO", "2000-01-01")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must precede")
}

func TestDateRange(t *testing.T) {
	cfg := Default()

	from, to, err := cfg.DateRange()
	require.NoError(t, err)

	assert.Equal(t, 2000, from.Year())
	assert.Equal(t, 2017, to.Year())
	assert.True(t, from.Before(to))
}

func TestDefaultPassesValidation(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.validate())
}

func TestGetPaths(t *testing.T) {
	base := t.TempDir()

	paths, err := GetPaths(base)
	require.NoError(t, err)

	assert.Equal(t, base, paths.BaseDir)
	assert.Equal(t, filepath.Join(base, "data", "tickers", "tickers.csv"), paths.TickersCSV)
	assert.Equal(t, filepath.Join(base, "data", "stocks"), paths.StocksDir)
	assert.Equal(t, filepath.Join(base, "data", "merged", "snp500_merged.csv"), paths.MergedCSV)
	assert.Equal(t, filepath.Join(base, "data", "merged", "acquisition.json"), paths.LedgerJSON)
}

func TestGetPathsDefaultsToExecutableDir(t *testing.T) {
	paths, err := GetPaths("")
	require.NoError(t, err)

	assert.NotEmpty(t, paths.BaseDir)
	assert.True(t, filepath.IsAbs(paths.BaseDir))
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	paths, err := GetPaths(base)
	require.NoError(t, err)

	require.NoError(t, paths.EnsureDirectories())

	for _, dir := range []string{paths.DataDir, paths.TickersDir, paths.StocksDir, paths.MergedDir, paths.LogsDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestGetLogPath(t *testing.T) {
	paths, err := GetPaths(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(paths.LogsDir, "fetch.log"), paths.GetLogPath("fetch.log"))
}
