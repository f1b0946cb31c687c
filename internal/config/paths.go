package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths contains all the application paths.
// This is the single source of truth for file locations: the ticker
// universe file, per-ticker stock artifacts, the merged table, the
// acquisition ledger, and logs.
type Paths struct {
	BaseDir    string
	DataDir    string
	TickersDir string
	StocksDir  string
	MergedDir  string
	LogsDir    string

	// Well-known files
	TickersCSV string
	MergedCSV  string
	MergedXLSX string
	LedgerJSON string
}

// GetPaths returns the application paths rooted at the given base
// directory. An empty base resolves to the executable's directory so
// the tools behave the same regardless of the working directory they
// are launched from.
func GetPaths(baseDir string) (*Paths, error) {
	if baseDir == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to get executable path: %w", err)
		}
		exe, err = filepath.EvalSymlinks(exe)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve executable symlinks: %w", err)
		}
		baseDir = filepath.Dir(exe)
	}

	// Directory structure:
	// base/
	//   ├── data/
	//   │   ├── tickers/   (tickers.csv)
	//   │   ├── stocks/    (one CSV per ticker)
	//   │   └── merged/    (merged wide table + ledger)
	//   └── logs/

	dataDir := filepath.Join(baseDir, "data")
	tickersDir := filepath.Join(dataDir, "tickers")
	stocksDir := filepath.Join(dataDir, "stocks")
	mergedDir := filepath.Join(dataDir, "merged")

	return &Paths{
		BaseDir:    baseDir,
		DataDir:    dataDir,
		TickersDir: tickersDir,
		StocksDir:  stocksDir,
		MergedDir:  mergedDir,
		LogsDir:    filepath.Join(baseDir, "logs"),

		TickersCSV: filepath.Join(tickersDir, "tickers.csv"),
		MergedCSV:  filepath.Join(mergedDir, "snp500_merged.csv"),
		MergedXLSX: filepath.Join(mergedDir, "snp500_merged.xlsx"),
		LedgerJSON: filepath.Join(mergedDir, "acquisition.json"),
	}, nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.TickersDir,
		p.StocksDir,
		p.MergedDir,
		p.LogsDir,
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}
