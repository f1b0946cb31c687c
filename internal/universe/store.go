package universe

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// ErrNotFound indicates no persisted universe exists yet
var ErrNotFound = errors.New("ticker universe file not found")

// CardinalityMismatchError indicates the resolved universe size deviates
// from the expected constant. This is a data-quality gate: a mismatch
// usually means the upstream index format changed.
type CardinalityMismatchError struct {
	Expected int
	Got      int
}

func (e *CardinalityMismatchError) Error() string {
	return fmt.Sprintf("ticker universe cardinality mismatch: got %d, expected %d", e.Got, e.Expected)
}

// Store persists the ticker universe as a flat CSV record so later
// runs can skip re-resolving it.
type Store struct {
	Path string
}

// NewStore creates a universe store backed by the given CSV path
func NewStore(path string) *Store {
	return &Store{Path: path}
}

// Save persists the universe in canonical sorted order. It fails with
// a CardinalityMismatchError when the universe size does not match
// expectedCount, and never writes a partial file: the record is built
// in a temp file and renamed into place.
func (s *Store) Save(u Universe, expectedCount int) error {
	if u.Count() != expectedCount {
		return &CardinalityMismatchError{Expected: expectedCount, Got: u.Count()}
	}

	sorted := u.Sorted()

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create tickers directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "tickers-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp tickers file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := csv.NewWriter(tmp)
	if err := w.Write([]string{"Ticker"}); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write tickers header: %w", err)
	}
	for _, t := range sorted.Tickers {
		if err := w.Write([]string{t}); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write ticker %s: %w", t, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush tickers file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp tickers file: %w", err)
	}

	if err := os.Rename(tmpName, s.Path); err != nil {
		return fmt.Errorf("failed to move tickers file into place: %w", err)
	}

	slog.Info("Saved ticker universe",
		slog.String("path", s.Path),
		slog.Int("count", sorted.Count()))

	return nil
}

// Load reads a previously saved universe. It fails with ErrNotFound
// when no prior save exists.
func (s *Store) Load() (Universe, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return Universe{}, fmt.Errorf("%w: %s", ErrNotFound, s.Path)
		}
		return Universe{}, fmt.Errorf("failed to open tickers file: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return Universe{}, fmt.Errorf("failed to read tickers file: %w", err)
	}

	var tickers []string
	for i, rec := range records {
		if i == 0 && len(rec) > 0 && rec[0] == "Ticker" {
			continue
		}
		if len(rec) == 0 || rec[0] == "" {
			continue
		}
		tickers = append(tickers, rec[0])
	}

	return Universe{Tickers: tickers}, nil
}

// Exists reports whether a persisted universe is present
func (s *Store) Exists() bool {
	_, err := os.Stat(s.Path)
	return err == nil
}
