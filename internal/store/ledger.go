package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TickerStatus is the terminal state of one ticker within a run
type TickerStatus string

const (
	// StatusFetched means the series was downloaded and persisted this run
	StatusFetched TickerStatus = "fetched"
	// StatusExisting means the artifact pre-existed and no network call was made
	StatusExisting TickerStatus = "existing"
	// StatusExhausted means the fetch failed after the whole retry budget
	StatusExhausted TickerStatus = "exhausted"
	// StatusFailed means the series was fetched but could not be used,
	// for example a persistence error or an empty response
	StatusFailed TickerStatus = "failed"
)

// LedgerEntry records the outcome of one ticker's acquisition.
// The ledger distinguishes "never attempted" (no entry) from
// "attempted and exhausted", which artifact presence alone cannot.
type LedgerEntry struct {
	Status    TickerStatus `json:"status"`
	Attempts  int          `json:"attempts,omitempty"`
	UpdatedAt time.Time    `json:"updated_at"`
	Error     string       `json:"error,omitempty"`
}

// Ledger is a small persisted mapping from ticker to acquisition
// outcome, complementing the artifact-presence resume check.
type Ledger struct {
	mu sync.RWMutex

	RunID       string                 `json:"run_id"`
	StartTime   time.Time              `json:"start_time"`
	LastUpdated time.Time              `json:"last_updated"`
	Entries     map[string]LedgerEntry `json:"entries"`
}

// NewLedger creates an empty ledger for a run
func NewLedger(runID string) *Ledger {
	return &Ledger{
		RunID:     runID,
		StartTime: time.Now().UTC(),
		Entries:   make(map[string]LedgerEntry),
	}
}

// Record sets the outcome for a ticker
func (l *Ledger) Record(ticker string, status TickerStatus, attempts int, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := LedgerEntry{
		Status:    status,
		Attempts:  attempts,
		UpdatedAt: time.Now().UTC(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	l.Entries[ticker] = entry
	l.LastUpdated = entry.UpdatedAt
}

// Status returns the recorded outcome for a ticker, if any
func (l *Ledger) Status(ticker string) (LedgerEntry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entry, ok := l.Entries[ticker]
	return entry, ok
}

// Count returns the number of entries with the given status
func (l *Ledger) Count(status TickerStatus) int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := 0
	for _, e := range l.Entries {
		if e.Status == status {
			n++
		}
	}
	return n
}

// SaveToFile persists the ledger as indented JSON. The write is
// atomic (temp file then rename) so concurrent workers saving after
// each ticker never leave a torn file: the last rename wins and the
// file on disk is always parseable.
func (l *Ledger) SaveToFile(path string) error {
	l.mu.RLock()
	data, err := json.MarshalIndent(l, "", "  ")
	l.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "ledger-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp ledger file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp ledger file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp ledger file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move ledger file into place: %w", err)
	}

	return nil
}

// LoadLedgerFromFile loads a ledger from a JSON file
func LoadLedgerFromFile(path string) (*Ledger, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger file: %w", err)
	}

	var ledger Ledger
	if err := json.Unmarshal(data, &ledger); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ledger: %w", err)
	}
	if ledger.Entries == nil {
		ledger.Entries = make(map[string]LedgerEntry)
	}

	return &ledger, nil
}
