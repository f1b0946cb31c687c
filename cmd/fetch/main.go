package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"snpcli/internal/acquire"
	"snpcli/internal/config"
	"snpcli/internal/infrastructure"
	"snpcli/internal/series"
	"snpcli/internal/store"
	"snpcli/internal/universe"
)

func main() {
	fromStr := flag.String("from", "", "start date (YYYY-MM-DD), inclusive (defaults to configured value)")
	toStr := flag.String("to", "", "end date (YYYY-MM-DD), exclusive (defaults to configured value)")
	tickersPath := flag.String("tickers", "", "ticker universe csv (defaults to data/tickers/tickers.csv)")
	outDir := flag.String("out", "", "directory for per-ticker artifacts (defaults to data/stocks)")
	maxRetries := flag.Int("max-retries", 0, "per-ticker retry budget (defaults to configured value)")
	backoff := flag.Duration("backoff", 0, "delay between retry attempts (defaults to configured value)")
	workers := flag.Int("workers", 0, "concurrent fetch workers (defaults to configured value)")
	reloadTickers := flag.Bool("reload-tickers", false, "re-resolve the ticker universe before fetching")
	baseDir := flag.String("base", "", "base directory for data and logs (defaults to the executable directory)")
	flag.Parse()

	paths, err := config.GetPaths(*baseDir)
	if err != nil {
		fmt.Printf("Error: failed to initialize paths: %v\n", err)
		os.Exit(1)
	}
	if *tickersPath == "" {
		*tickersPath = paths.TickersCSV
	}
	if *outDir == "" {
		*outDir = paths.StocksDir
	}
	if err := paths.EnsureDirectories(); err != nil {
		fmt.Printf("Error: failed to create required directories: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Warning: failed to load config, using defaults: %v\n", err)
		cfg = config.Default()
	}
	cfg.Logging.FilePath = paths.GetLogPath("fetch.log")

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Printf("Warning: failed to initialize logger, using default: %v\n", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	if *fromStr != "" {
		cfg.Fetch.From = *fromStr
	}
	if *toStr != "" {
		cfg.Fetch.To = *toStr
	}
	if *maxRetries == 0 {
		*maxRetries = cfg.Fetch.MaxRetries
	}
	if *backoff == 0 {
		*backoff = cfg.Fetch.BackoffDelay
	}
	if *workers == 0 {
		*workers = cfg.Fetch.Workers
	}

	from, to, err := cfg.DateRange()
	if err != nil {
		logger.Error("Invalid acquisition date", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if !from.Before(to) {
		logger.Error("-from must precede -to",
			slog.String("from", cfg.Fetch.From),
			slog.String("to", cfg.Fetch.To))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	ctx = infrastructure.WithRunID(ctx, runID)
	logger = infrastructure.LoggerFromContext(ctx)

	logger.Info("Acquisition starting",
		slog.String("from", cfg.Fetch.From),
		slog.String("to", cfg.Fetch.To),
		slog.String("tickers", *tickersPath),
		slog.String("output_dir", *outDir),
		slog.Int("max_retries", *maxRetries),
		slog.Duration("backoff", *backoff),
		slog.Int("workers", *workers))

	u, err := loadUniverse(ctx, cfg, *tickersPath, *reloadTickers, logger)
	if err != nil {
		logger.Error("Failed to obtain ticker universe", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Loaded ticker universe", slog.Int("count", u.Count()))

	provider := series.NewChartClient(cfg.Fetch.HTTPTimeout)
	fetcher := series.NewFetcher(provider, series.RetryConfig{
		MaxAttempts: *maxRetries,
		Delay:       *backoff,
		Multiplier:  cfg.Fetch.BackoffMultiplier,
	}, rate.NewLimiter(rate.Limit(cfg.Fetch.RatePerSecond), 1))

	driver := &acquire.Driver{
		Fetcher:    fetcher,
		Store:      store.NewSeriesStore(*outDir),
		Ledger:     store.NewLedger(runID),
		LedgerPath: paths.LedgerJSON,
		Workers:    *workers,
		Logger:     logger,
	}

	summary, err := driver.Run(ctx, u, series.DateRange{Start: from, End: to})
	if err != nil {
		logger.Error("Acquisition run aborted", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Per-ticker failures are reported but do not fail the run
	if summary.Failed > 0 {
		logger.Warn("Some tickers could not be fetched",
			slog.Int("failed", summary.Failed),
			slog.String("tickers", strings.Join(summary.FailedTickers, ",")))
	}
	logger.Info("Acquisition complete",
		slog.Int("existing", summary.Existing),
		slog.Int("fetched", summary.Fetched),
		slog.Int("failed", summary.Failed),
		slog.Duration("duration", summary.Duration))
}

// loadUniverse loads the saved universe, resolving it from the index
// first when asked to reload or when no saved universe exists yet.
func loadUniverse(ctx context.Context, cfg *config.Config, tickersPath string, reload bool, logger *slog.Logger) (universe.Universe, error) {
	tickerStore := universe.NewStore(tickersPath)

	if reload || !tickerStore.Exists() {
		logger.Info("Resolving ticker universe from index",
			slog.String("url", cfg.Universe.IndexURL),
			slog.Bool("reload", reload))

		source := universe.NewIndexSource(cfg.Universe.IndexURL)
		u, err := source.Resolve(ctx)
		if err != nil {
			return universe.Universe{}, err
		}
		if err := tickerStore.Save(u, cfg.Universe.ExpectedCount); err != nil {
			return universe.Universe{}, err
		}
	}

	return tickerStore.Load()
}
