package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"snpcli/internal/config"
	"snpcli/internal/infrastructure"
	"snpcli/internal/universe"
)

func main() {
	indexURL := flag.String("url", "", "index document URL (defaults to configured universe source)")
	out := flag.String("out", "", "output csv file path (defaults to data/tickers/tickers.csv)")
	expected := flag.Int("expected", 0, "expected universe cardinality (defaults to configured value)")
	reload := flag.Bool("reload", false, "re-resolve the universe even if a saved file exists")
	baseDir := flag.String("base", "", "base directory for data and logs (defaults to the executable directory)")
	flag.Parse()

	paths, err := config.GetPaths(*baseDir)
	if err != nil {
		fmt.Printf("Error: failed to initialize paths: %v\n", err)
		os.Exit(1)
	}
	if *out == "" {
		*out = paths.TickersCSV
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
	cfg.Logging.FilePath = paths.GetLogPath("tickers.log")

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Printf("Warning: failed to initialize logger, using default: %v\n", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	if *indexURL == "" {
		*indexURL = cfg.Universe.IndexURL
	}
	if *expected == 0 {
		*expected = cfg.Universe.ExpectedCount
	}

	ctx := infrastructure.WithRunID(context.Background(), uuid.NewString())
	logger = infrastructure.LoggerFromContext(ctx)

	logger.Info("Ticker universe resolution starting",
		slog.String("url", *indexURL),
		slog.String("output", *out),
		slog.Int("expected_count", *expected))

	tickerStore := universe.NewStore(*out)
	if tickerStore.Exists() && !*reload {
		u, err := tickerStore.Load()
		if err != nil {
			logger.Error("Existing universe file unreadable", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("Universe already saved, skipping resolution (use -reload to refresh)",
			slog.String("path", *out),
			slog.Int("count", u.Count()))
		return
	}

	source := universe.NewIndexSource(*indexURL)
	u, err := source.Resolve(ctx)
	if err != nil {
		logger.Error("Failed to resolve ticker universe", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := tickerStore.Save(u, *expected); err != nil {
		logger.Error("Failed to save ticker universe", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Ticker universe saved",
		slog.String("path", *out),
		slog.Int("count", u.Count()))
}
