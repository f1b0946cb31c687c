package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"snpcli/internal/config"
	"snpcli/internal/infrastructure"
	"snpcli/internal/merge"
	"snpcli/internal/store"
)

func main() {
	dir := flag.String("dir", "", "directory containing per-ticker artifacts (defaults to data/stocks)")
	out := flag.String("out", "", "output csv file path (defaults to data/merged/snp500_merged.csv)")
	overwrite := flag.Bool("overwrite", false, "rebuild the merged table even if it already exists")
	workbook := flag.Bool("workbook", false, "additionally write the merged table as an Excel workbook")
	baseDir := flag.String("base", "", "base directory for data and logs (defaults to the executable directory)")
	flag.Parse()

	paths, err := config.GetPaths(*baseDir)
	if err != nil {
		fmt.Printf("Error: failed to initialize paths: %v\n", err)
		os.Exit(1)
	}
	if *dir == "" {
		*dir = paths.StocksDir
	}
	if *out == "" {
		*out = paths.MergedCSV
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
	cfg.Logging.FilePath = paths.GetLogPath("merge.log")

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Printf("Warning: failed to initialize logger, using default: %v\n", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	if !*overwrite {
		*overwrite = cfg.Merge.Overwrite
	}
	if !*workbook {
		*workbook = cfg.Merge.Workbook
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = infrastructure.WithRunID(ctx, uuid.NewString())
	logger = infrastructure.LoggerFromContext(ctx)

	logger.Info("Merge starting",
		slog.String("source_dir", *dir),
		slog.String("output", *out),
		slog.Bool("overwrite", *overwrite),
		slog.Bool("workbook", *workbook))

	engine := &merge.Engine{
		Store:    store.NewSeriesStore(*dir),
		DestPath: *out,
		Logger:   logger,
	}
	if *workbook {
		engine.WorkbookPath = paths.MergedXLSX
	}

	result, err := engine.Merge(ctx, *overwrite)
	if err != nil {
		logger.Error("Merge failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if result.Skipped {
		logger.Info("Merged table already up to date (use -overwrite to rebuild)",
			slog.String("path", *out))
		return
	}

	logger.Info("Merge complete",
		slog.String("path", *out),
		slog.Int("artifacts", result.Artifacts),
		slog.Int("rows", len(result.Table.Dates)),
		slog.Int("columns", len(result.Table.Tickers)))
}
