package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/freee-sys/parsing/config"
	"github.com/freee-sys/parsing/models"
	"github.com/freee-sys/parsing/pipeline"
	"github.com/freee-sys/parsing/scraper"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	defaultCfg := config.DefaultConfig()
	idsDefault := joinIDs(defaultCfg.BookIDs)
	if value, ok := config.EnvString("SCRAPER_IDS"); ok {
		idsDefault = value
	}
	dbDefault := defaultCfg.DatabasePath
	if value, ok := config.EnvString("SCRAPER_DB"); ok {
		dbDefault = value
	}
	baseURLDefault := defaultCfg.BaseURL
	if value, ok := config.EnvString("SCRAPER_BASE_URL"); ok {
		baseURLDefault = value
	}
	delayDefault := 0
	if value, ok, err := config.EnvInt("SCRAPER_DELAY_MS"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_DELAY_MS: %v\n", err)
		os.Exit(1)
	} else if ok {
		delayDefault = value
	}
	strictDefault := defaultCfg.StrictParsing
	if value, ok, err := config.EnvBool("SCRAPER_STRICT"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_STRICT: %v\n", err)
		os.Exit(1)
	} else if ok {
		strictDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("SCRAPER_METRICS_ADDR"); ok {
		metricsDefault = value
	}

	ids := flag.String("ids", idsDefault, "Comma separated book ids to import, in order")
	dbPath := flag.String("db", dbDefault, "SQLite database file, or a libsql:// URL")
	baseURL := flag.String("base-url", baseURLDefault, "Bookstore base URL")
	exportFile := flag.String("export", "", "Also mirror imported rows to this file")
	exportFormat := flag.String("format", defaultCfg.ExportFormat, "Export format: csv or json")
	delayMs := flag.Int("delay", delayDefault, "Delay between requests (milliseconds)")
	timeoutSec := flag.Int("timeout", int(defaultCfg.Timeout/time.Second), "Request timeout (seconds)")
	strict := flag.Bool("strict", strictDefault, "Abort the run when a ratings count cannot be parsed")
	respectRobots := flag.Bool("respect-robots", false, "Respect robots.txt directives")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	bookIDs, err := config.ParseIDs(*ids)
	if err != nil {
		slog.Error("invalid book ids", slog.Any("error", err))
		os.Exit(1)
	}

	cfg := defaultCfg
	cfg.BaseURL = *baseURL
	cfg.BookIDs = bookIDs
	cfg.DatabasePath = *dbPath
	cfg.ExportFile = *exportFile
	cfg.ExportFormat = strings.ToLower(*exportFormat)
	cfg.Delay = time.Duration(*delayMs) * time.Millisecond
	cfg.Timeout = time.Duration(*timeoutSec) * time.Second
	cfg.StrictParsing = *strict
	cfg.RespectRobotsTxt = *respectRobots
	cfg.Verbose = *verbose
	cfg.MetricsAddr = *metricsAddr
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("import failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	slog.Debug("starting import",
		slog.String("base_url", cfg.BaseURL),
		slog.Int("books", len(cfg.BookIDs)),
		slog.String("database", cfg.DatabasePath),
	)

	s, err := scraper.NewScraper(cfg)
	if err != nil {
		return fmt.Errorf("initialising scraper: %w", err)
	}

	writer, err := createWriter(cfg)
	if err != nil {
		return fmt.Errorf("creating writer: %w", err)
	}
	p := pipeline.NewPipeline(writer)
	defer func() {
		if err := p.Close(); err != nil {
			slog.Error("close writer", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		metricsServer := &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", slog.Any("error", err))
			}
		}()
	}

	result, err := s.Run(ctx, p)
	if err != nil {
		return err
	}

	if err := p.Validate(); err != nil {
		return fmt.Errorf("output validation failed: %w", err)
	}

	logSummary(result, p.GetMetrics())
	return nil
}

func createWriter(cfg *config.Config) (pipeline.OutputWriter, error) {
	store, err := pipeline.OpenSQLite(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	if cfg.ExportFile == "" {
		return store, nil
	}

	var export pipeline.OutputWriter
	switch cfg.ExportFormat {
	case "json":
		export, err = pipeline.NewJSONWriter(cfg.ExportFile)
	case "csv":
		export, err = pipeline.NewCSVWriter(cfg.ExportFile)
	default:
		err = fmt.Errorf("unsupported format: %s", cfg.ExportFormat)
	}
	if err != nil {
		store.Close()
		return nil, err
	}
	return pipeline.NewMultiWriter(store, export)
}

func logSummary(result *models.ImportResult, metrics map[string]interface{}) {
	processed, _ := metrics["processed_books"].(int64)
	slog.Debug("import complete",
		slog.Int("attempted", result.Attempted),
		slog.Int64("saved", processed),
		slog.Int("skipped", len(result.SkippedIDs)),
		slog.Any("skip_reasons", result.SkipReasons),
		slog.Int("requests", result.RequestCount),
		slog.Duration("duration", result.EndTime.Sub(result.StartTime)),
	)
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ",")
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	// stdout carries the per-book confirmations only
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
