// Command etl runs one synchronous extract-transform-load pass over the
// configured city list and exits.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/air-quality-etl/internal/adapter/archive"
	"github.com/couchcryptid/air-quality-etl/internal/adapter/openweather"
	"github.com/couchcryptid/air-quality-etl/internal/config"
	"github.com/couchcryptid/air-quality-etl/internal/observability"
	"github.com/couchcryptid/air-quality-etl/internal/pipeline"
	"github.com/couchcryptid/air-quality-etl/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	apiKey, err := config.APIKey()
	if err != nil {
		logger.Error("missing API credential", "error", err)
		os.Exit(1)
	}

	cities, err := config.LoadCities()
	if err != nil {
		logger.Error("failed to load city list", "error", err)
		os.Exit(1)
	}

	db, err := store.Open(cfg.DBURL, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	client := openweather.NewClient(cfg.API.BaseURL, apiKey, cfg.ETL.HTTPTimeout.Std(), logger)

	var raw pipeline.RawArchiver
	if cfg.ETL.SaveRaw {
		raw = archive.NewRawWriter(cfg.ETL.RawPath, clockwork.NewRealClock(), logger)
	}
	csv := archive.NewCSVWriter(cfg.ETL.ProcessedPath)

	p := pipeline.New(cfg, cities, client, raw, csv, db, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := p.Run(ctx); err != nil {
		logger.Error("ETL run failed", "error", err)
		os.Exit(1)
	}
}
