// Package pipeline sequences the extract, transform, and load stages of one
// ETL run.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/air-quality-etl/internal/config"
	"github.com/couchcryptid/air-quality-etl/internal/domain"
	"github.com/couchcryptid/air-quality-etl/internal/observability"
)

// Fetcher retrieves one city's raw history payload.
type Fetcher interface {
	FetchRange(ctx context.Context, city domain.CityRow, startUnix, endUnix int64) ([]byte, error)
}

// RawArchiver persists a verbatim API response for audit purposes.
type RawArchiver interface {
	Write(city domain.CityRow, payload []byte) error
}

// CSVExporter writes the processed tables to flat files.
type CSVExporter interface {
	WriteCities(rows []domain.CityRow) error
	AppendFacts(rows []domain.FactRow) error
}

// Store is the relational sink for the star schema.
type Store interface {
	EnsureSchema(ctx context.Context, schemaPath string) error
	UpsertCities(ctx context.Context, rows []domain.CityRow) (int, error)
	AppendFacts(ctx context.Context, rows []domain.FactRow) (inserted, unresolved int, err error)
}

// ExtractResult is the typed outcome of the extraction stage: each
// configured city either yielded a payload or was skipped with a reason.
type ExtractResult struct {
	Fetched []domain.RawCityData
	Skipped []domain.SkippedCity
}

// Pipeline runs a single synchronous extract-transform-load pass.
type Pipeline struct {
	cfg     *config.Settings
	cities  []domain.CityRow
	fetcher Fetcher
	raw     RawArchiver // nil when raw archival is disabled
	csv     CSVExporter
	store   Store
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New assembles a pipeline. Pass a nil RawArchiver to disable the raw
// side channel.
func New(cfg *config.Settings, cities []domain.CityRow, fetcher Fetcher, raw RawArchiver,
	csv CSVExporter, store Store, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		cities:  cities,
		fetcher: fetcher,
		raw:     raw,
		csv:     csv,
		store:   store,
		logger:  logger,
		metrics: metrics,
	}
}

// Run executes one pass: ensure-schema, extract, transform, export CSVs,
// load dimension, load facts. An empty extraction ends the run early with
// an informational log, not an error. Storage and schema failures abort the
// run; dimension rows committed before a fact-load failure stay committed.
func (p *Pipeline) Run(ctx context.Context) error {
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	if err := p.store.EnsureSchema(ctx, p.cfg.SchemaPath); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	result := p.extract(ctx)
	if len(result.Fetched) == 0 {
		p.logger.Info("no data obtained from the API, skipping transform and load",
			"cities_skipped", len(result.Skipped))
		return nil
	}

	start := time.Now()
	cityRows, factRows := domain.Normalize(result.Fetched)
	p.metrics.StageDuration.WithLabelValues("transform").Observe(time.Since(start).Seconds())

	start = time.Now()
	if err := p.csv.WriteCities(cityRows); err != nil {
		return fmt.Errorf("export dimension csv: %w", err)
	}
	if err := p.csv.AppendFacts(factRows); err != nil {
		return fmt.Errorf("export fact csv: %w", err)
	}
	p.metrics.StageDuration.WithLabelValues("archive").Observe(time.Since(start).Seconds())

	start = time.Now()
	insertedCities, err := p.store.UpsertCities(ctx, cityRows)
	if err != nil {
		return fmt.Errorf("load dimension: %w", err)
	}
	p.metrics.DimRowsInserted.Add(float64(insertedCities))

	insertedFacts, unresolved, err := p.store.AppendFacts(ctx, factRows)
	if err != nil {
		return fmt.Errorf("load facts: %w", err)
	}
	p.metrics.StageDuration.WithLabelValues("load").Observe(time.Since(start).Seconds())
	p.metrics.FactRowsLoaded.Add(float64(insertedFacts))
	p.metrics.UnresolvedFactKeys.Add(float64(unresolved))

	if unresolved > 0 {
		p.logger.Warn("fact rows inserted with unresolved city keys",
			"unresolved", unresolved)
	}

	p.logger.Info("ETL run completed",
		"cities_fetched", len(result.Fetched),
		"cities_skipped", len(result.Skipped),
		"cities_inserted", insertedCities,
		"facts_inserted", insertedFacts,
	)
	return nil
}

// extract fetches each configured city in turn. Failures are per-city: the
// city is logged, counted, and skipped, and extraction continues. When raw
// archival is enabled the verbatim payload is written before the data is
// handed to the transform stage; an archive-write failure is a warning, not
// a skip, since the audit trail is not a pipeline dependency.
func (p *Pipeline) extract(ctx context.Context) ExtractResult {
	start := time.Now()
	defer func() {
		p.metrics.StageDuration.WithLabelValues("extract").Observe(time.Since(start).Seconds())
	}()

	var result ExtractResult
	for _, city := range p.cities {
		payload, err := p.fetcher.FetchRange(ctx, city, p.cfg.StartUnix, p.cfg.EndUnix)
		if err != nil {
			p.logger.Warn("skipping city after fetch failure",
				"city", city.CityName, "country", city.Country,
				"lat", city.Lat, "lon", city.Lon, "error", err)
			p.metrics.CitiesSkipped.Inc()
			result.Skipped = append(result.Skipped, domain.SkippedCity{City: city, Reason: err.Error()})
			continue
		}

		if p.raw != nil {
			if err := p.raw.Write(city, payload); err != nil {
				p.logger.Warn("raw archive write failed",
					"city", city.CityName, "error", err)
			}
		}

		p.metrics.CitiesFetched.Inc()
		result.Fetched = append(result.Fetched, domain.RawCityData{City: city, Payload: payload})
	}
	return result
}
