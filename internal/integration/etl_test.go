// Package integration exercises the full extract-transform-load path with a
// real SQLite store and a stubbed OpenWeather API. No external services are
// required.
package integration

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/air-quality-etl/internal/adapter/archive"
	"github.com/couchcryptid/air-quality-etl/internal/adapter/openweather"
	"github.com/couchcryptid/air-quality-etl/internal/config"
	"github.com/couchcryptid/air-quality-etl/internal/domain"
	"github.com/couchcryptid/air-quality-etl/internal/observability"
	"github.com/couchcryptid/air-quality-etl/internal/pipeline"
	"github.com/couchcryptid/air-quality-etl/internal/store"
)

const springfieldPayload = `{"list": [
	{"dt": 1700000000, "main": {"aqi": 2}, "components": {"pm2_5": 12.3}}
]}`

const schema = `
CREATE TABLE IF NOT EXISTS dim_city (
    city_id   INTEGER PRIMARY KEY AUTOINCREMENT,
    city_name TEXT NOT NULL,
    country   TEXT NOT NULL,
    lat       REAL NOT NULL,
    lon       REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS fact_air_pollution (
    city_id INTEGER,
    dt      BIGINT NOT NULL,
    aqi     INTEGER,
    co      REAL,
    no      REAL,
    no2     REAL,
    o3      REAL,
    so2     REAL,
    pm2_5   REAL,
    pm10    REAL,
    nh3     REAL
)
`

type env struct {
	pipeline *pipeline.Pipeline
	store    *store.Store
	dir      string
}

func newEnv(t *testing.T, apiURL string, cities []domain.CityRow) *env {
	t.Helper()

	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	schemaPath := filepath.Join(dir, "schema.sql")
	require.NoError(t, os.WriteFile(schemaPath, []byte(schema), 0o644))

	s, err := store.Open("sqlite://"+filepath.Join(dir, "pollution.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	cfg := &config.Settings{
		SchemaPath: schemaPath,
		StartUnix:  1700000000,
		EndUnix:    1700086400,
	}
	cfg.API.BaseURL = apiURL

	client := openweather.NewClient(apiURL, "test-key", 5*time.Second, logger)
	raw := archive.NewRawWriter(filepath.Join(dir, "raw"), clockwork.NewFakeClock(), logger)
	csv := archive.NewCSVWriter(filepath.Join(dir, "processed"))

	p := pipeline.New(cfg, cities, client, raw, csv, s, logger,
		observability.NewMetricsForTesting())

	return &env{pipeline: p, store: s, dir: dir}
}

func TestPipeline_SpringfieldEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(springfieldPayload))
	}))
	defer srv.Close()

	springfield := domain.CityRow{CityName: "Springfield", Country: "US", Lat: 39.8, Lon: -89.6}
	e := newEnv(t, srv.URL, []domain.CityRow{springfield})

	require.NoError(t, e.pipeline.Run(context.Background()))

	var cityCount int
	require.NoError(t, e.store.DB().QueryRow(`SELECT COUNT(*) FROM dim_city`).Scan(&cityCount))
	assert.Equal(t, 1, cityCount)

	ms, err := e.store.QueryMeasurements(context.Background())
	require.NoError(t, err)
	require.Len(t, ms, 1)

	m := ms[0]
	assert.Equal(t, "Springfield", m.CityName)
	assert.Equal(t, "US", m.Country)
	assert.Equal(t, int64(1700000000), m.Dt)
	require.NotNil(t, m.CityID, "the surrogate key resolved")
	require.NotNil(t, m.AQI)
	assert.Equal(t, int64(2), *m.AQI)
	require.NotNil(t, m.PM25)
	assert.Equal(t, 12.3, *m.PM25)
	assert.Nil(t, m.CO)
	assert.Nil(t, m.NO)
	assert.Nil(t, m.NO2)
	assert.Nil(t, m.O3)
	assert.Nil(t, m.SO2)
	assert.Nil(t, m.PM10)
	assert.Nil(t, m.NH3)

	// Raw archive and processed CSVs exist as side channels.
	rawEntries, err := os.ReadDir(filepath.Join(e.dir, "raw"))
	require.NoError(t, err)
	assert.Len(t, rawEntries, 1)
	_, err = os.Stat(filepath.Join(e.dir, "processed", "dim_city.csv"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(e.dir, "processed", "fact_air_pollution.csv"))
	assert.NoError(t, err)
}

func TestPipeline_RerunKeepsDimensionDoublesFacts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(springfieldPayload))
	}))
	defer srv.Close()

	springfield := domain.CityRow{CityName: "Springfield", Country: "US", Lat: 39.8, Lon: -89.6}
	e := newEnv(t, srv.URL, []domain.CityRow{springfield})

	require.NoError(t, e.pipeline.Run(context.Background()))
	require.NoError(t, e.pipeline.Run(context.Background()))

	var cityCount, factCount int
	require.NoError(t, e.store.DB().QueryRow(`SELECT COUNT(*) FROM dim_city`).Scan(&cityCount))
	require.NoError(t, e.store.DB().QueryRow(`SELECT COUNT(*) FROM fact_air_pollution`).Scan(&factCount))

	assert.Equal(t, 1, cityCount, "no duplicate dimension rows")
	assert.Equal(t, 2, factCount, "overlapping windows double the fact rows")
}

func TestPipeline_AllRequestsFailLoadsNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	cities := []domain.CityRow{
		{CityName: "Madrid", Country: "ES"},
		{CityName: "Bogota", Country: "CO"},
	}
	e := newEnv(t, srv.URL, cities)

	require.NoError(t, e.pipeline.Run(context.Background()), "empty extraction is informational")

	var cityCount, factCount int
	require.NoError(t, e.store.DB().QueryRow(`SELECT COUNT(*) FROM dim_city`).Scan(&cityCount))
	require.NoError(t, e.store.DB().QueryRow(`SELECT COUNT(*) FROM fact_air_pollution`).Scan(&factCount))
	assert.Zero(t, cityCount)
	assert.Zero(t, factCount)
}
