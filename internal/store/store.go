// Package store persists the air-pollution star schema through database/sql.
//
// The default backend is a local SQLite file; a postgres:// DB_URL switches
// to PostgreSQL. Queries are written with ? placeholders and rebound to $N
// for PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
)

// Store wraps a SQL database holding dim_city and fact_air_pollution.
type Store struct {
	db     *sql.DB
	driver string
	log    *slog.Logger
}

// Open connects to the store described by dbURL: "sqlite://<path>" or a
// "postgres://" connection string. For SQLite the parent directory is
// created if needed.
func Open(dbURL string, logger *slog.Logger) (*Store, error) {
	switch {
	case strings.HasPrefix(dbURL, "sqlite://"):
		path := strings.TrimPrefix(dbURL, "sqlite://")
		if dir := filepath.Dir(path); dir != "." && !strings.HasPrefix(path, ":") {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db directory: %w", err)
			}
		}
		db, err := sql.Open("sqlite", path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// SQLite allows one writer; a single pooled connection also keeps
		// ":memory:" databases from splitting across connections.
		db.SetMaxOpenConns(1)
		return &Store{db: db, driver: "sqlite", log: logger}, nil

	case strings.HasPrefix(dbURL, "postgres://"), strings.HasPrefix(dbURL, "postgresql://"):
		db, err := sql.Open("postgres", dbURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return &Store{db: db, driver: "postgres", log: logger}, nil

	default:
		return nil, fmt.Errorf("unsupported DB_URL scheme: %q", dbURL)
	}
}

// DB exposes the underlying handle for ad-hoc read queries (validation
// tooling). Writes must go through the typed operations.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// EnsureSchema executes the DDL script at schemaPath statement by statement.
// The script uses IF NOT EXISTS throughout, so re-running it is a no-op. A
// missing script file is a fatal configuration error.
func (s *Store) EnsureSchema(ctx context.Context, schemaPath string) error {
	script, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("read schema script: %w", err)
	}

	for _, statement := range strings.Split(string(script), ";") {
		statement = strings.TrimSpace(statement)
		if statement == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}
	return nil
}

// bind rewrites ? placeholders to $N for PostgreSQL. SQLite takes ? as-is.
func (s *Store) bind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// UpsertCities inserts the city rows whose natural key does not yet exist in
// dim_city. Existing rows are never updated: coordinates are immutable once
// a city exists, even if the configuration later changes them. Returns the
// number of rows inserted. No-op on empty input.
func (s *Store) UpsertCities(ctx context.Context, rows []domain.CityRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin upsert cities: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	existing, err := s.naturalKeys(ctx, tx)
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, s.bind(
		`INSERT INTO dim_city (city_name, country, lat, lon) VALUES (?, ?, ?, ?)`))
	if err != nil {
		return 0, fmt.Errorf("prepare city insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, row := range rows {
		if _, ok := existing[row.NaturalKey()]; ok {
			continue
		}
		if _, err := stmt.ExecContext(ctx, row.CityName, row.Country, row.Lat, row.Lon); err != nil {
			return 0, fmt.Errorf("insert city %s/%s: %w", row.CityName, row.Country, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert cities: %w", err)
	}
	return inserted, nil
}

func (s *Store) naturalKeys(ctx context.Context, tx *sql.Tx) (map[string]struct{}, error) {
	rows, err := tx.QueryContext(ctx, `SELECT city_name, country FROM dim_city`)
	if err != nil {
		return nil, fmt.Errorf("read existing cities: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var c domain.CityRow
		if err := rows.Scan(&c.CityName, &c.Country); err != nil {
			return nil, fmt.Errorf("scan city key: %w", err)
		}
		keys[c.NaturalKey()] = struct{}{}
	}
	return keys, rows.Err()
}

// AppendFacts resolves each fact row's city to its surrogate key and appends
// the rows to fact_air_pollution. The dimension is re-read inside the same
// transaction so keys inserted earlier in this run are visible. Rows whose
// join misses are still inserted, with a NULL city_id; the unresolved count
// is returned so callers can surface the gap. Facts are never deduplicated.
// No-op on empty input.
func (s *Store) AppendFacts(ctx context.Context, rows []domain.FactRow) (inserted, unresolved int, err error) {
	if len(rows) == 0 {
		return 0, 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin append facts: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	ids, err := s.surrogateKeys(ctx, tx)
	if err != nil {
		return 0, 0, err
	}

	stmt, err := tx.PrepareContext(ctx, s.bind(
		`INSERT INTO fact_air_pollution
			(city_id, dt, aqi, co, no, no2, o3, so2, pm2_5, pm10, nh3)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return 0, 0, fmt.Errorf("prepare fact insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		var cityID any
		if id, ok := ids[row.NaturalKey()]; ok {
			cityID = id
		} else {
			unresolved++
		}
		if _, err := stmt.ExecContext(ctx, cityID, row.Dt,
			nullInt(row.AQI), nullFloat(row.CO), nullFloat(row.NO), nullFloat(row.NO2),
			nullFloat(row.O3), nullFloat(row.SO2), nullFloat(row.PM25), nullFloat(row.PM10),
			nullFloat(row.NH3)); err != nil {
			return 0, 0, fmt.Errorf("insert fact for %s/%s: %w", row.CityName, row.Country, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit append facts: %w", err)
	}
	return inserted, unresolved, nil
}

func (s *Store) surrogateKeys(ctx context.Context, tx *sql.Tx) (map[string]int64, error) {
	rows, err := tx.QueryContext(ctx, `SELECT city_id, city_name, country FROM dim_city`)
	if err != nil {
		return nil, fmt.Errorf("read city keys: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]int64)
	for rows.Next() {
		var id int64
		var c domain.CityRow
		if err := rows.Scan(&id, &c.CityName, &c.Country); err != nil {
			return nil, fmt.Errorf("scan city id: %w", err)
		}
		ids[c.NaturalKey()] = id
	}
	return ids, rows.Err()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
