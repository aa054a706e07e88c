// Command validate performs data integrity checks against a populated
// air-pollution database: dimension natural-key uniqueness, fact
// foreign-key resolution, AQI domain membership, and consistency between
// the database dimension and the processed CSV export.
//
// Usage:
//
//	go run ./cmd/validate -db sqlite://data/pollution.db -processed-dir data/processed
package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/air-quality-etl/internal/store"
)

// phase tracks pass/fail for one validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dbURL := flag.String("db", "sqlite://data/pollution.db", "database URL")
	processedDir := flag.String("processed-dir", "data/processed", "directory holding the processed CSV exports")
	flag.Parse()

	os.Exit(run(*dbURL, *processedDir))
}

func run(dbURL, processedDir string) int {
	logger := slog.Default()

	s, err := store.Open(dbURL, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		return 1
	}
	defer s.Close()

	ctx := context.Background()
	db := s.DB()

	phases := []*phase{
		checkDimUniqueness(ctx, db),
		checkFactResolution(ctx, db),
		checkAQIDomain(ctx, db),
		checkDimExport(ctx, db, processedDir),
	}

	failed := 0
	for _, p := range phases {
		if p.passed() {
			fmt.Printf("PASS  %s\n", p.name)
			continue
		}
		failed++
		fmt.Printf("FAIL  %s\n", p.name)
		for _, e := range p.errors {
			fmt.Printf("      %s\n", e)
		}
	}

	if failed > 0 {
		fmt.Printf("\n%d of %d phases failed\n", failed, len(phases))
		return 1
	}
	fmt.Printf("\nall %d phases passed\n", len(phases))
	return 0
}

// checkDimUniqueness verifies at most one dimension row per natural key.
func checkDimUniqueness(ctx context.Context, db *sql.DB) *phase {
	p := &phase{name: "dim_city natural-key uniqueness"}

	rows, err := db.QueryContext(ctx, `
		SELECT city_name, country, COUNT(*) AS n
		FROM dim_city
		GROUP BY city_name, country
		HAVING COUNT(*) > 1`)
	if err != nil {
		p.errorf("query: %v", err)
		return p
	}
	defer rows.Close()

	for rows.Next() {
		var name, country string
		var n int
		if err := rows.Scan(&name, &country, &n); err != nil {
			p.errorf("scan: %v", err)
			return p
		}
		p.errorf("%s/%s appears %d times", name, country, n)
	}
	return p
}

// checkFactResolution counts fact rows whose city_id is NULL or dangles.
// NULL keys are the pipeline's known join-miss behavior; this check makes
// them visible.
func checkFactResolution(ctx context.Context, db *sql.DB) *phase {
	p := &phase{name: "fact_air_pollution foreign-key resolution"}

	var nullKeys int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM fact_air_pollution WHERE city_id IS NULL`).Scan(&nullKeys); err != nil {
		p.errorf("query null keys: %v", err)
		return p
	}
	if nullKeys > 0 {
		p.errorf("%d fact rows have a NULL city_id (dimension join missed at load time)", nullKeys)
	}

	var dangling int
	if err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM fact_air_pollution p
		LEFT JOIN dim_city c ON p.city_id = c.city_id
		WHERE p.city_id IS NOT NULL AND c.city_id IS NULL`).Scan(&dangling); err != nil {
		p.errorf("query dangling keys: %v", err)
		return p
	}
	if dangling > 0 {
		p.errorf("%d fact rows reference a nonexistent city_id", dangling)
	}
	return p
}

// checkAQIDomain verifies every non-null AQI is in 1..5.
func checkAQIDomain(ctx context.Context, db *sql.DB) *phase {
	p := &phase{name: "AQI domain membership"}

	var outOfRange int
	if err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM fact_air_pollution
		WHERE aqi IS NOT NULL AND (aqi < 1 OR aqi > 5)`).Scan(&outOfRange); err != nil {
		p.errorf("query: %v", err)
		return p
	}
	if outOfRange > 0 {
		p.errorf("%d fact rows have AQI outside 1..5", outOfRange)
	}
	return p
}

// checkDimExport verifies every natural key in the dim_city.csv export
// exists in the database dimension. The export holds only the latest run's
// cities while the dimension accumulates across runs, so containment runs
// export-to-database.
func checkDimExport(ctx context.Context, db *sql.DB, processedDir string) *phase {
	p := &phase{name: "dim_city.csv export consistency"}

	f, err := os.Open(filepath.Join(processedDir, "dim_city.csv"))
	if err != nil {
		p.errorf("open export: %v", err)
		return p
	}
	defer f.Close()

	reader := csv.NewReader(f)
	if _, err := reader.Read(); err != nil {
		p.errorf("read export header: %v", err)
		return p
	}

	exported := make(map[string]struct{})
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			p.errorf("read export row: %v", err)
			return p
		}
		exported[record[0]+"|"+record[1]] = struct{}{}
	}

	rows, err := db.QueryContext(ctx, `SELECT city_name, country FROM dim_city`)
	if err != nil {
		p.errorf("query dimension: %v", err)
		return p
	}
	defer rows.Close()

	inDB := make(map[string]struct{})
	for rows.Next() {
		var name, country string
		if err := rows.Scan(&name, &country); err != nil {
			p.errorf("scan dimension: %v", err)
			return p
		}
		inDB[name+"|"+country] = struct{}{}
	}

	for key := range exported {
		if _, ok := inDB[key]; !ok {
			p.errorf("%s is exported but missing from the database", key)
		}
	}
	return p
}
