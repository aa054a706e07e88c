package archive

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
)

// CSVWriter exports the processed dimension and fact tables to flat files.
// The dimension file is rewritten whole on every run; the fact file is
// append-only, with the header written only when the file is first created.
type CSVWriter struct {
	dir string
}

// NewCSVWriter creates a CSV exporter rooted at dir.
func NewCSVWriter(dir string) *CSVWriter {
	return &CSVWriter{dir: dir}
}

var (
	cityHeader = []string{"city_name", "country", "lat", "lon"}
	factHeader = []string{"city_name", "country", "dt", "aqi",
		"co", "no", "no2", "o3", "so2", "pm2_5", "pm10", "nh3"}
)

// WriteCities overwrites dim_city.csv with the given rows.
func (w *CSVWriter) WriteCities(rows []domain.CityRow) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create processed dir: %w", err)
	}

	f, err := os.Create(filepath.Join(w.dir, "dim_city.csv"))
	if err != nil {
		return fmt.Errorf("create dim_city.csv: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(cityHeader); err != nil {
		return fmt.Errorf("write city header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.CityName,
			row.Country,
			strconv.FormatFloat(row.Lat, 'f', -1, 64),
			strconv.FormatFloat(row.Lon, 'f', -1, 64),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write city row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// AppendFacts appends the fact rows to fact_air_pollution.csv. Nil fields
// render as empty cells so the export round-trips NULLs.
func (w *CSVWriter) AppendFacts(rows []domain.FactRow) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create processed dir: %w", err)
	}

	path := filepath.Join(w.dir, "fact_air_pollution.csv")
	_, statErr := os.Stat(path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open fact_air_pollution.csv: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if writeHeader {
		if err := cw.Write(factHeader); err != nil {
			return fmt.Errorf("write fact header: %w", err)
		}
	}
	for _, row := range rows {
		record := []string{
			row.CityName,
			row.Country,
			strconv.FormatInt(row.Dt, 10),
			formatInt(row.AQI),
			formatFloat(row.CO),
			formatFloat(row.NO),
			formatFloat(row.NO2),
			formatFloat(row.O3),
			formatFloat(row.SO2),
			formatFloat(row.PM25),
			formatFloat(row.PM10),
			formatFloat(row.NH3),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write fact row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
