package config

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
)

// LoadCities reads the tracked city list from cities.csv in the config
// directory. The file must carry the header city_name,country,lat,lon;
// malformed rows are a configuration error, not a skip.
func LoadCities() ([]domain.CityRow, error) {
	dir := envOrDefault("CONFIG_DIR", "config")
	f, err := os.Open(filepath.Join(dir, "cities.csv"))
	if err != nil {
		return nil, fmt.Errorf("open cities: %w", err)
	}
	defer f.Close()

	return parseCities(f)
}

func parseCities(r io.Reader) ([]domain.CityRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read cities header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"city_name", "country", "lat", "lon"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("cities.csv missing column %q", required)
		}
	}

	var cities []domain.CityRow
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read cities line %d: %w", line, err)
		}

		lat, err := strconv.ParseFloat(record[col["lat"]], 64)
		if err != nil {
			return nil, fmt.Errorf("cities line %d: invalid lat: %w", line, err)
		}
		lon, err := strconv.ParseFloat(record[col["lon"]], 64)
		if err != nil {
			return nil, fmt.Errorf("cities line %d: invalid lon: %w", line, err)
		}

		cities = append(cities, domain.CityRow{
			CityName: record[col["city_name"]],
			Country:  record[col["country"]],
			Lat:      lat,
			Lon:      lon,
		})
	}

	return cities, nil
}
