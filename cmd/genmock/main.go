// Command genmock generates synthetic OpenWeather air-pollution history
// fixtures for the configured cities and date range. The output files have
// the exact shape of real API responses, so they can back offline
// development and test suites without an API key.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock -seed 1
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/air-quality-etl/internal/config"
)

// entry mirrors the API's measurement object. Fields are always populated
// in generated data; null-handling is exercised by handwritten test
// fixtures, not by this tool.
type entry struct {
	Dt   int64 `json:"dt"`
	Main struct {
		AQI int64 `json:"aqi"`
	} `json:"main"`
	Components map[string]float64 `json:"components"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data/mock", "output directory for fixture files")
	seed := flag.Int64("seed", 1, "random seed for reproducible fixtures")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	cities, err := config.LoadCities()
	if err != nil {
		return fmt.Errorf("load cities: %w", err)
	}

	if err := os.MkdirAll(*out, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	rng := rand.New(rand.NewSource(*seed))

	for _, city := range cities {
		var resp struct {
			List []entry `json:"list"`
		}
		// One entry per hour across the configured range.
		for dt := cfg.StartUnix; dt <= cfg.EndUnix; dt += 3600 {
			e := entry{Dt: dt}
			e.Main.AQI = 1 + rng.Int63n(5)
			e.Components = map[string]float64{
				"co":    round2(200 + rng.Float64()*400),
				"no":    round2(rng.Float64() * 5),
				"no2":   round2(5 + rng.Float64()*40),
				"o3":    round2(20 + rng.Float64()*80),
				"so2":   round2(rng.Float64() * 15),
				"pm2_5": round2(2 + rng.Float64()*50),
				"pm10":  round2(5 + rng.Float64()*70),
				"nh3":   round2(rng.Float64() * 10),
			}
			resp.List = append(resp.List, e)
		}

		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal fixture: %w", err)
		}

		name := strings.ReplaceAll(
			fmt.Sprintf("%s_%s_history.json", city.CityName, city.Country), " ", "_")
		path := filepath.Join(*out, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write fixture: %w", err)
		}
		fmt.Printf("wrote %s (%d entries)\n", path, len(resp.List))
	}

	return nil
}

func round2(v float64) float64 {
	return float64(int(v*100)) / 100
}
