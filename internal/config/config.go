// Package config loads the pipeline settings from config files and the
// process environment.
//
// Static configuration lives in two files under the config directory
// (CONFIG_DIR, default "config"): settings.yaml with the API and ETL
// settings, and cities.csv with the tracked city list. Credentials and
// deployment-specific values come from environment variables, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// EnvAPIKey is the required OpenWeather credential variable. A missing
	// key aborts the whole run before any city is fetched.
	EnvAPIKey = "OPENWEATHER_API_KEY"

	defaultDBURL      = "sqlite://data/pollution.db"
	defaultSchemaPath = "sql/schema.sql"
	dateLayout        = "2006-01-02"
)

var validate = validator.New()

// Duration wraps time.Duration so YAML values like "10s" parse with
// time.ParseDuration semantics.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Settings holds the static pipeline configuration from settings.yaml plus
// environment-sourced values resolved at load time.
type Settings struct {
	API struct {
		BaseURL   string `yaml:"base_url" validate:"required,url"`
		StartDate string `yaml:"start_date" validate:"required,datetime=2006-01-02"`
		EndDate   string `yaml:"end_date" validate:"required,datetime=2006-01-02"`
	} `yaml:"api"`

	ETL struct {
		SaveRaw       bool     `yaml:"save_raw"`
		RawPath       string   `yaml:"raw_path"`
		ProcessedPath string   `yaml:"processed_path"`
		HTTPTimeout   Duration `yaml:"http_timeout"`
	} `yaml:"etl"`

	// Resolved from the environment.
	DBURL      string
	SchemaPath string
	LogLevel   string
	LogFormat  string

	// Inclusive Unix-timestamp bounds derived from the configured calendar
	// dates, start-of-day in local time (matching the source system's naive
	// date parsing).
	StartUnix int64
	EndUnix   int64
}

// Load reads settings.yaml from the config directory, validates it, and
// resolves environment overrides. A .env file is loaded best-effort first.
func Load() (*Settings, error) {
	_ = godotenv.Load()

	dir := envOrDefault("CONFIG_DIR", "config")
	data, err := os.ReadFile(filepath.Join(dir, "settings.yaml"))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	if err := validate.Struct(&s); err != nil {
		return nil, fmt.Errorf("validate settings: %w", err)
	}

	if s.ETL.RawPath == "" {
		s.ETL.RawPath = "data/raw"
	}
	if s.ETL.ProcessedPath == "" {
		s.ETL.ProcessedPath = "data/processed"
	}
	if s.ETL.HTTPTimeout <= 0 {
		s.ETL.HTTPTimeout = Duration(10 * time.Second)
	}

	start, err := time.ParseInLocation(dateLayout, s.API.StartDate, time.Local)
	if err != nil {
		return nil, fmt.Errorf("parse start_date: %w", err)
	}
	end, err := time.ParseInLocation(dateLayout, s.API.EndDate, time.Local)
	if err != nil {
		return nil, fmt.Errorf("parse end_date: %w", err)
	}
	if end.Before(start) {
		return nil, errors.New("end_date is before start_date")
	}
	s.StartUnix = start.Unix()
	s.EndUnix = end.Unix()

	s.DBURL = envOrDefault("DB_URL", defaultDBURL)
	s.SchemaPath = envOrDefault("DB_SCHEMA", defaultSchemaPath)
	s.LogLevel = envOrDefault("LOG_LEVEL", "info")
	s.LogFormat = envOrDefault("LOG_FORMAT", "text")

	return &s, nil
}

// APIKey returns the OpenWeather credential from the environment. An empty
// or unset variable is a fatal configuration error.
func APIKey() (string, error) {
	key := os.Getenv(EnvAPIKey)
	if key == "" {
		return "", fmt.Errorf("%s is not set", EnvAPIKey)
	}
	return key, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
