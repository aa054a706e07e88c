// Package archive writes the pipeline's file side channels: the raw-response
// audit trail and the processed CSV exports.
package archive

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
)

// RawWriter archives verbatim API responses, one file per (city, run).
// Archived files are write-only: nothing in the pipeline ever reads them
// back. Filenames carry a UTC timestamp so repeated runs never collide.
type RawWriter struct {
	dir   string
	clock clockwork.Clock
	log   *slog.Logger
}

// NewRawWriter creates a raw archiver rooted at dir.
func NewRawWriter(dir string, clock clockwork.Clock, logger *slog.Logger) *RawWriter {
	return &RawWriter{dir: dir, clock: clock, log: logger}
}

// Write stores the payload as <city>_<country>_<timestamp>.json under the
// archive directory, creating it if needed. Spaces in city names are
// replaced with underscores.
func (w *RawWriter) Write(city domain.CityRow, payload []byte) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create raw archive dir: %w", err)
	}

	ts := w.clock.Now().UTC().Format("20060102T150405Z")
	name := strings.ReplaceAll(
		fmt.Sprintf("%s_%s_%s.json", city.CityName, city.Country, ts), " ", "_")

	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write raw archive: %w", err)
	}

	w.log.Debug("archived raw response", "city", city.CityName, "path", path)
	return nil
}
