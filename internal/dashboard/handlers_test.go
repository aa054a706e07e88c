package dashboard

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
	"github.com/couchcryptid/air-quality-etl/internal/observability"
)

type stubStore struct {
	data []domain.Measurement
}

func (s *stubStore) QueryMeasurements(context.Context) ([]domain.Measurement, error) {
	return s.data, nil
}

func ptr[T any](v T) *T { return &v }

// 2023-11-14T22:13:20Z and one hour later.
const (
	dt1 = int64(1700000000)
	dt2 = int64(1700003600)
)

func testServer(data []domain.Measurement) *Server {
	cache := NewCache(&stubStore{data: data}, 5*time.Minute, clockwork.NewRealClock(),
		observability.NewMetricsForTesting())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(cache, logger)
}

func get(t *testing.T, s *Server, path string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, path, nil)
	require.NoError(t, err)

	resp, err := s.App().Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func sampleData() []domain.Measurement {
	id := int64(1)
	return []domain.Measurement{
		{CityID: &id, CityName: "Madrid", Country: "ES", Dt: dt1, AQI: ptr(int64(2)), PM25: ptr(12.3)},
		{CityID: &id, CityName: "Madrid", Country: "ES", Dt: dt2, AQI: ptr(int64(3)), PM25: ptr(15.1)},
		{CityID: ptr(int64(2)), CityName: "Bogota", Country: "CO", Dt: dt1, AQI: ptr(int64(4))},
	}
}

func TestHealthz(t *testing.T) {
	status, body := get(t, testServer(nil), "/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
}

func TestCities_SortedDistinct(t *testing.T) {
	status, body := get(t, testServer(sampleData()), "/api/v1/cities")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"Bogota", "Madrid"}, body["cities"])
	assert.NotContains(t, body, "message")
}

func TestCities_EmptyStateMessage(t *testing.T) {
	status, body := get(t, testServer(nil), "/api/v1/cities")
	require.Equal(t, http.StatusOK, status, "an empty store is informational, not an error")
	assert.Empty(t, body["cities"])
	assert.Contains(t, body["message"], "no data")
}

func TestDates_ForCity(t *testing.T) {
	status, body := get(t, testServer(sampleData()), "/api/v1/dates?city=Madrid")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"2023-11-14"}, body["dates"])
}

func TestDates_MissingCityParam(t *testing.T) {
	status, _ := get(t, testServer(sampleData()), "/api/v1/dates")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestMeasurements_FilteredAndDecorated(t *testing.T) {
	status, body := get(t, testServer(sampleData()),
		"/api/v1/measurements?city=Madrid&date=2023-11-14")
	require.Equal(t, http.StatusOK, status)

	ms, ok := body["measurements"].([]any)
	require.True(t, ok)
	require.Len(t, ms, 2)

	first := ms[0].(map[string]any)
	assert.Equal(t, float64(dt1), first["dt"])
	assert.Equal(t, "Fair", first["aqi_label"])
	assert.Equal(t, "yellow", first["aqi_color"])
	assert.Equal(t, 12.3, first["pm2_5"])
	assert.Nil(t, first["co"])
}

func TestMeasurements_UnknownAQI(t *testing.T) {
	id := int64(1)
	data := []domain.Measurement{
		{CityID: &id, CityName: "Madrid", Country: "ES", Dt: dt1}, // nil AQI
	}
	status, body := get(t, testServer(data), "/api/v1/measurements?city=Madrid&date=2023-11-14")
	require.Equal(t, http.StatusOK, status)

	ms := body["measurements"].([]any)
	require.Len(t, ms, 1)
	first := ms[0].(map[string]any)
	assert.Equal(t, "Unknown", first["aqi_label"])
	assert.Equal(t, "gray", first["aqi_color"])
}

func TestMeasurements_NoMatchEmptyState(t *testing.T) {
	status, body := get(t, testServer(sampleData()),
		"/api/v1/measurements?city=Madrid&date=1999-01-01")
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["measurements"])
	assert.Contains(t, body["message"], "no data")
}

func TestMeasurements_BadDate(t *testing.T) {
	status, _ := get(t, testServer(sampleData()),
		"/api/v1/measurements?city=Madrid&date=14-11-2023")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSummary_LatestRow(t *testing.T) {
	status, body := get(t, testServer(sampleData()),
		"/api/v1/summary?city=Madrid&date=2023-11-14")
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, "Moderate", body["aqi_label"])
	latest, ok := body["latest"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(dt2), latest["dt"], "the latest row of the day wins")
	assert.Equal(t, 15.1, latest["pm2_5"])
}

func TestIndex_ServesHTML(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, err)

	resp, err := testServer(nil).App().Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	page, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(page), "Air quality")
}
