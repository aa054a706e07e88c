// Package openweather is the HTTP adapter for the OpenWeather Air Pollution
// History API.
package openweather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
)

// Client fetches historical air-pollution data. One call covers one city's
// full configured date range; the API returns the whole window in a single
// list.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an API client with a fixed request timeout.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// FetchRange performs one GET for the city's coordinates over the inclusive
// Unix-timestamp range and returns the verbatim response body. Network
// errors, non-2xx statuses, and bodies that are not valid JSON are all
// errors; callers treat them as per-city skips.
func (c *Client) FetchRange(ctx context.Context, city domain.CityRow, startUnix, endUnix int64) ([]byte, error) {
	params := url.Values{
		"lat":   {strconv.FormatFloat(city.Lat, 'f', -1, 64)},
		"lon":   {strconv.FormatFloat(city.Lon, 'f', -1, 64)},
		"start": {strconv.FormatInt(startUnix, 10)},
		"end":   {strconv.FormatInt(endUnix, 10)},
		"appid": {c.apiKey},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pollution history request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("openweather API error: status %d: %s", resp.StatusCode, body)
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("openweather API returned invalid JSON (%d bytes)", len(body))
	}

	return body, nil
}
