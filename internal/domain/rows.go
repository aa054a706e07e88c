package domain

import "fmt"

// CityRow is one row of the dim_city dimension table, keyed naturally by
// (CityName, Country) until the store assigns a surrogate city_id.
type CityRow struct {
	CityName string  `json:"city_name"`
	Country  string  `json:"country"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
}

// NaturalKey returns the business key used for deduplication and for joining
// fact rows to dimension rows before a surrogate key exists.
func (c CityRow) NaturalKey() string {
	return fmt.Sprintf("%s|%s", c.CityName, c.Country)
}

// FactRow is one row of the fact_air_pollution table prior to surrogate-key
// resolution. Dt stays a raw Unix timestamp; calendar conversion is a
// presentation concern. Nil pollutant fields become SQL NULL.
type FactRow struct {
	CityName string `json:"city_name"`
	Country  string `json:"country"`
	Dt       int64  `json:"dt"`

	AQI  *int64   `json:"aqi"`
	CO   *float64 `json:"co"`
	NO   *float64 `json:"no"`
	NO2  *float64 `json:"no2"`
	O3   *float64 `json:"o3"`
	SO2  *float64 `json:"so2"`
	PM25 *float64 `json:"pm2_5"`
	PM10 *float64 `json:"pm10"`
	NH3  *float64 `json:"nh3"`
}

// NaturalKey returns the key used to resolve this row's city_id.
func (f FactRow) NaturalKey() string {
	return fmt.Sprintf("%s|%s", f.CityName, f.Country)
}

// RawCityData pairs a configured city with the verbatim API response body
// fetched for it. The payload is kept as raw bytes so the archival side
// channel writes exactly what the API returned.
type RawCityData struct {
	City    CityRow
	Payload []byte
}

// SkippedCity records a city that was dropped during extraction and why.
// One unreachable city never aborts the run.
type SkippedCity struct {
	City   CityRow
	Reason string
}

// Measurement is one fact row joined back to its dimension attributes, as
// read by the dashboard. CityID is nil for rows whose dimension join missed
// at load time.
type Measurement struct {
	CityID   *int64 `json:"city_id"`
	CityName string `json:"city_name"`
	Country  string `json:"country"`
	Dt       int64  `json:"dt"`

	AQI  *int64   `json:"aqi"`
	CO   *float64 `json:"co"`
	NO   *float64 `json:"no"`
	NO2  *float64 `json:"no2"`
	O3   *float64 `json:"o3"`
	SO2  *float64 `json:"so2"`
	PM25 *float64 `json:"pm2_5"`
	PM10 *float64 `json:"pm10"`
	NH3  *float64 `json:"nh3"`
}
