package domain

import "encoding/json"

// historyResponse mirrors the OpenWeather air-pollution history payload.
// Pointer fields preserve the absent/null distinction through decoding.
type historyResponse struct {
	List []historyEntry `json:"list"`
}

type historyEntry struct {
	Dt   int64 `json:"dt"`
	Main *struct {
		AQI *int64 `json:"aqi"`
	} `json:"main"`
	Components *struct {
		CO   *float64 `json:"co"`
		NO   *float64 `json:"no"`
		NO2  *float64 `json:"no2"`
		O3   *float64 `json:"o3"`
		SO2  *float64 `json:"so2"`
		PM25 *float64 `json:"pm2_5"`
		PM10 *float64 `json:"pm10"`
		NH3  *float64 `json:"nh3"`
	} `json:"components"`
}

// Normalize flattens raw API responses into dimension and fact row sets.
// It is pure: no I/O, deterministic output for identical input.
//
// Every input item contributes exactly one city row before deduplication and
// one fact row per entry in its measurement list. City rows are deduplicated
// on natural key, first occurrence wins (coordinates are identical across
// entries of one run, so the choice is immaterial). A payload with a missing
// "main" or "components" object yields nil AQI/pollutant fields; a payload
// that fails to decode, or has an empty list, yields zero fact rows for that
// city. Neither is an error.
func Normalize(raw []RawCityData) ([]CityRow, []FactRow) {
	cities := make([]CityRow, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	var facts []FactRow

	for _, item := range raw {
		if _, dup := seen[item.City.NaturalKey()]; !dup {
			seen[item.City.NaturalKey()] = struct{}{}
			cities = append(cities, item.City)
		}

		var resp historyResponse
		if err := json.Unmarshal(item.Payload, &resp); err != nil {
			continue
		}

		for _, entry := range resp.List {
			facts = append(facts, entryToFact(item.City, entry))
		}
	}

	return cities, facts
}

func entryToFact(city CityRow, entry historyEntry) FactRow {
	row := FactRow{
		CityName: city.CityName,
		Country:  city.Country,
		Dt:       entry.Dt,
	}
	if entry.Main != nil {
		row.AQI = entry.Main.AQI
	}
	if c := entry.Components; c != nil {
		row.CO = c.CO
		row.NO = c.NO
		row.NO2 = c.NO2
		row.O3 = c.O3
		row.SO2 = c.SO2
		row.PM25 = c.PM25
		row.PM10 = c.PM10
		row.NH3 = c.NH3
	}
	return row
}
