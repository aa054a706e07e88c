package domain

// AQICategory describes one level of the OpenWeather air quality index for
// display purposes.
type AQICategory struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

// aqiUnknown is the catch-all category for missing or out-of-range values.
var aqiUnknown = AQICategory{Label: "Unknown", Color: "gray"}

var aqiCategories = map[int64]AQICategory{
	1: {Label: "Good", Color: "green"},
	2: {Label: "Fair", Color: "yellow"},
	3: {Label: "Moderate", Color: "orange"},
	4: {Label: "Poor", Color: "red"},
	5: {Label: "Very poor", Color: "purple"},
}

// CategorizeAQI maps an AQI value to its display category. The mapping is
// total: every defined index 1-5 has a label and color, and anything else,
// including a missing value, maps to the "Unknown"/gray default.
func CategorizeAQI(aqi *int64) AQICategory {
	if aqi == nil {
		return aqiUnknown
	}
	if cat, ok := aqiCategories[*aqi]; ok {
		return cat
	}
	return aqiUnknown
}
