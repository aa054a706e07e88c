// Package domain models OpenWeather air-pollution history data and its
// star-schema representation.
//
// # Data Source
//
// Measurements come from the OpenWeather Air Pollution History API
// (https://openweathermap.org/api/air-pollution). A single request covers one
// coordinate pair and an inclusive Unix-timestamp range and returns hourly
// entries of the form:
//
//	{ "list": [ { "dt": <unix>, "main": {"aqi": 1-5},
//	              "components": {"co": ..., "no": ..., "no2": ..., "o3": ...,
//	                             "so2": ..., "pm2_5": ..., "pm10": ..., "nh3": ...} } ] }
//
// All component concentrations are μg/m³. The "main" and "components" objects
// are occasionally absent; absent fields map to nil, never to zero, so that
// "unmeasured" stays distinguishable from "measured as zero".
//
// # Star Schema
//
// [CityRow] is the city dimension: natural key (city_name, country), surrogate
// key assigned by the store on first insert, coordinates immutable afterwards.
//
// [FactRow] is one hourly measurement. Fact rows carry the natural key of
// their city; the loader resolves it to a surrogate key at insert time. The
// fact table is append-only and has no uniqueness constraint on (city_id, dt),
// so overlapping extraction windows accumulate duplicate rows.
//
// # AQI
//
// The Air Quality Index here is the 1 (good) to 5 (very poor) categorical
// scale used by OpenWeather, not the US EPA 0-500 index. [CategorizeAQI]
// maps it to a display label and color, with a catch-all for out-of-range or
// missing values.
package domain
