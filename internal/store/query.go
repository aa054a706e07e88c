package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
)

// QueryMeasurements returns the full fact-join-dimension result ordered by
// timestamp. This is the dashboard read path; rows with an unresolved
// (NULL) city_id are excluded by the inner join, mirroring the write-side
// warning about them.
func (s *Store) QueryMeasurements(ctx context.Context) ([]domain.Measurement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.city_id, c.city_name, c.country, p.dt, p.aqi,
		       p.co, p.no, p.no2, p.o3, p.so2, p.pm2_5, p.pm10, p.nh3
		FROM fact_air_pollution p
		JOIN dim_city c ON p.city_id = c.city_id
		ORDER BY p.dt`)
	if err != nil {
		return nil, fmt.Errorf("query measurements: %w", err)
	}
	defer rows.Close()

	var out []domain.Measurement
	for rows.Next() {
		var (
			m    domain.Measurement
			id   sql.NullInt64
			aqi  sql.NullInt64
			vals [8]sql.NullFloat64
		)
		if err := rows.Scan(&id, &m.CityName, &m.Country, &m.Dt, &aqi,
			&vals[0], &vals[1], &vals[2], &vals[3], &vals[4], &vals[5], &vals[6], &vals[7]); err != nil {
			return nil, fmt.Errorf("scan measurement: %w", err)
		}
		m.CityID = fromNullInt(id)
		m.AQI = fromNullInt(aqi)
		m.CO = fromNullFloat(vals[0])
		m.NO = fromNullFloat(vals[1])
		m.NO2 = fromNullFloat(vals[2])
		m.O3 = fromNullFloat(vals[3])
		m.SO2 = fromNullFloat(vals[4])
		m.PM25 = fromNullFloat(vals[5])
		m.PM10 = fromNullFloat(vals[6])
		m.NH3 = fromNullFloat(vals[7])
		out = append(out, m)
	}
	return out, rows.Err()
}

func fromNullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func fromNullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	i := v.Int64
	return &i
}
