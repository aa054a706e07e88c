package dashboard

import (
	"log/slog"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
)

const dateLayout = "2006-01-02"

// Server is the dashboard HTTP application. It is a pure read path: no
// handler ever writes to the store.
type Server struct {
	app    *fiber.App
	cache  *Cache
	logger *slog.Logger
}

// NewServer builds the fiber application with all dashboard routes
// registered over the given cache.
func NewServer(cache *Cache, logger *slog.Logger) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "air-quality-dashboard",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})
	app.Use(recover.New())
	app.Use(fiberlogger.New())

	s := &Server{app: app, cache: cache, logger: logger}

	app.Get("/", s.handleIndex)
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	v1 := app.Group("/api/v1")
	v1.Get("/cities", s.handleCities)
	v1.Get("/dates", s.handleDates)
	v1.Get("/measurements", s.handleMeasurements)
	v1.Get("/summary", s.handleSummary)

	return s
}

// App exposes the fiber application for serving and for tests.
func (s *Server) App() *fiber.App { return s.app }

// Listen starts serving on addr and blocks.
func (s *Server) Listen(addr string) error { return s.app.Listen(addr) }

// measurementView is one fact row with presentation fields derived from the
// AQI category mapping.
type measurementView struct {
	Dt       int64  `json:"dt"`
	Time     string `json:"time"`
	CityName string `json:"city_name"`
	Country  string `json:"country"`

	AQI      *int64 `json:"aqi"`
	AQILabel string `json:"aqi_label"`
	AQIColor string `json:"aqi_color"`

	CO   *float64 `json:"co"`
	NO   *float64 `json:"no"`
	NO2  *float64 `json:"no2"`
	O3   *float64 `json:"o3"`
	SO2  *float64 `json:"so2"`
	PM25 *float64 `json:"pm2_5"`
	PM10 *float64 `json:"pm10"`
	NH3  *float64 `json:"nh3"`
}

func toView(m domain.Measurement) measurementView {
	cat := domain.CategorizeAQI(m.AQI)
	return measurementView{
		Dt:       m.Dt,
		Time:     time.Unix(m.Dt, 0).UTC().Format(time.RFC3339),
		CityName: m.CityName,
		Country:  m.Country,
		AQI:      m.AQI,
		AQILabel: cat.Label,
		AQIColor: cat.Color,
		CO:       m.CO,
		NO:       m.NO,
		NO2:      m.NO2,
		O3:       m.O3,
		SO2:      m.SO2,
		PM25:     m.PM25,
		PM10:     m.PM10,
		NH3:      m.NH3,
	}
}

// handleCities returns the distinct city names present in the fact data,
// sorted. An empty store yields an empty list and a hint message, not an
// error.
func (s *Server) handleCities(c *fiber.Ctx) error {
	data, err := s.cache.Get(c.Context())
	if err != nil {
		s.logger.Error("dashboard query failed", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load measurements")
	}

	seen := make(map[string]struct{})
	cities := make([]string, 0)
	for _, m := range data {
		if _, ok := seen[m.CityName]; !ok {
			seen[m.CityName] = struct{}{}
			cities = append(cities, m.CityName)
		}
	}
	sort.Strings(cities)

	resp := fiber.Map{"cities": cities}
	if len(cities) == 0 {
		resp["message"] = "no data yet; run the ETL first"
	}
	return c.JSON(resp)
}

// handleDates returns the distinct UTC calendar dates with data for the
// requested city, sorted ascending.
func (s *Server) handleDates(c *fiber.Ctx) error {
	city := c.Query("city")
	if city == "" {
		return fiber.NewError(fiber.StatusBadRequest, "city query parameter is required")
	}

	data, err := s.cache.Get(c.Context())
	if err != nil {
		s.logger.Error("dashboard query failed", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load measurements")
	}

	seen := make(map[string]struct{})
	dates := make([]string, 0)
	for _, m := range data {
		if m.CityName != city {
			continue
		}
		d := time.Unix(m.Dt, 0).UTC().Format(dateLayout)
		if _, ok := seen[d]; !ok {
			seen[d] = struct{}{}
			dates = append(dates, d)
		}
	}
	sort.Strings(dates)

	return c.JSON(fiber.Map{"city": city, "dates": dates})
}

// handleMeasurements returns the rows for one city on one UTC calendar
// date, ordered by timestamp, with AQI presentation fields attached.
func (s *Server) handleMeasurements(c *fiber.Ctx) error {
	city := c.Query("city")
	date := c.Query("date")
	if city == "" || date == "" {
		return fiber.NewError(fiber.StatusBadRequest, "city and date query parameters are required")
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "date must be YYYY-MM-DD")
	}

	data, err := s.cache.Get(c.Context())
	if err != nil {
		s.logger.Error("dashboard query failed", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load measurements")
	}

	views := filterViews(data, city, date)
	resp := fiber.Map{"city": city, "date": date, "measurements": views}
	if len(views) == 0 {
		resp["message"] = "no data available for the selected filters"
	}
	return c.JSON(resp)
}

// handleSummary returns the latest measurement of the filtered set, the
// headline numbers the dashboard shows before any chart.
func (s *Server) handleSummary(c *fiber.Ctx) error {
	city := c.Query("city")
	date := c.Query("date")
	if city == "" || date == "" {
		return fiber.NewError(fiber.StatusBadRequest, "city and date query parameters are required")
	}

	data, err := s.cache.Get(c.Context())
	if err != nil {
		s.logger.Error("dashboard query failed", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load measurements")
	}

	views := filterViews(data, city, date)
	if len(views) == 0 {
		return c.JSON(fiber.Map{
			"city":    city,
			"date":    date,
			"message": "no data available for the selected filters",
		})
	}

	latest := views[len(views)-1]
	return c.JSON(fiber.Map{
		"city":      city,
		"date":      date,
		"latest":    latest,
		"aqi_label": latest.AQILabel,
		"aqi_color": latest.AQIColor,
	})
}

// filterViews selects one city's rows on one UTC date, ordered by dt. The
// cached slice is already dt-ordered, so a linear filter preserves order.
func filterViews(data []domain.Measurement, city, date string) []measurementView {
	views := make([]measurementView, 0)
	for _, m := range data {
		if m.CityName != city {
			continue
		}
		if time.Unix(m.Dt, 0).UTC().Format(dateLayout) != date {
			continue
		}
		views = append(views, toView(m))
	}
	return views
}
