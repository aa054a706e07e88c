// Package dashboard serves the read-only air-quality dashboard: a small
// JSON API plus an embedded HTML page, backed by a time-boxed cache over the
// fact-join-dimension query.
package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
	"github.com/couchcryptid/air-quality-etl/internal/observability"
)

// ReadStore is the dashboard's view of the relational store.
type ReadStore interface {
	QueryMeasurements(ctx context.Context) ([]domain.Measurement, error)
}

// Cache memoizes the full measurement query behind a TTL. The dashboard
// reads the whole joined table at most once per window; staleness up to the
// TTL is acceptable and shared across concurrent sessions. It is an
// explicit single-value cache: there is exactly one cacheable query.
type Cache struct {
	store   ReadStore
	ttl     time.Duration
	clock   clockwork.Clock
	metrics *observability.Metrics

	mu       sync.Mutex
	data     []domain.Measurement
	loadedAt time.Time
	primed   bool
}

// NewCache creates a cache over the store with the given TTL.
func NewCache(store ReadStore, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *Cache {
	return &Cache{store: store, ttl: ttl, clock: clock, metrics: metrics}
}

// Get returns the cached measurements, reloading from the store when the
// entry has expired or was never loaded. A failed reload is returned to the
// caller and leaves any previous entry expired, so the next request retries.
func (c *Cache) Get(ctx context.Context) ([]domain.Measurement, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if c.primed && now.Sub(c.loadedAt) < c.ttl {
		c.metrics.CacheLookups.WithLabelValues("hit").Inc()
		return c.data, nil
	}
	c.metrics.CacheLookups.WithLabelValues("miss").Inc()

	start := time.Now()
	data, err := c.store.QueryMeasurements(ctx)
	if err != nil {
		return nil, err
	}
	c.metrics.QueryDuration.Observe(time.Since(start).Seconds())

	c.data = data
	c.loadedAt = now
	c.primed = true
	return c.data, nil
}
