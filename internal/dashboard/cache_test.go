package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
	"github.com/couchcryptid/air-quality-etl/internal/observability"
)

type countingStore struct {
	calls int
	data  []domain.Measurement
	err   error
}

func (s *countingStore) QueryMeasurements(context.Context) ([]domain.Measurement, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.data, nil
}

func TestCache_HitWithinTTL(t *testing.T) {
	store := &countingStore{data: []domain.Measurement{{CityName: "Madrid", Dt: 1}}}
	clock := clockwork.NewFakeClock()
	c := NewCache(store, 5*time.Minute, clock, observability.NewMetricsForTesting())

	first, err := c.Get(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)

	clock.Advance(4 * time.Minute)
	second, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.calls, "within the TTL the store is queried once")
}

func TestCache_ReloadsAfterExpiry(t *testing.T) {
	store := &countingStore{data: []domain.Measurement{{CityName: "Madrid", Dt: 1}}}
	clock := clockwork.NewFakeClock()
	c := NewCache(store, 5*time.Minute, clock, observability.NewMetricsForTesting())

	_, err := c.Get(context.Background())
	require.NoError(t, err)

	store.data = append(store.data, domain.Measurement{CityName: "Madrid", Dt: 2})
	clock.Advance(5 * time.Minute)

	reloaded, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Len(t, reloaded, 2, "expiry picks up new rows")
	assert.Equal(t, 2, store.calls)
}

func TestCache_EmptyResultIsCached(t *testing.T) {
	store := &countingStore{}
	clock := clockwork.NewFakeClock()
	c := NewCache(store, 5*time.Minute, clock, observability.NewMetricsForTesting())

	for i := 0; i < 3; i++ {
		data, err := c.Get(context.Background())
		require.NoError(t, err)
		assert.Empty(t, data)
	}
	assert.Equal(t, 1, store.calls, "an empty table is a valid cached value")
}

func TestCache_ErrorIsNotCached(t *testing.T) {
	store := &countingStore{err: errors.New("connection refused")}
	clock := clockwork.NewFakeClock()
	c := NewCache(store, 5*time.Minute, clock, observability.NewMetricsForTesting())

	_, err := c.Get(context.Background())
	require.Error(t, err)

	store.err = nil
	store.data = []domain.Measurement{{CityName: "Madrid", Dt: 1}}

	data, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Len(t, data, 1, "the next request retries after a failed load")
	assert.Equal(t, 2, store.calls)
}
