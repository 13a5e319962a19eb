package mapbox

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/noc-kpi-engine/internal/domain"
	"github.com/couchcryptid/noc-kpi-engine/internal/observability"
)

// --- mock for cache tests ---

type countingGeocoder struct {
	calls  int
	result domain.GeocodingResult
	err    error
}

func (m *countingGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (domain.GeocodingResult, error) {
	m.calls++
	return m.result, m.err
}

// --- CachedGeocoder tests ---

func TestCachedGeocoder_CacheHit(t *testing.T) {
	inner := &countingGeocoder{
		result: domain.GeocodingResult{FormattedAddress: "Jakarta, Indonesia", PlaceName: "Jakarta"},
	}
	metrics := observability.NewMetricsForTesting()
	cached := NewCachedGeocoder(inner, 10, metrics)

	r1, err := cached.ReverseGeocode(context.Background(), -6.2088, 106.8456)
	require.NoError(t, err)
	r2, err := cached.ReverseGeocode(context.Background(), -6.2088, 106.8456)
	require.NoError(t, err)

	assert.Equal(t, r1, r2)
	assert.Equal(t, 1, inner.calls, "should only call inner once")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.GeocodeCache.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.GeocodeCache.WithLabelValues("miss")), 0)
}

func TestCachedGeocoder_KeyPrecision(t *testing.T) {
	inner := &countingGeocoder{result: domain.GeocodingResult{FormattedAddress: "Jakarta"}}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	_, _ = cached.ReverseGeocode(context.Background(), -6.2088001, 106.8456)
	_, _ = cached.ReverseGeocode(context.Background(), -6.2088004, 106.8456)
	assert.Equal(t, 1, inner.calls, "coordinates equal at six decimals share an entry")

	_, _ = cached.ReverseGeocode(context.Background(), -6.2089, 106.8456)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedGeocoder_EmptyResultNotCached(t *testing.T) {
	inner := &countingGeocoder{}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	_, _ = cached.ReverseGeocode(context.Background(), 1, 1)
	_, _ = cached.ReverseGeocode(context.Background(), 1, 1)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedGeocoder_ErrorNotCached(t *testing.T) {
	inner := &countingGeocoder{err: errors.New("timeout")}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	_, err := cached.ReverseGeocode(context.Background(), 1, 1)
	require.Error(t, err)
	_, err = cached.ReverseGeocode(context.Background(), 1, 1)
	require.Error(t, err)
	assert.Equal(t, 2, inner.calls)
	assert.Zero(t, cached.cache.size())
}

// --- LRU tests ---

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache[string, int](2)

	c.put("a", 1)
	c.put("b", 2)
	c.put("c", 3)

	_, ok := c.get("a")
	assert.False(t, ok, "oldest entry evicted")
	assert.Equal(t, 2, c.size())
}

func TestLRUCache_GetRefreshesRecency(t *testing.T) {
	c := newLRUCache[string, int](2)

	c.put("a", 1)
	c.put("b", 2)
	_, _ = c.get("a")
	c.put("c", 3)

	_, ok := c.get("b")
	assert.False(t, ok, "b was least recently used")
	v, ok := c.get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache[string, int](2)

	c.put("a", 1)
	c.put("a", 10)

	v, ok := c.get("a")
	require.True(t, ok)
	assert.Equal(t, 10, v)
	assert.Equal(t, 1, c.size())
}

func TestLRUCache_MinimumCapacity(t *testing.T) {
	c := newLRUCache[string, int](0)

	c.put("a", 1)
	c.put("b", 2)

	assert.Equal(t, 1, c.size())
	_, ok := c.get("b")
	assert.True(t, ok)
}
