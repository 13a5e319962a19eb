package mapbox

import (
	"context"
	"math"
	"sync"

	"github.com/couchcryptid/noc-kpi-engine/internal/domain"
	"github.com/couchcryptid/noc-kpi-engine/internal/observability"
)

// coordKey identifies a coordinate pair at six-decimal precision, about 11cm,
// so sectors of the same site share one cache entry.
type coordKey struct {
	lat, lon int64
}

func newCoordKey(lat, lon float64) coordKey {
	return coordKey{
		lat: int64(math.Round(lat * 1e6)),
		lon: int64(math.Round(lon * 1e6)),
	}
}

// CachedGeocoder wraps a Geocoder with an in-memory LRU cache.
type CachedGeocoder struct {
	inner   domain.Geocoder
	cache   *lruCache[coordKey, domain.GeocodingResult]
	metrics *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner domain.Geocoder, maxEntries int, metrics *observability.Metrics) *CachedGeocoder {
	return &CachedGeocoder{
		inner:   inner,
		cache:   newLRUCache[coordKey, domain.GeocodingResult](maxEntries),
		metrics: metrics,
	}
}

func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.GeocodingResult, error) {
	key := newCoordKey(lat, lon)
	if result, ok := c.cache.get(key); ok {
		c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return result, nil
	}
	c.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	result, err := c.inner.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		return result, err
	}
	// Empty results are not cached so a later request can retry them.
	if result.FormattedAddress != "" {
		c.cache.put(key, result)
	}
	return result, nil
}

// lruCache is a mutex-guarded LRU map backed by an intrusive doubly linked list.
type lruCache[K comparable, V any] struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[K]*node[K, V]
	head       *node[K, V] // most recently used
	tail       *node[K, V] // least recently used
}

type node[K comparable, V any] struct {
	key        K
	value      V
	prev, next *node[K, V]
}

func newLRUCache[K comparable, V any](maxEntries int) *lruCache[K, V] {
	return &lruCache[K, V]{
		maxEntries: max(maxEntries, 1),
		entries:    make(map[K]*node[K, V]),
	}
}

func (c *lruCache[K, V]) get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.touch(n)
	return n.value, true
}

func (c *lruCache[K, V]) put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.entries[key]; ok {
		n.value = value
		c.touch(n)
		return
	}

	n := &node[K, V]{key: key, value: value}
	c.entries[key] = n
	c.pushFront(n)

	for len(c.entries) > c.maxEntries {
		oldest := c.tail
		c.unlink(oldest)
		delete(c.entries, oldest.key)
	}
}

func (c *lruCache[K, V]) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache[K, V]) touch(n *node[K, V]) {
	if n == c.head {
		return
	}
	c.unlink(n)
	c.pushFront(n)
}

func (c *lruCache[K, V]) pushFront(n *node[K, V]) {
	n.prev, n.next = nil, c.head
	if c.head != nil {
		c.head.prev = n
	}
	c.head = n
	if c.tail == nil {
		c.tail = n
	}
}

func (c *lruCache[K, V]) unlink(n *node[K, V]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		c.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		c.tail = n.prev
	}
	n.prev, n.next = nil, nil
}
