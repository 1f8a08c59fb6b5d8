// Package geocache decorates a geocoder with a reverse-lookup cache.
package geocache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/couchcryptid/venue-locator-service/internal/domain"
	"github.com/couchcryptid/venue-locator-service/internal/observability"
)

// CachedGeocoder wraps a Geocoder with an in-memory LRU cache for reverse
// lookups. Searches pass through: their results depend on the focus point.
type CachedGeocoder struct {
	inner   domain.Geocoder
	cache   *lruCache
	group   singleflight.Group
	metrics *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a geocoder. Entries
// older than ttl are treated as misses; ttl <= 0 means entries never expire.
// clock may be nil. metrics may be nil.
func NewCachedGeocoder(inner domain.Geocoder, maxEntries int, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *CachedGeocoder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CachedGeocoder{
		inner:   inner,
		cache:   newLRUCache(maxEntries, ttl, clock),
		metrics: metrics,
	}
}

func (c *CachedGeocoder) Search(ctx context.Context, p domain.SearchParams) (domain.FeatureCollection, error) {
	return c.inner.Search(ctx, p)
}

func (c *CachedGeocoder) Reverse(ctx context.Context, p domain.ReverseParams) (domain.FeatureCollection, error) {
	key := fmt.Sprintf("rev:%.6f,%.6f|%s|%d", p.Latitude, p.Longitude, p.Language, p.Size)
	if fc, ok := c.cache.get(key); ok {
		c.count("hit")
		return fc, nil
	}
	c.count("miss")

	// The shared call must not inherit one caller's cancellation; each caller
	// stops waiting on its own context instead.
	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		// A flight for this key may have completed since the lookup above.
		if fc, ok := c.cache.get(key); ok {
			return fc, nil
		}
		fc, err := c.inner.Reverse(flightCtx, p)
		if err != nil {
			return domain.FeatureCollection{}, err
		}
		// Only cache non-empty results so transient "not found" responses can be retried.
		if len(fc.Features) > 0 {
			c.cache.put(key, fc)
		}
		return fc, nil
	})

	select {
	case <-ctx.Done():
		return domain.FeatureCollection{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.FeatureCollection{}, res.Err
		}
		return res.Val.(domain.FeatureCollection), nil
	}
}

func (c *CachedGeocoder) count(result string) {
	if c.metrics != nil {
		c.metrics.GeocoderCache.WithLabelValues(result).Inc()
	}
}

// lruCache is a thread-safe LRU cache of provider responses with
// per-entry expiry.
type lruCache struct {
	maxEntries int
	ttl        time.Duration
	clock      clockwork.Clock

	mu      sync.Mutex
	order   *list.List // front is most recently used
	entries map[string]*list.Element
}

type entry struct {
	key      string
	value    domain.FeatureCollection
	storedAt time.Time
}

func newLRUCache(maxEntries int, ttl time.Duration, clock clockwork.Clock) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		ttl:        ttl,
		clock:      clock,
		order:      list.New(),
		entries:    make(map[string]*list.Element),
	}
}

func (c *lruCache) get(key string) (domain.FeatureCollection, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return domain.FeatureCollection{}, false
	}
	e := el.Value.(*entry)
	if c.expired(e) {
		c.order.Remove(el)
		delete(c.entries, key)
		return domain.FeatureCollection{}, false
	}
	c.order.MoveToFront(el)
	return e.value, true
}

func (c *lruCache) put(key string, value domain.FeatureCollection) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if el, ok := c.entries[key]; ok {
		e := el.Value.(*entry)
		e.value = value
		e.storedAt = now
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&entry{key: key, value: value, storedAt: now})
	for c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*entry).key)
	}
}

func (c *lruCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *lruCache) expired(e *entry) bool {
	return c.ttl > 0 && c.clock.Since(e.storedAt) >= c.ttl
}
