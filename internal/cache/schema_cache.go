// Package cache implements spec §5's per-(database, namespace) schema
// cache: "may be read concurrently and is updated through an atomic
// replace; readers always see a consistent snapshot." Grounded on the
// teacher's internal/cache/lru.go — same atomic-snapshot-under-a-lock-
// free-read shape, narrowed from a byte-range object cache (eviction by
// weight, size budget) to a small TTL-expiring map of schemas, since a
// tenant's model count doesn't warrant LRU eviction.
package cache

import (
	"sync/atomic"
	"time"

	"github.com/vfsql/vfsql/internal/metrics"
	"github.com/vfsql/vfsql/internal/store"
)

type schemaEntry struct {
	schema   *store.ModelSchema
	storedAt time.Time
}

// SchemaCache caches ModelSchema lookups keyed by (namespace, model).
// Every write replaces the whole snapshot map rather than mutating it in
// place, so a concurrent reader never observes a partially-updated map.
type SchemaCache struct {
	ttl      time.Duration
	snapshot atomic.Value // map[string]schemaEntry
	metrics  *metrics.Collector
}

// NewSchemaCache builds an empty cache. A ttl of 0 means entries never
// expire. m may be nil.
func NewSchemaCache(ttl time.Duration, m *metrics.Collector) *SchemaCache {
	c := &SchemaCache{ttl: ttl, metrics: m}
	c.snapshot.Store(map[string]schemaEntry{})
	return c
}

func cacheKey(namespace, model string) string {
	return namespace + "\x00" + model
}

func (c *SchemaCache) current() map[string]schemaEntry {
	return c.snapshot.Load().(map[string]schemaEntry)
}

// Get returns the cached schema for (namespace, model), if present and
// not expired.
func (c *SchemaCache) Get(namespace, model string) (*store.ModelSchema, bool) {
	entry, ok := c.current()[cacheKey(namespace, model)]
	if !ok {
		c.metrics.RecordCacheMiss()
		return nil, false
	}
	if c.ttl > 0 && time.Since(entry.storedAt) > c.ttl {
		c.metrics.RecordCacheMiss()
		return nil, false
	}
	c.metrics.RecordCacheHit()
	return entry.schema, true
}

// Put stores schema for (namespace, model), replacing the snapshot.
func (c *SchemaCache) Put(namespace, model string, schema *store.ModelSchema) {
	old := c.current()
	next := make(map[string]schemaEntry, len(old)+1)
	for k, v := range old {
		next[k] = v
	}
	next[cacheKey(namespace, model)] = schemaEntry{schema: schema, storedAt: time.Now()}
	c.snapshot.Store(next)
}

// Invalidate removes (namespace, model) from the cache, if present.
func (c *SchemaCache) Invalidate(namespace, model string) {
	old := c.current()
	key := cacheKey(namespace, model)
	if _, ok := old[key]; !ok {
		return
	}
	next := make(map[string]schemaEntry, len(old))
	for k, v := range old {
		if k != key {
			next[k] = v
		}
	}
	c.snapshot.Store(next)
}

// InvalidateNamespace removes every cached schema for namespace, used
// when a tenant's model set changes.
func (c *SchemaCache) InvalidateNamespace(namespace string) {
	old := c.current()
	prefix := namespace + "\x00"
	next := make(map[string]schemaEntry, len(old))
	for k, v := range old {
		if len(k) < len(prefix) || k[:len(prefix)] != prefix {
			next[k] = v
		}
	}
	c.snapshot.Store(next)
}
