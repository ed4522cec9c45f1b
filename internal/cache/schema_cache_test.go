package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vfsql/vfsql/internal/store"
)

func newSchema(name string, cols ...string) *store.ModelSchema {
	s := store.NewModelSchema(name, cols...)
	return &s
}

func TestSchemaCacheGetMissWhenAbsent(t *testing.T) {
	c := NewSchemaCache(0, nil)

	_, ok := c.Get("acme_ns", "products")

	assert.False(t, ok)
}

func TestSchemaCachePutThenGetHits(t *testing.T) {
	c := NewSchemaCache(0, nil)
	schema := newSchema("products", "id", "name")

	c.Put("acme_ns", "products", schema)
	got, ok := c.Get("acme_ns", "products")

	assert.True(t, ok)
	assert.Same(t, schema, got)
}

func TestSchemaCacheExpiresAfterTTL(t *testing.T) {
	c := NewSchemaCache(time.Millisecond, nil)
	schema := newSchema("products", "id", "name")
	c.Put("acme_ns", "products", schema)

	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get("acme_ns", "products")

	assert.False(t, ok)
}

func TestSchemaCacheInvalidateRemovesEntry(t *testing.T) {
	c := NewSchemaCache(0, nil)
	c.Put("acme_ns", "products", newSchema("products", "id"))

	c.Invalidate("acme_ns", "products")
	_, ok := c.Get("acme_ns", "products")

	assert.False(t, ok)
}

func TestSchemaCacheInvalidateNamespaceLeavesOthers(t *testing.T) {
	c := NewSchemaCache(0, nil)
	c.Put("acme_ns", "products", newSchema("products", "id"))
	c.Put("other_ns", "products", newSchema("products", "id"))

	c.InvalidateNamespace("acme_ns")

	_, ok := c.Get("acme_ns", "products")
	assert.False(t, ok)
	_, ok = c.Get("other_ns", "products")
	assert.True(t, ok)
}

func TestSchemaCacheDifferentNamespacesIsolated(t *testing.T) {
	c := NewSchemaCache(0, nil)
	acme := newSchema("products", "id", "name")
	other := newSchema("products", "id", "sku")

	c.Put("acme_ns", "products", acme)
	c.Put("other_ns", "products", other)

	got, ok := c.Get("acme_ns", "products")
	assert.True(t, ok)
	assert.Same(t, acme, got)
}
