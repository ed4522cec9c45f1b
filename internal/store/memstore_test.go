package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfsql/vfsql/pkg/vfserrors"
)

func newProductsStore() *MemStore {
	m := NewMemStore()
	m.DefineModel(NewModelSchema("products", "id", "name", "price", "created_at", "updated_at", "trashed_at", "deleted_at"))
	m.Seed("products", Record{
		"id": "1", "name": "widget", "price": 9.99,
		"created_at": time.Now(), "updated_at": time.Now(),
		"trashed_at": nil, "deleted_at": nil,
	})
	m.Seed("products", Record{
		"id": "2", "name": "gadget", "price": 19.99,
		"created_at": time.Now(), "updated_at": time.Now(),
		"trashed_at": nil, "deleted_at": nil,
	})
	return m
}

func TestMemStoreListLiveRecords(t *testing.T) {
	ctx := context.Background()
	m := newProductsStore()

	recs, err := m.ListLiveRecords(ctx, "products")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "1", recs[0].ID())
	assert.Equal(t, "2", recs[1].ID())
}

func TestMemStoreListModelsUnknown(t *testing.T) {
	ctx := context.Background()
	m := newProductsStore()

	_, err := m.ListLiveRecords(ctx, "orders")
	require.Error(t, err)
	assert.True(t, vfserrors.Is(err, vfserrors.ENOENT))
}

func TestMemStoreUpdateFieldAndSoftDelete(t *testing.T) {
	ctx := context.Background()
	m := newProductsStore()

	require.NoError(t, m.UpdateField(ctx, "products", "1", "name", "widget-v2"))
	rec, ok, err := m.GetRecord(ctx, "products", "1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "widget-v2", rec["name"])

	require.NoError(t, m.SoftDelete(ctx, "products", "1"))
	_, ok, err = m.GetRecord(ctx, "products", "1")
	require.NoError(t, err)
	assert.False(t, ok)

	trashed, ok, err := m.GetTrashedRecord(ctx, "products", "1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotNil(t, trashed["trashed_at"])
}

func TestMemStoreUpdateFieldMissingRecord(t *testing.T) {
	ctx := context.Background()
	m := newProductsStore()

	err := m.UpdateField(ctx, "products", "does-not-exist", "name", "x")
	require.Error(t, err)
	assert.True(t, vfserrors.Is(err, vfserrors.ENOENT))
}

func TestMemStoreSoftDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := newProductsStore()

	require.NoError(t, m.SoftDelete(ctx, "products", "1"))
	require.NoError(t, m.SoftDelete(ctx, "products", "1"))
}
