package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfsql/vfsql/internal/store"
	"github.com/vfsql/vfsql/pkg/pipeline"
	"github.com/vfsql/vfsql/pkg/vfs"
	"github.com/vfsql/vfsql/pkg/vfserrors"
)

func newProductsStore() *store.MemStore {
	m := store.NewMemStore()
	m.DefineModel(store.NewModelSchema("products", "id", "name", "price", "created_at", "updated_at", "trashed_at", "deleted_at", "access_read", "access_edit", "access_full", "access_deny"))
	m.Seed("products", store.Record{
		"id": "prod-001", "name": "Widget", "price": 9.99,
		"created_at": time.Now(), "updated_at": time.Now(),
	})
	m.Seed("products", store.Record{
		"id": "prod-002", "name": "Gadget", "price": 19.99,
		"created_at": time.Now(), "updated_at": time.Now(),
	})
	return m
}

func newSysctx() *vfs.SystemContext {
	return vfs.NewSystemContext("req-1", "acme", "acme_ns", vfs.Identity{UserID: "u1"}, vfs.AccessRead)
}

func TestDataMountReadField(t *testing.T) {
	m := New(newProductsStore(), newSysctx(), nil)
	ctx := context.Background()

	content, err := m.Read(ctx, "/products/prod-001/name")
	require.NoError(t, err)
	assert.Equal(t, "Widget", string(content))

	content, err = m.Read(ctx, "/products/prod-001/price")
	require.NoError(t, err)
	assert.Equal(t, "9.99", string(content))
}

func TestDataMountReaddirRoot(t *testing.T) {
	m := New(newProductsStore(), newSysctx(), nil)
	entries, err := m.Readdir(context.Background(), "/")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "products", entries[0].Name)
}

func TestDataMountReaddirModelListsIDsSorted(t *testing.T) {
	m := New(newProductsStore(), newSysctx(), nil)
	entries, err := m.Readdir(context.Background(), "/products")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "prod-001", entries[0].Name)
	assert.Equal(t, "prod-002", entries[1].Name)
}

func TestDataMountIDFieldIsReadOnly(t *testing.T) {
	m := New(newProductsStore(), newSysctx(), nil)
	err := m.Write(context.Background(), "/products/prod-001/id", []byte("new-id"))
	require.Error(t, err)
	assert.True(t, vfserrors.Is(err, vfserrors.EROFS))
}

func TestDataMountWriteRoundTrip(t *testing.T) {
	m := New(newProductsStore(), newSysctx(), nil)
	ctx := context.Background()

	require.NoError(t, m.Write(ctx, "/products/prod-001/name", []byte("Widget Pro")))
	content, err := m.Read(ctx, "/products/prod-001/name")
	require.NoError(t, err)
	assert.Equal(t, "Widget Pro", string(content))
}

func TestDataMountSoftDeleteViaRmdir(t *testing.T) {
	s := newProductsStore()
	live := New(s, newSysctx(), nil)
	trashed := NewTrashed(s, newSysctx())
	ctx := context.Background()

	require.NoError(t, live.Rmdir(ctx, "/products/prod-001"))

	_, err := live.Stat(ctx, "/products/prod-001")
	require.Error(t, err)
	assert.True(t, vfserrors.Is(err, vfserrors.ENOENT))

	entry, err := trashed.Stat(ctx, "/products/prod-001")
	require.NoError(t, err)
	assert.True(t, entry.IsDir())
}

func TestTrashedMountIsFullyReadOnly(t *testing.T) {
	s := newProductsStore()
	live := New(s, newSysctx(), nil)
	trashed := NewTrashed(s, newSysctx())
	ctx := context.Background()

	require.NoError(t, live.Rmdir(ctx, "/products/prod-001"))

	err := trashed.Write(ctx, "/products/prod-001/name", []byte("X"))
	require.Error(t, err)
	assert.True(t, vfserrors.Is(err, vfserrors.EROFS))

	err = trashed.Rmdir(ctx, "/products/prod-001")
	require.Error(t, err)
	assert.True(t, vfserrors.Is(err, vfserrors.EROFS))
}

func TestDataMountMkdirAlwaysEROFS(t *testing.T) {
	m := New(newProductsStore(), newSysctx(), nil)
	err := m.Mkdir(context.Background(), "/products")
	require.Error(t, err)
	assert.True(t, vfserrors.Is(err, vfserrors.EROFS))
}

func TestDataMountUnlinkOnFieldIsEROFS(t *testing.T) {
	m := New(newProductsStore(), newSysctx(), nil)
	err := m.Unlink(context.Background(), "/products/prod-001/name")
	require.Error(t, err)
	assert.True(t, vfserrors.Is(err, vfserrors.EROFS))
}

func TestDataMountRenameRejected(t *testing.T) {
	m := New(newProductsStore(), newSysctx(), nil)
	err := m.Rename(context.Background(), "/products/prod-001/name", "/products/prod-001/name2")
	require.Error(t, err)
	assert.True(t, vfserrors.Is(err, vfserrors.EINVAL))
}

func TestDataMountACLDeniesInvisibleRecord(t *testing.T) {
	s := newProductsStore()
	s.Seed("products", store.Record{
		"id": "prod-003", "name": "Secret", "price": 1.0,
		"created_at": time.Now(), "updated_at": time.Now(),
		"access_deny": []interface{}{"u1"},
	})

	m := New(s, newSysctx(), nil)
	_, err := m.Stat(context.Background(), "/products/prod-003")
	require.Error(t, err)
	assert.True(t, vfserrors.Is(err, vfserrors.ENOENT))
}

func TestDataMountSudoBypassesACL(t *testing.T) {
	s := newProductsStore()
	s.Seed("products", store.Record{
		"id": "prod-003", "name": "Secret", "price": 1.0,
		"created_at": time.Now(), "updated_at": time.Now(),
		"access_deny": []interface{}{"u1"},
	})
	sysctx := newSysctx()
	sysctx.GrantSudo()

	m := New(s, sysctx, nil)
	entry, err := m.Stat(context.Background(), "/products/prod-003")
	require.NoError(t, err)
	assert.True(t, entry.IsDir())
}

func TestDataMountPipelineCanRejectWrite(t *testing.T) {
	s := newProductsStore()
	m := New(s, newSysctx(), rejectingPipeline{})

	err := m.Write(context.Background(), "/products/prod-001/name", []byte("nope"))
	require.Error(t, err)

	content, readErr := m.Read(context.Background(), "/products/prod-001/name")
	require.NoError(t, readErr)
	assert.Equal(t, "Widget", string(content))
}

type rejectingPipeline struct{}

func (rejectingPipeline) Write(ctx context.Context, mut pipeline.Mutation) error {
	return pipeline.New(pipeline.ValidationError, mut.Model, mut.Field, "rejected for test")
}
func (rejectingPipeline) Delete(ctx context.Context, d pipeline.Deletion) error { return nil }

func TestDataMountDepthTooDeepIsNotFound(t *testing.T) {
	m := New(newProductsStore(), newSysctx(), nil)
	_, err := m.Stat(context.Background(), "/products/prod-001/name/extra")
	require.Error(t, err)
	assert.True(t, vfserrors.Is(err, vfserrors.ENOENT))
}
