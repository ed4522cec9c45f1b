package describe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfsql/vfsql/internal/store"
	"github.com/vfsql/vfsql/pkg/vfserrors"
)

func newStore() *store.MemStore {
	s := store.NewMemStore()
	s.DefineModel(store.NewModelSchema("products", "id", "name", "price", "created_at"))
	return s
}

func TestDescribeMountReaddirRoot(t *testing.T) {
	m := New(newStore(), nil, nil)
	entries, err := m.Readdir(context.Background(), "/")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "products", entries[0].Name)
}

func TestDescribeMountModelListing(t *testing.T) {
	m := New(newStore(), nil, nil)
	entries, err := m.Readdir(context.Background(), "/products")
	require.NoError(t, err)
	names := []string{entries[0].Name, entries[1].Name, entries[2].Name}
	assert.ElementsMatch(t, []string{"fields", ".json", ".yaml"}, names)
}

func TestDescribeMountFieldDocument(t *testing.T) {
	m := New(newStore(), nil, nil)
	content, err := m.Read(context.Background(), "/products/fields/name")
	require.NoError(t, err)
	assert.Contains(t, string(content), "name: name")
}

func TestDescribeMountJSONDocument(t *testing.T) {
	m := New(newStore(), nil, nil)
	content, err := m.Read(context.Background(), "/products/.json")
	require.NoError(t, err)
	assert.Contains(t, string(content), `"model": "products"`)
}

func TestDescribeMountUnknownFieldIsNotFound(t *testing.T) {
	m := New(newStore(), nil, nil)
	_, err := m.Read(context.Background(), "/products/fields/missing")
	require.Error(t, err)
	assert.True(t, vfserrors.Is(err, vfserrors.ENOENT))
}

func TestDescribeMountModelDocumentsAreReadOnly(t *testing.T) {
	m := New(newStore(), nil, nil)
	err := m.Write(context.Background(), "/products/.json", []byte("{}"))
	require.Error(t, err)
	assert.True(t, vfserrors.Is(err, vfserrors.EROFS))
}

func TestDescribeMountFieldWriteRoutesThroughPipeline(t *testing.T) {
	m := New(newStore(), nil, nil)
	err := m.Write(context.Background(), "/products/fields/name", []byte("new description"))
	require.NoError(t, err)
}
