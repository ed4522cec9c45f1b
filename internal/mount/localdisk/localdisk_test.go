package localdisk

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfsql/vfsql/pkg/vfserrors"
)

func TestMountReadWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m, err := New(dir, true)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, m.Write(ctx, "/note.txt", []byte("hello")))

	content, err := m.Read(ctx, "/note.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))

	entry, err := m.Stat(ctx, "/note.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(5), entry.Size)
	assert.False(t, entry.IsDir())
}

func TestMountRejectsWritesWhenReadOnly(t *testing.T) {
	dir := t.TempDir()
	m, err := New(dir, false)
	require.NoError(t, err)

	err = m.Write(context.Background(), "/note.txt", []byte("x"))
	require.Error(t, err)
	assert.True(t, vfserrors.Is(err, vfserrors.EROFS))
}

func TestMountRejectsEscapingPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "inner"), 0o755))
	m, err := New(filepath.Join(dir, "inner"), true)
	require.NoError(t, err)

	_, err = m.Read(context.Background(), "/../outside.txt")
	require.Error(t, err)
}

func TestMountReaddirSorted(t *testing.T) {
	dir := t.TempDir()
	m, err := New(dir, true)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, m.Write(ctx, "/b.txt", []byte("b")))
	require.NoError(t, m.Write(ctx, "/a.txt", []byte("a")))

	entries, err := m.Readdir(ctx, "/")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a.txt", entries[0].Name)
	assert.Equal(t, "b.txt", entries[1].Name)
}

func TestMountRmdirRequiresEmpty(t *testing.T) {
	dir := t.TempDir()
	m, err := New(dir, true)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, m.Mkdir(ctx, "/sub"))
	require.NoError(t, m.Write(ctx, "/sub/file.txt", []byte("x")))

	err = m.Rmdir(ctx, "/sub")
	require.Error(t, err)
	assert.True(t, vfserrors.Is(err, vfserrors.ENOTEMPTY))

	require.NoError(t, m.Unlink(ctx, "/sub/file.txt"))
	require.NoError(t, m.Rmdir(ctx, "/sub"))
}

func TestMountUnlinkRejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	m, err := New(dir, true)
	require.NoError(t, err)

	require.NoError(t, m.Mkdir(context.Background(), "/sub"))
	err = m.Unlink(context.Background(), "/sub")
	require.Error(t, err)
	assert.True(t, vfserrors.Is(err, vfserrors.EISDIR))
}

func TestMountStatMissing(t *testing.T) {
	dir := t.TempDir()
	m, err := New(dir, true)
	require.NoError(t, err)

	_, err = m.Stat(context.Background(), "/missing")
	require.Error(t, err)
	assert.True(t, vfserrors.Is(err, vfserrors.ENOENT))
}
