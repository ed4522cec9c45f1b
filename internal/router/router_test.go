package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfsql/vfsql/pkg/vfs"
	"github.com/vfsql/vfsql/pkg/vfserrors"
)

// fakeMount is a minimal in-memory vfs.Mount used only by these tests.
type fakeMount struct {
	vfs.ReadOnlyMutators
	name     string
	writable bool
	entries  map[string][]vfs.FSEntry
	files    map[string][]byte
}

func newFakeMount(name string) *fakeMount {
	return &fakeMount{name: name, entries: make(map[string][]vfs.FSEntry), files: make(map[string][]byte)}
}

func (f *fakeMount) Stat(ctx context.Context, path string) (vfs.FSEntry, error) {
	if path == "/" {
		return vfs.FSEntry{Name: "", Type: vfs.TypeDirectory, Mode: vfs.ModeBrowsableDir}, nil
	}
	if content, ok := f.files[path]; ok {
		return vfs.FSEntry{Name: path, Type: vfs.TypeFile, Size: int64(len(content)), Mode: vfs.ModeWritableFile}, nil
	}
	if _, ok := f.entries[path]; ok {
		return vfs.FSEntry{Name: path, Type: vfs.TypeDirectory, Mode: vfs.ModeBrowsableDir}, nil
	}
	return vfs.FSEntry{}, vfserrors.New(vfserrors.ENOENT, path, "not found")
}

func (f *fakeMount) Readdir(ctx context.Context, path string) ([]vfs.FSEntry, error) {
	return f.entries[path], nil
}

func (f *fakeMount) Read(ctx context.Context, path string) ([]byte, error) {
	content, ok := f.files[path]
	if !ok {
		return nil, vfserrors.New(vfserrors.ENOENT, path, "not found")
	}
	return content, nil
}

func (f *fakeMount) SupportsWrite() bool { return f.writable }

func (f *fakeMount) Write(ctx context.Context, path string, content []byte) error {
	if !f.writable {
		return vfserrors.New(vfserrors.EROFS, path, "read-only")
	}
	f.files[path] = content
	return nil
}

func (f *fakeMount) GetUsage(ctx context.Context, path string) (int64, error) {
	return int64(len(f.files[path])), nil
}

func TestRouterResolvesLongestPrefix(t *testing.T) {
	r := New()
	api := newFakeMount("api")
	apiData := newFakeMount("api-data")
	apiData.writable = true
	apiData.files["/widget"] = []byte("hello")

	require.NoError(t, r.Mount("/api", api))
	require.NoError(t, r.Mount("/api/data", apiData))

	content, err := r.Read(context.Background(), "/api/data/widget")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))
}

func TestRouterAllowsNestedMountRejectsDuplicate(t *testing.T) {
	r := New()
	require.NoError(t, r.Mount("/api", newFakeMount("api")))

	err := r.Mount("/api/data", newFakeMount("data"))
	require.NoError(t, err) // /api/data is a deeper, non-overlapping mount, allowed

	err = r.Mount("/api/data/extra", newFakeMount("extra"))
	require.NoError(t, err)

	err = r.Mount("/api/data", newFakeMount("dup"))
	assert.True(t, vfserrors.Is(err, vfserrors.EEXIST))
}

func TestRouterFallback(t *testing.T) {
	r := New()
	fallback := newFakeMount("fallback")
	fallback.files["/anything"] = []byte("fallback content")
	r.SetFallback(fallback)

	content, err := r.Read(context.Background(), "/anything")
	require.NoError(t, err)
	assert.Equal(t, "fallback content", string(content))
}

func TestRouterNoMountNoFallback(t *testing.T) {
	r := New()
	_, err := r.Stat(context.Background(), "/nowhere")
	require.Error(t, err)
	assert.True(t, vfserrors.Is(err, vfserrors.ENOENT))
}

func TestRouterInjectsMountPointsOnReaddir(t *testing.T) {
	r := New()
	root := newFakeMount("root")
	root.entries["/"] = []vfs.FSEntry{{Name: "existing", Type: vfs.TypeDirectory}}
	require.NoError(t, r.Mount("/", root))
	require.NoError(t, r.Mount("/system", newFakeMount("system")))
	require.NoError(t, r.Mount("/api", newFakeMount("api")))

	entries, err := r.Readdir(context.Background(), "/")
	require.NoError(t, err)

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	assert.Equal(t, []string{"api", "existing", "system"}, names)
}

func TestRouterRenameRejectsCrossMount(t *testing.T) {
	r := New()
	a := newFakeMount("a")
	a.writable = true
	b := newFakeMount("b")
	b.writable = true
	require.NoError(t, r.Mount("/a", a))
	require.NoError(t, r.Mount("/b", b))

	err := r.Rename(context.Background(), "/a/x", "/b/y")
	require.Error(t, err)
	assert.True(t, vfserrors.Is(err, vfserrors.EINVAL))
}

func TestRouterWriteRejectsReadOnlyMount(t *testing.T) {
	r := New()
	ro := newFakeMount("ro")
	require.NoError(t, r.Mount("/ro", ro))

	err := r.Write(context.Background(), "/ro/file", []byte("x"))
	require.Error(t, err)
	assert.True(t, vfserrors.Is(err, vfserrors.EROFS))
}

func TestRouterUnmount(t *testing.T) {
	r := New()
	require.NoError(t, r.Mount("/a", newFakeMount("a")))
	require.NoError(t, r.Unmount("/a"))

	err := r.Unmount("/a")
	assert.True(t, vfserrors.Is(err, vfserrors.ENOENT))
}
