package fusebridge

import (
	"context"
	"syscall"
	"testing"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vfsql/vfsql/pkg/vfs"
	"github.com/vfsql/vfsql/pkg/vfserrors"
)

// fakeMount is a minimal in-memory vfs.Mount for exercising the bridge's
// node/fileHandle logic without a real kernel mount.
type fakeMount struct {
	files map[string][]byte
	dirs  map[string][]string
}

func newFakeMount() *fakeMount {
	return &fakeMount{
		files: map[string][]byte{"/greeting": []byte("hello")},
		dirs:  map[string][]string{"/": {"greeting"}},
	}
}

func (m *fakeMount) Stat(ctx context.Context, path string) (vfs.FSEntry, error) {
	if _, ok := m.dirs[path]; ok {
		return vfs.FSEntry{Name: path, Type: vfs.TypeDirectory, Mode: vfs.ModeBrowsableDir}, nil
	}
	if content, ok := m.files[path]; ok {
		return vfs.FSEntry{Name: path, Type: vfs.TypeFile, Mode: vfs.ModeWritableFile, Size: int64(len(content))}, nil
	}
	return vfs.FSEntry{}, vfserrors.New(vfserrors.ENOENT, path, "no such path")
}

func (m *fakeMount) Readdir(ctx context.Context, path string) ([]vfs.FSEntry, error) {
	names, ok := m.dirs[path]
	if !ok {
		return nil, vfserrors.New(vfserrors.ENOENT, path, "no such path")
	}
	var entries []vfs.FSEntry
	for _, name := range names {
		entries = append(entries, vfs.FSEntry{Name: name, Type: vfs.TypeFile, Mode: vfs.ModeWritableFile})
	}
	return entries, nil
}

func (m *fakeMount) Read(ctx context.Context, path string) ([]byte, error) {
	content, ok := m.files[path]
	if !ok {
		return nil, vfserrors.New(vfserrors.ENOENT, path, "no such path")
	}
	return content, nil
}

func (m *fakeMount) SupportsWrite() bool { return true }

func (m *fakeMount) Write(ctx context.Context, path string, content []byte) error {
	m.files[path] = append([]byte(nil), content...)
	return nil
}

func (m *fakeMount) Mkdir(ctx context.Context, path string) error {
	m.dirs[path] = nil
	return nil
}

func (m *fakeMount) Unlink(ctx context.Context, path string) error {
	delete(m.files, path)
	return nil
}

func (m *fakeMount) Rmdir(ctx context.Context, path string) error {
	delete(m.dirs, path)
	return nil
}

func (m *fakeMount) Rename(ctx context.Context, from, to string) error {
	content, ok := m.files[from]
	if !ok {
		return vfserrors.New(vfserrors.ENOENT, from, "no such path")
	}
	delete(m.files, from)
	m.files[to] = content
	return nil
}

func (m *fakeMount) GetUsage(ctx context.Context, path string) (int64, error) {
	return int64(len(m.files[path])), nil
}

var _ vfs.Mount = (*fakeMount)(nil)

func TestJoinPathAtRoot(t *testing.T) {
	assert.Equal(t, "/greeting", joinPath("/", "greeting"))
}

func TestJoinPathNested(t *testing.T) {
	assert.Equal(t, "/products/1", joinPath("/products", "1"))
}

func TestToErrnoMapsKinds(t *testing.T) {
	cases := map[vfserrors.Kind]syscall.Errno{
		vfserrors.ENOENT:    syscall.ENOENT,
		vfserrors.ENOTDIR:   syscall.ENOTDIR,
		vfserrors.EISDIR:    syscall.EISDIR,
		vfserrors.EEXIST:    syscall.EEXIST,
		vfserrors.ENOTEMPTY: syscall.ENOTEMPTY,
		vfserrors.EROFS:     syscall.EROFS,
		vfserrors.EACCES:    syscall.EACCES,
		vfserrors.EINVAL:    syscall.EINVAL,
		vfserrors.EIO:       syscall.EIO,
	}
	for kind, want := range cases {
		got := toErrno(vfserrors.New(kind, "/x", "boom"))
		assert.Equal(t, want, got, "kind %s", kind)
	}
}

func TestToErrnoNilIsZero(t *testing.T) {
	assert.Equal(t, syscall.Errno(0), toErrno(nil))
}

func TestNodeRootMountStatFindsExistingFile(t *testing.T) {
	root := &Node{root: &rootData{mount: newFakeMount()}, path: "/"}

	entry, err := root.root.mount.Stat(context.Background(), "/greeting")

	require.NoError(t, err)
	assert.False(t, entry.IsDir())
}

func TestNodeLookupMissingReturnsENOENT(t *testing.T) {
	root := &Node{root: &rootData{mount: newFakeMount()}, path: "/"}

	inode, errno := root.Lookup(context.Background(), "missing", &fuse.EntryOut{})

	assert.Nil(t, inode)
	assert.Equal(t, syscall.ENOENT, errno)
}

func TestFileHandleReadReturnsWrittenContent(t *testing.T) {
	m := newFakeMount()
	node := &Node{root: &rootData{mount: m}, path: "/greeting"}
	fh := &fileHandle{node: node, content: []byte("hello")}

	buf := make([]byte, 5)
	result, errno := fh.Read(context.Background(), buf, 0)

	require.Equal(t, syscall.Errno(0), errno)
	data, _ := result.Bytes(buf)
	assert.Equal(t, "hello", string(data))
}

func TestFileHandleWriteGrowsBuffer(t *testing.T) {
	fh := &fileHandle{content: []byte("abc")}

	n, errno := fh.Write(context.Background(), []byte("xyz"), 3)

	require.Equal(t, syscall.Errno(0), errno)
	assert.Equal(t, uint32(3), n)
	assert.Equal(t, "abcxyz", string(fh.content))
	assert.True(t, fh.dirty)
}

func TestFileHandleFlushWritesThroughToMount(t *testing.T) {
	m := newFakeMount()
	node := &Node{root: &rootData{mount: m}, path: "/new"}
	fh := &fileHandle{node: node, content: []byte("fresh"), dirty: true}

	errno := fh.Flush(context.Background())

	require.Equal(t, syscall.Errno(0), errno)
	assert.Equal(t, "fresh", string(m.files["/new"]))
	assert.False(t, fh.dirty)
}

func TestFileHandleFlushSkipsWhenNotDirty(t *testing.T) {
	m := newFakeMount()
	node := &Node{root: &rootData{mount: m}, path: "/untouched"}
	fh := &fileHandle{node: node, content: []byte("x")}

	errno := fh.Flush(context.Background())

	require.Equal(t, syscall.Errno(0), errno)
	_, exists := m.files["/untouched"]
	assert.False(t, exists)
}

func TestNodeRenameRejectsForeignParentType(t *testing.T) {
	m := newFakeMount()
	node := &Node{root: &rootData{mount: m}, path: "/"}

	errno := node.Rename(context.Background(), "greeting", notANode{}, "renamed", 0)

	assert.Equal(t, syscall.EXDEV, errno)
}

type notANode struct{}

func (notANode) EmbeddedInode() *fs.Inode { return nil }
