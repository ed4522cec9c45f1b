// Package localdisk implements spec §4.D's LocalDiskMount: a mount that
// binds a single host directory into the virtual filesystem. Grounded on
// the teacher's pkg/utils/path.go (ValidatePathWithinBase/SecureJoin):
// the same "join then verify the result still has the base as a strict
// prefix" discipline, applied after resolving symlinks so a link inside
// the root cannot point the operation outside it.
package localdisk

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/vfsql/vfsql/pkg/pathutil"
	"github.com/vfsql/vfsql/pkg/vfs"
	"github.com/vfsql/vfsql/pkg/vfserrors"
)

// Mount binds root (an absolute host directory) into the virtual
// filesystem. Every virtual path is joined onto root and the resulting
// real path is verified, after symlink resolution, to remain within
// root before any syscall touches it.
type Mount struct {
	root     string
	writable bool
}

// New builds a Mount rooted at root. root must already exist and be a
// directory; writable controls whether Write/Mkdir/Unlink/Rmdir/Rename
// are permitted at all (spec §6's "LocalDiskMount.writable" option).
func New(root string, writable bool) (*Mount, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, vfserrors.New(vfserrors.EINVAL, root, "cannot resolve root to an absolute path")
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, vfserrors.New(vfserrors.EINVAL, root, "root does not exist")
	}
	if !info.IsDir() {
		return nil, vfserrors.New(vfserrors.EINVAL, root, "root is not a directory")
	}
	return &Mount{root: abs, writable: writable}, nil
}

var _ vfs.Mount = (*Mount)(nil)

// realPath joins the mount-relative virtual path onto root and verifies
// containment both structurally (via pathutil) and physically: any
// symlinks along the way are resolved and the final target must still
// fall under root. A virtual path whose target does not yet exist (a
// file about to be created) is checked one level up instead, since
// EvalSymlinks requires the path to exist.
func (m *Mount) realPath(virtual string) (string, error) {
	virtual = pathutil.Normalize(virtual)
	candidate := filepath.Join(m.root, filepath.FromSlash(virtual))

	if candidate != m.root && !hasPathPrefix(candidate, m.root) {
		return "", vfserrors.New(vfserrors.EACCES, virtual, "path escapes mount root")
	}

	resolved, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		if os.IsNotExist(err) {
			parent, err := filepath.EvalSymlinks(filepath.Dir(candidate))
			if err != nil {
				// Parent doesn't exist either; nothing to escape through yet.
				return candidate, nil
			}
			if parent != m.root && !hasPathPrefix(parent, m.root) {
				return "", vfserrors.New(vfserrors.EACCES, virtual, "path escapes mount root")
			}
			return candidate, nil
		}
		return "", vfserrors.Wrap(virtual, err)
	}

	if resolved != m.root && !hasPathPrefix(resolved, m.root) {
		return "", vfserrors.New(vfserrors.EACCES, virtual, "path escapes mount root")
	}
	return candidate, nil
}

func hasPathPrefix(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !hasDotDotPrefix(rel)
}

func hasDotDotPrefix(rel string) bool {
	return len(rel) >= 2 && rel[:2] == ".." && (len(rel) == 2 || rel[2] == filepath.Separator)
}

func (m *Mount) Stat(ctx context.Context, path string) (vfs.FSEntry, error) {
	real, err := m.realPath(path)
	if err != nil {
		return vfs.FSEntry{}, err
	}
	info, err := os.Stat(real)
	if os.IsNotExist(err) {
		return vfs.FSEntry{}, vfserrors.New(vfserrors.ENOENT, path, "no such file or directory")
	}
	if err != nil {
		return vfs.FSEntry{}, vfserrors.Wrap(path, err)
	}
	return toEntry(pathutil.Basename(path), info), nil
}

func toEntry(name string, info fs.FileInfo) vfs.FSEntry {
	mtime := info.ModTime()
	e := vfs.FSEntry{
		Name:  name,
		Size:  info.Size(),
		Mode:  vfs.FileOs(info.Mode().Perm()),
		Mtime: &mtime,
	}
	if info.IsDir() {
		e.Type = vfs.TypeDirectory
	} else if info.Mode()&os.ModeSymlink != 0 {
		e.Type = vfs.TypeSymlink
	} else {
		e.Type = vfs.TypeFile
	}
	return e
}

func (m *Mount) Readdir(ctx context.Context, path string) ([]vfs.FSEntry, error) {
	real, err := m.realPath(path)
	if err != nil {
		return nil, err
	}
	dirEntries, err := os.ReadDir(real)
	if os.IsNotExist(err) {
		return nil, vfserrors.New(vfserrors.ENOENT, path, "no such directory")
	}
	if err != nil {
		return nil, vfserrors.Wrap(path, err)
	}

	entries := make([]vfs.FSEntry, 0, len(dirEntries))
	for _, de := range dirEntries {
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, toEntry(de.Name(), info))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (m *Mount) Read(ctx context.Context, path string) ([]byte, error) {
	real, err := m.realPath(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(real)
	if os.IsNotExist(err) {
		return nil, vfserrors.New(vfserrors.ENOENT, path, "no such file")
	}
	if err != nil {
		return nil, vfserrors.Wrap(path, err)
	}
	if info.IsDir() {
		return nil, vfserrors.New(vfserrors.EISDIR, path, "is a directory")
	}
	content, err := os.ReadFile(real)
	if err != nil {
		return nil, vfserrors.Wrap(path, err)
	}
	return content, nil
}

func (m *Mount) SupportsWrite() bool { return m.writable }

// Write creates or atomically replaces the file at path: content is
// written to a sibling temp file and renamed over the target, so a
// concurrent reader never observes a partially-written file.
func (m *Mount) Write(ctx context.Context, path string, content []byte) error {
	if !m.writable {
		return vfserrors.New(vfserrors.EROFS, path, "mount is read-only")
	}
	real, err := m.realPath(path)
	if err != nil {
		return err
	}
	if info, statErr := os.Stat(real); statErr == nil && info.IsDir() {
		return vfserrors.New(vfserrors.EISDIR, path, "is a directory")
	}

	tmp, err := os.CreateTemp(filepath.Dir(real), ".tmp-*")
	if err != nil {
		return vfserrors.Wrap(path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return vfserrors.Wrap(path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return vfserrors.Wrap(path, err)
	}
	if err := os.Rename(tmpName, real); err != nil {
		_ = os.Remove(tmpName)
		return vfserrors.Wrap(path, err)
	}
	return nil
}

func (m *Mount) Mkdir(ctx context.Context, path string) error {
	if !m.writable {
		return vfserrors.New(vfserrors.EROFS, path, "mount is read-only")
	}
	real, err := m.realPath(path)
	if err != nil {
		return err
	}
	if _, statErr := os.Stat(real); statErr == nil {
		return vfserrors.New(vfserrors.EEXIST, path, "already exists")
	}
	if err := os.Mkdir(real, 0o755); err != nil {
		return vfserrors.Wrap(path, err)
	}
	return nil
}

func (m *Mount) Unlink(ctx context.Context, path string) error {
	if !m.writable {
		return vfserrors.New(vfserrors.EROFS, path, "mount is read-only")
	}
	real, err := m.realPath(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(real)
	if os.IsNotExist(err) {
		return vfserrors.New(vfserrors.ENOENT, path, "no such file")
	}
	if err != nil {
		return vfserrors.Wrap(path, err)
	}
	if info.IsDir() {
		return vfserrors.New(vfserrors.EISDIR, path, "is a directory")
	}
	if err := os.Remove(real); err != nil {
		return vfserrors.Wrap(path, err)
	}
	return nil
}

func (m *Mount) Rmdir(ctx context.Context, path string) error {
	if !m.writable {
		return vfserrors.New(vfserrors.EROFS, path, "mount is read-only")
	}
	real, err := m.realPath(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(real)
	if os.IsNotExist(err) {
		return vfserrors.New(vfserrors.ENOENT, path, "no such directory")
	}
	if err != nil {
		return vfserrors.Wrap(path, err)
	}
	if !info.IsDir() {
		return vfserrors.New(vfserrors.ENOTDIR, path, "not a directory")
	}
	entries, err := os.ReadDir(real)
	if err != nil {
		return vfserrors.Wrap(path, err)
	}
	if len(entries) > 0 {
		return vfserrors.New(vfserrors.ENOTEMPTY, path, "directory is not empty")
	}
	if err := os.Remove(real); err != nil {
		return vfserrors.Wrap(path, err)
	}
	return nil
}

func (m *Mount) Rename(ctx context.Context, from, to string) error {
	if !m.writable {
		return vfserrors.New(vfserrors.EROFS, from, "mount is read-only")
	}
	realFrom, err := m.realPath(from)
	if err != nil {
		return err
	}
	realTo, err := m.realPath(to)
	if err != nil {
		return err
	}
	if _, err := os.Stat(realFrom); os.IsNotExist(err) {
		return vfserrors.New(vfserrors.ENOENT, from, "no such file or directory")
	}
	if err := os.Rename(realFrom, realTo); err != nil {
		return vfserrors.Wrap(from, err)
	}
	return nil
}

func (m *Mount) GetUsage(ctx context.Context, path string) (int64, error) {
	real, err := m.realPath(path)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(real)
	if os.IsNotExist(err) {
		return 0, vfserrors.New(vfserrors.ENOENT, path, "no such file or directory")
	}
	if err != nil {
		return 0, vfserrors.Wrap(path, err)
	}
	if !info.IsDir() {
		return info.Size(), nil
	}

	var total int64
	err = filepath.Walk(real, func(p string, fi fs.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !fi.IsDir() {
			total += fi.Size()
		}
		return nil
	})
	if err != nil {
		return 0, vfserrors.Wrap(path, err)
	}
	return total, nil
}
