// Package router implements the VFS composition layer: a table of
// mounts keyed by path prefix, longest-prefix resolution, mount-point
// injection on readdir, and a single fallback mount for everything else
// (spec §4.A–§4.C). Grounded on
// other_examples/61972deb_jackfish212-Shellfish__mount_table.go.go's
// MountTable (sort-by-length routing, ChildMounts injection, a guard
// against registering the same path twice) generalized from a
// single Provider type to the spec's richer vfs.Mount contract.
package router

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/vfsql/vfsql/internal/metrics"
	"github.com/vfsql/vfsql/pkg/pathutil"
	"github.com/vfsql/vfsql/pkg/vfs"
	"github.com/vfsql/vfsql/pkg/vfserrors"
)

type entryRecord struct {
	path  string
	mount vfs.Mount
}

// Router is the composed virtual filesystem: it owns no storage of its
// own, only the table mapping path prefixes to mounts.
type Router struct {
	mu       sync.RWMutex
	records  []entryRecord
	fallback vfs.Mount
	metrics  *metrics.Collector
}

// New builds an empty Router.
func New() *Router {
	return &Router{}
}

// SetMetrics attaches a metrics collector for mount-point injection
// counting. A nil collector (the default) disables recording.
func (r *Router) SetMetrics(m *metrics.Collector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = m
}

// Mount registers m at mountPath. Nesting one mount path under another
// (e.g. "/api" and "/api/data") is expected and routed by longest-prefix
// match in resolve; only an exact duplicate path is rejected.
func (r *Router) Mount(mountPath string, m vfs.Mount) error {
	mountPath = pathutil.Normalize(mountPath)

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range r.records {
		if rec.path == mountPath {
			return vfserrors.New(vfserrors.EEXIST, mountPath, "a mount is already registered at this path")
		}
	}

	r.records = append(r.records, entryRecord{path: mountPath, mount: m})
	sort.Slice(r.records, func(i, j int) bool {
		return len(r.records[i].path) > len(r.records[j].path)
	})
	return nil
}

// Unmount removes the mount registered at mountPath.
func (r *Router) Unmount(mountPath string) error {
	mountPath = pathutil.Normalize(mountPath)

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, rec := range r.records {
		if rec.path == mountPath {
			r.records = append(r.records[:i], r.records[i+1:]...)
			return nil
		}
	}
	return vfserrors.New(vfserrors.ENOENT, mountPath, "no mount registered at this path")
}

// SetFallback registers the mount consulted when no prefix matches
// (spec §4.C: "a single fallback mount handles every path not claimed by
// a more specific mount").
func (r *Router) SetFallback(m vfs.Mount) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = m
}

// resolution is the result of routing a full path to a mount.
type resolution struct {
	mount      vfs.Mount
	mountPath  string
	inner      string
}

// resolve finds the most specific mount claiming fullPath, returning the
// mount, its registered prefix, and the mount-relative inner path (which
// always starts with "/").
func (r *Router) resolve(fullPath string) (resolution, error) {
	fullPath = pathutil.Normalize(fullPath)

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.records {
		if rec.path == "/" {
			return resolution{mount: rec.mount, mountPath: rec.path, inner: fullPath}, nil
		}
		if fullPath == rec.path {
			return resolution{mount: rec.mount, mountPath: rec.path, inner: "/"}, nil
		}
		if strings.HasPrefix(fullPath, rec.path+"/") {
			inner := fullPath[len(rec.path):]
			return resolution{mount: rec.mount, mountPath: rec.path, inner: inner}, nil
		}
	}

	if r.fallback != nil {
		return resolution{mount: r.fallback, mountPath: "", inner: fullPath}, nil
	}

	return resolution{}, vfserrors.New(vfserrors.ENOENT, fullPath, "no mount claims this path")
}

// childMountNames returns the distinct next path segments of every
// registered mount strictly under dirPath, for mount-point injection.
func (r *Router) childMountNames(dirPath string) []string {
	prefix := dirPath
	if prefix != "/" {
		prefix += "/"
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var names []string
	for _, rec := range r.records {
		if rec.path == "/" || !strings.HasPrefix(rec.path, prefix) {
			continue
		}
		rest := rec.path[len(prefix):]
		if rest == "" {
			continue
		}
		name := rest
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			name = rest[:idx]
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stat resolves path and delegates. A path that has no mount of its
// own but is a strict ancestor of a registered mount (e.g. "/api" when
// only "/api/data" is mounted) is a virtual directory: Stat reports it
// as one rather than propagating whatever ENOENT the resolving mount
// (or fallback) would otherwise raise for a path it knows nothing about.
func (r *Router) Stat(ctx context.Context, path string) (vfs.FSEntry, error) {
	path = pathutil.Normalize(path)

	res, err := r.resolve(path)
	if err != nil {
		if len(r.childMountNames(path)) > 0 {
			return vfs.FSEntry{Type: vfs.TypeDirectory, Mode: vfs.ModeBrowsableDir}, nil
		}
		return vfs.FSEntry{}, err
	}
	entry, statErr := res.mount.Stat(ctx, res.inner)
	if statErr != nil {
		if vfserrors.Is(statErr, vfserrors.ENOENT) && len(r.childMountNames(path)) > 0 {
			return vfs.FSEntry{Type: vfs.TypeDirectory, Mode: vfs.ModeBrowsableDir}, nil
		}
		return vfs.FSEntry{}, statErr
	}
	return entry, nil
}

// Readdir resolves path, delegates, and injects synthetic directory
// entries for any mount points registered directly beneath it, deduped
// by name against the underlying mount's own entries (spec §4.C). A
// path with no mount of its own but that is a strict ancestor of a
// registered mount (e.g. "/api") is a virtual directory: an ENOENT from
// the resolving mount is swallowed as an empty listing so the injected
// child-mount entries below are still returned.
func (r *Router) Readdir(ctx context.Context, path string) ([]vfs.FSEntry, error) {
	path = pathutil.Normalize(path)

	res, err := r.resolve(path)
	childNames := r.childMountNames(path)
	if err != nil {
		if len(childNames) == 0 {
			return nil, err
		}
		res = resolution{}
	}

	var entries []vfs.FSEntry
	if res.mount != nil {
		entries, err = res.mount.Readdir(ctx, res.inner)
		if err != nil {
			if vfserrors.Is(err, vfserrors.ENOENT) && len(childNames) > 0 {
				entries = nil
			} else {
				return nil, err
			}
		}
	}

	if len(childNames) == 0 {
		return entries, nil
	}

	existing := make(map[string]bool, len(entries))
	for _, e := range entries {
		existing[e.Name] = true
	}

	for _, name := range childNames {
		if existing[name] {
			continue
		}
		entries = append(entries, vfs.FSEntry{
			Name: name,
			Type: vfs.TypeDirectory,
			Mode: vfs.ModeBrowsableDir,
		})
		r.metrics.RecordMountInjection()
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Read resolves path and delegates.
func (r *Router) Read(ctx context.Context, path string) ([]byte, error) {
	res, err := r.resolve(path)
	if err != nil {
		return nil, err
	}
	return res.mount.Read(ctx, res.inner)
}

// Write resolves path and delegates, failing EROFS up front if the
// owning mount does not support writes at all.
func (r *Router) Write(ctx context.Context, path string, content []byte) error {
	res, err := r.resolve(path)
	if err != nil {
		return err
	}
	if !res.mount.SupportsWrite() {
		return vfserrors.New(vfserrors.EROFS, path, "mount is read-only")
	}
	return res.mount.Write(ctx, res.inner, content)
}

// Mkdir resolves path and delegates.
func (r *Router) Mkdir(ctx context.Context, path string) error {
	res, err := r.resolve(path)
	if err != nil {
		return err
	}
	if !res.mount.SupportsWrite() {
		return vfserrors.New(vfserrors.EROFS, path, "mount is read-only")
	}
	return res.mount.Mkdir(ctx, res.inner)
}

// Unlink resolves path and delegates.
func (r *Router) Unlink(ctx context.Context, path string) error {
	res, err := r.resolve(path)
	if err != nil {
		return err
	}
	if !res.mount.SupportsWrite() {
		return vfserrors.New(vfserrors.EROFS, path, "mount is read-only")
	}
	return res.mount.Unlink(ctx, res.inner)
}

// Rmdir resolves path and delegates.
func (r *Router) Rmdir(ctx context.Context, path string) error {
	res, err := r.resolve(path)
	if err != nil {
		return err
	}
	if !res.mount.SupportsWrite() {
		return vfserrors.New(vfserrors.EROFS, path, "mount is read-only")
	}
	return res.mount.Rmdir(ctx, res.inner)
}

// Rename resolves both from and to; a rename spanning two different
// mounts is rejected as EINVAL (spec §4.C: "rename never crosses a
// mount boundary") rather than attempted as a cross-backend copy.
func (r *Router) Rename(ctx context.Context, from, to string) error {
	fromRes, err := r.resolve(from)
	if err != nil {
		return err
	}
	toRes, err := r.resolve(to)
	if err != nil {
		return err
	}
	if fromRes.mountPath != toRes.mountPath {
		return vfserrors.New(vfserrors.EINVAL, from, "rename may not cross a mount boundary")
	}
	if !fromRes.mount.SupportsWrite() {
		return vfserrors.New(vfserrors.EROFS, from, "mount is read-only")
	}
	return fromRes.mount.Rename(ctx, fromRes.inner, toRes.inner)
}

// GetUsage resolves path and delegates.
func (r *Router) GetUsage(ctx context.Context, path string) (int64, error) {
	res, err := r.resolve(path)
	if err != nil {
		return 0, err
	}
	return res.mount.GetUsage(ctx, res.inner)
}

// Exists reports whether path resolves to anything, using Stat.
func (r *Router) Exists(ctx context.Context, path string) bool {
	_, err := r.Stat(ctx, path)
	return err == nil
}

// IsDir reports whether path resolves to a directory.
func (r *Router) IsDir(ctx context.Context, path string) bool {
	e, err := r.Stat(ctx, path)
	return err == nil && e.IsDir()
}

// IsFile reports whether path resolves to a regular file.
func (r *Router) IsFile(ctx context.Context, path string) bool {
	e, err := r.Stat(ctx, path)
	return err == nil && !e.IsDir()
}

// Mounts returns every registered mount path, excluding the fallback.
func (r *Router) Mounts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	paths := make([]string, len(r.records))
	for i, rec := range r.records {
		paths[i] = rec.path
	}
	sort.Strings(paths)
	return paths
}

var _ vfs.Mount = (*Router)(nil)

// SupportsWrite always reports true at the Router level: whether a
// given path is writable depends on which mount claims it, decided
// per-call inside Write/Mkdir/Unlink/Rmdir/Rename above.
func (r *Router) SupportsWrite() bool { return true }
