// Package system implements the read-only `/system` introspection mount
// spec §4.H lists (version, uptime, whoami, tenant). Grounded on the
// teacher's pkg/health package, which exposes comparable
// process-introspection facts (uptime, component status) as a flat set
// of read-only values; this mount adapts that shape to the VFS contract
// instead of a health-check payload.
package system

import (
	"context"
	"sort"
	"time"

	"github.com/vfsql/vfsql/pkg/pathutil"
	"github.com/vfsql/vfsql/pkg/vfs"
	"github.com/vfsql/vfsql/pkg/vfserrors"
)

// Mount exposes a handful of read-only files describing the running
// process and the current request's identity.
type Mount struct {
	vfs.ReadOnlyMutators

	version   string
	startedAt time.Time
	sysctx    *vfs.SystemContext
}

// New builds a system mount. version is the build/release identifier;
// startedAt is the process start time used to compute uptime.
func New(version string, startedAt time.Time, sysctx *vfs.SystemContext) *Mount {
	return &Mount{version: version, startedAt: startedAt, sysctx: sysctx}
}

var _ vfs.Mount = (*Mount)(nil)

func (m *Mount) files() map[string]string {
	whoami := ""
	tenant := ""
	if m.sysctx != nil {
		whoami = m.sysctx.Identity.UserID
		tenant = m.sysctx.Tenant
	}
	return map[string]string{
		"version": m.version,
		"uptime":  time.Since(m.startedAt).String(),
		"whoami":  whoami,
		"tenant":  tenant,
	}
}

func (m *Mount) Stat(ctx context.Context, path string) (vfs.FSEntry, error) {
	segs := pathutil.Split(path)
	if len(segs) == 0 {
		return vfs.FSEntry{Type: vfs.TypeDirectory, Mode: vfs.ModeBrowsableDir}, nil
	}
	if len(segs) != 1 {
		return vfs.FSEntry{}, vfserrors.New(vfserrors.ENOENT, path, "no such path")
	}
	content, ok := m.files()[segs[0]]
	if !ok {
		return vfs.FSEntry{}, vfserrors.New(vfserrors.ENOENT, path, "no such file")
	}
	return vfs.FSEntry{Name: segs[0], Type: vfs.TypeFile, Size: int64(len(content)), Mode: vfs.ModeReadOnlyFile}, nil
}

func (m *Mount) Readdir(ctx context.Context, path string) ([]vfs.FSEntry, error) {
	segs := pathutil.Split(path)
	if len(segs) != 0 {
		return nil, vfserrors.New(vfserrors.ENOTDIR, path, "not a directory")
	}
	files := m.files()
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]vfs.FSEntry, len(names))
	for i, name := range names {
		entries[i] = vfs.FSEntry{Name: name, Type: vfs.TypeFile, Size: int64(len(files[name])), Mode: vfs.ModeReadOnlyFile}
	}
	return entries, nil
}

func (m *Mount) Read(ctx context.Context, path string) ([]byte, error) {
	segs := pathutil.Split(path)
	if len(segs) != 1 {
		return nil, vfserrors.New(vfserrors.EISDIR, path, "is a directory")
	}
	content, ok := m.files()[segs[0]]
	if !ok {
		return nil, vfserrors.New(vfserrors.ENOENT, path, "no such file")
	}
	return []byte(content), nil
}

func (m *Mount) GetUsage(ctx context.Context, path string) (int64, error) {
	content, err := m.Read(ctx, path)
	if err != nil {
		return 0, err
	}
	return int64(len(content)), nil
}
