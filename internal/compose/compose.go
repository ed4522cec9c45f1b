// Package compose builds the per-request VFS spec §4.H names: a
// fresh Router with /system, /api/describe, /api/data, /api/trashed,
// any session-scoped mounts, and a fallback root mount, all
// constructed with the same request-scoped SystemContext. No package
// global state is held here — every call to New builds an independent
// router bound to the caller's transaction and identity.
package compose

import (
	"context"
	"time"

	"github.com/vfsql/vfsql/internal/metrics"
	"github.com/vfsql/vfsql/internal/mount/data"
	"github.com/vfsql/vfsql/internal/mount/describe"
	"github.com/vfsql/vfsql/internal/mount/localdisk"
	"github.com/vfsql/vfsql/internal/mount/system"
	"github.com/vfsql/vfsql/internal/router"
	"github.com/vfsql/vfsql/internal/store"
	"github.com/vfsql/vfsql/pkg/pipeline"
	"github.com/vfsql/vfsql/pkg/vfs"
	"github.com/vfsql/vfsql/pkg/vfserrors"
)

// SessionMount is one extra, caller-supplied mount bound at Path, for
// the session-scoped mounts spec §4.H allows (e.g. a bound host
// directory in a shell session).
type SessionMount struct {
	Path  string
	Mount vfs.Mount
}

// Options controls what New wires in beyond the fixed four mounts.
type Options struct {
	// Version and StartedAt feed the /system mount.
	Version   string
	StartedAt time.Time

	// Pipeline is the observer pipeline DataMount/DescribeMount route
	// writes and deletes through. Nil defaults to pipeline.NopPipeline.
	Pipeline pipeline.Pipeline

	// Sessions are additional mounts layered in beyond the fixed set,
	// e.g. LocalDiskMount instances bound for one shell session.
	Sessions []SessionMount

	// Fallback replaces the default root mount. If nil, an empty
	// read-only root mount is used, whose only purpose is to make
	// mount points visible via router injection.
	Fallback vfs.Mount

	// Metrics, if non-nil, is attached to the router for mount-point
	// injection counting.
	Metrics *metrics.Collector
}

// New builds the composed Router for one request: records is the
// RecordStore backing DataMount/DescribeMount/TrashedMount, sysctx is
// the per-request system context built by the transaction wrapper.
func New(records store.RecordStore, sysctx *vfs.SystemContext, opts Options) (*router.Router, error) {
	p := opts.Pipeline
	if p == nil {
		p = pipeline.NopPipeline{}
	}

	r := router.New()
	r.SetMetrics(opts.Metrics)

	if err := r.Mount("/system", system.New(opts.Version, opts.StartedAt, sysctx)); err != nil {
		return nil, err
	}
	if err := r.Mount("/api/describe", describe.New(records, sysctx, p)); err != nil {
		return nil, err
	}
	if err := r.Mount("/api/data", data.New(records, sysctx, p)); err != nil {
		return nil, err
	}
	if err := r.Mount("/api/trashed", data.NewTrashed(records, sysctx)); err != nil {
		return nil, err
	}

	for _, sm := range opts.Sessions {
		if err := r.Mount(sm.Path, sm.Mount); err != nil {
			return nil, err
		}
	}

	fallback := opts.Fallback
	if fallback == nil {
		fallback = emptyRoot{}
	}
	r.SetFallback(fallback)
	return r, nil
}

// BindSessionDisk is a convenience constructor for the common
// session-scoped case: a host directory bound read-only or writable
// under mountPath.
func BindSessionDisk(mountPath, root string, writable bool) (SessionMount, error) {
	m, err := localdisk.New(root, writable)
	if err != nil {
		return SessionMount{}, err
	}
	return SessionMount{Path: mountPath, Mount: m}, nil
}

// emptyRoot is the default fallback mount: it holds nothing of its own,
// existing only so the router's mount-point injection has somewhere to
// attach synthetic directory entries for /system, /api, and any session
// mounts.
type emptyRoot struct {
	vfs.ReadOnlyMutators
}

var _ vfs.Mount = emptyRoot{}

func (emptyRoot) Stat(ctx context.Context, path string) (vfs.FSEntry, error) {
	if path != "/" {
		return vfs.FSEntry{}, vfserrors.New(vfserrors.ENOENT, path, "no such path")
	}
	return vfs.FSEntry{Type: vfs.TypeDirectory, Mode: vfs.ModeBrowsableDir}, nil
}

func (emptyRoot) Readdir(ctx context.Context, path string) ([]vfs.FSEntry, error) {
	if path != "/" {
		return nil, vfserrors.New(vfserrors.ENOENT, path, "no such path")
	}
	return nil, nil
}

func (emptyRoot) Read(ctx context.Context, path string) ([]byte, error) {
	return nil, vfserrors.New(vfserrors.EISDIR, path, "is a directory")
}

func (emptyRoot) GetUsage(ctx context.Context, path string) (int64, error) {
	return 0, nil
}
