package vfs

import (
	"context"

	"github.com/vfsql/vfsql/pkg/vfserrors"
)

// ReadOnlyMutators is embedded by mounts that never support mutation
// (the /system mount and compose's fallback root; TrashedMount, a
// non-writable LocalDiskMount and DescribeMount carry their own EROFS
// checks instead). It implements every mutator method of Mount by returning
// EROFS before any backend call, satisfying spec §8's universal property
// "for every read-only mount M and every mutator op, op(M, ...) fails
// EROFS before any backend call" without each mount re-deriving the same
// five method bodies.
type ReadOnlyMutators struct{}

func (ReadOnlyMutators) SupportsWrite() bool { return false }

func (ReadOnlyMutators) Write(ctx context.Context, path string, content []byte) error {
	return vfserrors.New(vfserrors.EROFS, path, "mount is read-only")
}

func (ReadOnlyMutators) Mkdir(ctx context.Context, path string) error {
	return vfserrors.New(vfserrors.EROFS, path, "mount is read-only")
}

func (ReadOnlyMutators) Unlink(ctx context.Context, path string) error {
	return vfserrors.New(vfserrors.EROFS, path, "mount is read-only")
}

func (ReadOnlyMutators) Rmdir(ctx context.Context, path string) error {
	return vfserrors.New(vfserrors.EROFS, path, "mount is read-only")
}

func (ReadOnlyMutators) Rename(ctx context.Context, from, to string) error {
	return vfserrors.New(vfserrors.EROFS, from, "mount is read-only")
}
