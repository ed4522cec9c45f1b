package vfs

import "context"

// Mount is the contract every mount in the VFS satisfies (spec §4.B).
// Paths passed to a Mount are always mount-relative: the router has
// already stripped the mount's prefix, preserving a leading "/".
//
// Optionality is expressed as a capability query rather than method
// presence (spec §9's "Dynamic mount contract" redesign note): a mount
// that does not support a mutator answers false from the matching
// Supports* method, and the router maps any attempted call straight to
// EROFS without ever invoking it.
type Mount interface {
	Stat(ctx context.Context, path string) (FSEntry, error)
	Readdir(ctx context.Context, path string) ([]FSEntry, error)
	Read(ctx context.Context, path string) ([]byte, error)

	// SupportsWrite reports whether Write/Mkdir/Unlink/Rmdir/Rename may be
	// called at all on this mount. A mount that answers false here is
	// treated as wholly read-only: every mutator fails EROFS before any
	// backend call, without the mount needing to implement the check
	// itself.
	SupportsWrite() bool

	Write(ctx context.Context, path string, content []byte) error
	Mkdir(ctx context.Context, path string) error
	Unlink(ctx context.Context, path string) error
	Rmdir(ctx context.Context, path string) error
	Rename(ctx context.Context, from, to string) error

	// GetUsage reports byte usage at path: file size, or recursive
	// directory size. Mounts that cannot compute usage cheaply may return
	// vfserrors.EIO.
	GetUsage(ctx context.Context, path string) (int64, error)
}

// TypeProbe is an optional capability a mount may implement to answer
// "what would Stat say about this path's type" without I/O. The router
// does not consult it: mount-point injection and existence checks always
// go through Stat/Readdir. DataMount implements this as ProbeType, its
// getType lightweight probe (spec §4.E).
type TypeProbe interface {
	// ProbeType returns the type the path would resolve to, or nil if the
	// mount cannot say without I/O (in which case the caller falls back to
	// Stat).
	ProbeType(path string) *FileType
}
