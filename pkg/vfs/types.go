// Package vfs defines the uniform contract every mount implements: the
// FSEntry metadata shape, the Mount interface, and the per-request system
// context mounts are constructed with. It mirrors the shape of
// FilesystemInterface/FileInfo/DirEntry in the reference corpus's
// internal/filesystem/interface.go, generalized from a single S3 backend
// to an arbitrary number of composed mounts.
package vfs

import "time"

// FileType is the type of a virtual filesystem entry.
type FileType string

const (
	TypeFile      FileType = "file"
	TypeDirectory FileType = "directory"
	TypeSymlink   FileType = "symlink"
)

// Common permission triplets used across mounts, encoded numerically as
// spec §3 requires (e.g. 0o755 for a browsable/writable directory).
const (
	ModeBrowsableDir FileOs = 0o755
	ModeReadOnlyFile FileOs = 0o444
	ModeWritableFile FileOs = 0o644
)

// FileOs is a 9-bit permission triplet, kept as its own named type so call
// sites read as "FSEntry.Mode" rather than a bare uintptr-ish integer.
type FileOs uint32

// FSEntry is the uniform metadata object every mount's Stat/Readdir
// returns.
type FSEntry struct {
	Name  string     `json:"name"`
	Type  FileType   `json:"type"`
	Size  int64      `json:"size"`
	Mode  FileOs     `json:"mode"`
	Mtime *time.Time `json:"mtime,omitempty"`
}

// IsDir reports whether the entry is a directory.
func (e FSEntry) IsDir() bool { return e.Type == TypeDirectory }
