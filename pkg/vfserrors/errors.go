// Package vfserrors provides the structured error taxonomy every Mount
// implementation must translate its failures into before they leave the
// mount boundary. Apart from observer-pipeline rejections (*pipeline.Error),
// which DataMount and DescribeMount return unchanged, only the nine kinds
// declared here are ever raised by a Mount or by the VFS router.
package vfserrors

import (
	"encoding/json"
	"fmt"
)

// Kind is one of the nine stable VFS error kinds used on the wire.
type Kind string

const (
	// ENOENT indicates no such path exists.
	ENOENT Kind = "ENOENT"
	// ENOTDIR indicates an operation expected a directory but found a file.
	ENOTDIR Kind = "ENOTDIR"
	// EISDIR indicates an operation expected a file but found a directory.
	EISDIR Kind = "EISDIR"
	// EEXIST indicates the target exists and the operation forbids overwrite.
	EEXIST Kind = "EEXIST"
	// ENOTEMPTY indicates a directory is not empty.
	ENOTEMPTY Kind = "ENOTEMPTY"
	// EROFS indicates the mount or entry is read-only.
	EROFS Kind = "EROFS"
	// EACCES indicates the caller lacks permission, or the path escapes the mount root.
	EACCES Kind = "EACCES"
	// EINVAL indicates malformed arguments or a cross-mount operation.
	EINVAL Kind = "EINVAL"
	// EIO indicates an underlying backend failure not covered by any other kind.
	EIO Kind = "EIO"
)

// defaultHTTPStatus maps each kind to the HTTP status spec §6 assigns it.
var defaultHTTPStatus = map[Kind]int{
	ENOENT:    404,
	ENOTDIR:   400,
	EISDIR:    400,
	EEXIST:    409,
	ENOTEMPTY: 400,
	EROFS:     405,
	EACCES:    403,
	EINVAL:    400,
	EIO:       500,
}

// HTTPStatus returns the HTTP status code a given kind maps to.
func HTTPStatus(k Kind) int {
	if s, ok := defaultHTTPStatus[k]; ok {
		return s
	}
	return 500
}

// Error is the tagged sum type every VFS error is represented as: a kind,
// the offending path, a human message, and an optional cause.
type Error struct {
	Kind    Kind   `json:"error"`
	Path    string `json:"path"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %s", e.Kind, e.Path, e.Message)
	}
	return fmt.Sprintf("%s %s", e.Kind, e.Path)
}

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is allows errors.Is(err, vfserrors.New(ENOENT, "", "")) style kind checks.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// JSON renders the wire body spec §6 requires: {error, path, message}.
func (e *Error) JSON() ([]byte, error) {
	return json.Marshal(e)
}

// New constructs a VFS error of the given kind for the given path.
func New(kind Kind, path, message string) *Error {
	return &Error{Kind: kind, Path: path, Message: message}
}

// Wrap constructs an EIO error carrying the original backend error as
// detail, per spec §7.1: "Any unexpected backend condition must be
// wrapped as EIO with the original message attached as detail."
func Wrap(path string, cause error) *Error {
	if cause == nil {
		return nil
	}
	if existing, ok := cause.(*Error); ok {
		return existing
	}
	return &Error{Kind: EIO, Path: path, Message: cause.Error(), Cause: cause}
}

// Of reports the Kind of err if it is (or wraps) a *Error, and ok=false
// otherwise.
func Of(err error) (Kind, bool) {
	var e *Error
	if !asError(err, &e) {
		return "", false
	}
	return e.Kind, true
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	k, ok := Of(err)
	return ok && k == kind
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
