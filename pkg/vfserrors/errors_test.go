package vfserrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndError(t *testing.T) {
	err := New(ENOENT, "/api/data/products/x", "no such record")
	require.Error(t, err)
	assert.Equal(t, "ENOENT /api/data/products/x: no such record", err.Error())
	assert.Equal(t, 404, HTTPStatus(err.Kind))
}

func TestWrapPassesThroughExistingError(t *testing.T) {
	inner := New(EROFS, "/api/trashed/products/1/name", "read-only mount")
	wrapped := Wrap("/api/trashed/products/1/name", inner)
	assert.Same(t, inner, wrapped)
}

func TestWrapWrapsBackendFailure(t *testing.T) {
	cause := errors.New("connection reset")
	wrapped := Wrap("/api/data/products/1", cause)
	require.NotNil(t, wrapped)
	assert.Equal(t, EIO, wrapped.Kind)
	assert.Equal(t, cause, wrapped.Unwrap())
}

func TestIsAndOf(t *testing.T) {
	err := fmtWrap(New(EACCES, "/x", "denied"))
	assert.True(t, Is(err, EACCES))
	kind, ok := Of(err)
	require.True(t, ok)
	assert.Equal(t, EACCES, kind)

	assert.False(t, Is(errors.New("plain"), EACCES))
}

// fmtWrap simulates an outer caller wrapping a VFS error with %w, which
// Of/Is must still be able to unwrap to find the underlying Kind.
func fmtWrap(e *Error) error {
	return &wrapped{e}
}

type wrapped struct{ err error }

func (w *wrapped) Error() string { return "wrapped: " + w.err.Error() }
func (w *wrapped) Unwrap() error { return w.err }
