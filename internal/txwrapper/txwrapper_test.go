package txwrapper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfsql/vfsql/internal/store"
	"github.com/vfsql/vfsql/pkg/vfs"
	"github.com/vfsql/vfsql/pkg/vfserrors"
)

// fakeTx is a Tx that records whether it was committed or rolled back,
// without touching a real database connection.
type fakeTx struct {
	namespace  string
	committed  bool
	rolledBack bool
	commitErr  error
}

func (f *fakeTx) Commit() error {
	f.committed = true
	return f.commitErr
}

func (f *fakeTx) Rollback() error {
	f.rolledBack = true
	return nil
}

func (f *fakeTx) Querier() store.Querier { return nil }
func (f *fakeTx) Namespace() string      { return f.namespace }

// fakeOpener hands back a pre-built fakeTx, or an error if beginErr is set.
type fakeOpener struct {
	tx       *fakeTx
	beginErr error
}

func (o *fakeOpener) Begin(ctx context.Context, namespace string) (Tx, error) {
	if o.beginErr != nil {
		return nil, o.beginErr
	}
	o.tx.namespace = namespace
	return o.tx, nil
}

func testIdentityRequest() IdentityRequest {
	return IdentityRequest{
		RequestID: "req-1",
		Tenant:    "acme",
		Namespace: "acme_ns",
		Identity:  vfs.Identity{UserID: "u1"},
		Access:    vfs.AccessWrite,
	}
}

func TestDoCommitsOnSuccess(t *testing.T) {
	tx := &fakeTx{}
	w := NewWithOpener(&fakeOpener{tx: tx}, nil)

	result, streamed, err := w.Do(context.Background(), testIdentityRequest(), func(ctx context.Context, req *Request) (interface{}, error) {
		assert.Equal(t, "acme_ns", req.Tx.Namespace())
		return "ok", nil
	})

	require.NoError(t, err)
	assert.False(t, streamed)
	assert.Equal(t, "ok", result)
	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)
}

func TestDoRollsBackOnHandlerError(t *testing.T) {
	tx := &fakeTx{}
	w := NewWithOpener(&fakeOpener{tx: tx}, nil)

	wantErr := errors.New("handler failed")
	_, _, err := w.Do(context.Background(), testIdentityRequest(), func(ctx context.Context, req *Request) (interface{}, error) {
		return nil, wantErr
	})

	require.ErrorIs(t, err, wantErr)
	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
}

func TestDoRollsBackAndWrapsPanic(t *testing.T) {
	tx := &fakeTx{}
	w := NewWithOpener(&fakeOpener{tx: tx}, nil)

	_, _, err := w.Do(context.Background(), testIdentityRequest(), func(ctx context.Context, req *Request) (interface{}, error) {
		panic("boom")
	})

	require.Error(t, err)
	assert.True(t, vfserrors.Is(err, vfserrors.EIO))
	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
}

func TestDoPropagatesBeginError(t *testing.T) {
	wantErr := errors.New("pool exhausted")
	w := NewWithOpener(&fakeOpener{beginErr: wantErr}, nil)

	_, _, err := w.Do(context.Background(), testIdentityRequest(), func(ctx context.Context, req *Request) (interface{}, error) {
		t.Fatal("handler must not run when Begin fails")
		return nil, nil
	})

	require.ErrorIs(t, err, wantErr)
}

// countingSequence yields a fixed slice of items, then is exhausted.
type countingSequence struct {
	items []interface{}
	pos   int
}

func (s *countingSequence) Next(ctx context.Context) (interface{}, bool, error) {
	if s.pos >= len(s.items) {
		return nil, false, nil
	}
	item := s.items[s.pos]
	s.pos++
	return item, true, nil
}

func TestDoCollectsSequenceBeforeCommit(t *testing.T) {
	tx := &fakeTx{}
	w := NewWithOpener(&fakeOpener{tx: tx}, nil)

	result, streamed, err := w.Do(context.Background(), testIdentityRequest(), func(ctx context.Context, req *Request) (interface{}, error) {
		return &countingSequence{items: []interface{}{"a", "b", "c"}}, nil
	})

	require.NoError(t, err)
	assert.True(t, streamed)
	assert.Equal(t, []interface{}{"a", "b", "c"}, result)
	assert.True(t, tx.committed)
}

func TestDoRollsBackWhenSequenceCollectFails(t *testing.T) {
	tx := &fakeTx{}
	w := NewWithOpener(&fakeOpener{tx: tx}, nil)

	wantErr := errors.New("stream broke")
	_, _, err := w.Do(context.Background(), testIdentityRequest(), func(ctx context.Context, req *Request) (interface{}, error) {
		return failingSequence{err: wantErr}, nil
	})

	require.ErrorIs(t, err, wantErr)
	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
}

type failingSequence struct{ err error }

func (s failingSequence) Next(ctx context.Context) (interface{}, bool, error) {
	return nil, false, s.err
}

func TestWithSudoRevertsOnExit(t *testing.T) {
	sysctx := vfs.NewSystemContext("req-1", "acme", "acme_ns", vfs.Identity{UserID: "u1"}, vfs.AccessRead)
	err := WithSudo(sysctx, func() error {
		assert.True(t, sysctx.Sudo())
		return nil
	})
	require.NoError(t, err)
	assert.False(t, sysctx.Sudo())
}
