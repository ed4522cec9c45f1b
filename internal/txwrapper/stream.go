package txwrapper

import (
	"context"
	"sync"

	"github.com/vfsql/vfsql/pkg/vfs"
	"github.com/vfsql/vfsql/pkg/vfserrors"
)

// StreamSession is the read-only variant of the wrapper (spec §4.G's
// `withSearchPath`): BEGIN only to scope the namespace setting, no
// COMMIT, relying on implicit rollback at Close. The connection is kept
// open for the duration of the stream; Close is safe to call multiple
// times and from any exit path (consumer finishes, aborts early, or
// errors).
type StreamSession struct {
	tx     Tx
	sysctx *vfs.SystemContext
	seq    Sequence

	mu     sync.Mutex
	closed bool
}

// OpenStream begins a read-only transaction scoped to ir's namespace,
// builds the request, and asks fn for a Sequence to stream from fn must
// return a Sequence; returning a plain value is a programming error
// (streaming is only meaningful for a handler that produces one).
func (w *Wrapper) OpenStream(ctx context.Context, ir IdentityRequest, fn Handler) (*StreamSession, error) {
	tx, err := w.pool.Begin(ctx, ir.Namespace)
	if err != nil {
		return nil, err
	}

	sysctx := w.buildSysctx(ir)
	req := &Request{Tx: tx, Sysctx: sysctx}

	value, err := fn(ctx, req)
	if err != nil {
		w.rollback(tx)
		return nil, err
	}

	seq, ok := value.(Sequence)
	if !ok {
		w.rollback(tx)
		return nil, vfserrors.New(vfserrors.EIO, "/", "stream handler did not return a sequence")
	}

	return &StreamSession{tx: tx, sysctx: sysctx, seq: seq}, nil
}

// Next pulls the next item from the underlying sequence. Callers must
// call Close once Next returns ok=false or an error.
func (s *StreamSession) Next(ctx context.Context) (item interface{}, ok bool, err error) {
	return s.seq.Next(ctx)
}

// Close releases the transaction's connection via implicit rollback.
// Idempotent: safe to call on early termination, completion, or error.
func (s *StreamSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.tx.Rollback()
}
