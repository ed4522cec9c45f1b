// Package txwrapper implements spec §4.G's transaction-scoped request
// wrapper: acquire a connection, BEGIN, set the namespace search path,
// build a per-request SystemContext, invoke a handler, then COMMIT or
// ROLLBACK and always release the connection. Grounded on the teacher's
// pkg/recovery connection-lifecycle discipline (acquire/release on every
// exit path) generalized from a reconnecting network client to a
// database transaction.
package txwrapper

import (
	"context"
	"fmt"

	"github.com/vfsql/vfsql/internal/logging"
	"github.com/vfsql/vfsql/internal/metrics"
	"github.com/vfsql/vfsql/internal/store"
	"github.com/vfsql/vfsql/pkg/vfs"
	"github.com/vfsql/vfsql/pkg/vfserrors"
)

// Sequence is a lazy, finite async sequence a Handler may return instead
// of a plain value (spec §9: "a lazy sequence returned by a handler
// holds a borrow on the transaction"). A DataMount readdir/listing that
// streams rows is the motivating case.
type Sequence interface {
	// Next returns the next item, or ok=false once exhausted.
	Next(ctx context.Context) (item interface{}, ok bool, err error)
}

// Tx is the subset of *store.Tx the wrapper's control flow and its
// handlers depend on, extracted so the commit/rollback/panic lifecycle
// can be exercised in tests without a real database connection.
type Tx interface {
	Commit() error
	Rollback() error
	Querier() store.Querier
	Namespace() string
}

// Opener begins a transaction scoped to a namespace, returning it as the
// Tx interface rather than the concrete *store.Tx so a test can supply a
// fake. poolOpener adapts the real *store.Pool; tests supply their own.
type Opener interface {
	Begin(ctx context.Context, namespace string) (Tx, error)
}

// poolOpener adapts *store.Pool to Opener. *store.Pool.Begin returns the
// concrete *store.Tx, which satisfies the Tx interface, so the adapter is
// just a type-shedding shim.
type poolOpener struct {
	pool *store.Pool
}

func (p poolOpener) Begin(ctx context.Context, namespace string) (Tx, error) {
	return p.pool.Begin(ctx, namespace)
}

// Request bundles everything a handler needs: the open transaction and
// the per-request system context built from the caller's identity.
type Request struct {
	Tx     Tx
	Sysctx *vfs.SystemContext
}

// Handler is the shape every wrapped operation takes: given a request,
// return either a plain value or a Sequence, or an error.
type Handler func(ctx context.Context, req *Request) (interface{}, error)

// Wrapper owns the connection pool and applies the transaction lifecycle
// around each Handler invocation.
type Wrapper struct {
	pool    Opener
	logger  *logging.Logger
	metrics *metrics.Collector
}

// New builds a Wrapper over pool. logger may be nil, in which case
// rollback-failure logging is silently skipped.
func New(pool *store.Pool, logger *logging.Logger) *Wrapper {
	return &Wrapper{pool: poolOpener{pool: pool}, logger: logger}
}

// NewWithOpener builds a Wrapper over a caller-supplied Opener instead of
// a concrete *store.Pool. Exported so other packages' tests can inject a
// fake transaction without a real database connection.
func NewWithOpener(opener Opener, logger *logging.Logger) *Wrapper {
	return &Wrapper{pool: opener, logger: logger}
}

// SetMetrics attaches a metrics collector for commit/rollback counting.
// A nil collector (the default) disables recording.
func (w *Wrapper) SetMetrics(m *metrics.Collector) {
	w.metrics = m
}

// IdentityRequest carries what the wrapper needs to build a
// SystemContext, handed in by the outer HTTP layer after it has parsed
// a token (out of scope for this module per spec §1).
type IdentityRequest struct {
	RequestID string
	Tenant    string
	Namespace string
	Identity  vfs.Identity
	Access    vfs.AccessLevel
	Sudo      bool
}

func (w *Wrapper) buildSysctx(ir IdentityRequest) *vfs.SystemContext {
	sc := vfs.NewSystemContext(ir.RequestID, ir.Tenant, ir.Namespace, ir.Identity, ir.Access)
	if ir.Sudo {
		sc.GrantSudo()
	}
	return sc
}

// Do runs fn inside a committed (or rolled-back) transaction, per spec
// §4.G steps 1-7. If fn returns a Sequence, it is collected to a []any
// before COMMIT, since the connection is only valid inside the
// transaction; the bool return reports whether the result was a
// collected sequence (the caller uses this to decide whether to frame
// the response as newline-delimited JSON).
func (w *Wrapper) Do(ctx context.Context, ir IdentityRequest, fn Handler) (result interface{}, streamed bool, err error) {
	tx, err := w.pool.Begin(ctx, ir.Namespace)
	if err != nil {
		return nil, false, err
	}

	sysctx := w.buildSysctx(ir)
	req := &Request{Tx: tx, Sysctx: sysctx}

	defer func() {
		if p := recover(); p != nil {
			w.rollback(tx)
			err = vfserrors.New(vfserrors.EIO, "/", fmt.Sprintf("handler panicked: %v", p))
		}
	}()

	value, handlerErr := fn(ctx, req)
	if handlerErr != nil {
		w.rollback(tx)
		return nil, false, handlerErr
	}

	if seq, ok := value.(Sequence); ok {
		collected, collectErr := collect(ctx, seq)
		if collectErr != nil {
			w.rollback(tx)
			return nil, false, collectErr
		}
		if err := tx.Commit(); err != nil {
			return nil, false, err
		}
		w.metrics.RecordCommit()
		return collected, true, nil
	}

	if err := tx.Commit(); err != nil {
		return nil, false, err
	}
	w.metrics.RecordCommit()
	return value, false, nil
}

func (w *Wrapper) rollback(tx Tx) {
	w.metrics.RecordRollback()
	if err := tx.Rollback(); err != nil && w.logger != nil {
		w.logger.Error("rollback failed", map[string]interface{}{"error": err.Error()})
	}
}

func collect(ctx context.Context, seq Sequence) ([]interface{}, error) {
	var out []interface{}
	for {
		item, ok, err := seq.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, item)
	}
}

// WithSudo runs fn with the request's sudo flag elevated for its
// duration (spec §4.G's "self-service sudo"), reverting on every exit
// path.
func WithSudo(sysctx *vfs.SystemContext, fn func() error) error {
	return sysctx.WithSudo(fn)
}
