package store

import (
	"context"
	"database/sql"

	"github.com/vfsql/vfsql/pkg/vfserrors"
)

// Querier is the subset of *sql.Tx the SQL-backed RecordStore needs.
// Exported so tests can substitute a fake without a real driver.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Tx is one request's database transaction: a single connection with
// search_path already pinned to the caller's namespace. It is committed
// or rolled back exactly once, by the wrapper that opened it (spec §7:
// "BEGIN ... COMMIT on success, ROLLBACK on any error or panic").
type Tx struct {
	tx        *sql.Tx
	conn      *sql.Conn
	namespace string
	done      bool
}

// Namespace returns the namespace this transaction's search_path was set
// to.
func (t *Tx) Namespace() string { return t.namespace }

// Querier exposes the underlying *sql.Tx for SQLStore construction.
func (t *Tx) Querier() Querier { return t.tx }

// Commit commits the transaction and releases the connection. Safe to
// call at most once; a second call returns EIO.
func (t *Tx) Commit() error {
	if t.done {
		return vfserrors.New(vfserrors.EIO, "/", "transaction already closed")
	}
	t.done = true
	err := t.tx.Commit()
	closeErr := t.conn.Close()
	if err != nil {
		return vfserrors.Wrap("/", err)
	}
	if closeErr != nil {
		return vfserrors.Wrap("/", closeErr)
	}
	return nil
}

// Rollback rolls back the transaction and releases the connection. A
// second call, or a call after Commit, is a harmless no-op — this lets
// callers defer Rollback() unconditionally after a successful Commit.
func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	err := t.tx.Rollback()
	closeErr := t.conn.Close()
	if err != nil && err != sql.ErrTxDone {
		return vfserrors.Wrap("/", err)
	}
	if closeErr != nil {
		return vfserrors.Wrap("/", closeErr)
	}
	return nil
}
