// Package store is the database/sql-backed persistence layer DataMount
// and DescribeMount are built against. No repo in the reference corpus
// talks to a relational database; this package is grounded on the
// Dialect/validTable pattern in dbfs.go (identifier validation, driver
// registry) and on pkg/recovery/connection.go's state-tracking shape
// (simplified: one *sql.DB already pools its own physical connections,
// so Pool only needs to track reachability, not a reconnect loop).
package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vfsql/vfsql/pkg/vfserrors"
)

// validIdentifier matches the bare SQL identifiers (namespace, model,
// column names) this package ever interpolates into a query. Every
// caller must run its identifier through this before building SQL; the
// database/sql driver has no placeholder syntax for identifiers, only
// values.
var validIdentifier = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidateIdentifier returns an EINVAL error if name is not a safe bare
// SQL identifier.
func ValidateIdentifier(path, name string) error {
	if !validIdentifier.MatchString(name) {
		return vfserrors.New(vfserrors.EINVAL, path, fmt.Sprintf("invalid identifier %q", name))
	}
	return nil
}

// connState mirrors pkg/recovery/connection.go's state machine, trimmed
// to what a pooled *sql.DB needs: it already retries dial attempts
// internally, so Pool only tracks whether the last health probe
// succeeded.
type connState int32

const (
	stateUnknown connState = iota
	stateHealthy
	stateUnhealthy
)

// Pool wraps a *sql.DB with namespace-scoped transaction construction
// and a lightweight health flag refreshed by Ping.
type Pool struct {
	db    *sql.DB
	state atomic.Int32

	mu          sync.Mutex
	lastChecked time.Time
	lastErr     error
}

// NewPool wraps an already-opened *sql.DB. The caller owns dsn/driver
// selection (spec has no object-storage analog to pick a backend for;
// any database/sql driver works).
func NewPool(db *sql.DB) *Pool {
	p := &Pool{db: db}
	p.state.Store(int32(stateUnknown))
	return p
}

// Ping probes the underlying connection and records the result.
func (p *Pool) Ping(ctx context.Context) error {
	err := p.db.PingContext(ctx)

	p.mu.Lock()
	p.lastChecked = time.Now()
	p.lastErr = err
	p.mu.Unlock()

	if err != nil {
		p.state.Store(int32(stateUnhealthy))
		return vfserrors.Wrap("/", err)
	}
	p.state.Store(int32(stateHealthy))
	return nil
}

// Healthy reports the result of the most recent Ping, or true if none
// has run yet (optimistic default, matching database/sql's own lazy
// connection model).
func (p *Pool) Healthy() bool {
	return connState(p.state.Load()) != stateUnhealthy
}

// Begin opens a transaction scoped to namespace: BEGIN, then
// SET search_path TO "<namespace>", per spec §7's transaction-scoped
// request wrapper. namespace is validated first; an invalid namespace
// never reaches the database.
func (p *Pool) Begin(ctx context.Context, namespace string) (*Tx, error) {
	if err := ValidateIdentifier("/"+namespace, namespace); err != nil {
		return nil, err
	}

	conn, err := p.db.Conn(ctx)
	if err != nil {
		return nil, vfserrors.Wrap("/", err)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		_ = conn.Close()
		return nil, vfserrors.Wrap("/", err)
	}

	stmt := fmt.Sprintf(`SET search_path TO "%s"`, namespace)
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		_ = tx.Rollback()
		_ = conn.Close()
		return nil, vfserrors.Wrap("/", err)
	}

	return &Tx{tx: tx, conn: conn, namespace: namespace}, nil
}

// Close closes the underlying *sql.DB.
func (p *Pool) Close() error {
	return p.db.Close()
}
