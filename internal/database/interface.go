// Package database owns everything that touches database/sql: driver
// selection, connection establishment with bounded retry, and the
// session wrapper that tracks transaction state for the executor.
package database

import "context"

// Session is a live database handle exclusively owned by the active
// workflow. At most one transaction is open on a session at a time.
type Session interface {
	// Ping reports whether the underlying connection is still usable.
	Ping(ctx context.Context) error
	// Begin opens a transaction; it is an error if one is already open.
	Begin(ctx context.Context) error
	// Exec runs a statement batch inside the open transaction.
	Exec(ctx context.Context, query string) error
	// Commit commits the open transaction. The transaction is finished
	// afterwards whether or not the commit succeeded.
	Commit() error
	// Rollback aborts the open transaction.
	Rollback() error
	// InTx reports whether a transaction is currently open.
	InTx() bool
	Close() error
}

// Connector establishes sessions. Implementations decide retry policy.
type Connector interface {
	Connect(ctx context.Context) (Session, error)
}
