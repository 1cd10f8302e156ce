// Package drivers abstracts the database operations the reservation engine
// needs over two backends: pgx's native pool and database/sql (via lib/pq).
package drivers

import "context"

// Driver is a connection pool capable of running statements directly and of
// opening the single top-level transaction each execution cycle runs inside.
type Driver interface {
	Begin(ctx context.Context) (Tx, error)

	Exec(ctx context.Context, sql string, args ...interface{}) error
	Query(ctx context.Context, sql string, args ...interface{}) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) Row
}

// Transaction is the capability surface available once inside a transaction:
// the same three statement shapes as Driver, plus Raw, which exposes the
// backend's native connection/transaction handle so a running job can reach
// past the abstraction when it needs to.
type Transaction interface {
	Exec(ctx context.Context, sql string, args ...interface{}) error
	Query(ctx context.Context, sql string, args ...interface{}) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) Row

	// Raw returns the backend-native handle underlying this transaction:
	// *pgx.Conn for the pgx driver, *sql.Tx for the database/sql driver.
	Raw() any
}

// Tx is a Transaction with explicit commit/rollback control. The executor
// needs this instead of a run-and-auto-commit helper because a failed job
// must still have its FAILED marker committed.
type Tx interface {
	Transaction
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Execer is the minimal capability the scheduler needs: a bare Driver (one
// autocommit statement) and a Tx (participates in the caller's transaction)
// both satisfy it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...interface{}) error
}

// Row/Rows mirror the subset of database/sql's and pgx's scanning API that
// the engine actually uses.
type Row interface {
	Scan(dest ...interface{}) error
}

type Rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Close() error
}
