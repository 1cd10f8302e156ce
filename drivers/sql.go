package drivers

import (
	"context"
	"database/sql"
	"errors"

	// Registers the "postgres" database/sql driver; the engine never opens
	// its own LISTEN connection, so nothing beyond driver registration is
	// needed from lib/pq here.
	_ "github.com/lib/pq"
)

type SQLDriver struct {
	db *sql.DB
}

type sqlTxAdapter struct {
	tx *sql.Tx
}

type sqlRowsAdapter struct {
	rows *sql.Rows
}

func (r *sqlRowsAdapter) Next() bool {
	return r.rows.Next()
}

func (r *sqlRowsAdapter) Scan(dest ...interface{}) error {
	return r.rows.Scan(dest...)
}

func (r *sqlRowsAdapter) Close() error {
	return r.rows.Close()
}

func (tx *sqlTxAdapter) Exec(ctx context.Context, sql string, args ...interface{}) error {
	_, err := tx.tx.ExecContext(ctx, sql, args...)
	return err
}

func (tx *sqlTxAdapter) Query(ctx context.Context, sql string, args ...interface{}) (Rows, error) {
	rows, err := tx.tx.QueryContext(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return &sqlRowsAdapter{rows: rows}, nil
}

func (tx *sqlTxAdapter) QueryRow(ctx context.Context, sql string, args ...interface{}) Row {
	return tx.tx.QueryRowContext(ctx, sql, args...)
}

// Raw returns the *sql.Tx itself: database/sql exposes no handle beneath a
// transaction other than the transaction object, so the "raw" view and the
// "wrapped" view are backed by the same pointer here.
func (tx *sqlTxAdapter) Raw() any {
	return tx.tx
}

func (tx *sqlTxAdapter) Commit(ctx context.Context) error {
	return tx.tx.Commit()
}

func (tx *sqlTxAdapter) Rollback(ctx context.Context) error {
	err := tx.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// NewSQLDriver creates a new database/sql driver implementation for
// PostgreSQL, for hosts that standardize on database/sql (e.g. because they
// already depend on lib/pq elsewhere) instead of pgx's native pool.
//
// Example:
//
//	db, _ := sql.Open("postgres", "postgres://localhost:5432/myapp")
//	driver := drivers.NewSQLDriver(db)
func NewSQLDriver(db *sql.DB) *SQLDriver {
	return &SQLDriver{db: db}
}

func (d *SQLDriver) Begin(ctx context.Context) (Tx, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqlTxAdapter{tx: tx}, nil
}

func (d *SQLDriver) Exec(ctx context.Context, sql string, args ...interface{}) error {
	_, err := d.db.ExecContext(ctx, sql, args...)
	return err
}

func (d *SQLDriver) Query(ctx context.Context, sql string, args ...interface{}) (Rows, error) {
	rows, err := d.db.QueryContext(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return &sqlRowsAdapter{rows: rows}, nil
}

func (d *SQLDriver) QueryRow(ctx context.Context, sql string, args ...interface{}) Row {
	return d.db.QueryRowContext(ctx, sql, args...)
}
