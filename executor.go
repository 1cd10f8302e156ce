package byplay

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/metametadata/byplay/args"
	"github.com/metametadata/byplay/drivers"
	"github.com/metametadata/byplay/queue"
	"github.com/metametadata/byplay/registry"
)

// savepointName is the identifier §4.5 names literally: rolling back to it
// undoes everything the job's own SQL did while leaving the reservation
// lock intact, so the FAILED-marking UPDATE can still run in the same
// transaction.
const savepointName = "before"

// markSQL updates a reserved row's state and returns the row as it now
// stands, used for both the DONE and FAILED transitions (§4.5 steps 6/7).
const markSQL = `
UPDATE byplay
SET state = $2
WHERE id = $1
RETURNING id, job, args, state, queue`

// ExecuteOnce performs one full execution cycle (C5): it opens a top-level
// transaction on driver, reserves a candidate row across queues (§4.4,
// empty/nil queues means "any queue"), and — if one was found — runs it
// under a savepoint, marking it DONE or FAILED before committing.
//
// driver must not already be inside a transaction; ExecuteOnce always opens
// its own top-level one. This is enforced by typing: drivers.Tx does not
// implement drivers.Driver, so passing one where the other is expected is a
// compile error.
func ExecuteOnce(ctx context.Context, driver drivers.Driver, reg *registry.Registry, queues []queue.Tag) (Ack, error) {
	tx, err := driver.Begin(ctx)
	if err != nil {
		return Ack{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	row, err := reserve(ctx, tx, queues)
	if err != nil {
		return Ack{}, err
	}
	if row == nil {
		if err := tx.Commit(ctx); err != nil {
			return Ack{}, err
		}
		committed = true
		return Ack{}, nil
	}

	if err := tx.Exec(ctx, "SAVEPOINT "+savepointName); err != nil {
		return Ack{}, err
	}

	fn, ok := reg.Lookup(row.Job)
	if !ok {
		// Precondition violation: code/data drift. Fatal to the process is
		// acceptable (§4.5 step 4) — propagate uncaught, same as a genuine
		// SQL error.
		return Ack{}, fmt.Errorf("%w: %q", ErrUnknownJob, row.Job)
	}

	argv, err := args.Deserialize(row.Args)
	if err != nil {
		return Ack{}, fmt.Errorf("byplay: deserializing args for job %d: %w", row.ID, err)
	}

	jobErr := runJob(ctx, tx, fn, argv)

	if jobErr != nil {
		if err := tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+savepointName); err != nil {
			return Ack{}, err
		}
		failedRow, err := markState(ctx, tx, row.ID, StateFailed)
		if err != nil {
			return Ack{}, err
		}
		if err := tx.Commit(ctx); err != nil {
			return Ack{}, err
		}
		committed = true
		return Ack{Failed: &FailedAck{Err: jobErr, Row: failedRow}}, nil
	}

	doneRow, err := markState(ctx, tx, row.ID, StateDone)
	if err != nil {
		return Ack{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Ack{}, err
	}
	committed = true
	return Ack{Done: doneRow}, nil
}

func markState(ctx context.Context, tx drivers.Transaction, id int64, state State) (*Row, error) {
	row := &Row{}
	err := tx.QueryRow(ctx, markSQL, id, state).Scan(&row.ID, &row.Job, &row.Args, &row.State, &row.Queue)
	if err != nil {
		return nil, err
	}
	return row, nil
}

// runJob invokes the registered callable, recovering a panic into an error
// carrying the panic value and a stack trace — grounded in
// talon-one-que-go's worker_test.go (TestWorkerWorkRescuesPanic), whose
// LastError assertions expect exactly this shape even though that repo's own
// worker.go wasn't retrieved alongside its tests.
func runJob(ctx context.Context, tx drivers.Tx, fn registry.Func, argv []interface{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v\n%s", r, debug.Stack())
		}
	}()

	jc := registry.JobContext{
		Ctx:     ctx,
		Raw:     tx.Raw(),
		Wrapped: tx,
	}
	return fn(jc, argv)
}
