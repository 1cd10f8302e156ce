package byplay

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/metametadata/byplay/drivers"
)

// memDriver is a minimal in-memory stand-in for drivers.Driver used by this
// package's own unit tests. It understands exactly the fixed set of SQL
// statements ExecuteOnce/ScheduleTo issue (insertSQL, the reservation
// queries, the savepoint pair, markSQL) plus a toy "aux_table" a test job
// body can write to, to exercise the atomicity/rollback invariants without a
// real Postgres instance. It keeps no real row locks, so two concurrent
// transactions can reserve the same row; the multi-thread worker tests that
// use it only check end states that hold either way. The concurrency
// invariants (no double execution, no loss under contention) are exercised
// separately by the Postgres-backed integration test, gated on
// BYPLAY_TEST_DATABASE_URL.
type memDriver struct {
	mu           sync.Mutex
	rows         map[int64]*Row
	next         int64
	auxCommitted []string
}

func newMemDriver() *memDriver {
	return &memDriver{rows: make(map[int64]*Row)}
}

func (d *memDriver) seed(job, argsJSON, queueTag string) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	d.rows[d.next] = &Row{ID: d.next, Job: job, Args: argsJSON, State: StateNew, Queue: queueTag}
	return d.next
}

func (d *memDriver) row(id int64) *Row {
	d.mu.Lock()
	defer d.mu.Unlock()
	r := *d.rows[id]
	return &r
}

func (d *memDriver) countState(s State) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, r := range d.rows {
		if r.State == s {
			n++
		}
	}
	return n
}

func (d *memDriver) oldestNew(queueFilter string) *Row {
	d.mu.Lock()
	defer d.mu.Unlock()
	var candidates []*Row
	for _, r := range d.rows {
		if r.State != StateNew {
			continue
		}
		if queueFilter != "" && r.Queue != queueFilter {
			continue
		}
		candidates = append(candidates, r)
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })
	cp := *candidates[0]
	return &cp
}

func (d *memDriver) Begin(ctx context.Context) (drivers.Tx, error) {
	return &memTx{d: d, pending: make(map[int64]*Row)}, nil
}

func (d *memDriver) Exec(ctx context.Context, sqlStr string, args ...interface{}) error {
	switch {
	case strings.Contains(sqlStr, "INSERT INTO byplay"):
		d.mu.Lock()
		defer d.mu.Unlock()
		d.next++
		d.rows[d.next] = &Row{
			ID:    d.next,
			Job:   args[0].(string),
			Args:  args[1].(string),
			State: StateNew,
			Queue: args[2].(string),
		}
		return nil
	default:
		return fmt.Errorf("memDriver: unrecognized bare Exec statement: %s", sqlStr)
	}
}

func (d *memDriver) Query(ctx context.Context, sqlStr string, args ...interface{}) (drivers.Rows, error) {
	return nil, fmt.Errorf("memDriver: Query not used by this package's tests")
}

func (d *memDriver) QueryRow(ctx context.Context, sqlStr string, args ...interface{}) drivers.Row {
	return &memRow{err: fmt.Errorf("memDriver: bare QueryRow not used by this package's tests")}
}

// memTx is one transaction against a memDriver: committed byplay rows are
// read through to d, but any write is held in an overlay (pending/auxPending)
// until Commit, so Rollback (or ROLLBACK TO SAVEPOINT) can discard it
// without touching d's committed state.
type memTx struct {
	d *memDriver

	pending    map[int64]*Row
	auxPending []string

	savepointPending map[int64]*Row
	savepointAux     []string

	done bool
}

var errNoRows = fmt.Errorf("memTx: no rows: %w", sql.ErrNoRows)

func (tx *memTx) Raw() any { return tx }

func (tx *memTx) Exec(ctx context.Context, sqlStr string, args ...interface{}) error {
	switch {
	case strings.HasPrefix(sqlStr, "SAVEPOINT"):
		tx.savepointPending = cloneRows(tx.pending)
		tx.savepointAux = append([]string(nil), tx.auxPending...)
		return nil
	case strings.HasPrefix(sqlStr, "ROLLBACK TO SAVEPOINT"):
		tx.pending = cloneRows(tx.savepointPending)
		tx.auxPending = append([]string(nil), tx.savepointAux...)
		return nil
	case strings.Contains(sqlStr, "INSERT INTO aux_table"):
		tx.auxPending = append(tx.auxPending, fmt.Sprint(args...))
		return nil
	case strings.Contains(sqlStr, "INSERT INTO byplay"):
		tx.d.mu.Lock()
		tx.d.next++
		id := tx.d.next
		tx.d.mu.Unlock()
		tx.pending[id] = &Row{
			ID:    id,
			Job:   args[0].(string),
			Args:  args[1].(string),
			State: StateNew,
			Queue: args[2].(string),
		}
		return nil
	default:
		return fmt.Errorf("memTx: unrecognized Exec statement: %s", sqlStr)
	}
}

func (tx *memTx) Query(ctx context.Context, sqlStr string, args ...interface{}) (drivers.Rows, error) {
	return nil, fmt.Errorf("memTx: Query not used by this package's tests")
}

func (tx *memTx) QueryRow(ctx context.Context, sqlStr string, args ...interface{}) drivers.Row {
	switch {
	case strings.Contains(sqlStr, "FOR UPDATE SKIP LOCKED"):
		var queueFilter string
		if len(args) > 0 {
			queueFilter = args[0].(string)
		}
		row := tx.reserveFromView(queueFilter)
		if row == nil {
			return &memRow{err: errNoRows}
		}
		return &memRow{row: row, cols: []string{"id", "job", "args"}}
	case strings.HasPrefix(strings.TrimSpace(sqlStr), "UPDATE byplay"):
		id := args[0].(int64)
		state := args[1].(State)
		base := tx.viewRow(id)
		if base == nil {
			return &memRow{err: errNoRows}
		}
		updated := *base
		updated.State = state
		tx.pending[id] = &updated
		return &memRow{row: &updated, cols: []string{"id", "job", "args", "state", "queue"}}
	default:
		return &memRow{err: fmt.Errorf("memTx: unrecognized QueryRow statement: %s", sqlStr)}
	}
}

// viewRow resolves a row's current value as seen from inside this
// transaction: its own pending overlay if present, else the committed value.
func (tx *memTx) viewRow(id int64) *Row {
	if r, ok := tx.pending[id]; ok {
		cp := *r
		return &cp
	}
	tx.d.mu.Lock()
	defer tx.d.mu.Unlock()
	if r, ok := tx.d.rows[id]; ok {
		cp := *r
		return &cp
	}
	return nil
}

func (tx *memTx) reserveFromView(queueFilter string) *Row {
	tx.d.mu.Lock()
	ids := make([]int64, 0, len(tx.d.rows))
	for id := range tx.d.rows {
		ids = append(ids, id)
	}
	tx.d.mu.Unlock()

	var best *Row
	for _, id := range ids {
		r := tx.viewRow(id)
		if r == nil || r.State != StateNew {
			continue
		}
		if queueFilter != "" && r.Queue != queueFilter {
			continue
		}
		if best == nil || r.ID < best.ID {
			best = r
		}
	}
	return best
}

func (tx *memTx) Commit(ctx context.Context) error {
	if tx.done {
		return nil
	}
	tx.done = true
	tx.d.mu.Lock()
	defer tx.d.mu.Unlock()
	for id, r := range tx.pending {
		cp := *r
		tx.d.rows[id] = &cp
	}
	tx.d.auxCommitted = append(tx.d.auxCommitted, tx.auxPending...)
	return nil
}

func (tx *memTx) Rollback(ctx context.Context) error {
	tx.done = true
	return nil
}

func cloneRows(in map[int64]*Row) map[int64]*Row {
	out := make(map[int64]*Row, len(in))
	for id, r := range in {
		cp := *r
		out[id] = &cp
	}
	return out
}

type memRow struct {
	row  *Row
	cols []string
	err  error
}

func (r *memRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	for i, col := range r.cols {
		switch col {
		case "id":
			*dest[i].(*int64) = r.row.ID
		case "job":
			*dest[i].(*string) = r.row.Job
		case "args":
			*dest[i].(*string) = r.row.Args
		case "state":
			*dest[i].(*State) = r.row.State
		case "queue":
			*dest[i].(*string) = r.row.Queue
		}
	}
	return nil
}
