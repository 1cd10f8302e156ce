package byplay

import (
	"context"

	"github.com/metametadata/byplay/drivers"
	"github.com/metametadata/byplay/queue"
)

// reserveAnySQL is the any-queue reservation form (§4.4): no queue
// predicate, so it orders globally by id across every queue.
const reserveAnySQL = `
SELECT id, job, args
FROM byplay
WHERE state = 0
ORDER BY id
FOR UPDATE SKIP LOCKED
LIMIT 1`

// reserveQueueSQL is the single-queue reservation form (§4.4).
const reserveQueueSQL = `
SELECT id, job, args
FROM byplay
WHERE state = 0 AND queue = $1
ORDER BY id
FOR UPDATE SKIP LOCKED
LIMIT 1`

// reserve implements the multi-queue reservation protocol: try each tag in
// queues in order, returning the first row locked; an empty queues list
// reserves across all queues in global id order. The row is locked only —
// its state is not yet changed — and the lock is held until the enclosing
// transaction ends.
func reserve(ctx context.Context, tx drivers.Transaction, queues []queue.Tag) (*Row, error) {
	if len(queues) == 0 {
		return reserveOne(ctx, tx, "")
	}
	for _, tag := range queues {
		encoded, err := queue.Encode(tag)
		if err != nil {
			return nil, err
		}
		row, err := reserveOne(ctx, tx, encoded)
		if err != nil {
			return nil, err
		}
		if row != nil {
			return row, nil
		}
	}
	return nil, nil
}

// reserveOne runs one single-queue (or, for queueFilter == "", any-queue)
// reservation query.
func reserveOne(ctx context.Context, tx drivers.Transaction, queueFilter string) (*Row, error) {
	var (
		stmt string
		args []interface{}
	)
	if queueFilter == "" {
		stmt = reserveAnySQL
	} else {
		stmt = reserveQueueSQL
		args = []interface{}{queueFilter}
	}

	row := &Row{}
	err := tx.QueryRow(ctx, stmt, args...).Scan(&row.ID, &row.Job, &row.Args)
	if err != nil {
		if drivers.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return row, nil
}
