package byplay

import (
	"context"

	"github.com/metametadata/byplay/args"
	"github.com/metametadata/byplay/drivers"
	"github.com/metametadata/byplay/queue"
	"github.com/metametadata/byplay/registry"
)

// insertSQL is the single INSERT the scheduler runs — no transaction of its
// own is opened, so it participates in whatever transaction conn belongs to
// (§4.3).
const insertSQL = `
INSERT INTO byplay (job, args, state, queue)
VALUES ($1, $2, 0, $3)`

// ScheduleTo inserts one NEW job row for job with the given args, on the
// queue tag points to (queue.Default if tag is nil or empty). It executes a single
// SQL statement on conn and opens no transaction of its own: if conn is a
// caller-supplied transaction, the insert is rolled back along with it —
// the documented mechanism for coupling job scheduling to the commit of
// related business data (§4.3).
func ScheduleTo(ctx context.Context, conn drivers.Execer, tag *queue.Tag, job string, values ...interface{}) error {
	q := queue.Default
	if tag != nil && *tag != "" {
		q = *tag
	}
	encodedQueue, err := queue.Encode(q)
	if err != nil {
		return err
	}

	encodedArgs, err := args.Serialize(values...)
	if err != nil {
		return err
	}

	return conn.Exec(ctx, insertSQL, job, encodedArgs, encodedQueue)
}

// Schedule is ScheduleTo convenience form that reads the queue annotation
// registered for job via reg.RegisterOn, falling back to queue.Default when
// job has no such annotation.
func Schedule(ctx context.Context, conn drivers.Execer, reg *registry.Registry, job string, values ...interface{}) error {
	var tagPtr *queue.Tag
	if tag, ok := reg.QueueFor(job); ok {
		tagPtr = &tag
	}
	return ScheduleTo(ctx, conn, tagPtr, job, values...)
}
