// Package byplay is a durable background job queue built on a byplay table
// in PostgreSQL. Producers call ScheduleTo/Schedule to enqueue named
// function invocations into queues; a Worker runs a pool of polling threads
// that each drain those queues by reserving one row at a time with
// `SELECT ... FOR UPDATE SKIP LOCKED`, running the job inside a savepoint,
// and marking it DONE or FAILED in the same transaction that held the
// reservation lock.
//
// Adapted from github.com/glamboyosa/swig, trading its leader-elected
// LISTEN/NOTIFY dispatch for the plain polling-pool model this package's
// callers expect, and its struct-shaped worker-kind registry for a
// string-keyed job registry (see package registry).
package byplay

import "fmt"

// State is a job row's lifecycle flag. The numeric values are part of the
// on-disk contract (§6) — never renumber them.
type State int16

const (
	StateNew    State = 0
	StateDone   State = 1
	StateFailed State = 2
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int16(s))
	}
}

// Row is one byplay job row.
type Row struct {
	ID    int64
	Job   string
	Args  string
	State State
	Queue string
}

// Ack is the result of one execution cycle: absent (no candidate row was
// reserved), a completed Row (Done), or a failed Row paired with the error
// the job raised (Failed). Exactly one of Done/Failed is non-nil, or both
// are nil for the absent case — see Absent.
type Ack struct {
	Done   *Row
	Failed *FailedAck
}

// FailedAck pairs the error a job raised with the row after its state was
// set to FAILED.
type FailedAck struct {
	Err error
	Row *Row
}

// Absent reports whether this Ack represents an empty execution cycle: no
// eligible row was found to reserve.
func (a Ack) Absent() bool {
	return a.Done == nil && a.Failed == nil
}

// ErrUnknownJob is returned by ExecuteOnce when a reserved row's Job
// identifier has no matching entry in the registry. This is a precondition
// violation — code/data drift between schedule time and execution time —
// and is never recovered by the engine; see §4.5 step 4 and §7.
var ErrUnknownJob = fmt.Errorf("byplay: unknown job identifier")

