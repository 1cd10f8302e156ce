package byplay

import (
	"context"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/metametadata/byplay/drivers"
	"github.com/metametadata/byplay/pkg"
	"github.com/metametadata/byplay/queue"
	"github.com/metametadata/byplay/registry"
)

// WorkerState is a Worker's lifecycle state (§3): New after construction,
// Running after Start, Terminated once every polling thread has joined.
// Restarting past Terminated is not supported.
type WorkerState int32

const (
	WorkerNew WorkerState = iota
	WorkerRunning
	WorkerTerminated
)

func (s WorkerState) String() string {
	switch s {
	case WorkerNew:
		return "NEW"
	case WorkerRunning:
		return "RUNNING"
	case WorkerTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

const defaultPollingInterval = 5 * time.Second

// OnFail is invoked once per failed job, before OnAck, with the error the
// job raised and the row after its state was set to FAILED.
type OnFail func(w *Worker, err error, row *Row)

// OnAck is invoked after every execution cycle, including empty ones. A
// callback wanting to stop polling in just this thread — useful in tests
// that want to drain the queue once and exit — calls stopThisThread; doing
// so never affects the other polling threads in the same Worker.
type OnAck func(w *Worker, ack Ack, stopThisThread func())

// Config configures a Worker.
type Config struct {
	// Queues is the ordered list of queue tags to poll, in priority order.
	// Nil/empty means "any queue", ordered globally by id.
	Queues []queue.Tag

	// ThreadsNum is the number of parallel polling threads. Defaults to 1.
	ThreadsNum int

	// PollingInterval is the interruptible sleep between cycles within one
	// thread. Defaults to 5 seconds.
	PollingInterval time.Duration

	// OnFail defaults to a handler that writes one line to stderr.
	OnFail OnFail

	// OnAck defaults to a no-op.
	OnAck OnAck
}

var failLogger = log.New(os.Stderr, "", 0)

// defaultOnFail is the default failure callback (C8): it writes one atomic
// line to standard error. log.Logger.Output already serializes concurrent
// callers under its own mutex and performs one Write per call, giving us the
// "one system call, never interleaved" property for free — the same thing
// the teacher relies on on every log.Printf call in swig.go.
func defaultOnFail(w *Worker, err error, row *Row) {
	failLogger.Printf("Job failed: %+v\nException: %v\n", row, err)
}

func defaultOnAck(*Worker, Ack, func()) {}

// Worker owns a pool of polling threads (C6) and their lifecycle. Construct
// with New, then Start; Interrupt requests graceful shutdown, and Join
// blocks until every thread has exited and the master thread has reached
// Terminated.
type Worker struct {
	driver   drivers.Driver
	registry *registry.Registry
	cfg      Config

	// id is a diagnostic-only identifier. Unlike the teacher's
	// instance_id/worker_id columns, byplay's row schema is bit-exact and
	// has no column to persist it in; it is held on the Worker only and is
	// not written to the default failure line.
	id string

	state     atomic.Int32
	cancel    context.CancelFunc
	done      chan struct{}
	startOnce sync.Once
}

// New constructs a Worker in state New. It does not start polling until
// Start is called.
func New(driver drivers.Driver, reg *registry.Registry, cfg Config) *Worker {
	if cfg.ThreadsNum < 1 {
		cfg.ThreadsNum = 1
	}
	if cfg.PollingInterval <= 0 {
		cfg.PollingInterval = defaultPollingInterval
	}
	if cfg.OnFail == nil {
		cfg.OnFail = defaultOnFail
	}
	if cfg.OnAck == nil {
		cfg.OnAck = defaultOnAck
	}

	return &Worker{
		driver:   driver,
		registry: reg,
		cfg:      cfg,
		id:       pkg.GenerateWorkerID(),
		done:     make(chan struct{}),
	}
}

// Start spawns ThreadsNum polling threads and returns immediately. Calling
// Start more than once has no additional effect — the first call wins.
func (w *Worker) Start() {
	w.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		w.cancel = cancel
		w.state.Store(int32(WorkerRunning))

		var wg sync.WaitGroup
		for i := 0; i < w.cfg.ThreadsNum; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				w.pollLoop(ctx)
			}()
		}

		go func() {
			wg.Wait()
			w.state.Store(int32(WorkerTerminated))
			close(w.done)
		}()
	})
}

// Interrupt requests graceful shutdown: no new jobs are reserved by any
// thread after its current cycle, and each thread exits at its next safe
// point. A job already running when Interrupt is called is never forcibly
// aborted — its transaction is always allowed to finish.
func (w *Worker) Interrupt() {
	if w.cancel != nil {
		w.cancel()
	}
}

// Join blocks until the worker reaches WorkerTerminated.
func (w *Worker) Join() {
	<-w.done
}

// State reports the worker's current lifecycle state.
func (w *Worker) State() WorkerState {
	return WorkerState(w.state.Load())
}

// pollLoop is one polling thread (C7): acquire one execution cycle, dispatch
// callbacks, sleep, repeat — until ctx is cancelled or the cycle's own ack
// dispatch asks this thread to stop.
func (w *Worker) pollLoop(ctx context.Context) {
	stop := false
	stopThisThread := func() { stop = true }

	for ctx.Err() == nil {
		ack, err := ExecuteOnce(context.Background(), w.driver, w.registry, w.cfg.Queues)
		if err != nil {
			// SQL/precondition errors propagate to the polling thread and
			// are not caught by the engine (§7): this thread simply ends,
			// without calling OnFail or OnAck for the error.
			return
		}

		if ack.Failed != nil {
			w.cfg.OnFail(w, ack.Failed.Err, ack.Failed.Row)
		}
		w.cfg.OnAck(w, ack, stopThisThread)
		if stop {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.cfg.PollingInterval):
		}
	}
}
