// Package registry implements the job-callable registry: a string-keyed map
// from job identifier to the Go function that runs it, populated by the host
// at startup. How the host discovers its job functions is out of scope (the
// engine only consumes the resulting callable); this is the concrete,
// minimal shape that discovery mechanism is expected to populate — adapted
// from the teacher's workers.WorkerRegistry, generalized from a
// JobName()-implementing struct to a plain string key plus function value.
package registry

import (
	"context"
	"sync"

	"github.com/metametadata/byplay/drivers"
	"github.com/metametadata/byplay/queue"
)

// JobContext is handed to a running job. It exposes two equivalent views of
// the in-transaction connection: Raw, the backend-native handle, and
// Wrapped, the high-level connection as the rest of the host's code already
// consumes it. Raw(Wrapped) always equals Raw by construction (see
// drivers.Transaction.Raw).
type JobContext struct {
	Ctx     context.Context
	Raw     any
	Wrapped drivers.Transaction
}

// Func is a registered job callable. args is the deserialized positional
// argument list written at schedule time.
type Func func(jc JobContext, args []interface{}) error

// Registry maps job identifiers to their callables and, optionally, to the
// queue a bare Schedule call should route them to.
type Registry struct {
	mu     sync.RWMutex
	funcs  map[string]Func
	queues map[string]queue.Tag
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		funcs:  make(map[string]Func),
		queues: make(map[string]queue.Tag),
	}
}

// Register adds a job callable under jobID with no queue annotation; a bare
// Schedule call for this job falls back to queue.Default.
func (r *Registry) Register(jobID string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[jobID] = fn
}

// RegisterOn adds a job callable under jobID annotated with the queue
// Schedule should route it to.
func (r *Registry) RegisterOn(jobID string, tag queue.Tag, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[jobID] = fn
	r.queues[jobID] = tag
}

// Lookup resolves a job identifier to its callable. A false second return
// value is a precondition violation: the executor treats it as fatal,
// indicating code/data drift between schedule time and execution time.
func (r *Registry) Lookup(jobID string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[jobID]
	return fn, ok
}

// QueueFor returns the queue annotation registered for jobID via
// RegisterOn, if any.
func (r *Registry) QueueFor(jobID string) (queue.Tag, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tag, ok := r.queues[jobID]
	return tag, ok
}
