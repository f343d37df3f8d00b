package core

import (
	"sync"

	"github.com/google/uuid"
)

// HandleFunc is the closure stored on an ExecutionHandle. It receives the
// handle so it can store its result and must call SetFinished itself.
type HandleFunc func(h *ExecutionHandle)

// Enqueuer accepts handles for background execution. *WorkerPool implements it.
type Enqueuer interface {
	Enqueue(h *ExecutionHandle) error
}

// ExecutionHandle is the execution record of one task: its closure, state and
// result, guarded by a lock that belongs to this handle only.
//
// Lock order: a handle lock may be held while taking a pool lock
// (RequestEnqueue), never the other way round.
type ExecutionHandle struct {
	id uuid.UUID
	fn HandleFunc

	mu     sync.Mutex
	cond   *sync.Cond
	state  TaskState
	queued bool
	result *Result
}

// NewExecutionHandle creates a WAITING handle bound to fn.
func NewExecutionHandle(fn HandleFunc) *ExecutionHandle {
	return newHandle(fn, StateWaiting, nil)
}

// NewCompletedHandle creates a handle that is already FINISHED and carries r.
// r may be nil for tasks without a result. The handle never enters a pool.
func NewCompletedHandle(r *Result) *ExecutionHandle {
	return newHandle(nil, StateFinished, r)
}

func newHandle(fn HandleFunc, state TaskState, r *Result) *ExecutionHandle {
	h := &ExecutionHandle{
		id:     uuid.New(),
		fn:     fn,
		state:  state,
		result: r,
	}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// ID returns the handle's identifier, used in execution records and logs.
func (h *ExecutionHandle) ID() uuid.UUID {
	return h.id
}

// RequestEnqueue hands the handle to e for background execution.
// It fails with ErrDoubleRun if the handle already left WAITING or is already
// queued, and with ErrInvalidArgument for a nil e. e.Enqueue is called with
// the handle lock held.
func (h *ExecutionHandle) RequestEnqueue(e Enqueuer) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != StateWaiting || h.queued {
		return newError(KindDoubleRun, "attempted to enqueue task %s already run before", h.id)
	}
	if e == nil {
		return newError(KindInvalidArgument, "enqueue target must not be nil")
	}

	if err := e.Enqueue(h); err != nil {
		return err
	}
	h.queued = true
	return nil
}

// Run moves the handle to RUNNING and invokes its closure on the calling
// goroutine. It does not recover panics and does not set FINISHED; the
// closure is responsible for both its result and SetFinished.
func (h *ExecutionHandle) Run() error {
	h.mu.Lock()
	if h.state != StateWaiting {
		h.mu.Unlock()
		return newError(KindDoubleRun, "attempted to run task %s already run before", h.id)
	}
	h.state = StateRunning
	fn := h.fn
	h.mu.Unlock()

	if fn != nil {
		fn(h)
	}
	return nil
}

// SetFinished marks the handle FINISHED and wakes every waiter. Repeated calls are no-ops.
func (h *ExecutionHandle) SetFinished() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != StateFinished {
		h.state = StateFinished
		h.cond.Broadcast()
	}
}

// Await blocks until the handle is FINISHED. It returns immediately for finished handles.
func (h *ExecutionHandle) Await() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for h.state != StateFinished {
		h.cond.Wait()
	}
}

// SetResult stores r, replacing and releasing any earlier result.
func (h *ExecutionHandle) SetResult(r *Result) error {
	if r == nil {
		return newError(KindInvalidArgument, "result must not be nil")
	}

	h.mu.Lock()
	prev := h.result
	h.result = r
	h.mu.Unlock()

	if prev != nil && prev != r {
		prev.Release()
	}
	return nil
}

// GetResult returns the stored result without waiting for completion.
func (h *ExecutionHandle) GetResult() (*Result, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.result == nil {
		return nil, newError(KindMissingResult, "no result available for task %s", h.id)
	}
	return h.result, nil
}

// ReleaseResult drops the stored result and runs its release function.
// Afterwards GetResult fails with ErrMissingResult. No-op without a result.
func (h *ExecutionHandle) ReleaseResult() {
	h.mu.Lock()
	r := h.result
	h.result = nil
	h.mu.Unlock()

	r.Release()
}

// GetState returns a snapshot of the current state.
func (h *ExecutionHandle) GetState() TaskState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// IsQueued reports whether the handle was accepted by a pool and has not run yet.
func (h *ExecutionHandle) IsQueued() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.queued && h.state == StateWaiting
}
