package asynctask

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/Swind/go-async-task/core"
)

// Void is the result type of tasks that produce nothing.
type Void struct{}

// AsyncTask is the capability shared by every task regardless of how it was built.
type AsyncTask[T any] interface {
	Run() error
	RunAsync() error
	Await()
	GetResult() (T, error)
	AwaitResult() (T, error)
	GetState() TaskState
}

var _ AsyncTask[int] = Task[int]{}

// Task is a typed unit of deferred work. It is a small value: copies share
// the same execution handle, so running one copy runs them all.
//
// A zero Task is invalid: Run, RunAsync and the result getters return
// ErrInvalidArgument and Await returns immediately.
type Task[T any] struct {
	handle *core.ExecutionHandle
	pool   core.Enqueuer
}

// NewTask creates a task running fn on the default pool.
func NewTask[T any](fn func() T) Task[T] {
	return NewTaskOn(nil, fn)
}

// NewTaskOn creates a task running fn on pool. A nil pool selects DefaultPool
// when the task is first enqueued.
func NewTaskOn[T any](pool core.Enqueuer, fn func() T) Task[T] {
	if fn == nil {
		return Task[T]{}
	}
	return Task[T]{
		handle: core.NewExecutionHandle(func(h *core.ExecutionHandle) {
			_ = h.SetResult(core.NewResult(fn()))
			h.SetFinished()
		}),
		pool: pool,
	}
}

// NewTaskWithRelease is NewTaskOn for results that own resources. release is
// called with the result when Release is called on the task. The garbage
// collector never calls it, so a value read from the task stays usable after
// the task is dropped; a task that is never released leaks its resource.
func NewTaskWithRelease[T any](pool core.Enqueuer, fn func() T, release func(T)) Task[T] {
	if fn == nil || release == nil {
		return Task[T]{}
	}
	return Task[T]{
		handle: core.NewExecutionHandle(func(h *core.ExecutionHandle) {
			_ = h.SetResult(core.NewResultWithRelease(fn(), func(v any) {
				if typed, ok := v.(T); ok {
					release(typed)
				}
			}))
			h.SetFinished()
		}),
		pool: pool,
	}
}

// NewAction creates a result-less task on the default pool.
func NewAction(fn func()) Task[Void] {
	return NewActionOn(nil, fn)
}

// NewActionOn creates a result-less task on pool.
func NewActionOn(pool core.Enqueuer, fn func()) Task[Void] {
	if fn == nil {
		return Task[Void]{}
	}
	return NewTaskOn(pool, func() Void {
		fn()
		return Void{}
	})
}

// CompletedTask returns a task that is already finished with v.
// It never touches a pool; running it fails with ErrDoubleRun.
func CompletedTask[T any](v T) Task[T] {
	return Task[T]{handle: core.NewCompletedHandle(core.NewResult(v))}
}

// CompletedAction returns a result-less task that is already finished.
func CompletedAction() Task[Void] {
	return CompletedTask(Void{})
}

// RunAsync enqueues the task on its pool and returns immediately.
func (t Task[T]) RunAsync() error {
	if t.handle == nil {
		return errInvalidTask()
	}
	pool := t.pool
	if pool == nil {
		pool = DefaultPool()
	}
	return t.handle.RequestEnqueue(pool)
}

// Run enqueues the task and waits for it to finish.
func (t Task[T]) Run() error {
	if err := t.RunAsync(); err != nil {
		return err
	}
	t.Await()
	return nil
}

// RunSync executes the task on the calling goroutine, bypassing the pool.
func (t Task[T]) RunSync() error {
	if t.handle == nil {
		return errInvalidTask()
	}
	return t.handle.Run()
}

// Await blocks until the task is finished. A task that panicked before
// finishing never finishes.
func (t Task[T]) Await() {
	if t.handle == nil {
		return
	}
	t.handle.Await()
}

// GetResult returns the result without waiting. It fails with
// ErrMissingResult while the task has not produced one yet.
func (t Task[T]) GetResult() (T, error) {
	var zero T
	if t.handle == nil {
		return zero, errInvalidTask()
	}

	r, err := t.handle.GetResult()
	if err != nil {
		return zero, err
	}

	if r.Value() == nil {
		return zero, nil
	}
	v, ok := r.Value().(T)
	if !ok {
		return zero, &core.Error{
			Kind: core.KindInvalidArgument,
			Msg:  fmt.Sprintf("task %s holds a %T result, want %T", t.handle.ID(), r.Value(), zero),
		}
	}
	return v, nil
}

// AwaitResult waits for the task and returns its result.
func (t Task[T]) AwaitResult() (T, error) {
	t.Await()
	return t.GetResult()
}

// GetState returns the current state. A zero Task reports StateWaiting.
func (t Task[T]) GetState() TaskState {
	if t.handle == nil {
		return StateWaiting
	}
	return t.handle.GetState()
}

// ID returns the identifier shared by every copy of the task.
func (t Task[T]) ID() uuid.UUID {
	if t.handle == nil {
		return uuid.Nil
	}
	return t.handle.ID()
}

// Release runs the release function of the stored result, if any, and drops
// the result. Later GetResult calls fail with ErrMissingResult. Release is
// shared by every copy of the task and safe to call more than once.
func (t Task[T]) Release() {
	if t.handle == nil {
		return
	}
	t.handle.ReleaseResult()
}

// Handle exposes the underlying execution handle.
func (t Task[T]) Handle() *core.ExecutionHandle {
	return t.handle
}

// AwaitAll waits for every task in order and collects their results.
// It stops at the first task whose result cannot be read.
func AwaitAll[T any](tasks ...AsyncTask[T]) ([]T, error) {
	results := make([]T, 0, len(tasks))
	for i, task := range tasks {
		v, err := task.AwaitResult()
		if err != nil {
			return results, fmt.Errorf("task %d: %w", i, err)
		}
		results = append(results, v)
	}
	return results, nil
}

func errInvalidTask() error {
	return &core.Error{Kind: core.KindInvalidArgument, Msg: "task has no execution handle"}
}
