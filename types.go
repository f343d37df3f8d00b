package asynctask

import "github.com/Swind/go-async-task/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the asynctask package for most use cases.

// TaskState is the lifecycle state of a task
type TaskState = core.TaskState

// State constants
const (
	StateWaiting  = core.StateWaiting
	StateRunning  = core.StateRunning
	StateFinished = core.StateFinished
)

// WorkerPool runs tasks on a fixed set of goroutines
type WorkerPool = core.WorkerPool

// PoolOptions configures a WorkerPool
type PoolOptions = core.PoolOptions

// Error is the error type returned by tasks and pools
type Error = core.Error

// Errors returned by tasks and pools; match them with errors.Is.
var (
	ErrDoubleRun       = core.ErrDoubleRun
	ErrPoolStopped     = core.ErrPoolStopped
	ErrInvalidArgument = core.ErrInvalidArgument
	ErrMissingResult   = core.ErrMissingResult
)

// NewWorkerPool creates and starts a pool.
// This is re-exported for users who want isolated pools next to the default one.
func NewWorkerPool(name string, opts PoolOptions) *WorkerPool {
	return core.NewWorkerPool(name, opts)
}

var DefaultPoolOptions = core.DefaultPoolOptions
