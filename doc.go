// Package asynctask provides typed asynchronous tasks executed on a worker pool.
//
// A Task wraps a function producing a value. It can be enqueued for
// background execution, awaited from any number of goroutines and queried for
// its state. The result is cached and can be read again at any time.
//
// # Quick Start
//
//	task := asynctask.NewTask(func() int { return 6 * 7 })
//	if err := task.RunAsync(); err != nil {
//		// ErrDoubleRun or ErrPoolStopped
//	}
//	v, err := task.AwaitResult()
//
// # Key Concepts
//
// Task: a value wrapping an execution handle. Copies share the handle, so a
// task runs at most once no matter how many copies call Run or RunAsync.
//
// WorkerPool: runs handles in FIFO order on a fixed number of goroutines.
// The default pool is created on first use and sized from ASYNCTASK_* environment
// variables (see package config); NewTaskOn binds a task to any other pool.
//
// # Failure Semantics
//
// A task moves WAITING, RUNNING, FINISHED and never goes back. Enqueuing or
// running a task twice fails with ErrDoubleRun. A pool that was shut down
// refuses new tasks with ErrPoolStopped and abandons the ones still queued;
// those stay WAITING forever, so do not Await them.
//
// A panic inside a task is recovered by the worker and the task never reaches
// FINISHED. Await on such a task blocks forever.
package asynctask
