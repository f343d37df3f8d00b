package core

import (
	"runtime"
	"time"
)

// =============================================================================
// PanicHandler: Interface for surfacing discarded task failures
// =============================================================================

// PanicHandler is called when a worker discards a failure escaping a handle:
// either a panic from the task closure or an error returned by Run.
// The handle is not repaired; this is a diagnostic channel only.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called after the worker recovered.
	//
	// Parameters:
	// - poolName: The name of the pool whose worker recovered
	// - workerID: The ID of the worker goroutine
	// - panicInfo: The recovered value (or the error returned by Run)
	// - stackTrace: The stack trace at the time of the panic, nil for returned errors
	HandlePanic(poolName string, workerID int, panicInfo any, stackTrace []byte)
}

// LoggingPanicHandler reports discarded failures through a Logger.
type LoggingPanicHandler struct {
	Logger Logger
}

// HandlePanic logs the failure at error level.
func (h *LoggingPanicHandler) HandlePanic(poolName string, workerID int, panicInfo any, stackTrace []byte) {
	h.Logger.Error("task failure discarded by worker",
		F("pool", poolName),
		F("worker", workerID),
		F("panic", panicInfo),
		F("stack", string(stackTrace)))
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting pool metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods should be non-blocking and fast to avoid impacting task execution performance.
type Metrics interface {
	// RecordTaskDuration records how long a dispatched handle ran on a worker.
	RecordTaskDuration(poolName string, duration time.Duration)

	// RecordTaskPanic records that a task closure panicked on a worker.
	RecordTaskPanic(poolName string, panicInfo any)

	// RecordQueueDepth records the queue depth after an enqueue or dequeue.
	RecordQueueDepth(poolName string, depth int)

	// RecordTaskRejected records that Enqueue refused a handle.
	RecordTaskRejected(poolName string, reason string)

	// RecordTaskAbandoned records handles dropped from the queue at shutdown.
	RecordTaskAbandoned(poolName string, count int)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

func (m *NilMetrics) RecordTaskDuration(poolName string, duration time.Duration) {}
func (m *NilMetrics) RecordTaskPanic(poolName string, panicInfo any)             {}
func (m *NilMetrics) RecordQueueDepth(poolName string, depth int)                {}
func (m *NilMetrics) RecordTaskRejected(poolName string, reason string)          {}
func (m *NilMetrics) RecordTaskAbandoned(poolName string, count int)             {}

// =============================================================================
// RejectedTaskHandler: Interface for handling rejected enqueues
// =============================================================================

// RejectedTaskHandler is notified when Enqueue refuses a handle, in addition
// to the error returned to the caller.
type RejectedTaskHandler interface {
	HandleRejectedTask(poolName string, reason string)
}

// LoggingRejectedTaskHandler logs rejected enqueues at warn level.
type LoggingRejectedTaskHandler struct {
	Logger Logger
}

func (h *LoggingRejectedTaskHandler) HandleRejectedTask(poolName string, reason string) {
	h.Logger.Warn("task rejected", F("pool", poolName), F("reason", reason))
}

// =============================================================================
// PoolOptions: Configuration for WorkerPool
// =============================================================================

// PoolOptions holds configuration for a WorkerPool.
// All hooks are optional; nil hooks fall back to no-op implementations.
type PoolOptions struct {
	// Workers is the number of worker goroutines. <= 0 selects DefaultWorkerCount().
	Workers int

	// ForcedWorkers overrides Workers when > 0.
	ForcedWorkers int

	// Debug surfaces discarded task failures through the logger when no
	// PanicHandler is set. Without Debug and without a PanicHandler they are
	// dropped silently (metrics still count panics).
	Debug bool

	// HistoryCapacity bounds the execution history. <= 0 selects the default.
	HistoryCapacity int

	Logger              Logger
	PanicHandler        PanicHandler
	Metrics             Metrics
	RejectedTaskHandler RejectedTaskHandler
}

// DefaultPoolOptions returns options with a hardware-derived worker count and no-op hooks.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{
		Workers:         DefaultWorkerCount(),
		HistoryCapacity: defaultHistoryCapacity,
		Logger:          NewNoOpLogger(),
		Metrics:         &NilMetrics{},
	}
}

// DefaultWorkerCount keeps one CPU free for the submitting goroutines and
// never returns less than one.
func DefaultWorkerCount() int {
	return max(runtime.NumCPU()-1, 1)
}

// workerCount resolves the effective worker count.
func (o PoolOptions) workerCount() int {
	if o.ForcedWorkers > 0 {
		return o.ForcedWorkers
	}
	if o.Workers > 0 {
		return o.Workers
	}
	return DefaultWorkerCount()
}
