package core

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionRecord captures one dispatch of a handle by a pool worker.
type ExecutionRecord struct {
	HandleID   uuid.UUID
	PoolName   string
	WorkerID   int
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
	Panicked   bool
	// FinalState is the handle state observed right after the closure returned.
	// Anything other than StateFinished means the closure never called SetFinished.
	FinalState TaskState
	// Err is set when Run refused the handle (e.g. it was already run directly).
	Err error
}

// PoolStats represents runtime observability state for a worker pool.
type PoolStats struct {
	Name      string
	Workers   int
	Queued    int
	Active    int
	Abandoned int
	Running   bool
}
