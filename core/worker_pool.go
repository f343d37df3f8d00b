package core

import (
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// WorkerPool runs ExecutionHandles on a fixed set of worker goroutines.
//
// Handles are dispatched in strict FIFO order. The pool lock guards only the
// queue and the running flag and is never held while a task runs. Once shut
// down a pool never restarts; handles still queued at that moment are dropped
// and stay WAITING forever.
type WorkerPool struct {
	name    string
	workers int

	mu      sync.Mutex
	cond    *sync.Cond
	queue   handleQueue
	running bool

	wg           sync.WaitGroup
	shutdownOnce sync.Once

	active    atomic.Int32
	abandoned atomic.Int32

	logger              Logger
	panicHandler        PanicHandler
	metrics             Metrics
	rejectedTaskHandler RejectedTaskHandler

	history *executionHistory
}

var _ Enqueuer = (*WorkerPool)(nil)

// NewWorkerPool creates a pool and starts its workers immediately.
func NewWorkerPool(name string, opts PoolOptions) *WorkerPool {
	p := &WorkerPool{
		name:                name,
		workers:             opts.workerCount(),
		queue:               newHandleQueue(),
		running:             true,
		logger:              opts.Logger,
		panicHandler:        opts.PanicHandler,
		metrics:             opts.Metrics,
		rejectedTaskHandler: opts.RejectedTaskHandler,
		history:             newExecutionHistory(opts.HistoryCapacity),
	}
	p.cond = sync.NewCond(&p.mu)

	// Use defaults if not provided
	if p.logger == nil {
		p.logger = NewNoOpLogger()
	}
	if p.metrics == nil {
		p.metrics = &NilMetrics{}
	}
	if p.panicHandler == nil && opts.Debug {
		p.panicHandler = &LoggingPanicHandler{Logger: p.logger}
	}
	if p.rejectedTaskHandler == nil {
		p.rejectedTaskHandler = &LoggingRejectedTaskHandler{Logger: p.logger}
	}

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.workerLoop(i)
	}

	p.logger.Info("worker pool started", F("pool", p.name), F("workers", p.workers))
	return p
}

// Enqueue appends h to the queue and wakes one idle worker.
// Callers should go through ExecutionHandle.RequestEnqueue, which guarantees
// that only WAITING handles reach the queue, and only once.
func (p *WorkerPool) Enqueue(h *ExecutionHandle) error {
	if p == nil {
		return newError(KindInvalidArgument, "worker pool must not be nil")
	}
	if h == nil {
		return newError(KindInvalidArgument, "handle must not be nil")
	}

	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		p.rejectedTaskHandler.HandleRejectedTask(p.name, "pool stopped")
		p.metrics.RecordTaskRejected(p.name, "pool stopped")
		return newError(KindPoolStopped, "worker pool %q is stopped", p.name)
	}
	p.queue.Push(h)
	depth := p.queue.Len()
	p.cond.Signal()
	p.mu.Unlock()

	p.metrics.RecordQueueDepth(p.name, depth)
	return nil
}

// Shutdown stops accepting handles, wakes and joins every worker, then drops
// whatever is still queued. It is idempotent; concurrent callers all return
// after the workers have exited. It must not be called from a task closure.
func (p *WorkerPool) Shutdown() {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.running = false
		p.cond.Broadcast()
		p.mu.Unlock()

		p.wg.Wait()

		p.mu.Lock()
		dropped := p.queue.Drain()
		p.mu.Unlock()

		if len(dropped) > 0 {
			p.abandoned.Add(int32(len(dropped)))
			p.metrics.RecordTaskAbandoned(p.name, len(dropped))
			p.metrics.RecordQueueDepth(p.name, 0)
		}
		p.logger.Info("worker pool stopped", F("pool", p.name), F("abandoned", len(dropped)))
	})
}

// workerLoop is the main loop for each worker
func (p *WorkerPool) workerLoop(id int) {
	defer p.wg.Done()

	for {
		h, ok := p.next()
		if !ok {
			return
		}
		p.dispatch(id, h)
	}
}

// next blocks until a handle is available or the pool stops.
func (p *WorkerPool) next() (*ExecutionHandle, bool) {
	p.mu.Lock()
	for p.queue.Len() == 0 && p.running {
		p.cond.Wait()
	}
	if !p.running {
		p.mu.Unlock()
		return nil, false
	}
	h, _ := p.queue.Pop()
	depth := p.queue.Len()
	p.active.Add(1)
	p.mu.Unlock()

	p.metrics.RecordQueueDepth(p.name, depth)
	return h, true
}

// dispatch runs h and discards anything escaping it, so one failing task
// never takes its worker down. The handle is left as the closure left it.
func (p *WorkerPool) dispatch(workerID int, h *ExecutionHandle) {
	record := ExecutionRecord{
		HandleID:  h.ID(),
		PoolName:  p.name,
		WorkerID:  workerID,
		StartedAt: time.Now(),
	}

	defer func() {
		if r := recover(); r != nil {
			record.Panicked = true
			p.metrics.RecordTaskPanic(p.name, r)
			p.reportDiscarded(workerID, r, debug.Stack())
		}

		record.FinishedAt = time.Now()
		record.Duration = record.FinishedAt.Sub(record.StartedAt)
		record.FinalState = h.GetState()
		p.active.Add(-1)

		p.history.Add(record)
		p.metrics.RecordTaskDuration(p.name, record.Duration)
	}()

	if err := h.Run(); err != nil {
		record.Err = err
		p.reportDiscarded(workerID, err, nil)
	}
}

func (p *WorkerPool) reportDiscarded(workerID int, failure any, stack []byte) {
	if p.panicHandler == nil {
		return
	}
	p.panicHandler.HandlePanic(p.name, workerID, failure, stack)
}

// Name returns the name of the pool
func (p *WorkerPool) Name() string {
	return p.name
}

// WorkerCount returns the number of workers
func (p *WorkerPool) WorkerCount() int {
	return p.workers
}

// IsRunning returns whether the pool still accepts handles
func (p *WorkerPool) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *WorkerPool) QueuedTaskCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.Len()
}

func (p *WorkerPool) ActiveTaskCount() int {
	return int(p.active.Load())
}

// AbandonedTaskCount returns how many queued handles were dropped by Shutdown.
func (p *WorkerPool) AbandonedTaskCount() int {
	return int(p.abandoned.Load())
}

// Stats returns current observability data for this pool.
func (p *WorkerPool) Stats() PoolStats {
	p.mu.Lock()
	queued := p.queue.Len()
	running := p.running
	p.mu.Unlock()

	return PoolStats{
		Name:      p.name,
		Workers:   p.workers,
		Queued:    queued,
		Active:    p.ActiveTaskCount(),
		Abandoned: p.AbandonedTaskCount(),
		Running:   running,
	}
}

// RecentExecutions returns completed dispatch records in newest-first order.
func (p *WorkerPool) RecentExecutions(limit int) []ExecutionRecord {
	return p.history.Recent(limit)
}

// LastExecution returns the most recent dispatch record, if any.
func (p *WorkerPool) LastExecution() (ExecutionRecord, bool) {
	return p.history.Last()
}
