package core

const (
	defaultQueueCap = 16
	compactMinHead  = 64 // Don't compact until this many slots were consumed
)

// handleQueue is the FIFO of pending handles owned by a WorkerPool.
// It has no lock of its own: every method must be called with the pool lock held.
type handleQueue struct {
	items []*ExecutionHandle
	head  int
}

func newHandleQueue() handleQueue {
	return handleQueue{items: make([]*ExecutionHandle, 0, defaultQueueCap)}
}

func (q *handleQueue) Push(h *ExecutionHandle) {
	q.items = append(q.items, h)
}

func (q *handleQueue) Pop() (*ExecutionHandle, bool) {
	if q.head == len(q.items) {
		return nil, false
	}

	h := q.items[q.head]
	// Zero out the slot so the backing array does not keep the handle alive
	q.items[q.head] = nil
	q.head++
	q.maybeCompact()

	return h, true
}

func (q *handleQueue) Len() int {
	return len(q.items) - q.head
}

// Drain removes and returns every pending handle.
func (q *handleQueue) Drain() []*ExecutionHandle {
	drained := q.items[q.head:]
	q.items = make([]*ExecutionHandle, 0, defaultQueueCap)
	q.head = 0
	return drained
}

// maybeCompact reclaims consumed slots once they make up half of the array.
func (q *handleQueue) maybeCompact() {
	n := q.Len()
	if n == 0 {
		if cap(q.items) > defaultQueueCap*4 {
			q.items = make([]*ExecutionHandle, 0, defaultQueueCap)
		} else {
			q.items = q.items[:0]
		}
		q.head = 0
		return
	}
	if q.head < compactMinHead || q.head*2 < len(q.items) {
		return
	}

	compacted := make([]*ExecutionHandle, n, max(n*2, defaultQueueCap))
	copy(compacted, q.items[q.head:])
	q.items = compacted
	q.head = 0
}
