package core

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// finishWith returns a closure that stores v and marks the handle finished.
func finishWith(v any) HandleFunc {
	return func(h *ExecutionHandle) {
		_ = h.SetResult(NewResult(v))
		h.SetFinished()
	}
}

// TestExecutionHandle_NewIsWaiting verifies a fresh handle has no result yet
// Given: A newly created handle
// When: State and result are inspected
// Then: State is WAITING and GetResult fails with ErrMissingResult
func TestExecutionHandle_NewIsWaiting(t *testing.T) {
	// Arrange
	h := NewExecutionHandle(finishWith(1))

	// Assert
	if got := h.GetState(); got != StateWaiting {
		t.Errorf("GetState() = %v, want %v", got, StateWaiting)
	}
	if h.IsQueued() {
		t.Error("IsQueued() = true, want false")
	}
	if _, err := h.GetResult(); !errors.Is(err, ErrMissingResult) {
		t.Errorf("GetResult() error = %v, want ErrMissingResult", err)
	}
}

// TestExecutionHandle_RunSynchronously verifies Run invokes the closure on the caller
// Given: A handle whose closure stores 42 and finishes
// When: Run is called directly
// Then: The handle is FINISHED and carries 42
func TestExecutionHandle_RunSynchronously(t *testing.T) {
	// Arrange
	h := NewExecutionHandle(finishWith(42))

	// Act
	if err := h.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Assert
	if got := h.GetState(); got != StateFinished {
		t.Errorf("GetState() = %v, want %v", got, StateFinished)
	}
	r, err := h.GetResult()
	if err != nil {
		t.Fatalf("GetResult() error = %v", err)
	}
	if r.Value() != 42 {
		t.Errorf("result = %v, want 42", r.Value())
	}
}

// TestExecutionHandle_RunTwice verifies the closure runs at most once
// Given: A handle that has already been run
// When: Run is called a second time
// Then: ErrDoubleRun is returned and the closure count stays at one
func TestExecutionHandle_RunTwice(t *testing.T) {
	// Arrange
	var calls atomic.Int32
	h := NewExecutionHandle(func(h *ExecutionHandle) {
		calls.Add(1)
		h.SetFinished()
	})
	if err := h.Run(); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	// Act
	err := h.Run()

	// Assert
	if !errors.Is(err, ErrDoubleRun) {
		t.Errorf("second Run() error = %v, want ErrDoubleRun", err)
	}
	if calls.Load() != 1 {
		t.Errorf("closure calls = %d, want 1", calls.Load())
	}
}

// TestExecutionHandle_RunWithoutFinish verifies Run never sets FINISHED itself
func TestExecutionHandle_RunWithoutFinish(t *testing.T) {
	h := NewExecutionHandle(func(h *ExecutionHandle) {})

	if err := h.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := h.GetState(); got != StateRunning {
		t.Errorf("GetState() = %v, want %v", got, StateRunning)
	}
}

// TestExecutionHandle_RunPanicPropagates verifies Run does not swallow panics
func TestExecutionHandle_RunPanicPropagates(t *testing.T) {
	h := NewExecutionHandle(func(h *ExecutionHandle) { panic("boom") })

	defer func() {
		if r := recover(); r != "boom" {
			t.Errorf("recovered %v, want boom", r)
		}
		if got := h.GetState(); got != StateRunning {
			t.Errorf("GetState() after panic = %v, want %v", got, StateRunning)
		}
	}()
	_ = h.Run()
	t.Fatal("Run() returned, want panic")
}

// TestExecutionHandle_RequestEnqueue verifies a handle is queued exactly once
// Given: A WAITING handle and a recording enqueuer
// When: RequestEnqueue is called twice
// Then: The first call succeeds, the second fails with ErrDoubleRun
func TestExecutionHandle_RequestEnqueue(t *testing.T) {
	// Arrange
	h := NewExecutionHandle(finishWith(nil))
	e := &stubEnqueuer{}

	// Act
	first := h.RequestEnqueue(e)
	second := h.RequestEnqueue(e)

	// Assert
	if first != nil {
		t.Errorf("first RequestEnqueue() error = %v, want nil", first)
	}
	if !errors.Is(second, ErrDoubleRun) {
		t.Errorf("second RequestEnqueue() error = %v, want ErrDoubleRun", second)
	}
	if e.Count() != 1 {
		t.Errorf("enqueued = %d, want 1", e.Count())
	}
	if !h.IsQueued() {
		t.Error("IsQueued() = false, want true")
	}
	if got := h.GetState(); got != StateWaiting {
		t.Errorf("GetState() = %v, want %v", got, StateWaiting)
	}
}

// TestExecutionHandle_RequestEnqueueAfterRun verifies a started handle is never queued
func TestExecutionHandle_RequestEnqueueAfterRun(t *testing.T) {
	h := NewExecutionHandle(finishWith(nil))
	e := &stubEnqueuer{}
	_ = h.Run()

	err := h.RequestEnqueue(e)

	if !errors.Is(err, ErrDoubleRun) {
		t.Errorf("RequestEnqueue() error = %v, want ErrDoubleRun", err)
	}
	if e.Count() != 0 {
		t.Errorf("enqueued = %d, want 0", e.Count())
	}
}

// TestExecutionHandle_RequestEnqueueNilTarget verifies nil targets are rejected
func TestExecutionHandle_RequestEnqueueNilTarget(t *testing.T) {
	h := NewExecutionHandle(finishWith(nil))

	if err := h.RequestEnqueue(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("RequestEnqueue(nil) error = %v, want ErrInvalidArgument", err)
	}
}

// TestExecutionHandle_RequestEnqueueRejected verifies a rejected handle can be retried
// Given: An enqueuer that refuses with ErrPoolStopped
// When: RequestEnqueue is called, then retried on a working enqueuer
// Then: The first error is propagated unchanged and the retry succeeds
func TestExecutionHandle_RequestEnqueueRejected(t *testing.T) {
	// Arrange
	h := NewExecutionHandle(finishWith(nil))
	stopped := &stubEnqueuer{err: ErrPoolStopped}
	working := &stubEnqueuer{}

	// Act
	err := h.RequestEnqueue(stopped)

	// Assert
	if !errors.Is(err, ErrPoolStopped) {
		t.Fatalf("RequestEnqueue() error = %v, want ErrPoolStopped", err)
	}
	if h.IsQueued() {
		t.Error("IsQueued() after rejection = true, want false")
	}
	if err := h.RequestEnqueue(working); err != nil {
		t.Errorf("retry RequestEnqueue() error = %v, want nil", err)
	}
}

// TestExecutionHandle_ConcurrentRequestEnqueue verifies racing callers cannot double-queue
// Given: Many handles, each raced by two goroutines calling RequestEnqueue
// When: Both goroutines finish
// Then: Exactly one call per handle succeeds
func TestExecutionHandle_ConcurrentRequestEnqueue(t *testing.T) {
	for trial := range 200 {
		// Arrange
		h := NewExecutionHandle(finishWith(nil))
		e := &stubEnqueuer{}
		start := make(chan struct{})
		var wg sync.WaitGroup
		var successes atomic.Int32

		// Act
		for range 2 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				if h.RequestEnqueue(e) == nil {
					successes.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()

		// Assert
		if successes.Load() != 1 || e.Count() != 1 {
			t.Fatalf("trial %d: successes = %d, enqueued = %d, want 1 and 1", trial, successes.Load(), e.Count())
		}
	}
}

// TestExecutionHandle_AwaitBlocksUntilFinished verifies every waiter wakes on SetFinished
// Given: Several goroutines awaiting a RUNNING handle
// When: SetFinished is called
// Then: All of them return
func TestExecutionHandle_AwaitBlocksUntilFinished(t *testing.T) {
	// Arrange
	release := make(chan struct{})
	h := NewExecutionHandle(func(h *ExecutionHandle) {
		<-release
		h.SetFinished()
	})
	go func() { _ = h.Run() }()

	var woke atomic.Int32
	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Await()
			woke.Add(1)
		}()
	}

	// Assert - nobody returns early
	time.Sleep(20 * time.Millisecond)
	if woke.Load() != 0 {
		t.Fatalf("waiters returned before finish: %d", woke.Load())
	}

	// Act
	close(release)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("waiters did not wake after SetFinished")
	}
	if woke.Load() != 5 {
		t.Errorf("woken waiters = %d, want 5", woke.Load())
	}
}

// TestExecutionHandle_SetFinishedIdempotent verifies repeated SetFinished calls are harmless
func TestExecutionHandle_SetFinishedIdempotent(t *testing.T) {
	h := NewExecutionHandle(nil)

	h.SetFinished()
	h.SetFinished()
	h.Await()

	if got := h.GetState(); got != StateFinished {
		t.Errorf("GetState() = %v, want %v", got, StateFinished)
	}
}

// TestExecutionHandle_SetResult verifies result replacement semantics
// Given: A handle holding a result with a release function
// When: A second result is stored
// Then: The first result is released exactly once and the second is visible
func TestExecutionHandle_SetResult(t *testing.T) {
	// Arrange
	h := NewExecutionHandle(nil)
	var released atomic.Int32
	first := NewResultWithRelease("first", func(any) { released.Add(1) })

	// Act
	if err := h.SetResult(first); err != nil {
		t.Fatalf("SetResult(first) error = %v", err)
	}
	if err := h.SetResult(first); err != nil {
		t.Fatalf("SetResult(first) again error = %v", err)
	}
	if released.Load() != 0 {
		t.Errorf("released after storing same result = %d, want 0", released.Load())
	}
	if err := h.SetResult(NewResult("second")); err != nil {
		t.Fatalf("SetResult(second) error = %v", err)
	}

	// Assert
	if released.Load() != 1 {
		t.Errorf("released = %d, want 1", released.Load())
	}
	r, _ := h.GetResult()
	if r.Value() != "second" {
		t.Errorf("result = %v, want second", r.Value())
	}
	if err := h.SetResult(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("SetResult(nil) error = %v, want ErrInvalidArgument", err)
	}
}

// TestCompletedHandle verifies pre-completed handles
// Given: A handle created already finished
// When: It is awaited, run or enqueued
// Then: Await returns at once and both Run and RequestEnqueue fail with ErrDoubleRun
func TestCompletedHandle(t *testing.T) {
	// Arrange
	h := NewCompletedHandle(NewResult("done"))
	e := &stubEnqueuer{}

	// Act
	h.Await()

	// Assert
	if got := h.GetState(); got != StateFinished {
		t.Errorf("GetState() = %v, want %v", got, StateFinished)
	}
	r, err := h.GetResult()
	if err != nil || r.Value() != "done" {
		t.Errorf("GetResult() = %v, %v, want done, nil", r, err)
	}
	if err := h.Run(); !errors.Is(err, ErrDoubleRun) {
		t.Errorf("Run() error = %v, want ErrDoubleRun", err)
	}
	if err := h.RequestEnqueue(e); !errors.Is(err, ErrDoubleRun) {
		t.Errorf("RequestEnqueue() error = %v, want ErrDoubleRun", err)
	}

	empty := NewCompletedHandle(nil)
	if _, err := empty.GetResult(); !errors.Is(err, ErrMissingResult) {
		t.Errorf("GetResult() on empty completed handle error = %v, want ErrMissingResult", err)
	}
}

// TestTaskState_String verifies state names
func TestTaskState_String(t *testing.T) {
	tests := map[TaskState]string{
		StateWaiting:  "WAITING",
		StateRunning:  "RUNNING",
		StateFinished: "FINISHED",
		TaskState(99): "UNKNOWN",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("TaskState(%d).String() = %q, want %q", int(state), got, want)
		}
	}
}

// TestExecutionHandle_ConcurrentRun verifies racing direct Run calls execute the closure once
// Given: Many handles, each raced by two goroutines calling Run
// When: Both goroutines finish
// Then: Exactly one call per handle succeeds, the other fails with ErrDoubleRun
func TestExecutionHandle_ConcurrentRun(t *testing.T) {
	for trial := range 200 {
		// Arrange
		var runs atomic.Int32
		h := NewExecutionHandle(func(h *ExecutionHandle) {
			runs.Add(1)
			h.SetFinished()
		})
		start := make(chan struct{})
		errs := make(chan error, 2)
		var wg sync.WaitGroup

		// Act
		for range 2 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				errs <- h.Run()
			}()
		}
		close(start)
		wg.Wait()
		close(errs)

		// Assert
		successes, doubleRuns := 0, 0
		for err := range errs {
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrDoubleRun):
				doubleRuns++
			default:
				t.Fatalf("trial %d: Run() error = %v", trial, err)
			}
		}
		if successes != 1 || doubleRuns != 1 || runs.Load() != 1 {
			t.Fatalf("trial %d: successes = %d, double runs = %d, closure runs = %d, want 1, 1, 1",
				trial, successes, doubleRuns, runs.Load())
		}
	}
}

// TestExecutionHandle_StateNeverGoesBack verifies observed states only move forward
// Given: A handle dispatched by a pool and a goroutine sampling GetState in a loop
// When: The handle goes from WAITING through RUNNING to FINISHED
// Then: Every sample is greater than or equal to the one before it
func TestExecutionHandle_StateNeverGoesBack(t *testing.T) {
	// Arrange
	p := newTestPool(t, 1, PoolOptions{})
	release := make(chan struct{})
	h := NewExecutionHandle(func(h *ExecutionHandle) {
		<-release
		_ = h.SetResult(NewResult(1))
		h.SetFinished()
	})

	samples := make(chan []TaskState, 1)
	go func() {
		var seen []TaskState
		for {
			s := h.GetState()
			// Only changes are kept; a backward step is still a change.
			if len(seen) == 0 || seen[len(seen)-1] != s {
				seen = append(seen, s)
			}
			if s == StateFinished {
				samples <- seen
				return
			}
		}
	}()

	// Act
	if err := h.RequestEnqueue(p); err != nil {
		t.Fatalf("RequestEnqueue() error = %v", err)
	}
	waitForCondition(t, time.Second, func() bool { return h.GetState() == StateRunning })
	close(release)

	// Assert
	var seen []TaskState
	select {
	case seen = <-samples:
	case <-time.After(2 * time.Second):
		t.Fatal("sampler never observed StateFinished")
	}
	for i := 1; i < len(seen); i++ {
		if seen[i] < seen[i-1] {
			t.Fatalf("sample %d = %v after %v, want non-decreasing", i, seen[i], seen[i-1])
		}
	}
	if seen[0] != StateWaiting && seen[0] != StateRunning {
		t.Errorf("first sample = %v, want WAITING or RUNNING", seen[0])
	}
}

// TestExecutionHandle_RequestEnqueueFinishedNilTarget verifies the state check comes first
func TestExecutionHandle_RequestEnqueueFinishedNilTarget(t *testing.T) {
	h := NewCompletedHandle(nil)

	if err := h.RequestEnqueue(nil); !errors.Is(err, ErrDoubleRun) {
		t.Errorf("RequestEnqueue(nil) on finished handle error = %v, want ErrDoubleRun", err)
	}
}

// TestExecutionHandle_ReleaseResult verifies explicit release runs once and drops the result
// Given: A finished handle whose result has a release function
// When: ReleaseResult is called twice
// Then: The function ran once and GetResult fails with ErrMissingResult
func TestExecutionHandle_ReleaseResult(t *testing.T) {
	// Arrange
	var calls atomic.Int32
	h := NewExecutionHandle(func(h *ExecutionHandle) {
		_ = h.SetResult(NewResultWithRelease("conn", func(any) { calls.Add(1) }))
		h.SetFinished()
	})
	_ = h.Run()

	// Act
	h.ReleaseResult()
	h.ReleaseResult()

	// Assert
	if calls.Load() != 1 {
		t.Errorf("release calls = %d, want 1", calls.Load())
	}
	if _, err := h.GetResult(); !errors.Is(err, ErrMissingResult) {
		t.Errorf("GetResult() after ReleaseResult error = %v, want ErrMissingResult", err)
	}
}
