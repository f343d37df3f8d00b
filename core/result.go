package core

import "sync"

// Result is the value a task stores on its handle.
// It keeps the concrete value as-is (no copying) next to an optional release
// function. The function runs when a later SetResult replaces the result or
// when the owner calls ReleaseResult on the handle, never from the GC: values
// handed out by GetResult may outlive the handle.
type Result struct {
	value   any
	release func(any)
	once    sync.Once
}

// NewResult wraps v without any release behavior.
func NewResult(v any) *Result {
	return &Result{value: v}
}

// NewResultWithRelease wraps v and calls release(v) when the result is replaced
// or explicitly released.
// Use it for values owning resources, e.g. an open file or a pooled buffer.
func NewResultWithRelease(v any, release func(any)) *Result {
	return &Result{value: v, release: release}
}

// Value returns the stored value.
func (r *Result) Value() any {
	return r.value
}

// Release runs the release function at most once. Safe on a nil Result.
func (r *Result) Release() {
	if r == nil || r.release == nil {
		return
	}
	r.once.Do(func() {
		r.release(r.value)
	})
}
