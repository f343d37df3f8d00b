package core

// TaskState is the forward-only lifecycle of one execution handle.
type TaskState int

const (
	// StateWaiting: created, not yet picked up by a worker or a direct Run.
	StateWaiting TaskState = iota

	// StateRunning: the closure has been invoked.
	StateRunning

	// StateFinished: the closure called SetFinished, or the handle was created completed.
	StateFinished
)

func (s TaskState) String() string {
	switch s {
	case StateWaiting:
		return "WAITING"
	case StateRunning:
		return "RUNNING"
	case StateFinished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}
