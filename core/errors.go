package core

import "fmt"

// ErrorKind classifies the failures a handle or pool reports to its caller.
type ErrorKind int

const (
	KindDoubleRun ErrorKind = iota + 1
	KindPoolStopped
	KindInvalidArgument
	KindMissingResult
)

func (k ErrorKind) String() string {
	switch k {
	case KindDoubleRun:
		return "double run"
	case KindPoolStopped:
		return "pool stopped"
	case KindInvalidArgument:
		return "invalid argument"
	case KindMissingResult:
		return "missing result"
	default:
		return "unknown"
	}
}

// Error carries a human-readable message together with its kind.
// errors.Is matches any two Errors of the same kind, so call sites can
// return specific messages and callers can still test against the sentinels.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return e.Msg
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

var (
	// ErrDoubleRun is returned when a handle that already left WAITING is run or enqueued.
	ErrDoubleRun = &Error{Kind: KindDoubleRun, Msg: "task already run"}

	// ErrPoolStopped is returned by Enqueue once the pool has been shut down.
	ErrPoolStopped = &Error{Kind: KindPoolStopped, Msg: "worker pool is stopped"}

	// ErrInvalidArgument is returned for nil handles, nil results and similar misuse.
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument, Msg: "invalid argument"}

	// ErrMissingResult is returned by GetResult when no result was ever stored.
	ErrMissingResult = &Error{Kind: KindMissingResult, Msg: "no result available"}
)
