package tracer

import "errors"

var (
	// ErrUnsupportedRuntime is returned by New when the interpreter lacks
	// the primitives of the requested strategy, or its frame metadata
	// fails the startup check. It is not retried.
	ErrUnsupportedRuntime = errors.New("tracer: unsupported runtime")

	// ErrAlreadyTracing is returned by Start while tracing is active.
	// The saved evaluator is left untouched.
	ErrAlreadyTracing = errors.New("tracer: already tracing")

	// ErrNotTracing is returned by Stop while idle.
	ErrNotTracing = errors.New("tracer: not tracing")

	// errNoCode is counted when a frame reaches the hook with neither unit
	// metadata nor a PC to symbolize.
	errNoCode = errors.New("frame has no code metadata")
)
