package hostrt

import "log/slog"

// Event identifies what a TraceFunc is being notified about.
type Event int

const (
	// EventCall is delivered to the thread's trace callback when a frame
	// starts. The returned TraceFunc becomes the frame's local callback.
	EventCall Event = iota
	// EventLine is delivered to the local callback before the frame body
	// runs, if the frame still has TraceLines set.
	EventLine
	// EventReturn is delivered to the local callback when the body returns.
	EventReturn
	// EventException is delivered to the local callback when the body
	// panics. The panic keeps unwinding afterwards.
	EventException
)

// String returns the string representation of an Event.
func (e Event) String() string {
	switch e {
	case EventCall:
		return "call"
	case EventLine:
		return "line"
	case EventReturn:
		return "return"
	case EventException:
		return "exception"
	default:
		return "unknown"
	}
}

// TraceFunc is the generic call-event callback.
//
// For EventCall the return value is the local callback for the frame
// (nil disables further events for it). For the other events the return
// value replaces the frame's local callback.
type TraceFunc func(frame *Frame, event Event, arg interface{}) TraceFunc

// traceCell boxes a TraceFunc so it can live in an atomic.Pointer.
type traceCell struct {
	fn TraceFunc
}

// dispatchTrace invokes fn with reentrancy protection.
//
// While a callback runs, calls it makes on the same goroutine are not
// traced. A panicking callback is recovered: the thread's trace is
// removed and the failure logged, so the instrumented call proceeds as if
// no tracing were installed.
func (ts *ThreadState) dispatchTrace(fn TraceFunc, f *Frame, ev Event, arg interface{}) (next TraceFunc) {
	if fn == nil {
		return nil
	}

	ts.tracing++
	defer func() {
		ts.tracing--
		if r := recover(); r != nil {
			ts.trace.Store(nil)
			ts.interp.log.Warn("trace callback panicked; tracing disabled for goroutine",
				slog.Int64("goroutine", ts.ID),
				slog.String("event", ev.String()),
				slog.Any("panic", r))
			next = nil
		}
	}()

	return fn(f, ev, arg)
}

// EvalFrameDefault evaluates a frame the way the interpreter does when no
// hook is installed: deliver trace events if a callback is set, then run
// the body.
//
// Hooks installed with SetEvalHook delegate here (directly or through the
// hook they replaced) to execute the call unchanged.
func EvalFrameDefault(ts *ThreadState, f *Frame) {
	var global TraceFunc
	if ts.tracing == 0 {
		if c := ts.trace.Load(); c != nil {
			global = c.fn
		}
	}
	if global == nil {
		f.run()
		return
	}

	f.localTrace = ts.dispatchTrace(global, f, EventCall, nil)
	if f.localTrace == nil {
		f.run()
		return
	}

	if f.TraceLines {
		f.localTrace = ts.dispatchTrace(f.localTrace, f, EventLine, f.line())
	}

	completed := false
	defer func() {
		if f.localTrace == nil {
			return
		}
		if completed {
			f.localTrace = ts.dispatchTrace(f.localTrace, f, EventReturn, nil)
		} else {
			f.localTrace = ts.dispatchTrace(f.localTrace, f, EventException, nil)
		}
	}()

	f.run()
	completed = true
}
