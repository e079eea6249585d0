package hostrt

import "sync/atomic"

// CallRecorder receives calls from a thread-scoped hook.
//
// A recorder is stored in a goroutine's ThreadState slot and invoked by
// a hook on every frame evaluated on that goroutine. Implementations must
// return promptly and must not panic across the call.
type CallRecorder interface {
	RecordCall(f *Frame)
}

// recorderCell boxes a CallRecorder for atomic storage.
type recorderCell struct {
	r CallRecorder
}

// ThreadState is the interpreter state of a single goroutine.
//
// The frame stack and the tracing counter are touched only by the owning
// goroutine. The trace callback and recorder slot may be written by a
// coordinating goroutine (SetTraceAll, tracer teardown) and are therefore
// atomic.
//
// Layout:
//   - ID: goroutine ID (unique for the process lifetime, never reused)
//   - frame: innermost in-flight frame
//   - tracing: >0 while a trace callback runs on this goroutine
//   - trace: thread trace callback (sys.settrace analog)
//   - recorder: thread-local recorder slot for thread-scoped hooks
type ThreadState struct {
	// ID is the goroutine ID this state belongs to.
	ID int64

	seq     uint64
	interp  *Interpreter
	frame   *Frame
	depth   int
	tracing int

	trace    atomic.Pointer[traceCell]
	recorder atomic.Pointer[recorderCell]
}

// newThreadState allocates the state for goroutine gid.
//
// The new thread inherits the interpreter's all-threads trace callback,
// so goroutines spawned while call-event tracing is active are observed.
func newThreadState(in *Interpreter, gid int64) *ThreadState {
	ts := &ThreadState{ID: gid, seq: in.seq.Add(1), interp: in}
	ts.trace.Store(in.traceAll.Load())
	return ts
}

// Interpreter returns the interpreter this thread belongs to.
func (ts *ThreadState) Interpreter() *Interpreter {
	return ts.interp
}

// Frame returns the innermost in-flight frame, or nil when idle.
//
// Only meaningful on the owning goroutine.
func (ts *ThreadState) Frame() *Frame {
	return ts.frame
}

// Depth returns the number of in-flight frames on the owning goroutine.
func (ts *ThreadState) Depth() int {
	return ts.depth
}

// SetTrace installs fn as this goroutine's trace callback (nil removes it).
//
// Returns ErrUnsupported if the interpreter does not deliver trace events.
func (ts *ThreadState) SetTrace(fn TraceFunc) error {
	if !ts.interp.caps.Has(CapTraceEvents) {
		return unsupported(CapTraceEvents)
	}
	if fn == nil {
		ts.trace.Store(nil)
		return nil
	}
	ts.trace.Store(&traceCell{fn: fn})
	return nil
}

// Trace returns this goroutine's trace callback, or nil.
func (ts *ThreadState) Trace() TraceFunc {
	if c := ts.trace.Load(); c != nil {
		return c.fn
	}
	return nil
}

// SetRecorder stores r in this goroutine's thread-local slot (nil clears it).
//
// Returns ErrUnsupported if the interpreter has no thread-local storage.
func (ts *ThreadState) SetRecorder(r CallRecorder) error {
	if !ts.interp.caps.Has(CapThreadLocal) {
		return unsupported(CapThreadLocal)
	}
	if r == nil {
		ts.recorder.Store(nil)
		return nil
	}
	ts.recorder.Store(&recorderCell{r: r})
	return nil
}

// Recorder returns the recorder in this goroutine's slot, or nil.
//
// This is a single atomic load on the hot path.
//
//go:nosplit
func (ts *ThreadState) Recorder() CallRecorder {
	if c := ts.recorder.Load(); c != nil {
		return c.r
	}
	return nil
}

// push makes f the innermost frame.
func (ts *ThreadState) push(f *Frame) {
	f.Back = ts.frame
	ts.frame = f
	ts.depth++
}

// pop removes f from the frame stack. Runs on both normal and panicking
// returns so the stack never keeps a frame that has finished.
func (ts *ThreadState) pop(f *Frame) {
	ts.frame = f.Back
	ts.depth--
}
