package hostrt

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
)

var (
	// ErrUnsupported is returned when an interpreter lacks a hook primitive.
	ErrUnsupported = errors.New("hostrt: primitive not supported by interpreter")

	// ErrClaimed is returned by Claim while another owner holds the interpreter.
	ErrClaimed = errors.New("hostrt: interpreter hooks claimed by another owner")
)

func unsupported(c Capabilities) error {
	return fmt.Errorf("%w: %s", ErrUnsupported, c)
}

// Capabilities is the set of hook primitives an interpreter exposes.
type Capabilities uint8

const (
	// CapEvalFrame allows substituting the interpreter-wide frame evaluator.
	CapEvalFrame Capabilities = 1 << iota
	// CapThreadLocal provides a per-goroutine recorder slot.
	CapThreadLocal
	// CapTraceEvents delivers call/line/return/exception events to trace callbacks.
	CapTraceEvents

	// CapAll is every primitive; the default for New.
	CapAll = CapEvalFrame | CapThreadLocal | CapTraceEvents
)

// Has reports whether all primitives in x are present in c.
func (c Capabilities) Has(x Capabilities) bool {
	return c&x == x
}

// String returns a "|"-joined list of primitive names.
func (c Capabilities) String() string {
	if c == 0 {
		return "none"
	}
	var names []string
	if c.Has(CapEvalFrame) {
		names = append(names, "eval-frame")
	}
	if c.Has(CapThreadLocal) {
		names = append(names, "thread-local")
	}
	if c.Has(CapTraceEvents) {
		names = append(names, "trace-events")
	}
	return strings.Join(names, "|")
}

// EvalFrameFunc evaluates one frame on the given thread.
//
// A substitute evaluator must eventually call the evaluator it replaced
// (or EvalFrameDefault) exactly once, or the call body never runs.
type EvalFrameFunc func(ts *ThreadState, f *Frame)

// EvalHook is an opaque, comparable handle to an installed evaluator.
//
// Handles are compared by pointer: restoring a saved handle restores that
// exact evaluator, never a re-wrapped copy of it.
type EvalHook struct {
	name string
	fn   EvalFrameFunc
}

// NewEvalHook wraps fn in a handle. name is used in logs only.
func NewEvalHook(name string, fn EvalFrameFunc) *EvalHook {
	return &EvalHook{name: name, fn: fn}
}

// Name returns the hook's diagnostic name.
func (h *EvalHook) Name() string {
	return h.name
}

// Eval evaluates f through this hook.
func (h *EvalHook) Eval(ts *ThreadState, f *Frame) {
	h.fn(ts, f)
}

// DefaultEvalHook is the evaluator every interpreter starts with.
var DefaultEvalHook = NewEvalHook("default", EvalFrameDefault)

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithPaths sets the installation configuration.
func WithPaths(p Paths) Option {
	return func(in *Interpreter) {
		in.paths = p
		in.pathsSet = true
	}
}

// WithCapabilities restricts the hook primitives the interpreter exposes.
func WithCapabilities(c Capabilities) Option {
	return func(in *Interpreter) { in.caps = c }
}

// WithLogger sets the logger used for runtime diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(in *Interpreter) { in.log = l }
}

// reapInterval is the number of thread allocations between dead-goroutine scans.
const reapInterval = 1000

// Interpreter is the process-level call dispatcher.
//
// Every instrumented call enters through Call (or Enter), which pushes a
// frame on the calling goroutine's ThreadState and evaluates it with the
// currently installed EvalHook.
//
// Thread Safety: all methods are safe for concurrent use. Installing a
// hook is a single atomic swap; calls already in flight keep the hook
// they loaded, so there is a brief window where old and new evaluators
// run side by side.
type Interpreter struct {
	eval     atomic.Pointer[EvalHook]
	traceAll atomic.Pointer[traceCell]

	// threads maps goroutine IDs to their ThreadState.
	// Key: int64 (goroutine ID)
	// Value: *ThreadState.
	threads sync.Map

	// seq numbers thread-state allocations.
	seq atomic.Uint64

	// owner is the tracer whose hook chain is installed, if any.
	ownerMu sync.Mutex
	owner   interface{}

	paths    Paths
	pathsSet bool
	caps     Capabilities
	log      *slog.Logger
}

// New creates an interpreter with DefaultEvalHook installed.
//
// Without WithPaths, the installation configuration is taken from the
// running Go toolchain (DefaultPaths).
func New(opts ...Option) *Interpreter {
	in := &Interpreter{caps: CapAll}
	for _, opt := range opts {
		opt(in)
	}
	if !in.pathsSet {
		in.paths = DefaultPaths()
	}
	if in.log == nil {
		in.log = slog.Default()
	}
	in.eval.Store(DefaultEvalHook)
	return in
}

var (
	defaultOnce   sync.Once
	defaultInterp *Interpreter
)

// Default returns the process-wide interpreter, creating it on first use.
//
// Instrumented code dispatches through this interpreter.
func Default() *Interpreter {
	defaultOnce.Do(func() {
		defaultInterp = New()
	})
	return defaultInterp
}

// Capabilities returns the hook primitives this interpreter exposes.
func (in *Interpreter) Capabilities() Capabilities {
	return in.caps
}

// Paths returns the installation configuration.
func (in *Interpreter) Paths() Paths {
	return in.paths
}

// Logger returns the interpreter's logger.
func (in *Interpreter) Logger() *slog.Logger {
	return in.log
}

// Claim records owner as the single active hook chain of the interpreter.
// Claiming again with the same owner is a no-op; any other owner gets
// ErrClaimed until Release.
func (in *Interpreter) Claim(owner interface{}) error {
	in.ownerMu.Lock()
	defer in.ownerMu.Unlock()
	if in.owner != nil && in.owner != owner {
		return ErrClaimed
	}
	in.owner = owner
	return nil
}

// Release drops owner's claim. It reports false if owner did not hold it.
func (in *Interpreter) Release(owner interface{}) bool {
	in.ownerMu.Lock()
	defer in.ownerMu.Unlock()
	if in.owner != owner {
		return false
	}
	in.owner = nil
	return true
}

// EvalHook returns the currently installed evaluator handle.
func (in *Interpreter) EvalHook() *EvalHook {
	return in.eval.Load()
}

// SetEvalHook installs h as the interpreter-wide evaluator.
// A nil h restores DefaultEvalHook.
//
// Returns ErrUnsupported if the interpreter does not allow evaluator
// substitution.
func (in *Interpreter) SetEvalHook(h *EvalHook) error {
	if !in.caps.Has(CapEvalFrame) {
		return unsupported(CapEvalFrame)
	}
	if h == nil {
		h = DefaultEvalHook
	}
	in.eval.Store(h)
	return nil
}

// SwapEvalHook installs h and returns the handle it replaced.
func (in *Interpreter) SwapEvalHook(h *EvalHook) (*EvalHook, error) {
	if !in.caps.Has(CapEvalFrame) {
		return nil, unsupported(CapEvalFrame)
	}
	if h == nil {
		h = DefaultEvalHook
	}
	return in.eval.Swap(h), nil
}

// SetTraceAll installs fn as the trace callback of every existing thread
// and of every thread created afterwards. A nil fn removes it.
//
// Returns the previously installed all-threads callback. Threads that set
// their own callback with ThreadState.SetTrace are overwritten.
func (in *Interpreter) SetTraceAll(fn TraceFunc) (TraceFunc, error) {
	if !in.caps.Has(CapTraceEvents) {
		return nil, unsupported(CapTraceEvents)
	}

	var cell *traceCell
	if fn != nil {
		cell = &traceCell{fn: fn}
	}

	prev := in.traceAll.Swap(cell)
	in.threads.Range(func(_, value interface{}) bool {
		value.(*ThreadState).trace.Store(cell)
		return true
	})

	if prev == nil {
		return nil, nil
	}
	return prev.fn, nil
}

// TraceSnapshot is the trace-callback state of an interpreter captured by
// SwapTraceAll: the all-threads callback and the callback each existing
// thread had, including ones set with ThreadState.SetTrace.
type TraceSnapshot struct {
	all     *traceCell
	threads map[*ThreadState]*traceCell
}

// All returns the captured all-threads callback, or nil.
func (s *TraceSnapshot) All() TraceFunc {
	if s == nil || s.all == nil {
		return nil
	}
	return s.all.fn
}

// SwapTraceAll is SetTraceAll that also captures every thread's own
// callback, so RestoreTraceAll can undo the installation exactly.
func (in *Interpreter) SwapTraceAll(fn TraceFunc) (*TraceSnapshot, error) {
	if !in.caps.Has(CapTraceEvents) {
		return nil, unsupported(CapTraceEvents)
	}

	var cell *traceCell
	if fn != nil {
		cell = &traceCell{fn: fn}
	}

	snap := &TraceSnapshot{threads: make(map[*ThreadState]*traceCell)}
	snap.all = in.traceAll.Swap(cell)
	in.threads.Range(func(_, value interface{}) bool {
		ts := value.(*ThreadState)
		snap.threads[ts] = ts.trace.Swap(cell)
		return true
	})
	return snap, nil
}

// RestoreTraceAll reinstates snap. Threads captured in snap get back their
// own callback; threads created since get the captured all-threads one.
func (in *Interpreter) RestoreTraceAll(snap *TraceSnapshot) error {
	if !in.caps.Has(CapTraceEvents) {
		return unsupported(CapTraceEvents)
	}

	in.traceAll.Store(snap.all)
	in.threads.Range(func(_, value interface{}) bool {
		ts := value.(*ThreadState)
		if saved, ok := snap.threads[ts]; ok {
			ts.trace.Store(saved)
		} else {
			ts.trace.Store(snap.all)
		}
		return true
	})
	return nil
}

// TraceAll returns the current all-threads trace callback, or nil.
func (in *Interpreter) TraceAll() TraceFunc {
	if c := in.traceAll.Load(); c != nil {
		return c.fn
	}
	return nil
}

// CurrentThread returns the ThreadState of the calling goroutine.
//
// On first access per goroutine the state is allocated and cached
// (~1.5µs for goroutine ID extraction plus a map store); afterwards the
// cost is the ID extraction plus a sync.Map load.
//
// Thread Safety: Safe for concurrent calls from multiple goroutines.
func (in *Interpreter) CurrentThread() *ThreadState {
	gid := goroutineID()
	if v, ok := in.threads.Load(gid); ok {
		return v.(*ThreadState)
	}

	ts := newThreadState(in, gid)
	actual, loaded := in.threads.LoadOrStore(gid, ts)
	if !loaded {
		in.maybeReap(ts.seq)
	}
	return actual.(*ThreadState)
}

// Threads returns the number of cached thread states.
func (in *Interpreter) Threads() int {
	n := 0
	in.threads.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

// Call evaluates body as one frame of code on the calling goroutine.
//
// The frame is pushed, handed to the installed EvalHook, and popped when
// evaluation returns or panics. A panic in body propagates unchanged.
func (in *Interpreter) Call(code *Code, body func()) {
	ts := in.CurrentThread()
	f := &Frame{Code: code, Thread: ts, TraceLines: true, body: body}
	if code == nil {
		f.PC = funcPC(body)
	}
	in.dispatch(ts, f)
}

// Enter dispatches an entry-only frame for code.
//
// This is the form instrumented functions use as their first statement:
// hooks observe the call, and the function body runs after Enter returns.
func (in *Interpreter) Enter(code *Code) {
	in.enter(code, 1)
}

// EnterFrom is Enter for wrappers: skip is the number of wrapper frames
// between the instrumented function and this call.
func (in *Interpreter) EnterFrom(code *Code, skip int) {
	in.enter(code, skip+1)
}

func (in *Interpreter) enter(code *Code, skip int) {
	ts := in.CurrentThread()
	f := &Frame{Code: code, Thread: ts, TraceLines: true}
	if code == nil {
		// Frames: callerPC <- enter <- Enter/EnterFrom <- wrappers <- caller.
		f.PC = callerPC(skip + 1)
	}
	in.dispatch(ts, f)
}

func (in *Interpreter) dispatch(ts *ThreadState, f *Frame) {
	ts.push(f)
	defer ts.pop(f)
	in.eval.Load().Eval(ts, f)
}

// maybeReap triggers a background dead-goroutine scan every reapInterval
// thread allocations.
func (in *Interpreter) maybeReap(seq uint64) {
	if seq%reapInterval == 0 {
		go in.ReapThreads()
	}
}

// ReapThreads removes the states of goroutines that have exited.
//
// Algorithm:
//  1. Record the allocation sequence number reached so far
//  2. Get list of all live goroutine IDs via runtime.Stack()
//  3. Delete every state allocated up to that sequence number whose
//     goroutine is not in the live set
//
// States allocated after step 1 are kept: their goroutine may have
// started after the snapshot.
//
// Returns the number of states removed.
//
// Thread Safety: Safe for concurrent calls.
func (in *Interpreter) ReapThreads() int {
	cutoff := in.seq.Load()

	live := liveGoroutineIDs()
	liveSet := make(map[int64]struct{}, len(live))
	for _, gid := range live {
		liveSet[gid] = struct{}{}
	}

	removed := 0
	in.threads.Range(func(key, value interface{}) bool {
		if value.(*ThreadState).seq > cutoff {
			return true
		}
		gid := key.(int64)
		if _, ok := liveSet[gid]; !ok {
			in.threads.Delete(gid)
			removed++
		}
		return true
	})

	return removed
}
