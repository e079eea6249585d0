package tracer

import (
	"fmt"
	"log/slog"

	"github.com/kolkov/goaffected/internal/affected/footprint"
	"github.com/kolkov/goaffected/internal/affected/hostrt"
)

// frameFile is the single accessor every strategy uses to read a frame's
// source file. It is validated by checkMetadata at construction.
//
// Frames dispatched without Code fall back to the symbolized PC of their
// body or caller, so all strategies record the same file for them.
func frameFile(f *hostrt.Frame) (string, error) {
	switch {
	case f == nil:
		return "", errNoCode
	case f.Code != nil:
		return f.Code.Filename, nil
	case f.PC != 0:
		return hostrt.Inspect(f).Filename, nil
	}
	return "", errNoCode
}

const checkFilename = "/affected/check.go"

// checkMetadata checks that both frame accessors report the unit filename.
func checkMetadata() error {
	f := &hostrt.Frame{Code: hostrt.NewCode(checkFilename, "check")}

	if got, err := frameFile(f); err != nil || got != checkFilename {
		return fmt.Errorf("%w: frame metadata check read %q", ErrUnsupportedRuntime, got)
	}
	if got := hostrt.Inspect(f).Filename; got != checkFilename {
		return fmt.Errorf("%w: Inspect check read %q", ErrUnsupportedRuntime, got)
	}
	return nil
}

// evalFrame is the eval-frame wrapper: record, then delegate.
//
// The footprint lock is released inside record, before the delegated
// call can enter instrumented code again on this goroutine.
func (t *Tracer) evalFrame(ts *hostrt.ThreadState, f *hostrt.Frame) {
	t.record(t.files, f)
	t.delegate(ts, f)
}

// evalThreadScoped records through the goroutine's recorder slot.
// Unregistered goroutines pass straight through.
func (t *Tracer) evalThreadScoped(ts *hostrt.ThreadState, f *hostrt.Frame) {
	if r := ts.Recorder(); r != nil {
		t.recordVia(r, f)
	}
	t.delegate(ts, f)
}

func (t *Tracer) delegate(ts *hostrt.ThreadState, f *hostrt.Frame) {
	prev := t.prev.Load()
	if prev == nil {
		prev = hostrt.DefaultEvalHook
	}
	prev.Eval(ts, f)
}

// record inserts the frame's file into set. Failures are contained here.
func (t *Tracer) record(set *footprint.Set, f *hostrt.Frame) {
	defer t.recoverHook()

	file, err := frameFile(f)
	if err != nil {
		t.hookError(err)
		return
	}
	set.Add(file)
}

func (t *Tracer) recordVia(r hostrt.CallRecorder, f *hostrt.Frame) {
	defer t.recoverHook()
	r.RecordCall(f)
}

// callEvent is the call-events callback. It acts on call events only,
// turns off line events for the frame, and returns itself so nested calls
// stay observed.
func (t *Tracer) callEvent(f *hostrt.Frame, ev hostrt.Event, _ interface{}) hostrt.TraceFunc {
	if ev != hostrt.EventCall {
		return t.trace
	}
	f.TraceLines = false

	t.record(t.files, f)
	return t.trace
}

func (t *Tracer) recoverHook() {
	if r := recover(); r != nil {
		t.hookError(fmt.Errorf("panic in hook: %v", r))
	}
}

// hookError counts a contained failure and logs the first one.
func (t *Tracer) hookError(err error) {
	n := t.hookErrors.Add(1)
	if t.warned.CompareAndSwap(false, true) {
		t.log.Warn("hook failure contained; frame not recorded",
			slog.String("error", err.Error()),
			slog.Uint64("count", n))
	}
}

// shard is the per-goroutine recorder of thread-scoped tracing.
type shard struct {
	t     *Tracer
	files *footprint.Set
}

// RecordCall implements hostrt.CallRecorder.
func (s *shard) RecordCall(f *hostrt.Frame) {
	s.t.record(s.files, f)
}

// RegisterThread enables thread-scoped tracing for the calling goroutine.
//
// The goroutine gets its own footprint shard, stored in its thread-local
// slot, so its calls never contend with other goroutines. The returned
// function unregisters it; files recorded so far are kept. Under the other
// strategies every goroutine is already traced and RegisterThread does
// nothing.
//
// Registration survives Start/Stop cycles until unregistered.
func (t *Tracer) RegisterThread() (unregister func(), err error) {
	if t.strategy != StrategyThreadScoped {
		return func() {}, nil
	}

	ts := t.interp.CurrentThread()
	s := &shard{t: t, files: footprint.NewSet()}
	if err := ts.SetRecorder(s); err != nil {
		return nil, fmt.Errorf("tracer: registering goroutine %d: %w", ts.ID, err)
	}

	t.mu.Lock()
	t.shards[s] = struct{}{}
	t.mu.Unlock()

	return func() {
		if ts.Recorder() == hostrt.CallRecorder(s) {
			_ = ts.SetRecorder(nil)
		}

		t.mu.Lock()
		defer t.mu.Unlock()
		if _, ok := t.shards[s]; !ok {
			return
		}
		delete(t.shards, s)
		t.files.Merge(s.files)
	}, nil
}
