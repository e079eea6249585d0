package tracer

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/kolkov/goaffected/internal/affected/footprint"
	"github.com/kolkov/goaffected/internal/affected/hostrt"
)

// Options configures a Tracer.
type Options struct {
	// Strategy is the attachment strategy (default StrategyAuto).
	Strategy Strategy

	// Interpreter is the runtime to attach to (default hostrt.Default()).
	Interpreter *hostrt.Interpreter

	// Exclude adds install-root prefixes on top of the interpreter's Paths.
	Exclude []string

	// GoMod names a go.mod whose dependencies replace the blanket
	// module-cache exclusion: only their roots (and vendor/) stay excluded.
	// "auto" searches upward from the working directory. Empty keeps the
	// whole cache excluded.
	GoMod string

	// SyntheticMarker overrides the "<" prefix of non-file units.
	SyntheticMarker string

	// Logger receives diagnostics (default: the interpreter's logger).
	Logger *slog.Logger
}

// Stats is a point-in-time view of tracer counters.
type Stats struct {
	Strategy   Strategy
	Tracing    bool
	Files      int    // raw footprint size, shards included
	Threads    int    // registered goroutines (thread-scoped only)
	HookErrors uint64 // failures recovered inside the hook
}

// Tracer records the source files of every call the interpreter evaluates
// while tracing is active.
//
// State machine: Idle --Start--> Tracing --Stop--> Idle. Clear is valid in
// either state and never touches hook installation.
//
// Thread Safety: control operations (Start, Stop, Clear, RegisterThread)
// serialize on an internal mutex. The hook itself never takes that mutex;
// it only inserts into the footprint set and releases the set lock before
// delegating to the previous evaluator.
type Tracer struct {
	interp   *hostrt.Interpreter
	strategy Strategy
	filter   footprint.Filter
	log      *slog.Logger

	// files is the shared footprint (eval-frame and call-events).
	files *footprint.Set

	// hook is the wrapper installed by eval-frame and thread-scoped
	// tracing. Created once; its closure reads prev from the tracer.
	hook *hostrt.EvalHook
	// prev is the evaluator captured immediately before Start.
	prev atomic.Pointer[hostrt.EvalHook]

	// trace is the call-event callback installed by call-events tracing.
	trace hostrt.TraceFunc

	mu      sync.Mutex
	tracing bool
	// traceSnap is the trace-callback state captured by call-events Start.
	traceSnap *hostrt.TraceSnapshot
	shards    map[*shard]struct{}

	hookErrors atomic.Uint64
	warned     atomic.Bool
}

// New creates a tracer for the chosen strategy.
//
// The interpreter's capabilities are checked for the strategy's primitives
// and the frame metadata accessor is validated against a synthetic frame. Both
// failures wrap ErrUnsupportedRuntime. Exclusion prefixes are computed here
// once and never change afterwards.
func New(opts Options) (*Tracer, error) {
	interp := opts.Interpreter
	if interp == nil {
		interp = hostrt.Default()
	}
	log := opts.Logger
	if log == nil {
		log = interp.Logger()
	}

	strategy, err := resolve(opts.Strategy, interp.Capabilities())
	if err != nil {
		return nil, err
	}
	if err := checkMetadata(); err != nil {
		return nil, err
	}

	paths := interp.Paths()
	if opts.GoMod != "" {
		paths, err = moduleRoots(paths, opts.GoMod)
		if err != nil {
			return nil, err
		}
	}
	exclude := append(paths.Prefixes(), opts.Exclude...)

	t := &Tracer{
		interp:   interp,
		strategy: strategy,
		filter:   footprint.NewFilter(exclude, opts.SyntheticMarker),
		log:      log.With(slog.String("strategy", strategy.String())),
		files:    footprint.NewSet(),
		shards:   make(map[*shard]struct{}),
	}

	switch strategy {
	case StrategyEvalFrame:
		t.hook = hostrt.NewEvalHook("affected/eval-frame", t.evalFrame)
	case StrategyThreadScoped:
		t.hook = hostrt.NewEvalHook("affected/thread-scoped", t.evalThreadScoped)
	case StrategyCallEvents:
		t.trace = t.callEvent
	}

	t.log.Debug("tracer created",
		slog.Int("exclude", len(t.filter.Exclude)),
		slog.String("capabilities", interp.Capabilities().String()))
	return t, nil
}

// moduleRoots extends paths with the dependency roots of goMod.
func moduleRoots(paths hostrt.Paths, goMod string) (hostrt.Paths, error) {
	if goMod == "auto" {
		wd, err := os.Getwd()
		if err != nil {
			return paths, fmt.Errorf("tracer: locating go.mod: %w", err)
		}
		goMod = hostrt.FindGoMod(wd)
		if goMod == "" {
			return paths, nil
		}
	}

	extended, err := hostrt.PathsForModule(paths, goMod)
	if err != nil {
		return paths, fmt.Errorf("tracer: %w", err)
	}
	return extended, nil
}

// Start installs the hook.
//
// Returns ErrAlreadyTracing if tracing is active, on this tracer or on
// another tracer attached to the same interpreter; the handle saved by the
// earlier Start stays the one Stop restores.
func (t *Tracer) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.tracing {
		return ErrAlreadyTracing
	}
	if err := t.interp.Claim(t); err != nil {
		return fmt.Errorf("%w: %v", ErrAlreadyTracing, err)
	}

	switch t.strategy {
	case StrategyEvalFrame, StrategyThreadScoped:
		// prev must be visible before the wrapper can run.
		t.prev.Store(t.interp.EvalHook())
		prev, err := t.interp.SwapEvalHook(t.hook)
		if err != nil {
			t.prev.Store(nil)
			t.interp.Release(t)
			return fmt.Errorf("tracer: installing evaluator: %w", err)
		}
		t.prev.Store(prev)

	case StrategyCallEvents:
		snap, err := t.interp.SwapTraceAll(t.trace)
		if err != nil {
			t.interp.Release(t)
			return fmt.Errorf("tracer: installing trace callback: %w", err)
		}
		t.traceSnap = snap
	}

	t.tracing = true
	t.log.Debug("tracing started")
	return nil
}

// Stop restores the evaluator (or trace callbacks) captured by Start.
//
// The exact pre-Start handle is restored even if another hook was stacked
// on top of the tracer's wrapper in the meantime; that hook is dropped and
// a warning is logged. Under call-events every goroutine gets back the
// callback it had before Start, and goroutines created while tracing get
// the previous all-threads callback. Returns ErrNotTracing while idle.
func (t *Tracer) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.tracing {
		return ErrNotTracing
	}

	switch t.strategy {
	case StrategyEvalFrame, StrategyThreadScoped:
		current, err := t.interp.SwapEvalHook(t.prev.Load())
		if err != nil {
			return fmt.Errorf("tracer: restoring evaluator: %w", err)
		}
		if current != t.hook {
			t.log.Warn("evaluator replaced while tracing; restoring pre-start evaluator",
				slog.String("found", current.Name()),
				slog.String("restored", t.prev.Load().Name()))
		}

	case StrategyCallEvents:
		if err := t.interp.RestoreTraceAll(t.traceSnap); err != nil {
			return fmt.Errorf("tracer: restoring trace callback: %w", err)
		}
		t.traceSnap = nil
	}

	t.interp.Release(t)
	t.tracing = false
	t.log.Debug("tracing stopped", slog.Int("files", t.filesLocked()))
	return nil
}

// Tracing reports whether the hook is installed.
func (t *Tracer) Tracing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tracing
}

// Strategy returns the resolved strategy (never StrategyAuto).
func (t *Tracer) Strategy() Strategy {
	return t.strategy
}

// Filter returns the user-file filter built at construction.
func (t *Tracer) Filter() footprint.Filter {
	return t.filter
}

// Clear empties the footprint, including registered goroutines' shards.
func (t *Tracer) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.files.Clear()
	for s := range t.shards {
		s.files.Clear()
	}
}

// Files returns the raw footprint, sorted, with nothing filtered out.
func (t *Tracer) Files() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.collectLocked().Snapshot()
}

// UserFiles returns the footprint without empty names, synthetic units
// and files under an exclusion prefix, sorted.
func (t *Tracer) UserFiles() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.filter.Apply(t.collectLocked().AppendTo(nil))
}

// collectLocked returns the shared footprint merged with every shard.
func (t *Tracer) collectLocked() *footprint.Set {
	if len(t.shards) == 0 {
		return t.files
	}
	all := footprint.NewSet()
	all.Merge(t.files)
	for s := range t.shards {
		all.Merge(s.files)
	}
	return all
}

func (t *Tracer) filesLocked() int {
	return t.collectLocked().Len()
}

// Stats returns the current counters.
func (t *Tracer) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Stats{
		Strategy:   t.strategy,
		Tracing:    t.tracing,
		Files:      t.filesLocked(),
		Threads:    len(t.shards),
		HookErrors: t.hookErrors.Load(),
	}
}
