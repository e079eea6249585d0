package tracer

import (
	"fmt"

	"github.com/kolkov/goaffected/internal/affected/hostrt"
)

// Strategy selects how the tracer attaches to the interpreter.
type Strategy int

const (
	// StrategyAuto picks StrategyEvalFrame when the interpreter allows
	// evaluator substitution, StrategyCallEvents otherwise.
	StrategyAuto Strategy = iota

	// StrategyEvalFrame substitutes the interpreter-wide evaluator with a
	// wrapper that records every frame into the shared footprint.
	StrategyEvalFrame

	// StrategyThreadScoped substitutes the evaluator as well, but records
	// through the recorder stored in each goroutine's thread-local slot.
	// Only goroutines that called RegisterThread are traced.
	StrategyThreadScoped

	// StrategyCallEvents installs a call-event callback on every thread
	// and reads the file through hostrt.Inspect.
	StrategyCallEvents
)

// String returns the configuration name of s.
func (s Strategy) String() string {
	switch s {
	case StrategyAuto:
		return "auto"
	case StrategyEvalFrame:
		return "eval-frame"
	case StrategyThreadScoped:
		return "thread-scoped"
	case StrategyCallEvents:
		return "call-events"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy parses a configuration name. The empty string is auto.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "", "auto":
		return StrategyAuto, nil
	case "eval-frame":
		return StrategyEvalFrame, nil
	case "thread-scoped":
		return StrategyThreadScoped, nil
	case "call-events":
		return StrategyCallEvents, nil
	default:
		return StrategyAuto, fmt.Errorf("tracer: unknown strategy %q", name)
	}
}

// requires returns the primitives s needs.
func (s Strategy) requires() hostrt.Capabilities {
	switch s {
	case StrategyEvalFrame:
		return hostrt.CapEvalFrame
	case StrategyThreadScoped:
		return hostrt.CapEvalFrame | hostrt.CapThreadLocal
	case StrategyCallEvents:
		return hostrt.CapTraceEvents
	default:
		return 0
	}
}

// resolve maps s to a concrete strategy the capabilities support.
// Thread-scoped tracing is never chosen automatically: it traces nothing
// until goroutines register.
func resolve(s Strategy, caps hostrt.Capabilities) (Strategy, error) {
	if s == StrategyAuto {
		switch {
		case caps.Has(StrategyEvalFrame.requires()):
			return StrategyEvalFrame, nil
		case caps.Has(StrategyCallEvents.requires()):
			return StrategyCallEvents, nil
		default:
			return StrategyAuto, fmt.Errorf("%w: no hook primitive available (have %s)", ErrUnsupportedRuntime, caps)
		}
	}

	need := s.requires()
	if need == 0 {
		return StrategyAuto, fmt.Errorf("tracer: unknown strategy %s", s)
	}
	if !caps.Has(need) {
		return StrategyAuto, fmt.Errorf("%w: %s needs %s, have %s", ErrUnsupportedRuntime, s, need, caps)
	}
	return s, nil
}
