// Package tracer records the execution footprint of instrumented Go code:
// the set of source files whose functions ran while tracing was active.
//
// # Strategies
//
// A Tracer attaches to a hostrt.Interpreter in one of three ways:
//
//   - StrategyEvalFrame replaces the interpreter-wide evaluator with a
//     wrapper that reads frame.Code.Filename, inserts it into the
//     footprint, and delegates to the evaluator installed before Start.
//     One metadata read and one set insert per call.
//   - StrategyThreadScoped uses the same wrapper, but records through the
//     recorder in the goroutine's thread-local slot. Each goroutine that
//     calls RegisterThread gets its own shard; no lock is shared on the hot
//     path.
//   - StrategyCallEvents installs a call-event callback on every thread.
//     It only depends on the public event protocol and hostrt.Inspect, at
//     the cost of generic event dispatch per call.
//
// StrategyAuto picks eval-frame when available, call-events otherwise.
//
// # Lifecycle
//
// A coordinator typically runs, per test:
//
//	t.Clear()
//	t.Start()
//	runTest()
//	t.Stop()
//	files := t.UserFiles()
//
// Start and Stop should run while no instrumented call is in flight on
// another goroutine; otherwise a few concurrent calls may be evaluated by
// the old evaluator.
//
// # Failure containment
//
// Nothing that goes wrong inside the hook reaches the instrumented call.
// Failures are counted in Stats().HookErrors and the first one is logged;
// the affected frame is simply not recorded. Frames dispatched without
// Code are not failures: every strategy records the file of their
// symbolized PC.
//
// A tracer claims its interpreter between Start and Stop, so a second
// tracer on the same interpreter gets ErrAlreadyTracing.
package tracer
