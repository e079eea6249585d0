// Package hostrt implements the call-dispatch runtime that instrumented Go
// code runs on.
//
// Go does not expose a swappable evaluator for its own calls, so
// instrumented packages route every function entry through an Interpreter
// instead. The interpreter provides the three hook primitives execution
// tracers attach to:
//
//   - Evaluator substitution: SetEvalHook / SwapEvalHook replace the single
//     interpreter-wide EvalFrameFunc. A substitute records what it needs
//     and delegates to the hook it replaced.
//   - Thread-local storage: each goroutine has a ThreadState whose recorder
//     slot holds a statically typed CallRecorder.
//   - Call events: TraceFunc callbacks receive call, line, return and
//     exception events through EvalFrameDefault.
//
// # Frames and code
//
// A Code value describes one compiled unit (a source file). A Frame is one
// in-flight call of that unit on a goroutine. Inspect is the portable way
// to read a frame's source location; it falls back to the Go runtime's
// symbol tables when the unit carries no filename.
//
// # Installation configuration
//
// Paths mirrors the toolchain layout (GOROOT, GOPATH, GOMODCACHE) and can
// be extended with the dependency roots of a go.mod via PathsForModule.
//
// # Thread Safety
//
// Hook installation is an atomic pointer swap and is not synchronized with
// calls already in flight on other goroutines. Install and restore hooks
// while no instrumented call is running, or accept that such calls finish
// on the evaluator they started with.
package hostrt
