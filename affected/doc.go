// Package affected records which source files each test actually executes,
// so a selector can re-run only the tests affected by a change.
//
// # Quick Start
//
// Instrumented packages call into this package on every function entry.
// A coordinator wraps each test:
//
//	affected.Clear()
//	if err := affected.Start(); err != nil {
//		log.Fatal(err)
//	}
//	runTest()
//	affected.Stop()
//
//	for _, file := range affected.UserFiles() {
//		h, _ := affected.HashFile(file)
//		fmt.Printf("%s %016x\n", file, h)
//	}
//
// or, equivalently, uses [Trace].
//
// # API Overview
//
// The package provides functions for:
//   - Tracing control: [Start], [Stop], [Clear], [UserFiles], [Trace]
//   - Goroutine registration (thread-scoped strategy): [RegisterThread]
//   - Instrumentation hooks: [NewCode], [Enter], [Call]
//   - Change detection: [HashFile], [Fingerprint], [Unchanged]
//   - Version information: [GetInfo], [Version]
//
// # How It Works
//
// The instrumenter declares one [Code] value per source file and inserts an
// [Enter] call at the start of every function:
//
//	// Original code:
//	func Greet() string {
//		return "hi"
//	}
//
//	// Instrumented code:
//	func Greet() string {
//		affected.Enter(affectedUnit_3f9c0a1b2c3d4e5f)
//		return "hi"
//	}
//
// Enter dispatches through the process-wide runtime. While tracing, the
// installed hook records the unit's filename; otherwise the call is a frame
// push and pop.
//
// UserFiles drops empty names, synthetic units ("<autogenerated>") and
// files under the Go root, GOPATH and module cache.
//
// # Configuration
//
// The process tracer is configured once, on first use, from the nearest
// .affected.yaml above the working directory (or the file named by
// AFFECTED_CONFIG):
//
//	strategy: auto        # auto, eval-frame, thread-scoped, call-events
//	exclude: [/opt/vendored]
//	go_mod: auto          # exclude only this module's dependencies from the module cache
//	log_level: warn
//	hash_workers: 8
//
// AFFECTED_STRATEGY, AFFECTED_EXCLUDE and AFFECTED_LOG override the file.
package affected
