// Package affected provides the public API for execution footprint tracing.
//
// See doc.go for detailed documentation and examples.
package affected

import (
	"context"
	"sync"

	"github.com/kolkov/goaffected/internal/affected/config"
	"github.com/kolkov/goaffected/internal/affected/fingerprint"
	"github.com/kolkov/goaffected/internal/affected/hostrt"
	"github.com/kolkov/goaffected/internal/affected/tracer"
)

// Code is the compiled-unit metadata of one instrumented source file.
type Code = hostrt.Code

// Manifest is a footprint with the fingerprint of every file.
type Manifest = fingerprint.Manifest

// NewCode declares the compiled unit of a source file.
//
// The instrumenter emits one package-level call per file:
//
//	var affectedUnit_3f9c0a1b2c3d4e5f = affected.NewCode("/abs/app/greet.go", "app")
func NewCode(filename, pkg string) *Code {
	return hostrt.NewCode(filename, pkg)
}

// Enter dispatches a function entry of code through the runtime.
//
// This function is automatically inserted by the instrumenter as the first
// statement of every function body. Manual calls are typically not needed.
//
// Example (automatic instrumentation):
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
// While no tracer is started, Enter costs a frame push and pop.
func Enter(code *Code) {
	hostrt.Default().EnterFrom(code, 1)
}

// Call runs body as one call of code, for code that wraps whole calls
// instead of marking entries.
func Call(code *Code, body func()) {
	hostrt.Default().Call(code, body)
}

// Start begins recording the process footprint.
//
// Returns tracer.ErrAlreadyTracing if called twice without Stop, or the
// construction error of the process tracer (for example
// tracer.ErrUnsupportedRuntime).
func Start() error {
	t, err := tracer.Default()
	if err != nil {
		return err
	}
	return t.Start()
}

// Stop ends recording and restores the runtime's previous evaluator.
func Stop() error {
	t, err := tracer.Default()
	if err != nil {
		return err
	}
	return t.Stop()
}

// Clear empties the footprint. Valid while tracing or idle.
func Clear() {
	if t, err := tracer.Default(); err == nil {
		t.Clear()
	}
}

// UserFiles returns the recorded files that belong to the code under test,
// sorted. Standard library, module cache and synthetic units are dropped.
func UserFiles() []string {
	t, err := tracer.Default()
	if err != nil {
		return nil
	}
	return t.UserFiles()
}

// RegisterThread opts the calling goroutine into thread-scoped tracing.
// Under the other strategies it does nothing.
func RegisterThread() (unregister func(), err error) {
	t, err := tracer.Default()
	if err != nil {
		return nil, err
	}
	return t.RegisterThread()
}

// Trace runs fn with a fresh footprint and returns the user files it touched.
//
// This is the per-test cycle of a coordinator:
//
//	files, err := affected.Trace(func() { runTest() })
func Trace(fn func()) ([]string, error) {
	t, err := tracer.Default()
	if err != nil {
		return nil, err
	}

	t.Clear()
	if err := t.Start(); err != nil {
		return nil, err
	}
	stopped := false
	defer func() {
		if !stopped {
			_ = t.Stop()
		}
	}()

	fn()

	stopped = true
	if err := t.Stop(); err != nil {
		return nil, err
	}
	return t.UserFiles(), nil
}

var (
	cacheOnce sync.Once
	cache     *fingerprint.Cache
)

// hashCache returns the process fingerprint cache.
func hashCache() *fingerprint.Cache {
	cacheOnce.Do(func() {
		workers := config.Default().HashWorkers
		if cfg, err := config.Discover(); err == nil {
			workers = cfg.HashWorkers
		}
		cache = fingerprint.New(fingerprint.WithWorkers(workers))
	})
	return cache
}

// HashFile returns the content fingerprint of path, memoized per process.
//
// The first call reads the file; later calls never touch the filesystem,
// even if the file changed. Read failures are returned as
// *fingerprint.ReadError and retried on the next call.
func HashFile(path string) (uint64, error) {
	return hashCache().Hash(path)
}

// Fingerprint hashes files (typically UserFiles) into a Manifest.
func Fingerprint(ctx context.Context, files []string) (Manifest, error) {
	return hashCache().Manifest(ctx, files)
}

// Unchanged reports whether every file of m still has its recorded
// fingerprint, so the execution it describes need not run again.
func Unchanged(m Manifest) (bool, error) {
	return hashCache().Unchanged(m)
}
