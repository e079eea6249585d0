package hostrt

import (
	"runtime"
	"strings"
)

// SyntheticPrefix marks filenames that do not name a real source file.
//
// The Go toolchain itself reports compiler-generated wrappers as
// "<autogenerated>"; hosted code evaluated from strings uses "<string>".
const SyntheticPrefix = "<"

// Code is the compiled-unit metadata attached to every frame.
//
// One Code value exists per instrumented source file. It is created once,
// at package initialization of the instrumented package, and never mutated
// afterwards, so the hot path can read it without synchronization.
type Code struct {
	// Filename is the absolute path of the source file, or a synthetic
	// name starting with SyntheticPrefix. Empty when unknown.
	Filename string

	// Name is the package or function the unit belongs to (informational).
	Name string

	// Line is the first line of the unit, used for line events.
	Line int
}

// NewCode returns compiled-unit metadata for the given file.
func NewCode(filename, name string) *Code {
	return &Code{Filename: filename, Name: name, Line: 1}
}

// IsSynthetic reports whether the unit has no backing source file.
func (c *Code) IsSynthetic() bool {
	return c == nil || c.Filename == "" || strings.HasPrefix(c.Filename, SyntheticPrefix)
}

// Frame is one in-flight call.
//
// Frames are allocated by Interpreter.Call and live on the calling
// goroutine's frame stack until the call returns. Only the owning goroutine
// touches a frame, except through TraceFunc callbacks invoked on that same
// goroutine.
type Frame struct {
	// Code is the unit being executed. May be nil for anonymous calls.
	Code *Code

	// Thread is the goroutine state executing this frame.
	Thread *ThreadState

	// Back is the caller's frame on the same goroutine (nil at the bottom).
	Back *Frame

	// PC is a program counter inside the called function, captured only
	// for calls dispatched without Code (0 otherwise). Used by Inspect.
	PC uintptr

	// TraceLines enables per-line event delivery for this frame. A trace
	// callback clears it to keep only call-level events.
	TraceLines bool

	// localTrace is the continuation returned for this frame's call event.
	localTrace TraceFunc

	// body executes the call. nil for entry-only dispatch (Enter).
	body func()
}

// Depth returns the number of frames below f on its goroutine.
func (f *Frame) Depth() int {
	d := 0
	for b := f.Back; b != nil; b = b.Back {
		d++
	}
	return d
}

// run executes the frame body, if any.
func (f *Frame) run() {
	if f.body != nil {
		f.body()
	}
}

// line returns the first line of the unit, or 0 when unknown.
func (f *Frame) line() int {
	if f.Code == nil {
		return 0
	}
	return f.Code.Line
}

// FrameInfo is the reflective view of a frame.
type FrameInfo struct {
	Filename string
	Function string
	Line     int
}

// Inspect returns the source location of a frame through public metadata.
//
// This is the portable accessor: it never assumes anything about how the
// dispatcher populated the frame. The Code metadata wins when it carries a
// filename; otherwise the frame PC is symbolized through the Go runtime's
// function tables (cached per PC).
//
// Inspect never panics; a nil frame yields the zero FrameInfo.
func Inspect(f *Frame) FrameInfo {
	if f == nil {
		return FrameInfo{}
	}

	if f.Code != nil && f.Code.Filename != "" {
		return FrameInfo{
			Filename: f.Code.Filename,
			Function: f.Code.Name,
			Line:     f.Code.Line,
		}
	}

	if f.PC != 0 {
		return symbolize(f.PC)
	}

	return FrameInfo{}
}

// callerPC returns a PC inside the function skip frames above the caller
// of callerPC (skip=0 is the function that called callerPC).
func callerPC(skip int) uintptr {
	var pcs [1]uintptr
	if runtime.Callers(skip+2, pcs[:]) == 0 {
		return 0
	}
	// Callers returns return addresses; step back into the call instruction.
	return pcs[0] - 1
}
