package hostrt

import (
	"reflect"
	"runtime"
	"sync"
)

// symbolCache deduplicates PC symbolization.
//
// Key: uintptr (PC inside a function)
// Value: FrameInfo
//
// Thread Safety: sync.Map provides lock-free reads, lock-based writes.
// Memory: grows with the number of distinct call sites (bounded by code size).
var symbolCache sync.Map

// symbolize resolves a PC to its source location.
//
// Performance: ~300ns on first resolution of a PC (runtime.FuncForPC +
// FileLine), ~20ns afterwards (sync.Map.Load).
//
// Thread Safety: Safe for concurrent calls from multiple goroutines.
func symbolize(pc uintptr) FrameInfo {
	if v, ok := symbolCache.Load(pc); ok {
		return v.(FrameInfo)
	}

	fn := runtime.FuncForPC(pc)
	if fn == nil {
		// Unknown PC: keep the miss cached so it stays cheap.
		symbolCache.Store(pc, FrameInfo{})
		return FrameInfo{}
	}

	file, line := fn.FileLine(pc)
	info := FrameInfo{
		Filename: file,
		Function: fn.Name(),
		Line:     line,
	}
	symbolCache.Store(pc, info)

	return info
}

// funcPC returns the entry PC of a func value, or 0 for nil.
func funcPC(fn func()) uintptr {
	if fn == nil {
		return 0
	}
	return reflect.ValueOf(fn).Pointer()
}

// SymbolStats returns the number of cached PC resolutions.
func SymbolStats() int {
	n := 0
	symbolCache.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}
