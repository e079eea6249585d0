// Copyright 2026 The goaffected Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Goroutine ID extraction.
//
// Thread states are keyed by goroutine ID. The ID is recovered by parsing
// the header line of runtime.Stack output, which works on every Go version
// and architecture without depending on the runtime.g layout.
//
// API:
//   - goroutineID(): ID of the calling goroutine
//   - liveGoroutineIDs(): IDs of every goroutine currently alive
//   - parseGID(): parses one "goroutine N [...]" header
//   - parseAllGIDs(): parses a full runtime.Stack(all=true) dump

package hostrt

import "runtime"

// goroutineID returns the ID of the calling goroutine.
//
// Stack trace format: "goroutine 123 [running]:\n..."
//
// Performance: ~1500ns per call (dominated by runtime.Stack).
//
// Returns:
//   - int64: Goroutine ID (always positive), or 0 if parsing fails
func goroutineID() int64 {
	// Only the first line is needed.
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	return parseGID(buf[:n])
}

// parseGID extracts the goroutine ID from stack trace bytes.
//
// Expected format: "goroutine 123 [running]:..."
// Returns the numeric ID (123 in this example) or 0 if parsing fails.
func parseGID(buf []byte) int64 {
	const prefix = "goroutine "
	const prefixLen = len(prefix)

	if len(buf) < prefixLen {
		return 0
	}
	if string(buf[:prefixLen]) != prefix {
		return 0
	}

	var gid int64
	for i := prefixLen; i < len(buf); i++ {
		//nolint:gosec // G602: i is always < len(buf) due to loop condition
		c := buf[i]
		if c < '0' || c > '9' {
			// Space before "[running]" terminates the ID.
			break
		}
		gid = gid*10 + int64(c-'0')
	}

	return gid
}

// liveGoroutineIDs returns the IDs of all live goroutines.
//
// runtime.Stack(all=true) stops the world, so callers amortize this over
// many thread allocations.
//
// Performance: ~1ms for 1000 goroutines.
func liveGoroutineIDs() []int64 {
	// A truncated dump still lists every goroutine header that fit;
	// grow until the whole dump fits.
	buf := make([]byte, 64*1024)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) {
			return parseAllGIDs(buf[:n])
		}
		buf = make([]byte, 2*len(buf))
	}
}

// parseAllGIDs parses runtime.Stack(all=true) output to extract all goroutine IDs.
//
// Input format (example):
//
//	goroutine 1 [running]:
//	main.main()
//	    /path/to/main.go:10 +0x20
//
//	goroutine 5 [chan receive]:
//	main.worker()
//	    /path/to/main.go:20 +0x40
//
// We extract: [1, 5].
func parseAllGIDs(buf []byte) []int64 {
	var gids []int64

	i := 0
	for i < len(buf) {
		end := i
		for end < len(buf) && buf[end] != '\n' {
			end++
		}

		if gid := parseGID(buf[i:end]); gid != 0 {
			gids = append(gids, gid)
		}

		i = end + 1
	}

	return gids
}
