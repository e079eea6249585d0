// Package footprint holds the set of source files observed during a
// tracing interval and the filter that turns it into user files.
package footprint

import (
	"sort"
	"sync"
)

// Set is a concurrent set of file paths.
//
// Writers dominate: every intercepted call inserts, while the coordinating
// goroutine reads and clears occasionally. Add takes a shared lock first and
// only upgrades to the exclusive lock for paths not yet present, so the
// steady state (a hot file called again and again) never serializes.
//
// Locks are held only for the map operation itself and never across a call
// back into instrumented code.
//
// Thread Safety: all methods are safe for concurrent use.
type Set struct {
	mu    sync.RWMutex
	paths map[string]struct{}
}

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{paths: make(map[string]struct{})}
}

// Add inserts path. Returns true if the path was not present.
//
// Performance: ~20ns for an existing path (RLock + map lookup),
// ~60ns for a new one.
func (s *Set) Add(path string) bool {
	s.mu.RLock()
	_, ok := s.paths[path]
	s.mu.RUnlock()
	if ok {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.paths[path]; ok {
		return false
	}
	s.paths[path] = struct{}{}
	return true
}

// Contains reports whether path is in the set.
func (s *Set) Contains(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.paths[path]
	return ok
}

// Len returns the number of paths.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.paths)
}

// Clear removes every path.
func (s *Set) Clear() {
	s.mu.Lock()
	s.paths = make(map[string]struct{})
	s.mu.Unlock()
}

// Snapshot returns the paths in sorted order.
func (s *Set) Snapshot() []string {
	out := s.AppendTo(nil)
	sort.Strings(out)
	return out
}

// AppendTo appends every path to dst in unspecified order.
func (s *Set) AppendTo(dst []string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for p := range s.paths {
		dst = append(dst, p)
	}
	return dst
}

// Merge adds every path of other to s.
//
// other is read under its own lock, released before s is written, so
// merging two sets into each other concurrently cannot deadlock.
func (s *Set) Merge(other *Set) {
	if other == nil || other == s {
		return
	}
	paths := other.AppendTo(nil)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range paths {
		s.paths[p] = struct{}{}
	}
}
