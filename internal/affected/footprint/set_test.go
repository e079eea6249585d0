package footprint

import (
	"fmt"
	"sync"
	"testing"
)

// TestSet_AddContains tests basic insertion semantics.
func TestSet_AddContains(t *testing.T) {
	s := NewSet()

	if !s.Add("/src/a.go") {
		t.Error("first Add returned false")
	}
	if s.Add("/src/a.go") {
		t.Error("duplicate Add returned true")
	}
	if !s.Contains("/src/a.go") {
		t.Error("Contains returned false for added path")
	}
	if s.Contains("/src/b.go") {
		t.Error("Contains returned true for missing path")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

// TestSet_Clear tests that Clear empties the set and it stays usable.
func TestSet_Clear(t *testing.T) {
	s := NewSet()
	s.Add("/src/a.go")
	s.Add("/src/b.go")

	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", s.Len())
	}

	s.Add("/src/c.go")
	if got := s.Snapshot(); len(got) != 1 || got[0] != "/src/c.go" {
		t.Errorf("Snapshot() = %v, want [/src/c.go]", got)
	}
}

// TestSet_Snapshot tests sorted output.
func TestSet_Snapshot(t *testing.T) {
	s := NewSet()
	for _, p := range []string{"/c", "/a", "/b"} {
		s.Add(p)
	}

	got := s.Snapshot()
	want := []string{"/a", "/b", "/c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Snapshot() = %v, want %v", got, want)
		}
	}
}

// TestSet_Merge tests set union.
func TestSet_Merge(t *testing.T) {
	a, b := NewSet(), NewSet()
	a.Add("/a")
	b.Add("/b")
	b.Add("/a")

	a.Merge(b)
	a.Merge(nil)
	a.Merge(a)

	if a.Len() != 2 || !a.Contains("/b") {
		t.Errorf("Merge result = %v, want [/a /b]", a.Snapshot())
	}
}

// TestSet_ConcurrentUnion tests that disjoint concurrent inserts lose nothing.
func TestSet_ConcurrentUnion(t *testing.T) {
	const (
		numWriters = 16
		perWriter  = 500
	)

	s := NewSet()
	var wg sync.WaitGroup
	for w := 0; w < numWriters; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				path := fmt.Sprintf("/w%d/f%d.go", w, i)
				s.Add(path)
				// Hot path: repeated insert of the same file.
				s.Add(path)
			}
		}(w)
	}

	// Concurrent reader.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			_ = s.Len()
			_ = s.AppendTo(nil)
		}
	}()

	wg.Wait()
	<-done

	if got := s.Len(); got != numWriters*perWriter {
		t.Errorf("Len() = %d, want %d", got, numWriters*perWriter)
	}
}

// BenchmarkSet_AddExisting measures the hot path for a repeated file.
func BenchmarkSet_AddExisting(b *testing.B) {
	s := NewSet()
	s.Add("/src/hot.go")

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			s.Add("/src/hot.go")
		}
	})
}
