package fingerprint

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
)

// memFS is an in-memory file table with a read counter.
type memFS struct {
	mu    sync.Mutex
	files map[string][]byte
	reads atomic.Int64
}

func newMemFS() *memFS {
	return &memFS{files: make(map[string][]byte)}
}

func (m *memFS) write(path string, data []byte) {
	m.mu.Lock()
	m.files[path] = data
	m.mu.Unlock()
}

func (m *memFS) remove(path string) {
	m.mu.Lock()
	delete(m.files, path)
	m.mu.Unlock()
}

func (m *memFS) read(path string) ([]byte, error) {
	m.reads.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return append([]byte(nil), data...), nil
}

// TestHash_SizesDistinct tests a 3-byte and a 3000-byte file, then 100 repeats.
func TestHash_SizesDistinct(t *testing.T) {
	mfs := newMemFS()
	mfs.write("/a", []byte("abc"))
	mfs.write("/b", bytes.Repeat([]byte("xyz"), 1000))
	c := New(WithReader(mfs.read))

	ha, err := c.Hash("/a")
	if err != nil {
		t.Fatalf("Hash(/a) failed: %v", err)
	}
	hb, err := c.Hash("/b")
	if err != nil {
		t.Fatalf("Hash(/b) failed: %v", err)
	}
	if ha == hb {
		t.Errorf("3-byte and 3000-byte files hash equal: %x", ha)
	}

	for i := 0; i < 100; i++ {
		h, err := c.Hash("/a")
		if err != nil {
			t.Fatalf("repeat %d failed: %v", i, err)
		}
		if h != ha {
			t.Fatalf("repeat %d = %x, want %x", i, h, ha)
		}
	}

	if got := mfs.reads.Load(); got != 2 {
		t.Errorf("reads = %d, want 2 (one per path)", got)
	}
	if c.Reads() != 2 || c.Len() != 2 {
		t.Errorf("Reads() = %d, Len() = %d, want 2, 2", c.Reads(), c.Len())
	}
}

// TestHash_EqualContent tests that identical bytes on different paths agree.
func TestHash_EqualContent(t *testing.T) {
	mfs := newMemFS()
	mfs.write("/one", []byte("same content"))
	mfs.write("/two", []byte("same content"))
	c := New(WithReader(mfs.read))

	h1, _ := c.Hash("/one")
	h2, _ := c.Hash("/two")
	if h1 != h2 {
		t.Errorf("equal content hashes differ: %x vs %x", h1, h2)
	}
	if h1 != Sum([]byte("same content")) {
		t.Error("Hash disagrees with Sum")
	}
}

// TestHash_NoInvalidation tests that a cached path is never re-read.
func TestHash_NoInvalidation(t *testing.T) {
	mfs := newMemFS()
	mfs.write("/a", []byte("v1"))
	c := New(WithReader(mfs.read))

	before, _ := c.Hash("/a")
	mfs.write("/a", []byte("v2"))
	after, _ := c.Hash("/a")

	if before != after {
		t.Error("cache re-read a changed file")
	}
	if fresh, _ := New(WithReader(mfs.read)).Hash("/a"); fresh == before {
		t.Error("fresh cache did not observe new content")
	}
}

// TestHash_ErrorNotCached tests typed failure and retry.
func TestHash_ErrorNotCached(t *testing.T) {
	mfs := newMemFS()
	c := New(WithReader(mfs.read))

	_, err := c.Hash("/missing")
	var re *ReadError
	if !errors.As(err, &re) {
		t.Fatalf("error = %T, want *ReadError", err)
	}
	if re.Path != "/missing" {
		t.Errorf("ReadError.Path = %q", re.Path)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("ReadError does not unwrap to fs.ErrNotExist")
	}
	if c.Len() != 0 {
		t.Error("failed read was cached")
	}

	mfs.write("/missing", []byte("now here"))
	if _, ok := c.Lookup("/missing"); ok {
		t.Error("Lookup found an entry for a failed read")
	}
	h, err := c.Hash("/missing")
	if err != nil {
		t.Errorf("retry failed: %v", err)
	}
	if got, ok := c.Lookup("/missing"); !ok || got != h {
		t.Errorf("Lookup = %x, %v; want %x, true", got, ok, h)
	}
	if mfs.reads.Load() != 2 {
		t.Errorf("reads = %d, want 2", mfs.reads.Load())
	}
}

// TestHash_RealFile tests the default os.ReadFile reader.
func TestHash_RealFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	h, err := New().Hash(path)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if h != Sum([]byte("hello")) {
		t.Errorf("Hash = %x, want %x", h, Sum([]byte("hello")))
	}
}

// TestHash_Concurrent tests the map under parallel first requests.
func TestHash_Concurrent(t *testing.T) {
	mfs := newMemFS()
	for i := 0; i < 10; i++ {
		mfs.write(fmt.Sprintf("/f%d", i), []byte(fmt.Sprintf("content %d", i)))
	}
	c := New(WithReader(mfs.read))

	var wg sync.WaitGroup
	for g := 0; g < 20; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				path := fmt.Sprintf("/f%d", i)
				h, err := c.Hash(path)
				if err != nil {
					t.Errorf("Hash(%s) failed: %v", path, err)
					return
				}
				if want := Sum([]byte(fmt.Sprintf("content %d", i))); h != want {
					t.Errorf("Hash(%s) = %x, want %x", path, h, want)
				}
			}
		}()
	}
	wg.Wait()

	if c.Len() != 10 {
		t.Errorf("Len() = %d, want 10", c.Len())
	}
}

// TestHashAll tests ordered concurrent hashing and error propagation.
func TestHashAll(t *testing.T) {
	mfs := newMemFS()
	mfs.write("/a", []byte("a"))
	mfs.write("/b", []byte("b"))
	c := New(WithReader(mfs.read), WithWorkers(2))

	got, err := c.HashAll(context.Background(), []string{"/b", "/a"})
	if err != nil {
		t.Fatalf("HashAll failed: %v", err)
	}
	if got[0] != Sum([]byte("b")) || got[1] != Sum([]byte("a")) {
		t.Errorf("HashAll order wrong: %x", got)
	}

	if _, err := c.HashAll(context.Background(), []string{"/a", "/nope"}); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("HashAll error = %v, want not-exist", err)
	}
}

// TestManifest_Unchanged tests footprint verification.
func TestManifest_Unchanged(t *testing.T) {
	mfs := newMemFS()
	mfs.write("/app.go", []byte("package app"))
	mfs.write("/util.go", []byte("package util"))

	m, err := New(WithReader(mfs.read)).Manifest(context.Background(), []string{"/app.go", "/util.go"})
	if err != nil {
		t.Fatalf("Manifest failed: %v", err)
	}
	if m.Algorithm != Algorithm || len(m.Entries) != 2 {
		t.Fatalf("Manifest = %+v", m)
	}

	ok, err := New(WithReader(mfs.read)).Unchanged(m)
	if err != nil || !ok {
		t.Errorf("Unchanged() = %v, %v; want true", ok, err)
	}

	mfs.write("/util.go", []byte("package util // edited"))
	if ok, _ := New(WithReader(mfs.read)).Unchanged(m); ok {
		t.Error("edited file reported unchanged")
	}

	mfs.remove("/util.go")
	if ok, err := New(WithReader(mfs.read)).Unchanged(m); ok || err != nil {
		t.Errorf("deleted file: Unchanged() = %v, %v; want false, nil", ok, err)
	}

	m.Algorithm = "murmur3"
	if ok, _ := New(WithReader(mfs.read)).Unchanged(m); ok {
		t.Error("foreign algorithm compared equal")
	}
}

// BenchmarkHash_Cached measures the cached lookup path.
func BenchmarkHash_Cached(b *testing.B) {
	mfs := newMemFS()
	mfs.write("/a", bytes.Repeat([]byte("x"), 4096))
	c := New(WithReader(mfs.read))
	_, _ = c.Hash("/a")

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = c.Hash("/a")
	}
}
