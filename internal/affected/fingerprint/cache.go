// Package fingerprint memoizes a fast content hash per file path.
//
// The first Hash of a path reads the whole file and computes its xxHash64;
// every later Hash of that path returns the stored value without touching
// the filesystem, even if the file has changed since. Callers that need to
// observe changes within one process use a fresh Cache per generation.
package fingerprint

import (
	"context"
	"os"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"
)

// Algorithm and Width identify the hash so persisted fingerprints can be
// checked for compatibility before comparison.
const (
	Algorithm = "xxh64"
	Width     = 64
)

// Sum returns the fingerprint of data.
func Sum(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// ReadFunc reads a file's full contents.
type ReadFunc func(path string) ([]byte, error)

// Option configures a Cache.
type Option func(*Cache)

// WithReader replaces os.ReadFile, typically with a counting or in-memory
// reader in tests.
func WithReader(read ReadFunc) Option {
	return func(c *Cache) { c.read = read }
}

// WithWorkers bounds the number of concurrent reads in HashAll.
// Zero or negative means unbounded.
func WithWorkers(n int) Option {
	return func(c *Cache) { c.workers = n }
}

// Cache is an append-only path to hash map.
//
// Entries are never overwritten or evicted. Two goroutines hashing the same
// uncached path concurrently may both read it; the first to store wins and
// both return the stored value.
//
// Thread Safety: all methods are safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]uint64

	read    ReadFunc
	workers int
	reads   atomic.Int64
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]uint64),
		read:    os.ReadFile,
		workers: 8,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Hash returns the fingerprint of path.
//
// A read failure is returned as *ReadError and is not cached, so the next
// call retries the read.
func (c *Cache) Hash(path string) (uint64, error) {
	c.mu.RLock()
	h, ok := c.entries[path]
	c.mu.RUnlock()
	if ok {
		return h, nil
	}

	c.reads.Add(1)
	data, err := c.read(path)
	if err != nil {
		return 0, &ReadError{Path: path, Err: err}
	}
	h = Sum(data)

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[path]; ok {
		return existing, nil
	}
	c.entries[path] = h
	return h, nil
}

// Lookup returns the cached fingerprint of path without reading it.
func (c *Cache) Lookup(path string) (uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.entries[path]
	return h, ok
}

// HashAll hashes paths concurrently and returns their fingerprints in
// input order.
//
// The first read failure cancels the remaining reads and is returned;
// fingerprints computed before it stay cached.
func (c *Cache) HashAll(ctx context.Context, paths []string) ([]uint64, error) {
	out := make([]uint64, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	if c.workers > 0 {
		g.SetLimit(c.workers)
	}
	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			h, err := c.Hash(p)
			if err != nil {
				return err
			}
			out[i] = h
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Len returns the number of cached paths.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Reads returns the number of file reads attempted, failed ones included.
func (c *Cache) Reads() int64 {
	return c.reads.Load()
}
