package fingerprint

import (
	"context"
	"errors"
	"io/fs"
)

// Entry is one file of a recorded footprint with its fingerprint.
type Entry struct {
	Path string
	Hash uint64
}

// Manifest is the fingerprinted footprint of one test execution.
//
// Algorithm is recorded with the entries: fingerprints from a different
// algorithm never compare equal.
type Manifest struct {
	Algorithm string
	Entries   []Entry
}

// Manifest fingerprints paths (typically a tracer's user files).
func (c *Cache) Manifest(ctx context.Context, paths []string) (Manifest, error) {
	hashes, err := c.HashAll(ctx, paths)
	if err != nil {
		return Manifest{}, err
	}

	m := Manifest{Algorithm: Algorithm, Entries: make([]Entry, len(paths))}
	for i, p := range paths {
		m.Entries[i] = Entry{Path: p, Hash: hashes[i]}
	}
	return m, nil
}

// Unchanged reports whether every file of m still has its recorded
// fingerprint.
//
// A file that no longer exists counts as changed. Other read failures are
// returned.
func (c *Cache) Unchanged(m Manifest) (bool, error) {
	if m.Algorithm != Algorithm {
		return false, nil
	}
	for _, e := range m.Entries {
		h, err := c.Hash(e.Path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return false, nil
			}
			return false, err
		}
		if h != e.Hash {
			return false, nil
		}
	}
	return true, nil
}
