package footprint

import (
	"sort"
	"strings"
)

// DefaultSyntheticMarker is the filename prefix of units with no backing
// source file ("<autogenerated>", "<string>").
const DefaultSyntheticMarker = "<"

// Filter selects the user files of a footprint.
//
// A path is kept when it is non-empty, does not start with the synthetic
// marker, and is not under any exclusion prefix. The zero Filter keeps
// every non-empty path that does not start with DefaultSyntheticMarker.
type Filter struct {
	// Exclude lists install roots whose files are not user code.
	Exclude []string

	// SyntheticMarker overrides DefaultSyntheticMarker when non-empty.
	SyntheticMarker string
}

// NewFilter returns a filter over the given exclusion prefixes.
//
// Empty prefixes are dropped; an empty prefix would exclude everything.
func NewFilter(exclude []string, marker string) Filter {
	kept := make([]string, 0, len(exclude))
	for _, p := range exclude {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return Filter{Exclude: kept, SyntheticMarker: marker}
}

func (f Filter) marker() string {
	if f.SyntheticMarker != "" {
		return f.SyntheticMarker
	}
	return DefaultSyntheticMarker
}

// Keep reports whether path is a user file.
//
// Prefixes match on the raw string: "/usr/lib/rt" excludes both
// "/usr/lib/rt/json.ext" and "/usr/lib/rtx/a.ext".
func (f Filter) Keep(path string) bool {
	if path == "" {
		return false
	}
	if strings.HasPrefix(path, f.marker()) {
		return false
	}
	for _, prefix := range f.Exclude {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return false
		}
	}
	return true
}

// Apply returns the kept paths, sorted and deduplicated.
func (f Filter) Apply(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if f.Keep(p) {
			out = append(out, p)
		}
	}
	sort.Strings(out)

	// Dedup in place.
	n := 0
	for i, p := range out {
		if i > 0 && p == out[n-1] {
			continue
		}
		out[n] = p
		n++
	}
	return out[:n]
}
