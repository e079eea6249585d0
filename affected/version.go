package affected

import (
	"github.com/kolkov/goaffected/internal/affected/fingerprint"
	"github.com/kolkov/goaffected/internal/affected/tracer"
)

// Version information for the execution footprint tracer.
const (
	// Version is the current version of the tracer runtime.
	Version = "0.1.0"

	// VersionMajor is the major version number.
	VersionMajor = 0

	// VersionMinor is the minor version number.
	VersionMinor = 1

	// VersionPatch is the patch version number.
	VersionPatch = 0
)

// Info provides runtime information about the tracer.
type Info struct {
	// Version is the runtime version string.
	Version string

	// Strategy is the resolved hook strategy, or "unavailable" when the
	// process tracer could not be built.
	Strategy string

	// Hash is the fingerprint algorithm, e.g. "xxh64".
	Hash string

	// Tracing indicates whether recording is active.
	Tracing bool
}

// GetInfo returns information about the tracer runtime.
//
// Example:
//
//	info := affected.GetInfo()
//	fmt.Printf("affected %s (%s, %s)\n", info.Version, info.Strategy, info.Hash)
func GetInfo() Info {
	info := Info{
		Version:  Version,
		Strategy: "unavailable",
		Hash:     fingerprint.Algorithm,
	}
	if t, err := tracer.Default(); err == nil {
		info.Strategy = t.Strategy().String()
		info.Tracing = t.Tracing()
	}
	return info
}
