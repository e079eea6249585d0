package hostrt

import (
	"fmt"
	"go/build"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
)

// Installation scheme keys, in the order Prefixes reports them.
const (
	PathStdlib     = "stdlib"
	PathPurelib    = "purelib"
	PathPlatStdlib = "platstdlib"
	PathPlatlib    = "platlib"
)

// Paths is the installation configuration of the running toolchain.
//
// Files under any of these roots belong to the platform or to third-party
// modules rather than to the code under test.
type Paths struct {
	// Stdlib is the standard library source root ($GOROOT/src).
	Stdlib string
	// PlatStdlib is the toolchain's platform-specific tree ($GOROOT/pkg).
	PlatStdlib string
	// Purelib is the module download cache ($GOMODCACHE).
	Purelib string
	// Platlib is the GOPATH package tree ($GOPATH/pkg).
	Platlib string

	// Modules are extra dependency roots, typically produced by
	// PathsForModule (one entry per required module version plus vendor/).
	Modules []string
}

// Get returns the root registered under a scheme key.
func (p Paths) Get(name string) (string, bool) {
	switch name {
	case PathStdlib:
		return p.Stdlib, p.Stdlib != ""
	case PathPurelib:
		return p.Purelib, p.Purelib != ""
	case PathPlatStdlib:
		return p.PlatStdlib, p.PlatStdlib != ""
	case PathPlatlib:
		return p.Platlib, p.Platlib != ""
	default:
		return "", false
	}
}

// Prefixes returns every non-empty root in a fixed order: the scheme keys
// (stdlib, purelib, platstdlib, platlib) followed by Modules.
func (p Paths) Prefixes() []string {
	var out []string
	for _, name := range []string{PathStdlib, PathPurelib, PathPlatStdlib, PathPlatlib} {
		if root, ok := p.Get(name); ok {
			out = append(out, root)
		}
	}
	for _, m := range p.Modules {
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

// DefaultPaths queries the installation configuration of the toolchain
// that built the running binary, honoring GOROOT, GOPATH and GOMODCACHE.
func DefaultPaths() Paths {
	ctx := build.Default

	var p Paths
	if ctx.GOROOT != "" {
		p.Stdlib = filepath.Join(ctx.GOROOT, "src")
		p.PlatStdlib = filepath.Join(ctx.GOROOT, "pkg")
	}

	gopath := firstGOPATH(ctx.GOPATH)
	if gopath != "" {
		p.Platlib = filepath.Join(gopath, "pkg")
	}
	p.Purelib = moduleCache(gopath)

	return p
}

// moduleCache returns $GOMODCACHE, defaulting to $GOPATH/pkg/mod.
func moduleCache(gopath string) string {
	if dir := os.Getenv("GOMODCACHE"); dir != "" {
		return dir
	}
	if gopath == "" {
		return ""
	}
	return filepath.Join(gopath, "pkg", "mod")
}

// firstGOPATH returns the first entry of a GOPATH list.
func firstGOPATH(list string) string {
	for _, dir := range filepath.SplitList(list) {
		if dir != "" {
			return dir
		}
	}
	return ""
}

// PathsForModule narrows base to the dependency roots of a Go module.
//
// For every require and versioned replace directive in goModPath, the
// module's extraction directory inside base.Purelib is added
// ($GOMODCACHE/<escaped path>@<escaped version>), together with the
// module's vendor/ directory. Local filesystem replacements are left out:
// they are part of the workspace under test.
//
// The per-module roots replace the blanket module-cache root: Purelib is
// cleared, and so is Platlib when the cache lies under it. Module-cache
// files that belong to no listed dependency, such as a module under test
// that was itself extracted into the cache, then count as user code.
//
// Returns an error if the go.mod file cannot be read or parsed.
func PathsForModule(base Paths, goModPath string) (Paths, error) {
	data, err := os.ReadFile(goModPath)
	if err != nil {
		return base, fmt.Errorf("reading %s: %w", goModPath, err)
	}

	mf, err := modfile.Parse(goModPath, data, nil)
	if err != nil {
		return base, fmt.Errorf("parsing %s: %w", goModPath, err)
	}

	out := base
	out.Modules = append([]string(nil), base.Modules...)
	out.Modules = append(out.Modules, filepath.Join(filepath.Dir(goModPath), "vendor"))

	cache := base.Purelib
	if cache == "" {
		return out, nil
	}

	for _, req := range mf.Require {
		if dir, ok := moduleDir(cache, req.Mod); ok {
			out.Modules = append(out.Modules, dir)
		}
	}
	for _, rep := range mf.Replace {
		if rep.New.Version == "" {
			// Local path replacement.
			continue
		}
		if dir, ok := moduleDir(cache, rep.New); ok {
			out.Modules = append(out.Modules, dir)
		}
	}

	out.Purelib = ""
	if within(cache, out.Platlib) {
		out.Platlib = ""
	}
	return out, nil
}

// within reports whether path is root or lies below it.
func within(path, root string) bool {
	if root == "" {
		return false
	}
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// moduleDir returns the module cache directory of mod, or false if its
// path or version cannot be escaped.
func moduleDir(cache string, mod module.Version) (string, bool) {
	escPath, err := module.EscapePath(mod.Path)
	if err != nil {
		return "", false
	}
	escVersion, err := module.EscapeVersion(mod.Version)
	if err != nil {
		return "", false
	}
	return filepath.Join(cache, escPath+"@"+escVersion), true
}

// FindGoMod walks up from startDir looking for a go.mod file.
//
// Returns the path to go.mod, or "" if none is found before the
// filesystem root.
func FindGoMod(startDir string) string {
	dir := startDir
	for {
		modPath := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(modPath); err == nil {
			return modPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}
