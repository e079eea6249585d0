package instrument

import (
	"fmt"
	"os"

	"golang.org/x/mod/modfile"
)

// RuntimeModule is the module that provides RuntimePackageImportPath.
const RuntimeModule = "github.com/kolkov/goaffected"

// RequiresRuntime reports whether the module declared by goModPath can
// build instrumented files: it is RuntimeModule itself, or requires or
// replaces it.
func RequiresRuntime(goModPath string) (bool, error) {
	data, err := os.ReadFile(goModPath)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", goModPath, err)
	}
	mf, err := modfile.Parse(goModPath, data, nil)
	if err != nil {
		return false, fmt.Errorf("parsing %s: %w", goModPath, err)
	}

	if mf.Module != nil && mf.Module.Mod.Path == RuntimeModule {
		return true, nil
	}
	for _, req := range mf.Require {
		if req.Mod.Path == RuntimeModule {
			return true, nil
		}
	}
	for _, rep := range mf.Replace {
		if rep.Old.Path == RuntimeModule {
			return true, nil
		}
	}
	return false, nil
}
