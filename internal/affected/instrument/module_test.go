package instrument

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestRequiresRuntime tests go.mod checks for the runtime module.
func TestRequiresRuntime(t *testing.T) {
	tests := []struct {
		name   string
		gomod  string
		want   bool
		errMsg string
	}{
		{"require", "module example.com/app\n\nrequire github.com/kolkov/goaffected v0.1.0\n", true, ""},
		{"local replace", "module example.com/app\n\nreplace github.com/kolkov/goaffected => ../goaffected\n", true, ""},
		{"runtime module itself", "module github.com/kolkov/goaffected\n", true, ""},
		{"missing", "module example.com/app\n\nrequire golang.org/x/text v0.14.0\n", false, ""},
		{"invalid", "module example.com/app\n\nrequire (\n", false, "parsing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "go.mod")
			if err := os.WriteFile(path, []byte(tt.gomod), 0o644); err != nil {
				t.Fatal(err)
			}

			got, err := RequiresRuntime(path)
			if tt.errMsg != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
					t.Fatalf("error = %v, want containing %q", err, tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("RequiresRuntime failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("RequiresRuntime() = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := RequiresRuntime(filepath.Join(t.TempDir(), "go.mod")); err == nil {
		t.Error("RequiresRuntime succeeded on a missing file")
	}
}

// TestRuntimeModule_OwnsImportPath tests that the import path belongs to the module.
func TestRuntimeModule_OwnsImportPath(t *testing.T) {
	if !strings.HasPrefix(RuntimePackageImportPath, RuntimeModule+"/") {
		t.Errorf("%q is not inside module %q", RuntimePackageImportPath, RuntimeModule)
	}
}
