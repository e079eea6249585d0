package config

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
strategy: call-events
exclude:
  - /opt/vendor
synthetic_marker: "@"
log_level: debug
log_format: json
hash_workers: 2
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Strategy != "call-events" {
		t.Errorf("Strategy = %q, want call-events", cfg.Strategy)
	}
	if len(cfg.Exclude) != 1 || cfg.Exclude[0] != "/opt/vendor" {
		t.Errorf("Exclude = %v, want [/opt/vendor]", cfg.Exclude)
	}
	if cfg.SyntheticMarker != "@" {
		t.Errorf("SyntheticMarker = %q, want @", cfg.SyntheticMarker)
	}
	if cfg.HashWorkers != 2 {
		t.Errorf("HashWorkers = %d, want 2", cfg.HashWorkers)
	}
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "exclude: [/x]\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Strategy != "auto" || cfg.HashWorkers != 8 {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"strategy", "strategy: fastest\n", "invalid strategy"},
		{"level", "log_level: loud\n", "invalid log_level"},
		{"format", "log_format: xml\n", "invalid log_format"},
		{"workers", "hash_workers: -1\n", "invalid hash_workers"},
		{"yaml", "exclude: [unterminated\n", "parsing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.content)
			_, err := Load(path)
			if err == nil {
				t.Fatal("Load succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Load error = %v, want not-exist", err)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvStrategy, "eval-frame")
	t.Setenv(EnvExclude, strings.Join([]string{"/a", "", "/b"}, string(os.PathListSeparator)))
	t.Setenv(EnvLog, "debug,json")
	t.Setenv(EnvWorkers, "not-a-number")

	cfg := Default()
	cfg.Exclude = []string{"/base"}
	cfg.ApplyEnv()

	if cfg.Strategy != "eval-frame" {
		t.Errorf("Strategy = %q, want eval-frame", cfg.Strategy)
	}
	if want := []string{"/base", "/a", "/b"}; strings.Join(cfg.Exclude, ",") != strings.Join(want, ",") {
		t.Errorf("Exclude = %v, want %v", cfg.Exclude, want)
	}
	if cfg.LogLevel != "debug" || cfg.LogFormat != "json" {
		t.Errorf("log = %s,%s, want debug,json", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.HashWorkers != 8 {
		t.Errorf("HashWorkers = %d, want default 8", cfg.HashWorkers)
	}
}

func TestFromEnv(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "strategy: thread-scoped\n")
	t.Setenv(EnvConfig, path)
	t.Setenv(EnvStrategy, "")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Strategy != "thread-scoped" {
		t.Errorf("Strategy = %q, want thread-scoped", cfg.Strategy)
	}
}

func TestFromEnvInvalidOverride(t *testing.T) {
	t.Setenv(EnvConfig, "")
	t.Setenv(EnvStrategy, "bogus")

	if _, err := FromEnv(); err == nil {
		t.Error("FromEnv accepted invalid strategy")
	}
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "strategy: call-events\n")
	nested := filepath.Join(root, "pkg", "sub")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	t.Setenv(EnvConfig, "")
	t.Setenv(EnvStrategy, "")
	t.Chdir(nested)

	cfg, err := Discover()
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if cfg.Strategy != "call-events" {
		t.Errorf("Strategy = %q, want call-events", cfg.Strategy)
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := &Config{LogLevel: "info", LogFormat: "json"}
	log := cfg.Logger(&buf)

	log.Debug("hidden")
	log.Info("shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug record emitted at info level")
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"component":"affected"`) {
		t.Errorf("unexpected output: %s", out)
	}
}
