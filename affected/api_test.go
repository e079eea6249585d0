package affected

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kolkov/goaffected/internal/affected/fingerprint"
	"github.com/kolkov/goaffected/internal/affected/tracer"
)

func TestTrace_NestedUnits(t *testing.T) {
	a := NewCode("/work/pkg/a.go", "pkg")
	b := NewCode("/work/pkg/b.go", "pkg")

	files, err := Trace(func() {
		Call(a, func() {
			Enter(b)
		})
	})
	if err != nil {
		t.Fatalf("Trace: %v", err)
	}
	if len(files) != 2 || files[0] != "/work/pkg/a.go" || files[1] != "/work/pkg/b.go" {
		t.Errorf("files = %v", files)
	}
	if GetInfo().Tracing {
		t.Error("still tracing after Trace returned")
	}
}

func TestTrace_PanicStopsTracing(t *testing.T) {
	func() {
		defer func() { _ = recover() }()
		_, _ = Trace(func() { panic("test failure") })
	}()

	if GetInfo().Tracing {
		t.Error("tracing left active after panicking test body")
	}
	if err := Start(); err != nil {
		t.Fatalf("Start after panic: %v", err)
	}
	if err := Start(); !errors.Is(err, tracer.ErrAlreadyTracing) {
		t.Errorf("second Start = %v, want ErrAlreadyTracing", err)
	}
	if err := Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := Stop(); !errors.Is(err, tracer.ErrNotTracing) {
		t.Errorf("second Stop = %v, want ErrNotTracing", err)
	}
}

func TestRegisterThread(t *testing.T) {
	unregister, err := RegisterThread()
	if err != nil {
		t.Fatalf("RegisterThread: %v", err)
	}
	unregister()
}

func TestHashFile_Fingerprint(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	if err := os.WriteFile(path, []byte("package a\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	h, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if h != fingerprint.Sum([]byte("package a\n")) {
		t.Errorf("HashFile = %x", h)
	}

	m, err := Fingerprint(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if ok, err := Unchanged(m); err != nil || !ok {
		t.Errorf("Unchanged = %v, %v", ok, err)
	}

	var re *fingerprint.ReadError
	if _, err := HashFile(filepath.Join(dir, "missing.go")); !errors.As(err, &re) {
		t.Errorf("HashFile(missing) error = %v, want *ReadError", err)
	}
}

func TestGetInfo(t *testing.T) {
	info := GetInfo()
	if info.Version != Version {
		t.Errorf("Version = %q, want %q", info.Version, Version)
	}
	if info.Hash != "xxh64" {
		t.Errorf("Hash = %q, want xxh64", info.Hash)
	}
	if info.Strategy == "unavailable" || info.Strategy == "auto" {
		t.Errorf("Strategy = %q, want a resolved strategy", info.Strategy)
	}
}
