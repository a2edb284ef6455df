package preflight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rookery/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckCreatableDirectory_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "c")
	result := CheckCreatableDirectory("test", path)
	if !result.Passed {
		t.Fatalf("expected pass for creatable dir, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "will be created") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckCreatableDirectory_UnderFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckCreatableDirectory("test", f)
	if result.Passed {
		t.Fatal("expected failure when path is a file")
	}
}

func TestCheckOutputFormat(t *testing.T) {
	if r := CheckOutputFormat("geojson"); !r.Passed || r.Detail != ".geojson" {
		t.Fatalf("unexpected result %+v", r)
	}
	if r := CheckOutputFormat("shp"); r.Passed {
		t.Fatal("expected failure for shp")
	}
}

func TestCheckLedger(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Paths.SaveDir = filepath.Join(t.TempDir(), "out")
	cfg.Paths.LogDir = ""

	result := CheckLedger(context.Background(), &cfg)
	if !result.Passed {
		t.Fatalf("expected ledger pass, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "0 runs") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestRunAllAndFailed(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.SaveDir = filepath.Join(base, "out")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = ""

	results := RunAll(context.Background(), &cfg)
	if len(results) != 3 {
		t.Fatalf("expected 3 results without log dir, got %d", len(results))
	}
	if err := Failed(results); err != nil {
		t.Fatalf("expected all checks to pass: %v", err)
	}

	cfg.Nests.OutputFormat = "shp"
	if err := Failed(RunAll(context.Background(), &cfg)); err == nil || !strings.Contains(err.Error(), "Output format") {
		t.Fatalf("expected output format failure, got %v", err)
	}
	if RunAll(context.Background(), nil) != nil {
		t.Fatal("expected nil results for nil config")
	}
}
