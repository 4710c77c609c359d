package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFilters(t *testing.T) {
	cfg, err := Parse(`
[filter]
allowed_files = ["src/", "test/"]
allowed_functions = ["simple", "test"]
`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cfg.Filter.AllowedFiles) != 2 || cfg.Filter.AllowedFiles[0] != "src/" {
		t.Fatalf("allowed_files = %v", cfg.Filter.AllowedFiles)
	}
	if len(cfg.Filter.AllowedFunctions) != 2 || cfg.Filter.AllowedFunctions[1] != "test" {
		t.Fatalf("allowed_functions = %v", cfg.Filter.AllowedFunctions)
	}
}

func TestEngineConfig(t *testing.T) {
	cfg, err := Parse(`
[engine]
timeout_multiplier = 10
map_dirs = [["a/foo", "b/bar"], ["abcd", "abcd"]]
`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.TimeoutMultiplier() != 10.0 {
		t.Fatalf("TimeoutMultiplier() = %v, want 10.0", cfg.TimeoutMultiplier())
	}
	if len(cfg.Engine.MapDirs) != 2 || cfg.Engine.MapDirs[0].Host != "a/foo" || cfg.Engine.MapDirs[0].Guest != "b/bar" {
		t.Fatalf("map_dirs = %+v", cfg.Engine.MapDirs)
	}
}

func TestOperatorConfig(t *testing.T) {
	cfg, err := Parse(`
[operators]
enabled_operators = ["relop", "unop"]
`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []string{"relop", "unop"}
	if len(cfg.Operators.EnabledOperators) != len(want) {
		t.Fatalf("enabled_operators = %v", cfg.Operators.EnabledOperators)
	}
	for i, w := range want {
		if cfg.Operators.EnabledOperators[i] != w {
			t.Fatalf("enabled_operators[%d] = %v, want %v", i, cfg.Operators.EnabledOperators[i], w)
		}
	}
}

func TestReportConfig(t *testing.T) {
	cfg, err := Parse(`
[report]
path_rewrite = ["foo", "bar"]
`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	pattern, replacement, ok := cfg.PathRewrite()
	if !ok || pattern != "foo" || replacement != "bar" {
		t.Fatalf("PathRewrite() = %q, %q, %v", pattern, replacement, ok)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg, err := Parse("")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.TimeoutMultiplier() != 2.0 {
		t.Fatalf("TimeoutMultiplier() = %v, want 2.0", cfg.TimeoutMultiplier())
	}
	if len(cfg.Engine.MapDirs) != 0 {
		t.Fatalf("map_dirs = %v, want empty", cfg.Engine.MapDirs)
	}
	if len(cfg.Filter.AllowedFiles) != 0 || len(cfg.Filter.AllowedFunctions) != 0 {
		t.Fatal("filters should default to empty (allow everything)")
	}
	if !cfg.CoverageBasedExecution() {
		t.Fatal("coverage_based_execution should default to true")
	}
	if !cfg.MetaMutant() {
		t.Fatal("meta_mutant should default to true")
	}
}

func TestInvalidTimeoutMultiplierRejected(t *testing.T) {
	_, err := Parse(`
[engine]
timeout_multiplier = 0
`)
	if err == nil {
		t.Fatal("expected validation error for timeout_multiplier = 0")
	}
}

func TestInvalidReportFormatRejected(t *testing.T) {
	_, err := Parse(`
[report]
format = "xml"
`)
	if err == nil {
		t.Fatal("expected validation error for unknown report.format")
	}
}

func TestSaveDefaultConfigIsCreated(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wasmut.toml")
	if err := WriteDefaultConfig(path); err != nil {
		t.Fatalf("WriteDefaultConfig: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
}

func TestSaveDefaultConfigIsParsedCorrectly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wasmut.toml")
	if err := WriteDefaultConfig(path); err != nil {
		t.Fatalf("WriteDefaultConfig: %v", err)
	}
	if _, err := ParseFile(path); err != nil {
		t.Fatalf("ParseFile of the default template should succeed: %v", err)
	}
}

func TestResolvePathExplicitFileWins(t *testing.T) {
	path, ok := ResolvePath("/explicit/path.toml", "/some/dir")
	if !ok || path != "/explicit/path.toml" {
		t.Fatalf("ResolvePath = %q, %v", path, ok)
	}
}

func TestResolvePathConfigDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, DefaultFileName), []byte(""), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	path, ok := ResolvePath("", dir)
	if !ok || path != filepath.Join(dir, DefaultFileName) {
		t.Fatalf("ResolvePath = %q, %v", path, ok)
	}
}

func TestResolvePathNoneFound(t *testing.T) {
	dir := t.TempDir()
	_, ok := ResolvePath("", dir)
	if ok {
		t.Fatal("expected no config file to resolve in an empty directory")
	}
}

func TestLoadFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load("", dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TimeoutMultiplier() != 2.0 {
		t.Fatalf("Load should fall back to defaults, got TimeoutMultiplier() = %v", cfg.TimeoutMultiplier())
	}
}
