package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"wasmut.dev/pkg/wasmut/internal/discovery"
	"wasmut.dev/pkg/wasmut/internal/result"
)

func TestHTMLReporterWritesIndexAndDetailPages(t *testing.T) {
	srcDir := t.TempDir()
	file := filepath.Join(srcDir, "add.c")
	if err := os.WriteFile(file, []byte("int add(int a, int b) {\n    return a + b;\n}\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	entries := []result.Entry{
		{Candidate: discovery.Candidate{ID: 0, File: file, Line: 2, Operator: "binop_add_to_sub", Description: "replaced addition with subtraction"}, Outcome: result.Killed},
		{Candidate: discovery.Candidate{ID: 1, File: file, Line: 2, Operator: "binop_add_to_sub", Description: "replaced addition with subtraction"}, Outcome: result.Alive},
	}

	outDir := filepath.Join(t.TempDir(), "report")
	r := NewHTMLReporter(outDir, nil)
	if err := r.Report(entries); err != nil {
		t.Fatalf("Report: %v", err)
	}

	indexBytes, err := os.ReadFile(filepath.Join(outDir, "index.html"))
	if err != nil {
		t.Fatalf("index.html not written: %v", err)
	}
	index := string(indexBytes)
	if !strings.Contains(index, "50.0%") {
		t.Fatalf("index should show 50%% score, got:\n%s", index)
	}

	entries2, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var detail string
	for _, de := range entries2 {
		if de.Name() != "index.html" {
			detail = de.Name()
		}
	}
	if detail == "" {
		t.Fatal("expected a per-file detail page alongside index.html")
	}

	detailBytes, err := os.ReadFile(filepath.Join(outDir, detail))
	if err != nil {
		t.Fatalf("ReadFile detail: %v", err)
	}
	if !strings.Contains(string(detailBytes), "return a + b") {
		t.Fatalf("detail page missing source line, got:\n%s", string(detailBytes))
	}
	if !strings.Contains(string(detailBytes), "line-danger") {
		t.Fatalf("detail page should mark the alive-mutant line as danger, got:\n%s", string(detailBytes))
	}
}

func TestHTMLReporterSkipsEntriesWithNoFile(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "report")
	r := NewHTMLReporter(outDir, nil)
	entries := []result.Entry{
		{Candidate: discovery.Candidate{ID: 0, Function: "add"}, Outcome: result.Killed},
	}
	if err := r.Report(entries); err != nil {
		t.Fatalf("Report: %v", err)
	}
	files, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected only index.html, got %v", files)
	}
}

func TestScoreClassThresholds(t *testing.T) {
	if scoreClass(80) != "score-good" {
		t.Fatal("80 should be good")
	}
	if scoreClass(60) != "score-warn" {
		t.Fatal("60 should be warn")
	}
	if scoreClass(30) != "score-bad" {
		t.Fatal("30 should be bad")
	}
}
