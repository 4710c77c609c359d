package engine

import (
	"context"
	"testing"

	"wasmut.dev/pkg/wasmut/internal/discovery"
	"wasmut.dev/pkg/wasmut/internal/metamutant"
	"wasmut.dev/pkg/wasmut/internal/result"
	"wasmut.dev/pkg/wasmut/internal/wasi"
	"wasmut.dev/pkg/wasmut/internal/wasm"
)

// addCheckModule builds a module exporting `_start`, which computes
// add(1,2) and calls proc_exit(1) if the result isn't 3, so that mutating
// the single i32.add into an i32.sub kills it and the unmutated baseline
// exits 0.
func addCheckModule() *wasm.Module {
	addType := wasm.FunctionType{Params: []wasm.ValueType{wasm.I32, wasm.I32}, Results: []wasm.ValueType{wasm.I32}}
	procExitType := wasm.FunctionType{Params: []wasm.ValueType{wasm.I32}}

	m := &wasm.Module{
		Types: []wasm.FunctionType{addType, procExitType, {}},
		Imports: []wasm.Import{
			{Module: wasi.ModuleName, Name: "proc_exit", Kind: wasm.ImportFunc, FuncTypeIndex: 1},
		},
		ImportedFuncCount: 1,
	}

	addCode := []byte{
		byte(wasm.OpLocalGet), 0x00,
		byte(wasm.OpLocalGet), 0x01,
		byte(wasm.OpI32Add),
	}
	m.Funcs = append(m.Funcs, wasm.Function{TypeIndex: 0, Code: addCode, Name: "add"})

	startCode := []byte{}
	emit := func(b ...byte) { startCode = append(startCode, b...) }
	emit(byte(wasm.OpI32Const), 1)
	emit(byte(wasm.OpI32Const), 2)
	emit(byte(wasm.OpCall), 0x01) // call add (func index 1: import 0 + defined 0)
	emit(byte(wasm.OpI32Const), 3)
	emit(byte(wasm.OpI32Ne))
	emit(byte(wasm.OpIf), 0x40)
	emit(byte(wasm.OpI32Const), 1)
	emit(byte(wasm.OpCall), 0x00) // call proc_exit (func index 0, the import)
	emit(byte(wasm.OpEnd))
	m.Funcs = append(m.Funcs, wasm.Function{TypeIndex: 2, Code: startCode, Name: "_start"})

	m.Exports = []wasm.Export{
		{Name: "_start", Kind: wasm.ExportFunc, Index: 2},
		{Name: "add", Kind: wasm.ExportFunc, Index: 1},
	}
	return m
}

func addToSubCandidate() discovery.Candidate {
	return discovery.Candidate{
		ID:                0,
		FuncIndex:         1, // the "add" function, after the proc_exit import
		InstructionOffset: 4, // offset of i32.add within addCode
		InstructionLength: 1,
		Operator:          "binop_add_to_sub",
		ReplacementBytes:  []byte{byte(wasm.OpI32Sub)},
		OriginalOpcode:    wasm.OpI32Add,
		Function:          "add",
	}
}

func TestBaselineExitsCleanly(t *testing.T) {
	artifact, err := metamutant.Build(addCheckModule(), []discovery.Candidate{addToSubCandidate()})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	baseline, err := RunBaseline(artifact, wasi.Config{}, false)
	if err != nil {
		t.Fatalf("RunBaseline: %v", err)
	}
	if baseline.Cycles <= 0 {
		t.Fatalf("expected positive consumed cycles, got %d", baseline.Cycles)
	}
}

func TestAddToSubMutantIsKilled(t *testing.T) {
	cand := addToSubCandidate()
	artifact, err := metamutant.Build(addCheckModule(), []discovery.Candidate{cand})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	baseline, err := RunBaseline(artifact, wasi.Config{}, false)
	if err != nil {
		t.Fatalf("RunBaseline: %v", err)
	}

	sp, err := result.NewSpill(t.TempDir())
	if err != nil {
		t.Fatalf("NewSpill: %v", err)
	}
	defer sp.Close()

	if err := Run(context.Background(), artifact, wasi.Config{}, Config{Workers: 1, TimeoutMultiplier: 2.0}, baseline, sp); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if sp.Len() != 1 {
		t.Fatalf("expected 1 recorded entry, got %d", sp.Len())
	}
	var got result.Entry
	_ = sp.Range(func(_ uint64, e result.Entry) error { got = e; return nil })
	if got.Outcome != result.Killed {
		t.Fatalf("expected Killed, got %v (detail %q)", got.Outcome, got.Detail)
	}
}

// TestClassicalAddToSubMutantIsKilledIdenticallyToMetaMutant proves
// testable property #3 (meta_mutant=true vs false produce identical
// per-candidate outcomes) for the one case this package can exercise
// without a real compiled module: the classical one-module-per-candidate
// path kills the same add-to-sub mutant the meta-mutant path kills in
// TestAddToSubMutantIsKilled.
func TestClassicalAddToSubMutantIsKilledIdenticallyToMetaMutant(t *testing.T) {
	cand := addToSubCandidate()
	artifact, err := metamutant.BuildClassical(addCheckModule(), []discovery.Candidate{cand})
	if err != nil {
		t.Fatalf("BuildClassical: %v", err)
	}
	baseline, err := RunBaseline(artifact, wasi.Config{}, false)
	if err != nil {
		t.Fatalf("RunBaseline: %v", err)
	}
	if baseline.Touched != nil {
		t.Fatalf("expected coverage to be forced off for a classical artifact")
	}

	sp, err := result.NewSpill(t.TempDir())
	if err != nil {
		t.Fatalf("NewSpill: %v", err)
	}
	defer sp.Close()

	if err := Run(context.Background(), artifact, wasi.Config{}, Config{Workers: 1, TimeoutMultiplier: 2.0}, baseline, sp); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if sp.Len() != 1 {
		t.Fatalf("expected 1 recorded entry, got %d", sp.Len())
	}
	var got result.Entry
	_ = sp.Range(func(_ uint64, e result.Entry) error { got = e; return nil })
	if got.Outcome != result.Killed {
		t.Fatalf("expected Killed, got %v (detail %q)", got.Outcome, got.Detail)
	}
}

// TestCoverageForcedOffWithoutMetaMutantModule guards against a classical
// baseline silently starving every candidate: if coverage stayed "on"
// with no mark_touched import to populate it, Touched would end up
// non-nil but empty, and every real candidate would be misclassified
// Skipped.
func TestCoverageForcedOffWithoutMetaMutantModule(t *testing.T) {
	cand := addToSubCandidate()
	artifact, err := metamutant.BuildClassical(addCheckModule(), []discovery.Candidate{cand})
	if err != nil {
		t.Fatalf("BuildClassical: %v", err)
	}
	baseline, err := RunBaseline(artifact, wasi.Config{}, true)
	if err != nil {
		t.Fatalf("RunBaseline: %v", err)
	}
	if baseline.Touched != nil {
		t.Fatalf("coverage must stay disabled for a classical artifact even when requested")
	}
}

func TestBudgetFormula(t *testing.T) {
	if got := Budget(0, 2.0); got != 1 {
		t.Fatalf("Budget(0, 2.0) = %d, want 1 (minimum)", got)
	}
	if got := Budget(10, 2.0); got != 20 {
		t.Fatalf("Budget(10, 2.0) = %d, want 20", got)
	}
	if got := Budget(11, 1.5); got != 17 { // ceil(16.5) = 17
		t.Fatalf("Budget(11, 1.5) = %d, want 17", got)
	}
}

func TestSkippedWhenUncoveredByBaseline(t *testing.T) {
	cand := addToSubCandidate()
	cand.ID = 5
	baseline := Baseline{Cycles: 10, Touched: map[int32]bool{}}
	e := classify(&metamutant.Artifact{Candidates: []discovery.Candidate{cand}}, wasi.Config{}, cand, baseline, 20)
	if e.Outcome != result.Skipped {
		t.Fatalf("expected Skipped, got %v", e.Outcome)
	}
}
