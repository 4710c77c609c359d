package metamutant

import (
	"testing"

	"wasmut.dev/pkg/wasmut/internal/discovery"
	"wasmut.dev/pkg/wasmut/internal/operator"
	"wasmut.dev/pkg/wasmut/internal/wasm"
)

func buildAddModule() *wasm.Module {
	return &wasm.Module{
		Types: []wasm.FunctionType{{Params: []wasm.ValueType{wasm.I32, wasm.I32}, Results: []wasm.ValueType{wasm.I32}}},
		Funcs: []wasm.Function{{
			TypeIndex: 0,
			Code: []byte{
				byte(wasm.OpLocalGet), 0x00,
				byte(wasm.OpLocalGet), 0x01,
				byte(wasm.OpI32Add),
			},
			Name: "add",
		}},
		Exports: []wasm.Export{{Name: "add", Kind: wasm.ExportFunc, Index: 0}},
	}
}

func TestBuildInjectsHostImportsAndBranch(t *testing.T) {
	m := buildAddModule()
	reg, err := operator.NewRegistry([]string{"^binop_add_to_sub$"})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	candidates, err := discovery.Discover(m, nil, reg, nil)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}

	artifact, err := Build(m, candidates)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(artifact.Module.Imports) != 2 {
		t.Fatalf("expected 2 host imports, got %d", len(artifact.Module.Imports))
	}
	if artifact.Module.ImportedFuncCount != 2 {
		t.Fatalf("expected ImportedFuncCount=2, got %d", artifact.Module.ImportedFuncCount)
	}
	// The original module's exported function index (0) must now point at
	// the shifted defined-function index (2), since two imports preceded it.
	if artifact.Module.Exports[0].Index != 2 {
		t.Fatalf("export index not renumbered: got %d", artifact.Module.Exports[0].Index)
	}

	rewritten := artifact.Module.Funcs[0]
	instrs, err := rewritten.Instructions()
	if err != nil {
		t.Fatalf("Instructions: %v", err)
	}
	foundCall := false
	foundIf := false
	for _, ins := range instrs {
		if ins.Opcode == wasm.OpCall && ins.FuncIndex == artifact.ActiveMutationFunc {
			foundCall = true
		}
		if ins.Opcode == wasm.OpIf {
			foundIf = true
		}
	}
	if !foundCall {
		t.Errorf("expected a call to active_mutation_id in the rewritten body")
	}
	if !foundIf {
		t.Errorf("expected an if in the rewritten body")
	}
}

// TestBuildEmitsOneMarkTouchedPerSite covers a site matched by two
// operators (relop_lt_to_ge and relop_lt_to_le both rewrite I32LtS) and
// checks mark_touched is called exactly once there, not once per cascade
// arm.
func TestBuildEmitsOneMarkTouchedPerSite(t *testing.T) {
	m := &wasm.Module{
		Types: []wasm.FunctionType{{Params: []wasm.ValueType{wasm.I32, wasm.I32}, Results: []wasm.ValueType{wasm.I32}}},
		Funcs: []wasm.Function{{
			TypeIndex: 0,
			Code: []byte{
				byte(wasm.OpLocalGet), 0x00,
				byte(wasm.OpLocalGet), 0x01,
				byte(wasm.OpI32LtS),
			},
			Name: "lt",
		}},
		Exports: []wasm.Export{{Name: "lt", Kind: wasm.ExportFunc, Index: 0}},
	}

	reg, err := operator.NewRegistry([]string{"^relop_lt_to_ge$", "^relop_lt_to_le$"})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	candidates, err := discovery.Discover(m, nil, reg, nil)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates at the same site, got %d", len(candidates))
	}

	artifact, err := Build(m, candidates)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	rewritten := artifact.Module.Funcs[0]
	instrs, err := rewritten.Instructions()
	if err != nil {
		t.Fatalf("Instructions: %v", err)
	}
	markCalls := 0
	for _, ins := range instrs {
		if ins.Opcode == wasm.OpCall && ins.FuncIndex == artifact.MarkTouchedFunc {
			markCalls++
		}
	}
	if markCalls != 1 {
		t.Errorf("expected exactly 1 call to mark_touched for a 2-candidate site, got %d", markCalls)
	}
}

// TestBuildClassicalReplacesInPlace covers the meta_mutant=false path: one
// dedicated module per candidate, no host imports, no branch — just the
// candidate's replacement bytes spliced in where the original instruction
// was.
func TestBuildClassicalReplacesInPlace(t *testing.T) {
	m := buildAddModule()
	reg, err := operator.NewRegistry([]string{"^binop_add_to_sub$"})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	candidates, err := discovery.Discover(m, nil, reg, nil)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}

	artifact, err := BuildClassical(m, candidates)
	if err != nil {
		t.Fatalf("BuildClassical: %v", err)
	}
	if artifact.Module != nil {
		t.Fatalf("expected no shared cascade module in classical mode")
	}
	if artifact.BaselineModule == nil {
		t.Fatalf("expected a baseline module in classical mode")
	}

	mm, ok := artifact.ClassicalModules[int32(candidates[0].ID)]
	if !ok {
		t.Fatalf("expected a dedicated module for candidate %d", candidates[0].ID)
	}
	if len(mm.Imports) != 0 {
		t.Errorf("classical module should carry no host imports, got %d", len(mm.Imports))
	}

	instrs, err := mm.Funcs[0].Instructions()
	if err != nil {
		t.Fatalf("Instructions: %v", err)
	}
	foundSub := false
	for _, ins := range instrs {
		if ins.Opcode == wasm.OpI32Sub {
			foundSub = true
		}
		if ins.Opcode == wasm.OpI32Add {
			t.Errorf("original instruction should have been replaced, not kept alongside the replacement")
		}
	}
	if !foundSub {
		t.Errorf("expected the replacement opcode to be present in the classical module")
	}

	// The original module passed in must be untouched.
	orig, err := m.Funcs[0].Instructions()
	if err != nil {
		t.Fatalf("Instructions on original: %v", err)
	}
	foundOrigAdd := false
	for _, ins := range orig {
		if ins.Opcode == wasm.OpI32Add {
			foundOrigAdd = true
		}
	}
	if !foundOrigAdd {
		t.Errorf("BuildClassical must not mutate its input module")
	}
}
