package discovery

import (
	"testing"

	"wasmut.dev/pkg/wasmut/internal/operator"
	"wasmut.dev/pkg/wasmut/internal/policy"
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
	}
}

func TestDiscoverFindsAddCandidates(t *testing.T) {
	m := buildAddModule()
	reg, err := operator.NewRegistry([]string{"^binop_add_to_sub$"})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	candidates, err := Discover(m, nil, reg, nil)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d: %+v", len(candidates), candidates)
	}
	if candidates[0].Operator != "binop_add_to_sub" {
		t.Errorf("unexpected operator %q", candidates[0].Operator)
	}
	if candidates[0].Function != "add" {
		t.Errorf("unexpected function name %q", candidates[0].Function)
	}
	if candidates[0].ID != 0 {
		t.Errorf("expected first candidate to have ID 0, got %d", candidates[0].ID)
	}
}

func TestDiscoverRespectsPolicy(t *testing.T) {
	m := buildAddModule()
	reg, _ := operator.NewRegistry(nil)
	pol, err := policy.Build(policy.Filter{AllowedFunctions: []string{"^nonexistent$"}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	candidates, err := Discover(m, nil, reg, pol)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("expected policy to exclude all candidates, got %d", len(candidates))
	}
}

// TestDiscoverSkipsUnknownPrefixedOpcodes proves a function containing an
// opcode the decoder doesn't interpret (here, the SIMD v128.load, an
// 0xFD-prefixed instruction) still decodes far enough to keep walking the
// rest of the function, rather than aborting the whole run. The SIMD
// instruction itself must never be offered to any operator.
func TestDiscoverSkipsUnknownPrefixedOpcodes(t *testing.T) {
	m := &wasm.Module{
		Types: []wasm.FunctionType{{Params: []wasm.ValueType{wasm.I32, wasm.I32}, Results: []wasm.ValueType{wasm.I32}}},
		Funcs: []wasm.Function{{
			TypeIndex: 0,
			Code: []byte{
				byte(wasm.OpLocalGet), 0x00, // memory address operand, unused by this synthetic module
				byte(wasm.OpPrefixedFD), byte(wasm.SubV128Load), 0x02, 0x00, // v128.load align=2 offset=0
				byte(wasm.OpLocalGet), 0x00,
				byte(wasm.OpLocalGet), 0x01,
				byte(wasm.OpI32Add),
			},
			Name: "add_with_simd",
		}},
	}

	reg, err := operator.NewRegistry([]string{"^binop_add_to_sub$"})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	candidates, err := Discover(m, nil, reg, nil)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate (the add), got %d: %+v", len(candidates), candidates)
	}
	if candidates[0].Operator != "binop_add_to_sub" {
		t.Errorf("unexpected operator %q", candidates[0].Operator)
	}
}

func TestFunctionsListsDefinedFunctions(t *testing.T) {
	m := buildAddModule()
	entries := Functions(m, nil)
	if len(entries) != 1 || entries[0].Name != "add" || !entries[0].Allowed {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}
