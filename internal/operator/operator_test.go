package operator

import (
	"testing"

	"wasmut.dev/pkg/wasmut/internal/wasm"
)

func TestBinopAddToSub(t *testing.T) {
	ins := wasm.Instruction{Opcode: wasm.OpI32Add}
	reps := binopAddToSub.Generate(ins, nil)
	if len(reps) != 1 {
		t.Fatalf("expected 1 replacement, got %d", len(reps))
	}
	if reps[0].Bytes[0] != byte(wasm.OpI32Sub) {
		t.Fatalf("expected i32.sub opcode byte, got %#x", reps[0].Bytes[0])
	}
}

func TestBinopMulToDivProducesBothSignedAndUnsigned(t *testing.T) {
	ins := wasm.Instruction{Opcode: wasm.OpI32Mul}
	reps := binopMulToDiv.Generate(ins, nil)
	if len(reps) != 2 {
		t.Fatalf("expected 2 replacements (div_s, div_u), got %d", len(reps))
	}
}

func TestConstReplaceZeroOnlyMatchesZero(t *testing.T) {
	zero := wasm.Instruction{Opcode: wasm.OpI32Const, I32: 0}
	nonzero := wasm.Instruction{Opcode: wasm.OpI32Const, I32: 5}
	if reps := constReplaceZero.Generate(zero, nil); len(reps) != 1 {
		t.Fatalf("expected a replacement for zero const, got %d", len(reps))
	}
	if reps := constReplaceZero.Generate(nonzero, nil); len(reps) != 0 {
		t.Fatalf("expected no replacement for nonzero const, got %d", len(reps))
	}
}

func TestConstReplaceZeroIgnoresFloats(t *testing.T) {
	f := wasm.Instruction{Opcode: wasm.OpF64Const, F64: 0}
	if reps := constReplaceZero.Generate(f, nil); len(reps) != 0 {
		t.Fatalf("expected float constants to be left alone, got %d replacements", len(reps))
	}
}

func TestCallRemoveVoidCall(t *testing.T) {
	m := &wasm.Module{
		Types: []wasm.FunctionType{{Params: []wasm.ValueType{wasm.I32, wasm.I32}, Results: nil}},
		Funcs: []wasm.Function{{TypeIndex: 0}},
	}
	ctx := NewContext(m)
	ins := wasm.Instruction{Opcode: wasm.OpCall, FuncIndex: 0}
	reps := callRemoveVoidCall.Generate(ins, ctx)
	if len(reps) != 1 {
		t.Fatalf("expected 1 replacement, got %d", len(reps))
	}
	want := []byte{byte(wasm.OpDrop), byte(wasm.OpDrop), byte(wasm.OpNop)}
	if string(reps[0].Bytes) != string(want) {
		t.Fatalf("got %v, want %v", reps[0].Bytes, want)
	}
}

func TestCallRemoveScalarCall(t *testing.T) {
	m := &wasm.Module{
		Types: []wasm.FunctionType{{Params: []wasm.ValueType{wasm.I32}, Results: []wasm.ValueType{wasm.I32}}},
		Funcs: []wasm.Function{{TypeIndex: 0}},
	}
	ctx := NewContext(m)
	ins := wasm.Instruction{Opcode: wasm.OpCall, FuncIndex: 0}
	reps := callRemoveScalarCall.Generate(ins, ctx)
	if len(reps) != 1 {
		t.Fatalf("expected 1 replacement, got %d", len(reps))
	}
	want := append([]byte{byte(wasm.OpDrop)}, wasm.EncodeI32Const(42)...)
	if string(reps[0].Bytes) != string(want) {
		t.Fatalf("got %v, want %v", reps[0].Bytes, want)
	}
}

func TestRegistryEmptyPatternEnablesEverything(t *testing.T) {
	r, err := NewRegistry(nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if len(r.Operators()) != len(All) {
		t.Fatalf("expected all %d operators enabled, got %d", len(All), len(r.Operators()))
	}
}

func TestRegistryFiltersByName(t *testing.T) {
	r, err := NewRegistry([]string{"^binop_add_to_sub$"})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if len(r.Operators()) != 1 || r.Operators()[0].Name != "binop_add_to_sub" {
		t.Fatalf("unexpected enabled set: %+v", r.Operators())
	}
	if r.Enabled("binop_sub_to_add") {
		t.Fatalf("binop_sub_to_add should not be enabled")
	}
}
