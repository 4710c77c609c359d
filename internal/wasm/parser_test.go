package wasm

import "testing"

func TestParseSimpleAdd(t *testing.T) {
	data := buildSimpleAdd()
	m, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(m.Types) != 1 {
		t.Fatalf("expected 1 type, got %d", len(m.Types))
	}
	if len(m.Funcs) != 1 {
		t.Fatalf("expected 1 function, got %d", len(m.Funcs))
	}
	if len(m.Exports) != 1 || m.Exports[0].Name != "add" {
		t.Fatalf("expected export named add, got %+v", m.Exports)
	}

	instrs, err := m.Funcs[0].Instructions()
	if err != nil {
		t.Fatalf("Instructions: %v", err)
	}
	wantOps := []Opcode{OpLocalGet, OpLocalGet, OpI32Add}
	if len(instrs) != len(wantOps) {
		t.Fatalf("expected %d instructions, got %d: %+v", len(wantOps), len(instrs), instrs)
	}
	for i, want := range wantOps {
		if instrs[i].Opcode != want {
			t.Errorf("instr %d: got opcode %s, want %s", i, instrs[i].Opcode, want)
		}
	}
	if instrs[0].Offset != 0 {
		t.Errorf("first instruction offset = %d, want 0", instrs[0].Offset)
	}
	if instrs[2].Offset != 4 {
		t.Errorf("i32.add offset = %d, want 4", instrs[2].Offset)
	}
}

func TestFuncTypeRoundTrip(t *testing.T) {
	m, err := Parse(buildSimpleAdd())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ft, ok := m.FuncType(m.ImportedFuncCount)
	if !ok {
		t.Fatalf("FuncType lookup failed")
	}
	if len(ft.Params) != 2 || len(ft.Results) != 1 {
		t.Fatalf("unexpected function type: %+v", ft)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	m, err := Parse(buildSimpleAdd())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	clone := m.Clone()
	clone.Funcs[0].Code[0] = byte(OpNop)
	if m.Funcs[0].Code[0] == byte(OpNop) {
		t.Fatalf("mutating clone leaked into original")
	}
}

func TestAppendFunctionImportsRenumbersCalls(t *testing.T) {
	b := &moduleBuilder{}
	voidType := append([]byte{0x60}, vec()...)
	voidType = append(voidType, vec()...)
	b.add(secType, vec(voidType))
	b.add(secFunction, vec(appendULEB128(nil, 0)))
	body := []byte{byte(OpCall), 0x00, byte(OpEnd)}
	localsVec := appendULEB128(nil, 0)
	funcBody := append(localsVec, body...)
	funcEntry := appendULEB128(nil, uint64(len(funcBody)))
	funcEntry = append(funcEntry, funcBody...)
	b.add(secCode, vec(funcEntry))

	m, err := Parse(b.bytes())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	indices := m.AppendFunctionImports([]Import{{Module: "wasmut", Name: "active_mutation_id", Kind: ImportFunc, FuncTypeIndex: 0}})
	if len(indices) != 1 || indices[0] != 0 {
		t.Fatalf("unexpected import indices: %v", indices)
	}
	instrs, err := m.Funcs[0].Instructions()
	if err != nil {
		t.Fatalf("Instructions: %v", err)
	}
	if instrs[0].Opcode != OpCall || instrs[0].FuncIndex != 1 {
		t.Fatalf("call target not renumbered: %+v", instrs[0])
	}
}
