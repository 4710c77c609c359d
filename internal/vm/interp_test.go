package vm

import (
	"testing"

	"wasmut.dev/pkg/wasmut/internal/wasm"
)

func addModule() *wasm.Module {
	return &wasm.Module{
		Types: []wasm.FunctionType{{Params: []wasm.ValueType{wasm.I32, wasm.I32}, Results: []wasm.ValueType{wasm.I32}}},
		Funcs: []wasm.Function{{
			TypeIndex: 0,
			Code: []byte{
				byte(wasm.OpLocalGet), 0x00,
				byte(wasm.OpLocalGet), 0x01,
				byte(wasm.OpI32Add),
			},
		}},
		Exports: []wasm.Export{{Name: "add", Kind: wasm.ExportFunc, Index: 0}},
	}
}

func TestInvokeAdd(t *testing.T) {
	inst, err := Instantiate(addModule(), nil, nil)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	fi, ok := inst.Export("add")
	if !ok {
		t.Fatal("add export not found")
	}
	res, err := inst.Invoke(fi, []uint64{uint64(uint32(40)), uint64(uint32(2))})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if len(res) != 1 || int32(uint32(res[0])) != 42 {
		t.Fatalf("expected 42, got %v", res)
	}
}

// sumModule builds a function summing 0..n-1 via a loop, exercising
// block/loop/br_if and local mutation:
//
//	local 0 = n (param), local 1 = acc, local 2 = i
//	loop
//	  local.get 2; local.get 0; i32.ge_s; br_if 1      ;; exit when i >= n
//	  local.get 1; local.get 2; i32.add; local.set 1   ;; acc += i
//	  local.get 2; i32.const 1; i32.add; local.set 2   ;; i++
//	  br 0
//	end
func sumModule() *wasm.Module {
	code := []byte{}
	emit := func(b ...byte) { code = append(code, b...) }

	emit(byte(wasm.OpBlock), 0x40) // outer block, label 1 for the exit br_if
	emit(byte(wasm.OpLoop), 0x40)  // loop, label 0

	emit(byte(wasm.OpLocalGet), 2)
	emit(byte(wasm.OpLocalGet), 0)
	emit(byte(wasm.OpI32GeS))
	emit(byte(wasm.OpBrIf), 1)

	emit(byte(wasm.OpLocalGet), 1)
	emit(byte(wasm.OpLocalGet), 2)
	emit(byte(wasm.OpI32Add))
	emit(byte(wasm.OpLocalSet), 1)

	emit(byte(wasm.OpLocalGet), 2)
	emit(byte(wasm.OpI32Const), 1)
	emit(byte(wasm.OpI32Add))
	emit(byte(wasm.OpLocalSet), 2)

	emit(byte(wasm.OpBr), 0)
	emit(byte(wasm.OpEnd)) // end loop
	emit(byte(wasm.OpEnd)) // end block

	emit(byte(wasm.OpLocalGet), 1)

	return &wasm.Module{
		Types: []wasm.FunctionType{{Params: []wasm.ValueType{wasm.I32}, Results: []wasm.ValueType{wasm.I32}}},
		Funcs: []wasm.Function{{
			TypeIndex: 0,
			Locals:    []wasm.Local{{Count: 2, Type: wasm.I32}}, // acc, i
			Code:      code,
		}},
		Exports: []wasm.Export{{Name: "sum", Kind: wasm.ExportFunc, Index: 0}},
	}
}

func TestInvokeLoopSum(t *testing.T) {
	inst, err := Instantiate(sumModule(), nil, nil)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	fi, _ := inst.Export("sum")
	res, err := inst.Invoke(fi, []uint64{uint64(uint32(5))})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if int32(uint32(res[0])) != 10 { // 0+1+2+3+4
		t.Fatalf("expected 10, got %v", res)
	}
}

func TestBudgetExhaustion(t *testing.T) {
	budget := &Budget{Remaining: 2}
	inst, err := Instantiate(sumModule(), nil, budget)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	fi, _ := inst.Export("sum")
	_, err = inst.Invoke(fi, []uint64{uint64(uint32(1000))})
	if !IsTrap(err) {
		t.Fatalf("expected a budget trap, got %v", err)
	}
}

func TestDivideByZeroTraps(t *testing.T) {
	m := &wasm.Module{
		Types: []wasm.FunctionType{{Results: []wasm.ValueType{wasm.I32}}},
		Funcs: []wasm.Function{{
			TypeIndex: 0,
			Code: []byte{
				byte(wasm.OpI32Const), 1,
				byte(wasm.OpI32Const), 0,
				byte(wasm.OpI32DivS),
			},
		}},
	}
	inst, err := Instantiate(m, nil, nil)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	_, err = inst.Invoke(inst.Module.ImportedFuncCount, nil)
	if !IsTrap(err) {
		t.Fatalf("expected a trap, got %v", err)
	}
}

func TestUnresolvedImportFails(t *testing.T) {
	m := &wasm.Module{
		Imports:           []wasm.Import{{Module: "env", Name: "missing", Kind: wasm.ImportFunc, FuncTypeIndex: 0}},
		Types:             []wasm.FunctionType{{}},
		ImportedFuncCount: 1,
	}
	if _, err := Instantiate(m, map[string]map[string]HostFunc{}, nil); err == nil {
		t.Fatal("expected unresolved import error")
	}
}
