package metamutant

import (
	"fmt"

	"wasmut.dev/pkg/wasmut/internal/operator"
	"wasmut.dev/pkg/wasmut/internal/wasm"
)

// stackEffect returns the parameter and result types an instruction
// consumes/produces, which the meta-mutant build needs to declare as the
// block type of the if/else it wraps a candidate site in — every
// alternative encoding an operator produces for a given instruction is
// required to share the original's arity (operators only ever substitute
// same-shape opcodes), so one block type describes every branch.
func stackEffect(ins wasm.Instruction, ctx *operator.Context) (params, results []wasm.ValueType, err error) {
	op := ins.Opcode
	switch {
	case op.IsBinaryNumeric() || op.IsRelational():
		t := operandType(op)
		if op.IsRelational() {
			return []wasm.ValueType{t, t}, []wasm.ValueType{wasm.I32}, nil
		}
		return []wasm.ValueType{t, t}, []wasm.ValueType{t}, nil
	case op.IsUnaryNumeric():
		t := operandType(op)
		return []wasm.ValueType{t}, []wasm.ValueType{t}, nil
	case op == wasm.OpI32Eqz:
		return []wasm.ValueType{wasm.I32}, []wasm.ValueType{wasm.I32}, nil
	case op == wasm.OpI64Eqz:
		return []wasm.ValueType{wasm.I64}, []wasm.ValueType{wasm.I32}, nil
	case op.IsConst():
		return nil, []wasm.ValueType{constType(op)}, nil
	case op == wasm.OpCall:
		cand, ok := ctx.CallRemovalCandidate(ins.FuncIndex)
		if !ok {
			return nil, nil, fmt.Errorf("metamutant: call to func %d has no recorded signature", ins.FuncIndex)
		}
		if cand.ReturnsVoid {
			return cand.Params, nil, nil
		}
		return cand.Params, []wasm.ValueType{cand.ReturnType}, nil
	default:
		return nil, nil, fmt.Errorf("metamutant: unsupported opcode %s for meta-mutant wrapping", op)
	}
}

func operandType(op wasm.Opcode) wasm.ValueType {
	switch {
	case op >= wasm.OpI32Eq && op <= wasm.OpI32GeU:
		return wasm.I32
	case op >= wasm.OpI64Eq && op <= wasm.OpI64GeU:
		return wasm.I64
	case op >= wasm.OpF32Eq && op <= wasm.OpF32Ge:
		return wasm.F32
	case op >= wasm.OpF64Eq && op <= wasm.OpF64Ge:
		return wasm.F64
	case op >= wasm.OpI32Clz && op <= wasm.OpI32Rotr:
		return wasm.I32
	case op >= wasm.OpI64Clz && op <= wasm.OpI64Rotr:
		return wasm.I64
	case op >= wasm.OpF32Abs && op <= wasm.OpF32Copysign:
		return wasm.F32
	case op >= wasm.OpF64Abs && op <= wasm.OpF64Copysign:
		return wasm.F64
	default:
		return wasm.I32
	}
}

func constType(op wasm.Opcode) wasm.ValueType {
	switch op {
	case wasm.OpI32Const:
		return wasm.I32
	case wasm.OpI64Const:
		return wasm.I64
	case wasm.OpF32Const:
		return wasm.F32
	case wasm.OpF64Const:
		return wasm.F64
	}
	return wasm.I32
}
