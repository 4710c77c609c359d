package operator

import "wasmut.dev/pkg/wasmut/internal/wasm"

// callRemoveVoidCall replaces a call to a void-returning function with one
// `drop` per argument followed by `nop`, discarding the arguments without
// ever invoking the callee.
var callRemoveVoidCall = Operator{
	Name: "call_remove_void_call",
	Generate: func(ins wasm.Instruction, ctx *Context) []Replacement {
		if ins.Opcode != wasm.OpCall {
			return nil
		}
		cand, ok := ctx.CallRemovalCandidate(ins.FuncIndex)
		if !ok || !cand.ReturnsVoid {
			return nil
		}
		bytes := make([]byte, 0, len(cand.Params)+1)
		for range cand.Params {
			bytes = append(bytes, byte(wasm.OpDrop))
		}
		bytes = append(bytes, byte(wasm.OpNop))
		return []Replacement{{Operator: "call_remove_void_call", Bytes: bytes}}
	},
}

// callRemoveScalarCall replaces a call to a scalar-returning function with
// one `drop` per argument followed by a constant 42 of the return type,
// discarding the arguments and fabricating a result without invoking the
// callee.
var callRemoveScalarCall = Operator{
	Name: "call_remove_scalar_call",
	Generate: func(ins wasm.Instruction, ctx *Context) []Replacement {
		if ins.Opcode != wasm.OpCall {
			return nil
		}
		cand, ok := ctx.CallRemovalCandidate(ins.FuncIndex)
		if !ok || cand.ReturnsVoid {
			return nil
		}
		bytes := make([]byte, 0, len(cand.Params)+5)
		for range cand.Params {
			bytes = append(bytes, byte(wasm.OpDrop))
		}
		switch cand.ReturnType {
		case wasm.I32:
			bytes = append(bytes, wasm.EncodeI32Const(42)...)
		case wasm.I64:
			bytes = append(bytes, wasm.EncodeI64Const(42)...)
		case wasm.F32:
			bytes = append(bytes, wasm.EncodeF32Const(42)...)
		case wasm.F64:
			bytes = append(bytes, wasm.EncodeF64Const(42)...)
		default:
			return nil
		}
		return []Replacement{{Operator: "call_remove_scalar_call", Bytes: bytes}}
	},
}
