package operator

import "wasmut.dev/pkg/wasmut/internal/wasm"

// These tables define the operator catalogue: one table/Operator pair
// per instruction-replacement family. Operator names are part of the
// `operators.enabled_operators` config surface, so they're kept stable.

var binopAddToSub = opcodeTableOperator("binop_add_to_sub", map[wasm.Opcode]wasm.Opcode{
	wasm.OpI32Add: wasm.OpI32Sub,
	wasm.OpI64Add: wasm.OpI64Sub,
	wasm.OpF32Add: wasm.OpF32Sub,
	wasm.OpF64Add: wasm.OpF64Sub,
})

var binopSubToAdd = opcodeTableOperator("binop_sub_to_add", map[wasm.Opcode]wasm.Opcode{
	wasm.OpI32Sub: wasm.OpI32Add,
	wasm.OpI64Sub: wasm.OpI64Add,
	wasm.OpF32Sub: wasm.OpF32Add,
	wasm.OpF64Sub: wasm.OpF64Add,
})

var binopMulToDiv = opcodeTableOperatorMulti("binop_mul_to_div", map[wasm.Opcode][]wasm.Opcode{
	wasm.OpI32Mul: {wasm.OpI32DivS, wasm.OpI32DivU},
	wasm.OpI64Mul: {wasm.OpI64DivS, wasm.OpI64DivU},
	wasm.OpF32Mul: {wasm.OpF32Div},
	wasm.OpF64Mul: {wasm.OpF64Div},
})

var binopDivToMul = opcodeTableOperator("binop_div_to_mul", map[wasm.Opcode]wasm.Opcode{
	wasm.OpI32DivS: wasm.OpI32Mul,
	wasm.OpI32DivU: wasm.OpI32Mul,
	wasm.OpI64DivS: wasm.OpI64Mul,
	wasm.OpI64DivU: wasm.OpI64Mul,
	wasm.OpF32Div:  wasm.OpF32Mul,
	wasm.OpF64Div:  wasm.OpF64Mul,
})

var binopShlToShr = opcodeTableOperatorMulti("binop_shl_to_shr", map[wasm.Opcode][]wasm.Opcode{
	wasm.OpI32Shl: {wasm.OpI32ShrS, wasm.OpI32ShrU},
	wasm.OpI64Shl: {wasm.OpI64ShrS, wasm.OpI64ShrU},
})

var binopShrToShl = opcodeTableOperator("binop_shr_to_shl", map[wasm.Opcode]wasm.Opcode{
	wasm.OpI32ShrS: wasm.OpI32Shl,
	wasm.OpI32ShrU: wasm.OpI32Shl,
	wasm.OpI64ShrS: wasm.OpI64Shl,
	wasm.OpI64ShrU: wasm.OpI64Shl,
})

var binopRemToDiv = opcodeTableOperator("binop_rem_to_div", map[wasm.Opcode]wasm.Opcode{
	wasm.OpI32RemS: wasm.OpI32DivS,
	wasm.OpI32RemU: wasm.OpI32DivU,
	wasm.OpI64RemS: wasm.OpI64DivS,
	wasm.OpI64RemU: wasm.OpI64DivU,
})

var binopDivToRem = opcodeTableOperator("binop_div_to_rem", map[wasm.Opcode]wasm.Opcode{
	wasm.OpI32DivS: wasm.OpI32RemS,
	wasm.OpI32DivU: wasm.OpI32RemU,
	wasm.OpI64DivS: wasm.OpI64RemS,
	wasm.OpI64DivU: wasm.OpI64RemU,
})

var binopAndToOr = opcodeTableOperator("binop_and_to_or", map[wasm.Opcode]wasm.Opcode{
	wasm.OpI32And: wasm.OpI32Or,
	wasm.OpI64And: wasm.OpI64Or,
})

var binopOrToAnd = opcodeTableOperator("binop_or_to_and", map[wasm.Opcode]wasm.Opcode{
	wasm.OpI32Or: wasm.OpI32And,
	wasm.OpI64Or: wasm.OpI64And,
})

var binopXorToOr = opcodeTableOperator("binop_xor_to_or", map[wasm.Opcode]wasm.Opcode{
	wasm.OpI32Xor: wasm.OpI32Or,
	wasm.OpI64Xor: wasm.OpI64Or,
})

var binopOrToXor = opcodeTableOperator("binop_or_to_xor", map[wasm.Opcode]wasm.Opcode{
	wasm.OpI32Or: wasm.OpI32Xor,
	wasm.OpI64Or: wasm.OpI64Xor,
})

var binopRotrToRotl = opcodeTableOperator("binop_rotr_to_rotl", map[wasm.Opcode]wasm.Opcode{
	wasm.OpI32Rotr: wasm.OpI32Rotl,
	wasm.OpI64Rotr: wasm.OpI64Rotl,
})

var binopRotlToRotr = opcodeTableOperator("binop_rotl_to_rotr", map[wasm.Opcode]wasm.Opcode{
	wasm.OpI32Rotl: wasm.OpI32Rotr,
	wasm.OpI64Rotl: wasm.OpI64Rotr,
})

var unopNegToNop = Operator{
	Name: "unop_neg_to_nop",
	Generate: func(ins wasm.Instruction, _ *Context) []Replacement {
		if ins.Opcode != wasm.OpF32Neg && ins.Opcode != wasm.OpF64Neg {
			return nil
		}
		return []Replacement{{Operator: "unop_neg_to_nop", Bytes: []byte{byte(wasm.OpNop)}}}
	},
}

// relational substitutions: each entry is one operator, covering every
// integer signedness and float variant of the comparison it renames.
var relopEqToNe = opcodeTableOperator("relop_eq_to_ne", map[wasm.Opcode]wasm.Opcode{
	wasm.OpI32Eq: wasm.OpI32Ne, wasm.OpI64Eq: wasm.OpI64Ne, wasm.OpF32Eq: wasm.OpF32Ne, wasm.OpF64Eq: wasm.OpF64Ne,
})
var relopNeToEq = opcodeTableOperator("relop_ne_to_eq", map[wasm.Opcode]wasm.Opcode{
	wasm.OpI32Ne: wasm.OpI32Eq, wasm.OpI64Ne: wasm.OpI64Eq, wasm.OpF32Ne: wasm.OpF32Eq, wasm.OpF64Ne: wasm.OpF64Eq,
})
var relopLeToGt = opcodeTableOperator("relop_le_to_gt", map[wasm.Opcode]wasm.Opcode{
	wasm.OpI32LeS: wasm.OpI32GtS, wasm.OpI32LeU: wasm.OpI32GtU,
	wasm.OpI64LeS: wasm.OpI64GtS, wasm.OpI64LeU: wasm.OpI64GtU,
	wasm.OpF32Le: wasm.OpF32Gt, wasm.OpF64Le: wasm.OpF64Gt,
})
var relopLeToLt = opcodeTableOperator("relop_le_to_lt", map[wasm.Opcode]wasm.Opcode{
	wasm.OpI32LeS: wasm.OpI32LtS, wasm.OpI32LeU: wasm.OpI32LtU,
	wasm.OpI64LeS: wasm.OpI64LtS, wasm.OpI64LeU: wasm.OpI64LtU,
	wasm.OpF32Le: wasm.OpF32Lt, wasm.OpF64Le: wasm.OpF64Lt,
})
var relopLtToGe = opcodeTableOperator("relop_lt_to_ge", map[wasm.Opcode]wasm.Opcode{
	wasm.OpI32LtS: wasm.OpI32GeS, wasm.OpI32LtU: wasm.OpI32GeU,
	wasm.OpI64LtS: wasm.OpI64GeS, wasm.OpI64LtU: wasm.OpI64GeU,
	wasm.OpF32Lt: wasm.OpF32Ge, wasm.OpF64Lt: wasm.OpF64Ge,
})
var relopLtToLe = opcodeTableOperator("relop_lt_to_le", map[wasm.Opcode]wasm.Opcode{
	wasm.OpI32LtS: wasm.OpI32LeS, wasm.OpI32LtU: wasm.OpI32LeU,
	wasm.OpI64LtS: wasm.OpI64LeS, wasm.OpI64LtU: wasm.OpI64LeU,
	wasm.OpF32Lt: wasm.OpF32Le, wasm.OpF64Lt: wasm.OpF64Le,
})
var relopGeToGt = opcodeTableOperator("relop_ge_to_gt", map[wasm.Opcode]wasm.Opcode{
	wasm.OpI32GeS: wasm.OpI32GtS, wasm.OpI32GeU: wasm.OpI32GtU,
	wasm.OpI64GeS: wasm.OpI64GtS, wasm.OpI64GeU: wasm.OpI64GtU,
	wasm.OpF32Ge: wasm.OpF32Gt, wasm.OpF64Ge: wasm.OpF64Gt,
})
var relopGeToLt = opcodeTableOperator("relop_ge_to_lt", map[wasm.Opcode]wasm.Opcode{
	wasm.OpI32GeS: wasm.OpI32LtS, wasm.OpI32GeU: wasm.OpI32LtU,
	wasm.OpI64GeS: wasm.OpI64LtS, wasm.OpI64GeU: wasm.OpI64LtU,
	wasm.OpF32Ge: wasm.OpF32Lt, wasm.OpF64Ge: wasm.OpF64Lt,
})
var relopGtToGe = opcodeTableOperator("relop_gt_to_ge", map[wasm.Opcode]wasm.Opcode{
	wasm.OpI32GtS: wasm.OpI32GeS, wasm.OpI32GtU: wasm.OpI32GeU,
	wasm.OpI64GtS: wasm.OpI64GeS, wasm.OpI64GtU: wasm.OpI64GeU,
	wasm.OpF32Gt: wasm.OpF32Ge, wasm.OpF64Gt: wasm.OpF64Ge,
})
var relopGtToLe = opcodeTableOperator("relop_gt_to_le", map[wasm.Opcode]wasm.Opcode{
	wasm.OpI32GtS: wasm.OpI32LeS, wasm.OpI32GtU: wasm.OpI32LeU,
	wasm.OpI64GtS: wasm.OpI64LeS, wasm.OpI64GtU: wasm.OpI64LeU,
	wasm.OpF32Gt: wasm.OpF32Le, wasm.OpF64Gt: wasm.OpF64Le,
})

// constReplaceZero and constReplaceNonZero are restricted to integer
// constants; see DESIGN.md's Open Question resolution for why float
// constants are left alone.
var constReplaceZero = Operator{
	Name: "const_replace_zero",
	Generate: func(ins wasm.Instruction, _ *Context) []Replacement {
		switch ins.Opcode {
		case wasm.OpI32Const:
			if ins.I32 != 0 {
				return nil
			}
			return []Replacement{{Operator: "const_replace_zero", Bytes: wasm.EncodeI32Const(42)}}
		case wasm.OpI64Const:
			if ins.I64 != 0 {
				return nil
			}
			return []Replacement{{Operator: "const_replace_zero", Bytes: wasm.EncodeI64Const(42)}}
		}
		return nil
	},
}

var constReplaceNonZero = Operator{
	Name: "const_replace_nonzero",
	Generate: func(ins wasm.Instruction, _ *Context) []Replacement {
		switch ins.Opcode {
		case wasm.OpI32Const:
			if ins.I32 == 0 {
				return nil
			}
			return []Replacement{{Operator: "const_replace_nonzero", Bytes: wasm.EncodeI32Const(0)}}
		case wasm.OpI64Const:
			if ins.I64 == 0 {
				return nil
			}
			return []Replacement{{Operator: "const_replace_nonzero", Bytes: wasm.EncodeI64Const(0)}}
		}
		return nil
	},
}
