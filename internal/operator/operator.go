// Package operator implements the mutation operator library: pure
// functions from a decoded instruction to zero or more alternative byte
// encodings of that instruction, each tagged with the operator name that
// produced it.
package operator

import (
	"fmt"

	"wasmut.dev/pkg/wasmut/internal/wasm"
)

// Replacement is one alternative encoding of an instruction produced by an
// operator.
type Replacement struct {
	Operator string
	Bytes    []byte
}

// CallRemovalCandidate describes a function eligible for call-removal
// mutation: its parameter types and whether it returns a value.
type CallRemovalCandidate struct {
	Params      []wasm.ValueType
	ReturnsVoid bool
	ReturnType  wasm.ValueType
}

// Context carries module-wide information an operator needs beyond the
// instruction itself — currently just the call-removal candidate table,
// computed once per module from its function signatures.
type Context struct {
	Module          *wasm.Module
	callCandidates  map[uint32]CallRemovalCandidate
}

// NewContext builds a Context for m, pre-computing which function indices
// are eligible call-removal candidates (functions taking only i32/i64/f32/f64
// params and returning at most one scalar result — multi-value and
// reference-typed signatures are not mutated, matching the operator's
// stack-replacement strategy of one drop per param plus a same-arity
// replacement).
func NewContext(m *wasm.Module) *Context {
	ctx := &Context{Module: m, callCandidates: map[uint32]CallRemovalCandidate{}}
	totalFuncs := m.ImportedFuncCount + uint32(len(m.Funcs))
	for fi := uint32(0); fi < totalFuncs; fi++ {
		ft, ok := m.FuncType(fi)
		if !ok {
			continue
		}
		if !allScalar(ft.Params) {
			continue
		}
		switch len(ft.Results) {
		case 0:
			ctx.callCandidates[fi] = CallRemovalCandidate{Params: ft.Params, ReturnsVoid: true}
		case 1:
			if isScalar(ft.Results[0]) {
				ctx.callCandidates[fi] = CallRemovalCandidate{Params: ft.Params, ReturnsVoid: false, ReturnType: ft.Results[0]}
			}
		}
	}
	return ctx
}

func isScalar(t wasm.ValueType) bool {
	switch t {
	case wasm.I32, wasm.I64, wasm.F32, wasm.F64:
		return true
	}
	return false
}

func allScalar(ts []wasm.ValueType) bool {
	for _, t := range ts {
		if !isScalar(t) {
			return false
		}
	}
	return true
}

// CallRemovalCandidate looks up the call-removal eligibility of funcIndex.
func (c *Context) CallRemovalCandidate(funcIndex uint32) (CallRemovalCandidate, bool) {
	cand, ok := c.callCandidates[funcIndex]
	return cand, ok
}

// Operator is a named mutation rule: given an instruction, it returns zero
// or more alternative encodings.
type Operator struct {
	Name     string
	Generate func(ins wasm.Instruction, ctx *Context) []Replacement
}

// opcodeTableOperator builds an Operator from a flat opcode -> opcode
// substitution table, for the many operators whose mutation is "replace
// this exact opcode with that exact opcode, same immediates" (arithmetic,
// relational, bitwise, rotate substitutions all share this shape).
func opcodeTableOperator(name string, table map[wasm.Opcode]wasm.Opcode) Operator {
	return Operator{
		Name: name,
		Generate: func(ins wasm.Instruction, _ *Context) []Replacement {
			to, ok := table[ins.Opcode]
			if !ok {
				return nil
			}
			bytes := append([]byte{byte(to)}, encodedImmediates(ins)...)
			return []Replacement{{Operator: name, Bytes: bytes}}
		},
	}
}

// opcodeTableOperatorMulti is like opcodeTableOperator but allows an
// opcode to map to more than one alternative (e.g. shl -> shr_s AND
// shl -> shr_u are both valid candidates at the same site under the same
// operator name).
func opcodeTableOperatorMulti(name string, table map[wasm.Opcode][]wasm.Opcode) Operator {
	return Operator{
		Name: name,
		Generate: func(ins wasm.Instruction, _ *Context) []Replacement {
			targets, ok := table[ins.Opcode]
			if !ok {
				return nil
			}
			out := make([]Replacement, 0, len(targets))
			for _, to := range targets {
				bytes := append([]byte{byte(to)}, encodedImmediates(ins)...)
				out = append(out, Replacement{Operator: name, Bytes: bytes})
			}
			return out
		},
	}
}

// encodedImmediates always returns nil: all operators built from
// opcodeTableOperator* only ever substitute opcodes that take zero
// immediates (arithmetic/relational/bitwise ops), so there are no
// immediate bytes to carry over.
func encodedImmediates(ins wasm.Instruction) []byte {
	return nil
}

// descriptionTemplates holds one human-readable template per operator
// name, with a "%s" for the original instruction's opcode. Every
// operator in this catalogue describes itself the same way: naming
// what it replaces.
var descriptionTemplates = map[string]string{
	"binop_add_to_sub":      "replaced %s with subtraction",
	"binop_sub_to_add":      "replaced %s with addition",
	"binop_mul_to_div":      "replaced %s with division",
	"binop_div_to_mul":      "replaced %s with multiplication",
	"binop_shl_to_shr":      "replaced %s with a right shift",
	"binop_shr_to_shl":      "replaced %s with a left shift",
	"binop_rem_to_div":      "replaced %s with division",
	"binop_div_to_rem":      "replaced %s with remainder",
	"binop_and_to_or":       "replaced %s with bitwise or",
	"binop_or_to_and":       "replaced %s with bitwise and",
	"binop_xor_to_or":       "replaced %s with bitwise or",
	"binop_or_to_xor":       "replaced %s with bitwise xor",
	"binop_rotr_to_rotl":    "replaced %s with a left rotate",
	"binop_rotl_to_rotr":    "replaced %s with a right rotate",
	"unop_neg_to_nop":       "removed %s (negation dropped)",
	"relop_eq_to_ne":        "replaced %s with not-equal",
	"relop_ne_to_eq":        "replaced %s with equal",
	"relop_le_to_gt":        "replaced %s with greater-than",
	"relop_le_to_lt":        "replaced %s with less-than",
	"relop_lt_to_ge":        "replaced %s with greater-or-equal",
	"relop_lt_to_le":        "replaced %s with less-or-equal",
	"relop_ge_to_gt":        "replaced %s with greater-than",
	"relop_ge_to_lt":        "replaced %s with less-than",
	"relop_gt_to_ge":        "replaced %s with greater-or-equal",
	"relop_gt_to_le":        "replaced %s with less-or-equal",
	"const_replace_zero":    "replaced a zero constant (%s) with a nonzero one",
	"const_replace_nonzero": "replaced a nonzero constant (%s) with zero",
	"call_remove_void_call": "removed a %s to a void function, discarding its arguments",
	"call_remove_scalar_call": "removed a %s to a value-returning function, faking its result",
}

// Describe returns a human-readable description of what operatorName does
// to an instruction whose original opcode is original, for use in reports.
// Unrecognized operator names (should not occur with this package's own
// catalogue) fall back to the bare name.
func Describe(operatorName string, original wasm.Opcode) string {
	tmpl, ok := descriptionTemplates[operatorName]
	if !ok {
		return operatorName
	}
	return fmt.Sprintf(tmpl, original)
}
