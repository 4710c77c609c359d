// Package metamutant builds the meta-mutant artifact: a single compiled
// module where every discovered candidate site is rewritten into an
// if/else keyed off a runtime-settable "active mutation id", imported as
// a host function rather than a mutable global (see DESIGN.md/SPEC_FULL.md
// §4.5 for why) — one build, one module, every mutant addressable by
// setting that id before a run.
package metamutant

import (
	"fmt"
	"sort"

	"wasmut.dev/pkg/wasmut/internal/discovery"
	"wasmut.dev/pkg/wasmut/internal/operator"
	"wasmut.dev/pkg/wasmut/internal/wasm"
)

const (
	HostModule          = "wasmut"
	ActiveMutationIDName = "active_mutation_id"
	MarkTouchedName      = "mark_touched"
)

// Artifact is the product of either builder, plus the bits the execution
// engine needs to drive it. Exactly one of Module or ClassicalModules is
// set: Module (with ActiveMutationFunc/MarkTouchedFunc) for the
// meta-mutant path built by Build, ClassicalModules for the one-module-
// per-candidate path built by BuildClassical. BaselineModule is always
// set and is what RunBaseline executes against — for the meta-mutant
// path that's Module itself (running it with the sentinel id behaves as
// the unmutated program), for the classical path it's an unmodified
// clone, since there is no single shared module to run baseline against.
type Artifact struct {
	Module             *wasm.Module
	ActiveMutationFunc uint32 // imported func index of active_mutation_id
	MarkTouchedFunc    uint32 // imported func index of mark_touched
	BaselineModule     *wasm.Module
	ClassicalModules   map[int32]*wasm.Module // candidate id -> dedicated module, classical path only
	Candidates         []discovery.Candidate
}

// Build rewrites a clone of m so every candidate site branches on the
// active mutation id, returning the artifact. m is not modified: Build
// always works on its own clone.
func Build(m *wasm.Module, candidates []discovery.Candidate) (*Artifact, error) {
	mm := m.Clone()
	// Candidate.FuncIndex was computed by discovery against m's own index
	// space, before the two wasmut imports below shift every defined
	// function's index up by two — capture the pre-shift count now so
	// candidates can still be mapped to the right mm.Funcs entry afterward.
	oldImportedFuncCount := mm.ImportedFuncCount

	voidToI32 := findOrAddType(mm, wasm.FunctionType{Results: []wasm.ValueType{wasm.I32}})
	i32ToVoid := findOrAddType(mm, wasm.FunctionType{Params: []wasm.ValueType{wasm.I32}})

	indices := mm.AppendFunctionImports([]wasm.Import{
		{Module: HostModule, Name: ActiveMutationIDName, Kind: wasm.ImportFunc, FuncTypeIndex: voidToI32},
		{Module: HostModule, Name: MarkTouchedName, Kind: wasm.ImportFunc, FuncTypeIndex: i32ToVoid},
	})
	activeFunc, markFunc := indices[0], indices[1]
	// Built after the shift: the call operands in mm.Funcs now use the new
	// index space, and stackEffect looks callees up by those operands.
	ctx := operator.NewContext(mm)

	byFunc := map[uint32][]discovery.Candidate{}
	for _, c := range candidates {
		byFunc[c.FuncIndex] = append(byFunc[c.FuncIndex], c)
	}

	for fi, group := range byFunc {
		if fi < oldImportedFuncCount {
			continue
		}
		idx := fi - oldImportedFuncCount
		fn := &mm.Funcs[idx]
		newCode, err := rewriteFunction(fn, group, ctx, mm, activeFunc, markFunc)
		if err != nil {
			return nil, fmt.Errorf("metamutant: function %d: %w", fi, err)
		}
		fn.Code = newCode
	}

	return &Artifact{
		Module:             mm,
		ActiveMutationFunc: activeFunc,
		MarkTouchedFunc:    markFunc,
		BaselineModule:     mm,
		Candidates:         candidates,
	}, nil
}

// BuildClassical builds one standalone module per candidate, each a clone
// of m with only that candidate's site replaced in place — no host
// imports, no dispatch branch, no coverage instrumentation. This is the
// engine.meta_mutant=false path: every module it produces still runs
// through the same engine.Run as the meta-mutant path, so per-candidate
// outcomes are identical by construction, just without the single-build/
// many-run economy the cascade buys.
func BuildClassical(m *wasm.Module, candidates []discovery.Candidate) (*Artifact, error) {
	modules := make(map[int32]*wasm.Module, len(candidates))
	for _, c := range candidates {
		mm := m.Clone()
		idx := c.FuncIndex - mm.ImportedFuncCount
		fn := &mm.Funcs[idx]
		fn.Code = spliceReplacement(fn.Code, c)
		modules[int32(c.ID)] = mm
	}

	return &Artifact{
		BaselineModule:   m.Clone(),
		ClassicalModules: modules,
		Candidates:       candidates,
	}, nil
}

// spliceReplacement returns code with the single instruction at
// c.InstructionOffset/c.InstructionLength swapped for c.ReplacementBytes,
// unconditionally and without any surrounding dispatch logic.
func spliceReplacement(code []byte, c discovery.Candidate) []byte {
	out := make([]byte, 0, len(code))
	out = append(out, code[:c.InstructionOffset]...)
	out = append(out, c.ReplacementBytes...)
	out = append(out, code[c.InstructionOffset+c.InstructionLength:]...)
	return out
}

// rewriteFunction splices every candidate site in fn into a branch on the
// active mutation id, leaving everything else byte-for-byte identical.
func rewriteFunction(fn *wasm.Function, group []discovery.Candidate, ctx *operator.Context, mm *wasm.Module, activeFunc, markFunc uint32) ([]byte, error) {
	byOffset := map[int][]discovery.Candidate{}
	for _, c := range group {
		byOffset[c.InstructionOffset] = append(byOffset[c.InstructionOffset], c)
	}

	instrs, err := fn.Instructions()
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(fn.Code)*2)
	cursor := 0
	for _, ins := range instrs {
		cands, has := byOffset[ins.Offset]
		if !has {
			out = append(out, fn.Code[cursor:ins.Offset+ins.Length]...)
			cursor = ins.Offset + ins.Length
			continue
		}
		out = append(out, fn.Code[cursor:ins.Offset]...)

		sort.Slice(cands, func(i, j int) bool { return cands[i].ID < cands[j].ID })
		params, results, err := stackEffect(ins, ctx)
		if err != nil {
			return nil, err
		}
		blockTypeIdx := findOrAddType(mm, wasm.FunctionType{Params: params, Results: results})
		original := fn.Code[ins.Offset : ins.Offset+ins.Length]

		// mark_touched is emitted once per site, not once per cascade arm,
		// so every candidate at this offset (and the baseline run, which
		// never matches any id) pays the same fixed metering cost.
		site := append([]byte{}, wasm.EncodeI32Const(int32(cands[0].ID))...)
		site = append(site, byte(wasm.OpCall))
		site = wasm.AppendULEB128(site, uint64(markFunc))

		cascade, err := buildCascade(cands, 0, original, blockTypeIdx, activeFunc)
		if err != nil {
			return nil, err
		}
		site = append(site, cascade...)
		out = append(out, site...)
		cursor = ins.Offset + ins.Length
	}
	out = append(out, fn.Code[cursor:]...)
	return out, nil
}

// buildCascade emits, for cands[i:], a nested if/else chain keyed off the
// active mutation id: the innermost else is the original instruction. The
// coverage marker for the site lives outside this cascade (rewriteFunction
// emits it once, before the chain), so this only ever contributes the
// conditional branch logic, never metering.
func buildCascade(cands []discovery.Candidate, i int, original []byte, blockTypeIdx uint32, activeFunc uint32) ([]byte, error) {
	if i >= len(cands) {
		return original, nil
	}
	cand := cands[i]
	var buf []byte

	buf = append(buf, byte(wasm.OpCall))
	buf = wasm.AppendULEB128(buf, uint64(activeFunc))
	buf = append(buf, wasm.EncodeI32Const(int32(cand.ID))...)
	buf = append(buf, byte(wasm.OpI32Eq))

	buf = append(buf, byte(wasm.OpIf))
	buf = append(buf, blockTypeBytes(blockTypeIdx)...)
	buf = append(buf, cand.ReplacementBytes...)
	buf = append(buf, byte(wasm.OpElse))

	rest, err := buildCascade(cands, i+1, original, blockTypeIdx, activeFunc)
	if err != nil {
		return nil, err
	}
	buf = append(buf, rest...)
	buf = append(buf, byte(wasm.OpEnd))
	return buf, nil
}

func blockTypeBytes(typeIndex uint32) []byte {
	return wasm.AppendSLEB128(nil, int64(typeIndex), 33)
}

// findOrAddType returns the index of ft in m.Types, appending it if no
// existing entry matches.
func findOrAddType(m *wasm.Module, ft wasm.FunctionType) uint32 {
	for i, existing := range m.Types {
		if existing.Equal(ft) {
			return uint32(i)
		}
	}
	m.Types = append(m.Types, ft)
	return uint32(len(m.Types) - 1)
}
