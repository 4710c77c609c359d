// Package vm is a small WebAssembly interpreter that executes directly
// against an *wasm.Module, without re-serializing to a binary first. It
// exists because the meta-mutant artifact only ever needs to be run by this
// project's own engine, never by a general-purpose runtime, so there is no
// reason to carry a production-grade Wasm VM dependency (none of the example
// stacks carried one either) when a compact interpreter stepping through
// the flat decoded instruction stream covers every construct the mutation
// operators and WASI surface touch.
package vm

import (
	"fmt"
	"math"

	"wasmut.dev/pkg/wasmut/internal/wasm"
)

const pageSize = 65536

// HostFunc is a function supplied by the embedder (WASI, or this project's
// own wasmut.active_mutation_id / wasmut.mark_touched) rather than defined
// by module code.
type HostFunc struct {
	Params  []wasm.ValueType
	Results []wasm.ValueType
	Call    func(inst *Instance, args []uint64) ([]uint64, error)
}

// Budget meters instruction dispatch so a run can be aborted deterministically
// instead of racing a wall-clock timer, which would make mutant outcomes
// flaky under parallel execution.
type Budget struct {
	Remaining int64
}

func (b *Budget) charge() error {
	if b == nil {
		return nil
	}
	if b.Remaining <= 0 {
		return ErrBudgetExceeded
	}
	b.Remaining--
	return nil
}

// Instance is one instantiation of a module: its own memory, globals and
// table, plus the resolved host functions backing its imports.
type Instance struct {
	Module *wasm.Module

	Memory    []byte
	memoryMax uint32 // pages; 0 means no declared max

	Globals     []uint64
	globalTypes []wasm.GlobalType

	Table []int32 // funcref entries; -1 is null

	hostFuncs []HostFunc // indexed by imported function index, len == ImportedFuncCount

	Budget *Budget

	depth int // recursion guard against runaway/self call chains
}

const maxCallDepth = 512

// Instantiate builds a runnable Instance: it resolves every function import
// against hostFuncs (looked up by module!name), allocates memory/table per
// the module's own definitions, evaluates global and data/element
// initializers, and runs the start function if one is declared.
func Instantiate(m *wasm.Module, hostFuncs map[string]map[string]HostFunc, budget *Budget) (*Instance, error) {
	inst := &Instance{Module: m, Budget: budget}

	for _, imp := range m.Imports {
		if imp.Kind != wasm.ImportFunc {
			continue
		}
		mod, ok := hostFuncs[imp.Module]
		if !ok {
			return nil, fmt.Errorf("vm: unresolved import %q", imp.Module)
		}
		fn, ok := mod[imp.Name]
		if !ok {
			return nil, fmt.Errorf("vm: unresolved import %s.%s", imp.Module, imp.Name)
		}
		inst.hostFuncs = append(inst.hostFuncs, fn)
	}

	if len(m.Memories) > 0 {
		mt := m.Memories[0]
		inst.Memory = make([]byte, int(mt.Limits.Min)*pageSize)
		if mt.Limits.Max != nil {
			inst.memoryMax = *mt.Limits.Max
		}
	}

	if len(m.Tables) > 0 {
		tt := m.Tables[0]
		inst.Table = make([]int32, tt.Limits.Min)
		for i := range inst.Table {
			inst.Table[i] = -1
		}
	}

	inst.Globals = make([]uint64, len(m.Globals))
	inst.globalTypes = make([]wasm.GlobalType, len(m.Globals))
	for i, g := range m.Globals {
		inst.globalTypes[i] = g.Type
		v, err := inst.evalConstExpr(g.Init)
		if err != nil {
			return nil, fmt.Errorf("vm: global %d init: %w", i, err)
		}
		inst.Globals[i] = v
	}

	for _, seg := range m.Data {
		if !seg.Active {
			continue
		}
		off, err := inst.evalConstExpr(seg.Offset)
		if err != nil {
			return nil, fmt.Errorf("vm: data segment init: %w", err)
		}
		start := int(int32(off))
		if start < 0 || start+len(seg.Init) > len(inst.Memory) {
			return nil, trap("data segment out of bounds")
		}
		copy(inst.Memory[start:], seg.Init)
	}

	for _, seg := range m.Elements {
		if !seg.Active {
			continue
		}
		off, err := inst.evalConstExpr(seg.Offset)
		if err != nil {
			return nil, fmt.Errorf("vm: element segment init: %w", err)
		}
		start := int(int32(off))
		if start < 0 || start+len(seg.FuncIndexes) > len(inst.Table) {
			return nil, trap("element segment out of bounds")
		}
		for i, fi := range seg.FuncIndexes {
			inst.Table[start+i] = int32(fi)
		}
	}

	if m.Start != nil {
		if _, err := inst.Invoke(*m.Start, nil); err != nil {
			return nil, err
		}
	}

	return inst, nil
}

// evalConstExpr evaluates a constant initializer expression (i32/i64/f32/f64
// const or global.get, per the MVP spec's restricted const-expr grammar).
func (inst *Instance) evalConstExpr(code []byte) (uint64, error) {
	instrs, err := wasm.Decode(code)
	if err != nil {
		return 0, err
	}
	if len(instrs) == 0 {
		return 0, nil
	}
	ins := instrs[0]
	switch ins.Opcode {
	case wasm.OpI32Const:
		return uint64(uint32(ins.I32)), nil
	case wasm.OpI64Const:
		return uint64(ins.I64), nil
	case wasm.OpF32Const:
		return uint64(math.Float32bits(ins.F32)), nil
	case wasm.OpF64Const:
		return math.Float64bits(ins.F64), nil
	case wasm.OpGlobalGet:
		if int(ins.GlobalIndex) >= len(inst.Globals) {
			return 0, trap("global.get %d out of range in const expr", ins.GlobalIndex)
		}
		return inst.Globals[ins.GlobalIndex], nil
	default:
		return 0, fmt.Errorf("vm: unsupported const expr opcode %s", ins.Opcode)
	}
}

// Export looks up an exported function by name and returns its function
// index.
func (inst *Instance) Export(name string) (uint32, bool) {
	for _, e := range inst.Module.Exports {
		if e.Kind == wasm.ExportFunc && e.Name == name {
			return e.Index, true
		}
	}
	return 0, false
}
