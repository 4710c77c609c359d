package vm

import (
	"math"

	"wasmut.dev/pkg/wasmut/internal/wasm"
)

// label is an open block/loop/if construct on the control stack of one
// function activation.
type label struct {
	isLoop    bool
	arity     int // number of result values the label produces
	loopArity int // number of params a loop label re-enters with (== arity of the loop's own param types)
	target    int // instruction index to resume at when branched to
	stackLen  int // operand stack height when the label was entered, excluding its own params
}

// frame is one function activation: its own locals and operand stack. Calls
// do not share a single Wasm-style continuous stack across activations —
// each call gets a fresh Go-level operand stack — which is operationally
// equivalent for validated code since structured control flow and local
// indices never cross a call boundary.
type frame struct {
	locals []uint64
	stack  []uint64
	labels []label
}

func (f *frame) push(v uint64)  { f.stack = append(f.stack, v) }
func (f *frame) pop() uint64 {
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v
}
func (f *frame) pushI32(v int32)   { f.push(uint64(uint32(v))) }
func (f *frame) popI32() int32     { return int32(uint32(f.pop())) }
func (f *frame) pushF32(v float32) { f.push(uint64(math.Float32bits(v))) }
func (f *frame) popF32() float32   { return math.Float32frombits(uint32(f.pop())) }
func (f *frame) pushF64(v float64) { f.push(math.Float64bits(v)) }
func (f *frame) popF64() float64   { return math.Float64frombits(f.pop()) }

// truncateTo keeps only the top `arity` values on the stack, discarding
// everything from stackLen up to (but not including) them — the operational
// rule for what survives a branch or a normal fall-through past `end`.
func (f *frame) truncateTo(stackLen, arity int) {
	if len(f.stack) == stackLen+arity {
		return
	}
	results := append([]uint64(nil), f.stack[len(f.stack)-arity:]...)
	f.stack = append(f.stack[:stackLen], results...)
}

// Invoke calls the function at funcIndex (imported or defined) with args and
// returns its results.
func (inst *Instance) Invoke(funcIndex uint32, args []uint64) ([]uint64, error) {
	if funcIndex < inst.Module.ImportedFuncCount {
		hf := inst.hostFuncs[funcIndex]
		return hf.Call(inst, args)
	}

	inst.depth++
	defer func() { inst.depth-- }()
	if inst.depth > maxCallDepth {
		return nil, trap("call stack exhausted")
	}

	idx := funcIndex - inst.Module.ImportedFuncCount
	if int(idx) >= len(inst.Module.Funcs) {
		return nil, trap("call to undefined function %d", funcIndex)
	}
	fn := &inst.Module.Funcs[idx]
	ft, ok := inst.Module.FuncType(funcIndex)
	if !ok {
		return nil, trap("function %d has no type", funcIndex)
	}

	f := &frame{locals: make([]uint64, len(ft.Params)+fn.NumLocals())}
	copy(f.locals, args)

	instrs, err := fn.Instructions()
	if err != nil {
		return nil, err
	}
	st := matchStructure(instrs)

	if err := inst.run(f, instrs, st); err != nil {
		return nil, err
	}

	nres := len(ft.Results)
	if len(f.stack) < nres {
		return nil, trap("function %d fell off the end short of its declared results", funcIndex)
	}
	return f.stack[len(f.stack)-nres:], nil
}

// run executes instrs within frame f until it falls off the end (implicit
// return) or an explicit `return` is hit.
func (inst *Instance) run(f *frame, instrs []wasm.Instruction, st structure) error {
	pc := 0
	for pc < len(instrs) {
		if err := inst.Budget.charge(); err != nil {
			return err
		}
		ins := instrs[pc]
		switch ins.Opcode {
		case wasm.OpUnreachable:
			return trap("unreachable executed")
		case wasm.OpNop:
		case wasm.OpBlock:
			params, results := inst.blockArity(ins.BlockType)
			f.labels = append(f.labels, label{arity: results, target: st.endOf[pc], stackLen: len(f.stack) - params})
		case wasm.OpLoop:
			params, results := inst.blockArity(ins.BlockType)
			f.labels = append(f.labels, label{isLoop: true, arity: results, loopArity: params, target: pc, stackLen: len(f.stack) - params})
		case wasm.OpIf:
			params, results := inst.blockArity(ins.BlockType)
			cond := f.popI32()
			stackLen := len(f.stack) - params
			if cond != 0 {
				f.labels = append(f.labels, label{arity: results, target: st.endOf[pc], stackLen: stackLen})
			} else if elseIdx, ok := st.elseOf[pc]; ok {
				f.labels = append(f.labels, label{arity: results, target: st.endOf[pc], stackLen: stackLen})
				pc = elseIdx
			} else {
				pc = st.endOf[pc]
			}
		case wasm.OpElse:
			// Reached by falling off the end of the if-true branch: the
			// else body belongs to the same construct, so control skips
			// straight past it to the matching end.
			lbl := f.labels[len(f.labels)-1]
			f.labels = f.labels[:len(f.labels)-1]
			f.truncateTo(lbl.stackLen, lbl.arity)
			pc = st.endOf[findIfFor(st, pc)] + 1
			continue
		case wasm.OpEnd:
			if len(f.labels) > 0 {
				lbl := f.labels[len(f.labels)-1]
				f.labels = f.labels[:len(f.labels)-1]
				f.truncateTo(lbl.stackLen, lbl.arity)
			}
		case wasm.OpBr:
			branch(f, int(ins.LabelIndex), &pc)
			continue
		case wasm.OpBrIf:
			if f.popI32() != 0 {
				branch(f, int(ins.LabelIndex), &pc)
				continue
			}
		case wasm.OpBrTable:
			idx := f.popI32()
			n := int(idx)
			target := ins.LabelIndex
			if n >= 0 && n < len(ins.LabelTable) {
				target = ins.LabelTable[n]
			}
			branch(f, int(target), &pc)
			continue
		case wasm.OpReturn:
			return nil
		case wasm.OpCall:
			ft, _ := inst.Module.FuncType(ins.FuncIndex)
			args := f.popN(len(ft.Params))
			results, err := inst.Invoke(ins.FuncIndex, args)
			if err != nil {
				return err
			}
			f.stack = append(f.stack, results...)
		case wasm.OpCallIndirect:
			tblIdx := f.popI32()
			if int(tblIdx) < 0 || int(tblIdx) >= len(inst.Table) {
				return trap("call_indirect: table index %d out of bounds", tblIdx)
			}
			funcIdx := inst.Table[tblIdx]
			if funcIdx < 0 {
				return trap("call_indirect: null table entry")
			}
			ft, ok := inst.Module.FuncType(uint32(funcIdx))
			if !ok {
				return trap("call_indirect: target %d has no type", funcIdx)
			}
			args := f.popN(len(ft.Params))
			results, err := inst.Invoke(uint32(funcIdx), args)
			if err != nil {
				return err
			}
			f.stack = append(f.stack, results...)
		case wasm.OpDrop:
			f.pop()
		case wasm.OpSelect, wasm.OpSelectT:
			cond := f.popI32()
			b := f.pop()
			a := f.pop()
			if cond != 0 {
				f.push(a)
			} else {
				f.push(b)
			}
		case wasm.OpLocalGet:
			f.push(f.locals[ins.LocalIndex])
		case wasm.OpLocalSet:
			f.locals[ins.LocalIndex] = f.pop()
		case wasm.OpLocalTee:
			f.locals[ins.LocalIndex] = f.stack[len(f.stack)-1]
		case wasm.OpGlobalGet:
			f.push(inst.Globals[ins.GlobalIndex])
		case wasm.OpGlobalSet:
			inst.Globals[ins.GlobalIndex] = f.pop()
		case wasm.OpMemorySize:
			f.pushI32(int32(len(inst.Memory) / pageSize))
		case wasm.OpMemoryGrow:
			delta := f.popI32()
			old := len(inst.Memory) / pageSize
			newSize := old + int(delta)
			if delta < 0 || (inst.memoryMax != 0 && uint32(newSize) > inst.memoryMax) {
				f.pushI32(-1)
			} else {
				inst.Memory = append(inst.Memory, make([]byte, int(delta)*pageSize)...)
				f.pushI32(int32(old))
			}
		case wasm.OpI32Const:
			f.pushI32(ins.I32)
		case wasm.OpI64Const:
			f.push(uint64(ins.I64))
		case wasm.OpF32Const:
			f.pushF32(ins.F32)
		case wasm.OpF64Const:
			f.pushF64(ins.F64)
		default:
			if err := inst.execMemoryOrNumeric(f, ins); err != nil {
				return err
			}
		}
		pc++
	}
	return nil
}

func (f *frame) popN(n int) []uint64 {
	if n == 0 {
		return nil
	}
	v := append([]uint64(nil), f.stack[len(f.stack)-n:]...)
	f.stack = f.stack[:len(f.stack)-n]
	return v
}

// blockArity resolves a block type to its (params, results) counts.
func (inst *Instance) blockArity(bt wasm.BlockType) (params, results int) {
	switch {
	case bt.Empty:
		return 0, 0
	case bt.IsIndex:
		ft := inst.Module.Types[bt.TypeIndex]
		return len(ft.Params), len(ft.Results)
	default:
		return 0, 1
	}
}

// branch implements `br n`: pop n+1 labels (discarding the innermost n),
// truncate the operand stack to what the target label keeps, and resume
// either after the label (block/if) or at its start (loop).
func branch(f *frame, n int, pc *int) {
	idx := len(f.labels) - 1 - n
	lbl := f.labels[idx]
	if lbl.isLoop {
		f.truncateTo(lbl.stackLen, lbl.loopArity)
		f.labels = f.labels[:idx+1]
		*pc = lbl.target + 1
		return
	}
	f.truncateTo(lbl.stackLen, lbl.arity)
	f.labels = f.labels[:idx]
	*pc = lbl.target + 1
}

// findIfFor locates the `if` instruction whose `else` is at pcElse, since
// structure only indexes else-by-if, not the reverse.
func findIfFor(st structure, pcElse int) int {
	for ifPc, elsePc := range st.elseOf {
		if elsePc == pcElse {
			return ifPc
		}
	}
	return -1
}
