package vm

import "wasmut.dev/pkg/wasmut/internal/wasm"

// structure records, for every block/loop/if instruction in a decoded
// function body (indexed by position in the instrs slice, not byte
// offset), the position of its matching `else` (elseOf has no entry when
// there is none) and its matching `end`.
type structure struct {
	elseOf map[int]int
	endOf  map[int]int
}

// matchStructure scans a flat instruction list and pairs up nested
// block/loop/if constructs with their else/end, the way a recursive-descent
// parser would but done once per function body so the interpreter can
// jump directly instead of re-scanning on every branch.
func matchStructure(instrs []wasm.Instruction) structure {
	s := structure{elseOf: map[int]int{}, endOf: map[int]int{}}
	var stack []int // indices of open block/loop/if instructions
	for i, ins := range instrs {
		switch ins.Opcode {
		case wasm.OpBlock, wasm.OpLoop, wasm.OpIf:
			stack = append(stack, i)
		case wasm.OpElse:
			if len(stack) > 0 {
				s.elseOf[stack[len(stack)-1]] = i
			}
		case wasm.OpEnd:
			if len(stack) > 0 {
				open := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				s.endOf[open] = i
			}
		}
	}
	return s
}
