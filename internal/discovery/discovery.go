// Package discovery walks a loaded module to enumerate mutation
// candidates in a deterministic order.
package discovery

import (
	"wasmut.dev/pkg/wasmut/internal/dwarfinfo"
	"wasmut.dev/pkg/wasmut/internal/operator"
	"wasmut.dev/pkg/wasmut/internal/policy"
	"wasmut.dev/pkg/wasmut/internal/wasm"
)

// Candidate is one discovered mutation: a single instruction, replaced
// with one operator's output.
type Candidate struct {
	ID                int
	FuncIndex         uint32
	InstructionOffset int
	InstructionLength int
	AbsoluteOffset    uint64
	Operator          string
	ReplacementBytes  []byte
	OriginalOpcode    wasm.Opcode
	Function          string
	File              string
	Line              int
	Column            int
	Description       string
}

// Discover enumerates every mutation candidate in m, in the fixed order of
// (function index, instruction byte offset, operator catalogue order) so
// candidate IDs stay reproducible across repeated runs against the same
// module and config.
//
// resolver may be nil (no debug info available); policy may be nil (no
// filtering).
func Discover(m *wasm.Module, resolver *dwarfinfo.Resolver, reg *operator.Registry, pol *policy.Policy) ([]Candidate, error) {
	ctx := operator.NewContext(m)
	var candidates []Candidate
	id := 0

	err := m.Walk(func(funcIndex uint32, fn *wasm.Function, ins wasm.Instruction) error {
		funcName := m.DefinedFuncName(funcIndex)
		var file string
		var line, col int
		if resolver != nil {
			loc := resolver.Lookup(ins.AbsoluteOffset(fn))
			file = loc.File
			line = loc.Line
			col = loc.Column
			if loc.Function != "" {
				funcName = loc.Function
			}
		}
		if pol != nil && !pol.Check(file, funcName) {
			// With inlining, any enclosing frame's name may satisfy the filter.
			allowed := false
			if resolver != nil {
				for _, name := range resolver.FrameNames(ins.AbsoluteOffset(fn)) {
					if pol.Check(file, name) {
						allowed = true
						break
					}
				}
			}
			if !allowed {
				return nil
			}
		}

		for _, rep := range reg.Apply(ins, ctx) {
			candidates = append(candidates, Candidate{
				ID:                id,
				FuncIndex:         funcIndex,
				InstructionOffset: ins.Offset,
				InstructionLength: ins.Length,
				AbsoluteOffset:    ins.AbsoluteOffset(fn),
				Operator:          rep.Operator,
				ReplacementBytes:  rep.Bytes,
				OriginalOpcode:    ins.Opcode,
				Function:          funcName,
				File:              file,
				Line:              line,
				Column:            col,
				Description:       operator.Describe(rep.Operator, ins.Opcode),
			})
			id++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

// Files returns the distinct source files seen across every instruction in
// m that carries debug info, used by the `list-files` CLI verb. allowed
// reports whether pol currently admits that file; function-only matches
// are not reflected here, since this lists the file dimension alone.
func Files(m *wasm.Module, resolver *dwarfinfo.Resolver, pol *policy.Policy) []FileEntry {
	seen := map[string]bool{}
	var out []FileEntry
	if resolver == nil {
		return out
	}
	_ = m.Walk(func(funcIndex uint32, fn *wasm.Function, ins wasm.Instruction) error {
		loc := resolver.Lookup(ins.AbsoluteOffset(fn))
		if loc.File == "" || seen[loc.File] {
			return nil
		}
		seen[loc.File] = true
		allowed := true
		if pol != nil {
			allowed = pol.CheckFile(loc.File)
		}
		out = append(out, FileEntry{Name: loc.File, Allowed: allowed})
		return nil
	})
	return out
}

// FileEntry is one row of `list-files` output.
type FileEntry struct {
	Name    string
	Allowed bool
}

// Functions returns the distinct function names defined in m, used by the
// `list-functions` CLI verb.
func Functions(m *wasm.Module, pol *policy.Policy) []FunctionEntry {
	out := make([]FunctionEntry, 0, len(m.Funcs))
	for i := range m.Funcs {
		funcIndex := m.ImportedFuncCount + uint32(i)
		name := m.DefinedFuncName(funcIndex)
		allowed := true
		if pol != nil {
			allowed = pol.CheckFunction(name)
		}
		out = append(out, FunctionEntry{Name: name, Allowed: allowed})
	}
	return out
}

// FunctionEntry is one row of `list-functions` output.
type FunctionEntry struct {
	Name    string
	Allowed bool
}
