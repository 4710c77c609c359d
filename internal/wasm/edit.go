package wasm

// Clone returns a deep copy of the module, suitable as the starting point
// for either meta-mutant construction (internal/metamutant) or a
// classical per-candidate clone-and-patch run (internal/metamutant's
// BuildClassical).
func (m *Module) Clone() *Module {
	out := &Module{
		Start:             cloneUint32Ptr(m.Start),
		ImportedFuncCount: m.ImportedFuncCount,
	}
	out.Types = append([]FunctionType(nil), m.Types...)
	for i := range out.Types {
		out.Types[i].Params = append([]ValueType(nil), m.Types[i].Params...)
		out.Types[i].Results = append([]ValueType(nil), m.Types[i].Results...)
	}
	out.Imports = append([]Import(nil), m.Imports...)
	out.Tables = append([]TableType(nil), m.Tables...)
	out.Memories = append([]MemoryType(nil), m.Memories...)
	out.Globals = make([]GlobalDef, len(m.Globals))
	for i, g := range m.Globals {
		out.Globals[i] = GlobalDef{Type: g.Type, Init: append([]byte(nil), g.Init...)}
	}
	out.Exports = append([]Export(nil), m.Exports...)
	out.Elements = make([]ElementSegment, len(m.Elements))
	for i, e := range m.Elements {
		out.Elements[i] = ElementSegment{
			TableIndex:  e.TableIndex,
			Offset:      append([]byte(nil), e.Offset...),
			FuncIndexes: append([]uint32(nil), e.FuncIndexes...),
			Active:      e.Active,
		}
	}
	out.Data = make([]DataSegment, len(m.Data))
	for i, d := range m.Data {
		out.Data[i] = DataSegment{
			MemoryIndex: d.MemoryIndex,
			Offset:      append([]byte(nil), d.Offset...),
			Init:        append([]byte(nil), d.Init...),
			Active:      d.Active,
		}
	}
	out.Funcs = make([]Function, len(m.Funcs))
	for i, f := range m.Funcs {
		out.Funcs[i] = Function{
			TypeIndex:         f.TypeIndex,
			Locals:            append([]Local(nil), f.Locals...),
			Code:              append([]byte(nil), f.Code...),
			CodeSectionOffset: f.CodeSectionOffset,
			Name:              f.Name,
		}
	}
	out.Customs = append([]CustomSection(nil), m.Customs...)
	return out
}

// renumberCalls rewrites every `call` instruction's function index operand
// through remap, returning a fresh code slice (the ULEB128 encoding of the
// new index may be longer or shorter than the original, so byte offsets
// past the first changed call shift — callers must not hold onto stale
// Instruction.Offset values computed before this rewrite).
func renumberCalls(code []byte, remap func(uint32) uint32) []byte {
	ins, err := Decode(code)
	if err != nil {
		return code
	}
	out := make([]byte, 0, len(code))
	cursor := 0
	for _, in := range ins {
		out = append(out, code[cursor:in.Offset]...)
		if in.Opcode == OpCall {
			newIdx := remap(in.FuncIndex)
			out = append(out, byte(OpCall))
			out = appendULEB128(out, uint64(newIdx))
		} else {
			out = append(out, code[in.Offset:in.Offset+in.Length]...)
		}
		cursor = in.Offset + in.Length
	}
	out = append(out, code[cursor:]...)
	return out
}

func appendULEB128(buf []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		buf = append(buf, b)
		if v == 0 {
			return buf
		}
	}
}

func cloneUint32Ptr(p *uint32) *uint32 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// AppendFunctionImports appends new function imports to the module and
// renumbers every existing reference into the function index space so it
// keeps pointing at the same function. WebAssembly's function index space
// places all imported functions before all module-defined ones, so adding
// an import after the fact shifts every defined function's index up by
// len(imports) — call operands, the start function, exports, and active
// element segments all need the shift (call_indirect names a type, not a
// function, and is left alone).
//
// The returned indices are where the new imports landed, in order.
func (m *Module) AppendFunctionImports(imports []Import) []uint32 {
	shift := uint32(len(imports))
	if shift == 0 {
		return nil
	}
	oldImportedCount := m.ImportedFuncCount

	shiftIdx := func(idx uint32) uint32 {
		if idx >= oldImportedCount {
			return idx + shift
		}
		return idx
	}

	for fi := range m.Funcs {
		m.Funcs[fi].Code = renumberCalls(m.Funcs[fi].Code, shiftIdx)
	}

	if m.Start != nil {
		*m.Start = shiftIdx(*m.Start)
	}
	for i := range m.Exports {
		if m.Exports[i].Kind == ExportFunc {
			m.Exports[i].Index = shiftIdx(m.Exports[i].Index)
		}
	}
	for i := range m.Elements {
		for j := range m.Elements[i].FuncIndexes {
			m.Elements[i].FuncIndexes[j] = shiftIdx(m.Elements[i].FuncIndexes[j])
		}
	}

	// Function imports must sit before non-function imports in encounter
	// order for a clean index-space split; since this implementation keeps
	// imports purely as metadata (never re-serialized to bytes), the
	// simpler rule that matters is ImportedFuncCount accounting, so the
	// new entries are simply appended and the count adjusted.
	firstIndex := oldImportedCount
	indices := make([]uint32, len(imports))
	for i, imp := range imports {
		m.Imports = append(m.Imports, imp)
		indices[i] = firstIndex + uint32(i)
	}
	m.ImportedFuncCount += shift

	return indices
}
