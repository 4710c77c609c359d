package wasm

// buildModule hand-assembles a minimal, valid WebAssembly binary from its
// sections so tests can exercise the parser and decoder without any
// external toolchain. Each section's payload is supplied already encoded;
// buildModule only prepends the header and the per-section id/size framing.
type moduleBuilder struct {
	sections []builtSection
}

type builtSection struct {
	id      sectionID
	payload []byte
}

func (b *moduleBuilder) add(id sectionID, payload []byte) *moduleBuilder {
	b.sections = append(b.sections, builtSection{id: id, payload: payload})
	return b
}

func (b *moduleBuilder) bytes() []byte {
	out := []byte(magic)
	out = append(out, 0x01, 0x00, 0x00, 0x00)
	for _, s := range b.sections {
		out = append(out, byte(s.id))
		out = appendULEB128(out, uint64(len(s.payload)))
		out = append(out, s.payload...)
	}
	return out
}

func vec(entries ...[]byte) []byte {
	out := appendULEB128(nil, uint64(len(entries)))
	for _, e := range entries {
		out = append(out, e...)
	}
	return out
}

func str(s string) []byte {
	out := appendULEB128(nil, uint64(len(s)))
	return append(out, s...)
}

// buildSimpleAdd builds a module with a single exported function
//
//	func add(a i32, b i32) i32 { return a + b }
//
// equivalent to: (local.get 0) (local.get 1) (i32.add)
func buildSimpleAdd() []byte {
	b := &moduleBuilder{}

	functype := append([]byte{0x60}, vec([]byte{byte(I32)}, []byte{byte(I32)})...)
	functype = append(functype, vec([]byte{byte(I32)})...)
	b.add(secType, vec(functype))

	b.add(secFunction, vec(appendULEB128(nil, 0)))

	exportEntry := append(str("add"), byte(ExportFunc))
	exportEntry = append(exportEntry, appendULEB128(nil, 0)...)
	b.add(secExport, vec(exportEntry))

	body := []byte{
		byte(OpLocalGet), 0x00,
		byte(OpLocalGet), 0x01,
		byte(OpI32Add),
		byte(OpEnd),
	}
	localsVec := appendULEB128(nil, 0) // no local decls
	funcBody := append(localsVec, body...)
	funcEntry := appendULEB128(nil, uint64(len(funcBody)))
	funcEntry = append(funcEntry, funcBody...)
	b.add(secCode, vec(funcEntry))

	return b.bytes()
}

// buildUnreachableBranch builds a module with one exported function whose
// body contains an instruction nested inside an `if` block that never
// executes under the function's sole export path, used to exercise
// coverage-based skip semantics:
//
//	func f(a i32) i32 {
//	    if (a) { unreachable-in-spirit: i32.const 7 } else {}
//	    i32.const 1
//	}
func buildUnreachableBranch() []byte {
	b := &moduleBuilder{}
	functype := append([]byte{0x60}, vec([]byte{byte(I32)})...)
	functype = append(functype, vec([]byte{byte(I32)})...)
	b.add(secType, vec(functype))
	b.add(secFunction, vec(appendULEB128(nil, 0)))
	exportEntry := append(str("f"), byte(ExportFunc))
	exportEntry = append(exportEntry, appendULEB128(nil, 0)...)
	b.add(secExport, vec(exportEntry))

	body := []byte{
		byte(OpLocalGet), 0x00,
		byte(OpIf), 0x40,
		byte(OpI32Const), 0x07,
		byte(OpElse),
		byte(OpEnd),
		byte(OpI32Const), 0x01,
		byte(OpEnd),
	}
	localsVec := appendULEB128(nil, 0)
	funcBody := append(localsVec, body...)
	funcEntry := appendULEB128(nil, uint64(len(funcBody)))
	funcEntry = append(funcEntry, funcBody...)
	b.add(secCode, vec(funcEntry))

	return b.bytes()
}
