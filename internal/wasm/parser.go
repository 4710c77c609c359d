package wasm

import (
	"encoding/binary"
	"fmt"
)

const (
	magic   = "\x00asm"
	version = uint32(1)
)

type sectionID byte

const (
	secCustom sectionID = iota
	secType
	secImport
	secFunction
	secTable
	secMemory
	secGlobal
	secExport
	secStart
	secElement
	secCode
	secData
	secDataCount
)

// cursor is a forward-only reader over a byte slice that tracks its
// absolute position, used so that function bodies can record the file
// offset of their first byte.
type cursor struct {
	data []byte
	pos  int
}

func (c *cursor) ReadByte() (byte, error) {
	if c.pos >= len(c.data) {
		return 0, fmt.Errorf("wasm: unexpected end of input at offset %d", c.pos)
	}
	b := c.data[c.pos]
	c.pos++
	return b, nil
}

func (c *cursor) bytes(n int) ([]byte, error) {
	if c.pos+n > len(c.data) {
		return nil, fmt.Errorf("wasm: unexpected end of input reading %d bytes at offset %d", n, c.pos)
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *cursor) uleb128() (uint64, error) {
	v, n, err := readULEB128(c)
	if err != nil {
		return 0, err
	}
	_ = n
	return v, nil
}

func (c *cursor) sleb128(size uint) (int64, error) {
	return func() (int64, error) {
		v, _, err := readSLEB128(c, size)
		return v, err
	}()
}

func (c *cursor) u32Index() (uint32, error) {
	v, err := c.uleb128()
	return uint32(v), err
}

func (c *cursor) name() (string, error) {
	n, err := c.uleb128()
	if err != nil {
		return "", err
	}
	b, err := c.bytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c *cursor) valueType() (ValueType, error) {
	b, err := c.ReadByte()
	if err != nil {
		return 0, err
	}
	return ValueType(b), nil
}

func (c *cursor) limits() (Limits, error) {
	flags, err := c.ReadByte()
	if err != nil {
		return Limits{}, err
	}
	min, err := c.u32Index()
	if err != nil {
		return Limits{}, err
	}
	l := Limits{Min: min}
	if flags&0x1 != 0 {
		max, err := c.u32Index()
		if err != nil {
			return Limits{}, err
		}
		l.Max = &max
	}
	return l, nil
}

func parseVector[T any](c *cursor, elem func(*cursor) (T, error)) ([]T, error) {
	n, err := c.uleb128()
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, n)
	for i := uint64(0); i < n; i++ {
		v, err := elem(c)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Parse decodes a complete WebAssembly binary module.
func Parse(data []byte) (*Module, error) {
	if len(data) < 8 || string(data[:4]) != magic {
		return nil, fmt.Errorf("wasm: not a wasm module (bad magic)")
	}
	if binary.LittleEndian.Uint32(data[4:8]) != version {
		return nil, fmt.Errorf("wasm: unsupported wasm version")
	}

	c := &cursor{data: data, pos: 8}
	m := &Module{}
	var funcTypeIndexes []uint32

	for c.pos < len(c.data) {
		idByte, err := c.ReadByte()
		if err != nil {
			return nil, err
		}
		size, err := c.uleb128()
		if err != nil {
			return nil, err
		}
		sectionStart := c.pos
		sectionEnd := sectionStart + int(size)
		if sectionEnd > len(c.data) {
			return nil, fmt.Errorf("wasm: section %d overruns module", idByte)
		}

		switch sectionID(idByte) {
		case secCustom:
			nm, err := c.name()
			if err != nil {
				return nil, err
			}
			body := c.data[c.pos:sectionEnd]
			m.Customs = append(m.Customs, CustomSection{Name: nm, Data: body})
		case secType:
			types, err := parseVector(c, parseFunctionType)
			if err != nil {
				return nil, err
			}
			m.Types = types
		case secImport:
			imports, err := parseVector(c, parseImport)
			if err != nil {
				return nil, err
			}
			m.Imports = imports
			for _, imp := range imports {
				if imp.Kind == ImportFunc {
					m.ImportedFuncCount++
				}
			}
		case secFunction:
			idxs, err := parseVector(c, (*cursor).u32Index)
			if err != nil {
				return nil, err
			}
			funcTypeIndexes = idxs
		case secTable:
			tables, err := parseVector(c, parseTableType)
			if err != nil {
				return nil, err
			}
			m.Tables = tables
		case secMemory:
			mems, err := parseVector(c, func(c *cursor) (MemoryType, error) {
				l, err := c.limits()
				return MemoryType{Limits: l}, err
			})
			if err != nil {
				return nil, err
			}
			m.Memories = mems
		case secGlobal:
			globals, err := parseVector(c, parseGlobal)
			if err != nil {
				return nil, err
			}
			m.Globals = globals
		case secExport:
			exports, err := parseVector(c, parseExport)
			if err != nil {
				return nil, err
			}
			m.Exports = exports
		case secStart:
			idx, err := c.u32Index()
			if err != nil {
				return nil, err
			}
			m.Start = &idx
		case secElement:
			elems, err := parseVector(c, parseElementSegment)
			if err != nil {
				return nil, err
			}
			m.Elements = elems
		case secCode:
			funcs, err := parseCodeSection(c, funcTypeIndexes)
			if err != nil {
				return nil, err
			}
			m.Funcs = funcs
		case secData:
			datas, err := parseVector(c, parseDataSegment)
			if err != nil {
				return nil, err
			}
			m.Data = datas
		case secDataCount:
			if _, err := c.uleb128(); err != nil {
				return nil, err
			}
		default:
			// Unknown section id: skip.
		}

		c.pos = sectionEnd
	}

	applyNameSection(m)
	return m, nil
}

func parseFunctionType(c *cursor) (FunctionType, error) {
	tag, err := c.ReadByte()
	if err != nil {
		return FunctionType{}, err
	}
	if tag != 0x60 {
		return FunctionType{}, fmt.Errorf("wasm: expected functype tag 0x60, got %#x", tag)
	}
	params, err := parseVector(c, (*cursor).valueType)
	if err != nil {
		return FunctionType{}, err
	}
	results, err := parseVector(c, (*cursor).valueType)
	if err != nil {
		return FunctionType{}, err
	}
	return FunctionType{Params: params, Results: results}, nil
}

func parseImport(c *cursor) (Import, error) {
	mod, err := c.name()
	if err != nil {
		return Import{}, err
	}
	nm, err := c.name()
	if err != nil {
		return Import{}, err
	}
	kind, err := c.ReadByte()
	if err != nil {
		return Import{}, err
	}
	imp := Import{Module: mod, Name: nm, Kind: ImportKind(kind)}
	switch ImportKind(kind) {
	case ImportFunc:
		idx, err := c.u32Index()
		if err != nil {
			return Import{}, err
		}
		imp.FuncTypeIndex = idx
	case ImportTable:
		tt, err := parseTableType(c)
		if err != nil {
			return Import{}, err
		}
		imp.TableType = tt
	case ImportMemory:
		l, err := c.limits()
		if err != nil {
			return Import{}, err
		}
		imp.MemoryType = MemoryType{Limits: l}
	case ImportGlobal:
		gt, err := parseGlobalType(c)
		if err != nil {
			return Import{}, err
		}
		imp.GlobalType = gt
	default:
		return Import{}, fmt.Errorf("wasm: unknown import kind %#x", kind)
	}
	return imp, nil
}

func parseTableType(c *cursor) (TableType, error) {
	et, err := c.valueType()
	if err != nil {
		return TableType{}, err
	}
	l, err := c.limits()
	if err != nil {
		return TableType{}, err
	}
	return TableType{ElemType: et, Limits: l}, nil
}

func parseGlobalType(c *cursor) (GlobalType, error) {
	vt, err := c.valueType()
	if err != nil {
		return GlobalType{}, err
	}
	mutByte, err := c.ReadByte()
	if err != nil {
		return GlobalType{}, err
	}
	return GlobalType{ValType: vt, IsMutable: mutByte == 1}, nil
}

func parseGlobal(c *cursor) (GlobalDef, error) {
	gt, err := parseGlobalType(c)
	if err != nil {
		return GlobalDef{}, err
	}
	init, err := parseConstExpr(c)
	if err != nil {
		return GlobalDef{}, err
	}
	return GlobalDef{Type: gt, Init: init}, nil
}

func parseExport(c *cursor) (Export, error) {
	nm, err := c.name()
	if err != nil {
		return Export{}, err
	}
	kind, err := c.ReadByte()
	if err != nil {
		return Export{}, err
	}
	idx, err := c.u32Index()
	if err != nil {
		return Export{}, err
	}
	return Export{Name: nm, Kind: ExportKind(kind), Index: idx}, nil
}

// parseConstExpr reads a constant init expression, returning its raw bytes
// including the trailing `end` opcode, by decoding instructions until `end`
// is seen at nesting depth zero.
func parseConstExpr(c *cursor) ([]byte, error) {
	start := c.pos
	depth := 0
	for {
		opByte, err := c.ReadByte()
		if err != nil {
			return nil, err
		}
		op := Opcode(opByte)
		switch op {
		case OpEnd:
			if depth == 0 {
				return c.data[start:c.pos], nil
			}
			depth--
		case OpBlock, OpLoop, OpIf:
			depth++
			d := &decoder{code: c.data, pos: c.pos}
			if _, err := d.readBlockType(); err != nil {
				return nil, err
			}
			c.pos = d.pos
		case OpI32Const:
			if _, err := c.sleb128(32); err != nil {
				return nil, err
			}
		case OpI64Const:
			if _, err := c.sleb128(64); err != nil {
				return nil, err
			}
		case OpF32Const:
			if _, err := c.bytes(4); err != nil {
				return nil, err
			}
		case OpF64Const:
			if _, err := c.bytes(8); err != nil {
				return nil, err
			}
		case OpGlobalGet:
			if _, err := c.u32Index(); err != nil {
				return nil, err
			}
		default:
			// ref.null / ref.func and other rare const-expr opcodes: decode
			// conservatively using the general decoder so offsets stay synced.
			c.pos--
			d := &decoder{code: c.data, pos: c.pos}
			ins, err := d.next()
			if err != nil {
				return nil, err
			}
			_ = ins
			c.pos = d.pos
		}
	}
}

func parseElementSegment(c *cursor) (ElementSegment, error) {
	flags, err := c.uleb128()
	if err != nil {
		return ElementSegment{}, err
	}
	seg := ElementSegment{Active: true}
	switch flags {
	case 0:
		off, err := parseConstExpr(c)
		if err != nil {
			return ElementSegment{}, err
		}
		seg.Offset = off
		idxs, err := parseVector(c, (*cursor).u32Index)
		if err != nil {
			return ElementSegment{}, err
		}
		seg.FuncIndexes = idxs
	case 1:
		seg.Active = false
		if _, err := c.ReadByte(); err != nil { // elemkind
			return ElementSegment{}, err
		}
		idxs, err := parseVector(c, (*cursor).u32Index)
		if err != nil {
			return ElementSegment{}, err
		}
		seg.FuncIndexes = idxs
	case 2:
		ti, err := c.u32Index()
		if err != nil {
			return ElementSegment{}, err
		}
		seg.TableIndex = ti
		off, err := parseConstExpr(c)
		if err != nil {
			return ElementSegment{}, err
		}
		seg.Offset = off
		if _, err := c.ReadByte(); err != nil {
			return ElementSegment{}, err
		}
		idxs, err := parseVector(c, (*cursor).u32Index)
		if err != nil {
			return ElementSegment{}, err
		}
		seg.FuncIndexes = idxs
	default:
		// Element kinds using expression vectors (4-7) are rare in
		// WASI-targeted output (clang does not emit them without
		// reference-types proposal features); not supported.
		return ElementSegment{}, fmt.Errorf("wasm: unsupported element segment flags %d", flags)
	}
	return seg, nil
}

func parseDataSegment(c *cursor) (DataSegment, error) {
	flags, err := c.uleb128()
	if err != nil {
		return DataSegment{}, err
	}
	seg := DataSegment{Active: true}
	switch flags {
	case 0:
		off, err := parseConstExpr(c)
		if err != nil {
			return DataSegment{}, err
		}
		seg.Offset = off
	case 1:
		seg.Active = false
	case 2:
		mi, err := c.u32Index()
		if err != nil {
			return DataSegment{}, err
		}
		seg.MemoryIndex = mi
		off, err := parseConstExpr(c)
		if err != nil {
			return DataSegment{}, err
		}
		seg.Offset = off
	default:
		return DataSegment{}, fmt.Errorf("wasm: unsupported data segment flags %d", flags)
	}
	n, err := c.uleb128()
	if err != nil {
		return DataSegment{}, err
	}
	init, err := c.bytes(int(n))
	if err != nil {
		return DataSegment{}, err
	}
	seg.Init = init
	return seg, nil
}

func parseCodeSection(c *cursor, typeIndexes []uint32) ([]Function, error) {
	payloadStart := c.pos
	count, err := c.uleb128()
	if err != nil {
		return nil, err
	}
	if int(count) != len(typeIndexes) {
		return nil, fmt.Errorf("wasm: code section has %d entries but function section declared %d", count, len(typeIndexes))
	}
	funcs := make([]Function, 0, count)
	for i := uint64(0); i < count; i++ {
		size, err := c.uleb128()
		if err != nil {
			return nil, err
		}
		bodyStart := c.pos
		bodyEnd := bodyStart + int(size)
		if bodyEnd > len(c.data) {
			return nil, fmt.Errorf("wasm: function body overruns code section")
		}

		locals, err := parseVector(c, parseLocalRun)
		if err != nil {
			return nil, err
		}
		codeOffset := c.pos
		if bodyEnd < codeOffset || c.data[bodyEnd-1] != byte(OpEnd) {
			return nil, fmt.Errorf("wasm: function body does not end with `end`")
		}
		code := c.data[codeOffset : bodyEnd-1]

		funcs = append(funcs, Function{
			TypeIndex:         typeIndexes[i],
			Locals:            locals,
			Code:              code,
			CodeSectionOffset: uint64(codeOffset - payloadStart),
		})
		c.pos = bodyEnd
	}
	return funcs, nil
}

func parseLocalRun(c *cursor) (Local, error) {
	count, err := c.u32Index()
	if err != nil {
		return Local{}, err
	}
	vt, err := c.valueType()
	if err != nil {
		return Local{}, err
	}
	return Local{Count: count, Type: vt}, nil
}
