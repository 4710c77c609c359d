package wasm

import (
	"bytes"
	"fmt"
)

// BlockType describes the type of a block/loop/if construct: either the
// empty type, a single value type, or an index into the module's type
// section (multi-value blocks).
type BlockType struct {
	Empty     bool
	ValType   ValueType
	TypeIndex int64 // valid when !Empty && ValType == 0
	IsIndex   bool
}

// MemArg is the alignment/offset pair attached to memory instructions.
type MemArg struct {
	Align  uint32
	Offset uint32
}

// Instruction is one decoded instruction together with its location inside
// the owning function's Code slice.
type Instruction struct {
	Offset int // byte offset of the opcode within Function.Code
	Length int // total encoded length including opcode and immediates

	Opcode   Opcode
	Prefixed Opcode // sub-opcode when Opcode is OpPrefixedFC, OpPrefixedFD, or OpPrefixedFE

	// Immediates, populated depending on Opcode.
	BlockType   BlockType
	LabelIndex  uint32
	LabelTable  []uint32 // br_table
	FuncIndex   uint32
	TypeIndex   uint32
	TableIndex  uint32
	LocalIndex  uint32
	GlobalIndex uint32
	MemArg      MemArg
	I32         int32
	I64         int64
	F32         float32
	F64         float64
	SelectTypes []ValueType
}

// AbsoluteOffset returns the instruction's offset relative to the start of
// the code section's payload, given the owning function's
// CodeSectionOffset.
func (ins Instruction) AbsoluteOffset(fn *Function) uint64 {
	return fn.CodeSectionOffset + uint64(ins.Offset)
}

// decoder turns a function body's raw bytes into a sequence of Instruction
// values, preserving the byte offset of each one.
type decoder struct {
	code []byte
	pos  int
}

func newDecoder(code []byte) *decoder {
	return &decoder{code: code}
}

func (d *decoder) hasMore() bool {
	return d.pos < len(d.code)
}

func (d *decoder) byteReader() *bytes.Reader {
	return bytes.NewReader(d.code[d.pos:])
}

func (d *decoder) readByte() (byte, error) {
	if d.pos >= len(d.code) {
		return 0, fmt.Errorf("wasm: unexpected end of function body")
	}
	b := d.code[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) readULEB128() (uint64, error) {
	r := d.byteReader()
	v, n, err := readULEB128(r)
	if err != nil {
		return 0, err
	}
	d.pos += n
	return v, nil
}

func (d *decoder) readSLEB128(size uint) (int64, error) {
	r := d.byteReader()
	v, n, err := readSLEB128(r, size)
	if err != nil {
		return 0, err
	}
	d.pos += n
	return v, nil
}

func (d *decoder) readF32() (float32, error) {
	if d.pos+4 > len(d.code) {
		return 0, fmt.Errorf("wasm: unexpected end of function body reading f32")
	}
	bits := uint32(d.code[d.pos]) | uint32(d.code[d.pos+1])<<8 | uint32(d.code[d.pos+2])<<16 | uint32(d.code[d.pos+3])<<24
	d.pos += 4
	return float32FromBits(bits), nil
}

func (d *decoder) readF64() (float64, error) {
	if d.pos+8 > len(d.code) {
		return 0, fmt.Errorf("wasm: unexpected end of function body reading f64")
	}
	var bits uint64
	for i := 0; i < 8; i++ {
		bits |= uint64(d.code[d.pos+i]) << (8 * i)
	}
	d.pos += 8
	return float64FromBits(bits), nil
}

func (d *decoder) readMemArg() (MemArg, error) {
	align, err := d.readULEB128()
	if err != nil {
		return MemArg{}, err
	}
	offset, err := d.readULEB128()
	if err != nil {
		return MemArg{}, err
	}
	return MemArg{Align: uint32(align), Offset: uint32(offset)}, nil
}

func (d *decoder) readBlockType() (BlockType, error) {
	// The single-byte forms (empty, or a bare value type) are distinguished
	// by the literal byte value, not by decoding it as a signed LEB128
	// number first — 0x40 and the value type bytes all sign-extend to small
	// negative s33 values that don't round-trip back to themselves, so they
	// have to be matched before any LEB128 decoding happens.
	if d.pos >= len(d.code) {
		return BlockType{}, fmt.Errorf("wasm: unexpected end of function body reading block type")
	}
	peek := d.code[d.pos]
	switch peek {
	case 0x40:
		d.pos++
		return BlockType{Empty: true}, nil
	case byte(I32), byte(I64), byte(F32), byte(F64), byte(V128), byte(FuncRef), byte(ExternRef):
		d.pos++
		return BlockType{ValType: ValueType(peek)}, nil
	}
	r := d.byteReader()
	b, n, err := readSLEB128(r, 33)
	if err != nil {
		return BlockType{}, err
	}
	d.pos += n
	return BlockType{IsIndex: true, TypeIndex: b}, nil
}

// next decodes and returns the instruction starting at the decoder's
// current position.
func (d *decoder) next() (Instruction, error) {
	start := d.pos
	opByte, err := d.readByte()
	if err != nil {
		return Instruction{}, err
	}
	op := Opcode(opByte)
	ins := Instruction{Offset: start, Opcode: op}

	switch op {
	case OpBlock, OpLoop, OpIf:
		bt, err := d.readBlockType()
		if err != nil {
			return Instruction{}, err
		}
		ins.BlockType = bt
	case OpBr, OpBrIf:
		v, err := d.readULEB128()
		if err != nil {
			return Instruction{}, err
		}
		ins.LabelIndex = uint32(v)
	case OpBrTable:
		count, err := d.readULEB128()
		if err != nil {
			return Instruction{}, err
		}
		labels := make([]uint32, 0, count)
		for i := uint64(0); i < count; i++ {
			v, err := d.readULEB128()
			if err != nil {
				return Instruction{}, err
			}
			labels = append(labels, uint32(v))
		}
		def, err := d.readULEB128()
		if err != nil {
			return Instruction{}, err
		}
		ins.LabelTable = labels
		ins.LabelIndex = uint32(def)
	case OpCall:
		v, err := d.readULEB128()
		if err != nil {
			return Instruction{}, err
		}
		ins.FuncIndex = uint32(v)
	case OpCallIndirect:
		t, err := d.readULEB128()
		if err != nil {
			return Instruction{}, err
		}
		tbl, err := d.readULEB128()
		if err != nil {
			return Instruction{}, err
		}
		ins.TypeIndex = uint32(t)
		ins.TableIndex = uint32(tbl)
	case OpSelectT:
		count, err := d.readULEB128()
		if err != nil {
			return Instruction{}, err
		}
		types := make([]ValueType, 0, count)
		for i := uint64(0); i < count; i++ {
			b, err := d.readByte()
			if err != nil {
				return Instruction{}, err
			}
			types = append(types, ValueType(b))
		}
		ins.SelectTypes = types
	case OpLocalGet, OpLocalSet, OpLocalTee:
		v, err := d.readULEB128()
		if err != nil {
			return Instruction{}, err
		}
		ins.LocalIndex = uint32(v)
	case OpGlobalGet, OpGlobalSet:
		v, err := d.readULEB128()
		if err != nil {
			return Instruction{}, err
		}
		ins.GlobalIndex = uint32(v)
	case OpI32Load, OpI64Load, OpF32Load, OpF64Load,
		OpI32Load8S, OpI32Load8U, OpI32Load16S, OpI32Load16U,
		OpI64Load8S, OpI64Load8U, OpI64Load16S, OpI64Load16U, OpI64Load32S, OpI64Load32U,
		OpI32Store, OpI64Store, OpF32Store, OpF64Store,
		OpI32Store8, OpI32Store16, OpI64Store8, OpI64Store16, OpI64Store32:
		ma, err := d.readMemArg()
		if err != nil {
			return Instruction{}, err
		}
		ins.MemArg = ma
	case OpMemorySize, OpMemoryGrow:
		_, err := d.readULEB128() // reserved memory index, always 0
		if err != nil {
			return Instruction{}, err
		}
	case OpI32Const:
		v, err := d.readSLEB128(32)
		if err != nil {
			return Instruction{}, err
		}
		ins.I32 = int32(v)
	case OpI64Const:
		v, err := d.readSLEB128(64)
		if err != nil {
			return Instruction{}, err
		}
		ins.I64 = v
	case OpF32Const:
		v, err := d.readF32()
		if err != nil {
			return Instruction{}, err
		}
		ins.F32 = v
	case OpF64Const:
		v, err := d.readF64()
		if err != nil {
			return Instruction{}, err
		}
		ins.F64 = v
	case OpPrefixedFC:
		sub, err := d.readULEB128()
		if err != nil {
			return Instruction{}, err
		}
		ins.Prefixed = Opcode(sub)
		switch ins.Prefixed {
		case SubMemoryInit:
			v, err := d.readULEB128()
			if err != nil {
				return Instruction{}, err
			}
			ins.FuncIndex = uint32(v) // reused as data segment index
			if _, err := d.readULEB128(); err != nil {
				return Instruction{}, err
			}
		case SubDataDrop, SubElemDrop:
			v, err := d.readULEB128()
			if err != nil {
				return Instruction{}, err
			}
			ins.FuncIndex = uint32(v)
		case SubMemoryCopy:
			if _, err := d.readULEB128(); err != nil {
				return Instruction{}, err
			}
			if _, err := d.readULEB128(); err != nil {
				return Instruction{}, err
			}
		case SubMemoryFill:
			if _, err := d.readULEB128(); err != nil {
				return Instruction{}, err
			}
		case SubTableInit, SubTableCopy:
			v, err := d.readULEB128()
			if err != nil {
				return Instruction{}, err
			}
			ins.FuncIndex = uint32(v)
			if _, err := d.readULEB128(); err != nil {
				return Instruction{}, err
			}
		case SubTableGrow, SubTableSize, SubTableFill:
			v, err := d.readULEB128()
			if err != nil {
				return Instruction{}, err
			}
			ins.TableIndex = uint32(v)
		}
	case OpPrefixedFD:
		sub, err := d.readULEB128()
		if err != nil {
			return Instruction{}, err
		}
		ins.Prefixed = Opcode(sub)
		switch ins.Prefixed {
		case SubV128Load, SubV128Load8x8S, SubV128Load8x8U, SubV128Load16x4S, SubV128Load16x4U,
			SubV128Load32x2S, SubV128Load32x2U, SubV128Load8Splat, SubV128Load16Splat,
			SubV128Load32Splat, SubV128Load64Splat, SubV128Store, SubV128Load32Zero, SubV128Load64Zero:
			if _, err := d.readMemArg(); err != nil {
				return Instruction{}, err
			}
		case SubV128Load8Lane, SubV128Load16Lane, SubV128Load32Lane, SubV128Load64Lane,
			SubV128Store8Lane, SubV128Store16Lane, SubV128Store32Lane, SubV128Store64Lane:
			if _, err := d.readMemArg(); err != nil {
				return Instruction{}, err
			}
			if _, err := d.readByte(); err != nil { // lane index
				return Instruction{}, err
			}
		case SubV128Const, SubI8x16Shuffle:
			for i := 0; i < 16; i++ {
				if _, err := d.readByte(); err != nil {
					return Instruction{}, err
				}
			}
		case 0x15, 0x16, 0x17, 0x18, 0x19, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E, 0x1F, 0x20, 0x21, 0x22:
			// extract_lane / replace_lane: a lane-index byte alone
			if _, err := d.readByte(); err != nil {
				return Instruction{}, err
			}
		default:
			// every other SIMD sub-opcode (arithmetic, comparison, splat,
			// bitmask, shift) takes no immediate.
		}
	case OpPrefixedFE:
		sub, err := d.readULEB128()
		if err != nil {
			return Instruction{}, err
		}
		ins.Prefixed = Opcode(sub)
		if ins.Prefixed != SubAtomicFence {
			if _, err := d.readMemArg(); err != nil {
				return Instruction{}, err
			}
		}
	case OpUnreachable, OpNop, OpElse, OpEnd, OpReturn, OpDrop, OpSelect:
		// no immediates
	default:
		if op.IsBinaryNumeric() || op.IsRelational() || op.IsUnaryNumeric() || op == OpI32Eqz || op == OpI64Eqz {
			// no immediates
		} else if op >= OpI32WrapI64 && op <= OpF64ReinterpretI64 {
			// conversions, no immediates
		} else if op >= OpI32Extend8S && op <= OpI64Extend32S {
			// sign extension, no immediates
		} else {
			return Instruction{}, fmt.Errorf("wasm: unsupported opcode %s at offset %d", op, start)
		}
	}

	ins.Length = d.pos - start
	return ins, nil
}

// Decode fully decodes a function body into its instruction sequence.
func Decode(code []byte) ([]Instruction, error) {
	d := newDecoder(code)
	var out []Instruction
	for d.hasMore() {
		ins, err := d.next()
		if err != nil {
			return nil, err
		}
		out = append(out, ins)
	}
	return out, nil
}

// Instructions decodes fn's body.
func (fn *Function) Instructions() ([]Instruction, error) {
	return Decode(fn.Code)
}
