package wasm

// AppendULEB128 appends v to buf in unsigned LEB128 form.
func AppendULEB128(buf []byte, v uint64) []byte {
	return appendULEB128(buf, v)
}

// AppendSLEB128 appends v to buf in signed LEB128 form, sized for a value
// of the given bit width (32 or 64).
func AppendSLEB128(buf []byte, v int64, size uint) []byte {
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			more = false
		} else {
			b |= 0x80
		}
		buf = append(buf, b)
	}
	return buf
}

// EncodeI32Const returns the bytes of an `i32.const v` instruction.
func EncodeI32Const(v int32) []byte {
	buf := []byte{byte(OpI32Const)}
	return AppendSLEB128(buf, int64(v), 32)
}

// EncodeI64Const returns the bytes of an `i64.const v` instruction.
func EncodeI64Const(v int64) []byte {
	buf := []byte{byte(OpI64Const)}
	return AppendSLEB128(buf, v, 64)
}

// EncodeF32Const returns the bytes of an `f32.const v` instruction.
func EncodeF32Const(v float32) []byte {
	bits := float32Bits(v)
	return []byte{byte(OpF32Const), byte(bits), byte(bits >> 8), byte(bits >> 16), byte(bits >> 24)}
}

// EncodeF64Const returns the bytes of an `f64.const v` instruction.
func EncodeF64Const(v float64) []byte {
	bits := float64Bits(v)
	b := make([]byte, 9)
	b[0] = byte(OpF64Const)
	for i := 0; i < 8; i++ {
		b[1+i] = byte(bits >> (8 * i))
	}
	return b
}
