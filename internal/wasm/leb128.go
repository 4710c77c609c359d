package wasm

import (
	"errors"
	"io"
)

var (
	errIntegerTooLarge          = errors.New("wasm: integer too large")
	errIntRepresentationTooLong = errors.New("wasm: integer representation too long")
)

// readULEB128 reads an unsigned LEB128 integer from r, returning the decoded
// value and the number of bytes consumed.
func readULEB128(r io.ByteReader) (uint64, int, error) {
	var value uint64
	var shift uint
	var n int
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, n, err
		}
		n++
		if shift >= 64 && b&0x7f != 0 {
			return 0, n, errIntegerTooLarge
		}
		value |= uint64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
		if shift > 70 {
			return 0, n, errIntRepresentationTooLong
		}
	}
	return value, n, nil
}

// readSLEB128 reads a signed LEB128 integer of up to `size` bits.
func readSLEB128(r io.ByteReader, size uint) (int64, int, error) {
	var value int64
	var shift uint
	var n int
	var b byte
	var err error
	for {
		b, err = r.ReadByte()
		if err != nil {
			return 0, n, err
		}
		n++
		value |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
		if shift > size+7 {
			return 0, n, errIntRepresentationTooLong
		}
	}
	if shift < size && b&0x40 != 0 {
		value |= -1 << shift
	}
	return value, n, nil
}
