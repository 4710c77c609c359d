package vm

import (
	"math"
	"math/bits"

	"wasmut.dev/pkg/wasmut/internal/wasm"
)

// execMemoryOrNumeric handles every opcode not already special-cased in
// run: memory load/store and the numeric instruction families (binary,
// relational, unary, conversion, sign-extension). Kept separate from run's
// main switch purely to keep that one readable; it is still part of the
// same dispatch loop's instruction budget.
func (inst *Instance) execMemoryOrNumeric(f *frame, ins wasm.Instruction) error {
	switch ins.Opcode {
	case wasm.OpI32Load:
		v, err := inst.loadU32(f, ins.MemArg)
		if err != nil {
			return err
		}
		f.push(uint64(v))
	case wasm.OpI64Load:
		v, err := inst.loadU64(f, ins.MemArg)
		if err != nil {
			return err
		}
		f.push(v)
	case wasm.OpF32Load:
		v, err := inst.loadU32(f, ins.MemArg)
		if err != nil {
			return err
		}
		f.push(uint64(v))
	case wasm.OpF64Load:
		v, err := inst.loadU64(f, ins.MemArg)
		if err != nil {
			return err
		}
		f.push(v)
	case wasm.OpI32Load8S:
		b, err := inst.loadBytes(f, ins.MemArg, 1)
		if err != nil {
			return err
		}
		f.pushI32(int32(int8(b[0])))
	case wasm.OpI32Load8U:
		b, err := inst.loadBytes(f, ins.MemArg, 1)
		if err != nil {
			return err
		}
		f.pushI32(int32(b[0]))
	case wasm.OpI32Load16S:
		b, err := inst.loadBytes(f, ins.MemArg, 2)
		if err != nil {
			return err
		}
		f.pushI32(int32(int16(le16(b))))
	case wasm.OpI32Load16U:
		b, err := inst.loadBytes(f, ins.MemArg, 2)
		if err != nil {
			return err
		}
		f.pushI32(int32(le16(b)))
	case wasm.OpI64Load8S:
		b, err := inst.loadBytes(f, ins.MemArg, 1)
		if err != nil {
			return err
		}
		f.push(uint64(int64(int8(b[0]))))
	case wasm.OpI64Load8U:
		b, err := inst.loadBytes(f, ins.MemArg, 1)
		if err != nil {
			return err
		}
		f.push(uint64(b[0]))
	case wasm.OpI64Load16S:
		b, err := inst.loadBytes(f, ins.MemArg, 2)
		if err != nil {
			return err
		}
		f.push(uint64(int64(int16(le16(b)))))
	case wasm.OpI64Load16U:
		b, err := inst.loadBytes(f, ins.MemArg, 2)
		if err != nil {
			return err
		}
		f.push(uint64(le16(b)))
	case wasm.OpI64Load32S:
		b, err := inst.loadBytes(f, ins.MemArg, 4)
		if err != nil {
			return err
		}
		f.push(uint64(int64(int32(le32(b)))))
	case wasm.OpI64Load32U:
		b, err := inst.loadBytes(f, ins.MemArg, 4)
		if err != nil {
			return err
		}
		f.push(uint64(le32(b)))
	case wasm.OpI32Store, wasm.OpF32Store:
		v := uint32(f.pop())
		return inst.storeBytes(f, ins.MemArg, le32bytes(v))
	case wasm.OpI64Store, wasm.OpF64Store:
		v := f.pop()
		return inst.storeBytes(f, ins.MemArg, le64bytes(v))
	case wasm.OpI32Store8:
		v := byte(f.pop())
		return inst.storeBytes(f, ins.MemArg, []byte{v})
	case wasm.OpI32Store16:
		v := uint16(f.pop())
		return inst.storeBytes(f, ins.MemArg, []byte{byte(v), byte(v >> 8)})
	case wasm.OpI64Store8:
		v := byte(f.pop())
		return inst.storeBytes(f, ins.MemArg, []byte{v})
	case wasm.OpI64Store16:
		v := uint16(f.pop())
		return inst.storeBytes(f, ins.MemArg, []byte{byte(v), byte(v >> 8)})
	case wasm.OpI64Store32:
		v := uint32(f.pop())
		return inst.storeBytes(f, ins.MemArg, le32bytes(v))
	case wasm.OpI32Eqz:
		f.pushI32(b2i(f.popI32() == 0))
	case wasm.OpI64Eqz:
		f.pushI32(b2i(f.pop() == 0))
	case wasm.OpI32WrapI64:
		f.pushI32(int32(f.pop()))
	case wasm.OpI64ExtendI32S:
		f.push(uint64(int64(f.popI32())))
	case wasm.OpI64ExtendI32U:
		f.push(uint64(uint32(f.popI32())))
	case wasm.OpI32TruncF32S:
		return truncConv(f, float64(f.popF32()), -2147483648, 2147483648, func(v float64) { f.pushI32(int32(v)) })
	case wasm.OpI32TruncF32U:
		return truncConv(f, float64(f.popF32()), 0, 4294967296, func(v float64) { f.pushI32(int32(uint32(v))) })
	case wasm.OpI32TruncF64S:
		return truncConv(f, f.popF64(), -2147483648, 2147483648, func(v float64) { f.pushI32(int32(v)) })
	case wasm.OpI32TruncF64U:
		return truncConv(f, f.popF64(), 0, 4294967296, func(v float64) { f.pushI32(int32(uint32(v))) })
	case wasm.OpI64TruncF32S:
		return truncConv(f, float64(f.popF32()), -9223372036854775808, 9223372036854775808, func(v float64) { f.push(uint64(int64(v))) })
	case wasm.OpI64TruncF32U:
		return truncConv(f, float64(f.popF32()), 0, 18446744073709551616, func(v float64) { f.push(uint64(v)) })
	case wasm.OpI64TruncF64S:
		return truncConv(f, f.popF64(), -9223372036854775808, 9223372036854775808, func(v float64) { f.push(uint64(int64(v))) })
	case wasm.OpI64TruncF64U:
		return truncConv(f, f.popF64(), 0, 18446744073709551616, func(v float64) { f.push(uint64(v)) })
	case wasm.OpF32ConvertI32S:
		f.pushF32(float32(f.popI32()))
	case wasm.OpF32ConvertI32U:
		f.pushF32(float32(uint32(f.popI32())))
	case wasm.OpF32ConvertI64S:
		f.pushF32(float32(int64(f.pop())))
	case wasm.OpF32ConvertI64U:
		f.pushF32(float32(f.pop()))
	case wasm.OpF32DemoteF64:
		f.pushF32(float32(f.popF64()))
	case wasm.OpF64ConvertI32S:
		f.pushF64(float64(f.popI32()))
	case wasm.OpF64ConvertI32U:
		f.pushF64(float64(uint32(f.popI32())))
	case wasm.OpF64ConvertI64S:
		f.pushF64(float64(int64(f.pop())))
	case wasm.OpF64ConvertI64U:
		f.pushF64(float64(f.pop()))
	case wasm.OpF64PromoteF32:
		f.pushF64(float64(f.popF32()))
	case wasm.OpI32ReinterpretF32:
		f.pushI32(int32(uint32(f.pop())))
	case wasm.OpI64ReinterpretF64:
		f.push(f.pop())
	case wasm.OpF32ReinterpretI32:
		f.push(f.pop())
	case wasm.OpF64ReinterpretI64:
		f.push(f.pop())
	case wasm.OpI32Extend8S:
		f.pushI32(int32(int8(f.popI32())))
	case wasm.OpI32Extend16S:
		f.pushI32(int32(int16(f.popI32())))
	case wasm.OpI64Extend8S:
		f.push(uint64(int64(int8(f.pop()))))
	case wasm.OpI64Extend16S:
		f.push(uint64(int64(int16(f.pop()))))
	case wasm.OpI64Extend32S:
		f.push(uint64(int64(int32(f.pop()))))
	default:
		if ins.Opcode.IsBinaryNumeric() || ins.Opcode.IsRelational() {
			return execBinary(f, ins.Opcode)
		}
		if ins.Opcode.IsUnaryNumeric() {
			return execUnary(f, ins.Opcode)
		}
		return trap("unimplemented opcode %s", ins.Opcode)
	}
	return nil
}

func b2i(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func le16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
func le32bytes(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}
func le64bytes(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

func (inst *Instance) effectiveAddr(f *frame, ma wasm.MemArg, size int) (int, error) {
	base := f.popI32()
	addr := int64(uint32(base)) + int64(ma.Offset)
	if addr < 0 || addr+int64(size) > int64(len(inst.Memory)) {
		return 0, trap("out of bounds memory access")
	}
	return int(addr), nil
}

func (inst *Instance) loadBytes(f *frame, ma wasm.MemArg, size int) ([]byte, error) {
	addr, err := inst.effectiveAddr(f, ma, size)
	if err != nil {
		return nil, err
	}
	return inst.Memory[addr : addr+size], nil
}

func (inst *Instance) loadU32(f *frame, ma wasm.MemArg) (uint32, error) {
	b, err := inst.loadBytes(f, ma, 4)
	if err != nil {
		return 0, err
	}
	return le32(b), nil
}

func (inst *Instance) loadU64(f *frame, ma wasm.MemArg) (uint64, error) {
	b, err := inst.loadBytes(f, ma, 8)
	if err != nil {
		return 0, err
	}
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v, nil
}

func (inst *Instance) storeBytes(f *frame, ma wasm.MemArg, data []byte) error {
	addr, err := inst.effectiveAddr(f, ma, len(data))
	if err != nil {
		return err
	}
	copy(inst.Memory[addr:], data)
	return nil
}

// truncConv implements the trapping float-to-int truncation conversions:
// NaN and out-of-range operands trap rather than producing an implementation
// defined value, matching the Wasm MVP semantics (trunc_sat variants are not
// part of this interpreter's scope).
func truncConv(f *frame, v float64, lo, hi float64, push func(float64)) error {
	if math.IsNaN(v) {
		return trap("invalid conversion to integer")
	}
	if v < lo || v >= hi {
		return trap("integer overflow")
	}
	push(v)
	return nil
}

func execUnary(f *frame, op wasm.Opcode) error {
	switch op {
	case wasm.OpI32Clz:
		f.pushI32(int32(bits.LeadingZeros32(uint32(f.popI32()))))
	case wasm.OpI32Ctz:
		f.pushI32(int32(bits.TrailingZeros32(uint32(f.popI32()))))
	case wasm.OpI32Popcnt:
		f.pushI32(int32(bits.OnesCount32(uint32(f.popI32()))))
	case wasm.OpI64Clz:
		f.push(uint64(bits.LeadingZeros64(f.pop())))
	case wasm.OpI64Ctz:
		f.push(uint64(bits.TrailingZeros64(f.pop())))
	case wasm.OpI64Popcnt:
		f.push(uint64(bits.OnesCount64(f.pop())))
	case wasm.OpF32Abs:
		f.pushF32(float32(math.Abs(float64(f.popF32()))))
	case wasm.OpF32Neg:
		f.pushF32(-f.popF32())
	case wasm.OpF32Ceil:
		f.pushF32(float32(math.Ceil(float64(f.popF32()))))
	case wasm.OpF32Floor:
		f.pushF32(float32(math.Floor(float64(f.popF32()))))
	case wasm.OpF32Trunc:
		f.pushF32(float32(math.Trunc(float64(f.popF32()))))
	case wasm.OpF32Nearest:
		f.pushF32(float32(math.RoundToEven(float64(f.popF32()))))
	case wasm.OpF32Sqrt:
		f.pushF32(float32(math.Sqrt(float64(f.popF32()))))
	case wasm.OpF64Abs:
		f.pushF64(math.Abs(f.popF64()))
	case wasm.OpF64Neg:
		f.pushF64(-f.popF64())
	case wasm.OpF64Ceil:
		f.pushF64(math.Ceil(f.popF64()))
	case wasm.OpF64Floor:
		f.pushF64(math.Floor(f.popF64()))
	case wasm.OpF64Trunc:
		f.pushF64(math.Trunc(f.popF64()))
	case wasm.OpF64Nearest:
		f.pushF64(math.RoundToEven(f.popF64()))
	case wasm.OpF64Sqrt:
		f.pushF64(math.Sqrt(f.popF64()))
	default:
		return trap("unimplemented unary opcode %s", op)
	}
	return nil
}

func execBinary(f *frame, op wasm.Opcode) error {
	switch op {
	// i32 arithmetic
	case wasm.OpI32Add:
		b, a := f.popI32(), f.popI32()
		f.pushI32(a + b)
	case wasm.OpI32Sub:
		b, a := f.popI32(), f.popI32()
		f.pushI32(a - b)
	case wasm.OpI32Mul:
		b, a := f.popI32(), f.popI32()
		f.pushI32(a * b)
	case wasm.OpI32DivS:
		b, a := f.popI32(), f.popI32()
		if b == 0 {
			return trap("integer divide by zero")
		}
		if a == math.MinInt32 && b == -1 {
			return trap("integer overflow")
		}
		f.pushI32(a / b)
	case wasm.OpI32DivU:
		b, a := uint32(f.popI32()), uint32(f.popI32())
		if b == 0 {
			return trap("integer divide by zero")
		}
		f.pushI32(int32(a / b))
	case wasm.OpI32RemS:
		b, a := f.popI32(), f.popI32()
		if b == 0 {
			return trap("integer divide by zero")
		}
		if a == math.MinInt32 && b == -1 {
			f.pushI32(0)
		} else {
			f.pushI32(a % b)
		}
	case wasm.OpI32RemU:
		b, a := uint32(f.popI32()), uint32(f.popI32())
		if b == 0 {
			return trap("integer divide by zero")
		}
		f.pushI32(int32(a % b))
	case wasm.OpI32And:
		b, a := f.popI32(), f.popI32()
		f.pushI32(a & b)
	case wasm.OpI32Or:
		b, a := f.popI32(), f.popI32()
		f.pushI32(a | b)
	case wasm.OpI32Xor:
		b, a := f.popI32(), f.popI32()
		f.pushI32(a ^ b)
	case wasm.OpI32Shl:
		b, a := f.popI32(), f.popI32()
		f.pushI32(a << (uint32(b) % 32))
	case wasm.OpI32ShrS:
		b, a := f.popI32(), f.popI32()
		f.pushI32(a >> (uint32(b) % 32))
	case wasm.OpI32ShrU:
		b, a := uint32(f.popI32()), uint32(f.popI32())
		f.pushI32(int32(a >> (b % 32)))
	case wasm.OpI32Rotl:
		b, a := uint32(f.popI32()), uint32(f.popI32())
		f.pushI32(int32(bits.RotateLeft32(a, int(b%32))))
	case wasm.OpI32Rotr:
		b, a := uint32(f.popI32()), uint32(f.popI32())
		f.pushI32(int32(bits.RotateLeft32(a, -int(b%32))))

	// i64 arithmetic
	case wasm.OpI64Add:
		b, a := int64(f.pop()), int64(f.pop())
		f.push(uint64(a + b))
	case wasm.OpI64Sub:
		b, a := int64(f.pop()), int64(f.pop())
		f.push(uint64(a - b))
	case wasm.OpI64Mul:
		b, a := int64(f.pop()), int64(f.pop())
		f.push(uint64(a * b))
	case wasm.OpI64DivS:
		b, a := int64(f.pop()), int64(f.pop())
		if b == 0 {
			return trap("integer divide by zero")
		}
		if a == math.MinInt64 && b == -1 {
			return trap("integer overflow")
		}
		f.push(uint64(a / b))
	case wasm.OpI64DivU:
		b, a := f.pop(), f.pop()
		if b == 0 {
			return trap("integer divide by zero")
		}
		f.push(a / b)
	case wasm.OpI64RemS:
		b, a := int64(f.pop()), int64(f.pop())
		if b == 0 {
			return trap("integer divide by zero")
		}
		if a == math.MinInt64 && b == -1 {
			f.push(0)
		} else {
			f.push(uint64(a % b))
		}
	case wasm.OpI64RemU:
		b, a := f.pop(), f.pop()
		if b == 0 {
			return trap("integer divide by zero")
		}
		f.push(a % b)
	case wasm.OpI64And:
		b, a := f.pop(), f.pop()
		f.push(a & b)
	case wasm.OpI64Or:
		b, a := f.pop(), f.pop()
		f.push(a | b)
	case wasm.OpI64Xor:
		b, a := f.pop(), f.pop()
		f.push(a ^ b)
	case wasm.OpI64Shl:
		b, a := f.pop(), f.pop()
		f.push(a << (b % 64))
	case wasm.OpI64ShrS:
		b, a := f.pop(), int64(f.pop())
		f.push(uint64(a >> (b % 64)))
	case wasm.OpI64ShrU:
		b, a := f.pop(), f.pop()
		f.push(a >> (b % 64))
	case wasm.OpI64Rotl:
		b, a := f.pop(), f.pop()
		f.push(bits.RotateLeft64(a, int(b%64)))
	case wasm.OpI64Rotr:
		b, a := f.pop(), f.pop()
		f.push(bits.RotateLeft64(a, -int(b%64)))

	// f32 arithmetic
	case wasm.OpF32Add:
		b, a := f.popF32(), f.popF32()
		f.pushF32(a + b)
	case wasm.OpF32Sub:
		b, a := f.popF32(), f.popF32()
		f.pushF32(a - b)
	case wasm.OpF32Mul:
		b, a := f.popF32(), f.popF32()
		f.pushF32(a * b)
	case wasm.OpF32Div:
		b, a := f.popF32(), f.popF32()
		f.pushF32(a / b)
	case wasm.OpF32Min:
		b, a := f.popF32(), f.popF32()
		f.pushF32(float32(math.Min(float64(a), float64(b))))
	case wasm.OpF32Max:
		b, a := f.popF32(), f.popF32()
		f.pushF32(float32(math.Max(float64(a), float64(b))))
	case wasm.OpF32Copysign:
		b, a := f.popF32(), f.popF32()
		f.pushF32(float32(math.Copysign(float64(a), float64(b))))

	// f64 arithmetic
	case wasm.OpF64Add:
		b, a := f.popF64(), f.popF64()
		f.pushF64(a + b)
	case wasm.OpF64Sub:
		b, a := f.popF64(), f.popF64()
		f.pushF64(a - b)
	case wasm.OpF64Mul:
		b, a := f.popF64(), f.popF64()
		f.pushF64(a * b)
	case wasm.OpF64Div:
		b, a := f.popF64(), f.popF64()
		f.pushF64(a / b)
	case wasm.OpF64Min:
		b, a := f.popF64(), f.popF64()
		f.pushF64(math.Min(a, b))
	case wasm.OpF64Max:
		b, a := f.popF64(), f.popF64()
		f.pushF64(math.Max(a, b))
	case wasm.OpF64Copysign:
		b, a := f.popF64(), f.popF64()
		f.pushF64(math.Copysign(a, b))

	// relational
	case wasm.OpI32Eq:
		b, a := f.popI32(), f.popI32()
		f.pushI32(b2i(a == b))
	case wasm.OpI32Ne:
		b, a := f.popI32(), f.popI32()
		f.pushI32(b2i(a != b))
	case wasm.OpI32LtS:
		b, a := f.popI32(), f.popI32()
		f.pushI32(b2i(a < b))
	case wasm.OpI32LtU:
		b, a := uint32(f.popI32()), uint32(f.popI32())
		f.pushI32(b2i(a < b))
	case wasm.OpI32GtS:
		b, a := f.popI32(), f.popI32()
		f.pushI32(b2i(a > b))
	case wasm.OpI32GtU:
		b, a := uint32(f.popI32()), uint32(f.popI32())
		f.pushI32(b2i(a > b))
	case wasm.OpI32LeS:
		b, a := f.popI32(), f.popI32()
		f.pushI32(b2i(a <= b))
	case wasm.OpI32LeU:
		b, a := uint32(f.popI32()), uint32(f.popI32())
		f.pushI32(b2i(a <= b))
	case wasm.OpI32GeS:
		b, a := f.popI32(), f.popI32()
		f.pushI32(b2i(a >= b))
	case wasm.OpI32GeU:
		b, a := uint32(f.popI32()), uint32(f.popI32())
		f.pushI32(b2i(a >= b))
	case wasm.OpI64Eq:
		b, a := f.pop(), f.pop()
		f.pushI32(b2i(a == b))
	case wasm.OpI64Ne:
		b, a := f.pop(), f.pop()
		f.pushI32(b2i(a != b))
	case wasm.OpI64LtS:
		b, a := int64(f.pop()), int64(f.pop())
		f.pushI32(b2i(a < b))
	case wasm.OpI64LtU:
		b, a := f.pop(), f.pop()
		f.pushI32(b2i(a < b))
	case wasm.OpI64GtS:
		b, a := int64(f.pop()), int64(f.pop())
		f.pushI32(b2i(a > b))
	case wasm.OpI64GtU:
		b, a := f.pop(), f.pop()
		f.pushI32(b2i(a > b))
	case wasm.OpI64LeS:
		b, a := int64(f.pop()), int64(f.pop())
		f.pushI32(b2i(a <= b))
	case wasm.OpI64LeU:
		b, a := f.pop(), f.pop()
		f.pushI32(b2i(a <= b))
	case wasm.OpI64GeS:
		b, a := int64(f.pop()), int64(f.pop())
		f.pushI32(b2i(a >= b))
	case wasm.OpI64GeU:
		b, a := f.pop(), f.pop()
		f.pushI32(b2i(a >= b))
	case wasm.OpF32Eq:
		b, a := f.popF32(), f.popF32()
		f.pushI32(b2i(a == b))
	case wasm.OpF32Ne:
		b, a := f.popF32(), f.popF32()
		f.pushI32(b2i(a != b))
	case wasm.OpF32Lt:
		b, a := f.popF32(), f.popF32()
		f.pushI32(b2i(a < b))
	case wasm.OpF32Gt:
		b, a := f.popF32(), f.popF32()
		f.pushI32(b2i(a > b))
	case wasm.OpF32Le:
		b, a := f.popF32(), f.popF32()
		f.pushI32(b2i(a <= b))
	case wasm.OpF32Ge:
		b, a := f.popF32(), f.popF32()
		f.pushI32(b2i(a >= b))
	case wasm.OpF64Eq:
		b, a := f.popF64(), f.popF64()
		f.pushI32(b2i(a == b))
	case wasm.OpF64Ne:
		b, a := f.popF64(), f.popF64()
		f.pushI32(b2i(a != b))
	case wasm.OpF64Lt:
		b, a := f.popF64(), f.popF64()
		f.pushI32(b2i(a < b))
	case wasm.OpF64Gt:
		b, a := f.popF64(), f.popF64()
		f.pushI32(b2i(a > b))
	case wasm.OpF64Le:
		b, a := f.popF64(), f.popF64()
		f.pushI32(b2i(a <= b))
	case wasm.OpF64Ge:
		b, a := f.popF64(), f.popF64()
		f.pushI32(b2i(a >= b))
	default:
		return trap("unimplemented binary opcode %s", op)
	}
	return nil
}
