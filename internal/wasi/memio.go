package wasi

import "wasmut.dev/pkg/wasmut/internal/vm"

func memBytes(inst *vm.Instance, ptr, length int32) ([]byte, bool) {
	if ptr < 0 || length < 0 || int(ptr)+int(length) > len(inst.Memory) {
		return nil, false
	}
	return inst.Memory[ptr : ptr+length], true
}

func storeU32(inst *vm.Instance, ptr int32, v uint32) bool {
	b, ok := memBytes(inst, ptr, 4)
	if !ok {
		return false
	}
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
	return true
}

func storeU64(inst *vm.Instance, ptr int32, v uint64) bool {
	b, ok := memBytes(inst, ptr, 8)
	if !ok {
		return false
	}
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return true
}

func loadU32(inst *vm.Instance, ptr int32) (uint32, bool) {
	b, ok := memBytes(inst, ptr, 4)
	if !ok {
		return 0, false
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, true
}

func loadU64(inst *vm.Instance, ptr int32) (uint64, bool) {
	b, ok := memBytes(inst, ptr, 8)
	if !ok {
		return 0, false
	}
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v, true
}

// an iovec is a (ptr, len) pair as laid out by the guest for fd_read/fd_write.
type iovec struct {
	ptr int32
	len int32
}

func loadIovecs(inst *vm.Instance, iovsPtr, iovsLen int32) ([]iovec, bool) {
	out := make([]iovec, 0, iovsLen)
	for i := int32(0); i < iovsLen; i++ {
		base := iovsPtr + i*8
		p, ok := loadU32(inst, base)
		if !ok {
			return nil, false
		}
		l, ok := loadU32(inst, base+4)
		if !ok {
			return nil, false
		}
		out = append(out, iovec{ptr: int32(p), len: int32(l)})
	}
	return out, true
}
