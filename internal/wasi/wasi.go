// Package wasi implements the subset of the WASI preview1 ABI that compiled
// C/Rust mutation subjects actually exercise: process args/env, clocks,
// random bytes, and file descriptor I/O restricted to explicitly preopened
// sandbox directories. It is grounded on the host-function registration
// pattern of the wasi_preview1 package in the example pack, adapted from
// that package's epsilon.ModuleInstance callback shape to this project's
// own vm.Instance/vm.HostFunc types.
package wasi

import (
	"crypto/rand"
	"io"
	"os"
	"time"

	"wasmut.dev/pkg/wasmut/internal/vm"
)

const ModuleName = "wasi_snapshot_preview1"

// Config configures one WASI instance: the guest's argv/envp and which host
// directories it may see, under what guest-visible paths.
type Config struct {
	Args     []string
	Env      map[string]string
	Preopens []Preopen
	Stdout   io.Writer
	Stderr   io.Writer
	Stdin    io.Reader
}

// Module is one instantiation's worth of WASI state: its fd table, argv/env,
// and clock origin. A fresh Module must be built per mutant run since the fd
// table is not safe to share across concurrent instances.
type Module struct {
	args  []string
	env   map[string]string
	fds   *fdTable
	start time.Time
}

// New builds a Module ready to be turned into host imports via HostFuncs.
func New(cfg Config) (*Module, error) {
	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := cfg.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	stdin := cfg.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	fds, err := newFdTable(stdout, stderr, stdin, cfg.Preopens)
	if err != nil {
		return nil, err
	}
	return &Module{args: cfg.Args, env: cfg.Env, fds: fds, start: time.Now()}, nil
}

// Close releases any host files this module's guest opened.
func (m *Module) Close() { m.fds.closeAll() }

// HostFuncs returns the wasi_snapshot_preview1 import set, ready to be
// merged into the map vm.Instantiate expects.
func (m *Module) HostFuncs() map[string]vm.HostFunc {
	return map[string]vm.HostFunc{
		"args_get":          hf2i(m.argsGet),
		"args_sizes_get":    hf2i(m.argsSizesGet),
		"environ_get":       hf2i(m.environGet),
		"environ_sizes_get": hf2i(m.environSizesGet),
		"clock_res_get":     hf2i(m.clockResGet),
		"clock_time_get": {
			Call: func(inst *vm.Instance, args []uint64) ([]uint64, error) {
				clockID := int32(uint32(args[0]))
				resPtr := int32(uint32(args[2]))
				return []uint64{uint64(uint32(m.clockTimeGet(inst, clockID, resPtr)))}, nil
			},
		},
		"random_get": hf2i(m.randomGet),
		"proc_exit": {
			Call: func(inst *vm.Instance, args []uint64) ([]uint64, error) {
				return nil, &vm.ExitError{Code: int32(uint32(args[0]))}
			},
		},
		"sched_yield": {
			Call: func(inst *vm.Instance, args []uint64) ([]uint64, error) {
				return []uint64{uint64(uint32(errnoSuccess))}, nil
			},
		},
		"fd_close": {
			Call: func(inst *vm.Instance, args []uint64) ([]uint64, error) {
				m.fds.close(int32(uint32(args[0])))
				return []uint64{uint64(uint32(errnoSuccess))}, nil
			},
		},
		"fd_fdstat_get":      hf2i(m.fdFdstatGet),
		"fd_prestat_get":     hf2i(m.fdPrestatGet),
		"fd_prestat_dir_name": hf3i(m.fdPrestatDirName),
		"fd_seek":             hfSeek(m.fdSeek),
		"fd_read":             hf4i(m.fdRead),
		"fd_write":            hf4i(m.fdWrite),
		"path_open":           hfPathOpen(m.pathOpen),
	}
}

func (m *Module) argsGet(inst *vm.Instance, argvPtr, argvBufPtr int32) int32 {
	bufOffset := argvBufPtr
	for i, arg := range m.args {
		if !storeU32(inst, argvPtr+int32(i*4), uint32(bufOffset)) {
			return errnoFault
		}
		b := append([]byte(arg), 0)
		if ok := writeBytes(inst, bufOffset, b); !ok {
			return errnoFault
		}
		bufOffset += int32(len(b))
	}
	return errnoSuccess
}

func (m *Module) argsSizesGet(inst *vm.Instance, argcPtr, bufSizePtr int32) int32 {
	if !storeU32(inst, argcPtr, uint32(len(m.args))) {
		return errnoFault
	}
	var size int
	for _, a := range m.args {
		size += len(a) + 1
	}
	if !storeU32(inst, bufSizePtr, uint32(size)) {
		return errnoFault
	}
	return errnoSuccess
}

func (m *Module) environGet(inst *vm.Instance, envPtr, envBufPtr int32) int32 {
	bufOffset := envBufPtr
	ptr := envPtr
	for k, v := range m.env {
		if !storeU32(inst, ptr, uint32(bufOffset)) {
			return errnoFault
		}
		b := append([]byte(k+"="+v), 0)
		if !writeBytes(inst, bufOffset, b) {
			return errnoFault
		}
		bufOffset += int32(len(b))
		ptr += 4
	}
	return errnoSuccess
}

func (m *Module) environSizesGet(inst *vm.Instance, countPtr, bufSizePtr int32) int32 {
	if !storeU32(inst, countPtr, uint32(len(m.env))) {
		return errnoFault
	}
	var size int
	for k, v := range m.env {
		size += len(k) + 1 + len(v) + 1
	}
	if !storeU32(inst, bufSizePtr, uint32(size)) {
		return errnoFault
	}
	return errnoSuccess
}

func (m *Module) clockResGet(inst *vm.Instance, clockID, resPtr int32) int32 {
	if clockID != clockRealtime && clockID != clockMonotonic {
		return errnoInval
	}
	if !storeU64(inst, resPtr, 1000) { // nanosecond resolution we can't truly promise, 1us is a defensible floor
		return errnoFault
	}
	return errnoSuccess
}

func (m *Module) clockTimeGet(inst *vm.Instance, clockID, resPtr int32) int32 {
	v, ok := m.clockTime(clockID)
	if !ok {
		return errnoInval
	}
	if !storeU64(inst, resPtr, v) {
		return errnoFault
	}
	return errnoSuccess
}

func (m *Module) randomGet(inst *vm.Instance, bufPtr, bufLen int32) int32 {
	buf := make([]byte, bufLen)
	if _, err := rand.Read(buf); err != nil {
		return errnoIO
	}
	if !writeBytes(inst, bufPtr, buf) {
		return errnoFault
	}
	return errnoSuccess
}

func (m *Module) fdFdstatGet(inst *vm.Instance, fd, ptr int32) int32 {
	if _, ok := m.fds.get(fd); !ok {
		return errnoBadf
	}
	// 24-byte fdstat struct; zeroed is an acceptable answer since this
	// project's subjects never inspect fd rights themselves.
	b, ok := memBytes(inst, ptr, 24)
	if !ok {
		return errnoFault
	}
	for i := range b {
		b[i] = 0
	}
	return errnoSuccess
}

func (m *Module) fdPrestatGet(inst *vm.Instance, fd, ptr int32) int32 {
	d, ok := m.fds.get(fd)
	if !ok || !d.isPreopen {
		return errnoBadf
	}
	b, ok := memBytes(inst, ptr, 8)
	if !ok {
		return errnoFault
	}
	b[0] = preopenTypeDir
	pathLen := uint32(len(d.guestPath))
	b[4], b[5], b[6], b[7] = byte(pathLen), byte(pathLen>>8), byte(pathLen>>16), byte(pathLen>>24)
	return errnoSuccess
}

func (m *Module) fdPrestatDirName(inst *vm.Instance, fd, pathPtr, pathLen int32) int32 {
	d, ok := m.fds.get(fd)
	if !ok || !d.isPreopen {
		return errnoBadf
	}
	b := []byte(d.guestPath)
	if int32(len(b)) > pathLen {
		return errnoInval
	}
	if !writeBytes(inst, pathPtr, b) {
		return errnoFault
	}
	return errnoSuccess
}

func (m *Module) fdSeek(inst *vm.Instance, fd int32, offset int64, whence int32, newOffsetPtr int32) int32 {
	d, ok := m.fds.get(fd)
	if !ok || d.file == nil {
		return errnoBadf
	}
	var goWhence int
	switch whence {
	case whenceSet:
		goWhence = io.SeekStart
	case whenceCur:
		goWhence = io.SeekCurrent
	case whenceEnd:
		goWhence = io.SeekEnd
	default:
		return errnoInval
	}
	pos, err := d.file.Seek(offset, goWhence)
	if err != nil {
		return errnoSpipe
	}
	if !storeU64(inst, newOffsetPtr, uint64(pos)) {
		return errnoFault
	}
	return errnoSuccess
}

func (m *Module) fdRead(inst *vm.Instance, fd, iovsPtr, iovsLen, nreadPtr int32) int32 {
	d, ok := m.fds.get(fd)
	if !ok {
		return errnoBadf
	}
	iovs, ok := loadIovecs(inst, iovsPtr, iovsLen)
	if !ok {
		return errnoFault
	}
	var total int
	for _, iov := range iovs {
		buf, ok := memBytes(inst, iov.ptr, iov.len)
		if !ok {
			return errnoFault
		}
		var n int
		var err error
		if d.file != nil {
			n, err = d.file.Read(buf)
		}
		total += n
		if err == io.EOF || n < len(buf) {
			break
		}
		if err != nil {
			return errnoIO
		}
	}
	if !storeU32(inst, nreadPtr, uint32(total)) {
		return errnoFault
	}
	return errnoSuccess
}

func (m *Module) fdWrite(inst *vm.Instance, fd, iovsPtr, iovsLen, nwrittenPtr int32) int32 {
	d, ok := m.fds.get(fd)
	if !ok {
		return errnoBadf
	}
	iovs, ok := loadIovecs(inst, iovsPtr, iovsLen)
	if !ok {
		return errnoFault
	}
	var total int
	for _, iov := range iovs {
		buf, ok := memBytes(inst, iov.ptr, iov.len)
		if !ok {
			return errnoFault
		}
		if d.file != nil {
			n, err := d.file.Write(buf)
			total += n
			if err != nil {
				return errnoIO
			}
		}
	}
	if !storeU32(inst, nwrittenPtr, uint32(total)) {
		return errnoFault
	}
	return errnoSuccess
}

func (m *Module) pathOpen(
	inst *vm.Instance,
	dirFd, dirFlags, pathPtr, pathLen, oflags int32,
	rightsBase, rightsInheriting int64,
	fdFlags, openedFdPtr int32,
) int32 {
	d, ok := m.fds.get(dirFd)
	if !ok || !d.isPreopen {
		return errnoBadf
	}
	nameBytes, ok := memBytes(inst, pathPtr, pathLen)
	if !ok {
		return errnoFault
	}
	hostPath, err := d.resolve(string(nameBytes))
	if err != nil {
		return errnoPerm
	}

	const oflagsCreat = 1 << 0
	const oflagsExcl = 1 << 1
	const oflagsTrunc = 1 << 3
	const rightsWrite = int64(1 << 6)

	flags := os.O_RDONLY
	if rightsBase&rightsWrite != 0 {
		flags = os.O_RDWR
	}
	if oflags&oflagsCreat != 0 {
		flags |= os.O_CREATE
	}
	if oflags&oflagsExcl != 0 {
		flags |= os.O_EXCL
	}
	if oflags&oflagsTrunc != 0 {
		flags |= os.O_TRUNC
	}

	f, err := os.OpenFile(hostPath, flags, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return errnoNoEnt
		}
		return errnoIO
	}
	fd := m.fds.alloc(&descriptor{file: f})
	if !storeU32(inst, openedFdPtr, uint32(fd)) {
		f.Close()
		return errnoFault
	}
	return errnoSuccess
}

func writeBytes(inst *vm.Instance, ptr int32, data []byte) bool {
	dst, ok := memBytes(inst, ptr, int32(len(data)))
	if !ok {
		return false
	}
	copy(dst, data)
	return true
}

// hf2i/hf3i/hf4i adapt a (inst, i32, i32[, i32[, i32]]) -> errno host
// function into the generic vm.HostFunc shape, since every WASI call here
// takes some number of i32 pointers/handles and returns a single i32 errno.
func hf2i(fn func(inst *vm.Instance, a, b int32) int32) vm.HostFunc {
	return vm.HostFunc{Call: func(inst *vm.Instance, args []uint64) ([]uint64, error) {
		r := fn(inst, int32(uint32(args[0])), int32(uint32(args[1])))
		return []uint64{uint64(uint32(r))}, nil
	}}
}

func hf3i(fn func(inst *vm.Instance, a, b, c int32) int32) vm.HostFunc {
	return vm.HostFunc{Call: func(inst *vm.Instance, args []uint64) ([]uint64, error) {
		r := fn(inst, int32(uint32(args[0])), int32(uint32(args[1])), int32(uint32(args[2])))
		return []uint64{uint64(uint32(r))}, nil
	}}
}

func hf4i(fn func(inst *vm.Instance, a, b, c, d int32) int32) vm.HostFunc {
	return vm.HostFunc{Call: func(inst *vm.Instance, args []uint64) ([]uint64, error) {
		r := fn(inst, int32(uint32(args[0])), int32(uint32(args[1])), int32(uint32(args[2])), int32(uint32(args[3])))
		return []uint64{uint64(uint32(r))}, nil
	}}
}

func hfSeek(fn func(inst *vm.Instance, fd int32, offset int64, whence int32, newOffsetPtr int32) int32) vm.HostFunc {
	return vm.HostFunc{Call: func(inst *vm.Instance, args []uint64) ([]uint64, error) {
		r := fn(inst, int32(uint32(args[0])), int64(args[1]), int32(uint32(args[2])), int32(uint32(args[3])))
		return []uint64{uint64(uint32(r))}, nil
	}}
}

func hfPathOpen(fn func(inst *vm.Instance, dirFd, dirFlags, pathPtr, pathLen, oflags int32, rightsBase, rightsInheriting int64, fdFlags, openedFdPtr int32) int32) vm.HostFunc {
	return vm.HostFunc{Call: func(inst *vm.Instance, args []uint64) ([]uint64, error) {
		r := fn(inst,
			int32(uint32(args[0])), int32(uint32(args[1])), int32(uint32(args[2])), int32(uint32(args[3])), int32(uint32(args[4])),
			int64(args[5]), int64(args[6]),
			int32(uint32(args[7])), int32(uint32(args[8])),
		)
		return []uint64{uint64(uint32(r))}, nil
	}}
}
