package wasi

// errno values from the WASI preview1 witx definition. Only the subset this
// package actually returns is named; everything else a caller might want is
// reachable by its numeric literal if ever needed.
const (
	errnoSuccess int32 = 0
	errnoBadf    int32 = 8
	errnoFault   int32 = 21
	errnoInval   int32 = 28
	errnoIO      int32 = 29
	errnoIsDir   int32 = 31
	errnoNoEnt   int32 = 44
	errnoNotSup  int32 = 58
	errnoPerm    int32 = 63
	errnoSpipe   int32 = 70
)

// fdflags / whence values used by fd_seek.
const (
	whenceSet int32 = 0
	whenceCur int32 = 1
	whenceEnd int32 = 2
)

// preopen file descriptor type tags used by fd_prestat_get.
const preopenTypeDir byte = 0
