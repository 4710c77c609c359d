package wasi

import "time"

// clock ids from the WASI preview1 witx definition.
const (
	clockRealtime  int32 = 0
	clockMonotonic int32 = 1
)

// clockTime returns the current time for the given clock id in nanoseconds,
// relative to an arbitrary but fixed epoch for the monotonic clock (the
// instance's own start time) so repeated mutant runs stay comparable instead
// of drifting with wall-clock noise.
func (m *Module) clockTime(clockID int32) (uint64, bool) {
	switch clockID {
	case clockRealtime:
		return uint64(time.Now().UnixNano()), true
	case clockMonotonic:
		return uint64(time.Since(m.start).Nanoseconds()), true
	default:
		return 0, false
	}
}
