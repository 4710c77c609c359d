package vm

import (
	"errors"
	"fmt"
)

// Trap is a runtime fault raised by executing code, as opposed to a Go-level
// error from the interpreter itself (unresolved import, malformed module).
// The engine maps a Trap to an "error" mutant outcome (or "timeout" for
// ErrBudgetExceeded); other run errors also become "error" outcomes.
type Trap struct {
	Reason string
}

func (t *Trap) Error() string { return "wasm trap: " + t.Reason }

func trap(format string, args ...any) error {
	return &Trap{Reason: fmt.Sprintf(format, args...)}
}

// IsTrap reports whether err is (or wraps) a *Trap.
func IsTrap(err error) bool {
	var t *Trap
	return errors.As(err, &t)
}

// ExitError is raised by the WASI proc_exit host import and unwinds out of
// Invoke without being treated as a trap: it is the program exiting on
// purpose, with a status code the caller inspects.
type ExitError struct {
	Code int32
}

func (e *ExitError) Error() string { return fmt.Sprintf("exit(%d)", e.Code) }

// ErrBudgetExceeded is the *Trap returned when a Budget runs out
// of instruction cycles. The engine maps this to a "timeout" outcome without
// ever starting a wall-clock timer, since meta-mutant execution has to stay
// deterministic and parallelizable.
var ErrBudgetExceeded = trap("instruction budget exceeded")
