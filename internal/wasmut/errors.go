// Package wasmut holds the sentinel errors shared across the mutation
// testing pipeline, wrapped at each call site with fmt.Errorf("...: %w",
// err) rather than a custom error framework.
package wasmut

import "errors"

var (
	// ErrInvalidModule means the input file is not a loadable, well-formed
	// Wasm module, or lacks a `_start` export.
	ErrInvalidModule = errors.New("invalid wasm module")

	// ErrBaselineFailed means the unmutated module's `_start` did not exit
	// 0, or trapped. The whole run aborts before any mutant executes.
	ErrBaselineFailed = errors.New("baseline run failed")

	// ErrConfigError means the resolved configuration (file, flags, or
	// defaults) failed validation.
	ErrConfigError = errors.New("configuration error")

	// ErrMutantExecutionError is wrapped around a single mutant's
	// unexpected failure (a trap or WASI error unrelated to the mutation
	// under test). It never aborts a batch; it is recorded as that
	// candidate's Error outcome.
	ErrMutantExecutionError = errors.New("mutant execution error")

	// ErrIO wraps filesystem/report-writing failures.
	ErrIO = errors.New("io error")
)
