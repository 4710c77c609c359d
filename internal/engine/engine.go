// Package engine drives baseline and mutant execution against a
// meta-mutant (or classical, one-module-per-candidate) artifact: compile
// once, execute many, classify by exit status and trap reason. Concurrency
// uses an errgroup-based bounded worker pool, with ctx checked between
// dispatches rather than during one, to keep cancellation responsive
// without tearing down an in-flight run.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"wasmut.dev/pkg/wasmut/internal/discovery"
	"wasmut.dev/pkg/wasmut/internal/metamutant"
	"wasmut.dev/pkg/wasmut/internal/result"
	"wasmut.dev/pkg/wasmut/internal/vm"
	"wasmut.dev/pkg/wasmut/internal/wasi"
	"wasmut.dev/pkg/wasmut/internal/wasm"
	"wasmut.dev/pkg/wasmut/internal/wasmut"
)

// Config is the engine's own slice of the resolved configuration, decoded
// from the `[engine]` table of wasmut.toml.
type Config struct {
	Workers                int     // 0 means runtime.NumCPU()
	TimeoutMultiplier      float64 // must be > 0; Budget = baseline cycles * this
	CoverageBasedExecution bool
}

// sentinelMutationID is the active id the baseline run executes under —
// never a valid candidate id (those start at 0), so every cascade site's
// comparison against it falls through to the original instruction.
const sentinelMutationID int32 = -1

// Baseline is the outcome of the unmutated run: the cycles it consumed
// (used to derive the per-mutant budget) and, when coverage is enabled,
// which candidate ids were touched.
type Baseline struct {
	Cycles  int64
	Touched map[int32]bool // candidate id -> touched, nil when coverage disabled
}

// mutationState is the per-instance host state backing the
// wasmut.active_mutation_id / wasmut.mark_touched imports. A fresh one is
// built for every run so workers never share mutable state.
type mutationState struct {
	activeID int32
	touched  map[int32]bool // nil unless the baseline run wants to record coverage
}

func hostFuncs(st *mutationState) map[string]vm.HostFunc {
	return map[string]vm.HostFunc{
		metamutant.ActiveMutationIDName: {
			Results: []wasm.ValueType{wasm.I32},
			Call: func(_ *vm.Instance, _ []uint64) ([]uint64, error) {
				return []uint64{uint64(uint32(st.activeID))}, nil
			},
		},
		metamutant.MarkTouchedName: {
			Params: []wasm.ValueType{wasm.I32},
			Call: func(_ *vm.Instance, args []uint64) ([]uint64, error) {
				if st.touched != nil {
					st.touched[int32(uint32(args[0]))] = true
				}
				return nil, nil
			},
		},
	}
}

// moduleForCandidate returns the module a candidate's run should
// instantiate: the shared cascade module for the meta-mutant path, or
// that candidate's own dedicated module for the classical path.
func moduleForCandidate(artifact *metamutant.Artifact, candID int) *wasm.Module {
	if artifact.Module != nil {
		return artifact.Module
	}
	return artifact.ClassicalModules[int32(candID)]
}

// runOnce instantiates a fresh Instance for module under the given active
// mutation id and budget, calls `_start`, and returns the consumed cycles
// plus the classification. activeID and recordCoverage are meaningful
// only when module imports the wasmut host functions (the meta-mutant
// path); a classical per-candidate module has no such import and simply
// runs its one baked-in replacement.
func runOnce(module *wasm.Module, wasiCfg wasi.Config, activeID int32, budget int64, recordCoverage bool) (int64, result.Outcome, string, error) {
	st := &mutationState{activeID: activeID}
	if recordCoverage {
		st.touched = map[int32]bool{}
	}

	w, err := wasi.New(wasiCfg)
	if err != nil {
		return 0, result.ErrorOutcome, "", fmt.Errorf("%w: build wasi module: %v", wasmut.ErrMutantExecutionError, err)
	}
	defer w.Close()

	b := &vm.Budget{Remaining: budget}
	inst, err := vm.Instantiate(module, map[string]map[string]vm.HostFunc{
		wasi.ModuleName:       w.HostFuncs(),
		metamutant.HostModule: hostFuncs(st),
	}, b)
	if err != nil {
		return 0, result.ErrorOutcome, "", fmt.Errorf("%w: instantiate: %v", wasmut.ErrMutantExecutionError, err)
	}

	startIdx, ok := inst.Export("_start")
	if !ok {
		return 0, result.ErrorOutcome, "", fmt.Errorf("%w: module has no _start export", wasmut.ErrInvalidModule)
	}

	_, runErr := inst.Invoke(startIdx, nil)
	consumed := budget - b.Remaining

	switch e := runErr.(type) {
	case nil:
		return consumed, result.Alive, "", nil
	case *vm.ExitError:
		if e.Code == 0 {
			return consumed, result.Alive, "", nil
		}
		return consumed, result.Killed, fmt.Sprintf("exit code %d", e.Code), nil
	case *vm.Trap:
		if runErr == vm.ErrBudgetExceeded {
			return consumed, result.Timeout, e.Reason, nil
		}
		return consumed, result.ErrorOutcome, e.Reason, nil
	default:
		return consumed, result.ErrorOutcome, runErr.Error(), nil
	}
}

// RunBaseline executes artifact.BaselineModule with the sentinel active id
// and an unbounded budget, returning the consumed cycle count and, when
// coverage is enabled, the set of touched candidate ids. Coverage only
// ever records anything for the meta-mutant path: a classical
// BaselineModule has no mark_touched import to call, so coverage is
// forced off there regardless of the caller's request (every candidate
// runs for real rather than risk mis-skipping off an empty touched set).
// A non-zero exit or any trap aborts the whole run with ErrBaselineFailed.
func RunBaseline(artifact *metamutant.Artifact, wasiCfg wasi.Config, coverage bool) (Baseline, error) {
	coverage = coverage && artifact.Module != nil

	st := &mutationState{activeID: sentinelMutationID}
	if coverage {
		st.touched = map[int32]bool{}
	}

	w, err := wasi.New(wasiCfg)
	if err != nil {
		return Baseline{}, fmt.Errorf("%w: build wasi module: %v", wasmut.ErrBaselineFailed, err)
	}
	defer w.Close()

	combined := hostFuncs(st)
	b := &vm.Budget{Remaining: math.MaxInt64}
	inst, err := vm.Instantiate(artifact.BaselineModule, map[string]map[string]vm.HostFunc{
		wasi.ModuleName:       w.HostFuncs(),
		metamutant.HostModule: combined,
	}, b)
	if err != nil {
		return Baseline{}, fmt.Errorf("%w: instantiate: %v", wasmut.ErrBaselineFailed, err)
	}

	startIdx, ok := inst.Export("_start")
	if !ok {
		return Baseline{}, fmt.Errorf("%w: module has no _start export", wasmut.ErrInvalidModule)
	}

	_, runErr := inst.Invoke(startIdx, nil)
	consumed := int64(math.MaxInt64) - b.Remaining

	if exit, ok := runErr.(*vm.ExitError); ok {
		if exit.Code != 0 {
			return Baseline{}, fmt.Errorf("%w: baseline exited with code %d", wasmut.ErrBaselineFailed, exit.Code)
		}
	} else if runErr != nil {
		return Baseline{}, fmt.Errorf("%w: %v", wasmut.ErrBaselineFailed, runErr)
	}

	return Baseline{Cycles: consumed, Touched: st.touched}, nil
}

// Budget computes the per-mutant instruction budget from the baseline's
// consumed cycles: T = max(1, ceil(C0 * multiplier)).
func Budget(baselineCycles int64, multiplier float64) int64 {
	t := int64(math.Ceil(float64(baselineCycles) * multiplier))
	if t < 1 {
		return 1
	}
	return t
}

// Run executes every candidate against the artifact, classifying each and
// appending its Entry to sp. Candidates skipped by the coverage pre-pass
// are recorded without an execution attempt. Workers run concurrently
// under an errgroup bounded to cfg.Workers (runtime.NumCPU() if unset);
// ctx cancellation is observed between dispatches, not mid-run, so an
// in-flight mutant always finishes with a real classification.
func Run(ctx context.Context, artifact *metamutant.Artifact, wasiCfg wasi.Config, cfg Config, baseline Baseline, sp *result.Spill) error {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	budget := Budget(baseline.Cycles, cfg.TimeoutMultiplier)

	candidates := artifact.Candidates
	var cursor atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for {
				idx := int(cursor.Add(1)) - 1
				if idx >= len(candidates) {
					return nil
				}
				if err := gctx.Err(); err != nil {
					return err
				}
				cand := candidates[idx]
				entry := classify(artifact, wasiCfg, cand, baseline, budget)
				if err := sp.Append(entry); err != nil {
					return fmt.Errorf("%w: record outcome: %v", wasmut.ErrIO, err)
				}
			}
		})
	}

	if err := g.Wait(); err != nil {
		slog.Error("mutant execution batch aborted", "error", err)
		return err
	}
	return nil
}

func classify(artifact *metamutant.Artifact, wasiCfg wasi.Config, cand discovery.Candidate, baseline Baseline, budget int64) result.Entry {
	if baseline.Touched != nil && !baseline.Touched[int32(cand.ID)] {
		return result.Entry{Candidate: cand, Outcome: result.Skipped}
	}

	module := moduleForCandidate(artifact, cand.ID)
	cycles, outcome, detail, err := runOnce(module, wasiCfg, int32(cand.ID), budget, false)
	if err != nil {
		slog.Warn("mutant execution error", "candidate", cand.ID, "operator", cand.Operator, "error", err)
		return result.Entry{Candidate: cand, Outcome: result.ErrorOutcome, Detail: err.Error(), Cycles: cycles}
	}
	return result.Entry{Candidate: cand, Outcome: outcome, Detail: detail, Cycles: cycles}
}
