package wasmut

import (
	"errors"
	"fmt"
	"os"

	"wasmut.dev/pkg/wasmut/internal/discovery"
	"wasmut.dev/pkg/wasmut/internal/dwarfinfo"
	"wasmut.dev/pkg/wasmut/internal/metamutant"
	"wasmut.dev/pkg/wasmut/internal/operator"
	"wasmut.dev/pkg/wasmut/internal/policy"
	"wasmut.dev/pkg/wasmut/internal/wasm"
	"wasmut.dev/pkg/wasmut/internal/wasmut"
)

// subject bundles everything discovery and execution need about one
// loaded target module: its parsed form, whatever debug info could be
// recovered from it, and the filter/operator set the resolved
// configuration describes.
type subject struct {
	module   *wasm.Module
	resolver *dwarfinfo.Resolver // nil when the module carries no DWARF info
	pol      *policy.Policy
	registry *operator.Registry
}

// loadSubject reads and parses path, resolves its debug info (tolerating
// its absence with a nil resolver: every candidate then has an empty file,
// so an allowed_files filter admits none of them), and builds the
// policy/registry pair from cfg.
func loadSubject(path string) (*subject, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read module %q: %v", wasmut.ErrIO, path, err)
	}

	m, err := wasm.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: parse module %q: %v", wasmut.ErrInvalidModule, path, err)
	}

	resolver, err := dwarfinfo.Load(m)
	if err != nil {
		if !errors.Is(err, dwarfinfo.ErrMissingDebugInfo) {
			return nil, err
		}
		resolver = nil
	}

	pol, err := cfg.Policy()
	if err != nil {
		return nil, err
	}
	reg, err := cfg.Registry()
	if err != nil {
		return nil, err
	}

	return &subject{module: m, resolver: resolver, pol: pol, registry: reg}, nil
}

// buildArtifact picks the meta-mutant or classical builder per
// cfg.MetaMutant(): the meta-mutant path compiles every candidate into
// one module addressed by active_mutation_id, the classical path builds
// one dedicated module per candidate with a single in-place replacement.
// Both feed the same engine.Run/engine.RunBaseline consumer.
func buildArtifact(m *wasm.Module, candidates []discovery.Candidate) (*metamutant.Artifact, error) {
	if cfg.MetaMutant() {
		artifact, err := metamutant.Build(m, candidates)
		if err != nil {
			return nil, fmt.Errorf("build meta-mutant: %w", err)
		}
		return artifact, nil
	}
	artifact, err := metamutant.BuildClassical(m, candidates)
	if err != nil {
		return nil, fmt.Errorf("build classical mutants: %w", err)
	}
	return artifact, nil
}
