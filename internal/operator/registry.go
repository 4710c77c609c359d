package operator

import (
	"fmt"
	"regexp"

	"wasmut.dev/pkg/wasmut/internal/wasm"
)

// All is the full mutation operator catalogue, in a fixed order so that
// candidate discovery (internal/discovery) produces deterministic,
// reproducible IDs across runs.
var All = []Operator{
	binopAddToSub, binopSubToAdd,
	binopMulToDiv, binopDivToMul,
	binopShlToShr, binopShrToShl,
	binopRemToDiv, binopDivToRem,
	binopAndToOr, binopOrToAnd,
	binopXorToOr, binopOrToXor,
	binopRotrToRotl, binopRotlToRotr,
	unopNegToNop,
	relopEqToNe, relopNeToEq,
	relopLeToGt, relopLeToLt,
	relopLtToGe, relopLtToLe,
	relopGeToGt, relopGeToLt,
	relopGtToGe, relopGtToLe,
	constReplaceZero, constReplaceNonZero,
	callRemoveVoidCall, callRemoveScalarCall,
}

// Names returns the name of every operator in the catalogue, in the fixed
// order used for discovery — used by the `list-operators` CLI verb.
func Names() []string {
	names := make([]string, len(All))
	for i, op := range All {
		names[i] = op.Name
	}
	return names
}

// Registry applies an enabled-set filter (`operators.enabled_operators`,
// a list of regexes matched against an operator's name; an empty list
// enables every operator) over the full catalogue.
type Registry struct {
	enabled []Operator
	allowed map[string]bool
}

// NewRegistry builds a Registry from the raw `enabled_operators` patterns.
// An empty/nil pattern list allows every operator.
func NewRegistry(patterns []string) (*Registry, error) {
	if len(patterns) == 0 {
		patterns = []string{""}
	}
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("operator: invalid enabled_operators pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}

	r := &Registry{allowed: map[string]bool{}}
	for _, op := range All {
		for _, re := range compiled {
			if re.MatchString(op.Name) {
				r.enabled = append(r.enabled, op)
				r.allowed[op.Name] = true
				break
			}
		}
	}
	return r, nil
}

// Enabled reports whether name is enabled under this registry.
func (r *Registry) Enabled(name string) bool {
	return r.allowed[name]
}

// Apply runs every enabled operator against ins and returns every
// resulting replacement, in catalogue order.
func (r *Registry) Apply(ins wasm.Instruction, ctx *Context) []Replacement {
	var out []Replacement
	for _, op := range r.enabled {
		out = append(out, op.Generate(ins, ctx)...)
	}
	return out
}

// Operators returns the enabled operator list, in catalogue order.
func (r *Registry) Operators() []Operator {
	return r.enabled
}
