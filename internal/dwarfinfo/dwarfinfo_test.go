package dwarfinfo

import (
	"errors"
	"testing"

	"wasmut.dev/pkg/wasmut/internal/wasm"
)

func TestLoadMissingDebugInfo(t *testing.T) {
	m := &wasm.Module{}
	_, err := Load(m)
	if !errors.Is(err, ErrMissingDebugInfo) {
		t.Fatalf("expected ErrMissingDebugInfo, got %v", err)
	}
}

func TestLookupOnEmptyResolverIsNotOk(t *testing.T) {
	r := &Resolver{}
	loc := r.Lookup(100)
	if loc.Ok {
		t.Fatalf("expected Ok=false on an empty resolver, got %+v", loc)
	}
	if loc.Function != "" {
		t.Fatalf("expected no function name, got %q", loc.Function)
	}
}
