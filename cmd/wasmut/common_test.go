package wasmut

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"wasmut.dev/pkg/wasmut/internal/config"
	"wasmut.dev/pkg/wasmut/internal/discovery"
	"wasmut.dev/pkg/wasmut/internal/operator"
	"wasmut.dev/pkg/wasmut/internal/wasm"
	"wasmut.dev/pkg/wasmut/internal/wasmut"
)

func TestLoadSubjectMissingFile(t *testing.T) {
	cfg = config.Default()
	_, err := loadSubject(filepath.Join(t.TempDir(), "nonexistent.wasm"))
	require.Error(t, err)
	require.True(t, errors.Is(err, wasmut.ErrIO))
}

func TestLoadSubjectBadMagic(t *testing.T) {
	cfg = config.Default()
	path := filepath.Join(t.TempDir(), "bad.wasm")
	require.NoError(t, os.WriteFile(path, []byte("not a wasm module"), 0o644))

	_, err := loadSubject(path)
	require.Error(t, err)
	require.True(t, errors.Is(err, wasmut.ErrInvalidModule))
}

func addModuleForArtifactTest() *wasm.Module {
	return &wasm.Module{
		Types: []wasm.FunctionType{{Params: []wasm.ValueType{wasm.I32, wasm.I32}, Results: []wasm.ValueType{wasm.I32}}},
		Funcs: []wasm.Function{{
			TypeIndex: 0,
			Code: []byte{
				byte(wasm.OpLocalGet), 0x00,
				byte(wasm.OpLocalGet), 0x01,
				byte(wasm.OpI32Add),
			},
			Name: "add",
		}},
		Exports: []wasm.Export{{Name: "add", Kind: wasm.ExportFunc, Index: 0}},
	}
}

func discoverAddCandidates(t *testing.T, m *wasm.Module) []discovery.Candidate {
	t.Helper()
	reg, err := operator.NewRegistry([]string{"^binop_add_to_sub$"})
	require.NoError(t, err)
	candidates, err := discovery.Discover(m, nil, reg, nil)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	return candidates
}

func TestBuildArtifactMetaMutantByDefault(t *testing.T) {
	cfg = config.Default()
	m := addModuleForArtifactTest()
	candidates := discoverAddCandidates(t, m)

	artifact, err := buildArtifact(m, candidates)
	require.NoError(t, err)
	require.NotNil(t, artifact.Module)
	require.Nil(t, artifact.ClassicalModules)
}

func TestBuildArtifactClassicalWhenDisabled(t *testing.T) {
	disabled := false
	loaded := config.Default()
	loaded.Engine.MetaMutant = &disabled
	cfg = loaded

	m := addModuleForArtifactTest()
	candidates := discoverAddCandidates(t, m)

	artifact, err := buildArtifact(m, candidates)
	require.NoError(t, err)
	require.Nil(t, artifact.Module)
	require.Len(t, artifact.ClassicalModules, 1)
	require.NotNil(t, artifact.BaselineModule)
}
