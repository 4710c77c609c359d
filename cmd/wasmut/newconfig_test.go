package wasmut

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"wasmut.dev/pkg/wasmut/internal/config"
)

func TestNewConfigCmdWritesFile(t *testing.T) {
	tempDir := t.TempDir()
	configDirFlag = tempDir
	t.Cleanup(func() { configDirFlag = "" })

	cmd := newNewConfigCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	require.NoError(t, cmd.Execute())

	targetPath := filepath.Join(tempDir, config.DefaultFileName)
	contents, err := os.ReadFile(targetPath)
	require.NoError(t, err)
	require.NotEmpty(t, contents)

	parsed, err := config.Parse(string(contents))
	require.NoError(t, err)
	require.NoError(t, parsed.Validate())
}
