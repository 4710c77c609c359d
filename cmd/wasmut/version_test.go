package wasmut

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmdOutput(t *testing.T) {
	cmd := newVersionCmd()

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())

	output := out.String()
	if strings.Contains(output, "version: unknown") {
		assert.Contains(t, output, "version: unknown")
		return
	}
	assert.Contains(t, output, "tool version")
	assert.Contains(t, output, "go version")
}
