package wasmut

import (
	"testing"

	"github.com/stretchr/testify/require"

	"wasmut.dev/pkg/wasmut/internal/config"
)

func TestParseEnv(t *testing.T) {
	env := parseEnv([]string{"FOO=bar", "BAZ=qux=extra", "MALFORMED"})
	require.Equal(t, map[string]string{"FOO": "bar", "BAZ": "qux=extra"}, env)
}

func TestWasiConfigFromFlags(t *testing.T) {
	c := config.Default()
	wasiCfg := wasiConfigFromFlags(c, []string{"a", "b"}, []string{"KEY=value"})
	require.Equal(t, []string{"a", "b"}, wasiCfg.Args)
	require.Equal(t, map[string]string{"KEY": "value"}, wasiCfg.Env)
}

func TestPathRewriterFromConfigIdentityByDefault(t *testing.T) {
	cfg = config.Default()
	rewriter, err := pathRewriterFromConfig()
	require.NoError(t, err)
	require.Nil(t, rewriter)
}
