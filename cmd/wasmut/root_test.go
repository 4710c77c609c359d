package wasmut

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"wasmut.dev/pkg/wasmut/internal/config"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(wd)) })
	return dir
}

func resetFlags(t *testing.T) {
	t.Helper()
	configFileFlag, configDirFlag = "", ""
	verboseFlag = false
	workersFlag = 0
	outputFlag, formatFlag = "", ""
	t.Cleanup(func() {
		configFileFlag, configDirFlag = "", ""
		verboseFlag = false
		workersFlag = 0
		outputFlag, formatFlag = "", ""
	})
}

func TestSetupRunFallsBackToDefaultsWithNoConfigFile(t *testing.T) {
	chdirTemp(t)
	resetFlags(t)

	cmd := baseRootCmd()
	require.NoError(t, setupRun(cmd))

	require.Equal(t, config.DefaultTimeoutMultiplier, cfg.TimeoutMultiplier())
	require.NotNil(t, ui)
}

func TestSetupRunAppliesOutputAndFormatFlags(t *testing.T) {
	chdirTemp(t)
	resetFlags(t)
	outputFlag = "custom-report-dir"
	formatFlag = "html"

	cmd := baseRootCmd()
	require.NoError(t, setupRun(cmd))

	require.Equal(t, "custom-report-dir", cfg.Report.OutputDir)
	require.Equal(t, "html", cfg.Report.Format)
}

func TestSetupRunAppliesWorkersEnvOverride(t *testing.T) {
	chdirTemp(t)
	resetFlags(t)
	t.Setenv("WASMUT_ENGINE_WORKERS", "4")

	cmd := baseRootCmd()
	require.NoError(t, setupRun(cmd))

	require.Equal(t, 4, cfg.Engine.Workers)
}
