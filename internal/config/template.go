package config

import (
	"fmt"
	"os"

	"wasmut.dev/pkg/wasmut/internal/wasmut"
)

// defaultConfigTemplate is a commented, editable wasmut.toml a user can
// start from, written by the `new-config` verb. Every key is commented out;
// list-valued keys show an example, every other key its built-in default.
const defaultConfigTemplate = `# wasmut configuration file.
# Every key below is optional. Commented-out list values (map_dirs,
# allowed_files, allowed_functions, path_rewrite) are examples and default
# to empty; every other commented-out value is the built-in default that
# applies when the key, or the whole section, is omitted.

[engine]
# Per-mutant execution budget, as a multiple of the baseline run's cycle
# count. Must be > 0.
# timeout_multiplier = 2.0

# Host directories to expose to the guest module under WASI, as
# [host, guest] pairs. Empty means no directories are mapped in.
# map_dirs = [["./testdata", "/testdata"]]

# Skip mutants whose instruction was never reached by the baseline run
# (determined by single-pass coverage instrumentation).
# coverage_based_execution = true

# Compile every mutant into one instrumented module and select the active
# mutation at runtime, instead of compiling one module per mutant.
# meta_mutant = true

# Worker goroutines to run mutants under. 0 means runtime.NumCPU().
# workers = 0

[filter]
# Regular expressions. A candidate is eligible if its source file matches
# allowed_files or its enclosing function matches allowed_functions. A list
# that is omitted or empty takes no part in that test; with both omitted,
# every candidate is eligible.
# allowed_files = ["^src/"]
# allowed_functions = ["^do_"]

[operators]
# Regular expressions matched against mutation operator names. Omitted or
# empty means every operator this build knows is enabled.
# enabled_operators = [".*"]

[report]
# Rewrite source paths before display and before reading the file back for
# a report's source excerpt, as [pattern, replacement].
# path_rewrite = ["^/build/", "src/"]

# "console" or "html".
# format = "console"

# Where HTML reports are written.
# output_dir = "wasmut-report"

[logging]
# Empty means log to stderr.
# file = ""
# level = "info"
# format = "text"
# max_size_mb = 10
# max_backups = 3
# max_age_days = 28
# compress = true
`

// WriteDefaultConfig writes the default, fully-commented configuration
// template to path, for the `new-config` CLI verb.
func WriteDefaultConfig(path string) error {
	if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("%w: write default config %q: %v", wasmut.ErrIO, path, err)
	}
	return nil
}
