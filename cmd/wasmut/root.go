// Package wasmut provides the root command and CLI wiring for the wasmut
// mutation testing tool: cobra commands with viper-backed flag/env
// overrides layered on top of a TOML config file, wired to the
// compiled-module pipeline (internal/wasm, internal/dwarfinfo,
// internal/discovery, internal/metamutant, internal/engine).
package wasmut

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"wasmut.dev/pkg/wasmut/internal/config"
	"wasmut.dev/pkg/wasmut/internal/controller"
)

const (
	configFileFlagName = "config"
	configDirFlagName  = "config-dir"
	verboseFlagName    = "verbose"
	workersFlagName    = "workers"
	outputFlagName     = "output"
	formatFlagName     = "format"

	workersConfigKey = "engine.workers"
	outputConfigKey  = "report.output_dir"
	formatConfigKey  = "report.format"

	envPrefix = "WASMUT"
)

var (
	configFileFlag string
	configDirFlag  string
	verboseFlag    bool
	workersFlag    int
	outputFlag     string
	formatFlag     string
)

// cfg is the fully resolved configuration for the invoked command, built
// in rootCmd's PersistentPreRunE once flags are parsed.
var cfg config.Config

// ui is the progress/reporting display shared by every verb that runs or
// inspects a module.
var ui controller.UI

const pathHelp = `The target is a compiled WASI/WebAssembly module (.wasm). Debug info
(DWARF) is read from the module's own custom sections when present. Its
absence does not fail the run, but every instruction then has no source
file, so an allowed_files filter admits nothing; allowed_functions still
matches the module's own function names.`

const rootLongDescription = `wasmut is a mutation testing tool for compiled WASI/WebAssembly modules.
It introduces small changes (mutations) into a module's instructions and
reruns its _start entrypoint under each one, to assess how well a test
suite compiled into the module would catch them.

` + pathHelp

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wasmut",
		Short: "Mutation testing for compiled Wasm modules",
		Long:  rootLongDescription,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func init() {
	configureRootFlags(rootCmd)
	cobra.OnInitialize(initViper)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return setupRun(cmd)
	}
}

func initViper() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&configFileFlag, configFileFlagName, "c", "", "explicit wasmut.toml path (overrides config-dir and ./wasmut.toml lookup)")
	cmd.PersistentFlags().StringVarP(&configDirFlag, configDirFlagName, "C", "", "directory to look for wasmut.toml in")
	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", false, "log at debug level")
	cmd.PersistentFlags().IntVarP(&workersFlag, workersFlagName, "j", 0, "worker goroutines (0 = runtime.NumCPU())")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(workersFlagName), workersConfigKey)
	cmd.PersistentFlags().StringVarP(&outputFlag, outputFlagName, "o", "", "report output directory (HTML format only)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(outputFlagName), outputConfigKey)
	cmd.PersistentFlags().StringVarP(&formatFlag, formatFlagName, "r", "", "report format: console or html")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(formatFlagName), formatConfigKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so environment
// variables (WASMUT_ENGINE_WORKERS, etc.) can override it, matching the
// teacher's own flag/env binding idiom.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}
	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// setupRun resolves the configuration file, applies flag/env overrides on
// top of it, configures the global logger, and builds the UI every verb
// shares. Run once per invocation, before any subcommand's RunE.
//
// Flags take precedence when set to a non-zero-value; otherwise viper
// falls through to its bound WASMUT_* environment variable, and leaves
// the config-file value alone when neither is present. A flag's
// zero value (0 workers, "" output/format) is indistinguishable from
// "not passed", but it is also never a value worth overriding a
// wasmut.toml setting with, so this is safe.
func setupRun(cmd *cobra.Command) error {
	initViper()

	loaded, err := config.Load(configFileFlag, configDirFlag)
	if err != nil {
		return err
	}

	workers := workersFlag
	if workers == 0 {
		workers = viper.GetInt(workersConfigKey)
	}
	if workers != 0 {
		loaded.Engine.Workers = workers
	}

	output := outputFlag
	if output == "" {
		output = viper.GetString(outputConfigKey)
	}
	if output != "" {
		loaded.Report.OutputDir = output
	}

	format := formatFlag
	if format == "" {
		format = viper.GetString(formatConfigKey)
	}
	if format != "" {
		loaded.Report.Format = format
	}

	if err := loaded.Validate(); err != nil {
		return err
	}
	cfg = loaded

	logger := cfg.ConfigureLogger(verboseFlag)
	slog.SetDefault(logger)

	out := cmd.OutOrStdout()
	ui = controller.New(out, controller.IsTTY(os.Stdout))

	return nil
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
