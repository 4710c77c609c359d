package wasmut

import (
	"fmt"

	"github.com/spf13/cobra"

	"wasmut.dev/pkg/wasmut/internal/discovery"
	"wasmut.dev/pkg/wasmut/internal/engine"
)

var (
	runArgsFlag []string
	runEnvFlag  []string
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <module.wasm>",
		Short: "Run the unmutated module once and report whether it would pass baseline",
		Long: "Run the unmutated module's _start entrypoint once, under the same metered " +
			"interpreter mutation testing uses, and report its cycle count and outcome. " +
			"Use this to sanity-check a module before spending time on `mutate`.\n\n" + pathHelp,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBaselineOnly(cmd, args[0])
		},
	}
	cmd.Flags().StringArrayVar(&runArgsFlag, "arg", nil, "argument to pass as the guest's argv (can be repeated)")
	cmd.Flags().StringArrayVar(&runEnvFlag, "env", nil, "KEY=VALUE to pass as the guest's environment (can be repeated)")
	return cmd
}

func init() {
	rootCmd.AddCommand(newRunCmd())
}

func runBaselineOnly(cmd *cobra.Command, path string) error {
	subj, err := loadSubject(path)
	if err != nil {
		return err
	}

	candidates, err := discovery.Discover(subj.module, subj.resolver, subj.registry, subj.pol)
	if err != nil {
		return fmt.Errorf("discover candidates: %w", err)
	}

	artifact, err := buildArtifact(subj.module, candidates)
	if err != nil {
		return err
	}

	wasiCfg := wasiConfigFromFlags(cfg, runArgsFlag, runEnvFlag)

	baseline, err := engine.RunBaseline(artifact, wasiCfg, cfg.CoverageBasedExecution())
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "baseline failed: %v\n", err)
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "baseline passed: %d cycles consumed, %d candidates discovered\n", baseline.Cycles, len(candidates))
	return nil
}
