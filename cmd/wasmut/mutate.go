package wasmut

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"wasmut.dev/pkg/wasmut/internal/config"
	"wasmut.dev/pkg/wasmut/internal/discovery"
	"wasmut.dev/pkg/wasmut/internal/engine"
	"wasmut.dev/pkg/wasmut/internal/metamutant"
	"wasmut.dev/pkg/wasmut/internal/report"
	"wasmut.dev/pkg/wasmut/internal/result"
	"wasmut.dev/pkg/wasmut/internal/wasi"
)

// progressInterval is how often the mutate command polls the result spill
// to refresh the UI, since internal/engine.Run dispatches its whole batch
// with no per-candidate callback.
const progressInterval = 200 * time.Millisecond

var (
	mutateArgsFlag []string
	mutateEnvFlag  []string
)

func newMutateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mutate <module.wasm>",
		Short: "Run mutation testing against a compiled Wasm module",
		Long:  "Run mutation testing against a compiled Wasm module: discover candidates, execute each mutant, and report the mutation score.\n\n" + pathHelp,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutationTesting(cmd, args[0])
		},
	}
	cmd.Flags().StringArrayVar(&mutateArgsFlag, "arg", nil, "argument to pass as the guest's argv (can be repeated)")
	cmd.Flags().StringArrayVar(&mutateEnvFlag, "env", nil, "KEY=VALUE to pass as the guest's environment (can be repeated)")
	return cmd
}

func init() {
	rootCmd.AddCommand(newMutateCmd())
}

func parseEnv(pairs []string) map[string]string {
	env := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			continue
		}
		env[k] = v
	}
	return env
}

func wasiConfigFromFlags(cfg config.Config, args []string, env []string) wasi.Config {
	return wasi.Config{
		Args:     args,
		Env:      parseEnv(env),
		Preopens: cfg.Preopens(),
	}
}

func runMutationTesting(cmd *cobra.Command, path string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := ui.Start(ctx); err != nil {
		return err
	}
	defer ui.Close(ctx)

	subj, err := loadSubject(path)
	if err != nil {
		return err
	}

	candidates, err := discovery.Discover(subj.module, subj.resolver, subj.registry, subj.pol)
	if err != nil {
		return fmt.Errorf("discover candidates: %w", err)
	}
	if err := ui.DisplayDiscovery(ctx, candidates); err != nil {
		return err
	}

	artifact, err := buildArtifact(subj.module, candidates)
	if err != nil {
		return err
	}

	wasiCfg := wasiConfigFromFlags(cfg, mutateArgsFlag, mutateEnvFlag)

	baseline, err := engine.RunBaseline(artifact, wasiCfg, cfg.CoverageBasedExecution())
	if err != nil {
		return err
	}

	sp, err := result.NewSpill("")
	if err != nil {
		return err
	}
	defer func() {
		sp.Close()
		os.Remove(sp.Path())
	}()

	runErr := runWithProgress(ctx, artifact, wasiCfg, cfg.EngineConfig(), baseline, sp)

	score, scoreErr := result.ScoreSpill(sp)
	if scoreErr != nil {
		if runErr != nil {
			return runErr
		}
		return scoreErr
	}
	ui.DisplayScore(ctx, score)
	ui.Wait(ctx)

	if runErr != nil {
		return runErr
	}

	entries, err := collectEntries(sp)
	if err != nil {
		return err
	}
	if err := renderReport(entries); err != nil {
		return err
	}

	return nil
}

// runWithProgress calls engine.Run while a background goroutine polls
// sp.Len() to keep the UI's progress bar moving; the poller stops as soon
// as engine.Run returns, regardless of outcome.
func runWithProgress(ctx context.Context, artifact *metamutant.Artifact, wasiCfg wasi.Config, engineCfg engine.Config, baseline engine.Baseline, sp *result.Spill) error {
	total := len(artifact.Candidates)

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ui.DisplayProgress(ctx, int(sp.Len()), total)
			case <-done:
				return
			}
		}
	}()

	err := engine.Run(ctx, artifact, wasiCfg, engineCfg, baseline, sp)
	close(done)
	ui.DisplayProgress(ctx, int(sp.Len()), total)
	return err
}

func collectEntries(sp *result.Spill) ([]result.Entry, error) {
	entries := make([]result.Entry, 0, sp.Len())
	err := sp.Range(func(_ uint64, e result.Entry) error {
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func renderReport(entries []result.Entry) error {
	rewriter, err := pathRewriterFromConfig()
	if err != nil {
		return err
	}

	switch cfg.Report.Format {
	case "html":
		outputDir := cfg.Report.OutputDir
		if outputDir == "" {
			outputDir = "wasmut-report"
		}
		return report.NewHTMLReporter(outputDir, rewriter).Report(entries)
	default:
		return report.NewConsoleReporter(os.Stdout, rewriter).Report(entries)
	}
}

func pathRewriterFromConfig() (*report.PathRewriter, error) {
	pattern, replacement, ok := cfg.PathRewrite()
	if !ok {
		return report.NewPathRewriter("", "")
	}
	return report.NewPathRewriter(pattern, replacement)
}
