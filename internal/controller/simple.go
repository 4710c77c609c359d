package controller

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"wasmut.dev/pkg/wasmut/internal/discovery"
	"wasmut.dev/pkg/wasmut/internal/result"
)

// SimpleUI implements UI as plain sequential lines written to out, for
// piped/non-TTY output.
type SimpleUI struct {
	out io.Writer
}

// NewSimpleUI creates a SimpleUI writing to out.
func NewSimpleUI(out io.Writer) *SimpleUI {
	return &SimpleUI{out: out}
}

func (s *SimpleUI) Start(ctx context.Context) error { return ctx.Err() }
func (s *SimpleUI) Close(ctx context.Context)       {}
func (s *SimpleUI) Wait(ctx context.Context)        {}

// DisplayDiscovery prints one tablewriter table: file, candidate count.
func (s *SimpleUI) DisplayDiscovery(ctx context.Context, candidates []discovery.Candidate) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stats := fileStatsFromCandidates(candidates)

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"File", "Candidates"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER})

	for _, st := range stats {
		table.Append([]string{st.File, fmt.Sprintf("%d", st.Count)})
	}
	table.SetFooter([]string{fmt.Sprintf("%d file(s)", len(stats)), fmt.Sprintf("%d", len(candidates))})
	table.Render()

	_, err := fmt.Fprintf(s.out, "\n%s", buf.String())
	return err
}

// DisplayProgress prints one line per call; callers throttle how often
// they call it (e.g. on a ticker), not every candidate.
func (s *SimpleUI) DisplayProgress(ctx context.Context, completed, total int) {
	if ctx.Err() != nil {
		return
	}
	percent := 0.0
	if total > 0 {
		percent = float64(completed) / float64(total) * 100
	}
	fmt.Fprintf(s.out, "progress: %d/%d (%.1f%%)\n", completed, total, percent)
}

// DisplayScore prints the final outcome counts and mutation score.
func (s *SimpleUI) DisplayScore(ctx context.Context, score result.Score) {
	if ctx.Err() != nil {
		return
	}
	fmt.Fprintf(s.out, "\nkilled: %d  alive: %d  timeout: %d  error: %d  skipped: %d\n",
		score.Killed, score.Alive, score.Timeout, score.Error, score.Skipped)
	fmt.Fprintf(s.out, "mutation score: %.1f%%\n", score.Percent)
}
