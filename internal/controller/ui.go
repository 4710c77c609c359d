// Package controller provides the progress/reporting display shown while
// a run discovers candidates and executes mutants: an interactive Bubble
// Tea + Lipgloss progress bar for a TTY, and a plain sequential-line
// fallback otherwise. Progress is periodic polling rather than a
// per-candidate callback, since internal/engine.Run has no per-candidate
// hook: it dispatches a whole batch under an errgroup and only the
// running result.Spill's length is observable from outside until the
// batch finishes.
package controller

import (
	"context"
	"io"
	"os"
	"sort"

	"golang.org/x/term"

	"wasmut.dev/pkg/wasmut/internal/discovery"
	"wasmut.dev/pkg/wasmut/internal/result"
)

// FileStat is one source file's discovered-candidate count.
type FileStat struct {
	File  string
	Count int
}

// UI is the display surface a run drives during discovery and execution.
type UI interface {
	Start(ctx context.Context) error
	Close(ctx context.Context)
	Wait(ctx context.Context)

	// DisplayDiscovery shows the candidate count per file before
	// execution begins.
	DisplayDiscovery(ctx context.Context, candidates []discovery.Candidate) error

	// DisplayProgress reports how many of total candidates have an
	// outcome recorded so far. Called periodically, not once per
	// candidate.
	DisplayProgress(ctx context.Context, completed, total int)

	// DisplayScore shows the final mutation score and outcome counts.
	DisplayScore(ctx context.Context, score result.Score)
}

// IsTTY reports whether w is a terminal capable of an interactive display.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// fileStatsFromCandidates groups candidates by source file, sorted by file
// name, skipping candidates with no resolved file (no usable debug info).
func fileStatsFromCandidates(candidates []discovery.Candidate) []FileStat {
	counts := map[string]int{}
	for _, c := range candidates {
		if c.File == "" {
			continue
		}
		counts[c.File]++
	}

	files := make([]string, 0, len(counts))
	for f := range counts {
		files = append(files, f)
	}
	sort.Strings(files)

	stats := make([]FileStat, 0, len(files))
	for _, f := range files {
		stats = append(stats, FileStat{File: f, Count: counts[f]})
	}
	return stats
}
