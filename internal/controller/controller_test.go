package controller

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"wasmut.dev/pkg/wasmut/internal/discovery"
	"wasmut.dev/pkg/wasmut/internal/result"
)

func sampleCandidates() []discovery.Candidate {
	return []discovery.Candidate{
		{ID: 0, File: "a.c", Operator: "binop_add_to_sub"},
		{ID: 1, File: "a.c", Operator: "relop_eq_to_ne"},
		{ID: 2, File: "b.c", Operator: "const_replace_zero"},
		{ID: 3, Function: "no_debug_info"},
	}
}

func TestFileStatsFromCandidatesGroupsAndSkipsNoFile(t *testing.T) {
	stats := fileStatsFromCandidates(sampleCandidates())
	if len(stats) != 2 {
		t.Fatalf("expected 2 files, got %d: %+v", len(stats), stats)
	}
	if stats[0].File != "a.c" || stats[0].Count != 2 {
		t.Fatalf("a.c stat = %+v", stats[0])
	}
	if stats[1].File != "b.c" || stats[1].Count != 1 {
		t.Fatalf("b.c stat = %+v", stats[1])
	}
}

func TestSimpleUIDisplayDiscovery(t *testing.T) {
	var buf bytes.Buffer
	ui := NewSimpleUI(&buf)
	if err := ui.DisplayDiscovery(context.Background(), sampleCandidates()); err != nil {
		t.Fatalf("DisplayDiscovery: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "a.c") || !strings.Contains(out, "b.c") {
		t.Fatalf("expected both files listed, got:\n%s", out)
	}
}

func TestSimpleUIDisplayProgress(t *testing.T) {
	var buf bytes.Buffer
	ui := NewSimpleUI(&buf)
	ui.DisplayProgress(context.Background(), 5, 10)
	if !strings.Contains(buf.String(), "5/10") {
		t.Fatalf("expected progress line, got:\n%s", buf.String())
	}
}

func TestSimpleUIDisplayScore(t *testing.T) {
	var buf bytes.Buffer
	ui := NewSimpleUI(&buf)
	ui.DisplayScore(context.Background(), result.Score{Killed: 3, Alive: 1, Percent: 75.0})
	out := buf.String()
	if !strings.Contains(out, "75.0%") {
		t.Fatalf("expected mutation score, got:\n%s", out)
	}
}

func TestNewPicksImplementationByInteractivity(t *testing.T) {
	var buf bytes.Buffer
	if _, ok := New(&buf, false).(*SimpleUI); !ok {
		t.Fatal("New(interactive=false) should return a *SimpleUI")
	}
	if _, ok := New(&buf, true).(*TUI); !ok {
		t.Fatal("New(interactive=true) should return a *TUI")
	}
}

func TestProgressModelTracksCompletionAndScore(t *testing.T) {
	m := newProgressModel()

	updated, _ := m.Update(discoveryMsg{stats: []FileStat{{File: "a.c", Count: 2}}, total: 2})
	pm := updated.(progressModel)
	if pm.total != 2 {
		t.Fatalf("total = %d, want 2", pm.total)
	}

	updated, _ = pm.Update(progressMsg{completed: 1, total: 2})
	pm = updated.(progressModel)
	if pm.completed != 1 {
		t.Fatalf("completed = %d, want 1", pm.completed)
	}

	updated, cmd := pm.Update(scoreMsg{score: result.Score{Killed: 2, Percent: 100}})
	pm = updated.(progressModel)
	if pm.score == nil || pm.score.Percent != 100 {
		t.Fatalf("score not recorded: %+v", pm.score)
	}
	if cmd == nil {
		t.Fatal("receiving the final score should schedule tea.Quit")
	}

	view := pm.View()
	if !strings.Contains(view, "100.0%") {
		t.Fatalf("view missing score, got:\n%s", view)
	}
}
