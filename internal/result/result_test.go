package result

import (
	"testing"

	"wasmut.dev/pkg/wasmut/internal/discovery"
)

func TestSpillRoundTrip(t *testing.T) {
	sp, err := NewSpill(t.TempDir())
	if err != nil {
		t.Fatalf("NewSpill: %v", err)
	}
	defer sp.Close()

	entries := []Entry{
		{Candidate: discovery.Candidate{Operator: "i32.add-to-sub"}, Outcome: Killed, Cycles: 12},
		{Candidate: discovery.Candidate{Operator: "i32.ge_s-to-lt_s"}, Outcome: Alive, Cycles: 8},
		{Candidate: discovery.Candidate{Operator: "i32.const-delta"}, Outcome: Timeout},
	}
	for _, e := range entries {
		if err := sp.Append(e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if sp.Len() != uint64(len(entries)) {
		t.Fatalf("Len() = %d, want %d", sp.Len(), len(entries))
	}

	var got []Entry
	err = sp.Range(func(_ uint64, e Entry) error {
		got = append(got, e)
		return nil
	})
	if err != nil {
		t.Fatalf("Range: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("got %d entries, want %d", len(got), len(entries))
	}
	for i, e := range got {
		if e.Outcome != entries[i].Outcome || e.Candidate.Operator != entries[i].Candidate.Operator {
			t.Fatalf("entry %d = %+v, want %+v", i, e, entries[i])
		}
	}

	// Range is replayable.
	var second int
	err = sp.Range(func(_ uint64, _ Entry) error { second++; return nil })
	if err != nil {
		t.Fatalf("second Range: %v", err)
	}
	if second != len(entries) {
		t.Fatalf("second Range saw %d entries, want %d", second, len(entries))
	}
}

func TestScorerExcludesSkipped(t *testing.T) {
	s := NewScorer()
	s.Add(Killed)
	s.Add(Killed)
	s.Add(Killed)
	s.Add(Alive)
	s.Add(Skipped)
	s.Add(Skipped)

	sc := s.Score()
	if sc.Killed != 3 || sc.Alive != 1 || sc.Skipped != 2 {
		t.Fatalf("unexpected counts: %+v", sc)
	}
	if want := 75.0; sc.Percent != want {
		t.Fatalf("Percent = %v, want %v", sc.Percent, want)
	}
}

func TestScorerNoCandidatesIsZero(t *testing.T) {
	sc := NewScorer().Score()
	if sc.Percent != 0.0 {
		t.Fatalf("Percent with no candidates = %v, want 0", sc.Percent)
	}
}

func TestScorerAllSkippedIsFullScore(t *testing.T) {
	s := NewScorer()
	s.Add(Skipped)
	s.Add(Skipped)
	sc := s.Score()
	if sc.Percent != 100.0 {
		t.Fatalf("Percent when all skipped = %v, want 100", sc.Percent)
	}
}

func TestScoreSpill(t *testing.T) {
	sp, err := NewSpill(t.TempDir())
	if err != nil {
		t.Fatalf("NewSpill: %v", err)
	}
	defer sp.Close()

	_ = sp.Append(Entry{Outcome: Killed})
	_ = sp.Append(Entry{Outcome: Killed})
	_ = sp.Append(Entry{Outcome: ErrorOutcome})

	sc, err := ScoreSpill(sp)
	if err != nil {
		t.Fatalf("ScoreSpill: %v", err)
	}
	if sc.Killed != 2 || sc.Error != 1 {
		t.Fatalf("unexpected score: %+v", sc)
	}
	killed, counted := 2.0, 3.0
	want := killed / counted * 100.0
	if sc.Percent != want {
		t.Fatalf("Percent = %v, want %v", sc.Percent, want)
	}
}
