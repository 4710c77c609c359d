package report

import (
	"testing"

	"wasmut.dev/pkg/wasmut/internal/discovery"
	"wasmut.dev/pkg/wasmut/internal/result"
)

func sampleEntries() []result.Entry {
	return []result.Entry{
		{Candidate: discovery.Candidate{ID: 0, File: "a.c", Line: 3, Operator: "binop_add_to_sub"}, Outcome: result.Killed},
		{Candidate: discovery.Candidate{ID: 1, File: "a.c", Line: 5, Operator: "relop_eq_to_ne"}, Outcome: result.Alive},
		{Candidate: discovery.Candidate{ID: 2, File: "b.c", Line: 1, Operator: "const_replace_zero"}, Outcome: result.Timeout},
		{Candidate: discovery.Candidate{ID: 3, File: "", Operator: "binop_add_to_sub"}, Outcome: result.Skipped},
	}
}

func TestGroupByFileSkipsEntriesWithNoFile(t *testing.T) {
	groups := GroupByFile(sampleEntries())
	if len(groups) != 2 {
		t.Fatalf("expected 2 file groups, got %d", len(groups))
	}
	if groups[0].File != "a.c" || groups[1].File != "b.c" {
		t.Fatalf("groups not in sorted file order: %+v", groups)
	}
	if len(groups[0].Entries) != 2 {
		t.Fatalf("a.c should have 2 entries, got %d", len(groups[0].Entries))
	}
}

func TestGroupByFileOrdersByLineThenID(t *testing.T) {
	groups := GroupByFile(sampleEntries())
	a := groups[0]
	if a.Entries[0].Candidate.Line != 3 || a.Entries[1].Candidate.Line != 5 {
		t.Fatalf("a.c entries not in line order: %+v", a.Entries)
	}
}

func TestSortedByID(t *testing.T) {
	entries := []result.Entry{
		{Candidate: discovery.Candidate{ID: 2}},
		{Candidate: discovery.Candidate{ID: 0}},
		{Candidate: discovery.Candidate{ID: 1}},
	}
	sorted := SortedByID(entries)
	for i, e := range sorted {
		if e.Candidate.ID != i {
			t.Fatalf("sorted[%d].ID = %d, want %d", i, e.Candidate.ID, i)
		}
	}
}

func TestPathRewriterIdentityWhenEmpty(t *testing.T) {
	r, err := NewPathRewriter("", "")
	if err != nil {
		t.Fatalf("NewPathRewriter: %v", err)
	}
	if got := r.Rewrite("/build/foo.c"); got != "/build/foo.c" {
		t.Fatalf("Rewrite with nil rewriter = %q, want unchanged", got)
	}
}

func TestPathRewriterAppliesPattern(t *testing.T) {
	r, err := NewPathRewriter("^/build/", "src/")
	if err != nil {
		t.Fatalf("NewPathRewriter: %v", err)
	}
	if got := r.Rewrite("/build/foo.c"); got != "src/foo.c" {
		t.Fatalf("Rewrite = %q, want src/foo.c", got)
	}
}

func TestPathRewriterInvalidPattern(t *testing.T) {
	if _, err := NewPathRewriter("(", ""); err == nil {
		t.Fatal("expected error for invalid regex")
	}
}
