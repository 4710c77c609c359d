// Package report renders a completed run's result.Entry set into two
// output formats: a colorized console summary and a static HTML site.
// Both consume the same grouping helpers so the per-file and overall
// counts never drift apart between formats. HTML rendering uses
// html/template rather than a syntax-highlighting template engine; see
// DESIGN.md for why no highlighter dependency is pulled in.
package report

import (
	"fmt"
	"regexp"
	"sort"

	"wasmut.dev/pkg/wasmut/internal/result"
)

// PathRewriter rewrites a source path for display only — discovery and
// policy filtering always see the original, unrewritten DWARF path.
type PathRewriter struct {
	pattern     *regexp.Regexp
	replacement string
}

// NewPathRewriter compiles pattern, or returns nil (the identity rewrite)
// if pattern is empty.
func NewPathRewriter(pattern, replacement string) (*PathRewriter, error) {
	if pattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("report: invalid path_rewrite pattern %q: %w", pattern, err)
	}
	return &PathRewriter{pattern: re, replacement: replacement}, nil
}

// Rewrite applies the rewrite, or returns path unchanged if r is nil.
func (r *PathRewriter) Rewrite(path string) string {
	if r == nil {
		return path
	}
	return r.pattern.ReplaceAllString(path, r.replacement)
}

// FileGroup is every recorded entry for one source file, in ascending
// line order then candidate id order, so the report is deterministic
// regardless of execution interleaving.
type FileGroup struct {
	File    string
	Entries []result.Entry
	Score   result.Score
}

// GroupByFile buckets entries (skipping those with no resolved file, e.g.
// a module with no usable debug info) into one FileGroup per source file,
// returned in file-name order.
func GroupByFile(entries []result.Entry) []FileGroup {
	byFile := map[string][]result.Entry{}
	for _, e := range entries {
		if e.Candidate.File == "" {
			continue
		}
		byFile[e.Candidate.File] = append(byFile[e.Candidate.File], e)
	}

	names := make([]string, 0, len(byFile))
	for name := range byFile {
		names = append(names, name)
	}
	sort.Strings(names)

	groups := make([]FileGroup, 0, len(names))
	for _, name := range names {
		es := byFile[name]
		sort.Slice(es, func(i, j int) bool {
			if es[i].Candidate.Line != es[j].Candidate.Line {
				return es[i].Candidate.Line < es[j].Candidate.Line
			}
			return es[i].Candidate.ID < es[j].Candidate.ID
		})
		groups = append(groups, FileGroup{File: name, Entries: es, Score: scoreOf(es)})
	}
	return groups
}

// ByLine buckets a file group's entries by source line, for per-line
// rendering (the HTML source view's line-classification map).
func (g FileGroup) ByLine() map[int][]result.Entry {
	out := map[int][]result.Entry{}
	for _, e := range g.Entries {
		out[e.Candidate.Line] = append(out[e.Candidate.Line], e)
	}
	return out
}

func scoreOf(entries []result.Entry) result.Score {
	s := result.NewScorer()
	for _, e := range entries {
		s.AddEntry(e)
	}
	return s.Score()
}

// SortedByID returns entries sorted by candidate id, independent of the
// order mutants actually finished executing in.
func SortedByID(entries []result.Entry) []result.Entry {
	out := make([]result.Entry, len(entries))
	copy(out, entries)
	sort.Slice(out, func(i, j int) bool { return out[i].Candidate.ID < out[j].Candidate.ID })
	return out
}
