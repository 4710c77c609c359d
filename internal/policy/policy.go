// Package policy implements the mutation filter policy: which files and
// functions are eligible for mutation, expressed as allow-lists of
// regular expressions. An empty allow-list means "allow everything".
package policy

import (
	"fmt"
	"regexp"
)

// Policy decides whether a candidate mutation site, identified by its
// source file and enclosing function name, should be discovered at all.
type Policy struct {
	allowedFiles     []*regexp.Regexp
	allowedFunctions []*regexp.Regexp
	anythingAllowed  bool
}

// Filter is the raw configuration shape decoded from the `[filter]` table.
type Filter struct {
	AllowedFiles     []string
	AllowedFunctions []string
}

// Build compiles a Filter into a Policy. Both lists empty means every
// file and every function is allowed.
func Build(f Filter) (*Policy, error) {
	p := &Policy{anythingAllowed: len(f.AllowedFiles) == 0 && len(f.AllowedFunctions) == 0}

	files, err := compileAll(f.AllowedFiles)
	if err != nil {
		return nil, fmt.Errorf("policy: allowed_files: %w", err)
	}
	funcs, err := compileAll(f.AllowedFunctions)
	if err != nil {
		return nil, fmt.Errorf("policy: allowed_functions: %w", err)
	}
	p.allowedFiles = files
	p.allowedFunctions = funcs
	return p, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, pat := range patterns {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

// CheckFile reports whether file matches the allowed_files list. A nil/empty
// list means every file matches.
func (p *Policy) CheckFile(file string) bool {
	if len(p.allowedFiles) == 0 {
		return true
	}
	return matchesAny(p.allowedFiles, file)
}

// CheckFunction reports whether function matches the allowed_functions list.
func (p *Policy) CheckFunction(function string) bool {
	if len(p.allowedFunctions) == 0 {
		return true
	}
	return matchesAny(p.allowedFunctions, function)
}

// Check reports whether a candidate belonging to file/function should be
// discovered. Only a dimension that was actually given an allow-list
// participates in the OR; an unconfigured dimension never admits a
// candidate on its own.
func (p *Policy) Check(file, function string) bool {
	if p.anythingAllowed {
		return true
	}
	fileAllowed := len(p.allowedFiles) > 0 && matchesAny(p.allowedFiles, file)
	funcAllowed := len(p.allowedFunctions) > 0 && matchesAny(p.allowedFunctions, function)
	return fileAllowed || funcAllowed
}

func matchesAny(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
