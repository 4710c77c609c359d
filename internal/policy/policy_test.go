package policy

import "testing"

func TestEmptyPolicyAllowsEverything(t *testing.T) {
	p, err := Build(Filter{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !p.Check("any/file.c", "any_function") {
		t.Fatalf("expected empty policy to allow everything")
	}
}

func TestAllowedFilesRestricts(t *testing.T) {
	p, err := Build(Filter{AllowedFiles: []string{`^src/math\.c$`}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !p.Check("src/math.c", "add") {
		t.Fatalf("expected matching file to be allowed")
	}
	if p.Check("src/other.c", "add") {
		t.Fatalf("expected non-matching file to be denied")
	}
}

func TestAllowedFunctionsRestricts(t *testing.T) {
	p, err := Build(Filter{AllowedFunctions: []string{`^add$`}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !p.Check("src/math.c", "add") {
		t.Fatalf("expected matching function to be allowed")
	}
	if p.Check("src/math.c", "sub") {
		t.Fatalf("expected non-matching function to be denied")
	}
}

func TestInvalidRegexIsRejected(t *testing.T) {
	_, err := Build(Filter{AllowedFiles: []string{"("}})
	if err == nil {
		t.Fatalf("expected an error for invalid regex")
	}
}
