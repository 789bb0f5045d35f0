package spec

import (
	"errors"
	"testing"

	"github.com/pacm-sh/pacm/internal/errs"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in       string
		name     string
		real     string
		rng      string
	}{
		{"lodash", "lodash", "lodash", "latest"},
		{"lodash@4.17.21", "lodash", "lodash", "4.17.21"},
		{"lodash@^4.0.0", "lodash", "lodash", "^4.0.0"},
		{"chalk@>=5.0.0 <6.0.0", "chalk", "chalk", ">=5.0.0 <6.0.0"},
		{"@types/node", "@types/node", "@types/node", "latest"},
		{"@types/node@20.1.0", "@types/node", "@types/node", "20.1.0"},
		{"@scope/pkg@~1.2.3", "@scope/pkg", "@scope/pkg", "~1.2.3"},
		{"my-lodash@npm:lodash@^4.0.0", "my-lodash", "lodash", "^4.0.0"},
		{"alias@npm:@scope/real@1.0.0", "alias", "@scope/real", "1.0.0"},
	}

	for _, tt := range tests {
		s, err := Parse(tt.in)
		if err != nil {
			t.Errorf("Parse(%q) failed: %v", tt.in, err)
			continue
		}
		if s.Name != tt.name || s.Real != tt.real || s.Range != tt.rng {
			t.Errorf("Parse(%q) = {%s %s %s}, want {%s %s %s}",
				tt.in, s.Name, s.Real, s.Range, tt.name, tt.real, tt.rng)
		}
	}
}

func TestParseRejects(t *testing.T) {
	tests := []string{
		"",
		"github:user/repo",
		"@scope",
		"@scope/a/b@1.0.0",
		"a/b",
		"alias@npm:lodash",
	}

	for _, in := range tests {
		_, err := Parse(in)
		if err == nil {
			t.Errorf("Parse(%q) succeeded, want error", in)
			continue
		}
		var argErr *errs.ArgumentError
		if !errors.As(err, &argErr) {
			t.Errorf("Parse(%q) = %T, want *errs.ArgumentError", in, err)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	// Accepted specs must recover the original (name, range) pair.
	inputs := []string{
		"lodash",
		"lodash@^4.17.0",
		"@types/node@>=20",
		"my-lodash@npm:lodash@^4.0.0",
	}
	for _, in := range inputs {
		first, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", in, err)
		}
		second, err := Parse(first.String())
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", first.String(), err)
		}
		if first != second {
			t.Errorf("round trip of %q: %+v != %+v", in, first, second)
		}
	}
}

func TestSafeName(t *testing.T) {
	if got := SafeName("lodash"); got != "lodash" {
		t.Errorf("SafeName(lodash) = %q", got)
	}
	if got := SafeName("@types/node"); got != "@types_node" {
		t.Errorf("SafeName(@types/node) = %q", got)
	}
	// Underscores in unscoped names are untouched.
	if got := SafeName("string_decoder"); got != "string_decoder" {
		t.Errorf("SafeName(string_decoder) = %q", got)
	}
}
