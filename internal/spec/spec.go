// Package spec parses user- and dependency-supplied package specifications.
//
// Two shapes are accepted: plain "name[@range]" (scoped names keep their
// "@scope/" prefix) and aliased "alias@npm:realName@range", where the
// installed directory uses alias but resolution and download use realName.
package spec

import (
	"strings"

	"github.com/pacm-sh/pacm/internal/errs"
)

// DefaultRange is used when a spec carries no range expression.
const DefaultRange = "latest"

// Spec is a parsed package specification.
type Spec struct {
	// Name is the directory name the package installs under.
	Name string
	// Real is the registry name used for resolution and download.
	// Equal to Name unless the spec used the npm: alias form.
	Real string
	// Range is the requested semver range, or "latest".
	Range string
}

// Aliased reports whether the spec used the npm: alias form.
func (s Spec) Aliased() bool { return s.Name != s.Real }

// String renders the spec back to its canonical textual form.
func (s Spec) String() string {
	if s.Aliased() {
		return s.Name + "@npm:" + s.Real + "@" + s.Range
	}
	if s.Range == DefaultRange {
		return s.Name
	}
	return s.Name + "@" + s.Range
}

// Parse parses a single package specification.
func Parse(raw string) (Spec, error) {
	if raw == "" {
		return Spec{}, &errs.ArgumentError{Arg: raw, Reason: "empty package spec"}
	}
	if strings.HasPrefix(raw, "github:") {
		return Spec{}, &errs.ArgumentError{Arg: raw, Reason: "github: specs are not supported"}
	}

	if name, rest, ok := splitNameRange(raw); ok && strings.HasPrefix(rest, "npm:") {
		real, rng, ok := splitNameRange(strings.TrimPrefix(rest, "npm:"))
		if !ok || rng == "" {
			return Spec{}, &errs.ArgumentError{Arg: raw, Reason: "alias spec requires npm:name@range"}
		}
		if err := checkName(raw, name); err != nil {
			return Spec{}, err
		}
		if err := checkName(raw, real); err != nil {
			return Spec{}, err
		}
		return Spec{Name: name, Real: real, Range: rng}, nil
	}

	name, rng, ok := splitNameRange(raw)
	if !ok {
		name, rng = raw, ""
	}
	if rng == "" {
		rng = DefaultRange
	}
	if err := checkName(raw, name); err != nil {
		return Spec{}, err
	}
	return Spec{Name: name, Real: name, Range: rng}, nil
}

// ParseAll parses every spec, failing on the first invalid one.
func ParseAll(raw []string) ([]Spec, error) {
	specs := make([]Spec, 0, len(raw))
	for _, r := range raw {
		s, err := Parse(r)
		if err != nil {
			return nil, err
		}
		specs = append(specs, s)
	}
	return specs, nil
}

// splitNameRange splits "name@rest" at the range separator. For scoped
// names the separator is the second "@"; a leading "@" never separates.
func splitNameRange(s string) (name, rest string, ok bool) {
	start := 0
	if strings.HasPrefix(s, "@") {
		start = 1
	}
	idx := strings.Index(s[start:], "@")
	if idx < 0 {
		return s, "", false
	}
	idx += start
	return s[:idx], s[idx+1:], true
}

func checkName(raw, name string) error {
	if name == "" {
		return &errs.ArgumentError{Arg: raw, Reason: "empty package name"}
	}
	if strings.HasPrefix(name, "@") {
		if strings.Count(name, "/") != 1 {
			return &errs.ArgumentError{Arg: raw, Reason: "scoped name must be @scope/name"}
		}
	} else if strings.Contains(name, "/") {
		return &errs.ArgumentError{Arg: raw, Reason: "unscoped name must not contain '/'"}
	}
	return nil
}

// SafeName maps a package name to its cache directory component:
// the single "/" of a scoped name becomes "_".
func SafeName(name string) string {
	return strings.Replace(name, "/", "_", 1)
}
