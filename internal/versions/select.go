// Package versions picks concrete versions from registry metadata under
// npm-compatible semver range constraints.
package versions

import (
	"github.com/Masterminds/semver/v3"

	"github.com/pacm-sh/pacm/internal/errs"
	"github.com/pacm-sh/pacm/internal/registry"
)

// Pick selects the version of meta that satisfies rng.
//
// The literal "latest" resolves through dist-tags. Any other expression is
// evaluated as a semver range and the maximum satisfying version wins;
// pre-releases are admitted only when the range itself mentions one. An
// expression that is not a valid range falls back to a dist-tag lookup, so
// "foo@beta" resolves the way npm resolves tags.
func Pick(meta *registry.Metadata, rng string) (string, error) {
	if rng == "" || rng == "latest" {
		return fromTag(meta, "latest")
	}

	constraint, err := semver.NewConstraint(rng)
	if err != nil {
		return fromTag(meta, rng)
	}

	var best *semver.Version
	var bestRaw string
	for raw := range meta.Versions {
		v, err := semver.NewVersion(raw)
		if err != nil {
			continue
		}
		if !constraint.Check(v) {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
			bestRaw = raw
		}
	}
	if best == nil {
		return "", &errs.ResolutionError{Kind: errs.NoMatchingVersion, Name: meta.Name, Range: rng}
	}
	return bestRaw, nil
}

func fromTag(meta *registry.Metadata, tag string) (string, error) {
	version, ok := meta.DistTags[tag]
	if !ok || version == "" {
		return "", &errs.ResolutionError{Kind: errs.NoSuchTag, Name: meta.Name, Range: tag}
	}
	if _, exists := meta.Versions[version]; !exists {
		return "", &errs.ResolutionError{Kind: errs.NoMatchingVersion, Name: meta.Name, Range: tag}
	}
	return version, nil
}
