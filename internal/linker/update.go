package linker

import (
	"context"

	"github.com/pacm-sh/pacm/internal/errs"
	"github.com/pacm-sh/pacm/internal/resolver"
	"github.com/pacm-sh/pacm/internal/spec"
)

// UpdateOptions configures an update operation.
type UpdateOptions struct {
	Names         []string
	Force         bool
	IgnoreScripts bool
}

// Update re-resolves direct dependencies to their newest published
// versions. Names absent from the manifest are skipped with a warning;
// update never adds new dependencies. Packages whose installed version
// already matches are reported up-to-date unless force is set.
func (m *Manager) Update(ctx context.Context, opts UpdateOptions) (*Report, error) {
	names := opts.Names
	if len(names) == 0 {
		prod, dev := m.Lock.Names()
		names = append(append([]string{}, prod...), dev...)
		if len(names) == 0 {
			for name := range m.Manifest.Dependencies {
				names = append(names, name)
			}
			for name := range m.Manifest.DevDependencies {
				names = append(names, name)
			}
		}
	}
	if len(names) == 0 {
		return nil, &errs.ArgumentError{Arg: "update", Reason: "nothing to update: no lockfile entries or manifest dependencies"}
	}

	report := &Report{}
	var direct []resolver.Direct
	for _, name := range names {
		if !m.Manifest.Has(name) {
			logger.Warn("package is not installed; skipping", "tag", errs.TagArgument, "name", name)
			report.NotInstalled = append(report.NotInstalled, name)
			continue
		}
		_, dev := m.Manifest.DevDependencies[name]
		direct = append(direct, resolver.Direct{
			Spec: spec.Spec{Name: name, Real: name, Range: spec.DefaultRange},
			Dev:  dev,
		})
	}
	if len(direct) == 0 {
		return report, nil
	}

	result, err := resolver.New(m.Registry).Resolve(ctx, direct)
	if err != nil {
		return nil, err
	}

	report.SkippedOptional = result.Skipped
	if err := m.materialize(ctx, result, opts.Force, report); err != nil {
		return nil, err
	}
	// The short-circuited entries are up-to-date in update terms.
	report.UpToDate = report.AlreadyInstalled
	report.AlreadyInstalled = nil

	if !opts.IgnoreScripts {
		m.runPostInstalls(ctx, report.Installed)
		m.runProjectPostInstall(ctx)
	}

	m.recordDirect(result)
	if err := m.Manifest.Save(); err != nil {
		return nil, err
	}
	if err := m.Lock.Save(); err != nil {
		return nil, err
	}
	return report, nil
}
