// Package linker materializes resolved packages into node_modules, writes
// executable shims, runs post-install hooks, and keeps the manifest and
// lockfile in step. It also implements remove and update on top of the
// same machinery.
package linker

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/pacm-sh/pacm/internal/cache"
	"github.com/pacm-sh/pacm/internal/errs"
	"github.com/pacm-sh/pacm/internal/fetch"
	"github.com/pacm-sh/pacm/internal/project"
	"github.com/pacm-sh/pacm/internal/registry"
	"github.com/pacm-sh/pacm/internal/resolver"
	"github.com/pacm-sh/pacm/internal/spec"
)

var logger = log.WithPrefix("pacm")

// NodeModulesDir is the project-local module directory.
const NodeModulesDir = "node_modules"

// Manager owns the long-lived state of one pacm operation: project files,
// registry client, cache store and download machinery.
type Manager struct {
	ProjectDir string
	Manifest   *project.Manifest
	Lock       *project.Lock
	Registry   *registry.Client
	Store      *cache.Store

	ensurer *fetch.Ensurer
}

// NewManager loads the project at projectDir and wires the registry client
// against the configured registry URL.
func NewManager(projectDir string) (*Manager, error) {
	manifest, err := project.LoadManifest(projectDir)
	if err != nil {
		return nil, err
	}
	lock, err := project.LoadLock(projectDir)
	if err != nil {
		return nil, err
	}
	store, err := cache.Default()
	if err != nil {
		return nil, err
	}

	return &Manager{
		ProjectDir: projectDir,
		Manifest:   manifest,
		Lock:       lock,
		Registry:   registry.New(project.ResolveRegistry(projectDir, manifest)),
		Store:      store,
		ensurer:    fetch.NewEnsurer(store, fetch.NewDownloader()),
	}, nil
}

// InstallOptions configures an install operation.
type InstallOptions struct {
	Specs         []string
	Force         bool
	Dev           bool
	IgnoreScripts bool
}

// Report summarizes a completed operation.
type Report struct {
	Installed        []string
	AlreadyInstalled []string
	SkippedOptional  []resolver.Skipped
	UpToDate         []string
	Removed          []string
	NotInstalled     []string
}

// Install runs the full pipeline: desired-set assembly, resolution,
// fetch+link, hooks, and manifest/lockfile write.
func (m *Manager) Install(ctx context.Context, opts InstallOptions) (*Report, error) {
	// Fast path: an argument-less install against a lockfile whose entries
	// all match the tree on disk needs no resolution and no network.
	if len(opts.Specs) == 0 && !opts.Force && !m.Lock.Empty() {
		if names, ok := m.lockedTreeIntact(); ok {
			logger.Debug("lockfile tree intact, skipping resolution")
			return &Report{AlreadyInstalled: names}, nil
		}
	}

	direct, err := m.desiredSet(opts.Specs, opts.Dev)
	if err != nil {
		return nil, err
	}

	logger.Debug("resolving", "requests", len(direct))
	result, err := resolver.New(m.Registry).Resolve(ctx, direct)
	if err != nil {
		return nil, err
	}

	report := &Report{SkippedOptional: result.Skipped}
	if err := m.materialize(ctx, result, opts.Force, report); err != nil {
		return nil, err
	}

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

// lockedTreeIntact reports whether every direct lockfile entry is already
// extracted at its recorded version.
func (m *Manager) lockedTreeIntact() ([]string, bool) {
	prod, dev := m.Lock.Names()
	names := append(append([]string{}, prod...), dev...)
	for _, name := range names {
		entry, ok := m.Lock.Get(name)
		if !ok || entry.Version == "" {
			return nil, false
		}
		installed, err := readInstalledVersion(m.destDir(name))
		if err != nil || installed != entry.Version {
			return nil, false
		}
	}
	return names, true
}

// materialize runs the shared Fetching+Linking phase over the resolved set.
func (m *Manager) materialize(ctx context.Context, result *resolver.Result, force bool, report *Report) error {
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fetch.MaxConcurrent)
	for _, pkg := range result.Packages {
		g.Go(func() error {
			destDir := m.destDir(pkg.Name)
			_, statErr := os.Stat(destDir)
			destExists := statErr == nil

			if !force && destExists {
				if installed, err := readInstalledVersion(destDir); err == nil && installed == pkg.Version {
					mu.Lock()
					report.AlreadyInstalled = append(report.AlreadyInstalled, pkg.Name)
					mu.Unlock()
					return nil
				}
			}

			// An existing directory at the wrong version is replaced.
			err := m.ensurer.EnsureExtracted(ctx, pkg.RealName, pkg.Version, pkg.TarballURL, pkg.Integrity, destDir, force || destExists)
			if err != nil {
				return err
			}
			if err := m.writeShims(pkg.Name, pkg.Bin); err != nil {
				return err
			}

			mu.Lock()
			report.Installed = append(report.Installed, pkg.Name)
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

// recordDirect updates the in-memory manifest and lockfile for the direct
// entries of the resolved set. Transitives are not recorded.
func (m *Manager) recordDirect(result *resolver.Result) {
	for _, pkg := range result.Packages {
		if !pkg.Direct {
			continue
		}
		dev := pkg.Category == resolver.Dev

		manifestVersion := pkg.Version
		if pkg.Name != pkg.RealName {
			manifestVersion = "npm:" + pkg.RealName + "@" + pkg.Version
		}
		m.Manifest.SetDependency(pkg.Name, manifestVersion, dev)

		m.Lock.Set(pkg.Name, project.LockEntry{
			Version:          pkg.Version,
			Resolved:         pkg.TarballURL,
			Integrity:        pkg.Integrity,
			Dependencies:     pkg.Dependencies,
			PeerDependencies: pkg.PeerDependencies,
		}, dev)
	}
}

// desiredSet assembles the direct requests for an operation: the explicit
// specs when any are given, otherwise lockfile direct entries first and
// manifest entries second.
func (m *Manager) desiredSet(rawSpecs []string, dev bool) ([]resolver.Direct, error) {
	if len(rawSpecs) > 0 {
		parsed, err := spec.ParseAll(rawSpecs)
		if err != nil {
			return nil, err
		}
		direct := make([]resolver.Direct, 0, len(parsed))
		for _, s := range parsed {
			direct = append(direct, resolver.Direct{Spec: s, Dev: dev})
		}
		return direct, nil
	}

	if !m.Lock.Empty() {
		prod, devNames := m.Lock.Names()
		direct := make([]resolver.Direct, 0, len(prod)+len(devNames))
		for _, name := range prod {
			direct = append(direct, resolver.Direct{Spec: m.lockedSpec(name), Dev: false})
		}
		for _, name := range devNames {
			direct = append(direct, resolver.Direct{Spec: m.lockedSpec(name), Dev: true})
		}
		return direct, nil
	}

	if len(m.Manifest.Dependencies) > 0 || len(m.Manifest.DevDependencies) > 0 {
		var direct []resolver.Direct
		for name, rng := range m.Manifest.Dependencies {
			direct = append(direct, resolver.Direct{Spec: manifestSpec(name, rng), Dev: false})
		}
		for name, rng := range m.Manifest.DevDependencies {
			direct = append(direct, resolver.Direct{Spec: manifestSpec(name, rng), Dev: true})
		}
		return direct, nil
	}

	return nil, &errs.ArgumentError{Arg: "install", Reason: "nothing to install: no specs, lockfile entries or manifest dependencies"}
}

// lockedSpec pins a lockfile entry to its recorded version. Aliased
// entries recover their real registry name from the manifest's npm: form.
func (m *Manager) lockedSpec(name string) spec.Spec {
	real := name
	for _, deps := range []map[string]string{m.Manifest.Dependencies, m.Manifest.DevDependencies} {
		if rng, ok := deps[name]; ok && strings.HasPrefix(rng, "npm:") {
			if parsed, err := spec.Parse(name + "@" + rng); err == nil {
				real = parsed.Real
			}
		}
	}

	entry, ok := m.Lock.Get(name)
	if !ok || entry.Version == "" {
		return spec.Spec{Name: name, Real: real, Range: spec.DefaultRange}
	}
	return spec.Spec{Name: name, Real: real, Range: entry.Version}
}

// manifestSpec builds a direct request from a manifest entry, expanding
// the npm: alias form.
func manifestSpec(name, rng string) spec.Spec {
	if parsed, err := spec.Parse(name + "@" + rng); err == nil {
		return parsed
	}
	return spec.Spec{Name: name, Real: name, Range: rng}
}

// destDir computes node_modules/<name>, keeping the @scope/ level.
func (m *Manager) destDir(name string) string {
	return filepath.Join(m.ProjectDir, NodeModulesDir, filepath.FromSlash(name))
}

// installedPackage is the subset of an extracted package.json the linker
// reads back.
type installedPackage struct {
	Version string            `json:"version"`
	Scripts map[string]string `json:"scripts"`
	Bin     registry.BinField `json:"bin"`
}

func readInstalled(destDir string) (*installedPackage, error) {
	data, err := os.ReadFile(filepath.Join(destDir, project.ManifestFile))
	if err != nil {
		return nil, err
	}
	var pkg installedPackage
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, err
	}
	return &pkg, nil
}

func readInstalledVersion(destDir string) (string, error) {
	pkg, err := readInstalled(destDir)
	if err != nil {
		return "", err
	}
	return pkg.Version, nil
}
