package linker

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pacm-sh/pacm/internal/errs"
)

// Remove deletes packages and their transitive dependency trees from
// node_modules, drops direct entries from the manifest and lockfile, and
// writes both files.
func (m *Manager) Remove(ctx context.Context, names []string) (*Report, error) {
	report := &Report{}
	visited := make(map[string]bool)

	for _, name := range names {
		inManifest := m.Manifest.RemoveDependency(name)
		inLock := m.Lock.Remove(name)
		if !inManifest && !inLock {
			logger.Warn("package is not a direct dependency", "tag", errs.TagArgument, "name", name)
			report.NotInstalled = append(report.NotInstalled, name)
		}
		m.removeTree(ctx, name, visited, report)
	}

	m.pruneNodeModules()

	if err := m.Manifest.Save(); err != nil {
		return nil, err
	}
	if err := m.Lock.Save(); err != nil {
		return nil, err
	}
	return report, nil
}

// removeTree deletes one package directory and recurses into its
// dependency names.
func (m *Manager) removeTree(ctx context.Context, name string, visited map[string]bool, report *Report) {
	if visited[name] {
		return
	}
	visited[name] = true

	destDir := m.destDir(name)
	deps := m.dependencyNames(ctx, name, destDir)

	if pkg, err := readInstalled(destDir); err == nil {
		m.removeShims(pkg.Bin.Resolve(name))
	}
	if err := os.RemoveAll(destDir); err != nil {
		logger.Warn("could not remove package directory", "tag", errs.TagFilesystem, "name", name, "err", err)
		return
	}
	report.Removed = append(report.Removed, name)

	for _, dep := range deps {
		m.removeTree(ctx, dep, visited, report)
	}
}

// dependencyNames finds the dependency names of an installed package: the
// extracted package.json first, the lockfile record second, registry
// metadata last.
func (m *Manager) dependencyNames(ctx context.Context, name, destDir string) []string {
	data, err := os.ReadFile(filepath.Join(destDir, "package.json"))
	if err == nil {
		var pkg struct {
			Dependencies map[string]string `json:"dependencies"`
		}
		if json.Unmarshal(data, &pkg) == nil && len(pkg.Dependencies) > 0 {
			return mapKeys(pkg.Dependencies)
		}
	}

	if entry, ok := m.Lock.Get(name); ok && len(entry.Dependencies) > 0 {
		return mapKeys(entry.Dependencies)
	}

	meta, err := m.Registry.FetchMetadata(ctx, name)
	if err != nil {
		logger.Warn("could not walk dependencies", "tag", errs.Tag(err), "name", name, "err", err)
		return nil
	}
	if latest, ok := meta.DistTags["latest"]; ok {
		if vm, ok := meta.Versions[latest]; ok {
			return mapKeys(vm.Dependencies)
		}
	}
	return nil
}

// pruneNodeModules removes an empty .bin directory and then an empty
// node_modules.
func (m *Manager) pruneNodeModules() {
	nm := filepath.Join(m.ProjectDir, NodeModulesDir)
	bin := filepath.Join(nm, binDir)
	if entries, err := os.ReadDir(bin); err == nil && len(entries) == 0 {
		_ = os.Remove(bin)
	}
	if entries, err := os.ReadDir(nm); err == nil && len(entries) == 0 {
		_ = os.Remove(nm)
	}
}

func mapKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
