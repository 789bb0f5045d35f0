// Package project owns the on-disk project state: package.json, the
// pacm.lockp lockfile, and registry configuration discovery.
package project

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/pacm-sh/pacm/internal/errs"
)

// ManifestFile is the project manifest filename.
const ManifestFile = "package.json"

// Manifest is a loaded package.json. Only the fields pacm understands are
// decoded; everything else is preserved verbatim on write.
type Manifest struct {
	Name            string
	Version         string
	Scripts         map[string]string
	Dependencies    map[string]string
	DevDependencies map[string]string
	RegistryURL     string // publishConfig.registry

	raw  *orderedObject
	path string
}

// LoadManifest reads projectDir/package.json. A missing file yields an
// empty manifest that will be created on save.
func LoadManifest(projectDir string) (*Manifest, error) {
	path := filepath.Join(projectDir, ManifestFile)
	m := &Manifest{
		Scripts:         make(map[string]string),
		Dependencies:    make(map[string]string),
		DevDependencies: make(map[string]string),
		raw:             newOrderedObject(),
		path:            path,
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		return nil, &errs.FilesystemError{Path: path, Err: err}
	}

	raw, err := parseOrderedObject(data)
	if err != nil {
		return nil, &errs.FilesystemError{Path: path, Err: err}
	}
	m.raw = raw

	decodeString(raw, "name", &m.Name)
	decodeString(raw, "version", &m.Version)
	decodeStringMap(raw, "scripts", m.Scripts)
	decodeStringMap(raw, "dependencies", m.Dependencies)
	decodeStringMap(raw, "devDependencies", m.DevDependencies)

	if pc, ok := raw.Get("publishConfig"); ok {
		var publishConfig struct {
			Registry string `json:"registry"`
		}
		if json.Unmarshal(pc, &publishConfig) == nil {
			m.RegistryURL = publishConfig.Registry
		}
	}
	return m, nil
}

// Exists reports whether projectDir already has a package.json.
func Exists(projectDir string) bool {
	_, err := os.Stat(filepath.Join(projectDir, ManifestFile))
	return err == nil
}

// SetDependency records name at version in the prod or dev map.
func (m *Manifest) SetDependency(name, version string, dev bool) {
	if dev {
		m.DevDependencies[name] = version
		return
	}
	m.Dependencies[name] = version
}

// RemoveDependency deletes name from both maps, reporting whether it was
// present in either.
func (m *Manifest) RemoveDependency(name string) bool {
	_, inProd := m.Dependencies[name]
	_, inDev := m.DevDependencies[name]
	delete(m.Dependencies, name)
	delete(m.DevDependencies, name)
	return inProd || inDev
}

// Has reports whether name is a direct dependency of either kind.
func (m *Manifest) Has(name string) bool {
	_, inProd := m.Dependencies[name]
	_, inDev := m.DevDependencies[name]
	return inProd || inDev
}

// Save writes the manifest atomically, preserving unknown fields and key
// order. Empty dependency maps are elided.
func (m *Manifest) Save() error {
	if m.Name != "" {
		setJSON(m.raw, "name", m.Name)
	}
	if m.Version != "" {
		setJSON(m.raw, "version", m.Version)
	}
	if len(m.Scripts) > 0 {
		setJSON(m.raw, "scripts", sortedMap(m.Scripts))
	}
	if len(m.Dependencies) > 0 {
		setJSON(m.raw, "dependencies", sortedMap(m.Dependencies))
	} else {
		m.raw.Delete("dependencies")
	}
	if len(m.DevDependencies) > 0 {
		setJSON(m.raw, "devDependencies", sortedMap(m.DevDependencies))
	} else {
		m.raw.Delete("devDependencies")
	}

	data, err := json.MarshalIndent(m.raw, "", "  ")
	if err != nil {
		return &errs.FilesystemError{Path: m.path, Err: err}
	}
	return writeFileAtomic(m.path, append(data, '\n'))
}

func decodeString(raw *orderedObject, key string, out *string) {
	if v, ok := raw.Get(key); ok {
		_ = json.Unmarshal(v, out)
	}
}

func decodeStringMap(raw *orderedObject, key string, out map[string]string) {
	if v, ok := raw.Get(key); ok {
		_ = json.Unmarshal(v, &out)
	}
}

func setJSON(raw *orderedObject, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	raw.Set(key, data)
}

// sortedMap renders a string map with sorted keys so manifest writes are
// stable run to run.
func sortedMap(m map[string]string) *orderedObject {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	obj := newOrderedObject()
	for _, k := range keys {
		data, _ := json.Marshal(m[k])
		obj.Set(k, data)
	}
	return obj
}

// writeFileAtomic writes data via a temp file and rename into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return &errs.FilesystemError{Path: path, Err: err}
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return &errs.FilesystemError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return &errs.FilesystemError{Path: path, Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return &errs.FilesystemError{Path: path, Err: err}
	}
	return nil
}
