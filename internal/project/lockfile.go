package project

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pacm-sh/pacm/internal/errs"
)

// LockFile is the lockfile filename.
const LockFile = "pacm.lockp"

// LockEntry records one direct dependency in the lockfile. Transitives live
// only on disk.
type LockEntry struct {
	Version          string            `json:"version"`
	Resolved         string            `json:"resolved"`
	Integrity        string            `json:"integrity"`
	Dependencies     map[string]string `json:"dependencies,omitempty"`
	PeerDependencies map[string]string `json:"peerDependencies,omitempty"`
}

// Lock is a loaded pacm.lockp. Entry order within each map is preserved
// from disk and extended in insertion order; readers must not rely on it.
type Lock struct {
	deps    *orderedObject
	devDeps *orderedObject
	path    string
}

// LoadLock reads projectDir/pacm.lockp. A missing, empty or whitespace-only
// file yields an empty lock.
func LoadLock(projectDir string) (*Lock, error) {
	path := filepath.Join(projectDir, LockFile)
	l := &Lock{
		deps:    newOrderedObject(),
		devDeps: newOrderedObject(),
		path:    path,
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return nil, &errs.FilesystemError{Path: path, Err: err}
	}
	if strings.TrimSpace(string(data)) == "" {
		return l, nil
	}

	raw, err := parseOrderedObject(data)
	if err != nil {
		return nil, &errs.FilesystemError{Path: path, Err: err}
	}
	if v, ok := raw.Get("dependencies"); ok {
		if err := json.Unmarshal(v, l.deps); err != nil {
			return nil, &errs.FilesystemError{Path: path, Err: err}
		}
	}
	if v, ok := raw.Get("devDependencies"); ok {
		if err := json.Unmarshal(v, l.devDeps); err != nil {
			return nil, &errs.FilesystemError{Path: path, Err: err}
		}
	}
	return l, nil
}

// Empty reports whether the lock has no direct entries.
func (l *Lock) Empty() bool {
	return l.deps.Len() == 0 && l.devDeps.Len() == 0
}

// Set records entry for name in the prod or dev map.
func (l *Lock) Set(name string, entry LockEntry, dev bool) {
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if dev {
		l.devDeps.Set(name, data)
		return
	}
	l.deps.Set(name, data)
}

// Get returns the entry for name from either map.
func (l *Lock) Get(name string) (LockEntry, bool) {
	for _, obj := range []*orderedObject{l.deps, l.devDeps} {
		if raw, ok := obj.Get(name); ok {
			var entry LockEntry
			if json.Unmarshal(raw, &entry) == nil {
				return entry, true
			}
		}
	}
	return LockEntry{}, false
}

// Remove deletes name from both maps, reporting whether it was present.
func (l *Lock) Remove(name string) bool {
	_, inProd := l.deps.Get(name)
	_, inDev := l.devDeps.Get(name)
	l.deps.Delete(name)
	l.devDeps.Delete(name)
	return inProd || inDev
}

// Names returns the direct entry names, prod first, each partition in
// serialized order.
func (l *Lock) Names() (prod, dev []string) {
	return l.deps.Keys(), l.devDeps.Keys()
}

// Entries returns all direct entries keyed by name.
func (l *Lock) Entries() map[string]LockEntry {
	out := make(map[string]LockEntry)
	for _, obj := range []*orderedObject{l.deps, l.devDeps} {
		for _, name := range obj.Keys() {
			raw, _ := obj.Get(name)
			var entry LockEntry
			if json.Unmarshal(raw, &entry) == nil {
				out[name] = entry
			}
		}
	}
	return out
}

// Save writes the lockfile atomically: two-space indent, keys in insertion
// order.
func (l *Lock) Save() error {
	root := newOrderedObject()
	depsJSON, err := json.Marshal(l.deps)
	if err != nil {
		return &errs.FilesystemError{Path: l.path, Err: err}
	}
	devJSON, err := json.Marshal(l.devDeps)
	if err != nil {
		return &errs.FilesystemError{Path: l.path, Err: err}
	}
	root.Set("dependencies", depsJSON)
	root.Set("devDependencies", devJSON)

	data, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return &errs.FilesystemError{Path: l.path, Err: err}
	}
	return writeFileAtomic(l.path, append(data, '\n'))
}
