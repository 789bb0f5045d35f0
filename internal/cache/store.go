// Package cache implements the content-addressed tarball store under the
// user-home cache directory.
//
// Layout: {HOME}/.pacm-cache/{safeName}/{version}.tgz, where safeName is the
// package name with the single "/" of a scoped name replaced by "_".
package cache

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pacm-sh/pacm/internal/errs"
	"github.com/pacm-sh/pacm/internal/spec"
)

// DirName is the cache directory created under the user home.
const DirName = ".pacm-cache"

// Store is the on-disk tarball cache plus its in-memory index. The index is
// built lazily from the directory layout and updated on each publish.
type Store struct {
	root string

	mu      sync.Mutex
	index   map[string]string
	scanned bool
}

// New returns a store rooted at dir. Nothing is created until first publish.
func New(dir string) *Store {
	return &Store{root: dir, index: make(map[string]string)}
}

// Default returns the store under the user home directory.
func Default() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, &errs.FilesystemError{Path: "$HOME", Err: err}
	}
	return New(filepath.Join(home, DirName)), nil
}

// Root returns the cache root directory.
func (s *Store) Root() string { return s.root }

// Path returns the cache location for (name, version) whether or not the
// tarball exists yet.
func (s *Store) Path(name, version string) string {
	return filepath.Join(s.root, spec.SafeName(name), version+".tgz")
}

func indexKey(name, version string) string {
	return name + "@" + version
}

// Lookup returns the cached tarball path for (name, version) if present.
func (s *Store) Lookup(name, version string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanLocked()
	p, ok := s.index[indexKey(name, version)]
	return p, ok
}

// Publish atomically installs the tarball at src into the cache and records
// it in the index. The source file is left in place for the caller to
// remove.
func (s *Store) Publish(name, version, src string) (string, error) {
	dest := s.Path(name, version)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", &errs.CacheError{Kind: errs.CacheIO, Name: name, Version: version, Err: err}
	}

	tmp := dest + ".tmp"
	if err := copyFile(src, tmp); err != nil {
		return "", &errs.CacheError{Kind: errs.CacheIO, Name: name, Version: version, Err: err}
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return "", &errs.CacheError{Kind: errs.CacheIO, Name: name, Version: version, Err: err}
	}

	s.mu.Lock()
	s.index[indexKey(name, version)] = dest
	s.mu.Unlock()
	return dest, nil
}

// Clean removes the whole cache tree. It reports whether anything existed.
func (s *Store) Clean() (bool, error) {
	_, err := os.Stat(s.root)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, &errs.FilesystemError{Path: s.root, Err: err}
	}
	if err := os.RemoveAll(s.root); err != nil {
		return false, &errs.FilesystemError{Path: s.root, Err: err}
	}
	s.mu.Lock()
	s.index = make(map[string]string)
	s.scanned = false
	s.mu.Unlock()
	return true, nil
}

// scanLocked walks the cache layout once per process and fills the index.
func (s *Store) scanLocked() {
	if s.scanned {
		return
	}
	s.scanned = true

	dirs, err := os.ReadDir(s.root)
	if err != nil {
		return
	}
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		name := d.Name()
		if strings.HasPrefix(name, "@") {
			// Only scoped names were flattened with "_".
			name = strings.Replace(name, "_", "/", 1)
		}
		entries, err := os.ReadDir(filepath.Join(s.root, d.Name()))
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".tgz") {
				continue
			}
			version := strings.TrimSuffix(e.Name(), ".tgz")
			s.index[indexKey(name, version)] = filepath.Join(s.root, d.Name(), e.Name())
		}
	}
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", dest, err)
	}
	return nil
}
