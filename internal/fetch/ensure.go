package fetch

import (
	"context"
	"os"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/pacm-sh/pacm/internal/cache"
	"github.com/pacm-sh/pacm/internal/errs"
)

// MaxConcurrent caps extraction-or-download tasks across a whole install.
const MaxConcurrent = 20

// Ensurer materializes package tarballs: cache lookup, download-and-publish
// under single-flight, then extraction into a destination directory.
type Ensurer struct {
	store      *cache.Store
	downloader *Downloader
	flight     singleflight.Group
	sem        *semaphore.Weighted
}

// NewEnsurer wires a store and downloader under the shared concurrency cap.
func NewEnsurer(store *cache.Store, downloader *Downloader) *Ensurer {
	return &Ensurer{
		store:      store,
		downloader: downloader,
		sem:        semaphore.NewWeighted(MaxConcurrent),
	}
}

// EnsureExtracted guarantees that destDir holds the extracted contents of
// (name, version). The tarball is taken from the cache when present,
// downloaded, verified and published otherwise. Extraction happens when
// destDir does not exist or force is set.
func (e *Ensurer) EnsureExtracted(ctx context.Context, name, version, tarballURL, integrity, destDir string, force bool) error {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer e.sem.Release(1)

	tarballPath, err := e.ensureTarball(ctx, name, version, tarballURL, integrity)
	if err != nil {
		return err
	}

	if !force {
		if _, statErr := os.Stat(destDir); statErr == nil {
			return nil
		}
	}
	if force {
		if err := os.RemoveAll(destDir); err != nil {
			return &errs.CacheError{Kind: errs.CacheExtract, Name: name, Version: version, Err: err}
		}
	}
	if err := extractTarball(tarballPath, destDir); err != nil {
		return &errs.CacheError{Kind: errs.CacheExtract, Name: name, Version: version, Err: err}
	}
	return nil
}

// ensureTarball returns the cache path for (name, version), performing at
// most one download-verify-publish per key per process. Waiters share the
// in-flight result.
func (e *Ensurer) ensureTarball(ctx context.Context, name, version, tarballURL, integrity string) (string, error) {
	key := name + "@" + version
	path, err, _ := e.flight.Do(key, func() (any, error) {
		if cached, ok := e.store.Lookup(name, version); ok {
			return cached, nil
		}

		tmp, err := e.downloader.Download(ctx, tarballURL)
		if err != nil {
			return nil, &errs.CacheError{Kind: errs.CacheDownload, Name: name, Version: version, Err: err}
		}
		defer func() { _ = os.Remove(tmp) }()

		if err := verifyFile(tmp, integrity); err != nil {
			return nil, &errs.CacheError{Kind: errs.CacheIntegrity, Name: name, Version: version, Err: err}
		}
		return e.store.Publish(name, version, tmp)
	})
	if err != nil {
		return "", err
	}
	return path.(string), nil
}
