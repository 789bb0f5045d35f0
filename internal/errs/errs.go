// Package errs defines the closed error taxonomy shared by all pacm subsystems.
//
// Every fatal error surfaced to the user maps to exactly one category tag
// (PACM_*); subcommand entry points print the tag plus the human-readable
// message and exit non-zero. Warnings reuse the same tags with a distinct
// log level and never halt the operation.
package errs

import (
	"errors"
	"fmt"
)

// Category tags emitted on the user-visible error line.
const (
	TagArgument    = "PACM_ARGUMENT_ERROR"
	TagMetadata    = "PACM_FETCH_METADATA_ERROR"
	TagResolve     = "PACM_RESOLVE_ERROR"
	TagDownload    = "PACM_DOWNLOAD_ERROR"
	TagIntegrity   = "PACM_INTEGRITY_ERROR"
	TagExtract     = "PACM_EXTRACT_ERROR"
	TagCacheIO     = "PACM_CACHE_IO_ERROR"
	TagFilesystem  = "PACM_FS_ERROR"
	TagPostInstall = "PACM_POSTINSTALL_ERROR"
)

// Tagged is implemented by every error in the taxonomy.
type Tagged interface {
	error
	Tag() string
}

// Tag returns the category tag for err, walking the wrap chain.
// Errors outside the taxonomy report TagFilesystem, the catch-all
// for unexpected I/O failures.
func Tag(err error) string {
	var tagged Tagged
	if errors.As(err, &tagged) {
		return tagged.Tag()
	}
	return TagFilesystem
}

// ArgumentError reports a malformed CLI argument or package spec.
type ArgumentError struct {
	Arg    string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Arg, e.Reason)
}

func (e *ArgumentError) Tag() string { return TagArgument }

// RegistryKind classifies metadata fetch failures.
type RegistryKind string

const (
	RegistryNotFound  RegistryKind = "not found"
	RegistryTransport RegistryKind = "transport"
	RegistryParse     RegistryKind = "parse"
)

// RegistryError reports a failed metadata fetch for a package name.
type RegistryError struct {
	Kind RegistryKind
	Name string
	Err  error
}

func (e *RegistryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("registry %s for %s: %v", e.Kind, e.Name, e.Err)
	}
	return fmt.Sprintf("registry %s for %s", e.Kind, e.Name)
}

func (e *RegistryError) Unwrap() error { return e.Err }
func (e *RegistryError) Tag() string   { return TagMetadata }

// ResolutionKind classifies version resolution failures.
type ResolutionKind string

const (
	NoMatchingVersion    ResolutionKind = "no matching version"
	NoSuchTag            ResolutionKind = "no such dist-tag"
	PlatformIncompatible ResolutionKind = "platform incompatible"
)

// ResolutionError reports that a spec could not be resolved to a concrete
// version. Fatal on required branches, demoted to a warning on optional ones.
type ResolutionError struct {
	Kind  ResolutionKind
	Name  string
	Range string
}

func (e *ResolutionError) Error() string {
	if e.Range != "" {
		return fmt.Sprintf("%s for %s@%s", e.Kind, e.Name, e.Range)
	}
	return fmt.Sprintf("%s for %s", e.Kind, e.Name)
}

func (e *ResolutionError) Tag() string { return TagResolve }

// CacheKind classifies tarball cache and materialization failures.
type CacheKind string

const (
	CacheDownload  CacheKind = "download"
	CacheIntegrity CacheKind = "integrity"
	CacheExtract   CacheKind = "extract"
	CacheIO        CacheKind = "io"
)

// CacheError reports a failure while downloading, verifying, storing or
// extracting a package tarball.
type CacheError struct {
	Kind    CacheKind
	Name    string
	Version string
	Err     error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s for %s@%s: %v", e.Kind, e.Name, e.Version, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }

func (e *CacheError) Tag() string {
	switch e.Kind {
	case CacheDownload:
		return TagDownload
	case CacheIntegrity:
		return TagIntegrity
	case CacheExtract:
		return TagExtract
	default:
		return TagCacheIO
	}
}

// FilesystemError reports a fatal filesystem operation outside the cache.
type FilesystemError struct {
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("filesystem error at %s: %v", e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }
func (e *FilesystemError) Tag() string   { return TagFilesystem }

// PostInstallError reports a failed postinstall script. Non-fatal by default.
type PostInstallError struct {
	Name string
	Err  error
}

func (e *PostInstallError) Error() string {
	return fmt.Sprintf("postinstall script failed for %s: %v", e.Name, e.Err)
}

func (e *PostInstallError) Unwrap() error { return e.Err }
func (e *PostInstallError) Tag() string   { return TagPostInstall }
