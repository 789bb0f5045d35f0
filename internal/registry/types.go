package registry

import (
	"encoding/json"
	"path"
)

// Metadata is the npm registry document for one package name.
type Metadata struct {
	Name     string                     `json:"name"`
	DistTags map[string]string          `json:"dist-tags"`
	Versions map[string]VersionMetadata `json:"versions"`
}

// VersionMetadata is the per-version record inside a registry document.
type VersionMetadata struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	Dependencies         map[string]string `json:"dependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
	PeerDependencies     map[string]string `json:"peerDependencies"`
	Bin                  BinField          `json:"bin"`
	OS                   []string          `json:"os"`
	CPU                  []string          `json:"cpu"`
	Dist                 Dist              `json:"dist"`
}

// Dist carries the tarball location and integrity digest.
type Dist struct {
	Tarball   string `json:"tarball"`
	Shasum    string `json:"shasum"`
	Integrity string `json:"integrity"`
}

// Integrity returns the subresource integrity string for the version,
// falling back to the legacy shasum when the registry omits one.
func (v VersionMetadata) Integrity() string {
	if v.Dist.Integrity != "" {
		return v.Dist.Integrity
	}
	if v.Dist.Shasum != "" {
		return "sha1-" + v.Dist.Shasum
	}
	return ""
}

// BinField is the "bin" manifest entry, which registries serve either as
// a map of binary name to relative path or as a bare path string. The
// string form names the binary after the unscoped package name.
type BinField map[string]string

func (b *BinField) UnmarshalJSON(data []byte) error {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err == nil {
		*b = m
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Unusable bin shapes are ignored rather than failing the
		// whole metadata document.
		*b = nil
		return nil
	}
	*b = BinField{"": s}
	return nil
}

// Resolve expands the single-string form against the package name.
func (b BinField) Resolve(pkgName string) map[string]string {
	if len(b) == 0 {
		return nil
	}
	out := make(map[string]string, len(b))
	for name, rel := range b {
		if name == "" {
			name = path.Base(pkgName)
		}
		out[name] = rel
	}
	return out
}

// SearchResult is one row of the registry's /-/v1/search response.
type SearchResult struct {
	Name        string
	Version     string
	Description string
}

type searchResponse struct {
	Objects []struct {
		Package struct {
			Name        string `json:"name"`
			Version     string `json:"version"`
			Description string `json:"description"`
		} `json:"package"`
	} `json:"objects"`
}
