package project

import (
	"os"
	"path/filepath"

	"github.com/go-viper/encoding/ini"
	"github.com/spf13/viper"
)

// npmrcFile is the per-project and per-user registry configuration file.
const npmrcFile = ".npmrc"

// ResolveRegistry discovers the registry base URL for a project, in order:
// project .npmrc, user-home .npmrc, manifest publishConfig.registry. An
// empty return means no override; the caller falls back to the default.
func ResolveRegistry(projectDir string, manifest *Manifest) string {
	if url := registryFromNpmrc(filepath.Join(projectDir, npmrcFile)); url != "" {
		return url
	}
	if home, err := os.UserHomeDir(); err == nil {
		if url := registryFromNpmrc(filepath.Join(home, npmrcFile)); url != "" {
			return url
		}
	}
	if manifest != nil && manifest.RegistryURL != "" {
		return manifest.RegistryURL
	}
	return ""
}

// registryFromNpmrc reads the "registry = <url>" line of an npmrc file.
// npmrc is INI-shaped; viper with the ini codec handles comments, quoting
// and whitespace variants.
func registryFromNpmrc(path string) string {
	if _, err := os.Stat(path); err != nil {
		return ""
	}

	codecs := viper.NewCodecRegistry()
	if err := codecs.RegisterCodec("ini", ini.Codec{}); err != nil {
		return ""
	}
	v := viper.NewWithOptions(viper.WithCodecRegistry(codecs))
	v.SetConfigFile(path)
	v.SetConfigType("ini")
	if err := v.ReadInConfig(); err != nil {
		return ""
	}
	if url := v.GetString("registry"); url != "" {
		return url
	}
	// Sectionless keys land in the default section.
	return v.GetString("default.registry")
}
