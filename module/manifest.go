package module

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
)

// manifestFile is the on-disk lp.module.toml document.
type manifestFile struct {
	Name            string   `toml:"name"`
	DisplayName     string   `toml:"display_name"`
	Description     string   `toml:"description"`
	Version         string   `toml:"version"`
	Dependencies    []string `toml:"dependencies"`
	MigrationPrefix string   `toml:"migration_prefix"`
}

// ParseManifestFile opens path and parses it as an lp.module.toml manifest.
func ParseManifestFile(path string) (Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return Definition{}, fmt.Errorf("module: open manifest %q: %w", path, err)
	}
	defer f.Close()
	return ParseManifest(f)
}

// ParseManifest reads an lp.module.toml document from r.
func ParseManifest(r io.Reader) (Definition, error) {
	var mf manifestFile
	if _, err := toml.NewDecoder(r).Decode(&mf); err != nil {
		return Definition{}, fmt.Errorf("module: decode manifest: %w", err)
	}

	def := Definition{
		Name:            mf.Name,
		DisplayName:     mf.DisplayName,
		Description:     mf.Description,
		Version:         mf.Version,
		Dependencies:    mf.Dependencies,
		MigrationPrefix: mf.MigrationPrefix,
	}
	if err := validate(def); err != nil {
		return Definition{}, err
	}
	return def, nil
}
