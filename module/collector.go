package module

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/launchpad-hq/lpcore/migrate"
)

// Source is one module's migration directory as discovered on disk.
type Source struct {
	ModuleName    string
	MigrationsDir string
}

// StampedFile pairs a parsed migration file with the module that owns it.
type StampedFile struct {
	*migrate.File
	ModuleName      string
	MigrationPrefix string
}

const manifestFileName = "lp.module.toml"
const migrationsDirName = "migrations"

// Discover walks root, treating every child directory that contains an
// lp.module.toml manifest as a module, and returns one Source per module
// pointing at its migrations/ subdirectory.
func Discover(root string) ([]Source, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("module: reading %q: %w", root, err)
	}

	var sources []Source
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		moduleDir := filepath.Join(root, entry.Name())
		manifestPath := filepath.Join(moduleDir, manifestFileName)
		if _, err := os.Stat(manifestPath); err != nil {
			continue
		}
		def, err := ParseManifestFile(manifestPath)
		if err != nil {
			return nil, err
		}
		sources = append(sources, Source{
			ModuleName:    def.Name,
			MigrationsDir: filepath.Join(moduleDir, migrationsDirName),
		})
	}
	return sources, nil
}

// Collect loads every migration file for each source through the shared
// file grammar, stamps it with its owning module, and returns the globally
// ordered sequence: by MigrationPrefix, then Version, then ModuleName.
func Collect(sources []Source, defs map[string]Definition) ([]StampedFile, error) {
	var out []StampedFile
	for _, src := range sources {
		def, ok := defs[src.ModuleName]
		if !ok {
			return nil, fmt.Errorf("module: no registered definition for module %q", src.ModuleName)
		}

		entries, err := os.ReadDir(src.MigrationsDir)
		if err != nil {
			return nil, fmt.Errorf("module: reading migrations for %q: %w", src.ModuleName, err)
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			content, err := os.ReadFile(filepath.Join(src.MigrationsDir, entry.Name()))
			if err != nil {
				return nil, fmt.Errorf("module: reading %q: %w", entry.Name(), err)
			}
			f, err := migrate.ParseFile(entry.Name(), string(content))
			if err != nil {
				return nil, fmt.Errorf("module: parsing %q for module %q: %w", entry.Name(), src.ModuleName, err)
			}
			out = append(out, StampedFile{File: f, ModuleName: src.ModuleName, MigrationPrefix: def.MigrationPrefix})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].MigrationPrefix != out[j].MigrationPrefix {
			return out[i].MigrationPrefix < out[j].MigrationPrefix
		}
		if out[i].Version != out[j].Version {
			return out[i].Version < out[j].Version
		}
		return out[i].ModuleName < out[j].ModuleName
	})
	return out, nil
}
