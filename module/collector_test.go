package module_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchpad-hq/lpcore/module"
)

func writeModule(t *testing.T, root, name, manifest string, migrations map[string]string) {
	t.Helper()
	dir := filepath.Join(root, name)
	migDir := filepath.Join(dir, "migrations")
	require.NoError(t, os.MkdirAll(migDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lp.module.toml"), []byte(manifest), 0o644))
	for fname, content := range migrations {
		require.NoError(t, os.WriteFile(filepath.Join(migDir, fname), []byte(content), 0o644))
	}
}

func TestDiscover_FindsModulesWithManifests(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "billing", `
name = "billing"
version = "1.0.0"
migration_prefix = "b"
`, map[string]string{"1__create_invoices.sql": "-- up\nCREATE TABLE invoices (id INTEGER PRIMARY KEY);\n"})

	// A plain directory with no manifest must be ignored.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "scratch"), 0o755))

	sources, err := module.Discover(root)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "billing", sources[0].ModuleName)
}

func TestCollect_OrdersByPrefixThenVersionThenModuleName(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "billing", `
name = "billing"
version = "1.0.0"
migration_prefix = "a"
`, map[string]string{
		"2__add_total.sql":       "-- up\nALTER TABLE invoices ADD COLUMN total INTEGER;\n",
		"1__create_invoices.sql": "-- up\nCREATE TABLE invoices (id INTEGER PRIMARY KEY);\n",
	})
	writeModule(t, root, "accounts", `
name = "accounts"
version = "1.0.0"
migration_prefix = "b"
`, map[string]string{
		"1__create_users.sql": "-- up\nCREATE TABLE users (id INTEGER PRIMARY KEY);\n",
	})

	sources, err := module.Discover(root)
	require.NoError(t, err)

	defs := map[string]module.Definition{
		"billing":  {Name: "billing", MigrationPrefix: "a"},
		"accounts": {Name: "accounts", MigrationPrefix: "b"},
	}

	stamped, err := module.Collect(sources, defs)
	require.NoError(t, err)
	require.Len(t, stamped, 3)

	assert.Equal(t, "billing", stamped[0].ModuleName)
	assert.Equal(t, int64(1), stamped[0].Version)
	assert.Equal(t, "billing", stamped[1].ModuleName)
	assert.Equal(t, int64(2), stamped[1].Version)
	assert.Equal(t, "accounts", stamped[2].ModuleName)
}

func TestCollect_RejectsUnregisteredModule(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "billing", `
name = "billing"
version = "1.0.0"
migration_prefix = "a"
`, map[string]string{"1__create_invoices.sql": "-- up\nCREATE TABLE invoices (id INTEGER PRIMARY KEY);\n"})

	sources, err := module.Discover(root)
	require.NoError(t, err)

	_, err = module.Collect(sources, map[string]module.Definition{})
	assert.Error(t, err)
}
