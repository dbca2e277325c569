package migrate_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchpad-hq/lpcore/migrate"
)

func TestParseFileName(t *testing.T) {
	v, name, err := migrate.ParseFileName("20240101120000__create_users.sql")
	require.NoError(t, err)
	assert.Equal(t, int64(20240101120000), v)
	assert.Equal(t, "create_users", name)
}

func TestParseFileName_RejectsBadGrammar(t *testing.T) {
	_, _, err := migrate.ParseFileName("CreateUsers.sql")
	assert.Error(t, err)

	_, _, err = migrate.ParseFileName("1__Bad-Name.sql")
	assert.Error(t, err)
}

func TestParseFile_UpAndDownSections(t *testing.T) {
	content := "-- up\nCREATE TABLE users (id int);\n-- down\nDROP TABLE users;\n"
	f, err := migrate.ParseFile("1__create_users.sql", content)
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.Version)
	assert.Equal(t, "create_users", f.Name)
	assert.Equal(t, []string{"CREATE TABLE users (id int)"}, f.Up)
	assert.Equal(t, []string{"DROP TABLE users"}, f.Down)
}

func TestParseFile_UpOnly(t *testing.T) {
	content := "-- UP\nALTER TABLE users ADD COLUMN email text;\n"
	f, err := migrate.ParseFile("2__add_email.sql", content)
	require.NoError(t, err)
	assert.Equal(t, []string{"ALTER TABLE users ADD COLUMN email text"}, f.Up)
	assert.Empty(t, f.Down)
}

func TestParseFile_MissingUpMarkerFails(t *testing.T) {
	_, err := migrate.ParseFile("1__no_marker.sql", "CREATE TABLE users (id int);")
	assert.Error(t, err)
}

func TestChecksum_ChangesWithWhitespace(t *testing.T) {
	f1 := mustParse(t, "1__t.sql", "-- up\nSELECT 1;\n")
	f2 := mustParse(t, "1__t.sql", "-- up\nSELECT  1;\n")
	assert.NotEqual(t, f1.Checksum(), f2.Checksum())
}

func TestChecksum_StableForIdenticalContent(t *testing.T) {
	f1 := mustParse(t, "1__t.sql", "-- up\nSELECT 1;\n")
	f2 := mustParse(t, "1__t.sql", "-- up\nSELECT 1;\n")
	assert.Equal(t, f1.Checksum(), f2.Checksum())
}

func mustParse(t *testing.T, name, content string) *migrate.File {
	t.Helper()
	f, err := migrate.ParseFile(name, content)
	require.NoError(t, err)
	return f
}

func TestLoadDir_ParsesAndSortsByVersion(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2__add_name.sql"), []byte("-- up\nSELECT 2;\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1__create_widgets.sql"), []byte("-- up\nSELECT 1;\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("not a migration"), 0o644))

	files, err := migrate.LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, int64(1), files[0].Version)
	assert.Equal(t, int64(2), files[1].Version)
}

func TestLoadDir_MissingDirectoryReturnsError(t *testing.T) {
	_, err := migrate.LoadDir("/no/such/dir")
	assert.Error(t, err)
}
