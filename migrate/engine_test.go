package migrate_test

import (
	"context"
	"sort"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchpad-hq/lpcore/dialect"
	_ "github.com/launchpad-hq/lpcore/dialect/sqlite"
	"github.com/launchpad-hq/lpcore/driver"
	"github.com/launchpad-hq/lpcore/migrate"
)

// memStore is an in-memory migrate.Store used only by these tests.
type memStore struct {
	rows map[string]migrate.HistoryRow
}

func newMemStore() *memStore { return &memStore{rows: map[string]migrate.HistoryRow{}} }

func key(scope migrate.Scope, templateKey string, version int64) string {
	return string(scope) + "|" + templateKey + "|" + strconv.FormatInt(version, 10)
}

func (s *memStore) Applied(scope migrate.Scope, templateKey string) ([]migrate.HistoryRow, error) {
	var out []migrate.HistoryRow
	for _, row := range s.rows {
		if row.Scope == scope && row.TemplateKey == templateKey {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func (s *memStore) Insert(row migrate.HistoryRow) error {
	s.rows[key(row.Scope, row.TemplateKey, row.Version)] = row
	return nil
}

func (s *memStore) Remove(scope migrate.Scope, templateKey string, version int64) error {
	delete(s.rows, key(scope, templateKey, version))
	return nil
}

func newTestEngine(t *testing.T) (*migrate.Engine, driver.Driver) {
	t.Helper()
	d, err := driver.NewSQLite(context.Background(), "file::memory:?cache=shared", driver.PoolConfig{Max: 1}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	dia, err := dialect.Get(dialect.SQLite)
	require.NoError(t, err)

	return migrate.New(d, dia, newMemStore(), nil), d
}

func TestEngine_UpAppliesPendingMigrationsInOrder(t *testing.T) {
	engine, d := newTestEngine(t)
	ctx := context.Background()

	files := []*migrate.File{
		mustParse(t, "1__create_widgets.sql", "-- up\nCREATE TABLE widgets (id INTEGER PRIMARY KEY);\n-- down\nDROP TABLE widgets;\n"),
		mustParse(t, "2__add_name.sql", "-- up\nALTER TABLE widgets ADD COLUMN name TEXT;\n-- down\nALTER TABLE widgets DROP COLUMN name;\n"),
	}

	results, err := engine.Up(ctx, files, migrate.Options{Scope: migrate.ScopeCore})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.True(t, results[1].Success)

	res, err := d.Query(ctx, "SELECT name FROM widgets", nil)
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
}

func TestEngine_UpIsIdempotentOnceApplied(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	files := []*migrate.File{
		mustParse(t, "1__create_widgets.sql", "-- up\nCREATE TABLE widgets (id INTEGER PRIMARY KEY);\n"),
	}

	_, err := engine.Up(ctx, files, migrate.Options{Scope: migrate.ScopeCore})
	require.NoError(t, err)

	results, err := engine.Up(ctx, files, migrate.Options{Scope: migrate.ScopeCore})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEngine_DownRequiresStoredDownSQL(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	files := []*migrate.File{
		mustParse(t, "1__create_widgets.sql", "-- up\nCREATE TABLE widgets (id INTEGER PRIMARY KEY);\n"),
	}
	_, err := engine.Up(ctx, files, migrate.Options{Scope: migrate.ScopeCore})
	require.NoError(t, err)

	results, err := engine.Down(ctx, migrate.Options{Scope: migrate.ScopeCore})
	require.Error(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
}

func TestEngine_DryRunExecutesNothing(t *testing.T) {
	engine, d := newTestEngine(t)
	ctx := context.Background()
	files := []*migrate.File{
		mustParse(t, "1__create_widgets.sql", "-- up\nCREATE TABLE widgets (id INTEGER PRIMARY KEY);\n"),
	}

	results, err := engine.Up(ctx, files, migrate.Options{Scope: migrate.ScopeCore, DryRun: true})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Zero(t, results[0].Duration)

	_, err = d.Query(ctx, "SELECT * FROM widgets", nil)
	assert.Error(t, err) // table was never actually created
}

func TestEngine_VerifyDetectsChecksumMismatch(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	original := mustParse(t, "1__create_widgets.sql", "-- up\nCREATE TABLE widgets (id INTEGER PRIMARY KEY);\n")

	_, err := engine.Up(ctx, []*migrate.File{original}, migrate.Options{Scope: migrate.ScopeCore})
	require.NoError(t, err)

	changed := mustParse(t, "1__create_widgets.sql", "-- up\nCREATE TABLE widgets (id INTEGER PRIMARY KEY, extra TEXT);\n")
	issues, err := engine.Verify(migrate.Options{Scope: migrate.ScopeCore}, []*migrate.File{changed})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "checksum_mismatch", issues[0].Kind)
}

func TestEngine_VerifyDetectsMissingFile(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	original := mustParse(t, "1__create_widgets.sql", "-- up\nCREATE TABLE widgets (id INTEGER PRIMARY KEY);\n")
	_, err := engine.Up(ctx, []*migrate.File{original}, migrate.Options{Scope: migrate.ScopeCore})
	require.NoError(t, err)

	issues, err := engine.Verify(migrate.Options{Scope: migrate.ScopeCore}, nil)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "file_missing", issues[0].Kind)
}

func TestEngine_RejectsInvalidTemplateKey(t *testing.T) {
	engine, _ := newTestEngine(t)
	_, err := engine.Up(context.Background(), nil, migrate.Options{Scope: migrate.ScopeTemplate, TemplateKey: "../../etc"})
	assert.Error(t, err)
}

func TestEngine_StatusReportsCurrentVersionAndHistory(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	files := []*migrate.File{
		mustParse(t, "1__create_widgets.sql", "-- up\nCREATE TABLE widgets (id INTEGER PRIMARY KEY);\n"),
		mustParse(t, "2__add_name.sql", "-- up\nALTER TABLE widgets ADD COLUMN name TEXT;\n"),
	}
	_, err := engine.Up(ctx, files, migrate.Options{Scope: migrate.ScopeCore})
	require.NoError(t, err)

	current, applied, err := engine.Status(migrate.Options{Scope: migrate.ScopeCore})
	require.NoError(t, err)
	assert.Equal(t, int64(2), current)
	require.Len(t, applied, 2)
	assert.Equal(t, int64(1), applied[0].Version)
	assert.Equal(t, int64(2), applied[1].Version)
}
