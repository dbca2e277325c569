package migrate_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchpad-hq/lpcore/dialect"
	_ "github.com/launchpad-hq/lpcore/dialect/sqlite"
	"github.com/launchpad-hq/lpcore/driver"
	"github.com/launchpad-hq/lpcore/migrate"
)

func newTestSQLStore(t *testing.T) *migrate.SQLStore {
	t.Helper()
	d, err := driver.NewSQLite(context.Background(), "file::memory:?cache=shared", driver.PoolConfig{Max: 1}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	dia, err := dialect.Get(dialect.SQLite)
	require.NoError(t, err)

	store := migrate.NewSQLStore(d, dia)
	require.NoError(t, store.EnsureSchema(context.Background()))
	return store
}

func TestSQLStore_InsertAndApplied(t *testing.T) {
	store := newTestSQLStore(t)

	err := store.Insert(migrate.HistoryRow{
		Version:   1,
		Name:      "create_widgets",
		Scope:     migrate.ScopeCore,
		Checksum:  "abc123",
		UpSQL:     []string{"CREATE TABLE widgets (id INTEGER PRIMARY KEY)"},
		DownSQL:   []string{"DROP TABLE widgets"},
		AppliedAt: time.Now(),
	})
	require.NoError(t, err)

	rows, err := store.Applied(migrate.ScopeCore, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].Version)
	assert.Equal(t, "create_widgets", rows[0].Name)
	assert.Equal(t, []string{"CREATE TABLE widgets (id INTEGER PRIMARY KEY)"}, rows[0].UpSQL)
}

func TestSQLStore_Remove(t *testing.T) {
	store := newTestSQLStore(t)
	require.NoError(t, store.Insert(migrate.HistoryRow{Version: 1, Name: "a", Scope: migrate.ScopeCore, Checksum: "x"}))

	require.NoError(t, store.Remove(migrate.ScopeCore, "", 1))

	rows, err := store.Applied(migrate.ScopeCore, "")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSQLStore_ScopesAreIsolated(t *testing.T) {
	store := newTestSQLStore(t)
	require.NoError(t, store.Insert(migrate.HistoryRow{Version: 1, Name: "a", Scope: migrate.ScopeCore, Checksum: "x"}))
	require.NoError(t, store.Insert(migrate.HistoryRow{Version: 1, Name: "b", Scope: migrate.ScopeTemplate, TemplateKey: "tenant_a", Checksum: "y"}))

	coreRows, err := store.Applied(migrate.ScopeCore, "")
	require.NoError(t, err)
	require.Len(t, coreRows, 1)

	templateRows, err := store.Applied(migrate.ScopeTemplate, "tenant_a")
	require.NoError(t, err)
	require.Len(t, templateRows, 1)
	assert.Equal(t, "b", templateRows[0].Name)
}
