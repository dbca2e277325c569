package seed_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchpad-hq/lpcore/dialect"
	_ "github.com/launchpad-hq/lpcore/dialect/sqlite"
	"github.com/launchpad-hq/lpcore/driver"
	"github.com/launchpad-hq/lpcore/seed"
)

func newTestSeedStore(t *testing.T) *seed.SQLStore {
	t.Helper()
	d, err := driver.NewSQLite(context.Background(), "file::memory:?cache=shared", driver.PoolConfig{Max: 1}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	dia, err := dialect.Get(dialect.SQLite)
	require.NoError(t, err)

	store := seed.NewSQLStore(d, dia)
	require.NoError(t, store.EnsureSchema(context.Background()))
	return store
}

func TestSQLStore_InsertAndApplied(t *testing.T) {
	store := newTestSeedStore(t)

	require.NoError(t, store.Insert(seed.AppliedRow{Name: "users", Checksum: "abc", AppliedAt: time.Now()}))
	require.NoError(t, store.Insert(seed.AppliedRow{Name: "roles", Checksum: "def", AppliedAt: time.Now()}))

	rows, err := store.Applied()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	names := []string{rows[0].Name, rows[1].Name}
	assert.Contains(t, names, "users")
	assert.Contains(t, names, "roles")
}

func TestSQLStore_InsertReplacesPriorChecksumForSameName(t *testing.T) {
	store := newTestSeedStore(t)

	require.NoError(t, store.Insert(seed.AppliedRow{Name: "users", Checksum: "abc", AppliedAt: time.Now()}))
	require.NoError(t, store.Insert(seed.AppliedRow{Name: "users", Checksum: "xyz", AppliedAt: time.Now()}))

	rows, err := store.Applied()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "xyz", rows[0].Checksum)
}
