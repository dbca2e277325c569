package branch_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchpad-hq/lpcore/branch"
	"github.com/launchpad-hq/lpcore/dialect"
	_ "github.com/launchpad-hq/lpcore/dialect/sqlite"
	"github.com/launchpad-hq/lpcore/driver"
)

func newTestBranchStore(t *testing.T) *branch.SQLStore {
	t.Helper()
	d, err := driver.NewSQLite(context.Background(), "file::memory:?cache=shared", driver.PoolConfig{Max: 1}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	dia, err := dialect.Get(dialect.SQLite)
	require.NoError(t, err)

	store := branch.NewSQLStore(d, dia)
	require.NoError(t, store.EnsureSchema(context.Background()))
	return store
}

func sampleBranch() branch.Branch {
	now := time.Now()
	return branch.Branch{
		ID: "b1", Slug: "feature-x", Name: "feature-x", Namespace: "br_feature_x",
		Status: branch.StatusActive, CreatedAt: now, LastAccessedAt: now,
	}
}

func TestSQLStore_UpsertInsertsThenGetBySlug(t *testing.T) {
	store := newTestBranchStore(t)
	require.NoError(t, store.Upsert(sampleBranch()))

	b, err := store.GetBySlug("feature-x")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "b1", b.ID)
	assert.Equal(t, branch.StatusActive, b.Status)
}

func TestSQLStore_UpsertUpdatesExistingRow(t *testing.T) {
	store := newTestBranchStore(t)
	b := sampleBranch()
	require.NoError(t, store.Upsert(b))

	b.Status = branch.StatusStale
	b.TableCount = 5
	require.NoError(t, store.Upsert(b))

	got, err := store.Get("b1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, branch.StatusStale, got.Status)
	assert.Equal(t, 5, got.TableCount)
}

func TestSQLStore_ListAndDelete(t *testing.T) {
	store := newTestBranchStore(t)
	require.NoError(t, store.Upsert(sampleBranch()))

	all, err := store.List()
	require.NoError(t, err)
	require.Len(t, all, 1)

	require.NoError(t, store.Delete("b1"))
	all, err = store.List()
	require.NoError(t, err)
	assert.Empty(t, all)
}
