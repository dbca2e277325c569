package branch_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/launchpad-hq/lpcore/branch"
	"github.com/launchpad-hq/lpcore/dialect"
	_ "github.com/launchpad-hq/lpcore/dialect/postgres"
	"github.com/launchpad-hq/lpcore/driver"
	"github.com/launchpad-hq/lpcore/introspect"
	_ "github.com/launchpad-hq/lpcore/introspect/postgres"
)

// memStore is an in-memory branch.Store used only by these tests.
type memStore struct {
	rows    map[string]branch.Branch
	upserts []branch.Branch
}

func newMemStore() *memStore { return &memStore{rows: map[string]branch.Branch{}} }

func (s *memStore) Get(id string) (*branch.Branch, error) {
	for _, b := range s.rows {
		if b.ID == id {
			return &b, nil
		}
	}
	return nil, nil
}

func (s *memStore) GetBySlug(slug string) (*branch.Branch, error) {
	if b, ok := s.rows[slug]; ok {
		return &b, nil
	}
	return nil, nil
}

func (s *memStore) List() ([]branch.Branch, error) {
	out := make([]branch.Branch, 0, len(s.rows))
	for _, b := range s.rows {
		out = append(out, b)
	}
	return out, nil
}

func (s *memStore) Upsert(b branch.Branch) error {
	s.rows[b.Slug] = b
	s.upserts = append(s.upserts, b)
	return nil
}

func (s *memStore) Delete(id string) error {
	for slug, b := range s.rows {
		if b.ID == id {
			delete(s.rows, slug)
			return nil
		}
	}
	return nil
}

func setupPostgres(t *testing.T) (driver.Driver, dialect.Dialect, introspect.Introspecter) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("lpcore_test"),
		postgres.WithUsername("lpcore"),
		postgres.WithPassword("lpcore"),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	d, err := driver.NewPostgres(ctx, dsn, driver.PoolConfig{Max: 4}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	dia, err := dialect.Get(dialect.Postgres)
	require.NoError(t, err)
	intro, err := introspect.Get(dialect.Postgres)
	require.NoError(t, err)

	return d, dia, intro
}

func TestEngine_CreateClonesStructureAndSwitchUpdatesAccessTime(t *testing.T) {
	d, dia, intro := setupPostgres(t)
	ctx := context.Background()

	_, err := d.Execute(ctx, `CREATE TABLE widgets (id SERIAL PRIMARY KEY, name TEXT, email TEXT)`, nil)
	require.NoError(t, err)

	store := newMemStore()
	engine := branch.New(d, dia, intro, store, nil, branch.Config{BranchPrefix: "br_", MainNamespace: "public"}, nil)

	b, err := engine.Create(ctx, branch.CreateOptions{Name: "Feature X", CopyData: false})
	require.NoError(t, err)
	assert.Equal(t, "feature_x", b.Slug)
	assert.Equal(t, "br_feature_x", b.Namespace)

	res, err := d.Query(ctx, `SELECT table_name FROM information_schema.tables WHERE table_schema = $1`, []any{b.Namespace})
	require.NoError(t, err)
	assert.Len(t, res.Rows, 1)

	sw, err := engine.Switch(ctx, b.Slug)
	require.NoError(t, err)
	assert.Equal(t, "br_feature_x, public", sw.SearchPath)

	stored, err := store.GetBySlug(b.Slug)
	require.NoError(t, err)
	assert.True(t, stored.LastAccessedAt.After(b.CreatedAt) || stored.LastAccessedAt.Equal(b.CreatedAt))
}

func TestEngine_CreateWithPIIMaskingMasksMatchingColumns(t *testing.T) {
	d, dia, intro := setupPostgres(t)
	ctx := context.Background()

	_, err := d.Execute(ctx, `CREATE TABLE users (id SERIAL PRIMARY KEY, email TEXT)`, nil)
	require.NoError(t, err)
	_, err = d.Execute(ctx, `INSERT INTO users (email) VALUES ('alice@real.com')`, nil)
	require.NoError(t, err)

	store := newMemStore()
	engine := branch.New(d, dia, intro, store, nil, branch.Config{BranchPrefix: "br_", MainNamespace: "public"}, nil)

	b, err := engine.Create(ctx, branch.CreateOptions{Name: "Masked", CopyData: true, PIIMasking: true})
	require.NoError(t, err)

	res, err := d.Query(ctx, `SELECT email FROM `+b.Namespace+`.users`, nil)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	email, _ := res.Rows[0]["email"].(string)
	assert.Contains(t, email, "@example.com")
	assert.NotEqual(t, "alice@real.com", email)
}

func TestEngine_DeleteDropsNamespaceAndRemovesMetadata(t *testing.T) {
	d, dia, intro := setupPostgres(t)
	ctx := context.Background()

	store := newMemStore()
	engine := branch.New(d, dia, intro, store, nil, branch.Config{BranchPrefix: "br_", MainNamespace: "public"}, nil)

	b, err := engine.Create(ctx, branch.CreateOptions{Name: "Throwaway"})
	require.NoError(t, err)

	require.NoError(t, engine.Delete(ctx, b.Slug, false))

	stored, err := store.GetBySlug(b.Slug)
	require.NoError(t, err)
	assert.Nil(t, stored)

	res, err := d.Query(ctx, `SELECT schema_name FROM information_schema.schemata WHERE schema_name = $1`, []any{b.Namespace})
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
}

func TestEngine_CleanupDeletesStaleBranchesAndSkipsProtected(t *testing.T) {
	d, dia, intro := setupPostgres(t)
	ctx := context.Background()

	store := newMemStore()
	engine := branch.New(d, dia, intro, store, nil, branch.Config{BranchPrefix: "br_", MainNamespace: "public"}, nil)

	stale, err := engine.Create(ctx, branch.CreateOptions{Name: "Stale"})
	require.NoError(t, err)
	staleRow, _ := store.GetBySlug(stale.Slug)
	staleRow.LastAccessedAt = time.Now().AddDate(0, 0, -30)
	require.NoError(t, store.Upsert(*staleRow))

	protected, err := engine.Create(ctx, branch.CreateOptions{Name: "Protected", Protected: true})
	require.NoError(t, err)
	protectedRow, _ := store.GetBySlug(protected.Slug)
	protectedRow.LastAccessedAt = time.Now().AddDate(0, 0, -30)
	require.NoError(t, store.Upsert(*protectedRow))

	result, err := engine.Cleanup(ctx, branch.CleanupOptions{MaxAgeDays: 7, SkipProtected: true})
	require.NoError(t, err)
	assert.Contains(t, result.Deleted, stale.Slug)
	assert.Contains(t, result.Skipped, protected.Slug)

	skippedRow, err := store.GetBySlug(protected.Slug)
	require.NoError(t, err)
	assert.Equal(t, branch.StatusProtected, skippedRow.Status)
}

func TestEngine_CreateSetsProtectedStatus(t *testing.T) {
	d, dia, intro := setupPostgres(t)
	ctx := context.Background()

	store := newMemStore()
	engine := branch.New(d, dia, intro, store, nil, branch.Config{BranchPrefix: "br_", MainNamespace: "public"}, nil)

	active, err := engine.Create(ctx, branch.CreateOptions{Name: "Active"})
	require.NoError(t, err)
	assert.Equal(t, branch.StatusActive, active.Status)

	protected, err := engine.Create(ctx, branch.CreateOptions{Name: "Protected Two", Protected: true})
	require.NoError(t, err)
	assert.Equal(t, branch.StatusProtected, protected.Status)
}

func TestEngine_CleanupMarksBranchStaleBeforeDeleting(t *testing.T) {
	d, dia, intro := setupPostgres(t)
	ctx := context.Background()

	store := newMemStore()
	engine := branch.New(d, dia, intro, store, nil, branch.Config{BranchPrefix: "br_", MainNamespace: "public"}, nil)

	b, err := engine.Create(ctx, branch.CreateOptions{Name: "Aging"})
	require.NoError(t, err)
	row, _ := store.GetBySlug(b.Slug)
	row.LastAccessedAt = time.Now().AddDate(0, 0, -30)
	require.NoError(t, store.Upsert(*row))

	_, err = engine.Cleanup(ctx, branch.CleanupOptions{MaxAgeDays: 7})
	require.NoError(t, err)

	// the row was persisted as stale before the sweep deleted it.
	markedStale := false
	for _, u := range store.upserts {
		if u.Slug == b.Slug && u.Status == branch.StatusStale {
			markedStale = true
		}
	}
	assert.True(t, markedStale)

	gone, err := store.GetBySlug(b.Slug)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestEngine_SwitchRevivesStaleBranchToActive(t *testing.T) {
	d, dia, intro := setupPostgres(t)
	ctx := context.Background()

	store := newMemStore()
	engine := branch.New(d, dia, intro, store, nil, branch.Config{BranchPrefix: "br_", MainNamespace: "public"}, nil)

	b, err := engine.Create(ctx, branch.CreateOptions{Name: "Revive"})
	require.NoError(t, err)
	row, _ := store.GetBySlug(b.Slug)
	row.Status = branch.StatusStale
	require.NoError(t, store.Upsert(*row))

	_, err = engine.Switch(ctx, b.Slug)
	require.NoError(t, err)

	revived, err := store.GetBySlug(b.Slug)
	require.NoError(t, err)
	assert.Equal(t, branch.StatusActive, revived.Status)
}
