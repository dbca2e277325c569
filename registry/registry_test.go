package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchpad-hq/lpcore/dialect"
	_ "github.com/launchpad-hq/lpcore/dialect/sqlite"
	"github.com/launchpad-hq/lpcore/driver"
	"github.com/launchpad-hq/lpcore/registry"
	"github.com/launchpad-hq/lpcore/schema"
)

// memStore is an in-memory registry.Store used only by these tests.
type memStore struct {
	rows map[string]registry.Row
}

func newMemStore() *memStore { return &memStore{rows: map[string]registry.Row{}} }

func memKey(appID, schemaName string) string { return appID + "|" + schemaName }

func (s *memStore) Get(ctx context.Context, appID, schemaName string) (*registry.Row, error) {
	row, ok := s.rows[memKey(appID, schemaName)]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (s *memStore) Upsert(ctx context.Context, row registry.Row) error {
	s.rows[memKey(row.AppID, row.SchemaName)] = row
	return nil
}

func newTestRegistry(t *testing.T) (*registry.Registry, driver.Driver) {
	t.Helper()
	d, err := driver.NewSQLite(context.Background(), "file::memory:?cache=shared", driver.PoolConfig{Max: 1}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	dia, err := dialect.Get(dialect.SQLite)
	require.NoError(t, err)

	return registry.New(newMemStore(), d, dia, nil), d
}

func widgetsSchema() *schema.Definition {
	return &schema.Definition{
		Tables: []schema.Table{
			{
				Name: "widgets",
				Columns: []schema.Column{
					{Name: "id", Type: schema.TypeUUID, PrimaryKey: true},
					{Name: "name", Type: schema.TypeString, Nullable: true, Length: 255},
				},
			},
		},
	}
}

func TestRegister_CreatesTableOnFirstRegistration(t *testing.T) {
	reg, d := newTestRegistry(t)
	ctx := context.Background()

	res, err := reg.Register(ctx, "app1", "public", widgetsSchema())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Version)
	assert.NotEmpty(t, res.Changes)

	_, err = d.Query(ctx, "SELECT id, name FROM widgets", nil)
	assert.NoError(t, err)
}

func TestRegister_IdenticalReregistrationIsNoOp(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Register(ctx, "app1", "public", widgetsSchema())
	require.NoError(t, err)

	res, err := reg.Register(ctx, "app1", "public", widgetsSchema())
	require.NoError(t, err)
	assert.Empty(t, res.Changes)
	assert.Zero(t, res.Version)
}

func TestRegister_AddingColumnBumpsVersionAndAltersTable(t *testing.T) {
	reg, d := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Register(ctx, "app1", "public", widgetsSchema())
	require.NoError(t, err)

	next := widgetsSchema()
	next.Tables[0].Columns = append(next.Tables[0].Columns, schema.Column{Name: "sku", Type: schema.TypeString, Nullable: true})

	res, err := reg.Register(ctx, "app1", "public", next)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Version)

	_, err = d.Query(ctx, "SELECT sku FROM widgets", nil)
	assert.NoError(t, err)
}

func TestRegister_RejectsTableWithoutIDPrimaryKey(t *testing.T) {
	reg, _ := newTestRegistry(t)
	def := &schema.Definition{
		Tables: []schema.Table{
			{
				Name: "widgets",
				Columns: []schema.Column{
					{Name: "code", Type: schema.TypeString, PrimaryKey: true},
				},
			},
		},
	}

	_, err := reg.Register(context.Background(), "app1", "public", def)
	assert.Error(t, err)
}

func TestRegister_RejectsUnflaggedTenantColumn(t *testing.T) {
	reg, _ := newTestRegistry(t)
	def := &schema.Definition{
		Tables: []schema.Table{
			{
				Name: "widgets",
				Columns: []schema.Column{
					{Name: "id", Type: schema.TypeUUID, PrimaryKey: true},
					{Name: "app_id", Type: schema.TypeUUID},
				},
			},
		},
	}

	_, err := reg.Register(context.Background(), "app1", "public", def)
	assert.Error(t, err)
}

func TestRegister_AcceptsFlaggedTenantColumn(t *testing.T) {
	reg, _ := newTestRegistry(t)
	def := &schema.Definition{
		Tables: []schema.Table{
			{
				Name: "widgets",
				Columns: []schema.Column{
					{Name: "id", Type: schema.TypeUUID, PrimaryKey: true},
					{Name: "app_id", Type: schema.TypeUUID, Tenant: true},
				},
			},
		},
	}

	res, err := reg.Register(context.Background(), "app1", "public", def)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Version)
}
