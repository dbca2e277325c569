package driver_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchpad-hq/lpcore/driver"
)

// These tests run against modernc.org/sqlite in-process; no container or
// -short skip is needed since SQLite requires no external server.

func newTestSQLiteDriver(t *testing.T) driver.Driver {
	t.Helper()
	d, err := driver.NewSQLite(context.Background(), "file::memory:?cache=shared", driver.PoolConfig{Max: 1, IdleTimeout: time.Minute}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestSQLiteDriver_ExecuteAndQuery(t *testing.T) {
	d := newTestSQLiteDriver(t)
	ctx := context.Background()

	_, err := d.Execute(ctx, "CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT)", nil)
	require.NoError(t, err)

	_, err = d.Execute(ctx, "INSERT INTO widgets (id, name) VALUES (?, ?)", []any{1, "gear"})
	require.NoError(t, err)

	res, err := d.Query(ctx, "SELECT id, name FROM widgets WHERE id = ?", []any{1})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "gear", res.Rows[0]["name"])
}

func TestSQLiteDriver_TransactionRollsBackOnError(t *testing.T) {
	d := newTestSQLiteDriver(t)
	ctx := context.Background()

	_, err := d.Execute(ctx, "CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT)", nil)
	require.NoError(t, err)

	err = d.Transaction(ctx, func(ctx context.Context, c driver.Client) error {
		if _, err := c.Execute(ctx, "INSERT INTO widgets (id, name) VALUES (?, ?)", []any{2, "bolt"}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err)

	res, err := d.Query(ctx, "SELECT id FROM widgets WHERE id = ?", []any{2})
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
}

func TestSQLiteDriver_HealthCheck(t *testing.T) {
	d := newTestSQLiteDriver(t)
	status := d.HealthCheck(context.Background())
	assert.True(t, status.Healthy)
	assert.True(t, d.IsHealthy())
}

func TestSQLiteDriver_DrainAndCloseWithNoActiveQueries(t *testing.T) {
	d, err := driver.NewSQLite(context.Background(), "file::memory:?cache=shared", driver.PoolConfig{Max: 1}, nil)
	require.NoError(t, err)

	result, err := d.DrainAndClose(context.Background(), driver.DrainOptions{Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Completed)
	assert.True(t, d.IsDraining())
}
