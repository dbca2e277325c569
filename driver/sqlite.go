package driver

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// NewSQLite opens a pooled SQLite driver over modernc.org/sqlite (pure Go,
// no cgo). SQLite has no real connection concurrency, so pool.Max is
// typically left at 1 by callers that write, larger for read-only use.
func NewSQLite(ctx context.Context, dsn string, pool PoolConfig, logger *zap.Logger) (Driver, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("driver/sqlite: open failed: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("driver/sqlite: ping failed: %w", err)
	}
	return newSQLDriver(db, pool, logger), nil
}
