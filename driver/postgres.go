package driver

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// NewPostgres opens a pooled Postgres driver over github.com/lib/pq.
func NewPostgres(ctx context.Context, dsn string, pool PoolConfig, logger *zap.Logger) (Driver, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("driver/postgres: open failed: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("driver/postgres: ping failed: %w", err)
	}
	return newSQLDriver(db, pool, logger), nil
}
