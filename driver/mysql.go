package driver

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// NewMySQL opens a pooled MySQL driver over github.com/go-sql-driver/mysql.
func NewMySQL(ctx context.Context, dsn string, pool PoolConfig, logger *zap.Logger) (Driver, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("driver/mysql: open failed: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("driver/mysql: ping failed: %w", err)
	}
	return newSQLDriver(db, pool, logger), nil
}
