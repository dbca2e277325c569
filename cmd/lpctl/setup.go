package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/launchpad-hq/lpcore/config"
	"github.com/launchpad-hq/lpcore/dialect"
	"github.com/launchpad-hq/lpcore/driver"
	"github.com/launchpad-hq/lpcore/introspect"
	"github.com/launchpad-hq/lpcore/migrate"
)

// env bundles the driver/dialect/introspecter triple every command needs,
// built once per invocation from the persistent --dsn/--dialect flags.
type env struct {
	cfg          *config.Config
	driver       driver.Driver
	dialect      dialect.Dialect
	introspecter introspect.Introspecter
	logger       *zap.Logger
}

func cmdContext() context.Context {
	return context.Background()
}

func dialectName(s string) (dialect.Name, error) {
	switch s {
	case "postgres":
		return dialect.Postgres, nil
	case "mysql":
		return dialect.MySQL, nil
	case "sqlite":
		return dialect.SQLite, nil
	default:
		return "", fmt.Errorf("unsupported dialect %q (want postgres, mysql, or sqlite)", s)
	}
}

func setupEnv(ctx context.Context) (*env, error) {
	if flagDSN == "" {
		return nil, fmt.Errorf("--dsn is required")
	}

	name, err := dialectName(flagDialect)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}

	logger := newLogger()

	dia, err := dialect.Get(name)
	if err != nil {
		return nil, fmt.Errorf("loading dialect %q: %w (missing blank import?)", name, err)
	}

	pool := driver.PoolConfig{Max: cfg.Pool.Max, ConnectTimeout: cfg.Pool.ConnectTimeout, IdleTimeout: cfg.Pool.IdleTimeout}

	var d driver.Driver
	switch name {
	case dialect.Postgres:
		d, err = driver.NewPostgres(ctx, flagDSN, pool, logger)
	case dialect.MySQL:
		d, err = driver.NewMySQL(ctx, flagDSN, pool, logger)
	case dialect.SQLite:
		d, err = driver.NewSQLite(ctx, flagDSN, pool, logger)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", name, err)
	}

	insp, err := introspect.Get(name)
	if err != nil {
		return nil, fmt.Errorf("loading introspecter for %q: %w (missing blank import?)", name, err)
	}

	return &env{cfg: cfg, driver: d, dialect: dia, introspecter: insp, logger: logger}, nil
}

func (e *env) close() {
	_ = e.driver.Close()
	_ = e.logger.Sync()
}

func migrateScope() (migrate.Scope, error) {
	switch flagScope {
	case "core":
		return migrate.ScopeCore, nil
	case "template":
		if flagTemplate == "" {
			return "", fmt.Errorf("--template-key is required when --scope=template")
		}
		return migrate.ScopeTemplate, nil
	default:
		return "", fmt.Errorf("unsupported scope %q (want core or template)", flagScope)
	}
}
