package driver

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// PoolConfig bounds the underlying database/sql pool. This is the same
// discipline database/sql already enforces internally; the driver layers
// query tracking, health checks, and graceful drain on top of it.
type PoolConfig struct {
	Max            int
	ConnectTimeout time.Duration
	IdleTimeout    time.Duration
}

// DefaultPoolConfig matches spec's default of 10 max connections.
var DefaultPoolConfig = PoolConfig{
	Max:            10,
	ConnectTimeout: 5 * time.Second,
	IdleTimeout:    5 * time.Minute,
}

// sqlDriver implements Driver over a database/sql.DB. Postgres, MySQL, and
// SQLite connectors differ only in the driver name and DSN passed to
// database/sql.Open; execution, tracking, health checks, and drain are
// identical across all three.
type sqlDriver struct {
	db      *sql.DB
	pool    PoolConfig
	tracker *tracker
	logger  *zap.Logger

	healthMu     sync.Mutex
	healthy      atomic.Bool
	healthCancel context.CancelFunc
	healthWG     sync.WaitGroup
}

// newSQLDriver wraps db with pool settings and returns a ready Driver. It
// is unexported: callers go through NewPostgres/NewMySQL/NewSQLite so the
// dialect-specific driver name stays in one place.
func newSQLDriver(db *sql.DB, pool PoolConfig, logger *zap.Logger) *sqlDriver {
	if logger == nil {
		logger = zap.NewNop()
	}
	db.SetMaxOpenConns(pool.Max)
	db.SetMaxIdleConns(pool.Max)
	db.SetConnMaxIdleTime(pool.IdleTimeout)
	d := &sqlDriver{db: db, pool: pool, tracker: newTracker(), logger: logger}
	d.healthy.Store(true)
	return d
}

func (d *sqlDriver) Query(ctx context.Context, query string, params []any) (QueryResult, error) {
	id, err := d.tracker.register()
	if err != nil {
		return QueryResult{}, err
	}
	defer d.tracker.complete(id)

	rows, err := d.db.QueryContext(ctx, query, params...)
	if err != nil {
		return QueryResult{}, fmt.Errorf("driver: query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return QueryResult{}, fmt.Errorf("driver: reading columns failed: %w", err)
	}

	var result []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return QueryResult{}, fmt.Errorf("driver: row scan failed: %w", err)
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			row[c] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return QueryResult{}, fmt.Errorf("driver: row iteration failed: %w", err)
	}

	return QueryResult{Rows: result, RowCount: len(result)}, nil
}

func (d *sqlDriver) Execute(ctx context.Context, query string, params []any) (ExecResult, error) {
	id, err := d.tracker.register()
	if err != nil {
		return ExecResult{}, err
	}
	defer d.tracker.complete(id)

	res, err := d.db.ExecContext(ctx, query, params...)
	if err != nil {
		return ExecResult{}, fmt.Errorf("driver: execute failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return ExecResult{}, fmt.Errorf("driver: reading rows affected failed: %w", err)
	}
	return ExecResult{RowCount: int(affected)}, nil
}

// txClient binds Query/Execute to one *sql.Tx for the duration of a
// Transaction callback.
type txClient struct {
	tx *sql.Tx
}

func (c *txClient) Query(ctx context.Context, query string, params []any) (QueryResult, error) {
	rows, err := c.tx.QueryContext(ctx, query, params...)
	if err != nil {
		return QueryResult{}, fmt.Errorf("driver: query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return QueryResult{}, fmt.Errorf("driver: reading columns failed: %w", err)
	}
	var result []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return QueryResult{}, fmt.Errorf("driver: row scan failed: %w", err)
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			row[c] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return QueryResult{}, fmt.Errorf("driver: row iteration failed: %w", err)
	}
	return QueryResult{Rows: result, RowCount: len(result)}, nil
}

func (c *txClient) Execute(ctx context.Context, query string, params []any) (ExecResult, error) {
	res, err := c.tx.ExecContext(ctx, query, params...)
	if err != nil {
		return ExecResult{}, fmt.Errorf("driver: execute failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return ExecResult{}, fmt.Errorf("driver: reading rows affected failed: %w", err)
	}
	return ExecResult{RowCount: int(affected)}, nil
}

func (d *sqlDriver) Transaction(ctx context.Context, fn func(ctx context.Context, c Client) error) error {
	id, err := d.tracker.register()
	if err != nil {
		return err
	}
	defer d.tracker.complete(id)

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("driver: beginning transaction failed: %w", err)
	}
	if err := fn(ctx, &txClient{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("driver: transaction failed: %w; additionally rollback failed: %v", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("driver: committing transaction failed: %w", err)
	}
	return nil
}

func (d *sqlDriver) Close() error {
	d.StopHealthChecks()
	return d.db.Close()
}

func (d *sqlDriver) HealthCheck(ctx context.Context) HealthStatus {
	start := time.Now()
	err := d.db.PingContext(ctx)
	status := HealthStatus{
		Healthy:       err == nil,
		LatencyMs:     time.Since(start).Milliseconds(),
		LastCheckedAt: time.Now(),
		Error:         err,
	}
	d.setHealthy(status.Healthy)
	return status
}

func (d *sqlDriver) setHealthy(healthy bool) {
	prev := d.healthy.Swap(healthy)
	if prev != healthy {
		if healthy {
			d.logger.Info("driver: health check transitioned healthy")
		} else {
			d.logger.Warn("driver: health check transitioned unhealthy")
		}
	}
}

func (d *sqlDriver) IsHealthy() bool { return d.healthy.Load() }

// StartHealthChecks runs HealthCheck on interval until StopHealthChecks is
// called or ctx is cancelled. onChange fires exactly once per
// healthy<->unhealthy transition, matching spec's edge-triggered callback.
func (d *sqlDriver) StartHealthChecks(ctx context.Context, interval time.Duration, onChange func(healthy bool)) {
	d.healthMu.Lock()
	defer d.healthMu.Unlock()
	if d.healthCancel != nil {
		return
	}
	hctx, cancel := context.WithCancel(ctx)
	d.healthCancel = cancel

	d.healthWG.Add(1)
	go func() {
		defer d.healthWG.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		last := d.IsHealthy()
		for {
			select {
			case <-hctx.Done():
				return
			case <-ticker.C:
				status := d.HealthCheck(hctx)
				if status.Healthy != last {
					last = status.Healthy
					if onChange != nil {
						onChange(status.Healthy)
					}
				}
			}
		}
	}()
}

func (d *sqlDriver) StopHealthChecks() {
	d.healthMu.Lock()
	cancel := d.healthCancel
	d.healthCancel = nil
	d.healthMu.Unlock()
	if cancel != nil {
		cancel()
		d.healthWG.Wait()
	}
}

func (d *sqlDriver) GetPoolStats() PoolStats {
	stats := d.db.Stats()
	return PoolStats{
		Total:   stats.OpenConnections,
		Active:  stats.InUse,
		Idle:    stats.Idle,
		Waiting: int(stats.WaitCount),
		Max:     d.pool.Max,
	}
}

func (d *sqlDriver) GetActiveQueryCount() int { return d.tracker.activeCount() }
func (d *sqlDriver) IsDraining() bool         { return d.tracker.isDraining() }

// DrainAndClose transitions to draining, waits for in-flight queries to
// finish, then closes the pool. On timeout with ForceCancelOnTimeout, the
// queries still tracked are counted as cancelled and dropped from tracking;
// their statements are not interrupted, and closing the pool waits for
// them to return.
func (d *sqlDriver) DrainAndClose(ctx context.Context, opts DrainOptions) (DrainResult, error) {
	start := time.Now()
	report := func(phase DrainPhase) {
		if opts.OnProgress != nil {
			opts.OnProgress(phase, d.tracker.activeCount())
		}
	}

	d.tracker.startDraining()
	report(DrainPhaseDraining)

	deadline := time.Now().Add(opts.Timeout)
	timedOut := false
	for d.tracker.activeCount() > 0 {
		if opts.Timeout > 0 && time.Now().After(deadline) {
			timedOut = true
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	var err error
	if timedOut {
		report(DrainPhaseCancelling)
		if opts.ForceCancelOnTimeout {
			for _, id := range d.tracker.activeIDs() {
				d.tracker.cancel(id)
			}
		} else {
			err = errDrainTimeout()
		}
	}

	report(DrainPhaseClosing)
	if closeErr := d.db.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	report(DrainPhaseComplete)

	completed, cancelled := d.tracker.snapshot()
	return DrainResult{
		Completed: int(completed),
		Cancelled: int(cancelled),
		Elapsed:   time.Since(start),
	}, err
}
