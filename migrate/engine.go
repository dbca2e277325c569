package migrate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/launchpad-hq/lpcore/dialect"
	"github.com/launchpad-hq/lpcore/driver"
	"github.com/launchpad-hq/lpcore/errs"
)

// Options configures one Up/Down/Verify call.
type Options struct {
	Scope       Scope
	TemplateKey string
	Steps       int   // 0 = no limit
	ToVersion   int64 // 0 = no limit
	DryRun      bool
	ExecutedBy  string
}

// Result is the outcome of applying or rolling back one migration.
type Result struct {
	Version  int64
	Name     string
	Success  bool
	Error    error
	Duration time.Duration
}

// Issue is a structured problem surfaced by Verify.
type Issue struct {
	Version int64
	Name    string
	Kind    string // "checksum_mismatch" | "file_missing"
	Detail  string
}

// Engine applies and rolls back migrations against one dialect/driver
// pair, recording history through Store.
type Engine struct {
	driver  driver.Driver
	dialect dialect.Dialect
	store   Store
	logger  *zap.Logger
}

// New constructs an Engine.
func New(d driver.Driver, dia dialect.Dialect, store Store, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{driver: d, dialect: dia, store: store, logger: logger}
}

// Up loads the applied set for (scope, templateKey), computes the pending
// files in file order, truncates to Steps or ToVersion if set, and applies
// each pending migration in turn. A failure aborts the remaining sequence;
// the caller receives partial results.
func (e *Engine) Up(ctx context.Context, files []*File, opts Options) ([]Result, error) {
	if err := ValidateTemplateKey(opts.TemplateKey); err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	e.logger.Info("migrate: up starting", zap.String("run_id", runID), zap.String("scope", string(opts.Scope)))

	applied, err := e.store.Applied(opts.Scope, opts.TemplateKey)
	if err != nil {
		return nil, fmt.Errorf("migrate: loading applied migrations failed: %w", err)
	}
	appliedVersions := make(map[int64]bool, len(applied))
	for _, row := range applied {
		appliedVersions[row.Version] = true
	}

	sorted := append([]*File{}, files...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })

	var pending []*File
	for _, f := range sorted {
		if !appliedVersions[f.Version] {
			pending = append(pending, f)
		}
	}

	if opts.ToVersion > 0 {
		var truncated []*File
		for _, f := range pending {
			if f.Version <= opts.ToVersion {
				truncated = append(truncated, f)
			}
		}
		pending = truncated
	}
	if opts.Steps > 0 && len(pending) > opts.Steps {
		pending = pending[:opts.Steps]
	}

	results := make([]Result, 0, len(pending))
	for _, f := range pending {
		if opts.DryRun {
			results = append(results, Result{Version: f.Version, Name: f.Name, Success: true})
			continue
		}

		start := time.Now()
		err := e.applyOne(ctx, f, opts)
		res := Result{Version: f.Version, Name: f.Name, Success: err == nil, Error: err, Duration: time.Since(start)}
		results = append(results, res)
		if err != nil {
			e.logger.Error("migrate: up aborted", zap.String("run_id", runID), zap.Int64("version", f.Version), zap.Error(err))
			return results, err
		}
		e.logger.Info("migrate: applied", zap.String("run_id", runID), zap.Int64("version", f.Version), zap.String("name", f.Name))
	}
	return results, nil
}

func (e *Engine) applyOne(ctx context.Context, f *File, opts Options) error {
	row := HistoryRow{
		Version:     f.Version,
		Name:        f.Name,
		Scope:       opts.Scope,
		TemplateKey: opts.TemplateKey,
		Checksum:    f.Checksum(),
		UpSQL:       f.Up,
		DownSQL:     f.Down,
		AppliedAt:   time.Now(),
		ExecutedBy:  opts.ExecutedBy,
	}

	if e.dialect.SupportsTransactionalDDL() {
		return e.driver.Transaction(ctx, func(ctx context.Context, c driver.Client) error {
			for _, stmt := range f.Up {
				if _, err := c.Execute(ctx, stmt, nil); err != nil {
					return fmt.Errorf("migrate: executing up statement failed: %w", err)
				}
			}
			return e.store.Insert(row)
		})
	}

	for _, stmt := range f.Up {
		if _, err := e.driver.Execute(ctx, stmt, nil); err != nil {
			return fmt.Errorf("migrate: executing up statement failed: %w", err)
		}
	}
	return e.store.Insert(row)
}

// Down loads the applied set in ascending order, reverses it, truncates by
// Steps or ">ToVersion", then rolls each migration back in turn. A
// migration without stored down SQL halts the sequence with a typed error.
func (e *Engine) Down(ctx context.Context, opts Options) ([]Result, error) {
	if err := ValidateTemplateKey(opts.TemplateKey); err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	e.logger.Info("migrate: down starting", zap.String("run_id", runID), zap.String("scope", string(opts.Scope)))

	applied, err := e.store.Applied(opts.Scope, opts.TemplateKey)
	if err != nil {
		return nil, fmt.Errorf("migrate: loading applied migrations failed: %w", err)
	}

	reversed := make([]HistoryRow, len(applied))
	for i, row := range applied {
		reversed[len(applied)-1-i] = row
	}

	if opts.ToVersion > 0 {
		var truncated []HistoryRow
		for _, row := range reversed {
			if row.Version > opts.ToVersion {
				truncated = append(truncated, row)
			}
		}
		reversed = truncated
	}
	if opts.Steps > 0 && len(reversed) > opts.Steps {
		reversed = reversed[:opts.Steps]
	}

	results := make([]Result, 0, len(reversed))
	for _, row := range reversed {
		if opts.DryRun {
			results = append(results, Result{Version: row.Version, Name: row.Name, Success: true})
			continue
		}

		start := time.Now()
		err := e.rollbackOne(ctx, row)
		res := Result{Version: row.Version, Name: row.Name, Success: err == nil, Error: err, Duration: time.Since(start)}
		results = append(results, res)
		if err != nil {
			e.logger.Error("migrate: down aborted", zap.String("run_id", runID), zap.Int64("version", row.Version), zap.Error(err))
			return results, err
		}
		e.logger.Info("migrate: rolled back", zap.String("run_id", runID), zap.Int64("version", row.Version), zap.String("name", row.Name))
	}
	return results, nil
}

func (e *Engine) rollbackOne(ctx context.Context, row HistoryRow) error {
	if len(row.DownSQL) == 0 {
		return fmt.Errorf("%w: migration %d__%s", errs.ErrNoDownAvailable, row.Version, row.Name)
	}

	if e.dialect.SupportsTransactionalDDL() {
		return e.driver.Transaction(ctx, func(ctx context.Context, c driver.Client) error {
			for _, stmt := range row.DownSQL {
				if _, err := c.Execute(ctx, stmt, nil); err != nil {
					return fmt.Errorf("migrate: executing down statement failed: %w", err)
				}
			}
			return e.store.Remove(row.Scope, row.TemplateKey, row.Version)
		})
	}

	for _, stmt := range row.DownSQL {
		if _, err := e.driver.Execute(ctx, stmt, nil); err != nil {
			return fmt.Errorf("migrate: executing down statement failed: %w", err)
		}
	}
	return e.store.Remove(row.Scope, row.TemplateKey, row.Version)
}

// Verify recomputes the on-disk checksum for every applied row and
// reports a structured issue for any mismatch or missing file.
func (e *Engine) Verify(opts Options, files []*File) ([]Issue, error) {
	applied, err := e.store.Applied(opts.Scope, opts.TemplateKey)
	if err != nil {
		return nil, fmt.Errorf("migrate: loading applied migrations failed: %w", err)
	}

	byVersion := make(map[int64]*File, len(files))
	for _, f := range files {
		byVersion[f.Version] = f
	}

	var issues []Issue
	for _, row := range applied {
		f, ok := byVersion[row.Version]
		if !ok {
			issues = append(issues, Issue{Version: row.Version, Name: row.Name, Kind: "file_missing", Detail: "no on-disk file for this applied version"})
			continue
		}
		computed := f.Checksum()
		if computed != row.Checksum {
			issues = append(issues, Issue{
				Version: row.Version,
				Name:    row.Name,
				Kind:    "checksum_mismatch",
				Detail:  fmt.Sprintf("stored %s, computed %s", row.Checksum, computed),
			})
		}
	}
	return issues, nil
}

// Status reports the applied history for (scope, templateKey) in version
// order, alongside the current (highest applied) version.
func (e *Engine) Status(opts Options) (current int64, applied []HistoryRow, err error) {
	applied, err = e.store.Applied(opts.Scope, opts.TemplateKey)
	if err != nil {
		return 0, nil, fmt.Errorf("migrate: loading applied migrations failed: %w", err)
	}
	sort.Slice(applied, func(i, j int) bool { return applied[i].Version < applied[j].Version })
	for _, row := range applied {
		if row.Version > current {
			current = row.Version
		}
	}
	return current, applied, nil
}
