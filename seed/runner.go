package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/launchpad-hq/lpcore/dialect"
	"github.com/launchpad-hq/lpcore/driver"
)

// AppliedRow is one lp_seeds tracking record.
type AppliedRow struct {
	Name      string
	Checksum  string
	AppliedAt time.Time
}

// Store is the lp_seeds persistence port.
type Store interface {
	Applied() ([]AppliedRow, error)
	Insert(row AppliedRow) error
}

// Runner orders seeds by dependency, skips the ones already applied
// (matched by name and checksum), and applies the rest in order.
type Runner struct {
	driver  driver.Driver
	dialect dialect.Dialect
	store   Store
	logger  *zap.Logger
}

// New constructs a Runner.
func New(d driver.Driver, dia dialect.Dialect, store Store, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{driver: d, dialect: dia, store: store, logger: logger}
}

// Result is the outcome of applying one seed.
type Result struct {
	Name    string
	Applied bool // false means it was already applied (skipped)
	Error   error
}

// Apply topologically sorts seeds by DependsOn, then applies each one not
// already recorded in Store with a matching checksum. A seed graph with a
// cycle is rejected before anything runs.
func (r *Runner) Apply(ctx context.Context, seeds []Seed) ([]Result, error) {
	ordered, err := topoSort(seeds)
	if err != nil {
		return nil, err
	}

	applied, err := r.store.Applied()
	if err != nil {
		return nil, fmt.Errorf("seed: loading applied seeds: %w", err)
	}
	byName := make(map[string]AppliedRow, len(applied))
	for _, row := range applied {
		byName[row.Name] = row
	}

	results := make([]Result, 0, len(ordered))
	for _, s := range ordered {
		if row, ok := byName[s.Name]; ok && row.Checksum == s.Checksum() {
			results = append(results, Result{Name: s.Name, Applied: false})
			continue
		}

		if err := r.applyOne(ctx, s); err != nil {
			results = append(results, Result{Name: s.Name, Applied: false, Error: err})
			r.logger.Error("seed: apply failed", zap.String("name", s.Name), zap.Error(err))
			return results, err
		}
		results = append(results, Result{Name: s.Name, Applied: true})
		r.logger.Info("seed: applied", zap.String("name", s.Name))
	}
	return results, nil
}

func (r *Runner) applyOne(ctx context.Context, s Seed) error {
	run := func(ctx context.Context, c driver.Client) error {
		for _, stmt := range s.Statements {
			if _, err := c.Execute(ctx, stmt, nil); err != nil {
				return fmt.Errorf("seed: executing statement for %q: %w", s.Name, err)
			}
		}
		return nil
	}

	if r.dialect.SupportsTransactionalDDL() {
		if err := r.driver.Transaction(ctx, run); err != nil {
			return err
		}
	} else if err := run(ctx, r.driver); err != nil {
		return err
	}

	return r.store.Insert(AppliedRow{Name: s.Name, Checksum: s.Checksum(), AppliedAt: time.Now()})
}

// topoSort orders seeds so every seed follows everything it DependsOn,
// returning an error if the dependency graph has a cycle or names a seed
// not present in the input set.
func topoSort(seeds []Seed) ([]Seed, error) {
	byName := make(map[string]Seed, len(seeds))
	for _, s := range seeds {
		byName[s.Name] = s
	}

	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)
	state := make(map[string]int, len(seeds))
	var ordered []Seed

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch state[name] {
		case visited:
			return nil
		case visiting:
			return fmt.Errorf("seed: dependency cycle detected: %s -> %s", strings.Join(path, " -> "), name)
		}
		s, ok := byName[name]
		if !ok {
			return fmt.Errorf("seed: %q depends on unknown seed %q", path[len(path)-1], name)
		}
		state[name] = visiting
		for _, dep := range s.DependsOn {
			if err := visit(dep, append(path, name)); err != nil {
				return err
			}
		}
		state[name] = visited
		ordered = append(ordered, s)
		return nil
	}

	for _, s := range seeds {
		if err := visit(s.Name, nil); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}
