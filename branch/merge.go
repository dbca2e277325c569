package branch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/launchpad-hq/lpcore/driver"
	"github.com/launchpad-hq/lpcore/migrate"
)

// MergeOptions configures Merge.
type MergeOptions struct {
	// ConflictResolution maps a conflicted table name to the caller's
	// chosen resolution; any conflict without an entry here blocks the
	// merge.
	ConflictResolution map[string]string
	DeleteSource       bool
	DryRun             bool
}

// MergeResult is the outcome of Merge.
type MergeResult struct {
	Success           bool
	MigrationsApplied int
	Conflicts         []DiffConflict
}

// Merge diffs sourceSlug onto targetSlug; if every conflict has an entry
// in opts.ConflictResolution, it applies the forward SQL scoped to the
// target namespace via search_path (so the synthesized, namespace-
// agnostic DDL lands in the right schema without text rewriting), records
// a merge migration row, and optionally deletes the source branch.
func (e *Engine) Merge(ctx context.Context, sourceSlug, targetSlug string, opts MergeOptions) (*MergeResult, error) {
	diffResult, err := e.Diff(ctx, sourceSlug, targetSlug)
	if err != nil {
		return nil, err
	}

	var unresolved []DiffConflict
	for _, c := range diffResult.Conflicts {
		if _, ok := opts.ConflictResolution[c.Table]; !ok {
			unresolved = append(unresolved, c)
		}
	}
	if len(unresolved) > 0 {
		return &MergeResult{Success: false, Conflicts: unresolved}, fmt.Errorf("branch: merge has %d unresolved conflict(s)", len(unresolved))
	}

	if opts.DryRun || len(diffResult.Migration) == 0 {
		return &MergeResult{Success: true, MigrationsApplied: len(diffResult.Migration), Conflicts: nil}, nil
	}

	targetNS, err := e.namespaceFor(targetSlug)
	if err != nil {
		return nil, err
	}

	err = e.driver.Transaction(ctx, func(ctx context.Context, c driver.Client) error {
		searchPath := fmt.Sprintf("SET search_path TO %s", e.dialect.QuoteIdentifier(targetNS))
		if _, err := c.Execute(ctx, searchPath, nil); err != nil {
			return fmt.Errorf("scoping merge to namespace %q: %w", targetNS, err)
		}
		for _, stmt := range diffResult.Migration {
			if _, err := c.Execute(ctx, stmt, nil); err != nil {
				return fmt.Errorf("applying merge statement: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if e.history != nil {
		row := migrate.HistoryRow{
			Version:     time.Now().Unix(),
			Name:        fmt.Sprintf("merge_%s_into_%s", sourceSlug, targetSlug),
			Scope:       migrate.ScopeTemplate,
			TemplateKey: targetSlug,
			Checksum:    mergeChecksum(diffResult.Migration),
			UpSQL:       diffResult.Migration,
			AppliedAt:   time.Now(),
		}
		if err := e.history.Insert(row); err != nil {
			e.logger.Warn("branch: failed to record merge migration", zap.Error(err))
		}
	}

	if opts.DeleteSource && sourceSlug != "" {
		if err := e.Delete(ctx, sourceSlug, false); err != nil {
			e.logger.Warn("branch: merge succeeded but deleting source branch failed", zap.String("slug", sourceSlug), zap.Error(err))
		}
	}

	e.logger.Info("branch: merged", zap.String("source", sourceSlug), zap.String("target", targetSlug), zap.Int("changes", len(diffResult.Migration)))
	return &MergeResult{Success: true, MigrationsApplied: len(diffResult.Migration)}, nil
}

func mergeChecksum(statements []string) string {
	sum := sha256.Sum256([]byte(strings.Join(statements, ";")))
	return hex.EncodeToString(sum[:])
}
