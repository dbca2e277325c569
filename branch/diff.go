package branch

import (
	"context"
	"fmt"

	"github.com/launchpad-hq/lpcore/introspect"
)

// ConflictKind is the closed set of merge-blocking conflict categories.
type ConflictKind string

const (
	ConflictColumnTypeMismatch ConflictKind = "column_type_mismatch"
	ConflictConstraintConflict ConflictKind = "constraint_conflict"
	ConflictTableRemoved       ConflictKind = "table_removed"
	ConflictMigrationOrder     ConflictKind = "migration_order"
)

// DiffConflict is one unresolved difference between two branch namespaces.
type DiffConflict struct {
	Kind   ConflictKind
	Table  string
	Detail string
}

// DiffResult is the outcome of diffing two branch namespaces (source
// against target): the raw structural changes plus a derived conflict
// list and whether the diff can merge without manual resolution.
type DiffResult struct {
	Changes      []introspect.Change
	Conflicts    []DiffConflict
	CanAutoMerge bool
	Migration    []string
}

// Diff introspects both namespaces and computes the structural diff
// (target = source's namespace, i.e. the changes that moving target onto
// source would require), deriving a conflict list from breaking changes.
func (e *Engine) Diff(ctx context.Context, sourceSlug, targetSlug string) (*DiffResult, error) {
	sourceNS, err := e.namespaceFor(sourceSlug)
	if err != nil {
		return nil, err
	}
	targetNS, err := e.namespaceFor(targetSlug)
	if err != nil {
		return nil, err
	}

	sourceDef, _, err := e.introspecter.IntrospectSchema(ctx, e.driver, sourceNS)
	if err != nil {
		return nil, fmt.Errorf("branch: introspecting %q: %w", sourceNS, err)
	}
	targetDef, _, err := e.introspecter.IntrospectSchema(ctx, e.driver, targetNS)
	if err != nil {
		return nil, fmt.Errorf("branch: introspecting %q: %w", targetNS, err)
	}

	diffResult, err := introspect.Diff(targetDef, sourceDef, e.dialect, introspect.DefaultDiffOptions())
	if err != nil {
		return nil, fmt.Errorf("branch: diffing %q against %q: %w", sourceSlug, targetSlug, err)
	}

	conflicts := conflictsFromChanges(diffResult.Changes)
	return &DiffResult{
		Changes:      diffResult.Changes,
		Conflicts:    conflicts,
		CanAutoMerge: len(conflicts) == 0,
		Migration:    diffResult.Migration,
	}, nil
}

func (e *Engine) namespaceFor(slug string) (string, error) {
	if slug == "" {
		return e.cfg.MainNamespace, nil
	}
	b, err := e.store.GetBySlug(slug)
	if err != nil {
		return "", fmt.Errorf("branch: loading %q: %w", slug, err)
	}
	if b == nil {
		return "", fmt.Errorf("branch: %q not found", slug)
	}
	return b.Namespace, nil
}

func conflictsFromChanges(changes []introspect.Change) []DiffConflict {
	var out []DiffConflict
	for _, c := range changes {
		switch {
		case c.Type == introspect.ChangeTableDrop:
			out = append(out, DiffConflict{Kind: ConflictTableRemoved, Table: c.Table, Detail: c.Description})
		case c.Type == introspect.ChangeColumnModify && c.IsBreaking:
			out = append(out, DiffConflict{Kind: ConflictColumnTypeMismatch, Table: c.Table, Detail: c.Description})
		case (c.Type == introspect.ChangeForeignKeyAdd || c.Type == introspect.ChangeForeignKeyDrop) && c.IsBreaking:
			out = append(out, DiffConflict{Kind: ConflictConstraintConflict, Table: c.Table, Detail: c.Description})
		}
	}
	return out
}
