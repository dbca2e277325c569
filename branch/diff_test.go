package branch

import (
	"testing"

	"github.com/launchpad-hq/lpcore/introspect"
)

func TestConflictsFromChanges_ClassifiesTableDropAndBreakingColumnModify(t *testing.T) {
	changes := []introspect.Change{
		{Type: introspect.ChangeTableDrop, Table: "widgets"},
		{Type: introspect.ChangeColumnModify, Table: "orders", IsBreaking: true},
		{Type: introspect.ChangeColumnAdd, Table: "orders"},
		{Type: introspect.ChangeForeignKeyDrop, Table: "orders", IsBreaking: false},
	}

	conflicts := conflictsFromChanges(changes)
	if len(conflicts) != 2 {
		t.Fatalf("expected 2 conflicts, got %d: %+v", len(conflicts), conflicts)
	}
	if conflicts[0].Kind != ConflictTableRemoved {
		t.Errorf("expected table_removed conflict first, got %q", conflicts[0].Kind)
	}
	if conflicts[1].Kind != ConflictColumnTypeMismatch {
		t.Errorf("expected column_type_mismatch conflict second, got %q", conflicts[1].Kind)
	}
}

func TestConflictsFromChanges_NoConflictsWhenAllSafe(t *testing.T) {
	changes := []introspect.Change{
		{Type: introspect.ChangeColumnAdd, Table: "widgets"},
		{Type: introspect.ChangeIndexAdd, Table: "widgets"},
	}
	if conflicts := conflictsFromChanges(changes); len(conflicts) != 0 {
		t.Fatalf("expected no conflicts, got %+v", conflicts)
	}
}
