// Package introspect reconstructs a live database's schema through each
// dialect's catalog queries and normalizes it to schema.Definition, and
// provides the structural diff engine that compares two definitions and
// synthesizes a converging migration.
package introspect

import (
	"fmt"
	"sort"

	"github.com/launchpad-hq/lpcore/dialect"
	"github.com/launchpad-hq/lpcore/schema"
)

// ChangeType is the closed set of structural changes the diff engine
// detects between two schema definitions.
type ChangeType string

const (
	ChangeTableAdd       ChangeType = "table_add"
	ChangeTableDrop      ChangeType = "table_drop"
	ChangeColumnAdd      ChangeType = "column_add"
	ChangeColumnDrop     ChangeType = "column_drop"
	ChangeColumnModify   ChangeType = "column_modify"
	ChangeIndexAdd       ChangeType = "index_add"
	ChangeIndexDrop      ChangeType = "index_drop"
	ChangeConstraintAdd  ChangeType = "constraint_add"
	ChangeConstraintDrop ChangeType = "constraint_drop"
	ChangeForeignKeyAdd  ChangeType = "foreign_key_add"
	ChangeForeignKeyDrop ChangeType = "foreign_key_drop"
)

// Change is one typed structural difference between two schema
// definitions, carrying enough to both report and apply it.
type Change struct {
	Type        ChangeType
	Table       string
	Column      string
	IsBreaking  bool
	Description string
	ForwardSQL  []string
	ReverseSQL  []string
}

// DiffOptions tunes which structural changes are treated as breaking.
type DiffOptions struct {
	TreatTableDropAsBreaking  bool
	TreatColumnDropAsBreaking bool
}

// DefaultDiffOptions matches spec's documented defaults: drops are
// breaking unless the caller opts out.
func DefaultDiffOptions() DiffOptions {
	return DiffOptions{TreatTableDropAsBreaking: true, TreatColumnDropAsBreaking: true}
}

// DiffResult is the full output of comparing a current (possibly nil)
// schema against a target schema.
type DiffResult struct {
	HasDifferences  bool
	Summary         string
	Changes         []Change
	BreakingChanges []Change
	Migration       []string // forward DDL, safe apply order
}

// Diff compares current (nil means "no schema yet") against target and
// returns every structural change, partitioned and ordered for safe
// application: drops before creates in the destructive partition, creates
// before foreign-key additions in the additive partition. It errors if the
// target schema asks the dialect for something it cannot represent, such
// as a partial index on MySQL.
func Diff(current, target *schema.Definition, dia dialect.Dialect, opts DiffOptions) (*DiffResult, error) {
	ddl := dia.DDL()
	var changes []Change

	currentTables := tablesByName(current)
	targetTables := tablesByName(target)

	for name, t := range targetTables {
		if _, ok := currentTables[name]; !ok {
			table := t
			stmt, fks := ddl.CreateTable(&table)
			changes = append(changes, Change{
				Type:        ChangeTableAdd,
				Table:       name,
				IsBreaking:  false,
				Description: fmt.Sprintf("create table %q", name),
				ForwardSQL:  append([]string{stmt}, fks...),
				ReverseSQL:  []string{ddl.DropTable(name)},
			})
		}
	}

	for name, t := range currentTables {
		if _, ok := targetTables[name]; !ok {
			table := t
			createStmt, fks := ddl.CreateTable(&table)
			changes = append(changes, Change{
				Type:        ChangeTableDrop,
				Table:       name,
				IsBreaking:  opts.TreatTableDropAsBreaking,
				Description: fmt.Sprintf("drop table %q", name),
				ForwardSQL:  []string{ddl.DropTable(name)},
				ReverseSQL:  append([]string{createStmt}, fks...),
			})
		}
	}

	for name, targetTable := range targetTables {
		currentTable, ok := currentTables[name]
		if !ok {
			continue
		}
		tableChanges, err := diffTable(ddl, dia.Name(), name, &currentTable, &targetTable, opts)
		if err != nil {
			return nil, err
		}
		changes = append(changes, tableChanges...)
	}

	result := &DiffResult{Changes: changes}
	for _, c := range changes {
		if c.IsBreaking {
			result.BreakingChanges = append(result.BreakingChanges, c)
		}
	}
	result.HasDifferences = len(changes) > 0
	result.Summary = summarize(changes)
	result.Migration = synthesize(changes)
	return result, nil
}

func tablesByName(d *schema.Definition) map[string]schema.Table {
	out := map[string]schema.Table{}
	if d == nil {
		return out
	}
	for _, t := range d.Tables {
		out[t.Name] = t
	}
	return out
}

func diffTable(ddl dialect.DDL, dialectName dialect.Name, name string, current, target *schema.Table, opts DiffOptions) ([]Change, error) {
	var changes []Change

	currentCols := columnsByName(current)
	targetCols := columnsByName(target)

	for colName, tc := range targetCols {
		if _, ok := currentCols[colName]; !ok {
			col := tc
			changes = append(changes, Change{
				Type:        ChangeColumnAdd,
				Table:       name,
				Column:      colName,
				IsBreaking:  false,
				Description: fmt.Sprintf("add column %q.%q", name, colName),
				ForwardSQL:  []string{ddl.AddColumn(name, &col)},
				ReverseSQL:  []string{ddl.DropColumn(name, colName)},
			})
		}
	}

	for colName, cc := range currentCols {
		tc, ok := targetCols[colName]
		if !ok {
			col := cc
			changes = append(changes, Change{
				Type:        ChangeColumnDrop,
				Table:       name,
				Column:      colName,
				IsBreaking:  opts.TreatColumnDropAsBreaking,
				Description: fmt.Sprintf("drop column %q.%q", name, colName),
				ForwardSQL:  []string{ddl.DropColumn(name, colName)},
				ReverseSQL:  []string{ddl.AddColumn(name, &col)},
			})
			continue
		}

		from, to := cc, tc
		if breaking, desc, changed := classifyColumnModify(&from, &to); changed {
			changes = append(changes, Change{
				Type:        ChangeColumnModify,
				Table:       name,
				Column:      colName,
				IsBreaking:  breaking,
				Description: fmt.Sprintf("alter column %q.%q: %s", name, colName, desc),
				ForwardSQL:  ddl.AlterColumn(name, &from, &to),
				ReverseSQL:  ddl.AlterColumn(name, &to, &from),
			})
		}
	}

	indexChanges, err := diffIndexes(ddl, dialectName, name, current, target)
	if err != nil {
		return nil, err
	}
	changes = append(changes, indexChanges...)
	changes = append(changes, diffForeignKeys(ddl, name, current, target)...)

	return changes, nil
}

func columnsByName(t *schema.Table) map[string]schema.Column {
	out := make(map[string]schema.Column, len(t.Columns))
	for _, c := range t.Columns {
		out[c.Name] = c
	}
	return out
}

// classifyColumnModify reports whether from->to differs, whether the
// difference is breaking per spec's literal rules, and a human
// description of what changed.
func classifyColumnModify(from, to *schema.Column) (breaking bool, desc string, changed bool) {
	var descs []string

	if from.Type != to.Type {
		changed = true
		if typeChangeIsBreaking(from.Type, to.Type) {
			breaking = true
		}
		descs = append(descs, fmt.Sprintf("type %s -> %s", from.Type, to.Type))
	}

	if from.Nullable != to.Nullable {
		changed = true
		if from.Nullable && !to.Nullable && !to.HasDefault {
			breaking = true
		}
		descs = append(descs, fmt.Sprintf("nullable %v -> %v", from.Nullable, to.Nullable))
	}

	if from.HasDefault && !to.HasDefault && !to.Nullable {
		changed = true
		breaking = true
		descs = append(descs, "default removed on non-null column")
	} else if from.HasDefault != to.HasDefault || from.Default != to.Default {
		if from.HasDefault || to.HasDefault {
			changed = true
			descs = append(descs, "default changed")
		}
	}

	if from.Unique != to.Unique {
		changed = true
		if !from.Unique && to.Unique {
			breaking = true
		}
		descs = append(descs, fmt.Sprintf("unique %v -> %v", from.Unique, to.Unique))
	}

	if !changed {
		return false, "", false
	}
	desc = joinComma(descs)
	return breaking, desc, true
}

var numericFamily = map[schema.ColumnType]bool{
	schema.TypeInteger: true, schema.TypeBigInt: true,
	schema.TypeFloat: true, schema.TypeDecimal: true,
}

var textFamily = map[schema.ColumnType]bool{
	schema.TypeString: true, schema.TypeText: true,
}

// typeChangeIsBreaking implements spec's literal type-family rules:
// numeric->text is safe, text->numeric is breaking, integer->bigint
// widens safely, bigint->integer narrows and is breaking. Any other
// cross-family change is conservatively breaking.
func typeChangeIsBreaking(from, to schema.ColumnType) bool {
	switch {
	case from == to:
		return false
	case numericFamily[from] && textFamily[to]:
		return false
	case textFamily[from] && numericFamily[to]:
		return true
	case from == schema.TypeInteger && to == schema.TypeBigInt:
		return false
	case from == schema.TypeBigInt && to == schema.TypeInteger:
		return true
	default:
		return true
	}
}

// diffIndexes errors out when target asks for a partial index on MySQL:
// MySQL's CreateIndex has no WHERE-predicate syntax, so silently emitting
// a full index there would downgrade the index without telling the
// caller.
func diffIndexes(ddl dialect.DDL, dialectName dialect.Name, table string, current, target *schema.Table) ([]Change, error) {
	var changes []Change
	currentIdx := indexesByName(current)
	targetIdx := indexesByName(target)

	for name, idx := range targetIdx {
		if _, ok := currentIdx[name]; !ok {
			i := idx
			if err := checkPartialIndexSupport(dialectName, table, indexLabel(name, i), i); err != nil {
				return nil, err
			}
			changes = append(changes, Change{
				Type:        ChangeIndexAdd,
				Table:       table,
				Column:      name,
				IsBreaking:  false,
				Description: fmt.Sprintf("add index %q on %q", indexLabel(name, i), table),
				ForwardSQL:  []string{ddl.CreateIndex(table, &i)},
				ReverseSQL:  []string{ddl.DropIndex(table, indexLabel(name, i))},
			})
		}
	}
	for name, idx := range currentIdx {
		if _, ok := targetIdx[name]; !ok {
			i := idx
			if err := checkPartialIndexSupport(dialectName, table, indexLabel(name, i), i); err != nil {
				return nil, err
			}
			changes = append(changes, Change{
				Type:        ChangeIndexDrop,
				Table:       table,
				Column:      name,
				IsBreaking:  false,
				Description: fmt.Sprintf("drop index %q on %q", indexLabel(name, i), table),
				ForwardSQL:  []string{ddl.DropIndex(table, indexLabel(name, i))},
				ReverseSQL:  []string{ddl.CreateIndex(table, &i)},
			})
		}
	}
	return changes, nil
}

func checkPartialIndexSupport(dialectName dialect.Name, table, indexName string, idx schema.Index) error {
	if dialectName == dialect.MySQL && idx.Predicate != "" {
		return fmt.Errorf("introspect: partial index %q on %q has a predicate, which MySQL does not support", indexName, table)
	}
	return nil
}

func indexLabel(key string, idx schema.Index) string {
	if idx.Name != "" {
		return idx.Name
	}
	return key
}

func indexesByName(t *schema.Table) map[string]schema.Index {
	out := make(map[string]schema.Index, len(t.Indexes))
	for _, idx := range t.Indexes {
		key := idx.Name
		if key == "" {
			key = joinComma(idx.Columns)
		}
		out[key] = idx
	}
	return out
}

func diffForeignKeys(ddl dialect.DDL, table string, current, target *schema.Table) []Change {
	var changes []Change
	currentFKs := foreignKeysByColumn(current)
	targetFKs := foreignKeysByColumn(target)

	for col, ref := range targetFKs {
		if _, ok := currentFKs[col]; !ok {
			r := ref
			changes = append(changes, Change{
				Type:        ChangeForeignKeyAdd,
				Table:       table,
				Column:      col,
				IsBreaking:  true,
				Description: fmt.Sprintf("add foreign key %q.%q -> %q.%q", table, col, r.Table, r.Column),
				ForwardSQL:  []string{ddl.AddForeignKey(table, col, &r)},
				ReverseSQL:  []string{ddl.DropForeignKey(table, fkConstraintName(table, col))},
			})
		}
	}
	for col, ref := range currentFKs {
		if _, ok := targetFKs[col]; !ok {
			r := ref
			changes = append(changes, Change{
				Type:        ChangeForeignKeyDrop,
				Table:       table,
				Column:      col,
				IsBreaking:  false,
				Description: fmt.Sprintf("drop foreign key %q.%q", table, col),
				ForwardSQL:  []string{ddl.DropForeignKey(table, fkConstraintName(table, col))},
				ReverseSQL:  []string{ddl.AddForeignKey(table, col, &r)},
			})
		}
	}
	return changes
}

func fkConstraintName(table, column string) string {
	return fmt.Sprintf("fk_%s_%s", table, column)
}

func foreignKeysByColumn(t *schema.Table) map[string]schema.ForeignKeyRef {
	out := map[string]schema.ForeignKeyRef{}
	for _, c := range t.Columns {
		if c.References != nil {
			out[c.Name] = *c.References
		}
	}
	return out
}

func joinComma(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}

func summarize(changes []Change) string {
	if len(changes) == 0 {
		return "no differences"
	}
	counts := map[ChangeType]int{}
	for _, c := range changes {
		counts[c.Type]++
	}
	var parts []string
	for _, t := range sortedChangeTypes(counts) {
		parts = append(parts, fmt.Sprintf("%d %s", counts[t], t))
	}
	return joinComma(parts)
}

func sortedChangeTypes(counts map[ChangeType]int) []ChangeType {
	out := make([]ChangeType, 0, len(counts))
	for t := range counts {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// synthesize orders forward SQL into a safe apply sequence: the
// destructive partition (drops) runs before the additive partition
// (creates), and within the additive partition, table/column/index
// creates run before foreign-key additions.
func synthesize(changes []Change) []string {
	var destructive, additive, fkAdds []string

	for _, c := range changes {
		switch c.Type {
		case ChangeTableDrop, ChangeColumnDrop, ChangeIndexDrop, ChangeConstraintDrop, ChangeForeignKeyDrop:
			destructive = append(destructive, c.ForwardSQL...)
		case ChangeForeignKeyAdd:
			fkAdds = append(fkAdds, c.ForwardSQL...)
		default:
			additive = append(additive, c.ForwardSQL...)
		}
	}

	out := make([]string, 0, len(destructive)+len(additive)+len(fkAdds))
	out = append(out, destructive...)
	out = append(out, additive...)
	out = append(out, fkAdds...)
	return out
}
