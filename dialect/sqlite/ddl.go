package sqlite

import (
	"fmt"
	"strings"

	"github.com/launchpad-hq/lpcore/schema"
)

type ddl struct{}

func q(name string) string { return `"` + strings.ReplaceAll(name, `"`, `""`) + `"` }

func columnDefinition(c *schema.Column, mapType func(schema.ColumnType) (string, error)) (string, error) {
	native, err := mapType(c.Type)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(q(c.Name))
	b.WriteByte(' ')
	b.WriteString(native)
	if !c.Nullable {
		b.WriteString(" NOT NULL")
	}
	if c.HasDefault {
		fmt.Fprintf(&b, " DEFAULT %s", c.Default)
	}
	if c.Unique {
		b.WriteString(" UNIQUE")
	}
	return b.String(), nil
}

func (ddl) CreateTable(t *schema.Table) (string, []string) {
	d := &Dialect{}
	var cols []string
	// SQLite can declare foreign keys inline only at CREATE TABLE time;
	// ALTER TABLE ADD CONSTRAINT is not supported, so callers must fold
	// any added foreign key back into a table rebuild (see AddForeignKey).
	var fkClauses []string
	for i := range t.Columns {
		c := &t.Columns[i]
		def, err := columnDefinition(c, d.MapType)
		if err != nil {
			continue
		}
		cols = append(cols, def)
		if c.References != nil {
			fkClauses = append(fkClauses, foreignKeyInlineClause(c.Name, c.References))
		}
	}
	pk := t.PrimaryKeyColumns()
	var pkClause string
	if len(pk) > 0 {
		quoted := make([]string, len(pk))
		for i, c := range pk {
			quoted[i] = q(c)
		}
		pkClause = fmt.Sprintf(",\n  PRIMARY KEY (%s)", strings.Join(quoted, ", "))
	}
	fkClause := ""
	if len(fkClauses) > 0 {
		fkClause = ",\n  " + strings.Join(fkClauses, ",\n  ")
	}
	stmt := fmt.Sprintf("CREATE TABLE %s (\n  %s%s%s\n)", q(t.Name), strings.Join(cols, ",\n  "), pkClause, fkClause)
	return stmt, nil
}

func foreignKeyInlineClause(column string, ref *schema.ForeignKeyRef) string {
	clause := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)", q(column), q(ref.Table), q(ref.Column))
	if ref.OnDelete != "" {
		clause += " ON DELETE " + string(ref.OnDelete)
	}
	if ref.OnUpdate != "" {
		clause += " ON UPDATE " + string(ref.OnUpdate)
	}
	return clause
}

func (ddl) DropTable(name string) string { return fmt.Sprintf("DROP TABLE %s", q(name)) }

func (d ddl) AddColumn(table string, c *schema.Column) string {
	dd := &Dialect{}
	def, err := columnDefinition(c, dd.MapType)
	if err != nil {
		def = q(c.Name)
	}
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", q(table), def)
}

// DropColumn uses SQLite's ALTER TABLE ... DROP COLUMN, supported since
// 3.35 (the same baseline as RETURNING).
func (ddl) DropColumn(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", q(table), q(column))
}

// AlterColumn returns no statements: SQLite's ALTER TABLE cannot change a
// column's type, nullability, or default in place. No table rebuild is
// generated either, so introspect.Diff records such a change with empty
// forward and reverse SQL.
func (ddl) AlterColumn(string, *schema.Column, *schema.Column) []string { return nil }

func (ddl) CreateIndex(table string, idx *schema.Index) string {
	name := idx.Name
	if name == "" {
		name = fmt.Sprintf("idx_%s_%s", table, strings.Join(idx.Columns, "_"))
	}
	cols := make([]string, len(idx.Columns))
	for i, c := range idx.Columns {
		cols[i] = q(c)
	}
	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	stmt := fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)", unique, q(name), q(table), strings.Join(cols, ", "))
	if idx.Predicate != "" {
		stmt += " WHERE " + idx.Predicate
	}
	return stmt
}

func (ddl) DropIndex(_, indexName string) string {
	return fmt.Sprintf("DROP INDEX %s", q(indexName))
}

// AddForeignKey has no ALTER TABLE equivalent in SQLite and returns an
// empty string; no table rebuild is generated, and introspect.Diff passes
// the empty string through as the change's statement.
func (ddl) AddForeignKey(string, string, *schema.ForeignKeyRef) string { return "" }

func (ddl) DropForeignKey(string, string) string { return "" }
