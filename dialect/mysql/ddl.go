package mysql

import (
	"fmt"
	"strings"

	"github.com/launchpad-hq/lpcore/schema"
)

type ddl struct{}

func q(name string) string { return "`" + strings.ReplaceAll(name, "`", "``") + "`" }

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
	var fks []string
	for i := range t.Columns {
		c := &t.Columns[i]
		def, err := columnDefinition(c, d.MapType)
		if err != nil {
			continue
		}
		cols = append(cols, def)
		if c.References != nil {
			fks = append(fks, foreignKeyClause(t.Name, c.Name, c.References))
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
	stmt := fmt.Sprintf("CREATE TABLE %s (\n  %s%s\n) ENGINE=InnoDB", q(t.Name), strings.Join(cols, ",\n  "), pkClause)
	return stmt, fks
}

func foreignKeyClause(table, column string, ref *schema.ForeignKeyRef) string {
	stmt := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		q(table), q(fkName(table, column)), q(column), q(ref.Table), q(ref.Column))
	if ref.OnDelete != "" {
		stmt += " ON DELETE " + string(ref.OnDelete)
	}
	if ref.OnUpdate != "" {
		stmt += " ON UPDATE " + string(ref.OnUpdate)
	}
	return stmt
}

func fkName(table, column string) string { return fmt.Sprintf("fk_%s_%s", table, column) }

func (ddl) DropTable(name string) string { return fmt.Sprintf("DROP TABLE %s", q(name)) }

func (d ddl) AddColumn(table string, c *schema.Column) string {
	dd := &Dialect{}
	def, err := columnDefinition(c, dd.MapType)
	if err != nil {
		def = q(c.Name)
	}
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", q(table), def)
}

func (ddl) DropColumn(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", q(table), q(column))
}

// AlterColumn emits MySQL's single MODIFY COLUMN form, which folds type,
// nullability, and default into one clause — unlike PostgreSQL's three
// separate ALTER COLUMN clauses.
func (ddl) AlterColumn(table string, _, to *schema.Column) []string {
	dd := &Dialect{}
	def, err := columnDefinition(to, dd.MapType)
	if err != nil {
		return nil
	}
	return []string{fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s", q(table), def)}
}

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
	// MySQL has no partial-index predicate support. This emits a full
	// index regardless of idx.Predicate; introspect.Diff is what rejects
	// a partial index targeting this dialect before it gets here.
	return fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)", unique, q(name), q(table), strings.Join(cols, ", "))
}

func (ddl) DropIndex(table, indexName string) string {
	return fmt.Sprintf("DROP INDEX %s ON %s", q(indexName), q(table))
}

func (ddl) AddForeignKey(table, column string, ref *schema.ForeignKeyRef) string {
	return foreignKeyClause(table, column, ref)
}

func (ddl) DropForeignKey(table, constraintName string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s", q(table), q(constraintName))
}
