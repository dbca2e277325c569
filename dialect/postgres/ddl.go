package postgres

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
	stmt := fmt.Sprintf("CREATE TABLE %s (\n  %s%s\n)", q(t.Name), strings.Join(cols, ",\n  "), pkClause)
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

func (ddl) DropTable(name string) string {
	return fmt.Sprintf("DROP TABLE %s", q(name))
}

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

// AlterColumn emits PostgreSQL's multi-clause ALTER COLUMN form: type,
// nullability, and default each need their own clause, unlike MySQL's
// single MODIFY COLUMN.
func (ddl) AlterColumn(table string, from, to *schema.Column) []string {
	dd := &Dialect{}
	var stmts []string
	if from.Type != to.Type {
		native, err := dd.MapType(to.Type)
		if err == nil {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s USING %s::%s",
				q(table), q(to.Name), native, q(to.Name), native))
		}
	}
	if from.Nullable != to.Nullable {
		if to.Nullable {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP NOT NULL", q(table), q(to.Name)))
		} else {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET NOT NULL", q(table), q(to.Name)))
		}
	}
	if from.Default != to.Default || from.HasDefault != to.HasDefault {
		if to.HasDefault {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s", q(table), q(to.Name), to.Default))
		} else {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT", q(table), q(to.Name)))
		}
	}
	return stmts
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
	stmt := fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)", unique, q(name), q(table), strings.Join(cols, ", "))
	if idx.Predicate != "" {
		stmt += " WHERE " + idx.Predicate
	}
	return stmt
}

func (ddl) DropIndex(_, indexName string) string {
	return fmt.Sprintf("DROP INDEX %s", q(indexName))
}

func (ddl) AddForeignKey(table, column string, ref *schema.ForeignKeyRef) string {
	return foreignKeyClause(table, column, ref)
}

func (ddl) DropForeignKey(table, constraintName string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", q(table), q(constraintName))
}
