package querybuilder

import (
	"context"

	"github.com/launchpad-hq/lpcore/driver"
	"github.com/launchpad-hq/lpcore/query"
)

// InsertBuilder accumulates an INSERT statement's IR fragments.
type InsertBuilder struct {
	table *TableBuilder
	stmt  query.Insert
}

// Row appends one row built from a plain map, preserving insertion order
// is the caller's responsibility when order matters; for guaranteed
// column order use RowValues.
func (b *InsertBuilder) Row(values map[string]any) *InsertBuilder {
	row := make(query.Row, 0, len(values))
	for col, v := range values {
		row = append(row, query.ColumnValue{Column: col, Value: v})
	}
	b.stmt.Rows = append(b.stmt.Rows, row)
	return b
}

// RowValues appends one row from an explicitly ordered column/value list.
func (b *InsertBuilder) RowValues(row query.Row) *InsertBuilder {
	b.stmt.Rows = append(b.stmt.Rows, row)
	return b
}

func (b *InsertBuilder) Returning(columns ...string) *InsertBuilder {
	b.stmt.Returning = append(b.stmt.Returning, columns...)
	return b
}

func (b *InsertBuilder) OnConflict(u query.Upsert) *InsertBuilder {
	b.stmt.Upsert = &u
	return b
}

// ToSQL compiles the accumulated statement without executing it.
func (b *InsertBuilder) ToSQL() (query.Result, error) {
	if err := b.table.validateOnce(); err != nil {
		return query.Result{}, err
	}
	return b.table.compiler.Compile(&b.stmt, b.table.ctx)
}

// Execute compiles and runs the statement via the bound driver client.
func (b *InsertBuilder) Execute(ctx context.Context) (driver.ExecResult, error) {
	res, err := b.ToSQL()
	if err != nil {
		return driver.ExecResult{}, err
	}
	return b.table.client.Execute(ctx, res.SQL, res.Params)
}
