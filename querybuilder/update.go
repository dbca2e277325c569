package querybuilder

import (
	"context"

	"github.com/launchpad-hq/lpcore/driver"
	"github.com/launchpad-hq/lpcore/query"
)

// UpdateBuilder accumulates an UPDATE statement's IR fragments.
type UpdateBuilder struct {
	table *TableBuilder
	stmt  query.Update
}

func (b *UpdateBuilder) Set(column string, value any) *UpdateBuilder {
	b.stmt.Set = append(b.stmt.Set, query.ColumnValue{Column: column, Value: value})
	return b
}

func (b *UpdateBuilder) Where(column string, op query.Operator, value any) *UpdateBuilder {
	b.stmt.Where = append(b.stmt.Where, query.WhereClause{Column: column, Operator: op, Value: value, Connector: query.And})
	return b
}

func (b *UpdateBuilder) Returning(columns ...string) *UpdateBuilder {
	b.stmt.Returning = append(b.stmt.Returning, columns...)
	return b
}

// ToSQL compiles the accumulated statement without executing it.
func (b *UpdateBuilder) ToSQL() (query.Result, error) {
	if err := b.table.validateOnce(); err != nil {
		return query.Result{}, err
	}
	return b.table.compiler.Compile(&b.stmt, b.table.ctx)
}

// Execute compiles and runs the statement via the bound driver client.
func (b *UpdateBuilder) Execute(ctx context.Context) (driver.ExecResult, error) {
	res, err := b.ToSQL()
	if err != nil {
		return driver.ExecResult{}, err
	}
	return b.table.client.Execute(ctx, res.SQL, res.Params)
}
