package querybuilder

import (
	"context"

	"github.com/launchpad-hq/lpcore/driver"
	"github.com/launchpad-hq/lpcore/query"
)

// DeleteBuilder accumulates a DELETE statement's IR fragments.
type DeleteBuilder struct {
	table *TableBuilder
	stmt  query.Delete
}

func (b *DeleteBuilder) Where(column string, op query.Operator, value any) *DeleteBuilder {
	b.stmt.Where = append(b.stmt.Where, query.WhereClause{Column: column, Operator: op, Value: value, Connector: query.And})
	return b
}

func (b *DeleteBuilder) Returning(columns ...string) *DeleteBuilder {
	b.stmt.Returning = append(b.stmt.Returning, columns...)
	return b
}

// ToSQL compiles the accumulated statement without executing it.
func (b *DeleteBuilder) ToSQL() (query.Result, error) {
	if err := b.table.validateOnce(); err != nil {
		return query.Result{}, err
	}
	return b.table.compiler.Compile(&b.stmt, b.table.ctx)
}

// Execute compiles and runs the statement via the bound driver client.
func (b *DeleteBuilder) Execute(ctx context.Context) (driver.ExecResult, error) {
	res, err := b.ToSQL()
	if err != nil {
		return driver.ExecResult{}, err
	}
	return b.table.client.Execute(ctx, res.SQL, res.Params)
}
