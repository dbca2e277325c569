package querybuilder

import (
	"context"

	"github.com/launchpad-hq/lpcore/driver"
	"github.com/launchpad-hq/lpcore/query"
)

// SelectBuilder accumulates a SELECT statement's IR fragments.
type SelectBuilder struct {
	table *TableBuilder
	stmt  query.Select
}

func (b *SelectBuilder) Where(column string, op query.Operator, value any) *SelectBuilder {
	return b.where(column, op, value, query.And)
}

func (b *SelectBuilder) OrWhere(column string, op query.Operator, value any) *SelectBuilder {
	return b.where(column, op, value, query.Or)
}

func (b *SelectBuilder) where(column string, op query.Operator, value any, connector query.Connector) *SelectBuilder {
	b.stmt.Where = append(b.stmt.Where, query.WhereClause{Column: column, Operator: op, Value: value, Connector: connector})
	return b
}

func (b *SelectBuilder) Join(j query.Join) *SelectBuilder {
	b.stmt.Joins = append(b.stmt.Joins, j)
	return b
}

func (b *SelectBuilder) GroupBy(columns ...string) *SelectBuilder {
	b.stmt.GroupBy = append(b.stmt.GroupBy, columns...)
	return b
}

func (b *SelectBuilder) Having(column string, op query.Operator, value any) *SelectBuilder {
	b.stmt.Having = append(b.stmt.Having, query.WhereClause{Column: column, Operator: op, Value: value, Connector: query.And})
	return b
}

func (b *SelectBuilder) OrderBy(column string, direction query.Direction) *SelectBuilder {
	b.stmt.OrderBy = append(b.stmt.OrderBy, query.OrderBy{Column: column, Direction: direction})
	return b
}

func (b *SelectBuilder) Limit(n int) *SelectBuilder {
	b.stmt.Limit = &n
	return b
}

func (b *SelectBuilder) Offset(n int) *SelectBuilder {
	b.stmt.Offset = &n
	return b
}

// ToSQL compiles the accumulated statement without executing it.
func (b *SelectBuilder) ToSQL() (query.Result, error) {
	if err := b.table.validateOnce(); err != nil {
		return query.Result{}, err
	}
	return b.table.compiler.Compile(&b.stmt, b.table.ctx)
}

// Execute compiles and runs the statement via the bound driver client.
func (b *SelectBuilder) Execute(ctx context.Context) (driver.QueryResult, error) {
	res, err := b.ToSQL()
	if err != nil {
		return driver.QueryResult{}, err
	}
	return b.table.client.Query(ctx, res.SQL, res.Params)
}
