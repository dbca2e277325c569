package query

import (
	"fmt"
	"strings"

	"github.com/launchpad-hq/lpcore/errs"
	"github.com/launchpad-hq/lpcore/tenant"
)

func (c *Compiler) compileInsert(ins *Insert, ctx *tenant.Context) (Result, error) {
	if len(ins.Rows) == 0 {
		return Result{}, fmt.Errorf("query: insert requires at least one row")
	}

	rows := make([]Row, len(ins.Rows))
	copy(rows, ins.Rows)
	if c.cfg.InjectTenant {
		for i := range rows {
			rows[i] = injectTenantColumns(rows[i], c.cfg.TenantColumns, ctx)
		}
	}

	if len(rows) == 1 {
		return c.compileInsertOne(ins, rows[0])
	}
	return c.compileInsertMany(ins, rows)
}

// injectTenantColumns appends the tenant columns to row if they are not
// already present, leaving an explicitly-supplied value untouched.
func injectTenantColumns(row Row, cols tenant.Columns, ctx *tenant.Context) Row {
	if _, ok := row.Get(cols.AppID); !ok {
		row = append(row, ColumnValue{Column: cols.AppID, Value: ctx.AppID})
	}
	if _, ok := row.Get(cols.OrganizationID); !ok {
		row = append(row, ColumnValue{Column: cols.OrganizationID, Value: ctx.OrganizationID})
	}
	return row
}

func (c *Compiler) compileInsertOne(ins *Insert, row Row) (Result, error) {
	b := newBuilder(c.cfg.Dialect)

	cols := row.Columns()
	quotedCols := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	for i, cv := range row {
		quotedCols[i] = b.quote(cv.Column)
		placeholders[i] = b.arg(cv.Value)
	}

	fmt.Fprintf(&b.sql, "INSERT INTO %s (%s) VALUES (%s)", b.quote(ins.Table), strings.Join(quotedCols, ", "), strings.Join(placeholders, ", "))

	if err := b.appendUpsert(ins.Upsert, cols); err != nil {
		return Result{}, err
	}
	if err := b.appendReturning(ins.Returning); err != nil {
		return Result{}, err
	}
	return b.result(), nil
}

// compileInsertMany unions the column keys across every row (in
// first-appearance order) and emits one VALUES tuple per row, filling
// absent keys with the literal SQL keyword NULL rather than a bound
// parameter — a missing key isn't caller-supplied data, it's the absence
// of data, so it never needs to flow through the parameter list.
func (c *Compiler) compileInsertMany(ins *Insert, rows []Row) (Result, error) {
	b := newBuilder(c.cfg.Dialect)

	var cols []string
	seen := map[string]bool{}
	for _, row := range rows {
		for _, cv := range row {
			if !seen[cv.Column] {
				seen[cv.Column] = true
				cols = append(cols, cv.Column)
			}
		}
	}

	quotedCols := make([]string, len(cols))
	for i, col := range cols {
		quotedCols[i] = b.quote(col)
	}

	tuples := make([]string, len(rows))
	for i, row := range rows {
		placeholders := make([]string, len(cols))
		for j, col := range cols {
			if v, ok := row.Get(col); ok {
				placeholders[j] = b.arg(v)
			} else {
				placeholders[j] = "NULL"
			}
		}
		tuples[i] = "(" + strings.Join(placeholders, ", ") + ")"
	}

	fmt.Fprintf(&b.sql, "INSERT INTO %s (%s) VALUES %s", b.quote(ins.Table), strings.Join(quotedCols, ", "), strings.Join(tuples, ", "))

	if err := b.appendUpsert(ins.Upsert, cols); err != nil {
		return Result{}, err
	}
	if err := b.appendReturning(ins.Returning); err != nil {
		return Result{}, err
	}
	return b.result(), nil
}

func (b *builder) appendReturning(returning []string) error {
	if len(returning) == 0 {
		return nil
	}
	if !b.dialect.SupportsReturning() {
		return errs.Unsupportedf("RETURNING is not supported on dialect %q", b.dialect.Name())
	}
	quoted := make([]string, len(returning))
	for i, c := range returning {
		quoted[i] = b.quote(c)
	}
	fmt.Fprintf(&b.sql, " RETURNING %s", strings.Join(quoted, ", "))
	return nil
}
