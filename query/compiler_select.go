package query

import (
	"fmt"
	"strings"

	"github.com/launchpad-hq/lpcore/tenant"
)

func (c *Compiler) compileSelect(s *Select, ctx *tenant.Context) (Result, error) {
	b := newBuilder(c.cfg.Dialect)

	cols := "*"
	if len(s.Columns) > 0 {
		quoted := make([]string, len(s.Columns))
		for i, col := range s.Columns {
			quoted[i] = b.quote(col)
		}
		cols = strings.Join(quoted, ", ")
	}

	fmt.Fprintf(&b.sql, "SELECT %s FROM %s", cols, b.quote(s.Table))

	for _, j := range s.Joins {
		table := b.quote(j.Table)
		if j.Alias != "" {
			table = fmt.Sprintf("%s AS %s", table, b.quote(j.Alias))
		}
		fmt.Fprintf(&b.sql, " %s JOIN %s ON %s = %s", j.Type, table, b.quoteQualified(j.LeftColumn), b.quoteQualified(j.RightColumn))
	}

	where := append([]WhereClause{}, s.Where...)
	if c.cfg.InjectTenant {
		where = append(where, c.tenantPredicates(ctx)...)
	}
	if len(where) > 0 {
		frag, err := b.compileWhere(where)
		if err != nil {
			return Result{}, err
		}
		fmt.Fprintf(&b.sql, " WHERE %s", frag)
	}

	if len(s.GroupBy) > 0 {
		quoted := make([]string, len(s.GroupBy))
		for i, col := range s.GroupBy {
			quoted[i] = b.quote(col)
		}
		fmt.Fprintf(&b.sql, " GROUP BY %s", strings.Join(quoted, ", "))
	}

	if len(s.Having) > 0 {
		frag, err := b.compileWhere(s.Having)
		if err != nil {
			return Result{}, err
		}
		fmt.Fprintf(&b.sql, " HAVING %s", frag)
	}

	if len(s.OrderBy) > 0 {
		terms := make([]string, len(s.OrderBy))
		for i, ob := range s.OrderBy {
			dir, err := validateDirection(ob.Direction)
			if err != nil {
				return Result{}, err
			}
			terms[i] = fmt.Sprintf("%s %s", b.quote(ob.Column), dir)
		}
		fmt.Fprintf(&b.sql, " ORDER BY %s", strings.Join(terms, ", "))
	}

	if s.Limit != nil {
		fmt.Fprintf(&b.sql, " LIMIT %s", b.arg(*s.Limit))
	}
	if s.Offset != nil {
		fmt.Fprintf(&b.sql, " OFFSET %s", b.arg(*s.Offset))
	}

	return b.result(), nil
}
