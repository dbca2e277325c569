package query

import (
	"fmt"

	"github.com/launchpad-hq/lpcore/tenant"
)

func (c *Compiler) compileDelete(d *Delete, ctx *tenant.Context) (Result, error) {
	if !c.cfg.InjectTenant && len(d.Where) == 0 {
		return Result{}, fmt.Errorf("query: delete without tenant injection requires at least one WHERE clause")
	}

	b := newBuilder(c.cfg.Dialect)
	fmt.Fprintf(&b.sql, "DELETE FROM %s", b.quote(d.Table))

	where := append([]WhereClause{}, d.Where...)
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

	if err := b.appendReturning(d.Returning); err != nil {
		return Result{}, err
	}
	return b.result(), nil
}
