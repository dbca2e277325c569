package query

import (
	"fmt"
	"strings"

	"github.com/launchpad-hq/lpcore/tenant"
)

func (c *Compiler) compileUpdate(u *Update, ctx *tenant.Context) (Result, error) {
	if len(u.Set) == 0 {
		return Result{}, fmt.Errorf("query: update requires at least one SET column")
	}

	b := newBuilder(c.cfg.Dialect)

	assignments := make([]string, len(u.Set))
	for i, cv := range u.Set {
		assignments[i] = fmt.Sprintf("%s = %s", b.quote(cv.Column), b.arg(cv.Value))
	}

	fmt.Fprintf(&b.sql, "UPDATE %s SET %s", b.quote(u.Table), strings.Join(assignments, ", "))

	where := append([]WhereClause{}, u.Where...)
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

	if err := b.appendReturning(u.Returning); err != nil {
		return Result{}, err
	}
	return b.result(), nil
}
