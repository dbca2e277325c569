package querybuilder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchpad-hq/lpcore/dialect/postgres"
	"github.com/launchpad-hq/lpcore/query"
	"github.com/launchpad-hq/lpcore/querybuilder"
	"github.com/launchpad-hq/lpcore/tenant"
)

func newCompiler(injectTenant bool) *query.Compiler {
	return query.New(query.Config{Dialect: postgres.New(), InjectTenant: injectTenant})
}

func TestSelectBuilder_ToSQL(t *testing.T) {
	ctx := &tenant.Context{AppID: "app_1", OrganizationID: "org_1"}
	tbl := querybuilder.Table(nil, newCompiler(true), "users", ctx)

	res, err := tbl.Select("id", "email").
		Where("active", query.OpEq, true).
		OrderBy("created_at", query.Desc).
		Limit(10).
		ToSQL()

	require.NoError(t, err)
	assert.Equal(t, `SELECT "id", "email" FROM "users" WHERE "active" = $1 AND "app_id" = $2 AND "organization_id" = $3 ORDER BY "created_at" DESC LIMIT $4`, res.SQL)
}

func TestInsertBuilder_ToSQL(t *testing.T) {
	tbl := querybuilder.TableWithoutTenant(nil, newCompiler(false), "users")
	res, err := tbl.Insert().
		RowValues(query.Row{{Column: "id", Value: "u1"}, {Column: "email", Value: "a@example.com"}}).
		Returning("id").
		ToSQL()

	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "users" ("id", "email") VALUES ($1, $2) RETURNING "id"`, res.SQL)
}

func TestUpdateBuilder_ToSQL(t *testing.T) {
	tbl := querybuilder.TableWithoutTenant(nil, newCompiler(false), "users")
	res, err := tbl.Update().
		Set("email", "b@example.com").
		Where("id", query.OpEq, "u1").
		ToSQL()

	require.NoError(t, err)
	assert.Equal(t, `UPDATE "users" SET "email" = $1 WHERE "id" = $2`, res.SQL)
}

func TestDeleteBuilder_WithoutWhereAndWithoutTenantFails(t *testing.T) {
	tbl := querybuilder.TableWithoutTenant(nil, newCompiler(false), "users")
	_, err := tbl.Delete().ToSQL()
	assert.Error(t, err)
}

func TestTableBuilder_RequiresTenantContextByDefault(t *testing.T) {
	tbl := querybuilder.Table(nil, newCompiler(false), "users", nil)
	_, err := tbl.Select().ToSQL()
	assert.Error(t, err)
}

func TestTableBuilder_ValidatesTenantOnlyOnce(t *testing.T) {
	ctx := &tenant.Context{AppID: "app_1", OrganizationID: "org_1"}
	tbl := querybuilder.Table(nil, newCompiler(true), "users", ctx)
	sel := tbl.Select()

	_, err := sel.ToSQL()
	require.NoError(t, err)

	// Mutate the context after the first validation; a cached builder
	// must not re-validate and surface the now-invalid context.
	ctx.AppID = ""
	_, err = sel.ToSQL()
	require.NoError(t, err)
}

func TestTableWithoutTenant_NeverRequiresContext(t *testing.T) {
	tbl := querybuilder.TableWithoutTenant(nil, newCompiler(false), "lp_modules")
	res, err := tbl.Select("name").ToSQL()
	require.NoError(t, err)
	assert.Equal(t, `SELECT "name" FROM "lp_modules"`, res.SQL)
}
