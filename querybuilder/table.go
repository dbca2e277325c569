// Package querybuilder provides fluent value types that accumulate query
// IR fragments and compile/execute them against a driver client. Every
// builder validates its tenant context exactly once, on its first ToSQL or
// Execute call, and compiles from a copy of the context taken then; no
// builder re-validates after that.
package querybuilder

import (
	"github.com/launchpad-hq/lpcore/driver"
	"github.com/launchpad-hq/lpcore/errs"
	"github.com/launchpad-hq/lpcore/query"
	"github.com/launchpad-hq/lpcore/tenant"
)

// TableBuilder is the entry point for Select/Insert/Update/Delete
// builders scoped to one table.
type TableBuilder struct {
	client        driver.Client
	compiler      *query.Compiler
	table         string
	ctx           *tenant.Context
	requireTenant bool
	validated     bool
	validationErr error
}

// Table constructs a TableBuilder that requires a valid tenant context.
// This is the only entry point most callers should use.
func Table(client driver.Client, compiler *query.Compiler, table string, ctx *tenant.Context) *TableBuilder {
	return &TableBuilder{client: client, compiler: compiler, table: table, ctx: ctx, requireTenant: true}
}

// TableWithoutTenant constructs a TableBuilder that never requires a
// tenant context. Callers reach for this only for cross-tenant
// administrative operations (schema registry rows, module registry rows,
// migration history) — using it for application data bypasses tenant
// scoping entirely, so it is deliberately a distinct, differently-named
// entry point rather than a flag on Table.
func TableWithoutTenant(client driver.Client, compiler *query.Compiler, table string) *TableBuilder {
	return &TableBuilder{client: client, compiler: compiler, table: table, requireTenant: false}
}

// validateOnce runs tenant-context validation exactly once per builder
// lifetime; the cached result is returned on every subsequent call.
func (t *TableBuilder) validateOnce() error {
	if t.validated {
		return t.validationErr
	}
	t.validated = true
	if t.requireTenant {
		if t.ctx == nil {
			t.validationErr = errs.ErrTenantContextMissing
			return t.validationErr
		}
		if err := t.ctx.Validate(); err != nil {
			t.validationErr = err
			return t.validationErr
		}
		snapshot := *t.ctx
		t.ctx = &snapshot
	}
	return nil
}

// Select starts a SELECT builder. Passing no columns selects "*".
func (t *TableBuilder) Select(columns ...string) *SelectBuilder {
	return &SelectBuilder{table: t, stmt: query.Select{Table: t.table, Columns: columns}}
}

// Insert starts an INSERT builder.
func (t *TableBuilder) Insert() *InsertBuilder {
	return &InsertBuilder{table: t, stmt: query.Insert{Table: t.table}}
}

// Update starts an UPDATE builder.
func (t *TableBuilder) Update() *UpdateBuilder {
	return &UpdateBuilder{table: t, stmt: query.Update{Table: t.table}}
}

// Delete starts a DELETE builder.
func (t *TableBuilder) Delete() *DeleteBuilder {
	return &DeleteBuilder{table: t, stmt: query.Delete{Table: t.table}}
}
