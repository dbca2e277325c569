package query

import (
	"fmt"
	"strings"

	"github.com/launchpad-hq/lpcore/dialect"
	"github.com/launchpad-hq/lpcore/tenant"
)

// Config configures a Compiler. InjectTenant, when true, makes every
// compiled statement require a non-nil tenant.Context and adds tenant
// predicates (SELECT/UPDATE/DELETE) or tenant columns (INSERT).
type Config struct {
	Dialect       dialect.Dialect
	InjectTenant  bool
	TenantColumns tenant.Columns
}

// Compiler lowers the query IR into a dialect's parameterized SQL.
type Compiler struct {
	cfg Config
}

// New constructs a Compiler. If cfg.TenantColumns is the zero value, the
// conventional app_id/organization_id names are used.
func New(cfg Config) *Compiler {
	if cfg.TenantColumns == (tenant.Columns{}) {
		cfg.TenantColumns = tenant.DefaultColumns
	}
	return &Compiler{cfg: cfg}
}

// builder accumulates SQL text and parameters for one compile call,
// allocating placeholders from the dialect as values are appended.
type builder struct {
	dialect dialect.Dialect
	sql     strings.Builder
	params  []any
	next    int
}

func newBuilder(d dialect.Dialect) *builder {
	return &builder{dialect: d, next: 1}
}

func (b *builder) arg(v any) string {
	ph := b.dialect.Placeholder(b.next)
	b.next++
	b.params = append(b.params, v)
	return ph
}

func (b *builder) quote(ident string) string { return b.dialect.QuoteIdentifier(ident) }

// quoteQualified quotes a possibly dotted "table.column" reference,
// quoting each dotted segment independently.
func (b *builder) quoteQualified(ref string) string {
	parts := strings.Split(ref, ".")
	for i, p := range parts {
		parts[i] = b.quote(p)
	}
	return strings.Join(parts, ".")
}

func (b *builder) result() Result {
	return Result{SQL: b.sql.String(), Params: b.params}
}

// Compile dispatches on the concrete IR node type and lowers it to a
// Result. ctx is required whenever the Compiler was configured with
// InjectTenant; its absence is a fatal error for every statement type.
func (c *Compiler) Compile(stmt any, ctx *tenant.Context) (Result, error) {
	if c.cfg.InjectTenant && ctx == nil {
		return Result{}, fmt.Errorf("query: tenant context is required when tenant injection is enabled")
	}
	if ctx != nil {
		if err := ctx.Validate(); err != nil {
			return Result{}, err
		}
	}

	switch s := stmt.(type) {
	case *Select:
		return c.compileSelect(s, ctx)
	case *Insert:
		return c.compileInsert(s, ctx)
	case *Update:
		return c.compileUpdate(s, ctx)
	case *Delete:
		return c.compileDelete(s, ctx)
	default:
		return Result{}, fmt.Errorf("query: unsupported statement type %T", stmt)
	}
}

// validateDirection enforces the closed {asc, desc} set case-insensitively.
// Any other value is rejected outright — this is the regression guard
// spec.md calls out explicitly, since Column/Direction travel as plain
// strings from the dynamic builder layer.
func validateDirection(d Direction) (string, error) {
	switch strings.ToLower(string(d)) {
	case "asc":
		return "ASC", nil
	case "desc":
		return "DESC", nil
	default:
		return "", fmt.Errorf("query: invalid ORDER BY direction %q", d)
	}
}

// compileWhere renders a predicate list and returns the clauses joined by
// their connectors; callers write the WHERE/HAVING keyword and the result
// into b.sql themselves.
func (b *builder) compileWhere(clauses []WhereClause) (string, error) {
	var parts []string
	for i, cl := range clauses {
		frag, err := b.compileClause(cl)
		if err != nil {
			return "", err
		}
		if i == 0 {
			parts = append(parts, frag)
			continue
		}
		connector := cl.Connector
		if connector == "" {
			connector = And
		}
		parts = append(parts, string(connector)+" "+frag)
	}
	return strings.Join(parts, " "), nil
}

func (b *builder) compileClause(cl WhereClause) (string, error) {
	col := b.quote(cl.Column)
	switch cl.Operator {
	case OpIsNull, OpIsNotNull:
		return fmt.Sprintf("%s %s", col, cl.Operator), nil
	case OpIn, OpNotIn:
		values, ok := asSlice(cl.Value)
		if !ok || len(values) == 0 {
			return "", fmt.Errorf("query: %s requires a non-empty value list", cl.Operator)
		}
		placeholders := make([]string, len(values))
		for i, v := range values {
			placeholders[i] = b.arg(v)
		}
		return fmt.Sprintf("%s %s (%s)", col, cl.Operator, strings.Join(placeholders, ", ")), nil
	default:
		return fmt.Sprintf("%s %s %s", col, cl.Operator, b.arg(cl.Value)), nil
	}
}

func asSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []string:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out, true
	case []int:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out, true
	default:
		return nil, false
	}
}

// tenantPredicates returns the two tenant WhereClauses injected into
// SELECT/UPDATE/DELETE, always AND-connected and always appended after
// any user-supplied predicates.
func (c *Compiler) tenantPredicates(ctx *tenant.Context) []WhereClause {
	return []WhereClause{
		{Column: c.cfg.TenantColumns.AppID, Operator: OpEq, Value: ctx.AppID, Connector: And},
		{Column: c.cfg.TenantColumns.OrganizationID, Operator: OpEq, Value: ctx.OrganizationID, Connector: And},
	}
}
