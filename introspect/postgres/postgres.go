// Package postgres implements introspect.Introspecter against a live
// PostgreSQL database's system catalogs.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/launchpad-hq/lpcore/dialect"
	_ "github.com/launchpad-hq/lpcore/dialect/postgres"
	"github.com/launchpad-hq/lpcore/driver"
	"github.com/launchpad-hq/lpcore/introspect"
	"github.com/launchpad-hq/lpcore/schema"
	"github.com/launchpad-hq/lpcore/tenant"
)

func init() {
	introspect.Register(dialect.Postgres, func() introspect.Introspecter { return &Introspecter{} })
}

// Introspecter reconstructs a schema.Definition from a live Postgres
// database's pg_catalog tables.
type Introspecter struct{}

// Dialect reports the backend this introspecter targets.
func (Introspecter) Dialect() dialect.Name { return dialect.Postgres }

// IntrospectSchema reads every base table in namespace, plus its columns,
// primary key, foreign keys, and indexes, normalizing native types to the
// closed schema.ColumnType set.
func (Introspecter) IntrospectSchema(ctx context.Context, client driver.Client, namespace string) (*schema.Definition, *introspect.DatabaseInfo, error) {
	dia, err := dialect.Get(dialect.Postgres)
	if err != nil {
		return nil, nil, err
	}
	q := dia.Introspection()

	tableRows, err := client.Query(ctx, q.TablesQuery(), []any{namespace})
	if err != nil {
		return nil, nil, fmt.Errorf("introspect/postgres: listing tables: %w", err)
	}

	def := &schema.Definition{}
	for _, row := range tableRows.Rows {
		name := asString(row["relname"])
		table, err := introspectTable(ctx, client, q, namespace, name)
		if err != nil {
			return nil, nil, err
		}
		def.Tables = append(def.Tables, *table)
	}

	info, err := introspectDatabaseInfo(ctx, client, q)
	if err != nil {
		return nil, nil, err
	}

	return def, info, nil
}

func introspectTable(ctx context.Context, client driver.Client, q dialect.Introspection, namespace, name string) (*schema.Table, error) {
	table := &schema.Table{Name: name}

	colRows, err := client.Query(ctx, q.ColumnsQuery(), []any{namespace, name})
	if err != nil {
		return nil, fmt.Errorf("introspect/postgres: columns of %q: %w", name, err)
	}

	var pkCols []string
	for _, row := range colRows.Rows {
		colName := asString(row["column_name"])
		nativeType := asString(row["native_type"])
		notNull := asBool(row["not_null"])
		defaultExpr := asString(row["default_expr"])
		isPK := asBool(row["is_primary_key"])

		col := schema.Column{
			Name:       colName,
			Type:       NormalizeType(nativeType),
			Nullable:   !notNull,
			Default:    defaultExpr,
			HasDefault: defaultExpr != "",
			Tenant:     colName == tenant.DefaultColumns.AppID || colName == tenant.DefaultColumns.OrganizationID,
		}
		if l, p, s, ok := parseLengthPrecisionScale(nativeType); ok {
			col.Length, col.Precision, col.Scale = l, p, s
		}
		table.Columns = append(table.Columns, col)
		if isPK {
			pkCols = append(pkCols, colName)
		}
	}
	if len(pkCols) == 1 {
		if c := table.Column(pkCols[0]); c != nil {
			c.PrimaryKey = true
		}
	} else if len(pkCols) > 1 {
		table.PrimaryKey = pkCols
	}

	idxRows, err := client.Query(ctx, q.IndexesQuery(), []any{namespace, name})
	if err != nil {
		return nil, fmt.Errorf("introspect/postgres: indexes of %q: %w", name, err)
	}
	for _, row := range idxRows.Rows {
		table.Indexes = append(table.Indexes, schema.Index{
			Name:      asString(row["index_name"]),
			Unique:    asBool(row["is_unique"]),
			Columns:   extractIndexColumns(asString(row["index_def"])),
			Predicate: asString(row["predicate"]),
		})
	}

	fkRows, err := client.Query(ctx, q.ForeignKeysQuery(), []any{namespace, name})
	if err != nil {
		return nil, fmt.Errorf("introspect/postgres: foreign keys of %q: %w", name, err)
	}
	for _, row := range fkRows.Rows {
		colName := asString(row["column_name"])
		c := table.Column(colName)
		if c == nil {
			continue
		}
		c.References = &schema.ForeignKeyRef{
			Table:    asString(row["referenced_table"]),
			Column:   asString(row["referenced_column"]),
			OnDelete: cascadeFromCode(asString(row["on_delete"])),
			OnUpdate: cascadeFromCode(asString(row["on_update"])),
		}
	}

	return table, nil
}

func introspectDatabaseInfo(ctx context.Context, client driver.Client, q dialect.Introspection) (*introspect.DatabaseInfo, error) {
	info := &introspect.DatabaseInfo{Extensions: map[string]string{}}

	verRows, err := client.Query(ctx, q.VersionQuery(), nil)
	if err != nil {
		return nil, fmt.Errorf("introspect/postgres: version: %w", err)
	}
	if len(verRows.Rows) > 0 {
		for _, v := range verRows.Rows[0] {
			info.Version = asString(v)
			break
		}
	}

	extRows, err := client.Query(ctx, q.ExtensionsQuery(), nil)
	if err != nil {
		return nil, fmt.Errorf("introspect/postgres: extensions: %w", err)
	}
	for _, row := range extRows.Rows {
		info.Extensions[asString(row["extname"])] = asString(row["extversion"])
	}

	return info, nil
}

func cascadeFromCode(code string) schema.CascadePolicy {
	switch code {
	case "c":
		return schema.CascadeCascade
	case "n":
		return schema.CascadeSetNull
	case "r":
		return schema.CascadeRestrict
	case "d":
		return schema.CascadeSetDefault
	default:
		return schema.CascadeNoAction
	}
}

// NormalizeType maps a Postgres format_type() string back to the closed
// ColumnType set per spec's conservative table: known families map
// precisely, anything unrecognized is lossy-mapped to text.
func NormalizeType(native string) schema.ColumnType {
	base := strings.ToLower(strings.TrimSpace(native))
	if i := strings.IndexAny(base, "( "); i >= 0 {
		base = base[:i]
	}

	switch {
	case base == "uuid":
		return schema.TypeUUID
	case base == "varchar" || base == "character varying" || strings.HasPrefix(native, "character varying"):
		return schema.TypeString
	case base == "text":
		return schema.TypeText
	case base == "int4" || base == "integer" || base == "int":
		return schema.TypeInteger
	case base == "int8" || base == "bigint":
		return schema.TypeBigInt
	case base == "float4" || base == "real":
		return schema.TypeFloat
	case base == "float8" || base == "double" || strings.HasPrefix(native, "double precision"):
		return schema.TypeFloat
	case base == "numeric" || base == "decimal":
		return schema.TypeDecimal
	case base == "boolean" || base == "bool":
		return schema.TypeBoolean
	case strings.HasPrefix(native, "timestamp"):
		return schema.TypeDateTime
	case base == "date":
		return schema.TypeDate
	case strings.HasPrefix(native, "time"):
		return schema.TypeTime
	case base == "jsonb" || base == "json":
		return schema.TypeJSON
	case base == "bytea":
		return schema.TypeBinary
	default:
		return schema.TypeText
	}
}

var lengthRe = regexp.MustCompile(`\((\d+)(?:,(\d+))?\)`)

func parseLengthPrecisionScale(native string) (length, precision, scale int, ok bool) {
	m := lengthRe.FindStringSubmatch(native)
	if m == nil {
		return 0, 0, 0, false
	}
	n, _ := strconv.Atoi(m[1])
	if strings.Contains(strings.ToLower(native), "numeric") || strings.Contains(strings.ToLower(native), "decimal") {
		precision = n
		if m[2] != "" {
			scale, _ = strconv.Atoi(m[2])
		}
		return 0, precision, scale, true
	}
	return n, 0, 0, true
}

// extractIndexColumns does a best-effort parse of pg_get_indexdef's
// "CREATE INDEX ... ON tbl (col1, col2)" text to recover the column list.
// Expression indexes are lossy: the raw expression text is kept verbatim.
func extractIndexColumns(indexDef string) []string {
	start := strings.LastIndex(indexDef, "(")
	end := strings.LastIndex(indexDef, ")")
	if start < 0 || end <= start {
		return nil
	}
	raw := indexDef[start+1 : end]
	parts := strings.Split(raw, ",")
	cols := make([]string, 0, len(parts))
	for _, p := range parts {
		cols = append(cols, strings.TrimSpace(p))
	}
	return cols
}

func asString(v any) string {
	if v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func asBool(v any) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return false
}
