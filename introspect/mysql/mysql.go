// Package mysql implements introspect.Introspecter against a live MySQL
// database's information_schema tables.
package mysql

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/launchpad-hq/lpcore/dialect"
	_ "github.com/launchpad-hq/lpcore/dialect/mysql"
	"github.com/launchpad-hq/lpcore/driver"
	"github.com/launchpad-hq/lpcore/introspect"
	"github.com/launchpad-hq/lpcore/schema"
	"github.com/launchpad-hq/lpcore/tenant"
)

func init() {
	introspect.Register(dialect.MySQL, func() introspect.Introspecter { return &Introspecter{} })
}

// Introspecter reconstructs a schema.Definition from a live MySQL
// database's information_schema.
type Introspecter struct{}

// Dialect reports the backend this introspecter targets.
func (Introspecter) Dialect() dialect.Name { return dialect.MySQL }

// IntrospectSchema reads every base table, plus its columns, primary key,
// foreign keys, and indexes, normalizing native types to the closed
// schema.ColumnType set. namespace is unused: MySQL's information_schema
// queries already scope to DATABASE().
func (Introspecter) IntrospectSchema(ctx context.Context, client driver.Client, namespace string) (*schema.Definition, *introspect.DatabaseInfo, error) {
	dia, err := dialect.Get(dialect.MySQL)
	if err != nil {
		return nil, nil, err
	}
	q := dia.Introspection()

	tableRows, err := client.Query(ctx, q.TablesQuery(), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("introspect/mysql: listing tables: %w", err)
	}

	def := &schema.Definition{}
	for _, row := range tableRows.Rows {
		name := asString(row["table_name"])
		table, err := introspectTable(ctx, client, q, name)
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

func introspectTable(ctx context.Context, client driver.Client, q dialect.Introspection, name string) (*schema.Table, error) {
	table := &schema.Table{Name: name}

	colRows, err := client.Query(ctx, q.ColumnsQuery(), []any{name})
	if err != nil {
		return nil, fmt.Errorf("introspect/mysql: columns of %q: %w", name, err)
	}

	var pkCols []string
	for _, row := range colRows.Rows {
		colName := asString(row["column_name"])
		nativeType := asString(row["column_type"])
		nullable := strings.EqualFold(asString(row["is_nullable"]), "YES")
		defaultVal := row["column_default"]
		key := asString(row["column_key"])

		col := schema.Column{
			Name:       colName,
			Type:       NormalizeType(nativeType),
			Nullable:   nullable,
			HasDefault: defaultVal != nil,
			Tenant:     colName == tenant.DefaultColumns.AppID || colName == tenant.DefaultColumns.OrganizationID,
		}
		if defaultVal != nil {
			col.Default = asString(defaultVal)
		}
		if l, p, s, ok := parseLengthPrecisionScale(nativeType); ok {
			col.Length, col.Precision, col.Scale = l, p, s
		}
		table.Columns = append(table.Columns, col)
		if key == "PRI" {
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

	idxRows, err := client.Query(ctx, q.IndexesQuery(), []any{name})
	if err != nil {
		return nil, fmt.Errorf("introspect/mysql: indexes of %q: %w", name, err)
	}
	for _, row := range idxRows.Rows {
		cols := strings.Split(asString(row["index_columns"]), ",")
		table.Indexes = append(table.Indexes, schema.Index{
			Name:    asString(row["index_name"]),
			Unique:  asBool(row["is_unique"]),
			Columns: cols,
		})
	}

	fkRows, err := client.Query(ctx, q.ForeignKeysQuery(), []any{name})
	if err != nil {
		return nil, fmt.Errorf("introspect/mysql: foreign keys of %q: %w", name, err)
	}
	for _, row := range fkRows.Rows {
		colName := asString(row["column_name"])
		c := table.Column(colName)
		if c == nil {
			continue
		}
		c.References = &schema.ForeignKeyRef{
			Table:    asString(row["referenced_table_name"]),
			Column:   asString(row["referenced_column_name"]),
			OnDelete: schema.CascadePolicy(strings.ToUpper(asString(row["delete_rule"]))),
			OnUpdate: schema.CascadePolicy(strings.ToUpper(asString(row["update_rule"]))),
		}
	}

	return table, nil
}

func introspectDatabaseInfo(ctx context.Context, client driver.Client, q dialect.Introspection) (*introspect.DatabaseInfo, error) {
	info := &introspect.DatabaseInfo{Extensions: map[string]string{}}
	verRows, err := client.Query(ctx, q.VersionQuery(), nil)
	if err != nil {
		return nil, fmt.Errorf("introspect/mysql: version: %w", err)
	}
	if len(verRows.Rows) > 0 {
		for _, v := range verRows.Rows[0] {
			info.Version = asString(v)
			break
		}
	}
	return info, nil
}

// NormalizeType maps a MySQL column_type string back to the closed
// ColumnType set. tinyint(1) is MySQL's boolean idiom; anything
// unrecognized is lossy-mapped to text.
func NormalizeType(native string) schema.ColumnType {
	base := strings.ToLower(strings.TrimSpace(native))
	if i := strings.IndexAny(base, "( "); i >= 0 {
		base = base[:i]
	}

	switch {
	case strings.HasPrefix(native, "tinyint(1)"):
		return schema.TypeBoolean
	case base == "varchar" || base == "char":
		return schema.TypeString
	case base == "text" || base == "mediumtext" || base == "longtext" || base == "tinytext":
		return schema.TypeText
	case base == "int" || base == "tinyint" || base == "smallint" || base == "mediumint":
		return schema.TypeInteger
	case base == "bigint":
		return schema.TypeBigInt
	case base == "float":
		return schema.TypeFloat
	case base == "double":
		return schema.TypeFloat
	case base == "decimal" || base == "numeric":
		return schema.TypeDecimal
	case base == "boolean" || base == "bool":
		return schema.TypeBoolean
	case base == "datetime" || base == "timestamp":
		return schema.TypeDateTime
	case base == "date":
		return schema.TypeDate
	case base == "time":
		return schema.TypeTime
	case base == "json":
		return schema.TypeJSON
	case base == "blob" || base == "varbinary" || base == "binary":
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
	lower := strings.ToLower(native)
	if strings.HasPrefix(lower, "decimal") || strings.HasPrefix(lower, "numeric") {
		precision = n
		if m[2] != "" {
			scale, _ = strconv.Atoi(m[2])
		}
		return 0, precision, scale, true
	}
	return n, 0, 0, true
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
	switch t := v.(type) {
	case bool:
		return t
	case int64:
		return t != 0
	case []byte:
		return string(t) == "1"
	default:
		return false
	}
}
