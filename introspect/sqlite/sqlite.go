// Package sqlite implements introspect.Introspecter against a live
// SQLite database's sqlite_master table and PRAGMA output.
package sqlite

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/launchpad-hq/lpcore/dialect"
	_ "github.com/launchpad-hq/lpcore/dialect/sqlite"
	"github.com/launchpad-hq/lpcore/driver"
	"github.com/launchpad-hq/lpcore/introspect"
	"github.com/launchpad-hq/lpcore/schema"
	"github.com/launchpad-hq/lpcore/tenant"
)

func init() {
	introspect.Register(dialect.SQLite, func() introspect.Introspecter { return &Introspecter{} })
}

// Introspecter reconstructs a schema.Definition from a live SQLite
// database's sqlite_master table and table_info/index_list/
// foreign_key_list pragmas.
type Introspecter struct{}

// Dialect reports the backend this introspecter targets.
func (Introspecter) Dialect() dialect.Name { return dialect.SQLite }

// IntrospectSchema reads every user table via sqlite_master and the
// table_info/index_list/foreign_key_list pragmas. namespace is unused:
// SQLite has no catalog-level namespace concept.
func (Introspecter) IntrospectSchema(ctx context.Context, client driver.Client, namespace string) (*schema.Definition, *introspect.DatabaseInfo, error) {
	dia, err := dialect.Get(dialect.SQLite)
	if err != nil {
		return nil, nil, err
	}
	q := dia.Introspection()

	tableRows, err := client.Query(ctx, q.TablesQuery(), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("introspect/sqlite: listing tables: %w", err)
	}

	def := &schema.Definition{}
	for _, row := range tableRows.Rows {
		name := asString(row["name"])
		table, err := introspectTable(ctx, client, q, name)
		if err != nil {
			return nil, nil, err
		}
		def.Tables = append(def.Tables, *table)
	}

	info := &introspect.DatabaseInfo{Extensions: map[string]string{}}
	if verRows, err := client.Query(ctx, q.VersionQuery(), nil); err == nil && len(verRows.Rows) > 0 {
		for _, v := range verRows.Rows[0] {
			info.Version = asString(v)
			break
		}
	}

	return def, info, nil
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func introspectTable(ctx context.Context, client driver.Client, q dialect.Introspection, name string) (*schema.Table, error) {
	if !identifierPattern.MatchString(name) {
		return nil, fmt.Errorf("introspect/sqlite: refusing to interpolate unsafe table name %q", name)
	}
	table := &schema.Table{Name: name}

	colRows, err := client.Query(ctx, fmt.Sprintf(q.ColumnsQuery(), name), nil)
	if err != nil {
		return nil, fmt.Errorf("introspect/sqlite: columns of %q: %w", name, err)
	}

	var pkCols []string
	for _, row := range colRows.Rows {
		colName := asString(row["name"])
		nativeType := asString(row["type"])
		notNull := asBool(row["notnull"])
		dflt := row["dflt_value"]
		pk := asInt(row["pk"])

		col := schema.Column{
			Name:       colName,
			Type:       NormalizeType(nativeType),
			Nullable:   !notNull,
			HasDefault: dflt != nil,
			Tenant:     colName == tenant.DefaultColumns.AppID || colName == tenant.DefaultColumns.OrganizationID,
		}
		if dflt != nil {
			col.Default = asString(dflt)
		}
		if l, p, s, ok := parseLengthPrecisionScale(nativeType); ok {
			col.Length, col.Precision, col.Scale = l, p, s
		}
		table.Columns = append(table.Columns, col)
		if pk > 0 {
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

	idxRows, err := client.Query(ctx, fmt.Sprintf(q.IndexesQuery(), name), nil)
	if err != nil {
		return nil, fmt.Errorf("introspect/sqlite: indexes of %q: %w", name, err)
	}
	for _, row := range idxRows.Rows {
		idxName := asString(row["name"])
		if !identifierPattern.MatchString(idxName) {
			continue
		}
		infoRows, err := client.Query(ctx, fmt.Sprintf("PRAGMA index_info(%s)", idxName), nil)
		if err != nil {
			return nil, fmt.Errorf("introspect/sqlite: index_info(%q): %w", idxName, err)
		}
		var cols []string
		for _, ir := range infoRows.Rows {
			cols = append(cols, asString(ir["name"]))
		}
		table.Indexes = append(table.Indexes, schema.Index{
			Name:    idxName,
			Unique:  asBool(row["unique"]),
			Columns: cols,
		})
	}

	fkRows, err := client.Query(ctx, fmt.Sprintf(q.ForeignKeysQuery(), name), nil)
	if err != nil {
		return nil, fmt.Errorf("introspect/sqlite: foreign keys of %q: %w", name, err)
	}
	for _, row := range fkRows.Rows {
		colName := asString(row["from"])
		c := table.Column(colName)
		if c == nil {
			continue
		}
		c.References = &schema.ForeignKeyRef{
			Table:    asString(row["table"]),
			Column:   asString(row["to"]),
			OnDelete: schema.CascadePolicy(strings.ToUpper(asString(row["on_delete"]))),
			OnUpdate: schema.CascadePolicy(strings.ToUpper(asString(row["on_update"]))),
		}
	}

	return table, nil
}

// NormalizeType maps a SQLite declared column type back to the closed
// ColumnType set. SQLite's type affinity rules mean declared types are
// advisory; unrecognized or absent types are lossy-mapped to text.
func NormalizeType(native string) schema.ColumnType {
	base := strings.ToLower(strings.TrimSpace(native))
	if i := strings.IndexAny(base, "( "); i >= 0 {
		base = base[:i]
	}

	switch {
	case base == "":
		return schema.TypeText
	case base == "uuid":
		return schema.TypeUUID
	case base == "varchar" || base == "char":
		return schema.TypeString
	case base == "text" || base == "clob":
		return schema.TypeText
	case base == "int" || base == "integer" || base == "tinyint" || base == "smallint" || base == "mediumint":
		return schema.TypeInteger
	case base == "bigint":
		return schema.TypeBigInt
	case base == "float" || base == "real":
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
	case base == "blob":
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

func asInt(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case []byte:
		n, _ := strconv.ParseInt(string(t), 10, 64)
		return n
	default:
		return 0
	}
}
