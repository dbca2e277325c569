// Package postgres implements dialect.Dialect for PostgreSQL.
package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/launchpad-hq/lpcore/dialect"
	"github.com/launchpad-hq/lpcore/schema"
)

func init() {
	dialect.Register(dialect.Postgres, func() dialect.Dialect { return New() })
}

// Dialect is the PostgreSQL capability set.
type Dialect struct {
	ddl   ddl
	intro introspection
}

// New constructs a PostgreSQL dialect instance.
func New() *Dialect {
	return &Dialect{}
}

func (d *Dialect) Name() dialect.Name { return dialect.Postgres }

// MapType maps the closed ColumnType set onto native PostgreSQL types.
func (d *Dialect) MapType(t schema.ColumnType) (string, error) {
	switch t {
	case schema.TypeUUID:
		return "uuid", nil
	case schema.TypeString:
		return "varchar(255)", nil
	case schema.TypeText:
		return "text", nil
	case schema.TypeInteger:
		return "integer", nil
	case schema.TypeBigInt:
		return "bigint", nil
	case schema.TypeFloat:
		return "double precision", nil
	case schema.TypeDecimal:
		return "numeric", nil
	case schema.TypeBoolean:
		return "boolean", nil
	case schema.TypeDateTime:
		return "timestamptz", nil
	case schema.TypeDate:
		return "date", nil
	case schema.TypeTime:
		return "time", nil
	case schema.TypeJSON:
		return "jsonb", nil
	case schema.TypeBinary:
		return "bytea", nil
	default:
		return "", fmt.Errorf("dialect/postgres: unknown column type %q", t)
	}
}

// QuoteIdentifier double-quotes name, doubling any embedded quote.
func (d *Dialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteString single-quotes value, doubling any embedded quote. Used only
// for schema-declared literals (defaults), never for user-supplied values,
// which always flow through placeholders.
func (d *Dialect) QuoteString(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// Placeholder returns PostgreSQL's $N positional placeholder.
func (d *Dialect) Placeholder(index int) string {
	return "$" + strconv.Itoa(index)
}

func (d *Dialect) SupportsTransactionalDDL() bool { return true }
func (d *Dialect) SupportsReturning() bool         { return true }
func (d *Dialect) DDL() dialect.DDL                { return &d.ddl }
func (d *Dialect) Introspection() dialect.Introspection { return &d.intro }
