// Package mysql implements dialect.Dialect for MySQL/MariaDB.
package mysql

import (
	"fmt"
	"strings"

	"github.com/launchpad-hq/lpcore/dialect"
	"github.com/launchpad-hq/lpcore/schema"
)

func init() {
	dialect.Register(dialect.MySQL, func() dialect.Dialect { return New() })
}

// Dialect is the MySQL capability set.
type Dialect struct {
	ddl   ddl
	intro introspection
}

// New constructs a MySQL dialect instance.
func New() *Dialect { return &Dialect{} }

func (d *Dialect) Name() dialect.Name { return dialect.MySQL }

// MapType maps the closed ColumnType set onto native MySQL types.
func (d *Dialect) MapType(t schema.ColumnType) (string, error) {
	switch t {
	case schema.TypeUUID:
		return "char(36)", nil
	case schema.TypeString:
		return "varchar(255)", nil
	case schema.TypeText:
		return "text", nil
	case schema.TypeInteger:
		return "int", nil
	case schema.TypeBigInt:
		return "bigint", nil
	case schema.TypeFloat:
		return "double", nil
	case schema.TypeDecimal:
		return "decimal(18,4)", nil
	case schema.TypeBoolean:
		return "tinyint(1)", nil
	case schema.TypeDateTime:
		return "datetime", nil
	case schema.TypeDate:
		return "date", nil
	case schema.TypeTime:
		return "time", nil
	case schema.TypeJSON:
		return "json", nil
	case schema.TypeBinary:
		return "blob", nil
	default:
		return "", fmt.Errorf("dialect/mysql: unknown column type %q", t)
	}
}

// QuoteIdentifier backtick-quotes name, doubling any embedded backtick.
func (d *Dialect) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// QuoteString single-quotes value for schema-declared literals (defaults).
func (d *Dialect) QuoteString(value string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range value {
		switch r {
		case '\'':
			b.WriteString("''")
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// Placeholder returns MySQL's "?" placeholder; index is ignored since
// MySQL placeholders are positional-by-order, not numbered.
func (d *Dialect) Placeholder(int) string { return "?" }

// SupportsTransactionalDDL is false: MySQL implicitly commits before and
// after most DDL statements, so migrations cannot wrap DDL + history-row
// insert in one rollback-able transaction.
func (d *Dialect) SupportsTransactionalDDL() bool { return false }

// SupportsReturning is false on MySQL; the compiler raises a typed error
// for any query that requests RETURNING against this dialect.
func (d *Dialect) SupportsReturning() bool { return false }

func (d *Dialect) DDL() dialect.DDL                     { return &d.ddl }
func (d *Dialect) Introspection() dialect.Introspection { return &d.intro }
