// Package sqlite implements dialect.Dialect for SQLite.
package sqlite

import (
	"fmt"
	"strings"

	"github.com/launchpad-hq/lpcore/dialect"
	"github.com/launchpad-hq/lpcore/schema"
)

func init() {
	dialect.Register(dialect.SQLite, func() dialect.Dialect { return New() })
}

// Dialect is the SQLite capability set.
type Dialect struct {
	ddl   ddl
	intro introspection
}

// New constructs a SQLite dialect instance.
func New() *Dialect { return &Dialect{} }

func (d *Dialect) Name() dialect.Name { return dialect.SQLite }

// MapType maps the closed ColumnType set onto SQLite's storage classes.
// SQLite is dynamically typed, but a declared type still drives column
// affinity, so the mapping is still worth getting right.
func (d *Dialect) MapType(t schema.ColumnType) (string, error) {
	switch t {
	case schema.TypeUUID, schema.TypeString, schema.TypeText:
		return "TEXT", nil
	case schema.TypeInteger, schema.TypeBigInt, schema.TypeBoolean:
		return "INTEGER", nil
	case schema.TypeFloat, schema.TypeDecimal:
		return "REAL", nil
	case schema.TypeDateTime, schema.TypeDate, schema.TypeTime:
		return "TEXT", nil
	case schema.TypeJSON:
		return "TEXT", nil
	case schema.TypeBinary:
		return "BLOB", nil
	default:
		return "", fmt.Errorf("dialect/sqlite: unknown column type %q", t)
	}
}

// QuoteIdentifier double-quotes name, doubling any embedded quote.
func (d *Dialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteString single-quotes value for schema-declared literals.
func (d *Dialect) QuoteString(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// Placeholder returns SQLite's "?" placeholder.
func (d *Dialect) Placeholder(int) string { return "?" }

func (d *Dialect) SupportsTransactionalDDL() bool { return true }

// SupportsReturning is true for SQLite >= 3.35; this module targets that
// baseline, matching the teacher's pure-Go modernc.org/sqlite driver which
// bundles a current SQLite release.
func (d *Dialect) SupportsReturning() bool { return true }

func (d *Dialect) DDL() dialect.DDL                     { return &d.ddl }
func (d *Dialect) Introspection() dialect.Introspection { return &d.intro }
