// Package dialect exposes the per-backend capability set the rest of the
// engine compiles against: type mapping, identifier quoting, placeholder
// syntax, DDL emission, transactional-DDL support, and introspection
// query text. It never executes SQL itself.
package dialect

import (
	"fmt"
	"sync"

	"github.com/launchpad-hq/lpcore/schema"
)

// Name is the closed set of supported SQL dialects.
type Name string

const (
	Postgres Name = "postgres"
	MySQL    Name = "mysql"
	SQLite   Name = "sqlite"

	// Mongo identifies the document-backend variant. It never registers
	// a Dialect (MongoDB has no DDL/Introspection in this package's
	// sense): callers that see Name == Mongo route straight to
	// driver/mongodoc instead of calling Get.
	Mongo Name = "mongodb"
)

// DDL groups the data-definition-language emitters a dialect must
// provide. Every method returns a complete statement (or statements, for
// operations that require more than one) ready to execute as-is; no
// caller-supplied value is ever interpolated into the returned string —
// DDL only ever carries identifiers and schema-declared literals such as
// column defaults.
type DDL interface {
	CreateTable(t *schema.Table) (statement string, foreignKeys []string)
	DropTable(name string) string
	AddColumn(table string, c *schema.Column) string
	DropColumn(table, column string) string
	AlterColumn(table string, from, to *schema.Column) []string
	CreateIndex(table string, idx *schema.Index) string
	DropIndex(table, indexName string) string
	AddForeignKey(table, column string, ref *schema.ForeignKeyRef) string
	DropForeignKey(table, constraintName string) string
}

// Introspection groups the catalog query text a dialect exposes so the
// introspector can reconstruct a live schema without embedding any
// backend-specific SQL itself.
type Introspection interface {
	TablesQuery() string
	ColumnsQuery() string
	IndexesQuery() string
	ForeignKeysQuery() string
	ConstraintsQuery() string
	EnumsQuery() string
	ExtensionsQuery() string
	VersionQuery() string
}

// Dialect is the full per-backend capability set.
type Dialect interface {
	Name() Name
	MapType(t schema.ColumnType) (string, error)
	QuoteIdentifier(name string) string
	QuoteString(value string) string
	Placeholder(index int) string
	SupportsTransactionalDDL() bool
	SupportsReturning() bool
	DDL() DDL
	Introspection() Introspection
}

var (
	mu       sync.RWMutex
	registry = map[Name]func() Dialect{}
)

// Register adds a dialect constructor to the registry. Dialect packages
// call this from an init() function, mirroring how database/sql drivers
// register themselves.
func Register(name Name, ctor func() Dialect) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = ctor
}

// Get returns a fresh Dialect instance for name, or an error if no
// package registered that name (the caller forgot a blank import).
func Get(name Name) (Dialect, error) {
	mu.RLock()
	ctor, ok := registry[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("dialect: %q is not registered (missing blank import?)", name)
	}
	return ctor(), nil
}

// FromScheme infers a Name from a connection-string scheme, per spec.md
// §6: postgres(ql)://, mysql://, sqlite:/file:/*.db/*.sqlite, mongodb(+srv)://.
func FromScheme(connectionString string) (Name, error) {
	switch {
	case hasAnyPrefix(connectionString, "postgres://", "postgresql://"):
		return Postgres, nil
	case hasAnyPrefix(connectionString, "mysql://"):
		return MySQL, nil
	case hasAnyPrefix(connectionString, "sqlite:", "file:"),
		hasAnySuffix(connectionString, ".db", ".sqlite"):
		return SQLite, nil
	case hasAnyPrefix(connectionString, "mongodb://", "mongodb+srv://"):
		return Mongo, nil
	default:
		return "", fmt.Errorf("dialect: cannot infer backend from connection string")
	}
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if len(s) >= len(p) && s[:len(p)] == p {
			return true
		}
	}
	return false
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suf := range suffixes {
		if len(s) >= len(suf) && s[len(s)-len(suf):] == suf {
			return true
		}
	}
	return false
}
