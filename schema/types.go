// Package schema defines the dialect-agnostic schema data model: the
// closed set of column types, table/index/foreign-key definitions, and
// the SchemaDefinition the registry, introspector, and diff engine all
// share.
package schema

// ColumnType is the closed set of logical column types the engine
// understands. Every dialect module maps a ColumnType to its own native
// type string; an unrecognized ColumnType is a compile-time error, never
// a best-effort guess.
type ColumnType string

const (
	TypeUUID     ColumnType = "uuid"
	TypeString   ColumnType = "string"
	TypeText     ColumnType = "text"
	TypeInteger  ColumnType = "integer"
	TypeBigInt   ColumnType = "bigint"
	TypeFloat    ColumnType = "float"
	TypeDecimal  ColumnType = "decimal"
	TypeBoolean  ColumnType = "boolean"
	TypeDateTime ColumnType = "datetime"
	TypeDate     ColumnType = "date"
	TypeTime     ColumnType = "time"
	TypeJSON     ColumnType = "json"
	TypeBinary   ColumnType = "binary"
)

// ValidTypes is the closed set consulted by validation and by dialect
// type-mapping tables.
var ValidTypes = map[ColumnType]bool{
	TypeUUID: true, TypeString: true, TypeText: true, TypeInteger: true,
	TypeBigInt: true, TypeFloat: true, TypeDecimal: true, TypeBoolean: true,
	TypeDateTime: true, TypeDate: true, TypeTime: true, TypeJSON: true, TypeBinary: true,
}

// CascadePolicy is the closed set of referential actions a foreign key
// reference can declare for ON DELETE / ON UPDATE.
type CascadePolicy string

const (
	CascadeNone       CascadePolicy = ""
	CascadeCascade    CascadePolicy = "CASCADE"
	CascadeSetNull    CascadePolicy = "SET NULL"
	CascadeRestrict   CascadePolicy = "RESTRICT"
	CascadeNoAction   CascadePolicy = "NO ACTION"
	CascadeSetDefault CascadePolicy = "SET DEFAULT"
)

// ForeignKeyRef describes a column's reference to another table's column.
type ForeignKeyRef struct {
	Table    string
	Column   string
	OnDelete CascadePolicy
	OnUpdate CascadePolicy
}

// Column is one ordered field of a Table.
type Column struct {
	Name         string
	Type         ColumnType
	Nullable     bool
	Unique       bool
	Default      string // raw default expression, dialect-specific syntax; empty = no default
	HasDefault   bool
	References   *ForeignKeyRef
	Tenant       bool // true for app_id/organization_id columns injected by the compiler
	PrimaryKey   bool // single-column primary key; mutually exclusive with Table.PrimaryKey
	Length       int  // declared character length as read by introspection; DDL generation does not use it
	Precision    int
	Scale        int
}

// Index is a named or anonymous index over an ordered column list.
type Index struct {
	Name      string // empty means the dialect should derive a name
	Columns   []string
	Unique    bool
	Predicate string // partial-index WHERE expression, empty = full index
}

// Table is an ordered mapping of column name to Column plus its indexes
// and optional composite primary key.
type Table struct {
	Name        string
	Columns     []Column // declaration order is significant (INSERT column order)
	Indexes     []Index
	PrimaryKey  []string // composite PK column list; mutually exclusive with a per-column PrimaryKey flag
}

// Column looks up a column by name, returning nil if absent.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// HasTenantColumns reports whether both conventional tenant columns are
// present and flagged.
func (t *Table) HasTenantColumns(appIDCol, orgIDCol string) bool {
	a, o := t.Column(appIDCol), t.Column(orgIDCol)
	return a != nil && a.Tenant && o != nil && o.Tenant
}

// PrimaryKeyColumns returns the effective primary key column list,
// whether declared per-column or as a composite list.
func (t *Table) PrimaryKeyColumns() []string {
	if len(t.PrimaryKey) > 0 {
		return t.PrimaryKey
	}
	for _, c := range t.Columns {
		if c.PrimaryKey {
			return []string{c.Name}
		}
	}
	return nil
}

// Definition is a schema: a mapping from table name to Table. Order of
// Tables is preserved for deterministic DDL emission.
type Definition struct {
	Tables []Table
}

// Table looks up a table by name, returning nil if absent.
func (d *Definition) Table(name string) *Table {
	for i := range d.Tables {
		if d.Tables[i].Name == name {
			return &d.Tables[i]
		}
	}
	return nil
}

// TableNames returns the declared table names in declaration order.
func (d *Definition) TableNames() []string {
	names := make([]string, len(d.Tables))
	for i, t := range d.Tables {
		names[i] = t.Name
	}
	return names
}
