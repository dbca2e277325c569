package sqlite

// introspection supplies the sqlite_master / pragma query text the
// introspector uses against a live SQLite database. Pragmas aren't
// parameterized statements, so the introspector interpolates the table
// name it already validated against sqlite_master into these templates.
type introspection struct{}

func (introspection) TablesQuery() string {
	return `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`
}

// ColumnsQuery returns a pragma template; "%s" is replaced by the
// already-validated table name (pragmas do not accept bound parameters).
func (introspection) ColumnsQuery() string { return `PRAGMA table_info(%s)` }

func (introspection) IndexesQuery() string { return `PRAGMA index_list(%s)` }

func (introspection) ForeignKeysQuery() string { return `PRAGMA foreign_key_list(%s)` }

func (introspection) ConstraintsQuery() string {
	return `SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?`
}

func (introspection) EnumsQuery() string { return `` }

func (introspection) ExtensionsQuery() string { return `PRAGMA compile_options` }

func (introspection) VersionQuery() string { return `SELECT sqlite_version()` }
