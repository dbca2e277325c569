package mysql

// introspection supplies the information_schema query text the
// introspector runs against a live MySQL database.
type introspection struct{}

func (introspection) TablesQuery() string {
	return `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
		ORDER BY table_name`
}

func (introspection) ColumnsQuery() string {
	return `
		SELECT
			column_name, column_type, is_nullable, column_default,
			column_key, extra, generation_expression
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position`
}

func (introspection) IndexesQuery() string {
	return `
		SELECT index_name, NOT non_unique AS is_unique,
			GROUP_CONCAT(column_name ORDER BY seq_in_index) AS index_columns
		FROM information_schema.statistics
		WHERE table_schema = DATABASE() AND table_name = ? AND index_name != 'PRIMARY'
		GROUP BY index_name, non_unique`
}

func (introspection) ForeignKeysQuery() string {
	return `
		SELECT
			kcu.constraint_name, kcu.column_name,
			kcu.referenced_table_name, kcu.referenced_column_name,
			rc.delete_rule, rc.update_rule
		FROM information_schema.key_column_usage kcu
		JOIN information_schema.referential_constraints rc
			ON rc.constraint_schema = kcu.constraint_schema AND rc.constraint_name = kcu.constraint_name
		WHERE kcu.table_schema = DATABASE() AND kcu.table_name = ?
			AND kcu.referenced_table_name IS NOT NULL`
}

func (introspection) ConstraintsQuery() string {
	return `
		SELECT constraint_name, constraint_type, ''
		FROM information_schema.table_constraints
		WHERE table_schema = DATABASE() AND table_name = ?`
}

func (introspection) EnumsQuery() string {
	// MySQL has no catalog-level enum type; enums are a per-column type
	// modifier, which introspect/mysql's NormalizeType maps to text.
	return ``
}

func (introspection) ExtensionsQuery() string {
	// MySQL has no extension mechanism analogous to Postgres.
	return ``
}

func (introspection) VersionQuery() string { return `SELECT VERSION()` }
