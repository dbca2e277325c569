package postgres

// introspection supplies the catalog query text the introspector runs
// against a live PostgreSQL database; it never issues the queries itself.
type introspection struct{}

func (introspection) TablesQuery() string {
	return `
		SELECT c.relname
		FROM pg_catalog.pg_class c
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		WHERE c.relkind = 'r' AND n.nspname = $1
		ORDER BY c.relname`
}

func (introspection) ColumnsQuery() string {
	return `
		SELECT
			a.attname AS column_name,
			format_type(a.atttypid, a.atttypmod) AS native_type,
			a.attnotnull AS not_null,
			pg_get_expr(ad.adbin, ad.adrelid) AS default_expr,
			a.attnum = ANY(i.indkey) AS is_primary_key,
			COALESCE(col_description(a.attrelid, a.attnum), '') AS comment
		FROM pg_catalog.pg_attribute a
		JOIN pg_catalog.pg_class c ON c.oid = a.attrelid
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		LEFT JOIN pg_catalog.pg_attrdef ad ON ad.adrelid = a.attrelid AND ad.adnum = a.attnum
		LEFT JOIN pg_catalog.pg_index i ON i.indrelid = a.attrelid AND i.indisprimary
		WHERE n.nspname = $1 AND c.relname = $2 AND a.attnum > 0 AND NOT a.attisdropped
		ORDER BY a.attnum`
}

func (introspection) IndexesQuery() string {
	return `
		SELECT
			ic.relname AS index_name,
			i.indisunique AS is_unique,
			pg_get_indexdef(i.indexrelid) AS index_def,
			COALESCE(pg_get_expr(i.indpred, i.indrelid), '') AS predicate
		FROM pg_catalog.pg_index i
		JOIN pg_catalog.pg_class ic ON ic.oid = i.indexrelid
		JOIN pg_catalog.pg_class tc ON tc.oid = i.indrelid
		JOIN pg_catalog.pg_namespace n ON n.oid = tc.relnamespace
		WHERE n.nspname = $1 AND tc.relname = $2 AND NOT i.indisprimary`
}

func (introspection) ForeignKeysQuery() string {
	return `
		SELECT
			con.conname AS constraint_name,
			a.attname AS column_name,
			ft.relname AS referenced_table,
			fa.attname AS referenced_column,
			con.confdeltype AS on_delete,
			con.confupdtype AS on_update
		FROM pg_catalog.pg_constraint con
		JOIN pg_catalog.pg_class t ON t.oid = con.conrelid
		JOIN pg_catalog.pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_catalog.pg_class ft ON ft.oid = con.confrelid
		JOIN unnest(con.conkey) WITH ORDINALITY AS ck(attnum, ord) ON true
		JOIN unnest(con.confkey) WITH ORDINALITY AS fk(attnum, ord) ON fk.ord = ck.ord
		JOIN pg_catalog.pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = ck.attnum
		JOIN pg_catalog.pg_attribute fa ON fa.attrelid = con.confrelid AND fa.attnum = fk.attnum
		WHERE con.contype = 'f' AND n.nspname = $1 AND t.relname = $2`
}

func (introspection) ConstraintsQuery() string {
	return `
		SELECT con.conname, con.contype, pg_get_constraintdef(con.oid)
		FROM pg_catalog.pg_constraint con
		JOIN pg_catalog.pg_class t ON t.oid = con.conrelid
		JOIN pg_catalog.pg_namespace n ON n.oid = t.relnamespace
		WHERE n.nspname = $1 AND t.relname = $2`
}

func (introspection) EnumsQuery() string {
	return `
		SELECT t.typname, e.enumlabel
		FROM pg_catalog.pg_type t
		JOIN pg_catalog.pg_enum e ON e.enumtypid = t.oid
		JOIN pg_catalog.pg_namespace n ON n.oid = t.typnamespace
		WHERE n.nspname = $1
		ORDER BY t.typname, e.enumsortorder`
}

func (introspection) ExtensionsQuery() string {
	return `SELECT extname, extversion FROM pg_catalog.pg_extension ORDER BY extname`
}

func (introspection) VersionQuery() string { return `SELECT version()` }
