package schema

import "fmt"

// Validate runs the structural checks every SchemaDefinition must satisfy
// before it can be registered or diffed: table names are present and
// unique, every table has named, unique columns using a type from the
// closed ColumnType set, foreign keys name a target table, every table
// declares exactly one primary key (single-column or composite, never
// both) over existing columns, and index columns exist. Columns flagged
// Tenant are not checked here.
func (d *Definition) Validate() error {
	seen := make(map[string]bool, len(d.Tables))
	for i := range d.Tables {
		t := &d.Tables[i]
		if t.Name == "" {
			return fmt.Errorf("schema: table at index %d has no name", i)
		}
		if seen[t.Name] {
			return fmt.Errorf("schema: duplicate table %q", t.Name)
		}
		seen[t.Name] = true

		if err := t.validate(); err != nil {
			return fmt.Errorf("schema: table %q: %w", t.Name, err)
		}
	}
	return nil
}

func (t *Table) validate() error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("has no columns")
	}

	colPK := 0
	colNames := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if c.Name == "" {
			return fmt.Errorf("has a column with no name")
		}
		if colNames[c.Name] {
			return fmt.Errorf("duplicate column %q", c.Name)
		}
		colNames[c.Name] = true

		if !ValidTypes[c.Type] {
			return fmt.Errorf("column %q has unknown type %q", c.Name, c.Type)
		}
		if c.PrimaryKey {
			colPK++
		}
		if c.References != nil && c.References.Table == "" {
			return fmt.Errorf("column %q declares a foreign key with no target table", c.Name)
		}
	}

	if colPK > 1 {
		return fmt.Errorf("declares primaryKey on more than one column")
	}
	if colPK == 1 && len(t.PrimaryKey) > 0 {
		return fmt.Errorf("declares both a per-column primaryKey and a composite primaryKey list")
	}
	for _, name := range t.PrimaryKey {
		if !colNames[name] {
			return fmt.Errorf("composite primary key references unknown column %q", name)
		}
	}
	if colPK == 0 && len(t.PrimaryKey) == 0 {
		return fmt.Errorf("has no primary key")
	}

	for _, idx := range t.Indexes {
		for _, col := range idx.Columns {
			if !colNames[col] {
				return fmt.Errorf("index %q references unknown column %q", idx.Name, col)
			}
		}
	}

	return nil
}

// ValidateTenantTable verifies that a table declared tenant-scoped (i.e.
// the caller intends to inject tenant predicates against it) carries both
// conventional tenant columns, both flagged Tenant. Tables that are never
// queried with tenant injection (e.g. the migration history table itself)
// are exempt and never call this.
func (t *Table) ValidateTenantTable(appIDCol, orgIDCol string) error {
	if !t.HasTenantColumns(appIDCol, orgIDCol) {
		return fmt.Errorf("schema: table %q is tenant-scoped but is missing flagged %q/%q columns", t.Name, appIDCol, orgIDCol)
	}
	return nil
}
