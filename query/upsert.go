package query

import (
	"fmt"
	"strings"

	"github.com/launchpad-hq/lpcore/dialect"
)

// appendUpsert renders the dialect-appropriate conflict clause. allCols is
// every column present in the insert, used to compute the default update
// set when Upsert.UpdateColumns is empty.
func (b *builder) appendUpsert(u *Upsert, allCols []string) error {
	if u == nil {
		return nil
	}
	if len(u.ConflictColumns) == 0 {
		return fmt.Errorf("query: upsert requires at least one conflict column")
	}

	updateCols := u.UpdateColumns
	if len(updateCols) == 0 {
		conflict := make(map[string]bool, len(u.ConflictColumns))
		for _, c := range u.ConflictColumns {
			conflict[c] = true
		}
		for _, c := range allCols {
			if !conflict[c] {
				updateCols = append(updateCols, c)
			}
		}
	}

	conflictCols := make([]string, len(u.ConflictColumns))
	for i, c := range u.ConflictColumns {
		conflictCols[i] = b.quote(c)
	}

	switch b.dialect.Name() {
	case dialect.MySQL:
		if u.Action == UpsertActionNothing || len(updateCols) == 0 {
			// MySQL has no DO NOTHING equivalent; re-assigning the first
			// conflict column to itself is the idiomatic no-op.
			fmt.Fprintf(&b.sql, " ON DUPLICATE KEY UPDATE %s = %s", b.quote(u.ConflictColumns[0]), b.quote(u.ConflictColumns[0]))
			return nil
		}
		assignments := make([]string, len(updateCols))
		for i, c := range updateCols {
			assignments[i] = fmt.Sprintf("%s = VALUES(%s)", b.quote(c), b.quote(c))
		}
		fmt.Fprintf(&b.sql, " ON DUPLICATE KEY UPDATE %s", strings.Join(assignments, ", "))
		return nil

	case dialect.Postgres, dialect.SQLite:
		if u.Action == UpsertActionNothing || len(updateCols) == 0 {
			fmt.Fprintf(&b.sql, " ON CONFLICT (%s) DO NOTHING", strings.Join(conflictCols, ", "))
			return nil
		}
		excluded := "EXCLUDED"
		if b.dialect.Name() == dialect.SQLite {
			excluded = "excluded"
		}
		assignments := make([]string, len(updateCols))
		for i, c := range updateCols {
			assignments[i] = fmt.Sprintf("%s = %s.%s", b.quote(c), excluded, b.quote(c))
		}
		fmt.Fprintf(&b.sql, " ON CONFLICT (%s) DO UPDATE SET %s", strings.Join(conflictCols, ", "), strings.Join(assignments, ", "))
		return nil

	default:
		return fmt.Errorf("query: upsert is not implemented for dialect %q", b.dialect.Name())
	}
}
