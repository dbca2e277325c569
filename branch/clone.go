package branch

import (
	"context"
	"fmt"
	"strings"

	"github.com/launchpad-hq/lpcore/driver"
)

// cloneNamespace clones every non-system table, sequence, and view from
// source into a freshly created target schema. Structure always clones;
// data copies only when copyData is set, masked per maskExpression when
// piiMasking is also set.
func (e *Engine) cloneNamespace(ctx context.Context, c driver.Client, source, target string, copyData, piiMasking bool) error {
	q := e.dialect.QuoteIdentifier

	if _, err := c.Execute(ctx, fmt.Sprintf("CREATE SCHEMA %s", q(target)), nil); err != nil {
		return fmt.Errorf("creating namespace %q: %w", target, err)
	}

	tables, err := listTables(ctx, c, source)
	if err != nil {
		return err
	}
	for _, table := range tables {
		stmt := fmt.Sprintf("CREATE TABLE %s.%s (LIKE %s.%s INCLUDING ALL)",
			q(target), q(table), q(source), q(table))
		if _, err := c.Execute(ctx, stmt, nil); err != nil {
			return fmt.Errorf("cloning table %q: %w", table, err)
		}
	}

	if err := cloneSequences(ctx, c, source, target, q); err != nil {
		return err
	}
	if err := cloneViews(ctx, c, source, target, q); err != nil {
		return err
	}

	if copyData {
		for _, table := range tables {
			if err := e.copyTableData(ctx, c, source, target, table, piiMasking); err != nil {
				return fmt.Errorf("copying data for %q: %w", table, err)
			}
		}
	}
	return nil
}

func listTables(ctx context.Context, c driver.Client, namespace string) ([]string, error) {
	res, err := c.Query(ctx, `SELECT table_name FROM information_schema.tables WHERE table_schema = $1 AND table_type = 'BASE TABLE'`, []any{namespace})
	if err != nil {
		return nil, fmt.Errorf("listing tables in %q: %w", namespace, err)
	}
	out := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		if name, ok := row["table_name"].(string); ok {
			out = append(out, name)
		}
	}
	return out, nil
}

func cloneSequences(ctx context.Context, c driver.Client, source, target string, q func(string) string) error {
	res, err := c.Query(ctx, `SELECT sequencename, last_value, increment_by, min_value, max_value FROM pg_sequences WHERE schemaname = $1`, []any{source})
	if err != nil {
		return fmt.Errorf("listing sequences in %q: %w", source, err)
	}
	for _, row := range res.Rows {
		name, _ := row["sequencename"].(string)
		if name == "" {
			continue
		}
		createStmt := fmt.Sprintf("CREATE SEQUENCE %s.%s INCREMENT BY %v MINVALUE %v MAXVALUE %v",
			q(target), q(name), row["increment_by"], row["min_value"], row["max_value"])
		if _, err := c.Execute(ctx, createStmt, nil); err != nil {
			return fmt.Errorf("cloning sequence %q: %w", name, err)
		}
		if lastValue, ok := row["last_value"]; ok && lastValue != nil {
			setValStmt := fmt.Sprintf("SELECT setval('%s.%s', %v)", target, name, lastValue)
			if _, err := c.Execute(ctx, setValStmt, nil); err != nil {
				return fmt.Errorf("setting sequence %q last value: %w", name, err)
			}
		}
	}
	return nil
}

func cloneViews(ctx context.Context, c driver.Client, source, target string, q func(string) string) error {
	res, err := c.Query(ctx, `SELECT viewname, definition FROM pg_views WHERE schemaname = $1`, []any{source})
	if err != nil {
		return fmt.Errorf("listing views in %q: %w", source, err)
	}
	for _, row := range res.Rows {
		name, _ := row["viewname"].(string)
		definition, _ := row["definition"].(string)
		if name == "" {
			continue
		}
		rewritten := strings.ReplaceAll(definition, source+".", target+".")
		stmt := fmt.Sprintf("CREATE VIEW %s.%s AS %s", q(target), q(name), rewritten)
		if _, err := c.Execute(ctx, stmt, nil); err != nil {
			return fmt.Errorf("cloning view %q: %w", name, err)
		}
	}
	return nil
}

func (e *Engine) copyTableData(ctx context.Context, c driver.Client, source, target, table string, piiMasking bool) error {
	q := e.dialect.QuoteIdentifier

	def, _, err := e.introspecter.IntrospectSchema(ctx, c, source)
	if err != nil {
		return fmt.Errorf("introspecting %q for data copy: %w", source, err)
	}
	t := def.Table(table)
	if t == nil {
		return fmt.Errorf("table %q not found during introspection of %q", table, source)
	}

	cols := make([]string, len(t.Columns))
	selects := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		cols[i] = q(col.Name)
		expr := ""
		if piiMasking {
			expr = maskExpression(q, col.Name, col.Type)
		}
		if expr == "" {
			selects[i] = q(col.Name)
		} else {
			selects[i] = expr
		}
	}

	stmt := fmt.Sprintf("INSERT INTO %s.%s (%s) SELECT %s FROM %s.%s",
		q(target), q(table), strings.Join(cols, ", "), strings.Join(selects, ", "), q(source), q(table))
	if _, err := c.Execute(ctx, stmt, nil); err != nil {
		return fmt.Errorf("copying rows into %q: %w", table, err)
	}
	return nil
}
