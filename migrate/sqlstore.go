package migrate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/launchpad-hq/lpcore/dialect"
	"github.com/launchpad-hq/lpcore/driver"
)

// SQLStore is the default Store, backing lp_migrations against a live
// driver/dialect pair. up_sql/down_sql are kept as a JSON-encoded text
// column on every dialect rather than a native Postgres array column:
// the shared driver.Client surface scans rows into driver.Row
// (map[string]any) with no dialect-specific array unmarshaling, so a
// single portable encoding was chosen over a Postgres-only fast path.
type SQLStore struct {
	driver  driver.Driver
	dialect dialect.Dialect
}

// NewSQLStore constructs a SQLStore. Call EnsureSchema once before use.
func NewSQLStore(d driver.Driver, dia dialect.Dialect) *SQLStore {
	return &SQLStore{driver: d, dialect: dia}
}

// EnsureSchema creates lp_migrations if it does not already exist.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	q := s.dialect.QuoteIdentifier
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	%s BIGINT NOT NULL,
	%s TEXT NOT NULL,
	%s TEXT NOT NULL,
	%s TEXT NOT NULL DEFAULT '',
	%s TEXT NOT NULL DEFAULT '',
	%s TEXT NOT NULL,
	%s TEXT NOT NULL,
	%s TEXT NOT NULL DEFAULT '',
	%s TIMESTAMP NOT NULL,
	%s TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (%s, %s, %s)
)`,
		q("lp_migrations"),
		q("version"), q("name"), q("scope"), q("template_key"), q("module_name"),
		q("checksum"), q("up_sql"), q("down_sql"), q("applied_at"), q("executed_by"),
		q("scope"), q("template_key"), q("version"),
	)
	_, err := s.driver.Execute(ctx, stmt, nil)
	return err
}

// Applied returns every history row for (scope, templateKey), ordered by
// version.
func (s *SQLStore) Applied(scope Scope, templateKey string) ([]HistoryRow, error) {
	ctx := context.Background()
	q := s.dialect.QuoteIdentifier
	stmt := fmt.Sprintf(
		"SELECT %s, %s, %s, %s, %s, %s, %s, %s, %s, %s FROM %s WHERE %s = %s AND %s = %s ORDER BY %s ASC",
		q("version"), q("name"), q("scope"), q("template_key"), q("module_name"),
		q("checksum"), q("up_sql"), q("down_sql"), q("applied_at"), q("executed_by"),
		q("lp_migrations"), q("scope"), s.dialect.Placeholder(1), q("template_key"), s.dialect.Placeholder(2),
		q("version"),
	)
	res, err := s.driver.Query(ctx, stmt, []any{string(scope), templateKey})
	if err != nil {
		return nil, fmt.Errorf("migrate: querying lp_migrations: %w", err)
	}

	rows := make([]HistoryRow, 0, len(res.Rows))
	for _, r := range res.Rows {
		row, err := rowFromRecord(r)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Insert records a newly applied migration.
func (s *SQLStore) Insert(row HistoryRow) error {
	ctx := context.Background()
	q := s.dialect.QuoteIdentifier
	upJSON, err := json.Marshal(row.UpSQL)
	if err != nil {
		return fmt.Errorf("migrate: encoding up_sql: %w", err)
	}
	downJSON, err := json.Marshal(row.DownSQL)
	if err != nil {
		return fmt.Errorf("migrate: encoding down_sql: %w", err)
	}

	placeholders := make([]string, 10)
	for i := range placeholders {
		placeholders[i] = s.dialect.Placeholder(i + 1)
	}
	stmt := fmt.Sprintf(
		"INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s) VALUES (%s)",
		q("lp_migrations"),
		q("version"), q("name"), q("scope"), q("template_key"), q("module_name"),
		q("checksum"), q("up_sql"), q("down_sql"), q("applied_at"), q("executed_by"),
		strings.Join(placeholders, ", "),
	)
	appliedAt := row.AppliedAt
	if appliedAt.IsZero() {
		appliedAt = time.Now()
	}
	_, err = s.driver.Execute(ctx, stmt, []any{
		row.Version, row.Name, string(row.Scope), row.TemplateKey, row.ModuleName,
		row.Checksum, string(upJSON), string(downJSON), appliedAt, row.ExecutedBy,
	})
	if err != nil {
		return fmt.Errorf("migrate: inserting lp_migrations row: %w", err)
	}
	return nil
}

// Remove deletes the history row for (scope, templateKey, version).
func (s *SQLStore) Remove(scope Scope, templateKey string, version int64) error {
	ctx := context.Background()
	q := s.dialect.QuoteIdentifier
	stmt := fmt.Sprintf(
		"DELETE FROM %s WHERE %s = %s AND %s = %s AND %s = %s",
		q("lp_migrations"),
		q("scope"), s.dialect.Placeholder(1),
		q("template_key"), s.dialect.Placeholder(2),
		q("version"), s.dialect.Placeholder(3),
	)
	_, err := s.driver.Execute(ctx, stmt, []any{string(scope), templateKey, version})
	if err != nil {
		return fmt.Errorf("migrate: deleting lp_migrations row: %w", err)
	}
	return nil
}

func rowFromRecord(r driver.Row) (HistoryRow, error) {
	var up, down []string
	if raw, ok := r["up_sql"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &up); err != nil {
			return HistoryRow{}, fmt.Errorf("migrate: decoding up_sql: %w", err)
		}
	}
	if raw, ok := r["down_sql"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &down); err != nil {
			return HistoryRow{}, fmt.Errorf("migrate: decoding down_sql: %w", err)
		}
	}

	return HistoryRow{
		Version:     toInt64(r["version"]),
		Name:        toString(r["name"]),
		Scope:       Scope(toString(r["scope"])),
		TemplateKey: toString(r["template_key"]),
		ModuleName:  toString(r["module_name"]),
		Checksum:    toString(r["checksum"]),
		UpSQL:       up,
		DownSQL:     down,
		AppliedAt:   toTime(r["applied_at"]),
		ExecutedBy:  toString(r["executed_by"]),
	}, nil
}

func toString(v any) string {
	s, _ := v.(string)
	return s
}

func toTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed
			}
		}
	}
	return time.Time{}
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

