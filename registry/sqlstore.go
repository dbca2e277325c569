package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/launchpad-hq/lpcore/dialect"
	"github.com/launchpad-hq/lpcore/driver"
)

// SQLStore is the default Store, backing lp_schema_registry against a
// live driver/dialect pair.
type SQLStore struct {
	driver  driver.Driver
	dialect dialect.Dialect
}

// NewSQLStore constructs a SQLStore. Call EnsureSchema once before use.
func NewSQLStore(d driver.Driver, dia dialect.Dialect) *SQLStore {
	return &SQLStore{driver: d, dialect: dia}
}

// EnsureSchema creates lp_schema_registry if it does not already exist.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	q := s.dialect.QuoteIdentifier
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	%s TEXT NOT NULL,
	%s TEXT NOT NULL,
	%s INTEGER NOT NULL,
	%s TEXT NOT NULL,
	%s TEXT NOT NULL,
	%s TIMESTAMP NOT NULL,
	%s TIMESTAMP NOT NULL,
	PRIMARY KEY (%s, %s)
)`,
		q("lp_schema_registry"),
		q("app_id"), q("schema_name"), q("version"), q("schema"), q("checksum"),
		q("created_at"), q("updated_at"),
		q("app_id"), q("schema_name"),
	)
	_, err := s.driver.Execute(ctx, stmt, nil)
	return err
}

// Get returns the currently stored row, or nil if none exists.
func (s *SQLStore) Get(ctx context.Context, appID, schemaName string) (*Row, error) {
	q := s.dialect.QuoteIdentifier
	stmt := fmt.Sprintf(
		"SELECT %s, %s, %s, %s, %s, %s, %s FROM %s WHERE %s = %s AND %s = %s",
		q("app_id"), q("schema_name"), q("version"), q("schema"), q("checksum"), q("created_at"), q("updated_at"),
		q("lp_schema_registry"), q("app_id"), s.dialect.Placeholder(1), q("schema_name"), s.dialect.Placeholder(2),
	)
	res, err := s.driver.Query(ctx, stmt, []any{appID, schemaName})
	if err != nil {
		return nil, fmt.Errorf("registry: querying lp_schema_registry: %w", err)
	}
	if len(res.Rows) == 0 {
		return nil, nil
	}
	row := rowFromRecord(res.Rows[0])
	return &row, nil
}

// Upsert inserts or replaces the row for (row.AppID, row.SchemaName).
func (s *SQLStore) Upsert(ctx context.Context, row Row) error {
	existing, err := s.Get(ctx, row.AppID, row.SchemaName)
	if err != nil {
		return err
	}

	q := s.dialect.QuoteIdentifier
	if existing == nil {
		stmt := fmt.Sprintf(
			"INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s) VALUES (%s, %s, %s, %s, %s, %s, %s)",
			q("lp_schema_registry"),
			q("app_id"), q("schema_name"), q("version"), q("schema"), q("checksum"), q("created_at"), q("updated_at"),
			s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3), s.dialect.Placeholder(4),
			s.dialect.Placeholder(5), s.dialect.Placeholder(6), s.dialect.Placeholder(7),
		)
		_, err := s.driver.Execute(ctx, stmt, []any{
			row.AppID, row.SchemaName, row.Version, row.Schema, row.Checksum, row.CreatedAt, row.UpdatedAt,
		})
		return err
	}

	stmt := fmt.Sprintf(
		"UPDATE %s SET %s = %s, %s = %s, %s = %s, %s = %s WHERE %s = %s AND %s = %s",
		q("lp_schema_registry"),
		q("version"), s.dialect.Placeholder(1), q("schema"), s.dialect.Placeholder(2),
		q("checksum"), s.dialect.Placeholder(3), q("updated_at"), s.dialect.Placeholder(4),
		q("app_id"), s.dialect.Placeholder(5), q("schema_name"), s.dialect.Placeholder(6),
	)
	_, err = s.driver.Execute(ctx, stmt, []any{row.Version, row.Schema, row.Checksum, row.UpdatedAt, row.AppID, row.SchemaName})
	return err
}

func rowFromRecord(r driver.Row) Row {
	return Row{
		AppID:      toString(r["app_id"]),
		SchemaName: toString(r["schema_name"]),
		Version:    int(toInt64(r["version"])),
		Schema:     toString(r["schema"]),
		Checksum:   toString(r["checksum"]),
		CreatedAt:  toTime(r["created_at"]),
		UpdatedAt:  toTime(r["updated_at"]),
	}
}

func toString(v any) string {
	s, _ := v.(string)
	return s
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
