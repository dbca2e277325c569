package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/launchpad-hq/lpcore/dialect"
	"github.com/launchpad-hq/lpcore/driver"
)

// SQLStore is the default Store, backing lp_seeds against a live
// driver/dialect pair.
type SQLStore struct {
	driver  driver.Driver
	dialect dialect.Dialect
}

// NewSQLStore constructs a SQLStore. Call EnsureSchema once before use.
func NewSQLStore(d driver.Driver, dia dialect.Dialect) *SQLStore {
	return &SQLStore{driver: d, dialect: dia}
}

// EnsureSchema creates lp_seeds if it does not already exist.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	q := s.dialect.QuoteIdentifier
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	%s TEXT PRIMARY KEY,
	%s TEXT NOT NULL,
	%s TIMESTAMP NOT NULL
)`,
		q("lp_seeds"), q("name"), q("checksum"), q("applied_at"),
	)
	_, err := s.driver.Execute(ctx, stmt, nil)
	return err
}

// Applied returns every recorded seed application.
func (s *SQLStore) Applied() ([]AppliedRow, error) {
	ctx := context.Background()
	q := s.dialect.QuoteIdentifier
	stmt := fmt.Sprintf("SELECT %s, %s, %s FROM %s", q("name"), q("checksum"), q("applied_at"), q("lp_seeds"))
	res, err := s.driver.Query(ctx, stmt, nil)
	if err != nil {
		return nil, fmt.Errorf("seed: querying lp_seeds: %w", err)
	}
	rows := make([]AppliedRow, 0, len(res.Rows))
	for _, r := range res.Rows {
		rows = append(rows, AppliedRow{
			Name:      toString(r["name"]),
			Checksum:  toString(r["checksum"]),
			AppliedAt: toTime(r["applied_at"]),
		})
	}
	return rows, nil
}

// Insert records a newly applied seed, replacing any prior record for the
// same name (a seed reapplied after its checksum changed).
func (s *SQLStore) Insert(row AppliedRow) error {
	ctx := context.Background()
	q := s.dialect.QuoteIdentifier

	del := fmt.Sprintf("DELETE FROM %s WHERE %s = %s", q("lp_seeds"), q("name"), s.dialect.Placeholder(1))
	if _, err := s.driver.Execute(ctx, del, []any{row.Name}); err != nil {
		return fmt.Errorf("seed: clearing prior lp_seeds row: %w", err)
	}

	appliedAt := row.AppliedAt
	if appliedAt.IsZero() {
		appliedAt = time.Now()
	}
	ins := fmt.Sprintf(
		"INSERT INTO %s (%s, %s, %s) VALUES (%s, %s, %s)",
		q("lp_seeds"), q("name"), q("checksum"), q("applied_at"),
		s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3),
	)
	_, err := s.driver.Execute(ctx, ins, []any{row.Name, row.Checksum, appliedAt})
	if err != nil {
		return fmt.Errorf("seed: inserting lp_seeds row: %w", err)
	}
	return nil
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
