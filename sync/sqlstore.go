package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/launchpad-hq/lpcore/dialect"
	"github.com/launchpad-hq/lpcore/driver"
)

// SQLStore is the default MetadataStore, backing lp_sync_metadata against
// a live driver/dialect pair.
type SQLStore struct {
	driver  driver.Driver
	dialect dialect.Dialect
}

// NewSQLStore constructs a SQLStore. Call EnsureSchema once before use.
func NewSQLStore(d driver.Driver, dia dialect.Dialect) *SQLStore {
	return &SQLStore{driver: d, dialect: dia}
}

// EnsureSchema creates lp_sync_metadata if it does not already exist.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	q := s.dialect.QuoteIdentifier
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	%s TEXT NOT NULL,
	%s TEXT NOT NULL,
	%s TEXT NOT NULL DEFAULT '',
	%s TEXT NOT NULL DEFAULT '',
	%s TEXT NOT NULL DEFAULT '',
	%s INTEGER NOT NULL DEFAULT 0,
	%s INTEGER NOT NULL DEFAULT 0,
	%s TIMESTAMP NOT NULL,
	%s TEXT NOT NULL DEFAULT '',
	%s TEXT NOT NULL DEFAULT '',
	%s TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (%s, %s)
)`,
		q("lp_sync_metadata"),
		q("app_id"), q("table_name"), q("local_checksum"), q("remote_checksum"), q("base_checksum"),
		q("local_version"), q("remote_version"), q("last_sync_at"), q("last_sync_dir"), q("last_sync_by"),
		q("conflict_details"),
		q("app_id"), q("table_name"),
	)
	_, err := s.driver.Execute(ctx, stmt, nil)
	return err
}

// Get returns the row for (appID, tableName), or nil if none exists.
func (s *SQLStore) Get(appID, tableName string) (*MetadataRow, error) {
	ctx := context.Background()
	q := s.dialect.QuoteIdentifier
	stmt := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s = %s AND %s = %s",
		s.selectColumns(), q("lp_sync_metadata"), q("app_id"), s.dialect.Placeholder(1), q("table_name"), s.dialect.Placeholder(2),
	)
	res, err := s.driver.Query(ctx, stmt, []any{appID, tableName})
	if err != nil {
		return nil, fmt.Errorf("sync: querying lp_sync_metadata: %w", err)
	}
	if len(res.Rows) == 0 {
		return nil, nil
	}
	row := rowFromRecord(res.Rows[0])
	return &row, nil
}

// List returns every row for appID.
func (s *SQLStore) List(appID string) ([]MetadataRow, error) {
	ctx := context.Background()
	q := s.dialect.QuoteIdentifier
	stmt := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s", s.selectColumns(), q("lp_sync_metadata"), q("app_id"), s.dialect.Placeholder(1))
	res, err := s.driver.Query(ctx, stmt, []any{appID})
	if err != nil {
		return nil, fmt.Errorf("sync: listing lp_sync_metadata: %w", err)
	}
	out := make([]MetadataRow, 0, len(res.Rows))
	for _, r := range res.Rows {
		out = append(out, rowFromRecord(r))
	}
	return out, nil
}

// Upsert inserts or replaces the row for (row.AppID, row.TableName).
func (s *SQLStore) Upsert(row MetadataRow) error {
	ctx := context.Background()
	existing, err := s.Get(row.AppID, row.TableName)
	if err != nil {
		return err
	}

	q := s.dialect.QuoteIdentifier
	lastSyncAt := row.LastSyncAt
	if lastSyncAt.IsZero() {
		lastSyncAt = time.Now()
	}
	params := []any{
		row.AppID, row.TableName, row.LocalChecksum, row.RemoteChecksum, row.BaseChecksum,
		row.LocalVersion, row.RemoteVersion, lastSyncAt, string(row.LastSyncDir), row.LastSyncBy, row.ConflictDetails,
	}

	if existing == nil {
		placeholders := make([]string, len(params))
		for i := range placeholders {
			placeholders[i] = s.dialect.Placeholder(i + 1)
		}
		stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", q("lp_sync_metadata"), s.selectColumns(), strings.Join(placeholders, ", "))
		_, err := s.driver.Execute(ctx, stmt, params)
		return err
	}

	stmt := fmt.Sprintf(
		`UPDATE %s SET %s = %s, %s = %s, %s = %s, %s = %s, %s = %s, %s = %s, %s = %s, %s = %s, %s = %s
		WHERE %s = %s AND %s = %s`,
		q("lp_sync_metadata"),
		q("local_checksum"), s.dialect.Placeholder(1), q("remote_checksum"), s.dialect.Placeholder(2),
		q("base_checksum"), s.dialect.Placeholder(3), q("local_version"), s.dialect.Placeholder(4),
		q("remote_version"), s.dialect.Placeholder(5), q("last_sync_at"), s.dialect.Placeholder(6),
		q("last_sync_dir"), s.dialect.Placeholder(7), q("last_sync_by"), s.dialect.Placeholder(8),
		q("conflict_details"), s.dialect.Placeholder(9),
		q("app_id"), s.dialect.Placeholder(10), q("table_name"), s.dialect.Placeholder(11),
	)
	updateParams := append(params[2:], row.AppID, row.TableName)
	_, err = s.driver.Execute(ctx, stmt, updateParams)
	return err
}

func (s *SQLStore) selectColumns() string {
	q := s.dialect.QuoteIdentifier
	cols := []string{
		"app_id", "table_name", "local_checksum", "remote_checksum", "base_checksum",
		"local_version", "remote_version", "last_sync_at", "last_sync_dir", "last_sync_by", "conflict_details",
	}
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = q(c)
	}
	return strings.Join(quoted, ", ")
}

func rowFromRecord(r driver.Row) MetadataRow {
	return MetadataRow{
		AppID: toString(r["app_id"]), TableName: toString(r["table_name"]),
		LocalChecksum: toString(r["local_checksum"]), RemoteChecksum: toString(r["remote_checksum"]),
		BaseChecksum: toString(r["base_checksum"]), LocalVersion: int(toInt64(r["local_version"])),
		RemoteVersion: int(toInt64(r["remote_version"])), LastSyncAt: toTime(r["last_sync_at"]),
		LastSyncDir: Direction(toString(r["last_sync_dir"])), LastSyncBy: toString(r["last_sync_by"]),
		ConflictDetails: toString(r["conflict_details"]),
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

