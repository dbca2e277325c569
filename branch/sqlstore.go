package branch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/launchpad-hq/lpcore/dialect"
	"github.com/launchpad-hq/lpcore/driver"
)

// SQLStore is the default Store, backing lp_branch_metadata against a
// live driver/dialect pair.
type SQLStore struct {
	driver  driver.Driver
	dialect dialect.Dialect
}

// NewSQLStore constructs a SQLStore. Call EnsureSchema once before use.
func NewSQLStore(d driver.Driver, dia dialect.Dialect) *SQLStore {
	return &SQLStore{driver: d, dialect: dia}
}

// EnsureSchema creates lp_branch_metadata if it does not already exist.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	q := s.dialect.QuoteIdentifier
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	%s TEXT PRIMARY KEY,
	%s TEXT NOT NULL,
	%s TEXT NOT NULL,
	%s TEXT NOT NULL,
	%s TEXT NOT NULL DEFAULT '',
	%s TEXT NOT NULL DEFAULT '',
	%s TEXT NOT NULL DEFAULT '',
	%s TEXT NOT NULL,
	%s BOOLEAN NOT NULL DEFAULT FALSE,
	%s INTEGER NOT NULL DEFAULT 0,
	%s BOOLEAN NOT NULL DEFAULT FALSE,
	%s BOOLEAN NOT NULL DEFAULT FALSE,
	%s INTEGER NOT NULL DEFAULT 0,
	%s INTEGER NOT NULL DEFAULT 0,
	%s BIGINT NOT NULL DEFAULT 0,
	%s TIMESTAMP NOT NULL,
	%s TIMESTAMP NOT NULL,
	%s TIMESTAMP
)`,
		q("lp_branch_metadata"),
		q("id"), q("slug"), q("name"), q("namespace"), q("parent_slug"), q("git_ref"), q("pull_request_url"),
		q("status"), q("protected"), q("auto_delete_days"), q("copy_data"), q("pii_masking"),
		q("migration_count"), q("table_count"), q("storage_bytes"),
		q("created_at"), q("last_accessed_at"), q("deleted_at"),
	)
	_, err := s.driver.Execute(ctx, stmt, nil)
	return err
}

// Get returns the branch with the given id, or nil if none exists.
func (s *SQLStore) Get(id string) (*Branch, error) {
	return s.queryOne("id", id)
}

// GetBySlug returns the branch with the given slug, or nil if none exists.
func (s *SQLStore) GetBySlug(slug string) (*Branch, error) {
	return s.queryOne("slug", slug)
}

func (s *SQLStore) queryOne(column, value string) (*Branch, error) {
	ctx := context.Background()
	q := s.dialect.QuoteIdentifier
	stmt := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s", s.selectColumns(), q("lp_branch_metadata"), q(column), s.dialect.Placeholder(1))
	res, err := s.driver.Query(ctx, stmt, []any{value})
	if err != nil {
		return nil, fmt.Errorf("branch: querying lp_branch_metadata: %w", err)
	}
	if len(res.Rows) == 0 {
		return nil, nil
	}
	b := branchFromRecord(res.Rows[0])
	return &b, nil
}

// List returns every branch, in no particular order.
func (s *SQLStore) List() ([]Branch, error) {
	ctx := context.Background()
	q := s.dialect.QuoteIdentifier
	stmt := fmt.Sprintf("SELECT %s FROM %s", s.selectColumns(), q("lp_branch_metadata"))
	res, err := s.driver.Query(ctx, stmt, nil)
	if err != nil {
		return nil, fmt.Errorf("branch: listing lp_branch_metadata: %w", err)
	}
	out := make([]Branch, 0, len(res.Rows))
	for _, r := range res.Rows {
		out = append(out, branchFromRecord(r))
	}
	return out, nil
}

// Upsert inserts or replaces the row for b.ID.
func (s *SQLStore) Upsert(b Branch) error {
	ctx := context.Background()
	existing, err := s.Get(b.ID)
	if err != nil {
		return err
	}

	q := s.dialect.QuoteIdentifier
	var deletedAt any
	if b.DeletedAt != nil {
		deletedAt = *b.DeletedAt
	}
	params := []any{
		b.ID, b.Slug, b.Name, b.Namespace, b.ParentSlug, b.GitRef, b.PullRequestURL,
		string(b.Status), b.Protected, b.AutoDeleteDays, b.CopyData, b.PIIMasking,
		b.MigrationCount, b.TableCount, b.StorageBytes, b.CreatedAt, b.LastAccessedAt, deletedAt,
	}

	if existing == nil {
		placeholders := make([]string, len(params))
		for i := range placeholders {
			placeholders[i] = s.dialect.Placeholder(i + 1)
		}
		stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", q("lp_branch_metadata"), s.selectColumns(), strings.Join(placeholders, ", "))
		_, err := s.driver.Execute(ctx, stmt, params)
		return err
	}

	stmt := fmt.Sprintf(
		`UPDATE %s SET %s = %s, %s = %s, %s = %s, %s = %s, %s = %s, %s = %s, %s = %s, %s = %s,
		%s = %s, %s = %s, %s = %s, %s = %s, %s = %s, %s = %s, %s = %s, %s = %s WHERE %s = %s`,
		q("lp_branch_metadata"),
		q("slug"), s.dialect.Placeholder(1), q("name"), s.dialect.Placeholder(2),
		q("namespace"), s.dialect.Placeholder(3), q("parent_slug"), s.dialect.Placeholder(4),
		q("git_ref"), s.dialect.Placeholder(5), q("pull_request_url"), s.dialect.Placeholder(6),
		q("status"), s.dialect.Placeholder(7), q("protected"), s.dialect.Placeholder(8),
		q("auto_delete_days"), s.dialect.Placeholder(9), q("copy_data"), s.dialect.Placeholder(10),
		q("pii_masking"), s.dialect.Placeholder(11), q("migration_count"), s.dialect.Placeholder(12),
		q("table_count"), s.dialect.Placeholder(13), q("storage_bytes"), s.dialect.Placeholder(14),
		q("last_accessed_at"), s.dialect.Placeholder(15), q("deleted_at"), s.dialect.Placeholder(16),
		q("id"), s.dialect.Placeholder(17),
	)
	// Every column but id and created_at, in placeholder order, then the id.
	updateParams := append(append([]any{}, params[1:15]...), b.LastAccessedAt, deletedAt, b.ID)
	_, err = s.driver.Execute(ctx, stmt, updateParams)
	return err
}

// Delete removes the row for id.
func (s *SQLStore) Delete(id string) error {
	ctx := context.Background()
	q := s.dialect.QuoteIdentifier
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = %s", q("lp_branch_metadata"), q("id"), s.dialect.Placeholder(1))
	_, err := s.driver.Execute(ctx, stmt, []any{id})
	return err
}

func (s *SQLStore) selectColumns() string {
	q := s.dialect.QuoteIdentifier
	cols := []string{
		"id", "slug", "name", "namespace", "parent_slug", "git_ref", "pull_request_url",
		"status", "protected", "auto_delete_days", "copy_data", "pii_masking",
		"migration_count", "table_count", "storage_bytes", "created_at", "last_accessed_at", "deleted_at",
	}
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = q(c)
	}
	return strings.Join(quoted, ", ")
}

func branchFromRecord(r driver.Row) Branch {
	b := Branch{
		ID: toString(r["id"]), Slug: toString(r["slug"]), Name: toString(r["name"]),
		Namespace: toString(r["namespace"]), ParentSlug: toString(r["parent_slug"]),
		GitRef: toString(r["git_ref"]), PullRequestURL: toString(r["pull_request_url"]),
		Status: Status(toString(r["status"])), Protected: toBool(r["protected"]),
		AutoDeleteDays: int(toInt64(r["auto_delete_days"])), CopyData: toBool(r["copy_data"]),
		PIIMasking:     toBool(r["pii_masking"]),
		MigrationCount: int(toInt64(r["migration_count"])), TableCount: int(toInt64(r["table_count"])),
		StorageBytes: toInt64(r["storage_bytes"]), CreatedAt: toTime(r["created_at"]), LastAccessedAt: toTime(r["last_accessed_at"]),
	}
	if deletedAt := toTime(r["deleted_at"]); !deletedAt.IsZero() {
		b.DeletedAt = &deletedAt
	}
	return b
}

func toString(v any) string {
	s, _ := v.(string)
	return s
}

func toBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case int64:
		return b != 0
	case int:
		return b != 0
	default:
		return false
	}
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

