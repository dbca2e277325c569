package migrate

import "time"

// Scope distinguishes platform migrations from per-template migrations.
type Scope string

const (
	ScopeCore     Scope = "core"
	ScopeTemplate Scope = "template"
)

// HistoryRow is one row of the lp_migrations table.
type HistoryRow struct {
	Version     int64
	Name        string
	Scope       Scope
	TemplateKey string // empty when not scoped to a template
	ModuleName  string // empty when not a module migration; optional per spec
	Checksum    string
	UpSQL       []string
	DownSQL     []string
	AppliedAt   time.Time
	ExecutedBy  string
}

// Store is the persistence port for the history table. SQLStore is the
// default implementation (table creation, row CRUD against lp_migrations);
// the engine only talks to this interface.
type Store interface {
	// Applied returns every history row for (scope, templateKey), ordered
	// by version ascending.
	Applied(scope Scope, templateKey string) ([]HistoryRow, error)
	// Insert records a newly applied migration.
	Insert(row HistoryRow) error
	// Remove deletes the history row for (scope, templateKey, version),
	// used when rolling a migration back.
	Remove(scope Scope, templateKey string, version int64) error
}
