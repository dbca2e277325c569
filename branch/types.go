// Package branch implements schema-level database branches: namespace
// clone with copy-on-write structure, PII-masked data copy, cross-branch
// diff/merge, and a time-based cleanup scheduler.
package branch

import "time"

// Status is the closed set of lifecycle states a Branch can be in.
type Status string

const (
	StatusActive    Status = "active"
	StatusProtected Status = "protected"
	StatusStale     Status = "stale"
	StatusDeleting  Status = "deleting"
)

// Branch is one lp_branch_metadata record.
type Branch struct {
	ID             string
	Slug           string
	Name           string
	Namespace      string // backing schema namespace: <prefix><slug>
	ParentSlug     string // empty for a root branch off the main namespace
	GitRef         string
	PullRequestURL string
	Status         Status
	Protected      bool
	AutoDeleteDays int
	CopyData       bool
	PIIMasking     bool
	MigrationCount int
	TableCount     int
	StorageBytes   int64
	CreatedAt      time.Time
	LastAccessedAt time.Time
	DeletedAt      *time.Time
}

// Store is the lp_branch_metadata persistence port.
type Store interface {
	Get(id string) (*Branch, error)
	GetBySlug(slug string) (*Branch, error)
	List() ([]Branch, error)
	Upsert(b Branch) error
	Delete(id string) error
}

// live reports whether the branch still occupies its slug (not yet deleted).
func live(b Branch) bool { return b.Status != StatusDeleting }

// statusForProtection returns StatusProtected or StatusActive according
// to the Protected flag. It does not look at the branch's current status;
// Create uses it for a new branch and Switch uses it to revive a
// StatusStale branch.
func statusForProtection(protected bool) Status {
	if protected {
		return StatusProtected
	}
	return StatusActive
}
