// Package tenant holds the immutable context that scopes every query the
// engine compiles to exactly one (app_id, organization_id) pair.
package tenant

import "github.com/launchpad-hq/lpcore/errs"

// Context is the (app_id, organization_id, [user_id]) triple threaded
// through every builder and transaction call. It has no lifecycle of its
// own beyond the call it scopes.
type Context struct {
	AppID          string
	OrganizationID string
	UserID         string // optional, blank when unset
}

// New constructs a Context and validates it immediately — there is no
// lazy/partial construction path per spec.
func New(appID, organizationID string) (Context, error) {
	ctx := Context{AppID: appID, OrganizationID: organizationID}
	if err := ctx.Validate(); err != nil {
		return Context{}, err
	}
	return ctx, nil
}

// WithUser returns a copy of ctx carrying userID.
func (c Context) WithUser(userID string) Context {
	c.UserID = userID
	return c
}

// Validate reports ErrTenantContextInvalid when AppID or OrganizationID is
// blank. UserID is optional and never validated.
func (c Context) Validate() error {
	if c.AppID == "" || c.OrganizationID == "" {
		return errs.ErrTenantContextInvalid
	}
	return nil
}

// Columns names the two columns that every tenant-injected table must
// carry, per spec.md's default naming; callers with a differently-named
// schema configure query.Config.TenantColumns instead of this default.
type Columns struct {
	AppID          string
	OrganizationID string
}

// DefaultColumns is the conventional column-name pair used when a
// Compiler is not configured with an explicit override.
var DefaultColumns = Columns{AppID: "app_id", OrganizationID: "organization_id"}
