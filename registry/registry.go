// Package registry implements the schema registry: validated register of
// a target schema.Definition per (appID, schemaName), diffed against the
// currently stored definition, converging migration applied
// transactionally where the dialect supports it, and the registry row
// upserted with the new version and checksum.
package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/launchpad-hq/lpcore/dialect"
	"github.com/launchpad-hq/lpcore/driver"
	"github.com/launchpad-hq/lpcore/introspect"
	"github.com/launchpad-hq/lpcore/schema"
	"github.com/launchpad-hq/lpcore/tenant"
)

// Row is one lp_schema_registry record.
type Row struct {
	AppID      string
	SchemaName string
	Version    int
	Schema     string // serialized schema.Definition JSON
	Checksum   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Store is the lp_schema_registry persistence port.
type Store interface {
	// Get returns the currently stored row, or nil if none exists.
	Get(ctx context.Context, appID, schemaName string) (*Row, error)
	Upsert(ctx context.Context, row Row) error
}

// Registry validates, diffs, and converges schemas onto a live database.
type Registry struct {
	store   Store
	driver  driver.Driver
	dialect dialect.Dialect
	logger  *zap.Logger
}

// New constructs a Registry.
func New(store Store, d driver.Driver, dia dialect.Dialect, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{store: store, driver: d, dialect: dia, logger: logger}
}

// Result is the outcome of one Register call.
type Result struct {
	Changes []introspect.Change
	Version int
}

// Register validates target, diffs it against the stored definition for
// (appID, schemaName), applies the converging migration, and upserts the
// registry row. Re-registering an identical schema returns an empty
// Result with no changes and no version bump.
func (r *Registry) Register(ctx context.Context, appID, schemaName string, target *schema.Definition) (*Result, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	if err := validateIDRolePrimaryKeys(target); err != nil {
		return nil, err
	}
	if err := validateTenantFlags(target); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(target)
	if err != nil {
		return nil, fmt.Errorf("registry: serializing schema: %w", err)
	}
	if err := validateDocument(raw); err != nil {
		return nil, err
	}

	existing, err := r.store.Get(ctx, appID, schemaName)
	if err != nil {
		return nil, fmt.Errorf("registry: loading stored schema: %w", err)
	}

	var current *schema.Definition
	if existing != nil {
		current = &schema.Definition{}
		if err := json.Unmarshal([]byte(existing.Schema), current); err != nil {
			return nil, fmt.Errorf("registry: deserializing stored schema: %w", err)
		}
	}

	diffResult, err := introspect.Diff(current, target, r.dialect, introspect.DefaultDiffOptions())
	if err != nil {
		return nil, fmt.Errorf("registry: diffing schema: %w", err)
	}
	if !diffResult.HasDifferences {
		return &Result{}, nil
	}

	if err := r.apply(ctx, diffResult.Migration); err != nil {
		return nil, fmt.Errorf("registry: applying converging migration: %w", err)
	}

	version := 1
	if existing != nil {
		version = existing.Version + 1
	}
	now := time.Now()
	row := Row{
		AppID:      appID,
		SchemaName: schemaName,
		Version:    version,
		Schema:     string(raw),
		Checksum:   checksum(raw),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if existing != nil {
		row.CreatedAt = existing.CreatedAt
	}
	if err := r.store.Upsert(ctx, row); err != nil {
		return nil, fmt.Errorf("registry: upserting registry row: %w", err)
	}

	r.logger.Info("registry: registered schema",
		zap.String("app_id", appID), zap.String("schema_name", schemaName),
		zap.Int("version", version), zap.Int("changes", len(diffResult.Changes)))

	return &Result{Changes: diffResult.Changes, Version: version}, nil
}

func (r *Registry) apply(ctx context.Context, statements []string) error {
	if r.dialect.SupportsTransactionalDDL() {
		return r.driver.Transaction(ctx, func(ctx context.Context, c driver.Client) error {
			for _, stmt := range statements {
				if _, err := c.Execute(ctx, stmt, nil); err != nil {
					return err
				}
			}
			return nil
		})
	}
	for _, stmt := range statements {
		if _, err := r.driver.Execute(ctx, stmt, nil); err != nil {
			return err
		}
	}
	return nil
}

func checksum(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// validateIDRolePrimaryKeys enforces spec's "every table has an id-role
// primary key": a single primary key column named "id".
func validateIDRolePrimaryKeys(def *schema.Definition) error {
	for _, t := range def.Tables {
		pk := t.PrimaryKeyColumns()
		if len(pk) != 1 || pk[0] != "id" {
			return fmt.Errorf("registry: table %q must declare a single primary key column named \"id\"", t.Name)
		}
	}
	return nil
}

// validateTenantFlags enforces spec's "tenant columns, if present, are
// flagged": any column named after the conventional tenant columns must
// carry Tenant=true.
func validateTenantFlags(def *schema.Definition) error {
	for _, t := range def.Tables {
		for _, name := range []string{tenant.DefaultColumns.AppID, tenant.DefaultColumns.OrganizationID} {
			if c := t.Column(name); c != nil && !c.Tenant {
				return fmt.Errorf("registry: table %q column %q is a conventional tenant column but is not flagged Tenant", t.Name, name)
			}
		}
	}
	return nil
}
