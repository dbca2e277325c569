package branch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/launchpad-hq/lpcore/dialect"
	"github.com/launchpad-hq/lpcore/driver"
	"github.com/launchpad-hq/lpcore/errs"
	"github.com/launchpad-hq/lpcore/introspect"
	"github.com/launchpad-hq/lpcore/migrate"
)

// Config fixes the engine's namespace conventions.
type Config struct {
	BranchPrefix  string // e.g. "br_"
	MainNamespace string // e.g. "public"
}

// Engine creates, switches, diffs, merges, deletes, and cleans up schema
// branches. It is Postgres-only: namespace clone relies on CREATE SCHEMA,
// sequences, and views, none of which MySQL or SQLite model the same way.
type Engine struct {
	driver       driver.Driver
	dialect      dialect.Dialect
	introspecter introspect.Introspecter
	store        Store
	history      migrate.Store
	cfg          Config
	logger       *zap.Logger
}

// New constructs an Engine. Create returns errs.ErrUnsupportedOperation
// immediately if dia is not the Postgres dialect.
func New(d driver.Driver, dia dialect.Dialect, introspecter introspect.Introspecter, store Store, history migrate.Store, cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{driver: d, dialect: dia, introspecter: introspecter, store: store, history: history, cfg: cfg, logger: logger}
}

// CreateOptions configures Create.
type CreateOptions struct {
	Name           string
	ParentSlug     string // empty clones from cfg.MainNamespace
	CopyData       bool
	PIIMasking     bool
	Protected      bool
	AutoDeleteDays int
	GitRef         string
	PullRequestURL string
}

// Create derives a slug from opts.Name, clones the parent (or main)
// namespace's tables/sequences/views into a fresh target namespace within
// one transaction, optionally copies data (PII-masked per maskExpression),
// and inserts the branch metadata row atomically with the clone.
func (e *Engine) Create(ctx context.Context, opts CreateOptions) (*Branch, error) {
	if e.dialect.Name() != dialect.Postgres {
		return nil, errs.Unsupportedf("branch: namespace clone requires the postgres dialect, got %q", e.dialect.Name())
	}

	slug := Slugify(opts.Name)
	if slug == "" {
		return nil, fmt.Errorf("branch: name %q produced an empty slug", opts.Name)
	}
	if err := e.requireUniqueSlug(slug); err != nil {
		return nil, err
	}

	sourceNamespace := e.cfg.MainNamespace
	if opts.ParentSlug != "" {
		parent, err := e.store.GetBySlug(opts.ParentSlug)
		if err != nil {
			return nil, fmt.Errorf("branch: loading parent %q: %w", opts.ParentSlug, err)
		}
		if parent == nil {
			return nil, fmt.Errorf("branch: parent branch %q not found", opts.ParentSlug)
		}
		sourceNamespace = parent.Namespace
	}
	targetNamespace := e.cfg.BranchPrefix + slug

	b := Branch{
		ID: uuid.New().String(), Slug: slug, Name: opts.Name, Namespace: targetNamespace,
		ParentSlug: opts.ParentSlug, GitRef: opts.GitRef, PullRequestURL: opts.PullRequestURL,
		Status: statusForProtection(opts.Protected), Protected: opts.Protected, AutoDeleteDays: opts.AutoDeleteDays,
		CopyData: opts.CopyData, PIIMasking: opts.PIIMasking,
		CreatedAt: time.Now(), LastAccessedAt: time.Now(),
	}

	err := e.driver.Transaction(ctx, func(ctx context.Context, c driver.Client) error {
		if err := e.cloneNamespace(ctx, c, sourceNamespace, targetNamespace, opts.CopyData, opts.PIIMasking); err != nil {
			return err
		}
		return e.store.Upsert(b)
	})
	if err != nil {
		return nil, fmt.Errorf("branch: creating %q: %w", slug, err)
	}

	e.logger.Info("branch: created", zap.String("slug", slug), zap.String("namespace", targetNamespace))
	return &b, nil
}

func (e *Engine) requireUniqueSlug(slug string) error {
	existing, err := e.store.List()
	if err != nil {
		return fmt.Errorf("branch: listing branches: %w", err)
	}
	for _, b := range existing {
		if b.Slug == slug && live(b) {
			return fmt.Errorf("branch: slug %q is already in use", slug)
		}
	}
	return nil
}

// SwitchResult is the connection info Switch returns.
type SwitchResult struct {
	ConnectionString string
	SearchPath       string
	SchemaName       string
}

// Switch touches a branch's last-accessed timestamp and returns the
// connection-scoping info a caller needs to route queries at it.
func (e *Engine) Switch(ctx context.Context, slug string) (*SwitchResult, error) {
	b, err := e.store.GetBySlug(slug)
	if err != nil {
		return nil, fmt.Errorf("branch: loading %q: %w", slug, err)
	}
	if b == nil {
		return nil, fmt.Errorf("branch: %q not found", slug)
	}
	b.LastAccessedAt = time.Now()
	if b.Status == StatusStale {
		b.Status = statusForProtection(b.Protected)
	}
	if err := e.store.Upsert(*b); err != nil {
		return nil, fmt.Errorf("branch: updating last-accessed time for %q: %w", slug, err)
	}
	return &SwitchResult{
		SearchPath: fmt.Sprintf("%s, %s", b.Namespace, e.cfg.MainNamespace),
		SchemaName: b.Namespace,
	}, nil
}

// Delete marks the branch deleting, drops its namespace cascade, and
// removes the metadata row, all within one transaction. A protected
// branch refuses deletion unless force is set.
func (e *Engine) Delete(ctx context.Context, slug string, force bool) error {
	b, err := e.store.GetBySlug(slug)
	if err != nil {
		return fmt.Errorf("branch: loading %q: %w", slug, err)
	}
	if b == nil {
		return fmt.Errorf("branch: %q not found", slug)
	}
	if b.Protected && !force {
		return fmt.Errorf("branch: %q is protected; pass force to delete", slug)
	}

	now := time.Now()
	b.Status = StatusDeleting
	b.DeletedAt = &now

	return e.driver.Transaction(ctx, func(ctx context.Context, c driver.Client) error {
		if err := e.store.Upsert(*b); err != nil {
			return fmt.Errorf("marking %q deleting: %w", slug, err)
		}
		stmt := fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", e.dialect.QuoteIdentifier(b.Namespace))
		if _, err := c.Execute(ctx, stmt, nil); err != nil {
			return fmt.Errorf("dropping namespace %q: %w", b.Namespace, err)
		}
		return e.store.Delete(b.ID)
	})
}
