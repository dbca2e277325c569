package sync

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
	"github.com/launchpad-hq/lpcore/errs"
	"github.com/launchpad-hq/lpcore/introspect"
	"github.com/launchpad-hq/lpcore/schema"
)

// Service runs the pull/push/diff workflow between a local database and
// the project's remote schema authority, persisting per-table sync state.
type Service struct {
	appID        string
	namespace    string
	remote       *Remote
	introspecter introspect.Introspecter
	driver       driver.Driver
	dialect      dialect.Dialect
	metadata     MetadataStore
	logger       *zap.Logger
}

// Config bundles Service's collaborators.
type Config struct {
	AppID        string
	Namespace    string
	Remote       *Remote
	Introspecter introspect.Introspecter
	Driver       driver.Driver
	Dialect      dialect.Dialect
	Metadata     MetadataStore
	Logger       *zap.Logger
}

// NewService constructs a Service.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		appID: cfg.AppID, namespace: cfg.Namespace, remote: cfg.Remote,
		introspecter: cfg.Introspecter, driver: cfg.Driver, dialect: cfg.Dialect,
		metadata: cfg.Metadata, logger: logger,
	}
}

// PullResult is the outcome of Pull.
type PullResult struct {
	Applied bool
	Diff    *introspect.DiffResult
}

// Pull fetches the remote schema, diffs it against the local database
// (target = remote), and — unless DryRun — applies the converging
// migration and records pull sync state. Breaking changes without Force
// return an *errs.BreakingChange.
func (s *Service) Pull(ctx context.Context, env string, force, dryRun bool) (*PullResult, error) {
	remoteSchema, err := s.remote.FetchSchema(ctx, env)
	if err != nil {
		return nil, err
	}
	target, err := unmarshalDefinition(remoteSchema.Schema)
	if err != nil {
		return nil, fmt.Errorf("sync: decoding remote schema: %w", err)
	}

	local, _, err := s.introspecter.IntrospectSchema(ctx, s.driver, s.namespace)
	if err != nil {
		return nil, fmt.Errorf("sync: introspecting local schema: %w", err)
	}

	diffResult, err := introspect.Diff(local, target, s.dialect, introspect.DefaultDiffOptions())
	if err != nil {
		return nil, fmt.Errorf("sync: diffing schema: %w", err)
	}
	if len(diffResult.BreakingChanges) > 0 && !force {
		return nil, &errs.BreakingChange{Changes: toBreakingItems(diffResult.BreakingChanges)}
	}

	if dryRun || !diffResult.HasDifferences {
		return &PullResult{Applied: false, Diff: diffResult}, nil
	}

	if err := s.apply(ctx, diffResult.Migration); err != nil {
		return nil, fmt.Errorf("sync: applying pull migration: %w", err)
	}
	s.recordSync(local, target, DirectionPull)
	s.logger.Info("sync: pulled", zap.String("env", env), zap.Int("changes", len(diffResult.Changes)))
	return &PullResult{Applied: true, Diff: diffResult}, nil
}

// PushOutcome is the outcome of Push.
type PushOutcome struct {
	Applied bool
	Diff    *introspect.DiffResult
	Remote  *PushResult
}

// Push introspects the local database, fetches the remote schema, diffs
// (target = local), and — unless DryRun — pushes the synthesized
// migration to the remote and records push sync state. Breaking changes
// without Force return an *errs.BreakingChange.
func (s *Service) Push(ctx context.Context, env string, force, dryRun bool) (*PushOutcome, error) {
	local, _, err := s.introspecter.IntrospectSchema(ctx, s.driver, s.namespace)
	if err != nil {
		return nil, fmt.Errorf("sync: introspecting local schema: %w", err)
	}
	remoteSchema, err := s.remote.FetchSchema(ctx, env)
	if err != nil {
		return nil, err
	}
	current, err := unmarshalDefinition(remoteSchema.Schema)
	if err != nil {
		return nil, fmt.Errorf("sync: decoding remote schema: %w", err)
	}

	diffResult, err := introspect.Diff(current, local, s.dialect, introspect.DefaultDiffOptions())
	if err != nil {
		return nil, fmt.Errorf("sync: diffing schema: %w", err)
	}
	if len(diffResult.BreakingChanges) > 0 && !force {
		return nil, &errs.BreakingChange{Changes: toBreakingItems(diffResult.BreakingChanges)}
	}

	if dryRun || !diffResult.HasDifferences {
		return &PushOutcome{Applied: false, Diff: diffResult}, nil
	}

	pushed, err := s.remote.PushMigration(ctx, env, diffResult.Migration, PushOptions{DryRun: dryRun, Force: force})
	if err != nil {
		return nil, err
	}
	s.recordSync(current, local, DirectionPush)
	s.logger.Info("sync: pushed", zap.String("env", env), zap.Int("changes", len(diffResult.Changes)))
	return &PushOutcome{Applied: pushed.Applied, Diff: diffResult, Remote: pushed}, nil
}

// Format is the closed set of rendering modes Diff accepts.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatSQL  Format = "sql"
)

// Diff introspects local, fetches remote, diffs, and renders the result
// in the requested format.
func (s *Service) Diff(ctx context.Context, env string, format Format) (string, error) {
	local, _, err := s.introspecter.IntrospectSchema(ctx, s.driver, s.namespace)
	if err != nil {
		return "", fmt.Errorf("sync: introspecting local schema: %w", err)
	}
	remoteSchema, err := s.remote.FetchSchema(ctx, env)
	if err != nil {
		return "", err
	}
	target, err := unmarshalDefinition(remoteSchema.Schema)
	if err != nil {
		return "", fmt.Errorf("sync: decoding remote schema: %w", err)
	}

	diffResult, err := introspect.Diff(local, target, s.dialect, introspect.DefaultDiffOptions())
	if err != nil {
		return "", fmt.Errorf("sync: diffing schema: %w", err)
	}
	switch format {
	case FormatJSON:
		raw, err := json.Marshal(diffResult)
		if err != nil {
			return "", fmt.Errorf("sync: encoding diff: %w", err)
		}
		return string(raw), nil
	case FormatSQL:
		out := ""
		for _, stmt := range diffResult.Migration {
			out += stmt + "\n"
		}
		return out, nil
	default:
		return diffResult.Summary, nil
	}
}

// Conflicts returns the rows where local and remote checksums have both
// diverged from their last common base.
func (s *Service) Conflicts() ([]MetadataRow, error) {
	rows, err := s.metadata.List(s.appID)
	if err != nil {
		return nil, fmt.Errorf("sync: listing sync metadata: %w", err)
	}
	return detectConflicts(rows), nil
}

func (s *Service) apply(ctx context.Context, statements []string) error {
	if s.dialect.SupportsTransactionalDDL() {
		return s.driver.Transaction(ctx, func(ctx context.Context, c driver.Client) error {
			for _, stmt := range statements {
				if _, err := c.Execute(ctx, stmt, nil); err != nil {
					return err
				}
			}
			return nil
		})
	}
	for _, stmt := range statements {
		if _, err := s.driver.Execute(ctx, stmt, nil); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) recordSync(local, remote *schema.Definition, dir Direction) {
	localSum := checksumDefinition(local)
	remoteSum := checksumDefinition(remote)
	row := MetadataRow{
		AppID:          s.appID,
		TableName:      "*", // schema-level sync row; no per-table rows are written
		LocalChecksum:  localSum,
		RemoteChecksum: remoteSum,
		BaseChecksum:   remoteSum,
		LastSyncAt:     time.Now(),
		LastSyncDir:    dir,
	}
	if err := s.metadata.Upsert(row); err != nil {
		s.logger.Warn("sync: failed to record sync metadata", zap.Error(err))
	}
}

func unmarshalDefinition(raw json.RawMessage) (*schema.Definition, error) {
	var def schema.Definition
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, err
	}
	return &def, nil
}

func checksumDefinition(def *schema.Definition) string {
	raw, _ := json.Marshal(def)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func toBreakingItems(changes []introspect.Change) []errs.BreakingChangeItem {
	items := make([]errs.BreakingChangeItem, len(changes))
	for i, c := range changes {
		items[i] = errs.BreakingChangeItem{Table: c.Table, Kind: string(c.Type), Description: c.Description}
	}
	return items
}
