// Package sync implements the schema sync service: a remote client over
// the project's schema authority HTTP API, a pull/push/diff workflow
// built on the introspector and diff engine, and a sync-metadata table
// keyed by (app, table) for checksums and conflicts. Pull and Push record
// one schema-level row under the table name "*"; no per-table rows are
// written.
package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/launchpad-hq/lpcore/errs"
)

// RemoteSchema is the payload GET /schema returns.
type RemoteSchema struct {
	Schema    json.RawMessage `json:"schema"`
	Version   int             `json:"version"`
	Checksum  string          `json:"checksum"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Env       string          `json:"env"`
}

// SyncStatus is the payload GET /sync-status returns.
type SyncStatus struct {
	Version   int       `json:"version"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updatedAt"`
	Env       string    `json:"env"`
}

// PushResult is the payload POST /migrations returns.
type PushResult struct {
	Success  bool     `json:"success"`
	Applied  bool     `json:"applied"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// PushOptions configures a push request.
type PushOptions struct {
	DryRun bool
	Force  bool
}

// RemoteConfig configures the HTTP remote client.
type RemoteConfig struct {
	BaseURL    string
	ProjectID  string
	Token      string
	Retries    int
	HTTPClient *http.Client
	CacheTTL   time.Duration
}

// Remote is the sync service's HTTP port to the project's schema
// authority. A small TTL cache keyed by environment suppresses duplicate
// fetchSchema calls; every pushMigration clears the whole cache since a
// push may change what a subsequent fetch would return.
type Remote struct {
	cfg   RemoteConfig
	cache *schemaCache
}

// NewRemote constructs a Remote client, defaulting HTTPClient/Retries/
// CacheTTL when the caller left them zero.
func NewRemote(cfg RemoteConfig) *Remote {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 3
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}
	return &Remote{cfg: cfg, cache: newSchemaCache()}
}

// FetchSchema returns the remote schema for env, serving a cached copy
// when one is fresh enough.
func (r *Remote) FetchSchema(ctx context.Context, env string) (*RemoteSchema, error) {
	if cached, ok := r.cache.get(env, r.cfg.CacheTTL); ok {
		return cached, nil
	}

	url := fmt.Sprintf("%s/v1/projects/%s/schema", r.cfg.BaseURL, r.cfg.ProjectID)
	var out RemoteSchema
	if err := r.do(ctx, http.MethodGet, url, env, nil, &out); err != nil {
		return nil, err
	}
	r.cache.put(env, &out)
	return &out, nil
}

// GetSyncStatus returns the remote's current version/checksum for env.
func (r *Remote) GetSyncStatus(ctx context.Context, env string) (*SyncStatus, error) {
	url := fmt.Sprintf("%s/v1/projects/%s/schema/sync-status", r.cfg.BaseURL, r.cfg.ProjectID)
	var out SyncStatus
	if err := r.do(ctx, http.MethodGet, url, env, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PushMigration sends a synthesized migration (forward DDL statements) to
// the remote schema authority and clears the schema cache on success.
func (r *Remote) PushMigration(ctx context.Context, env string, migration []string, opts PushOptions) (*PushResult, error) {
	url := fmt.Sprintf("%s/v1/projects/%s/schema/migrations", r.cfg.BaseURL, r.cfg.ProjectID)
	body := struct {
		Migration []string `json:"migration"`
		DryRun    bool     `json:"dryRun"`
		Force     bool     `json:"force"`
	}{Migration: migration, DryRun: opts.DryRun, Force: opts.Force}

	var out PushResult
	if err := r.do(ctx, http.MethodPost, url, env, body, &out); err != nil {
		return nil, err
	}
	r.cache.clear()
	return &out, nil
}

// HealthCheck probes the remote authority's liveness endpoint.
func (r *Remote) HealthCheck(ctx context.Context) error {
	url := fmt.Sprintf("%s/v1/health", r.cfg.BaseURL)
	return r.do(ctx, http.MethodGet, url, "", nil, nil)
}

// do retries transport-level 5xx responses with exponential backoff,
// bounded by cfg.Retries; a 401 or other 4xx returns immediately.
func (r *Remote) do(ctx context.Context, method, url, env string, body, out any) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = 0

	bounded := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(r.cfg.Retries)), ctx)

	return backoff.Retry(func() error {
		err := r.doOnce(ctx, method, url, env, body, out)
		if err == nil {
			return nil
		}
		var remote *errs.SchemaRemote
		if asRemote(err, &remote) && remote.StatusCode >= 500 {
			return err
		}
		return backoff.Permanent(err)
	}, bounded)
}

func (r *Remote) doOnce(ctx context.Context, method, url, env string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("sync: encoding request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("sync: building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.cfg.Token)
	if env != "" {
		req.Header.Set("X-Environment", env)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("sync: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("sync: reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return errs.ErrAuthentication
	case resp.StatusCode >= 400:
		return &errs.SchemaRemote{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("sync: decoding response: %w", err)
	}
	return nil
}

func asRemote(err error, target **errs.SchemaRemote) bool {
	r, ok := err.(*errs.SchemaRemote)
	if !ok {
		return false
	}
	*target = r
	return true
}
