// Package module implements the module registry: CRUD over declared
// lp_modules rows plus a collector that discovers per-module migration
// directories and stamps their migrations for the migration engine.
package module

import (
	"context"
	"fmt"
	"time"
)

// Definition is one module's declared identity, mirroring lp.module.toml.
type Definition struct {
	Name            string
	DisplayName     string
	Description     string
	Version         string
	Dependencies    []string
	MigrationPrefix string
	RegisteredAt    time.Time
}

// Store is the lp_modules persistence port.
type Store interface {
	List(ctx context.Context) ([]Definition, error)
	Get(ctx context.Context, name string) (*Definition, error)
	Upsert(ctx context.Context, def Definition) error
	Delete(ctx context.Context, name string) error
}

// Registry provides validated CRUD over module definitions.
type Registry struct {
	store Store
}

// New constructs a Registry over store.
func New(store Store) *Registry {
	return &Registry{store: store}
}

// Register validates and upserts a module definition.
func (r *Registry) Register(ctx context.Context, def Definition) error {
	if err := validate(def); err != nil {
		return err
	}
	if def.RegisteredAt.IsZero() {
		def.RegisteredAt = time.Now()
	}
	return r.store.Upsert(ctx, def)
}

// Get returns the definition for name, or an error if it is not registered.
func (r *Registry) Get(ctx context.Context, name string) (*Definition, error) {
	return r.store.Get(ctx, name)
}

// List returns every registered module definition.
func (r *Registry) List(ctx context.Context) ([]Definition, error) {
	return r.store.List(ctx)
}

// Unregister removes a module definition.
func (r *Registry) Unregister(ctx context.Context, name string) error {
	return r.store.Delete(ctx, name)
}

func validate(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("module: definition requires a name")
	}
	if def.Version == "" {
		return fmt.Errorf("module: %q requires a version", def.Name)
	}
	if def.MigrationPrefix == "" {
		return fmt.Errorf("module: %q requires a migration prefix", def.Name)
	}
	return nil
}
