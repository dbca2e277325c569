package introspect

import (
	"context"
	"fmt"
	"sync"

	"github.com/launchpad-hq/lpcore/dialect"
	"github.com/launchpad-hq/lpcore/driver"
	"github.com/launchpad-hq/lpcore/schema"
)

// DatabaseInfo carries catalog-level facts that don't belong on any one
// table: the backend version string and the installed extensions.
type DatabaseInfo struct {
	Version    string
	Extensions map[string]string // name -> version
}

// Introspecter reconstructs a live database's schema through one
// dialect's catalog queries, normalized to schema.Definition.
type Introspecter interface {
	Dialect() dialect.Name
	IntrospectSchema(ctx context.Context, client driver.Client, namespace string) (*schema.Definition, *DatabaseInfo, error)
}

var (
	mu       sync.RWMutex
	registry = map[dialect.Name]func() Introspecter{}
)

// Register adds an introspecter constructor, mirroring the dialect
// package's own registry pattern.
func Register(name dialect.Name, ctor func() Introspecter) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = ctor
}

// Get returns a fresh Introspecter for name, or an error if no package
// registered that name (missing blank import).
func Get(name dialect.Name) (Introspecter, error) {
	mu.RLock()
	ctor, ok := registry[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("introspect: %q is not registered (missing blank import?)", name)
	}
	return ctor(), nil
}
