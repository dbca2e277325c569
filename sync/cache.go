package sync

import (
	"sync"
	"time"
)

type cacheEntry struct {
	schema    *RemoteSchema
	fetchedAt time.Time
}

// schemaCache is the remote client's per-environment TTL cache, cleared
// wholesale on every push since a push may invalidate any entry.
type schemaCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

func newSchemaCache() *schemaCache {
	return &schemaCache{entries: map[string]cacheEntry{}}
}

func (c *schemaCache) get(env string, ttl time.Duration) (*RemoteSchema, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[env]
	if !ok || time.Since(entry.fetchedAt) > ttl {
		return nil, false
	}
	return entry.schema, true
}

func (c *schemaCache) put(env string, schema *RemoteSchema) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[env] = cacheEntry{schema: schema, fetchedAt: time.Now()}
}

func (c *schemaCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]cacheEntry{}
}
