// Package catalog caches resolved runtime configurations.
//
// Resolution walks the store on every call: agent, active version, tool
// catalog rows, overrides, middleware registry. Agent runtimes fetch
// their configuration on every boot and some poll it, so the cache keeps
// repeated resolutions off the store.
//
// Two rules keep cached data honest:
//
//  1. Entries are deep-copied on every read and write. Callers mutate
//     their own copy, never the cached one.
//
//  2. Activation invalidates everything, not just the activated agent.
//     Activating agent B flips agent-kind tool enablement inside any
//     other agent's configuration, so per-name invalidation would serve
//     stale tool sets.
//
// A zero TTL disables caching and every call passes through.
package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/agentrig/agentrig/control-plane/pkg/contracts"
	"github.com/agentrig/agentrig/control-plane/pkg/models"
	"github.com/rs/zerolog/log"
)

// DefaultTTL bounds how long a resolved configuration is served from
// memory before the store is consulted again.
const DefaultTTL = 30 * time.Second

// entry is one cached configuration with its fill time.
type entry struct {
	cfg      *models.RuntimeConfiguration
	cachedAt time.Time
}

// Cache is a TTL cache over a ConfigResolver, keyed by agent name.
type Cache struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	upstream contracts.ConfigResolver
	ttl      time.Duration
}

// NewCache wraps the resolver with a TTL cache. A negative ttl falls
// back to DefaultTTL; zero disables caching.
func NewCache(upstream contracts.ConfigResolver, ttl time.Duration) *Cache {
	if ttl < 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		entries:  make(map[string]*entry),
		upstream: upstream,
		ttl:      ttl,
	}
}

// Resolve returns the agent's runtime configuration, from cache when a
// fresh entry exists, resolving through the upstream otherwise.
func (c *Cache) Resolve(ctx context.Context, agentName string) (*models.RuntimeConfiguration, error) {
	if c.ttl == 0 {
		return c.upstream.Resolve(ctx, agentName)
	}

	c.mu.RLock()
	e, ok := c.entries[agentName]
	if ok && time.Since(e.cachedAt) < c.ttl {
		cfg := e.cfg.Clone()
		c.mu.RUnlock()
		return &cfg, nil
	}
	c.mu.RUnlock()

	return c.ResolveFresh(ctx, agentName)
}

// ResolveFresh bypasses the cache, resolves through the upstream, and
// repopulates the entry on success.
func (c *Cache) ResolveFresh(ctx context.Context, agentName string) (*models.RuntimeConfiguration, error) {
	cfg, err := c.upstream.Resolve(ctx, agentName)
	if err != nil {
		return nil, err
	}

	if c.ttl > 0 {
		snapshot := cfg.Clone()
		c.mu.Lock()
		c.entries[agentName] = &entry{cfg: &snapshot, cachedAt: time.Now()}
		c.mu.Unlock()
	}
	return cfg, nil
}

// Invalidate drops the entry for one agent.
func (c *Cache) Invalidate(agentName string) {
	c.mu.Lock()
	delete(c.entries, agentName)
	c.mu.Unlock()
}

// InvalidateAll drops every entry. Called after activations: activation
// state feeds agent-kind tool enablement across all configurations.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[string]*entry)
	c.mu.Unlock()

	if n > 0 {
		log.Debug().Int("entries", n).Msg("Configuration cache invalidated")
	}
}

// Len returns the number of cached entries, fresh or expired.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
