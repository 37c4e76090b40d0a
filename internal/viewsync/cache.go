// Package viewsync keeps every open dashboard consistent with the shared
// order and menu state. Mutations bump a shared view version, which makes
// every cached read unreachable, and notify push sinks. Clients refetch on
// mount, focus, invalidation, and (for status views) on a fixed poll.
package viewsync

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type Scope string

const (
	ScopeOrders     Scope = "orders"
	ScopeCategories Scope = "categories"
	ScopeMenuItems  Scope = "menu-items"
	ScopeAnalytics  Scope = "analytics"
)

// AllScopes is invalidated on every mutation: menu items reference
// categories and analytics derive from orders.
var AllScopes = []Scope{ScopeOrders, ScopeCategories, ScopeMenuItems, ScopeAnalytics}

// Cache stores serialized views under versioned keys.
type Cache interface {
	Version(ctx context.Context) (uint64, error)
	Bump(ctx context.Context) (uint64, error)
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func Key(version uint64, scope Scope, key string) string {
	return fmt.Sprintf("v%d:%s:%s", version, scope, key)
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

type MemoryCache struct {
	mu      sync.Mutex
	version uint64
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Version(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version, nil
}

// Bump advances the version and drops every entry, since none of them can
// be addressed any more.
func (c *MemoryCache) Bump(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version++
	c.entries = make(map[string]memoryEntry)
	return c.version, nil
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if c.now().After(entry.expires) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{value: value, expires: c.now().Add(ttl)}
	return nil
}
