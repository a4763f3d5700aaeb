// AngelaMos | 2026
// cache.go

package client

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// QueryKey identifies one cached query: a registered family name plus the
// serialized arguments that distinguish it from its siblings.
type QueryKey struct {
	Family string
	Args   string
}

// Family is one named query family. Refetch must return the authoritative
// server value for any key in the family. Affects names cross-cutting
// families (aggregates, derived views) that a write to this family can
// change in ways a speculative patch cannot predict.
type Family struct {
	Name    string
	Refetch func(ctx context.Context, key QueryKey) (any, error)
	Affects []string
}

type entry struct {
	value   any
	version uint64
	stale   bool
}

// Cache is the client-side query cache. All access is mutex-guarded; there
// are no background workers, so every state transition happens inside the
// calling goroutine.
type Cache struct {
	mu          sync.Mutex
	families    map[string]Family
	entries     map[QueryKey]*entry
	nextVersion uint64
	logger      *slog.Logger
}

func NewCache(logger *slog.Logger) *Cache {
	return &Cache{
		families: make(map[string]Family),
		entries:  make(map[QueryKey]*entry),
		logger:   logger,
	}
}

// Register adds a query family. Family names are a closed, typed set per
// client; an unknown name anywhere else is a programming error.
func (c *Cache) Register(f Family) error {
	if f.Name == "" {
		return fmt.Errorf("register family: empty name")
	}
	if f.Refetch == nil {
		return fmt.Errorf("register family %q: nil refetch", f.Name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.families[f.Name]; ok {
		return fmt.Errorf("register family %q: already registered", f.Name)
	}
	c.families[f.Name] = f
	return nil
}

// Get returns the cached value for key and whether it is present and fresh.
// A stale entry is reported as a miss so callers refetch through Fetch.
func (c *Cache) Get(key QueryKey) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || e.stale {
		return nil, false
	}
	return e.value, true
}

// Fetch returns the fresh cached value or, when the entry is absent or
// stale, refetches it through the key's family and stores the result.
func (c *Cache) Fetch(ctx context.Context, key QueryKey) (any, error) {
	if value, ok := c.Get(key); ok {
		return value, nil
	}

	c.mu.Lock()
	family, ok := c.families[key.Family]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("fetch: unknown query family %q", key.Family)
	}

	value, err := family.Refetch(ctx, key)
	if err != nil {
		return nil, err
	}

	c.put(key, value)
	return value, nil
}

// Invalidate marks every cached key of the named families stale, including
// each family's cross-cutting Affects set.
func (c *Cache) Invalidate(families ...string) {
	names := c.withAffected(families)

	c.mu.Lock()
	defer c.mu.Unlock()

	for key, e := range c.entries {
		if _, ok := names[key.Family]; ok {
			e.stale = true
		}
	}
}

func (c *Cache) put(key QueryKey, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextVersion++
	c.entries[key] = &entry{value: value, version: c.nextVersion}
}

// withAffected expands a family list with every Affects entry, transitively.
func (c *Cache) withAffected(families []string) map[string]struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make(map[string]struct{})
	queue := append([]string(nil), families...)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if _, ok := names[name]; ok {
			continue
		}
		names[name] = struct{}{}
		if f, ok := c.families[name]; ok {
			queue = append(queue, f.Affects...)
		}
	}
	return names
}

// keysIn returns the cached keys belonging to the named families, in a
// stable order.
func (c *Cache) keysIn(names map[string]struct{}) []QueryKey {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]QueryKey, 0)
	for key := range c.entries {
		if _, ok := names[key.Family]; ok {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Family != keys[j].Family {
			return keys[i].Family < keys[j].Family
		}
		return keys[i].Args < keys[j].Args
	})
	return keys
}
