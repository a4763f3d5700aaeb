// AngelaMos | 2026
// mutation.go

package client

import (
	"context"
	"log/slog"
)

// Patch predicts the post-mutation value of one cached query. Returning
// ok=false leaves the entry untouched and excluded from rollback.
type Patch func(key QueryKey, value any) (patched any, ok bool)

// Mutation is one state-changing operation run through the optimistic
// protocol. Families names the query families whose cached values the patch
// rewrites; the reconciling invalidation additionally covers each family's
// Affects set.
type Mutation struct {
	Families []string
	Patch    Patch
	Call     func(ctx context.Context) error
}

type snapshot struct {
	key     QueryKey
	prior   any
	written uint64
}

// Mutate runs the three-phase protocol: speculate, commit or rollback,
// reconcile. The reconciling refetch always happens, success or failure,
// and its result overwrites any residual speculative value. The original
// call error, if any, is returned so the caller can surface it.
func (c *Cache) Mutate(ctx context.Context, m Mutation) error {
	snapshots := c.speculate(m)

	err := m.Call(ctx)
	if err != nil {
		c.rollback(snapshots)
	}

	c.reconcile(ctx, m.Families)
	return err
}

// speculate patches every cached query in the mutation's families and
// records each prior value together with the version of the speculative
// write, so rollback can tell its own writes from later ones.
func (c *Cache) speculate(m Mutation) []snapshot {
	if m.Patch == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	names := make(map[string]struct{}, len(m.Families))
	for _, name := range m.Families {
		names[name] = struct{}{}
	}

	snapshots := make([]snapshot, 0)
	for key, e := range c.entries {
		if _, ok := names[key.Family]; !ok {
			continue
		}
		patched, ok := m.Patch(key, e.value)
		if !ok {
			continue
		}
		c.nextVersion++
		snapshots = append(snapshots, snapshot{
			key:     key,
			prior:   e.value,
			written: c.nextVersion,
		})
		e.value = patched
		e.version = c.nextVersion
	}
	return snapshots
}

// rollback restores every snapshot in one critical section, so no observer
// ever sees a half-restored set. A snapshot is skipped only when a later
// speculative write already replaced this mutation's value: the newest
// speculation wins until the reconciling refetch lands.
func (c *Cache) rollback(snapshots []snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, s := range snapshots {
		e, ok := c.entries[s.key]
		if !ok || e.version != s.written {
			continue
		}
		c.nextVersion++
		e.value = s.prior
		e.version = c.nextVersion
	}
}

// reconcile marks the affected families (plus their cross-cutting Affects
// sets) stale and refetches each cached key authoritatively. A failed
// refetch leaves its entry stale for the next Fetch; it never fails the
// mutation.
func (c *Cache) reconcile(ctx context.Context, families []string) {
	names := c.withAffected(families)

	c.mu.Lock()
	for key, e := range c.entries {
		if _, ok := names[key.Family]; ok {
			e.stale = true
		}
	}
	c.mu.Unlock()

	for _, key := range c.keysIn(names) {
		c.mu.Lock()
		family, ok := c.families[key.Family]
		c.mu.Unlock()
		if !ok {
			continue
		}

		value, err := family.Refetch(ctx, key)
		if err != nil {
			c.logger.Warn("reconciling refetch failed",
				slog.String("family", key.Family),
				slog.String("args", key.Args),
				slog.String("error", err.Error()),
			)
			continue
		}
		c.put(key, value)
	}
}
