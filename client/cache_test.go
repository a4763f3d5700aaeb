// AngelaMos | 2026
// cache_test.go

package client

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// refetchStub serves canned server values and counts refetches.
type refetchStub struct {
	mu     sync.Mutex
	values map[QueryKey]any
	calls  int
}

func (s *refetchStub) refetch(_ context.Context, key QueryKey) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = s.calls + 1
	value, ok := s.values[key]
	if !ok {
		return nil, errors.New("no canned value")
	}
	return value, nil
}

func newTestCache(t *testing.T, stub *refetchStub) *Cache {
	t.Helper()
	cache := NewCache(testLogger())
	require.NoError(t, cache.Register(Family{
		Name:    "list",
		Refetch: stub.refetch,
		Affects: []string{"stats"},
	}))
	require.NoError(t, cache.Register(Family{
		Name:    "stats",
		Refetch: stub.refetch,
	}))
	return cache
}

func TestCache_FetchPopulatesAndServesFresh(t *testing.T) {
	key := QueryKey{Family: "list", Args: "page=1"}
	stub := &refetchStub{values: map[QueryKey]any{key: "server-v1"}}
	cache := newTestCache(t, stub)
	ctx := context.Background()

	value, err := cache.Fetch(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "server-v1", value)
	assert.Equal(t, 1, stub.calls)

	// Fresh entry, no second round trip.
	value, err = cache.Fetch(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "server-v1", value)
	assert.Equal(t, 1, stub.calls)
}

func TestCache_InvalidateCoversAffectedFamilies(t *testing.T) {
	listKey := QueryKey{Family: "list", Args: "page=1"}
	statsKey := QueryKey{Family: "stats", Args: ""}
	stub := &refetchStub{values: map[QueryKey]any{
		listKey:  "list-v1",
		statsKey: "stats-v1",
	}}
	cache := newTestCache(t, stub)
	ctx := context.Background()

	_, err := cache.Fetch(ctx, listKey)
	require.NoError(t, err)
	_, err = cache.Fetch(ctx, statsKey)
	require.NoError(t, err)

	cache.Invalidate("list")

	_, ok := cache.Get(listKey)
	assert.False(t, ok)
	_, ok = cache.Get(statsKey)
	assert.False(t, ok, "stats is in list's Affects set")
}

func TestMutate_CommitKeepsSpeculativeUntilRefetch(t *testing.T) {
	key := QueryKey{Family: "list", Args: "page=1"}
	stub := &refetchStub{values: map[QueryKey]any{
		key: "server-v1",
		{Family: "stats", Args: ""}: "stats-v1",
	}}
	cache := newTestCache(t, stub)
	ctx := context.Background()

	_, err := cache.Fetch(ctx, key)
	require.NoError(t, err)

	sawSpeculative := false
	stub.mu.Lock()
	stub.values[key] = "server-v2"
	stub.mu.Unlock()

	err = cache.Mutate(ctx, Mutation{
		Families: []string{"list"},
		Patch: func(_ QueryKey, _ any) (any, bool) {
			return "speculative", true
		},
		Call: func(_ context.Context) error {
			value, ok := cache.Get(key)
			sawSpeculative = ok && value == "speculative"
			return nil
		},
	})
	require.NoError(t, err)

	assert.True(t, sawSpeculative,
		"patched value visible before the call resolves")

	// Reconcile already ran: server truth replaced the speculation.
	value, ok := cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, "server-v2", value)
}

func TestMutate_FailureRollsBackAllSnapshots(t *testing.T) {
	key1 := QueryKey{Family: "list", Args: "page=1"}
	key2 := QueryKey{Family: "list", Args: "page=2"}
	cache := NewCache(testLogger())
	require.NoError(t, cache.Register(Family{
		Name: "list",
		Refetch: func(_ context.Context, _ QueryKey) (any, error) {
			return nil, errors.New("server unreachable")
		},
	}))
	cache.put(key1, "page1-v1")
	cache.put(key2, "page2-v1")
	ctx := context.Background()

	err := cache.Mutate(ctx, Mutation{
		Families: []string{"list"},
		Patch: func(_ QueryKey, _ any) (any, bool) {
			return "speculative", true
		},
		Call: func(_ context.Context) error {
			return errors.New("mutation rejected")
		},
	})
	require.Error(t, err)

	// Both pages restored verbatim; the failed reconciling refetch left
	// them stale, so read them through the entries directly.
	cache.mu.Lock()
	defer cache.mu.Unlock()
	assert.Equal(t, "page1-v1", cache.entries[key1].value)
	assert.Equal(t, "page2-v1", cache.entries[key2].value)
	assert.True(t, cache.entries[key1].stale)
}

// Overlap scenario: a second ban-toggle speculates over the same key before
// the first one fails. The first mutation's rollback must not clobber the
// second speculation; only the reconciling refetch may.
func TestOverlappingMutations_LastSpeculativeWriteWins(t *testing.T) {
	key := QueryKey{Family: "list", Args: "page=1"}

	cache := NewCache(testLogger())
	require.NoError(t, cache.Register(Family{
		Name: "list",
		Refetch: func(_ context.Context, _ QueryKey) (any, error) {
			return "server-truth", nil
		},
	}))
	cache.put(key, "original")

	first := Mutation{
		Families: []string{"list"},
		Patch: func(_ QueryKey, _ any) (any, bool) {
			return "first-speculative", true
		},
	}
	second := Mutation{
		Families: []string{"list"},
		Patch: func(_ QueryKey, _ any) (any, bool) {
			return "second-speculative", true
		},
	}

	// Interleaving: first speculates, second speculates, first fails.
	firstSnapshots := cache.speculate(first)
	secondSnapshots := cache.speculate(second)

	cache.rollback(firstSnapshots)

	value, ok := cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, "second-speculative", value,
		"failed first mutation must not restore over the newer speculation")

	// Second mutation succeeds; its reconcile is the first refetch to land
	// and server truth wins unconditionally.
	cache.reconcile(context.Background(), second.Families)

	value, ok = cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, "server-truth", value)

	// The second mutation never rolls back on success; its snapshots go
	// unused. Sanity-check they recorded the first speculation as prior.
	require.Len(t, secondSnapshots, 1)
	assert.Equal(t, "first-speculative", secondSnapshots[0].prior)
}
