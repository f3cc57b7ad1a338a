package attributes

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/marmos91/dittosession/pkg/store"
	"github.com/marmos91/dittosession/pkg/store/memory"
)

func TestNamesAllocate(t *testing.T) {
	n := NewNames("s1", nil)

	a, added := n.Allocate("a")
	assert.True(t, added)
	b, added := n.Allocate("b")
	assert.True(t, added)
	assert.NotEqual(t, a, b)

	again, added := n.Allocate("a")
	assert.False(t, added)
	assert.Equal(t, a, again)

	id, ok := n.Lookup("b")
	require.True(t, ok)
	assert.Equal(t, b, id)

	_, ok = n.Lookup("missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"a", "b"}, n.Names())
	assert.Equal(t, 2, n.Len())
}

func TestNamesRemoveAbandonsID(t *testing.T) {
	n := NewNames("s1", nil)

	first, _ := n.Allocate("a")
	removed, ok := n.Remove("a")
	require.True(t, ok)
	assert.Equal(t, first, removed)

	_, ok = n.Remove("a")
	assert.False(t, ok)

	second, added := n.Allocate("a")
	assert.True(t, added)
	assert.Greater(t, second, first)
}

func TestNamesRestore(t *testing.T) {
	n := NewNames("s1", nil)

	id, _ := n.Allocate("a")
	n.Remove("a")
	assert.True(t, n.Restore("a", id))
	got, ok := n.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, id, got)

	n.Remove("a")
	readded, _ := n.Allocate("a")
	assert.False(t, n.Restore("a", id))
	got, _ = n.Lookup("a")
	assert.Equal(t, readded, got)
}

func TestNamesFromRecord(t *testing.T) {
	t.Run("KeepsSequenceOfRemovedNames", func(t *testing.T) {
		n := NewNames("s1", &store.NameRecord{Sequence: 9, Names: map[string]int32{"a": 2}})

		id, ok := n.Lookup("a")
		require.True(t, ok)
		assert.Equal(t, int32(2), id)

		next, added := n.Allocate("b")
		assert.True(t, added)
		assert.Equal(t, int32(10), next)
	})

	t.Run("SequenceCoversStoredIDs", func(t *testing.T) {
		n := NewNames("s1", &store.NameRecord{Sequence: 1, Names: map[string]int32{"a": 5}})
		assert.Equal(t, int32(5), n.Sequence())
	})
}

func TestNamesPersistAndLoad(t *testing.T) {
	ctx := t.Context()
	table := store.NewNameTable(memory.New())

	n := NewNames("s1", nil)
	n.Allocate("a")
	n.Allocate("b")
	n.Remove("a")
	require.NoError(t, n.Persist(ctx, table))

	loaded, err := LoadNames(ctx, table, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, loaded.Names())
	assert.Equal(t, n.Sequence(), loaded.Sequence())

	empty, err := LoadNames(ctx, table, "unknown")
	require.NoError(t, err)
	assert.Zero(t, empty.Len())
}

func TestNamesConcurrentAllocate(t *testing.T) {
	ctx := t.Context()
	table := store.NewNameTable(memory.New())
	n := NewNames("s1", nil)

	const workers = 64
	ids := make([]int32, workers)

	var g errgroup.Group
	for i := range workers {
		g.Go(func() error {
			id, added := n.Allocate(fmt.Sprintf("attr-%d", i))
			ids[i] = id
			if added {
				return n.Persist(ctx, table)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	seen := make(map[int32]bool)
	for _, id := range ids {
		assert.False(t, seen[id], "id %d allocated twice", id)
		seen[id] = true
	}

	// The last persisted table holds every name.
	loaded, err := LoadNames(ctx, table, "s1")
	require.NoError(t, err)
	assert.Equal(t, workers, loaded.Len())
}

func TestNamesConcurrentSameName(t *testing.T) {
	n := NewNames("s1", nil)

	const workers = 32
	ids := make([]int32, workers)

	var g errgroup.Group
	for i := range workers {
		g.Go(func() error {
			ids[i], _ = n.Allocate("shared")
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, 1, n.Len())
}
