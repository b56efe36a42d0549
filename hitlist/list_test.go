package hitlist

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/hitmerge/model"
)

func buildChunk(t *testing.T, pool *EntryPool, ids ...uint64) *Chunk {
	t.Helper()
	c := NewChunk(pool)
	for _, id := range ids {
		require.NoError(t, c.Append(model.Hit{ID: id, Score: float64(id) / 10}))
	}
	return c
}

func listIDs(l *List) []uint64 {
	var ids []uint64
	l.Ascend(func(hit model.Hit) bool {
		ids = append(ids, hit.ID)
		return true
	})
	return ids
}

func TestInsertChunkOrdering(t *testing.T) {
	pool := NewEntryPool(8)
	l := NewList(pool)

	// A then B append at the back.
	require.NoError(t, l.InsertChunk(buildChunk(t, pool, 10, 12, 15)))
	require.NoError(t, l.InsertChunk(buildChunk(t, pool, 30, 31)))

	assert.Equal(t, []uint64{10, 12, 15, 30, 31}, listIDs(l))
	assert.Equal(t, 2, l.Chunks())

	// C lands between A and B.
	require.NoError(t, l.InsertChunk(buildChunk(t, pool, 20, 21)))

	assert.Equal(t, []uint64{10, 12, 15, 20, 21, 30, 31}, listIDs(l))
	assert.Equal(t, 3, l.Chunks())
	assert.Equal(t, 7, l.Len())

	start, end, ok := l.Bounds()
	require.True(t, ok)
	assert.Equal(t, uint64(10), start)
	assert.Equal(t, uint64(31), end)
}

func TestInsertChunkFrontExtend(t *testing.T) {
	pool := NewEntryPool(8)
	l := NewList(pool)

	require.NoError(t, l.InsertChunk(buildChunk(t, pool, 50, 51)))
	require.NoError(t, l.InsertChunk(buildChunk(t, pool, 5, 6)))

	assert.Equal(t, []uint64{5, 6, 50, 51}, listIDs(l))

	start, end, ok := l.Bounds()
	require.True(t, ok)
	assert.Equal(t, uint64(5), start)
	assert.Equal(t, uint64(51), end)
}

func TestSpliceCommutativity(t *testing.T) {
	ranges := [][]uint64{
		{10, 12, 15},
		{20, 21},
		{30, 31},
	}
	want := []uint64{10, 12, 15, 20, 21, 30, 31}

	perms := [][]int{
		{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0},
	}
	for _, perm := range perms {
		pool := NewEntryPool(8)
		l := NewList(pool)
		for _, i := range perm {
			require.NoError(t, l.InsertChunk(buildChunk(t, pool, ranges[i]...)))
		}
		assert.Equal(t, want, listIDs(l), "permutation %v", perm)
		assert.Equal(t, 3, l.Chunks())
	}
}

func TestCountConservation(t *testing.T) {
	pool := NewEntryPool(4)
	l := NewList(pool)

	chunks := [][]uint64{
		{100, 101, 102},
		{1, 2},
		{50},
		{200, 203, 205, 209},
	}
	total := 0
	for _, ids := range chunks {
		require.NoError(t, l.InsertChunk(buildChunk(t, pool, ids...)))
		total += len(ids)
	}

	assert.Equal(t, total, l.Len())
	assert.Len(t, listIDs(l), total)
	assert.Equal(t, total, pool.Live())
}

func TestOverlappingChunkRejected(t *testing.T) {
	pool := NewEntryPool(8)
	l := NewList(pool)

	require.NoError(t, l.InsertChunk(buildChunk(t, pool, 10, 12)))
	require.NoError(t, l.InsertChunk(buildChunk(t, pool, 30, 31)))

	// Overlaps the tail of the first chunk.
	err := l.InsertChunk(buildChunk(t, pool, 12, 20))
	assert.ErrorIs(t, err, ErrOverlappingChunk)

	// Straddles both chunks.
	err = l.InsertChunk(buildChunk(t, pool, 11, 35))
	assert.ErrorIs(t, err, ErrOverlappingChunk)

	// The list is untouched.
	assert.Equal(t, []uint64{10, 12, 30, 31}, listIDs(l))
	assert.Equal(t, 4, l.Len())
	assert.Equal(t, 2, l.Chunks())
}

func TestEmptyChunkRejected(t *testing.T) {
	pool := NewEntryPool(4)
	l := NewList(pool)

	assert.ErrorIs(t, l.InsertChunk(NewChunk(pool)), ErrEmptyChunk)
	assert.ErrorIs(t, l.InsertChunk(nil), ErrEmptyChunk)
}

func TestConcurrentInsertDeterministic(t *testing.T) {
	want := []uint64{5, 6, 10, 12, 15, 20, 21, 30, 31, 50, 51}

	// Both relative completion orders of D and E must yield the same
	// final structure.
	for run := 0; run < 10; run++ {
		pool := NewEntryPool(16)
		l := NewList(pool)
		require.NoError(t, l.InsertChunk(buildChunk(t, pool, 10, 12, 15)))
		require.NoError(t, l.InsertChunk(buildChunk(t, pool, 20, 21)))
		require.NoError(t, l.InsertChunk(buildChunk(t, pool, 30, 31)))

		d := buildChunk(t, pool, 50, 51)
		e := buildChunk(t, pool, 5, 6)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.InsertChunk(d))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, l.InsertChunk(e))
		}()
		wg.Wait()

		assert.Equal(t, want, listIDs(l))
		assert.Equal(t, 5, l.Chunks())
	}
}

func TestDrainDetachesChain(t *testing.T) {
	pool := NewEntryPool(8)
	l := NewList(pool)
	require.NoError(t, l.InsertChunk(buildChunk(t, pool, 1, 3, 5)))
	require.NoError(t, l.InsertChunk(buildChunk(t, pool, 7, 9)))

	head, n := l.Drain()
	assert.Equal(t, 5, n)
	assert.Equal(t, 0, l.Len())
	_, _, ok := l.Bounds()
	assert.False(t, ok)

	// The chain is still intact and ascending.
	var ids []uint64
	for h := head; !h.IsZero(); {
		e := pool.Get(h)
		require.NotNil(t, e)
		ids = append(ids, e.Hit.ID)
		next := e.Next
		require.NoError(t, pool.Release(h))
		h = next
	}
	assert.Equal(t, []uint64{1, 3, 5, 7, 9}, ids)
	assert.Equal(t, 0, pool.Live())

	// The list is reusable after a drain.
	require.NoError(t, l.InsertChunk(buildChunk(t, pool, 2, 4)))
	assert.Equal(t, []uint64{2, 4}, listIDs(l))
}

func TestDestroyReturnsEntries(t *testing.T) {
	pool := NewEntryPool(4)
	l := NewList(pool)
	require.NoError(t, l.InsertChunk(buildChunk(t, pool, 1, 2, 3)))

	require.NoError(t, l.Destroy())
	assert.Equal(t, 0, pool.Live())
	assert.Equal(t, 0, l.Len())
}

func TestSanityChecksCatchDuplicates(t *testing.T) {
	pool := NewEntryPool(8)
	l := NewList(pool, WithSanityChecks())

	require.NoError(t, l.InsertChunk(buildChunk(t, pool, 10, 12)))

	err := l.InsertChunk(buildChunk(t, pool, 12, 14))
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.Equal(t, []uint64{10, 12}, listIDs(l))

	// Duplicate history survives a drain: IDs are unique per search.
	l.Drain()
	err = l.InsertChunk(buildChunk(t, pool, 12, 14))
	assert.ErrorIs(t, err, ErrDuplicateID)
}
