// Package tree implements the master's globally ordered hit accumulator.
//
// Hits arrive from many nodes in no particular order, so chunk-range
// splicing does not apply here: each hit is inserted individually into a
// balanced ordered structure keyed by object ID. Global order exists
// only at drain time, after every expected contribution has arrived.
//
// Tree entries are drawn from a single-consumer Pool and recycled as the
// final result is walked ("print and recycle").
package tree

import (
	"github.com/google/btree"

	"github.com/hupe1980/hitmerge/internal/slab"
	"github.com/hupe1980/hitmerge/model"
)

// btreeDegree is the branching factor of the backing B-tree.
const btreeDegree = 32

// item keys one tree entry. seq breaks ties between equal object IDs:
// duplicates across nodes are kept as distinct entries, this core makes
// no global uniqueness claim.
type item struct {
	id  uint64
	seq uint64
	h   slab.Handle
}

// GlobalHitTree accumulates hits from all nodes in object-ID order.
//
// Like its Pool, a GlobalHitTree is single-consumer: one goroutine
// inserts and drains.
type GlobalHitTree struct {
	pool *Pool
	bt   *btree.BTreeG[item]
	seq  uint64

	scratch []item // reused by drains
}

// New creates an empty tree drawing entries from pool.
func New(pool *Pool) *GlobalHitTree {
	return &GlobalHitTree{
		pool: pool,
		bt: btree.NewG(btreeDegree, func(a, b item) bool {
			if a.id != b.id {
				return a.id < b.id
			}
			return a.seq < b.seq
		}),
	}
}

// Insert places one hit into the tree in O(log n).
func (t *GlobalHitTree) Insert(hit model.Hit) error {
	h, err := t.pool.Acquire()
	if err != nil {
		return err
	}
	t.pool.Get(h).Hit = hit

	t.seq++
	t.bt.ReplaceOrInsert(item{id: hit.ID, seq: t.seq, h: h})
	return nil
}

// Len returns the number of hits in the tree.
func (t *GlobalHitTree) Len() int {
	return t.bt.Len()
}

// Drain walks every hit in ascending ID order exactly once, recycling
// each visited entry back into the pool. The tree is empty afterwards,
// even when fn fails partway: entries are never leaked.
func (t *GlobalHitTree) Drain(fn func(hit model.Hit) error) error {
	items := t.detach()

	var firstErr error
	for _, it := range items {
		e := t.pool.Get(it.h)
		if e == nil {
			if firstErr == nil {
				firstErr = slab.ErrStaleHandle
			}
			continue
		}
		if firstErr == nil {
			if err := fn(e.Hit); err != nil {
				firstErr = err
			}
		}
		if err := t.pool.Release(it.h); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DrainChain empties the tree into a chain of still-checked-out entries
// linked through Entry.Next, for handing to the batch sender when this
// rank forwards its hits instead of printing them. Returns the chain
// head and the number of entries.
func (t *GlobalHitTree) DrainChain() (slab.Handle, int) {
	items := t.detach()
	if len(items) == 0 {
		return slab.Handle{}, 0
	}

	for i, it := range items {
		e := t.pool.Get(it.h)
		e.Prev, e.Next = slab.Handle{}, slab.Handle{}
		if i+1 < len(items) {
			e.Next = items[i+1].h
		}
	}
	return items[0].h, len(items)
}

// detach snapshots the tree in ascending order and clears it. Mutating
// the B-tree during Ascend is not allowed, hence the snapshot.
func (t *GlobalHitTree) detach() []item {
	t.scratch = t.scratch[:0]
	t.bt.Ascend(func(it item) bool {
		t.scratch = append(t.scratch, it)
		return true
	})
	t.bt.Clear(false)
	return t.scratch
}
