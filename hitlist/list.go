package hitlist

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/hitmerge/internal/slab"
	"github.com/hupe1980/hitmerge/model"
)

// ErrOverlappingChunk is returned when a chunk's ID range overlaps a
// chunk already merged into the list. Overlap cannot happen for chunks
// produced by disjoint shard-region scans of one node; chunks imported
// from elsewhere must go through per-hit tree insertion instead.
var ErrOverlappingChunk = errors.New("hitlist: overlapping chunk range")

var zeroHandle slab.Handle

// List is the node-wide hit aggregate: a flat entry list sorted
// ascending by object ID, plus a parallel chain of chunk descriptors.
// One coarse mutex guards both; no reader ever observes a partial
// splice.
type List struct {
	mu   sync.Mutex
	pool *EntryPool

	start slab.Handle // lowest-ID entry
	end   slab.Handle // highest-ID entry

	startID uint64 // cached for O(1) boundary checks
	endID   uint64

	chunkStart *Chunk
	chunkEnd   *Chunk

	numHits int

	sanity *sanityChecker // nil unless enabled
}

// ListOption configures a List.
type ListOption func(*List)

// WithSanityChecks revalidates the whole list after every mutation and
// rejects duplicate object IDs. Slow; debugging only.
func WithSanityChecks() ListOption {
	return func(l *List) {
		l.sanity = newSanityChecker()
	}
}

// NewList creates an empty list drawing entries from pool.
func NewList(pool *EntryPool, optFns ...ListOption) *List {
	l := &List{pool: pool}
	for _, fn := range optFns {
		fn(l)
	}
	return l
}

// InsertChunk merges a finished chunk into the list. It holds the list
// mutex for the whole call: position scan over the chunk chain, O(1)
// entry splice, chunk splice, boundary update. Pre-splice failures
// (empty chunk, overlap, sanity rejection) leave the list untouched; an
// ErrCorruptList from the post-splice verification does not, since the
// verification failing means the structure is already inconsistent.
//
// Insertion order of concurrently completing chunks does not affect the
// final structure: the merge is commutative over disjoint ID ranges.
func (l *List) InsertChunk(c *Chunk) error {
	if c == nil || c.count == 0 {
		return ErrEmptyChunk
	}
	if c.pool != l.pool {
		return fmt.Errorf("hitlist: chunk entries belong to a different pool")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.sanity != nil {
		if err := l.sanity.checkChunk(c); err != nil {
			return err
		}
	}

	if l.chunkStart == nil {
		l.adopt(c)
	} else if err := l.splice(c); err != nil {
		return err
	}

	l.numHits += c.count

	if l.sanity != nil {
		l.sanity.commitChunk(c)
		if err := l.sanity.verify(l); err != nil {
			return err
		}
	}
	return nil
}

// adopt installs a chunk as the sole content of an empty list.
func (l *List) adopt(c *Chunk) {
	c.prev, c.next = nil, nil
	l.chunkStart, l.chunkEnd = c, c
	l.start, l.end = c.start, c.end
	l.startID, l.endID = c.startID, c.endID
}

// splice merges c into a non-empty list.
func (l *List) splice(c *Chunk) error {
	// Find the first chunk that sorts after c. Scan from whichever end
	// is cheaper: appending in ascending completion order is the common
	// case, so check the back first.
	var after *Chunk
	switch {
	case c.startID > l.endID:
		after = nil // append at the back
	case c.endID < l.startID:
		after = l.chunkStart // prepend at the front
	default:
		for cur := l.chunkStart; cur != nil; cur = cur.next {
			if cur.startID > c.endID {
				after = cur
				break
			}
		}
		if after == nil {
			// Every chunk starts below c's range, yet c does not extend
			// the back boundary: the ranges interleave.
			return fmt.Errorf("%w: [%d..%d] against [%d..%d]", ErrOverlappingChunk,
				c.startID, c.endID, l.startID, l.endID)
		}
	}

	var before *Chunk
	if after == nil {
		before = l.chunkEnd
	} else {
		before = after.prev
	}
	if before != nil && before.endID >= c.startID {
		return fmt.Errorf("%w: [%d..%d] against [%d..%d]", ErrOverlappingChunk,
			c.startID, c.endID, before.startID, before.endID)
	}

	// Entry splice: O(1) pointer surgery on the boundary entries.
	if before == nil {
		l.start = c.start
		l.startID = c.startID
	} else {
		l.pool.Get(before.end).Next = c.start
		l.pool.Get(c.start).Prev = before.end
	}
	if after == nil {
		l.end = c.end
		l.endID = c.endID
	} else {
		l.pool.Get(c.end).Next = after.start
		l.pool.Get(after.start).Prev = c.end
	}

	// Chunk splice at the same relative position.
	c.prev, c.next = before, after
	if before == nil {
		l.chunkStart = c
	} else {
		before.next = c
	}
	if after == nil {
		l.chunkEnd = c
	} else {
		after.prev = c
	}
	return nil
}

// Len returns the number of hits in the list.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.numHits
}

// Bounds returns the lowest and highest object ID in the list. ok is
// false for an empty list.
func (l *List) Bounds() (startID, endID uint64, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.numHits == 0 {
		return 0, 0, false
	}
	return l.startID, l.endID, true
}

// Chunks returns the number of chunks in the chunk chain.
func (l *List) Chunks() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for c := l.chunkStart; c != nil; c = c.next {
		n++
	}
	return n
}

// Ascend walks the merged hits in ascending ID order until fn returns
// false. The list mutex is held for the whole walk.
func (l *List) Ascend(fn func(hit model.Hit) bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for h := l.start; !h.IsZero(); {
		e := l.pool.Get(h)
		if e == nil || !fn(e.Hit) {
			return
		}
		if h == l.end {
			return
		}
		h = e.Next
	}
}

// Drain detaches the whole merged chain from the list and resets the
// list to empty. The entries stay checked out of the pool; ownership
// passes to the caller, which typically hands the chain to the batch
// sender for copy-and-recycle. The chain is linked through Entry.Next
// starting at head.
//
// The duplicate-ID history survives a drain when sanity checks are
// enabled: object IDs are unique per search, not per flush.
func (l *List) Drain() (head slab.Handle, n int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	head, n = l.start, l.numHits

	l.start, l.end = zeroHandle, zeroHandle
	l.startID, l.endID = 0, 0
	l.chunkStart, l.chunkEnd = nil, nil
	l.numHits = 0
	return head, n
}

// Destroy releases every entry back to the pool and resets the list.
func (l *List) Destroy() error {
	head, _ := l.Drain()
	for h := head; !h.IsZero(); {
		e := l.pool.Get(h)
		if e == nil {
			return slab.ErrStaleHandle
		}
		next := e.Next
		if err := l.pool.Release(h); err != nil {
			return err
		}
		h = next
	}
	return nil
}
