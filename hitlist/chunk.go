package hitlist

import (
	"errors"
	"fmt"

	"github.com/hupe1980/hitmerge/internal/slab"
	"github.com/hupe1980/hitmerge/model"
)

var (
	// ErrOutOfOrderHit is returned by Append, with sanity checks enabled,
	// when a hit's ID is not strictly greater than the chunk's last ID.
	ErrOutOfOrderHit = errors.New("hitlist: hit appended out of order")
	// ErrEmptyChunk is returned when an empty chunk is handed to a list.
	ErrEmptyChunk = errors.New("hitlist: empty chunk")
)

// Chunk accumulates the hits one scan goroutine finds over one shard
// region, as a doubly linked run of pooled entries sorted ascending by
// object ID.
//
// A Chunk is owned by exactly one goroutine until it is handed to
// List.InsertChunk; after handoff the goroutine must not touch it again.
// Append relies on the upstream scan order for ascending IDs and does
// not re-validate it unless sanity checks are enabled.
type Chunk struct {
	pool *EntryPool

	start slab.Handle
	end   slab.Handle

	startID uint64
	endID   uint64

	count  int
	sanity bool

	prev *Chunk // chunk chain links, owned by the list after handoff
	next *Chunk
}

// ChunkOption configures a Chunk.
type ChunkOption func(*Chunk)

// WithChunkSanityChecks makes Append validate the ascending-ID contract.
// Slow; meant for debugging, not release builds.
func WithChunkSanityChecks() ChunkOption {
	return func(c *Chunk) {
		c.sanity = true
	}
}

// NewChunk creates an empty chunk drawing entries from pool.
func NewChunk(pool *EntryPool, optFns ...ChunkOption) *Chunk {
	c := &Chunk{pool: pool}
	for _, fn := range optFns {
		fn(c)
	}
	return c
}

// Append adds a hit to the end of the chunk. The caller must append in
// strictly increasing ID order.
func (c *Chunk) Append(hit model.Hit) error {
	if c.sanity && c.count > 0 && hit.ID <= c.endID {
		return fmt.Errorf("%w: id %d after %d", ErrOutOfOrderHit, hit.ID, c.endID)
	}

	h, err := c.pool.Acquire()
	if err != nil {
		return err
	}

	e := c.pool.Get(h)
	e.Hit = hit

	if c.count == 0 {
		c.start = h
		c.startID = hit.ID
	} else {
		e.Prev = c.end
		c.pool.Get(c.end).Next = h
	}
	c.end = h
	c.endID = hit.ID
	c.count++
	return nil
}

// Len returns the number of hits in the chunk.
func (c *Chunk) Len() int {
	return c.count
}

// Bounds returns the first and last object ID. ok is false for an empty
// chunk.
func (c *Chunk) Bounds() (startID, endID uint64, ok bool) {
	if c.count == 0 {
		return 0, 0, false
	}
	return c.startID, c.endID, true
}

// Ascend walks the chunk's hits in ascending ID order until fn returns
// false.
func (c *Chunk) Ascend(fn func(hit model.Hit) bool) {
	for h := c.start; !h.IsZero(); {
		e := c.pool.Get(h)
		if e == nil || !fn(e.Hit) {
			return
		}
		if h == c.end {
			return
		}
		h = e.Next
	}
}

// Discard returns every entry of the chunk to the pool. Used when a
// chunk is abandoned without being merged.
func (c *Chunk) Discard() error {
	for h := c.start; !h.IsZero(); {
		e := c.pool.Get(h)
		if e == nil {
			return slab.ErrStaleHandle
		}
		next := e.Next
		last := h == c.end
		if err := c.pool.Release(h); err != nil {
			return err
		}
		if last {
			break
		}
		h = next
	}
	c.start, c.end = slab.Handle{}, slab.Handle{}
	c.count = 0
	return nil
}
