// Package slab provides a batch-allocated entry arena addressed by
// generation-checked handles.
//
// # Concurrency Model
//
// A Slab is not synchronized: Acquire and Release must be serialized by
// the owner. Get is safe from any goroutine that holds a
// valid handle, even while another goroutine grows the slab, because
// batches are published through atomic pointers and existing entries
// never move.
//
// The worker-side pool in package hitlist wraps a Slab with a mutex so
// several scan goroutines can share it. The master-side pool in package
// tree deliberately adds nothing: it is single-consumer by contract.
//
// # Handles
//
// A Handle carries the slot index and the generation the slot had when it
// was checked out. Releasing a slot bumps its generation, so a retained
// handle from a previous checkout is detected instead of silently
// corrupting the entry that now occupies the slot.
package slab

import (
	"errors"
	"sync/atomic"

	"github.com/bits-and-blooms/bitset"

	"github.com/hupe1980/hitmerge/model"
)

// DefaultBatchSize is the number of entry shells pre-allocated per batch.
const DefaultBatchSize = 1000

// maxBatches bounds slab growth. With the default batch size this allows
// ~16M live entries, far beyond any single search.
const maxBatches = 1 << 14

var (
	// ErrStaleHandle is returned when a handle's generation does not match
	// the slot it points to, or the slot is not checked out.
	ErrStaleHandle = errors.New("slab: stale handle")
	// ErrMaxBatchesExceeded is returned when the slab cannot grow further.
	ErrMaxBatchesExceeded = errors.New("slab: max batches exceeded")
)

// Handle references one checked-out entry slot. The zero Handle is never
// valid: generations start at 1.
type Handle struct {
	index uint32
	gen   uint32
}

// IsZero reports whether h is the zero (never valid) handle.
func (h Handle) IsZero() bool {
	return h.gen == 0
}

// Entry is one pooled shell. Prev/Next link the entry into the flat hit
// list while it is owned by a chunk or list; they double as the chain
// link when a drained run is handed to the batch sender.
type Entry struct {
	Hit  model.Hit
	Prev Handle
	Next Handle
}

type slot struct {
	entry Entry
	gen   uint32
}

type batch struct {
	slots []slot
}

// Stats tracks slab usage.
type Stats struct {
	Batches       int    // batches currently allocated
	Slots         int    // total slots across all batches
	Live          int    // slots currently checked out
	TotalAcquires uint64 // cumulative checkouts
	Grows         uint64 // number of batch allocations past the first
}

// Slab is a batch-allocated arena of entry shells.
type Slab struct {
	batchSize  int
	batches    [maxBatches]atomic.Pointer[batch]
	batchCount atomic.Uint32

	free []uint32 // LIFO free slot indexes
	live *bitset.BitSet

	totalAcquires uint64
	grows         uint64
}

// New creates a Slab and pre-allocates one batch of shells.
// A batchSize <= 0 selects DefaultBatchSize.
func New(batchSize int) *Slab {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	s := &Slab{
		batchSize: batchSize,
		free:      make([]uint32, 0, batchSize),
		live:      bitset.New(uint(batchSize)),
	}

	// The first batch cannot fail: batchCount is zero.
	_ = s.grow()

	return s
}

func (s *Slab) grow() error {
	idx := s.batchCount.Load()
	if idx >= maxBatches {
		return ErrMaxBatchesExceeded
	}

	b := &batch{slots: make([]slot, s.batchSize)}
	base := uint32(int(idx) * s.batchSize)
	for i := range b.slots {
		b.slots[i].gen = 1
		s.free = append(s.free, base+uint32(s.batchSize-1-i))
	}

	s.batches[idx].Store(b)
	s.batchCount.Add(1)
	if idx > 0 {
		s.grows++
	}
	return nil
}

// Acquire checks out one entry shell. The slab grows by another batch
// when all slots are in use.
func (s *Slab) Acquire() (Handle, error) {
	if len(s.free) == 0 {
		if err := s.grow(); err != nil {
			return Handle{}, err
		}
	}

	idx := s.free[len(s.free)-1]
	s.free = s.free[:len(s.free)-1]
	s.live.Set(uint(idx))
	s.totalAcquires++

	sl := s.slot(idx)
	return Handle{index: idx, gen: sl.gen}, nil
}

// Release returns a shell to the slab. The entry is cleared and its slot
// generation bumped, so any retained handle becomes stale. The caller
// must have unlinked the entry from every list first.
func (s *Slab) Release(h Handle) error {
	sl := s.lookup(h)
	if sl == nil || !s.live.Test(uint(h.index)) {
		return ErrStaleHandle
	}

	sl.entry = Entry{}
	sl.gen++
	if sl.gen == 0 { // generation wrapped; zero means "never valid"
		sl.gen = 1
	}
	s.live.Clear(uint(h.index))
	s.free = append(s.free, h.index)
	return nil
}

// Get resolves a handle to its entry. It returns nil if the handle is
// stale. The returned pointer stays valid until the entry is released.
//
// Get checks only the slot generation, not the live set, so it never
// touches state mutated by the release of unrelated handles. Calling Get
// on a handle concurrently with releasing that same handle is a contract
// violation.
func (s *Slab) Get(h Handle) *Entry {
	sl := s.lookup(h)
	if sl == nil {
		return nil
	}
	return &sl.entry
}

func (s *Slab) slot(idx uint32) *slot {
	b := s.batches[idx/uint32(s.batchSize)].Load()
	return &b.slots[idx%uint32(s.batchSize)]
}

func (s *Slab) lookup(h Handle) *slot {
	if h.IsZero() {
		return nil
	}
	count := s.batchCount.Load()
	bi := h.index / uint32(s.batchSize)
	if bi >= count {
		return nil
	}
	b := s.batches[bi].Load()
	sl := &b.slots[h.index%uint32(s.batchSize)]
	if sl.gen != h.gen {
		return nil
	}
	return sl
}

// Live returns the number of checked-out slots.
func (s *Slab) Live() int {
	return int(s.live.Count())
}

// Stats returns current slab statistics.
func (s *Slab) Stats() Stats {
	batches := int(s.batchCount.Load())
	return Stats{
		Batches:       batches,
		Slots:         batches * s.batchSize,
		Live:          s.Live(),
		TotalAcquires: s.totalAcquires,
		Grows:         s.grows,
	}
}
