package hitlist

import (
	"sync"

	"github.com/hupe1980/hitmerge/internal/slab"
)

// DefaultPoolSize is the number of entry shells pre-allocated per pool
// batch.
const DefaultPoolSize = 1000

// EntryPool is the worker-side entry pool. It is safe for use by
// multiple scan goroutines of one node: checkout and checkin are
// serialized by an internal mutex.
//
// When every shell is checked out the pool grows by another batch of the
// configured size rather than blocking or failing; Stats().Grows exposes
// how often that happened.
type EntryPool struct {
	mu   sync.Mutex
	slab *slab.Slab
}

// NewEntryPool creates a pool with batchSize shells per batch.
// A batchSize <= 0 selects DefaultPoolSize.
func NewEntryPool(batchSize int) *EntryPool {
	if batchSize <= 0 {
		batchSize = DefaultPoolSize
	}
	return &EntryPool{slab: slab.New(batchSize)}
}

// Acquire checks out one entry shell, growing the pool if needed.
func (p *EntryPool) Acquire() (slab.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.slab.Acquire()
}

// Release returns a shell to the pool. The entry must already be
// unlinked from any list.
func (p *EntryPool) Release(h slab.Handle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.slab.Release(h)
}

// Get resolves a handle to its entry without locking; see slab.Slab.Get
// for the safety contract.
func (p *EntryPool) Get(h slab.Handle) *slab.Entry {
	return p.slab.Get(h)
}

// Live returns the number of checked-out entries.
func (p *EntryPool) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.slab.Live()
}

// Stats returns pool statistics.
func (p *EntryPool) Stats() slab.Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.slab.Stats()
}
