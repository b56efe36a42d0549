package tree

import (
	"github.com/hupe1980/hitmerge/internal/slab"
)

// Pool is the master-side entry pool. It is single-consumer: only the
// one goroutine that feeds and drains the GlobalHitTree may touch it.
// Unlike hitlist.EntryPool it carries no lock at all, so sharing it
// across goroutines is not merely unsynchronized, it is unsupported.
type Pool struct {
	slab *slab.Slab
}

// NewPool creates a master pool with batchSize shells per batch.
// A batchSize <= 0 selects slab.DefaultBatchSize.
func NewPool(batchSize int) *Pool {
	return &Pool{slab: slab.New(batchSize)}
}

// Acquire checks out one entry shell, growing the pool if needed.
func (p *Pool) Acquire() (slab.Handle, error) {
	return p.slab.Acquire()
}

// Release returns a shell to the pool.
func (p *Pool) Release(h slab.Handle) error {
	return p.slab.Release(h)
}

// Get resolves a handle to its entry.
func (p *Pool) Get(h slab.Handle) *slab.Entry {
	return p.slab.Get(h)
}

// Live returns the number of checked-out entries.
func (p *Pool) Live() int {
	return p.slab.Live()
}

// Stats returns pool statistics.
func (p *Pool) Stats() slab.Stats {
	return p.slab.Stats()
}
