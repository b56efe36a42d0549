// Package testutil provides deterministic generators for hits and shard
// regions used across the test suites.
package testutil

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/hupe1980/hitmerge/model"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// Float64 returns, as a float64, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Regions carves [start, start+count*span) into count adjacent
// non-overlapping shard regions of span IDs each.
func Regions(start uint64, count int, span uint64) []model.ShardRegion {
	regions := make([]model.ShardRegion, count)
	for i := range regions {
		lo := start + uint64(i)*span
		regions[i] = model.ShardRegion{Start: lo, End: lo + span - 1}
	}
	return regions
}

// Hits generates n hits with strictly ascending IDs inside region, with
// random scores and short descriptions. Panics if the region cannot
// hold n distinct IDs.
func (r *RNG) Hits(region model.ShardRegion, n int) []model.Hit {
	span := region.End - region.Start + 1
	if uint64(n) > span {
		panic(fmt.Sprintf("testutil: %d hits do not fit in region %s", n, region))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Sample ascending IDs by walking the region with random strides.
	ids := make([]uint64, n)
	next := region.Start
	for i := range ids {
		headroom := span - (next - region.Start) - uint64(n-i)
		if headroom > 1000 {
			headroom = 1000
		}
		stride := uint64(r.rand.Int63n(int64(headroom) + 1))
		next += stride
		ids[i] = next
		next++
	}

	hits := make([]model.Hit, n)
	for i, id := range ids {
		hits[i] = model.Hit{
			ID:          id,
			Score:       r.rand.Float64() * 100,
			Description: fmt.Appendf(nil, "seq-%d", id),
		}
	}
	return hits
}

// SparseHits generates hits at every step-th ID starting from region's
// first ID, useful when tests need predictable ID values.
func SparseHits(region model.ShardRegion, step uint64) []model.Hit {
	if step == 0 {
		step = 1
	}
	var hits []model.Hit
	for id := region.Start; ; id += step {
		hits = append(hits, model.Hit{
			ID:          id,
			Score:       float64(id % 97),
			Description: fmt.Appendf(nil, "seq-%d", id),
		})
		// Guard against uint64 wrap when the region ends near the top
		// of the ID space.
		if region.End-id < step {
			break
		}
	}
	return hits
}
