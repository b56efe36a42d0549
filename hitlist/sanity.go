package hitlist

import (
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/hitmerge/model"
)

var (
	// ErrDuplicateID is returned, with sanity checks enabled, when a chunk
	// carries an object ID the list has already merged.
	ErrDuplicateID = errors.New("hitlist: duplicate object id")
	// ErrCorruptList is returned when the sanity walk finds the list
	// inconsistent with its own bookkeeping.
	ErrCorruptList = errors.New("hitlist: corrupt list")
)

// sanityChecker revalidates the list after every mutation. It keeps a
// roaring bitmap of every object ID merged so far, so duplicates are
// caught before a bad splice, not after. Deliberately slow; enabled via
// WithSanityChecks for debugging only.
type sanityChecker struct {
	seen *roaring64.Bitmap
}

func newSanityChecker() *sanityChecker {
	return &sanityChecker{seen: roaring64.New()}
}

// checkChunk validates a chunk against the chunk contract and against
// the IDs already merged. Called before the splice mutates anything.
func (s *sanityChecker) checkChunk(c *Chunk) error {
	var (
		n      int
		lastID uint64
		err    error
	)
	c.Ascend(func(hit model.Hit) bool {
		if n > 0 && hit.ID <= lastID {
			err = fmt.Errorf("%w: chunk id %d after %d", ErrOutOfOrderHit, hit.ID, lastID)
			return false
		}
		if s.seen.Contains(hit.ID) {
			err = fmt.Errorf("%w: %d", ErrDuplicateID, hit.ID)
			return false
		}
		lastID = hit.ID
		n++
		return true
	})
	if err != nil {
		return err
	}
	if n != c.count {
		return fmt.Errorf("%w: chunk claims %d hits, walk found %d", ErrCorruptList, c.count, n)
	}
	return nil
}

// commitChunk records a spliced chunk's IDs.
func (s *sanityChecker) commitChunk(c *Chunk) {
	c.Ascend(func(hit model.Hit) bool {
		s.seen.Add(hit.ID)
		return true
	})
}

// verify re-walks the whole flat list and cross-checks it against the
// cached bounds, the hit count, and the chunk chain.
func (s *sanityChecker) verify(l *List) error {
	var (
		n      int
		lastID uint64
		prev   = zeroHandle
	)
	for h := l.start; !h.IsZero(); {
		e := l.pool.Get(h)
		if e == nil {
			return fmt.Errorf("%w: stale entry handle in flat list", ErrCorruptList)
		}
		if e.Prev != prev {
			return fmt.Errorf("%w: broken prev link at id %d", ErrCorruptList, e.Hit.ID)
		}
		if n > 0 && e.Hit.ID <= lastID {
			return fmt.Errorf("%w: flat list id %d after %d", ErrCorruptList, e.Hit.ID, lastID)
		}
		lastID = e.Hit.ID
		n++
		prev = h
		if h == l.end {
			break
		}
		h = e.Next
	}
	if n != l.numHits {
		return fmt.Errorf("%w: list claims %d hits, walk found %d", ErrCorruptList, l.numHits, n)
	}

	chunks := 0
	var chunkHits int
	for c := l.chunkStart; c != nil; c = c.next {
		if c.next != nil && c.next.startID <= c.endID {
			return fmt.Errorf("%w: chunk chain out of order at id %d", ErrCorruptList, c.endID)
		}
		chunkHits += c.count
		chunks++
	}
	if chunkHits != l.numHits {
		return fmt.Errorf("%w: chunk chain holds %d hits, list claims %d", ErrCorruptList, chunkHits, l.numHits)
	}

	if n > 0 {
		if first := l.pool.Get(l.start); first == nil || first.Hit.ID != l.startID {
			return fmt.Errorf("%w: cached start id %d does not match list head", ErrCorruptList, l.startID)
		}
		if lastID != l.endID {
			return fmt.Errorf("%w: cached end id %d does not match list tail %d", ErrCorruptList, l.endID, lastID)
		}
	}
	return nil
}
