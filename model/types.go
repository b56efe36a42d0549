package model

import (
	"fmt"
)

// hitHeaderSize is the fixed portion of a serialized hit record:
// ID (8 bytes) + Score (8 bytes) + description length (4 bytes).
const hitHeaderSize = 8 + 8 + 4

// Hit represents a single match produced by a shard scan.
//
// The merge engine treats the hit as opaque beyond its ID and serialized
// size. Description holds whatever the scorer emitted (alignment text,
// accession, coordinates); it is referenced, never copied, by list and
// tree entries.
type Hit struct {
	// ID is the object identifier. The upstream scan order assigns IDs
	// monotonically within one shard region.
	ID uint64

	// Score is the match score as computed by the scorer.
	Score float64

	// Description is the opaque scorer payload.
	Description []byte
}

// SerializedSize returns the number of bytes the hit occupies in a wire
// message. It is used by the batch sender to decide when to start a new
// message.
func (h Hit) SerializedSize() int {
	return hitHeaderSize + len(h.Description)
}

// String returns a short string representation of the hit.
func (h Hit) String() string {
	return fmt.Sprintf("Hit(%d, %.4f)", h.ID, h.Score)
}

// ShardRegion identifies the range of object IDs one worker goroutine
// scans. Regions assigned to concurrent workers of the same node must be
// disjoint; the locked splice in package hitlist relies on it.
type ShardRegion struct {
	// Start is the first object ID of the region (inclusive).
	Start uint64

	// End is the last object ID of the region (inclusive).
	End uint64
}

// Contains reports whether id falls inside the region.
func (r ShardRegion) Contains(id uint64) bool {
	return id >= r.Start && id <= r.End
}

// String returns a string representation of the region.
func (r ShardRegion) String() string {
	return fmt.Sprintf("Region[%d..%d]", r.Start, r.End)
}
