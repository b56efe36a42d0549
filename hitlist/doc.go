// Package hitlist maintains per-node collections of hits in ways that
// make merging results from parallel scan goroutines cheap.
//
// A Chunk holds a run of hits found by one goroutine over one shard
// region, sorted ascending by object ID. When the goroutine finishes a
// region it inserts the chunk into the node's List and starts a new one.
//
// A List holds every hit the node has found so far, as two coupled
// indices over the same pooled entries: a flat doubly linked list sorted
// by object ID, and a chain of chunk descriptors, also sorted. Chunk
// ranges are non-overlapping, which happens naturally when the regions
// scanned by concurrent goroutines of one node are disjoint. Inserting a
// chunk is a position scan over the chunk chain followed by O(1) pointer
// surgery on the boundary entries.
//
// Entries come from an EntryPool so that a search touching millions of
// hits does not pay one allocation per hit.
package hitlist
