// Package model defines core types used throughout hitmerge.
//
// # Identity
//
//   - Hit.ID: the object identifier assigned by the database scan order.
//     IDs are monotonically increasing within one shard-region scan, which
//     is what makes chunk-level merging possible.
//
// # Data Types
//
//   - Hit: a single match record (ID, score, opaque description)
//   - ShardRegion: the ID range one worker goroutine scans
//
// The merge engine never copies a Hit's description bytes; chunk, list and
// tree entries all reference the same backing storage.
package model
