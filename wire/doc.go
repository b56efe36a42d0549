// Package wire implements the batch protocol that moves hit sets
// between worker nodes and the master.
//
// # Message Format
//
// A message is a count-prefixed batch of hit records, little-endian:
//
//	count   u64
//	records count × (id u64 | score f64 | descLen u32 | desc bytes)
//
// The sender accumulates records until appending one more would push the
// record bytes past the soft cap (DefaultMessageLimit); the record that
// crosses the threshold still goes into the current message, so the true
// per-message maximum is cap + size(last record) − 1. A logical batch
// larger than one message is transmitted as several messages; the
// receiver handles exactly one message per call.
//
// Each message is wrapped in a small compression envelope
// (codec byte | raw length u32 | body) so zstd- or lz4-compressed and
// raw messages interoperate on the same channel.
//
// Every entry handed to the sender is recycled into the supplied pool
// once its hit is copied into the send buffer, whether or not the send
// itself later succeeds.
package wire
