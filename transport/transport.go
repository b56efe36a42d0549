// Package transport defines the rank-addressed point-to-point primitive
// the merge engine moves hit messages over.
//
// The engine treats the transport as opaque: blocking send and receive
// of byte payloads between integer ranks, in the style of an MPI
// communicator. Cancellation beyond context plumbing, retries and
// failure detection of whole peers are the transport's concern, not the
// merge engine's.
package transport

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a closed transport.
var ErrClosed = errors.New("transport: closed")

// Transport is a blocking point-to-point channel between ranks.
type Transport interface {
	// Rank returns this endpoint's rank.
	Rank() int

	// Send delivers payload to dest. The payload is fully consumed (or
	// copied) before Send returns; the caller may reuse the slice.
	Send(ctx context.Context, dest int, payload []byte) error

	// Recv blocks for the next payload from any rank. buf, when non-nil,
	// is reused as backing storage if it has enough capacity; the
	// returned payload is only valid until the next Recv with the same
	// buf.
	Recv(ctx context.Context, buf []byte) (payload []byte, from int, err error)

	// Close releases the endpoint. Pending and subsequent calls fail
	// with ErrClosed.
	Close() error
}
