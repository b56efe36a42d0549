// Package mem provides an in-process transport: every rank is a mailbox
// on a shared hub. It backs single-machine pipelines and tests.
package mem

import (
	"context"
	"sync"

	"github.com/hupe1980/hitmerge/transport"
)

// DefaultMailboxDepth is the per-rank buffered message count before
// senders block.
const DefaultMailboxDepth = 64

type envelope struct {
	from    int
	payload []byte
}

// Hub connects a fixed set of ranks.
type Hub struct {
	inboxes []chan envelope
	done    chan struct{}
	once    sync.Once
}

// HubOption configures a Hub.
type HubOption func(*hubConfig)

type hubConfig struct {
	depth int
}

// WithMailboxDepth sets the per-rank mailbox capacity.
func WithMailboxDepth(depth int) HubOption {
	return func(c *hubConfig) {
		if depth > 0 {
			c.depth = depth
		}
	}
}

// NewHub creates a hub for ranks 0..ranks-1.
func NewHub(ranks int, optFns ...HubOption) *Hub {
	cfg := hubConfig{depth: DefaultMailboxDepth}
	for _, fn := range optFns {
		fn(&cfg)
	}

	inboxes := make([]chan envelope, ranks)
	for i := range inboxes {
		inboxes[i] = make(chan envelope, cfg.depth)
	}
	return &Hub{
		inboxes: inboxes,
		done:    make(chan struct{}),
	}
}

// Transport returns the endpoint for rank.
func (h *Hub) Transport(rank int) transport.Transport {
	return &endpoint{hub: h, rank: rank}
}

// Close shuts the hub down for every rank.
func (h *Hub) Close() error {
	h.once.Do(func() { close(h.done) })
	return nil
}

type endpoint struct {
	hub  *Hub
	rank int
}

func (e *endpoint) Rank() int {
	return e.rank
}

func (e *endpoint) Send(ctx context.Context, dest int, payload []byte) error {
	if dest < 0 || dest >= len(e.hub.inboxes) {
		return transport.ErrClosed
	}
	select {
	case <-e.hub.done:
		return transport.ErrClosed
	default:
	}

	// The caller reuses its buffer, so the envelope owns a copy.
	env := envelope{from: e.rank, payload: append([]byte(nil), payload...)}
	select {
	case e.hub.inboxes[dest] <- env:
		return nil
	case <-e.hub.done:
		return transport.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *endpoint) Recv(ctx context.Context, buf []byte) ([]byte, int, error) {
	select {
	case env := <-e.hub.inboxes[e.rank]:
		return append(buf[:0], env.payload...), env.from, nil
	case <-e.hub.done:
		return nil, 0, transport.ErrClosed
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	}
}

func (e *endpoint) Close() error {
	return e.hub.Close()
}
