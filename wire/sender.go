package wire

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/hupe1980/hitmerge/internal/slab"
	"github.com/hupe1980/hitmerge/transport"
)

// DefaultMessageLimit is the soft cap, in record bytes, at which the
// sender flushes the current message and starts a new one.
const DefaultMessageLimit = 100000

// Pool is the recycling contract the sender needs from an entry pool.
// Both hitlist.EntryPool and tree.Pool satisfy it.
type Pool interface {
	Get(h slab.Handle) *slab.Entry
	Release(h slab.Handle) error
}

// Sender serializes hit chains into size-capped messages.
//
// A Sender owns reusable message buffers and must not be shared across
// goroutines without external synchronization.
type Sender struct {
	tr      transport.Transport
	limit   int
	comp    *compressor
	limiter *rate.Limiter
	logger  *slog.Logger

	buf  []byte // count prefix + accumulated records
	pack []byte // compression envelope scratch
}

// SenderOption configures a Sender.
type SenderOption func(*senderConfig)

type senderConfig struct {
	limit       int
	compression Compression
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// WithMessageLimit overrides the soft message size cap.
func WithMessageLimit(limit int) SenderOption {
	return func(c *senderConfig) {
		if limit > 0 {
			c.limit = limit
		}
	}
}

// WithCompression selects the per-message compression codec.
func WithCompression(kind Compression) SenderOption {
	return func(c *senderConfig) {
		c.compression = kind
	}
}

// WithRateLimit paces message flushes to perSec messages per second
// with the given burst. Zero disables pacing.
func WithRateLimit(perSec float64, burst int) SenderOption {
	return func(c *senderConfig) {
		if perSec > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
		}
	}
}

// WithSenderLogger sets the sender's logger.
func WithSenderLogger(logger *slog.Logger) SenderOption {
	return func(c *senderConfig) {
		c.logger = logger
	}
}

// NewSender creates a Sender on top of tr.
func NewSender(tr transport.Transport, optFns ...SenderOption) (*Sender, error) {
	cfg := senderConfig{
		limit:       DefaultMessageLimit,
		compression: CompressionNone,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, fn := range optFns {
		fn(&cfg)
	}

	comp, err := newCompressor(cfg.compression)
	if err != nil {
		return nil, err
	}

	return &Sender{
		tr:      tr,
		limit:   cfg.limit,
		comp:    comp,
		limiter: cfg.limiter,
		logger:  cfg.logger,
		buf:     make([]byte, countPrefixSize, countPrefixSize+cfg.limit),
	}, nil
}

// SendAndRecycle serializes the chain of n entries starting at head
// (linked through Entry.Next) into one or more messages for dest,
// releasing every entry into pool as soon as its hit is copied.
//
// Entries are recycled even when a send fails: the first transport
// error is remembered, the remaining chain is still drained into the
// pool, and the error is returned once.
//
// An empty chain sends a single message with count zero.
func (s *Sender) SendAndRecycle(ctx context.Context, dest int, pool Pool, head slab.Handle, n int) error {
	var (
		sendErr error
		count   int
		total   int // record bytes in the current message
		walked  int
		flushes int
	)

	s.buf = s.buf[:countPrefixSize]

	for h := head; !h.IsZero(); {
		e := pool.Get(h)
		if e == nil {
			return fmt.Errorf("send hits: %w", slab.ErrStaleHandle)
		}
		next := e.Next

		if sendErr == nil {
			s.buf = appendHit(s.buf, e.Hit)
			total += e.Hit.SerializedSize()
			count++

			// The record that reaches the cap still rides in the current
			// message, so a message tops out at limit + size(last) - 1
			// record bytes.
			if total >= s.limit {
				if err := s.flush(ctx, dest, count); err != nil {
					sendErr = err
				}
				count, total = 0, 0
				flushes++
			}
		}

		// Recycle regardless of transport state: the hit is either
		// copied or abandoned with the failed send.
		if err := pool.Release(h); err != nil {
			return fmt.Errorf("send hits: %w", err)
		}
		walked++
		h = next
	}

	// Remainder, or the count-zero completion message for an empty chain.
	if sendErr == nil && (count > 0 || flushes == 0) {
		if err := s.flush(ctx, dest, count); err != nil {
			sendErr = err
		}
		flushes++
	}

	if sendErr != nil {
		return fmt.Errorf("send hits to rank %d: %w", dest, sendErr)
	}
	if walked != n {
		s.logger.Warn("hit chain length mismatch", "expected", n, "walked", walked)
	}
	s.logger.Debug("sent hits", "dest", dest, "records", walked, "messages", flushes)
	return nil
}

// flush wraps the accumulated records into an envelope and sends them.
func (s *Sender) flush(ctx context.Context, dest int, count int) error {
	binary.LittleEndian.PutUint64(s.buf[:countPrefixSize], uint64(count))

	packed, err := s.comp.pack(s.pack, s.buf)
	if err != nil {
		return err
	}
	s.pack = packed

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	if err := s.tr.Send(ctx, dest, packed); err != nil {
		return err
	}

	s.buf = s.buf[:countPrefixSize]
	return nil
}
