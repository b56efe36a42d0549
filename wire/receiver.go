package wire

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"

	"github.com/hupe1980/hitmerge/internal/conv"
	"github.com/hupe1980/hitmerge/transport"
	"github.com/hupe1980/hitmerge/tree"
)

// Receiver reads one hit message per call and inserts its records into
// the master's global hit tree.
//
// A Receiver owns a reusable frame buffer that grows to the largest
// message seen; each message's decoded payload is freshly owned because
// the inserted hits keep referencing it. Like the master pool it feeds,
// a Receiver is single-consumer.
type Receiver struct {
	tr     transport.Transport
	comp   *compressor
	logger *slog.Logger

	frame []byte // reused receive buffer
}

// ReceiverOption configures a Receiver.
type ReceiverOption func(*receiverConfig)

type receiverConfig struct {
	logger *slog.Logger
}

// WithReceiverLogger sets the receiver's logger.
func WithReceiverLogger(logger *slog.Logger) ReceiverOption {
	return func(c *receiverConfig) {
		c.logger = logger
	}
}

// NewReceiver creates a Receiver on top of tr. It decodes every
// compression codec regardless of what the senders use.
func NewReceiver(tr transport.Transport, optFns ...ReceiverOption) (*Receiver, error) {
	cfg := receiverConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, fn := range optFns {
		fn(&cfg)
	}

	comp, err := newCompressor(CompressionNone)
	if err != nil {
		return nil, err
	}

	return &Receiver{tr: tr, comp: comp, logger: cfg.logger}, nil
}

// RecvAndSort blocks for the next message, decodes its count-prefixed
// records and inserts each into t via the master pool. It returns the
// number of records and the sending rank.
//
// One call handles exactly one message; reconstructing a batch that the
// sender split across messages means calling RecvAndSort once per
// message.
func (r *Receiver) RecvAndSort(ctx context.Context, t *tree.GlobalHitTree) (int, int, error) {
	frame, from, err := r.tr.Recv(ctx, r.frame)
	if err != nil {
		return 0, 0, err
	}
	r.frame = frame // keep grown capacity for the next message

	msg, err := r.comp.unpack(frame)
	if err != nil {
		return 0, from, err
	}
	if len(msg) < countPrefixSize {
		return 0, from, ErrShortMessage
	}

	count, err := conv.Uint64ToInt(binary.LittleEndian.Uint64(msg[:countPrefixSize]))
	if err != nil {
		return 0, from, fmt.Errorf("count prefix: %w", err)
	}
	off := countPrefixSize

	for i := 0; i < count; i++ {
		hit, n, err := decodeHit(msg[off:])
		if err != nil {
			return 0, from, fmt.Errorf("record %d of %d: %w", i, count, err)
		}
		if err := t.Insert(hit); err != nil {
			return 0, from, err
		}
		off += n
	}
	if off != len(msg) {
		return 0, from, ErrTrailingBytes
	}

	r.logger.Debug("received hits", "from", from, "records", count, "bytes", len(frame))
	return count, from, nil
}

// BufferCap returns the current capacity of the reusable frame buffer.
func (r *Receiver) BufferCap() int {
	return cap(r.frame)
}
