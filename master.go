package hitmerge

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/hitmerge/blobstore"
	"github.com/hupe1980/hitmerge/report"
	"github.com/hupe1980/hitmerge/transport"
	"github.com/hupe1980/hitmerge/tree"
	"github.com/hupe1980/hitmerge/wire"
)

// Master receives hit batches from all workers and keeps them globally
// sorted in a balanced tree. Serve is the single consumer of the tree's
// pool, so no locking is needed on the receive path.
//
// Master is not safe for concurrent use; call Serve to completion
// before rendering reports.
type Master struct {
	tr       transport.Transport
	treePool *tree.Pool
	tree     *tree.GlobalHitTree
	receiver *wire.Receiver
	sender   *wire.Sender
	logger   *Logger
	metrics  MetricsCollector
}

// NewMaster creates a master bound to the given transport endpoint.
func NewMaster(tr transport.Transport, optFns ...Option) (*Master, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(opts)
	}

	receiver, err := wire.NewReceiver(tr, wire.WithReceiverLogger(opts.logger.Logger))
	if err != nil {
		return nil, fmt.Errorf("create receiver: %w", err)
	}

	senderOpts := []wire.SenderOption{
		wire.WithMessageLimit(opts.messageLimit),
		wire.WithCompression(opts.compression),
		wire.WithSenderLogger(opts.logger.Logger),
	}
	if opts.ratePerSec > 0 {
		senderOpts = append(senderOpts, wire.WithRateLimit(opts.ratePerSec, opts.rateBurst))
	}

	sender, err := wire.NewSender(tr, senderOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sender: %w", err)
	}

	treePool := tree.NewPool(opts.poolSize)

	return &Master{
		tr:       tr,
		treePool: treePool,
		tree:     tree.New(treePool),
		receiver: receiver,
		sender:   sender,
		logger:   opts.logger.WithRank(tr.Rank()),
		metrics:  opts.metricsCollector,
	}, nil
}

// Rank returns the master's transport rank.
func (m *Master) Rank() int {
	return m.tr.Rank()
}

// Serve receives batches until expected hits have been sorted into the
// tree. Empty batches count as a worker's completion notice and do not
// advance the total, so expected must equal the sum of all workers'
// flushed hit counts.
func (m *Master) Serve(ctx context.Context, expected int) error {
	if expected < 0 {
		return ErrNegativeExpected
	}

	total := 0
	for total < expected {
		start := time.Now()
		n, from, err := m.receiver.RecvAndSort(ctx, m.tree)
		m.metrics.RecordReceive(n, time.Since(start), err)
		if err != nil {
			return fmt.Errorf("receive batch: %w", err)
		}

		total += n
		m.logger.LogReceive(ctx, from, n)
	}

	return nil
}

// Len returns the number of hits currently held in the tree.
func (m *Master) Len() int {
	return m.tree.Len()
}

// WriteReport drains the tree to w in the given format and recycles all
// entries. Returns the number of hits written; after a successful call
// the tree is empty.
func (m *Master) WriteReport(w io.Writer, format report.Format) (int, error) {
	start := time.Now()
	n, err := report.Write(w, m.tree, format)
	m.metrics.RecordReport(n, time.Since(start), err)
	m.logger.LogReport(context.Background(), n, err)
	return n, err
}

// Archive drains the tree into a blob named name in the given store.
// Returns the number of hits archived.
func (m *Master) Archive(ctx context.Context, store blobstore.BlobStore, name string, format report.Format) (int, error) {
	start := time.Now()
	n, err := report.Archive(ctx, store, name, m.tree, format)
	m.metrics.RecordReport(n, time.Since(start), err)
	m.logger.LogReport(ctx, n, err)
	return n, err
}

// Forward drains the tree and ships every hit to another rank, for
// hierarchies where intermediate masters aggregate a subset of workers
// before relaying upward. Returns the number of hits forwarded.
func (m *Master) Forward(ctx context.Context, dest int) (int, error) {
	head, n := m.tree.DrainChain()

	start := time.Now()
	err := m.sender.SendAndRecycle(ctx, dest, m.treePool, head, n)
	m.metrics.RecordFlush(n, time.Since(start), err)
	m.logger.LogFlush(ctx, dest, n, err)
	if err != nil {
		return n, fmt.Errorf("forward to rank %d: %w", dest, err)
	}

	return n, nil
}
