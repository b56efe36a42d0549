package hitmerge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/hupe1980/hitmerge/hitlist"
	"github.com/hupe1980/hitmerge/internal/slab"
	"github.com/hupe1980/hitmerge/model"
	"github.com/hupe1980/hitmerge/transport"
	"github.com/hupe1980/hitmerge/wire"
)

// ScanFunc scans a single shard region and emits every hit it finds,
// in ascending ID order, through emit. Returning an error abandons the
// region's chunk without merging it.
type ScanFunc func(ctx context.Context, region model.ShardRegion, emit func(hit model.Hit) error) error

// Worker collects hits for one node of the cluster. Shard regions are
// scanned concurrently; each region's hits go into a private chunk that
// is spliced into the shared node list when the region completes. Flush
// drains the list and ships it to the master.
type Worker struct {
	tr         transport.Transport
	masterRank int
	pool       *hitlist.EntryPool
	list       *hitlist.List
	sender     *wire.Sender
	logger     *Logger
	metrics    MetricsCollector
	sanity     bool
	workers    int
}

// NewWorker creates a worker bound to the given transport endpoint that
// reports to masterRank.
func NewWorker(tr transport.Transport, masterRank int, optFns ...Option) (*Worker, error) {
	if masterRank == tr.Rank() {
		return nil, ErrSameRank
	}

	opts := defaultOptions()
	for _, fn := range optFns {
		fn(opts)
	}

	entryPool := hitlist.NewEntryPool(opts.poolSize)

	var listOpts []hitlist.ListOption
	if opts.sanityChecks {
		listOpts = append(listOpts, hitlist.WithSanityChecks())
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

	return &Worker{
		tr:         tr,
		masterRank: masterRank,
		pool:       entryPool,
		list:       hitlist.NewList(entryPool, listOpts...),
		sender:     sender,
		logger:     opts.logger.WithRank(tr.Rank()),
		metrics:    opts.metricsCollector,
		sanity:     opts.sanityChecks,
		workers:    opts.parallelism,
	}, nil
}

// Rank returns the worker's transport rank.
func (w *Worker) Rank() int {
	return w.tr.Rank()
}

// Run scans all regions concurrently and merges the resulting chunks
// into the node list. Regions must not overlap; a chunk whose ID range
// interleaves with already merged hits fails the merge. The first error
// cancels the remaining scans.
func (w *Worker) Run(ctx context.Context, regions []model.ShardRegion, scan ScanFunc) error {
	if scan == nil {
		return ErrNilScanFunc
	}

	p := pool.New().WithMaxGoroutines(w.workers).WithContext(ctx).WithCancelOnError()
	for _, region := range regions {
		region := region
		p.Go(func(ctx context.Context) error {
			return w.scanRegion(ctx, region, scan)
		})
	}

	return p.Wait()
}

func (w *Worker) scanRegion(ctx context.Context, region model.ShardRegion, scan ScanFunc) error {
	var chunkOpts []hitlist.ChunkOption
	if w.sanity {
		chunkOpts = append(chunkOpts, hitlist.WithChunkSanityChecks())
	}

	chunk := hitlist.NewChunk(w.pool, chunkOpts...)

	if err := scan(ctx, region, chunk.Append); err != nil {
		if derr := chunk.Discard(); derr != nil {
			return errors.Join(err, derr)
		}
		return fmt.Errorf("scan region %s: %w", region, err)
	}

	if chunk.Len() == 0 {
		return nil
	}

	start := time.Now()
	err := w.list.InsertChunk(chunk)
	w.metrics.RecordChunkMerge(chunk.Len(), time.Since(start), err)
	w.logger.WithRegion(region.String()).LogChunkMerge(ctx, chunk.Len(), err)
	if err != nil {
		// A corrupt-list failure surfaces after the splice; the entries
		// then belong to the list and must not be released here.
		if !errors.Is(err, hitlist.ErrCorruptList) {
			if derr := chunk.Discard(); derr != nil {
				return errors.Join(err, derr)
			}
		}
		return fmt.Errorf("merge region %s: %w", region, err)
	}

	return nil
}

// Flush drains the node list and ships every hit to the master,
// recycling the entries back into the pool as they are serialized.
// An empty list still sends one empty message so the master can count
// the node as finished. Returns the number of hits shipped.
func (w *Worker) Flush(ctx context.Context) (int, error) {
	head, n := w.list.Drain()

	start := time.Now()
	err := w.sender.SendAndRecycle(ctx, w.masterRank, w.pool, head, n)
	w.metrics.RecordFlush(n, time.Since(start), err)
	w.logger.LogFlush(ctx, w.masterRank, n, err)
	if err != nil {
		return n, fmt.Errorf("flush to rank %d: %w", w.masterRank, err)
	}

	return n, nil
}

// Pending returns the number of hits currently merged and not yet
// flushed.
func (w *Worker) Pending() int {
	return w.list.Len()
}

// PoolStats reports entry pool usage for capacity tuning.
func (w *Worker) PoolStats() slab.Stats {
	return w.pool.Stats()
}
