package hitmerge

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/hitmerge/model"
	"github.com/hupe1980/hitmerge/report"
	"github.com/hupe1980/hitmerge/testutil"
	"github.com/hupe1980/hitmerge/transport/mem"
)

// emitAll returns a ScanFunc that emits the subset of hits falling
// inside the scanned region.
func emitAll(hits []model.Hit) ScanFunc {
	return func(_ context.Context, region model.ShardRegion, emit func(hit model.Hit) error) error {
		for _, h := range hits {
			if region.Contains(h.ID) {
				if err := emit(h); err != nil {
					return err
				}
			}
		}
		return nil
	}
}

func TestWorkerMasterEndToEnd(t *testing.T) {
	ctx := context.Background()

	hub := mem.NewHub(3)
	defer hub.Close()

	master, err := NewMaster(hub.Transport(0), WithSanityChecks(true))
	require.NoError(t, err)

	// Two workers over disjoint halves of the ID space, four regions
	// each, scanned concurrently.
	rng := testutil.NewRNG(4711)
	regionsA := testutil.Regions(0, 4, 10_000)
	regionsB := testutil.Regions(40_000, 4, 10_000)

	var all []model.Hit
	for _, r := range append(append([]model.ShardRegion{}, regionsA...), regionsB...) {
		all = append(all, rng.Hits(r, 250)...)
	}

	var g errgroup.Group
	flushed := make([]int, 2)
	for i, regions := range [][]model.ShardRegion{regionsA, regionsB} {
		i, regions := i, regions
		worker, err := NewWorker(hub.Transport(i+1), 0, WithSanityChecks(true))
		require.NoError(t, err)

		g.Go(func() error {
			if err := worker.Run(ctx, regions, emitAll(all)); err != nil {
				return err
			}
			n, err := worker.Flush(ctx)
			flushed[i] = n
			return err
		})
	}

	require.NoError(t, master.Serve(ctx, len(all)))
	require.NoError(t, g.Wait())

	assert.Equal(t, len(all), flushed[0]+flushed[1])
	assert.Equal(t, len(all), master.Len())

	var buf bytes.Buffer
	n, err := master.WriteReport(&buf, report.FormatTSV)
	require.NoError(t, err)
	assert.Equal(t, len(all), n)
	assert.Equal(t, 0, master.Len())

	// Report must be globally sorted by ID with nothing lost.
	var prev uint64
	lines := 0
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		fields := strings.SplitN(sc.Text(), "\t", 3)
		require.Len(t, fields, 3)
		id, err := strconv.ParseUint(fields[0], 10, 64)
		require.NoError(t, err)
		if lines > 0 {
			assert.Greater(t, id, prev)
		}
		prev = id
		lines++
	}
	require.NoError(t, sc.Err())
	assert.Equal(t, len(all), lines)
}

func TestWorkerFlushEmpty(t *testing.T) {
	ctx := context.Background()

	hub := mem.NewHub(2)
	defer hub.Close()

	master, err := NewMaster(hub.Transport(0))
	require.NoError(t, err)

	worker, err := NewWorker(hub.Transport(1), 0)
	require.NoError(t, err)

	n, err := worker.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// The empty completion message must not block or advance the
	// expected count.
	require.NoError(t, master.Serve(ctx, 0))
	assert.Equal(t, 0, master.Len())
}

func TestWorkerScanErrorDiscardsChunk(t *testing.T) {
	ctx := context.Background()

	hub := mem.NewHub(2)
	defer hub.Close()

	worker, err := NewWorker(hub.Transport(1), 0)
	require.NoError(t, err)

	failing := func(_ context.Context, region model.ShardRegion, emit func(hit model.Hit) error) error {
		if err := emit(model.Hit{ID: region.Start, Description: []byte("x")}); err != nil {
			return err
		}
		return fmt.Errorf("backend unavailable")
	}

	err = worker.Run(ctx, testutil.Regions(0, 2, 100), failing)
	require.Error(t, err)

	assert.Equal(t, 0, worker.Pending())
	assert.Equal(t, 0, worker.PoolStats().Live)
}

func TestWorkerSameRank(t *testing.T) {
	hub := mem.NewHub(1)
	defer hub.Close()

	_, err := NewWorker(hub.Transport(0), 0)
	require.ErrorIs(t, err, ErrSameRank)
}

func TestWorkerNilScanFunc(t *testing.T) {
	hub := mem.NewHub(2)
	defer hub.Close()

	worker, err := NewWorker(hub.Transport(1), 0)
	require.NoError(t, err)

	err = worker.Run(context.Background(), testutil.Regions(0, 1, 10), nil)
	require.ErrorIs(t, err, ErrNilScanFunc)
}

func TestMasterNegativeExpected(t *testing.T) {
	hub := mem.NewHub(1)
	defer hub.Close()

	master, err := NewMaster(hub.Transport(0))
	require.NoError(t, err)

	require.ErrorIs(t, master.Serve(context.Background(), -1), ErrNegativeExpected)
}

func TestMasterForwardHierarchy(t *testing.T) {
	ctx := context.Background()

	// rank 2 worker -> rank 1 intermediate master -> rank 0 top master.
	hub := mem.NewHub(3)
	defer hub.Close()

	top, err := NewMaster(hub.Transport(0))
	require.NoError(t, err)

	mid, err := NewMaster(hub.Transport(1))
	require.NoError(t, err)

	worker, err := NewWorker(hub.Transport(2), 1)
	require.NoError(t, err)

	hits := testutil.SparseHits(model.ShardRegion{Start: 100, End: 190}, 10)
	require.NoError(t, worker.Run(ctx, testutil.Regions(100, 1, 100), emitAll(hits)))

	flushedHits, err := worker.Flush(ctx)
	require.NoError(t, err)
	require.Equal(t, len(hits), flushedHits)

	require.NoError(t, mid.Serve(ctx, len(hits)))

	forwarded, err := mid.Forward(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, len(hits), forwarded)
	assert.Equal(t, 0, mid.Len())

	require.NoError(t, top.Serve(ctx, len(hits)))
	assert.Equal(t, len(hits), top.Len())

	var buf bytes.Buffer
	n, err := top.WriteReport(&buf, report.FormatTSV)
	require.NoError(t, err)
	assert.Equal(t, len(hits), n)
	assert.True(t, strings.HasPrefix(buf.String(), "100\t"))
}

func TestMetricsCollected(t *testing.T) {
	ctx := context.Background()

	hub := mem.NewHub(2)
	defer hub.Close()

	metrics := &BasicMetricsCollector{}

	master, err := NewMaster(hub.Transport(0), WithMetricsCollector(metrics))
	require.NoError(t, err)

	worker, err := NewWorker(hub.Transport(1), 0, WithMetricsCollector(metrics))
	require.NoError(t, err)

	hits := testutil.SparseHits(model.ShardRegion{Start: 0, End: 99}, 5)
	require.NoError(t, worker.Run(ctx, testutil.Regions(0, 1, 100), emitAll(hits)))

	_, err = worker.Flush(ctx)
	require.NoError(t, err)
	require.NoError(t, master.Serve(ctx, len(hits)))

	_, err = master.WriteReport(&bytes.Buffer{}, report.FormatJSON)
	require.NoError(t, err)

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.MergeCount)
	assert.Equal(t, int64(len(hits)), stats.MergeEntries)
	assert.Equal(t, int64(1), stats.FlushCount)
	assert.Equal(t, int64(len(hits)), stats.FlushRecords)
	assert.GreaterOrEqual(t, stats.ReceiveCount, int64(1))
	assert.Equal(t, int64(len(hits)), stats.ReceiveRecords)
	assert.Equal(t, int64(1), stats.ReportCount)
	assert.Equal(t, int64(len(hits)), stats.ReportRecords)
}

func TestCompressionOverWire(t *testing.T) {
	ctx := context.Background()

	for _, kind := range []Compression{CompressionZstd, CompressionLZ4} {
		hub := mem.NewHub(2)

		master, err := NewMaster(hub.Transport(0))
		require.NoError(t, err)

		worker, err := NewWorker(hub.Transport(1), 0, WithCompression(kind))
		require.NoError(t, err)

		hits := testutil.NewRNG(7).Hits(model.ShardRegion{Start: 0, End: 99_999}, 500)
		require.NoError(t, worker.Run(ctx, testutil.Regions(0, 1, 100_000), emitAll(hits)))

		_, err = worker.Flush(ctx)
		require.NoError(t, err)
		require.NoError(t, master.Serve(ctx, len(hits)))
		assert.Equal(t, len(hits), master.Len())

		hub.Close()
	}
}
