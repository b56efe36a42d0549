package hitmerge

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    mergeCounter   prometheus.Counter
//	    flushHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordChunkMerge(entries int, duration time.Duration, err error) {
//	    p.mergeCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordChunkMerge is called after each chunk merge into the node list.
	// entries is the chunk size, duration the splice time, err is nil on success.
	RecordChunkMerge(entries int, duration time.Duration, err error)

	// RecordFlush is called after each flush of the node list to the master.
	// records is the number of hits shipped.
	RecordFlush(records int, duration time.Duration, err error)

	// RecordReceive is called after each batch received on the master.
	RecordReceive(records int, duration time.Duration, err error)

	// RecordReport is called after the final report has been rendered.
	RecordReport(records int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordChunkMerge(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordFlush(int, time.Duration, error)      {}
func (NoopMetricsCollector) RecordReceive(int, time.Duration, error)    {}
func (NoopMetricsCollector) RecordReport(int, time.Duration, error)     {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	MergeCount        atomic.Int64
	MergeErrors       atomic.Int64
	MergeEntries      atomic.Int64
	MergeTotalNanos   atomic.Int64
	FlushCount        atomic.Int64
	FlushErrors       atomic.Int64
	FlushRecords      atomic.Int64
	ReceiveCount      atomic.Int64
	ReceiveErrors     atomic.Int64
	ReceiveRecords    atomic.Int64
	ReceiveTotalNanos atomic.Int64
	ReportCount       atomic.Int64
	ReportErrors      atomic.Int64
	ReportRecords     atomic.Int64
}

// RecordChunkMerge implements MetricsCollector.
func (b *BasicMetricsCollector) RecordChunkMerge(entries int, duration time.Duration, err error) {
	b.MergeCount.Add(1)
	b.MergeEntries.Add(int64(entries))
	b.MergeTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.MergeErrors.Add(1)
	}
}

// RecordFlush implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFlush(records int, duration time.Duration, err error) {
	b.FlushCount.Add(1)
	b.FlushRecords.Add(int64(records))
	if err != nil {
		b.FlushErrors.Add(1)
	}
}

// RecordReceive implements MetricsCollector.
func (b *BasicMetricsCollector) RecordReceive(records int, duration time.Duration, err error) {
	b.ReceiveCount.Add(1)
	b.ReceiveRecords.Add(int64(records))
	b.ReceiveTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ReceiveErrors.Add(1)
	}
}

// RecordReport implements MetricsCollector.
func (b *BasicMetricsCollector) RecordReport(records int, duration time.Duration, err error) {
	b.ReportCount.Add(1)
	b.ReportRecords.Add(int64(records))
	if err != nil {
		b.ReportErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		MergeCount:     b.MergeCount.Load(),
		MergeErrors:    b.MergeErrors.Load(),
		MergeEntries:   b.MergeEntries.Load(),
		MergeAvgNanos:  b.getAvgMergeNanos(),
		FlushCount:     b.FlushCount.Load(),
		FlushErrors:    b.FlushErrors.Load(),
		FlushRecords:   b.FlushRecords.Load(),
		ReceiveCount:   b.ReceiveCount.Load(),
		ReceiveErrors:  b.ReceiveErrors.Load(),
		ReceiveRecords: b.ReceiveRecords.Load(),
		ReportCount:    b.ReportCount.Load(),
		ReportErrors:   b.ReportErrors.Load(),
		ReportRecords:  b.ReportRecords.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgMergeNanos() int64 {
	count := b.MergeCount.Load()
	if count == 0 {
		return 0
	}
	return b.MergeTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	MergeCount     int64
	MergeErrors    int64
	MergeEntries   int64
	MergeAvgNanos  int64
	FlushCount     int64
	FlushErrors    int64
	FlushRecords   int64
	ReceiveCount   int64
	ReceiveErrors  int64
	ReceiveRecords int64
	ReportCount    int64
	ReportErrors   int64
	ReportRecords  int64
}
