package hitmerge

import (
	"runtime"

	"github.com/hupe1980/hitmerge/hitlist"
	"github.com/hupe1980/hitmerge/wire"
)

// Compression selects the codec applied to wire messages. See the wire
// package for the available codecs.
type Compression = wire.Compression

const (
	CompressionNone = wire.CompressionNone
	CompressionZstd = wire.CompressionZstd
	CompressionLZ4  = wire.CompressionLZ4
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	poolSize         int
	messageLimit     int
	compression      Compression
	sanityChecks     bool
	ratePerSec       float64
	rateBurst        int
	parallelism      int
}

// Option configures Worker and Master constructor behavior.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		poolSize:         hitlist.DefaultPoolSize,
		messageLimit:     wire.DefaultMessageLimit,
		compression:      CompressionNone,
		parallelism:      runtime.GOMAXPROCS(0),
	}
}

// WithLogger configures the logger for operational events.
//
// If nil is passed, logging stays disabled.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithMetricsCollector configures a metrics collector for observability.
//
// If nil is passed, metrics collection stays disabled.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithPoolSize configures the entry pool growth batch size. The pool
// starts with one batch and grows by another batch whenever it runs dry.
func WithPoolSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.poolSize = n
		}
	}
}

// WithMessageLimit configures the soft byte cap on outgoing wire
// messages. A message may exceed the cap by at most the size of its
// last record minus one byte.
func WithMessageLimit(limit int) Option {
	return func(o *options) {
		if limit > 0 {
			o.messageLimit = limit
		}
	}
}

// WithCompression configures the codec applied to outgoing messages.
// Receivers decode any codec regardless of this setting.
func WithCompression(kind Compression) Option {
	return func(o *options) {
		o.compression = kind
	}
}

// WithSanityChecks enables expensive internal consistency checks on the
// node hit list: hit ordering inside chunks, duplicate ID detection
// across chunks, and full link-structure verification after each merge.
// Intended for tests and debugging; leave disabled in production.
func WithSanityChecks(enabled bool) Option {
	return func(o *options) {
		o.sanityChecks = enabled
	}
}

// WithSendRateLimit throttles outgoing messages to perSec messages per
// second with the given burst. Zero perSec disables throttling.
func WithSendRateLimit(perSec float64, burst int) Option {
	return func(o *options) {
		o.ratePerSec = perSec
		o.rateBurst = burst
	}
}

// WithParallelism configures the number of shard regions a worker scans
// concurrently. Defaults to GOMAXPROCS.
func WithParallelism(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.parallelism = n
		}
	}
}
