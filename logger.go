package hitmerge

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with hitmerge-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithRank adds a rank field to the logger.
func (l *Logger) WithRank(rank int) *Logger {
	return &Logger{
		Logger: l.Logger.With("rank", rank),
	}
}

// WithRegion adds a shard region field to the logger.
func (l *Logger) WithRegion(region string) *Logger {
	return &Logger{
		Logger: l.Logger.With("region", region),
	}
}

// LogChunkMerge logs the merge of a worker chunk into the node list.
func (l *Logger) LogChunkMerge(ctx context.Context, entries int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "chunk merge failed",
			"entries", entries,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "chunk merged",
			"entries", entries,
		)
	}
}

// LogFlush logs a worker flush to the master.
func (l *Logger) LogFlush(ctx context.Context, dest, records int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "flush failed",
			"dest", dest,
			"records", records,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "flush completed",
			"dest", dest,
			"records", records,
		)
	}
}

// LogReceive logs a received hit batch on the master.
func (l *Logger) LogReceive(ctx context.Context, from, records int) {
	l.DebugContext(ctx, "batch received",
		"from", from,
		"records", records,
	)
}

// LogReport logs the rendering of the final report.
func (l *Logger) LogReport(ctx context.Context, records int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "report failed",
			"records", records,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "report completed",
			"records", records,
		)
	}
}
