package colstage

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with colstage-specific helpers so staging logs
// use consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler.
// If handler is nil, uses a text handler to stderr at info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all output.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

// WithPartition adds a partition field.
func (l *Logger) WithPartition(id int) *Logger {
	return &Logger{Logger: l.Logger.With("partition", id)}
}

// WithLayout adds layout and mode fields.
func (l *Logger) WithLayout(layout Layout, mode Mode) *Logger {
	return &Logger{Logger: l.Logger.With("layout", layout.String(), "mode", mode.String())}
}

// LogIngest logs the end of a partition's ingestion pass.
func (l *Logger) LogIngest(ctx context.Context, partition int, rows int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "ingest failed",
			"partition", partition,
			"rows", rows,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "ingest completed",
		"partition", partition,
		"rows", rows,
	)
}

// LogAllocate logs the one-time column allocation.
func (l *Logger) LogAllocate(ctx context.Context, rows, nonzeros int64, numCols int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "allocate failed",
			"rows", rows,
			"nonzeros", nonzeros,
			"num_cols", numCols,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "columns allocated",
		"rows", rows,
		"nonzeros", nonzeros,
		"num_cols", numCols,
	)
}

// LogMerge logs one partition merge.
func (l *Logger) LogMerge(ctx context.Context, p Placement, err error) {
	if err != nil {
		l.ErrorContext(ctx, "merge failed",
			"partition", p.Partition,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "merge completed",
		"partition", p.Partition,
		"row_start", p.Rows.Start,
		"rows", p.Rows.Len,
	)
}

// LogRelease logs the release of a job or dataset.
func (l *Logger) LogRelease(ctx context.Context, what string, err error) {
	if err != nil {
		l.WarnContext(ctx, "release failed",
			"what", what,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "released", "what", what)
}

// LogSnapshot logs a snapshot save or load.
func (l *Logger) LogSnapshot(ctx context.Context, op, name string, bytes int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot failed",
			"op", op,
			"name", name,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "snapshot completed",
		"op", op,
		"name", name,
		"bytes", bytes,
	)
}
