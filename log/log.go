package log

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"time"
)

// Logger is a leveled structured logger wrapping [log/slog] with an
// additional trace level. The zero value is valid and discards every
// message, so library code can hold a Logger field unconditionally.
type Logger struct {
	handler slog.Handler
	config  config
}

// Make creates a Logger writing to w. Defaults are [DefaultFormat],
// [DefaultLevel], and [DefaultTimeLayout] with caller info disabled;
// override them with functional options.
func Make(w io.Writer, opts ...Option) Logger {
	cfg := config{
		output:     w,
		level:      DefaultLevel,
		format:     DefaultFormat,
		timeLayout: DefaultTimeLayout,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.output == nil {
		cfg.output = io.Discard
	}

	return Logger{handler: cfg.handler(), config: cfg}
}

// With returns a Logger that includes attrs in every message.
func (l Logger) With(attrs ...slog.Attr) Logger {
	if l.handler == nil {
		return l
	}

	return Logger{handler: l.handler.WithAttrs(attrs), config: l.config}
}

// Level returns the minimum log level.
func (l Logger) Level() Level {
	if l.handler == nil {
		return DefaultLevel
	}

	return l.config.level
}

// Format returns the output format.
func (l Logger) Format() Format {
	if l.handler == nil {
		return DefaultFormat
	}

	return l.config.format
}

// TraceContext logs a message at Trace level with the provided context.
func (l Logger) TraceContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.logContext(ctx, LevelTrace, msg, attrs...)
}

// Trace logs a message at Trace level.
func (l Logger) Trace(msg string, attrs ...slog.Attr) {
	l.logContext(context.Background(), LevelTrace, msg, attrs...)
}

// DebugContext logs a message at Debug level with the provided context.
func (l Logger) DebugContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.logContext(ctx, LevelDebug, msg, attrs...)
}

// Debug logs a message at Debug level.
func (l Logger) Debug(msg string, attrs ...slog.Attr) {
	l.logContext(context.Background(), LevelDebug, msg, attrs...)
}

// InfoContext logs a message at Info level with the provided context.
func (l Logger) InfoContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.logContext(ctx, LevelInfo, msg, attrs...)
}

// Info logs a message at Info level.
func (l Logger) Info(msg string, attrs ...slog.Attr) {
	l.logContext(context.Background(), LevelInfo, msg, attrs...)
}

// WarnContext logs a message at Warn level with the provided context.
func (l Logger) WarnContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.logContext(ctx, LevelWarn, msg, attrs...)
}

// Warn logs a message at Warn level.
func (l Logger) Warn(msg string, attrs ...slog.Attr) {
	l.logContext(context.Background(), LevelWarn, msg, attrs...)
}

// ErrorContext logs a message at Error level with the provided context.
func (l Logger) ErrorContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.logContext(ctx, LevelError, msg, attrs...)
}

// Error logs a message at Error level.
func (l Logger) Error(msg string, attrs ...slog.Attr) {
	l.logContext(context.Background(), LevelError, msg, attrs...)
}

func (l Logger) logContext(ctx context.Context, level Level, msg string, attrs ...slog.Attr) {
	if l.handler == nil || !l.handler.Enabled(ctx, slog.Level(level)) {
		return
	}

	// Skip runtime.Callers, logContext, and the level method to record
	// the actual call site.
	var pcs [1]uintptr

	runtime.Callers(3, pcs[:])

	r := slog.NewRecord(time.Now(), slog.Level(level), msg, pcs[0])
	r.AddAttrs(attrs...)

	_ = l.handler.Handle(ctx, r)
}
