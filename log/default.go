package log

import (
	"context"
	"log/slog"
	"os"
	"sync"
)

var (
	defMu   sync.RWMutex
	defOpts []Option
	def     = Make(os.Stderr)
)

// Default returns the package-level logger.
func Default() Logger {
	defMu.RLock()
	defer defMu.RUnlock()

	return def
}

// Config reconfigures the package-level logger. Options accumulate
// across calls, so early flag parsing can apply settings incrementally.
func Config(opts ...Option) {
	defMu.Lock()
	defer defMu.Unlock()

	defOpts = append(defOpts, opts...)
	def = Make(os.Stderr, defOpts...)
}

// TraceContext logs to the package-level logger at Trace level.
func TraceContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	Default().TraceContext(ctx, msg, attrs...)
}

// Trace logs to the package-level logger at Trace level.
func Trace(msg string, attrs ...slog.Attr) {
	Default().Trace(msg, attrs...)
}

// DebugContext logs to the package-level logger at Debug level.
func DebugContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	Default().DebugContext(ctx, msg, attrs...)
}

// Debug logs to the package-level logger at Debug level.
func Debug(msg string, attrs ...slog.Attr) {
	Default().Debug(msg, attrs...)
}

// InfoContext logs to the package-level logger at Info level.
func InfoContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	Default().InfoContext(ctx, msg, attrs...)
}

// Info logs to the package-level logger at Info level.
func Info(msg string, attrs ...slog.Attr) {
	Default().Info(msg, attrs...)
}

// WarnContext logs to the package-level logger at Warn level.
func WarnContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	Default().WarnContext(ctx, msg, attrs...)
}

// Warn logs to the package-level logger at Warn level.
func Warn(msg string, attrs ...slog.Attr) {
	Default().Warn(msg, attrs...)
}

// ErrorContext logs to the package-level logger at Error level.
func ErrorContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	Default().ErrorContext(ctx, msg, attrs...)
}

// Error logs to the package-level logger at Error level.
func Error(msg string, attrs ...slog.Attr) {
	Default().Error(msg, attrs...)
}
