// Package log provides a leveled structured logging interface based on
// [log/slog], extended with a trace level below debug.
//
// Loggers are values configured once at creation time:
//
//	logger := log.Make(os.Stderr,
//		log.WithLevel(log.LevelTrace),
//		log.WithFormat(log.FormatPretty))
//	logger.Info("started", slog.String("version", pkg.Version))
//
// The zero Logger discards every message, so packages can accept an
// optional Logger without nil checks at call sites.
package log
