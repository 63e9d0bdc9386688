package cli

import (
	"context"
	"log/slog"

	"github.com/alecthomas/kong"

	"github.com/strataconf/strata/log"
)

// logFormat configures the logger format as a side effect of parsing via
// encoding.TextUnmarshaler, so the setting takes effect early enough to
// shape diagnostics emitted during parsing itself.
type logFormat string

func (f *logFormat) UnmarshalText(text []byte) error {
	*f = logFormat(text)
	log.Config(log.WithFormat(log.ParseFormat(string(*f))))

	return nil
}

// logLevel configures the logger level as a side effect of parsing via
// encoding.TextUnmarshaler.
type logLevel string

func (l *logLevel) UnmarshalText(text []byte) error {
	*l = logLevel(text)
	log.Config(log.WithLevel(log.ParseLevel(string(*l))))

	return nil
}

type logConfig struct {
	Level      logLevel  `default:"info"    enum:"trace,debug,info,warn,error" help:"Set log level."`
	Format     logFormat `default:"text"    enum:"text,json,pretty"            help:"Set log format."`
	TimeLayout string    `default:"RFC3339"                                    help:"Set timestamp layout."`
	Caller     bool      `default:"false"                                      help:"Include caller information." negatable:""`
}

func (*logConfig) group() kong.Group {
	return kong.Group{Key: "log", Title: "Logging options"}
}

// start applies the fully parsed flag values, including those that do not
// flow through TextUnmarshaler.
func (f *logConfig) start(ctx context.Context) {
	layout := f.TimeLayout
	if layout == "RFC3339" {
		layout = log.DefaultTimeLayout
	}

	log.Config(
		log.WithLevel(log.ParseLevel(string(f.Level))),
		log.WithFormat(log.ParseFormat(string(f.Format))),
		log.WithTimeLayout(layout),
		log.WithCaller(f.Caller),
	)

	log.DebugContext(ctx, "logger initialized",
		slog.String("level", string(f.Level)),
		slog.String("format", string(f.Format)),
		slog.String("time", layout),
		slog.Bool("caller", f.Caller),
	)
}
