package log

import "io"

// Option applies a configuration value at logger creation time.
type Option func(*config)

// WithOutput sets the destination writer. A nil writer discards output.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		c.output = w
	}
}

// WithLevel sets the minimum log level. Messages below it are discarded.
func WithLevel(level Level) Option {
	return func(c *config) {
		c.level = level
	}
}

// WithFormat sets the output format.
func WithFormat(format Format) Option {
	return func(c *config) {
		c.format = format
	}
}

// WithTimeLayout sets the layout passed to [time.Time.Format] for log
// timestamps. An empty layout omits timestamps entirely.
func WithTimeLayout(layout string) Option {
	return func(c *config) {
		c.timeLayout = layout
	}
}

// WithCaller controls whether source location is recorded per message.
func WithCaller(enable bool) Option {
	return func(c *config) {
		c.caller = enable
	}
}
