package log

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
)

// ANSI color codes for pretty printing.
const (
	colorReset   = "\033[0m"
	colorGray    = "\033[90m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
)

// prettyHandler is a colorized text handler for terminal output.
type prettyHandler struct {
	mu         *sync.Mutex
	w          io.Writer
	timeLayout string
	level      slog.Level
	attrs      []slog.Attr
	group      string
}

func newPrettyHandler(w io.Writer, timeLayout string, level slog.Level) *prettyHandler {
	return &prettyHandler{
		mu:         &sync.Mutex{},
		w:          w,
		timeLayout: timeLayout,
		level:      level,
	}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	buf := new(bytes.Buffer)

	if !r.Time.IsZero() && h.timeLayout != "" {
		buf.WriteString(colorGray)
		buf.WriteString(r.Time.Format(h.timeLayout))
		buf.WriteString(colorReset)
		buf.WriteByte(' ')
	}

	buf.WriteString(levelColor(r.Level))
	buf.WriteString(levelLabel(r.Level))
	buf.WriteString(colorReset)
	buf.WriteByte(' ')
	buf.WriteString(r.Message)

	for _, a := range h.attrs {
		h.writeAttr(buf, a)
	}

	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(buf, a)

		return true
	})

	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.w.Write(buf.Bytes())

	return err
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := *h
	out.attrs = append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...)

	return &out
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	out := *h

	if h.group != "" {
		name = h.group + "." + name
	}

	out.group = name

	return &out
}

func (h *prettyHandler) writeAttr(buf *bytes.Buffer, a slog.Attr) {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		for _, inner := range a.Value.Group() {
			inner.Key = a.Key + "." + inner.Key
			h.writeAttr(buf, inner)
		}

		return
	}

	key := a.Key
	if h.group != "" {
		key = h.group + "." + key
	}

	buf.WriteByte(' ')
	buf.WriteString(colorGray)
	buf.WriteString(key)
	buf.WriteByte('=')
	buf.WriteString(colorReset)
	buf.WriteString(colorCyan)
	buf.WriteString(a.Value.String())
	buf.WriteString(colorReset)
}

func levelLabel(level slog.Level) string {
	switch Level(level) {
	case LevelTrace:
		return "TRC"
	case LevelDebug:
		return "DBG"
	case LevelInfo:
		return "INF"
	case LevelWarn:
		return "WRN"
	case LevelError:
		return "ERR"
	default:
		return level.String()
	}
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return colorRed
	case level >= slog.LevelWarn:
		return colorYellow
	case level >= slog.LevelInfo:
		return colorGreen
	case level >= slog.LevelDebug:
		return colorMagenta
	default:
		return colorGray
	}
}
