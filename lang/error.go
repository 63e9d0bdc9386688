package lang

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/strataconf/strata/lang/token"
)

// Diagnostic kinds (sentinel values). Every core operation returns at most
// one of these per failure; compare with errors.Is.
var (
	ErrLex                 = NewError("lex error")
	ErrParse               = NewError("parse error")
	ErrDuplicateKey        = NewError("duplicate key")
	ErrTableArity          = NewError("table row arity mismatch")
	ErrDedent              = NewError("invalid dedent count")
	ErrCircularBase        = NewError("circular base chain")
	ErrMerge               = NewError("merge error")
	ErrPatchTarget         = NewError("patch target not found")
	ErrCircularReference   = NewError("circular variable reference")
	ErrUnresolvedReference = NewError("unresolved variable reference")
	ErrProjection          = NewError("projection type error")
	ErrLoad                = NewError("document load failed")
	ErrNamespace           = NewError("namespace resolution failed")
)

// Error is a structured diagnostic carrying a stable kind, a human-readable
// detail, an optional wrapped cause, structured logging attributes, and a
// source location (line/column for parse-time errors, key path for
// merge/resolution errors).
//
// It implements both error and slog.LogValuer.
type Error struct {
	kind  string
	msg   string
	err   error       // wrapped cause (for errors.Unwrap)
	attrs []slog.Attr // attributes for structured logging
	pos   token.Position
	path  string // key path, when position is not applicable
}

// NewError creates a new diagnostic kind.
func NewError(kind string) *Error {
	return &Error{kind: kind}
}

// WrapError wraps an arbitrary error into an Error, passing through values
// that already are one.
func WrapError(err error) *Error {
	if ee, ok := err.(*Error); ok {
		return ee
	}

	return &Error{err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	part := make([]string, 0, 3)

	if e.kind != "" {
		part = append(part, e.kind)
	}

	if e.msg != "" {
		part = append(part, e.msg)
	}

	if e.err != nil {
		part = append(part, e.err.Error())
	}

	s := strings.Join(part, ": ")

	if e.path != "" {
		s += " (at " + e.path + ")"
	}

	if e.pos.IsValid() {
		s += " at line " + e.pos.String()
	}

	return s
}

// Is matches diagnostics by kind, so errors.Is(err, ErrParse) holds for
// any derived parse error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)

	return ok && t.kind == e.kind
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error { return e.err }

// Kind returns the stable diagnostic kind.
func (e *Error) Kind() string { return e.kind }

// Position returns the source position, zero when not applicable.
func (e *Error) Position() token.Position { return e.pos }

// Path returns the key path, empty when not applicable.
func (e *Error) Path() string { return e.path }

// LogValue implements slog.LogValuer for rich structured logging.
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+4)

	if e.kind != "" {
		attrs = append(attrs, slog.String("kind", e.kind))
	}

	if e.msg != "" {
		attrs = append(attrs, slog.String("detail", e.msg))
	}

	if e.err != nil {
		attrs = append(attrs, slog.String("cause", e.err.Error()))
	}

	if e.pos.IsValid() {
		attrs = append(attrs, slog.String("position", e.pos.String()))
	}

	if e.path != "" {
		attrs = append(attrs, slog.String("path", e.path))
	}

	return slog.GroupValue(append(attrs, e.attrs...)...)
}

// Wrap creates a new Error wrapping a cause.
func (e *Error) Wrap(err error) *Error {
	out := e.clone()
	out.err = err

	return out
}

// Withf sets the human-readable detail message.
// This creates a new Error instance to keep the sentinels immutable.
func (e *Error) Withf(format string, args ...any) *Error {
	out := e.clone()
	out.msg = fmt.Sprintf(format, args...)

	return out
}

// With adds attributes to the error for structured logging.
func (e *Error) With(attrs ...slog.Attr) *Error {
	out := e.clone()
	out.attrs = append(out.attrs, attrs...)

	return out
}

// WithPosition attaches a source position.
func (e *Error) WithPosition(pos token.Position) *Error {
	out := e.clone()
	out.pos = pos

	return out
}

// WithKey attaches a key path.
func (e *Error) WithKey(path string) *Error {
	out := e.clone()
	out.path = path

	return out
}

// clone copies the error for immutable derivation.
func (e *Error) clone() *Error {
	attrs := make([]slog.Attr, len(e.attrs))
	copy(attrs, e.attrs)

	return &Error{
		kind:  e.kind,
		msg:   e.msg,
		err:   e.err,
		attrs: attrs,
		pos:   e.pos,
		path:  e.path,
	}
}

// Snippet renders the offending source line with a caret marker for
// diagnostics that carry a position. Returns "" when the error has no
// usable position within the source.
func (e *Error) Snippet(source string) string {
	if !e.pos.IsValid() {
		return ""
	}

	lines := strings.Split(source, "\n")
	if e.pos.Line > len(lines) {
		return ""
	}

	line := lines[e.pos.Line-1]

	var src strings.Builder

	src.WriteString("  ")
	src.WriteString(strconv.Itoa(e.pos.Line))
	src.WriteString(" | ")
	src.WriteString(line)
	src.WriteRune('\n')

	// +5 accounts for: 2 leading spaces + " | " (3 chars)
	padding := strings.Repeat(" ", len(strconv.Itoa(e.pos.Line))+5)
	if e.pos.Column > 0 {
		padding += strings.Repeat(" ", e.pos.Column-1)
	}

	src.WriteString(padding + "^\n")

	return src.String()
}
