// Package token defines the lexical tokens of the strata document language.
package token

import "strconv"

// Kind identifies the lexical class of a token.
type Kind int

const (
	// EOF marks the end of input. It is always the final token.
	EOF Kind = iota

	// Newline terminates a statement.
	Newline

	// Ident is a key or annotation name. Keys are scanned greedily up to
	// whitespace or a bang, so patch paths like "servers[*].cpu" arrive as
	// a single Ident.
	Ident

	// Bang separates a key from its type annotation.
	Bang

	// LBrace and RBrace delimit blocks and tables.
	LBrace
	RBrace

	// LBracket and RBracket delimit lists.
	LBracket
	RBracket

	// Comma separates inline list items.
	Comma

	// Text is an unquoted free-text value run, terminated by a structural
	// character or end of line.
	Text

	// String is a quoted value. Text holds the payload without quotes.
	String

	// Multiline is the raw content captured between triple backticks.
	// Text holds the verbatim content and Hint the language tag, if any.
	Multiline
)

// String returns a human-readable name for the token kind.
func (k Kind) String() string {
	switch k {
	case EOF:
		return "end of input"
	case Newline:
		return "newline"
	case Ident:
		return "identifier"
	case Bang:
		return "'!'"
	case LBrace:
		return "'{'"
	case RBrace:
		return "'}'"
	case LBracket:
		return "'['"
	case RBracket:
		return "']'"
	case Comma:
		return "','"
	case Text:
		return "value"
	case String:
		return "quoted value"
	case Multiline:
		return "multiline content"
	default:
		return "unknown"
	}
}

// Position locates a token in the source text.
type Position struct {
	Offset int // byte offset, 0-based
	Line   int // line number, 1-based
	Column int // column number, 1-based
}

// String renders the position as "line:column".
func (p Position) String() string {
	return strconv.Itoa(p.Line) + ":" + strconv.Itoa(p.Column)
}

// IsValid reports whether the position refers to actual source text.
func (p Position) IsValid() bool { return p.Line > 0 }

// Token is a single lexical token with its source position.
type Token struct {
	Kind Kind
	Text string // decoded payload (quotes stripped, capture delimiters removed)
	Hint string // language hint for Multiline tokens
	Pos  Position
}
