// Package lexer converts strata source text into a stream of line-scoped
// tokens.
//
// The lexer is a single forward pass with two modes. In normal mode it
// emits structural tokens and free-text value runs, scoped to the current
// line. A triple backtick switches it into raw-capture mode, where all
// characters, including newlines, are preserved verbatim until the next
// line containing only a triple backtick. There is no backtracking and no
// separate preprocessing pass.
//
// The first token on a line is scanned as a key: a greedy run of characters
// up to whitespace, a bang, a comment, or an opening brace. This is what
// makes the grammar context-sensitive: brackets are structural in value
// position but plain key characters at the start of a line, so patch paths
// like "servers[*].cpu" survive as single identifiers.
package lexer

import (
	"strings"
	"unicode/utf8"

	"github.com/strataconf/strata/lang/token"
)

// Error is a lexical error anchored to the position of the offending
// token's start.
type Error struct {
	Msg string
	Pos token.Position
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Msg + " at line " + e.Pos.String()
}

// Lexer scans strata source text.
type Lexer struct {
	input     []byte
	pos       int
	line      int
	col       int
	lineStart bool // next token begins a statement
	afterBang bool // next token is a type annotation word

	inlineDepth int  // open braces on the current line
	inlineKey   bool // next inline word is a key, not a value
}

// New creates a Lexer over the given source text.
func New(input string) *Lexer {
	return &Lexer{
		input:     []byte(input),
		pos:       0,
		line:      1,
		col:       1,
		lineStart: true,
	}
}

// Scan tokenizes the entire input and returns the token stream, terminated
// by an EOF token. The first lexical error aborts the scan.
func (l *Lexer) Scan() ([]token.Token, error) {
	var toks []token.Token

	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}

		toks = append(toks, tok)

		if tok.Kind == token.EOF {
			return toks, nil
		}
	}
}

// next returns the next token in the stream.
func (l *Lexer) next() (token.Token, error) {
	l.skipSpaces()

	pos := l.position()

	if l.eof() {
		return token.Token{Kind: token.EOF, Pos: pos}, nil
	}

	ch := l.peek()

	// Comments run to end of line in both key and value position.
	if ch == '#' {
		l.skipToEOL()

		return l.next()
	}

	if ch == '\n' {
		l.advance()
		l.lineStart = true
		l.afterBang = false
		l.inlineDepth = 0
		l.inlineKey = false

		return token.Token{Kind: token.Newline, Pos: pos}, nil
	}

	if l.lineStart {
		return l.scanLineStart(pos)
	}

	return l.scanValue(pos)
}

// scanLineStart scans the first token of a statement.
func (l *Lexer) scanLineStart(pos token.Position) (token.Token, error) {
	l.lineStart = false

	switch ch := l.peek(); {
	case ch == '}':
		l.advance()

		return token.Token{Kind: token.RBrace, Pos: pos}, nil

	case ch == ']':
		l.advance()

		return token.Token{Kind: token.RBracket, Pos: pos}, nil

	case ch == '{':
		l.advance()

		return token.Token{Kind: token.LBrace, Pos: pos}, nil

	case ch == '[':
		l.advance()

		return token.Token{Kind: token.LBracket, Pos: pos}, nil

	case ch == '"':
		return l.scanQuoted(pos)

	case ch == '`' && l.peekN(3) == "```":
		return l.scanCapture(pos)

	default:
		return l.scanKey(pos)
	}
}

// scanKey scans a key identifier: a run of characters ending at whitespace,
// a bang, a comment, a block opener, or end of line.
func (l *Lexer) scanKey(pos token.Position) (token.Token, error) {
	start := l.pos

	for !l.eof() {
		ch := l.peek()
		if ch == ' ' || ch == '\t' || ch == '\n' ||
			ch == '!' || ch == '#' || ch == '{' {
			break
		}

		l.advance()
	}

	return token.Token{
		Kind: token.Ident,
		Text: string(l.input[start:l.pos]),
		Pos:  pos,
	}, nil
}

// scanValue scans a token in value position.
func (l *Lexer) scanValue(pos token.Position) (token.Token, error) {
	if l.afterBang {
		l.afterBang = false

		return l.scanWord(pos)
	}

	switch ch := l.peek(); ch {
	case '!':
		l.advance()
		l.afterBang = true

		return token.Token{Kind: token.Bang, Pos: pos}, nil

	case '{':
		l.advance()

		// A brace with content before the line end opens an inline block.
		// Until the matching brace or the newline, words alternate between
		// key and value position instead of forming one free-text run.
		l.inlineDepth++
		l.inlineKey = true

		return token.Token{Kind: token.LBrace, Pos: pos}, nil

	case '}':
		l.advance()

		if l.inlineDepth > 0 {
			l.inlineDepth--
			l.inlineKey = l.inlineDepth > 0
		}

		return token.Token{Kind: token.RBrace, Pos: pos}, nil

	case '[':
		l.advance()

		return token.Token{Kind: token.LBracket, Pos: pos}, nil

	case ']':
		l.advance()

		return token.Token{Kind: token.RBracket, Pos: pos}, nil

	case ',':
		l.advance()

		if l.inlineDepth > 0 {
			l.inlineKey = true
		}

		return token.Token{Kind: token.Comma, Pos: pos}, nil

	case '"':
		tok, err := l.scanQuoted(pos)
		if err == nil && l.inlineDepth > 0 {
			l.inlineKey = true
		}

		return tok, err

	default:
		if ch == '`' && l.peekN(3) == "```" {
			return l.scanCapture(pos)
		}

		if l.inlineDepth > 0 {
			return l.scanInlineWord(pos)
		}

		return l.scanText(pos)
	}
}

// scanInlineWord scans one word inside an inline block. Keys and values
// alternate; both end at whitespace or any structural character, so
// multi-word values must be quoted.
func (l *Lexer) scanInlineWord(pos token.Position) (token.Token, error) {
	if l.inlineKey {
		l.inlineKey = false

		return l.scanWord(pos)
	}

	l.inlineKey = true

	tok, err := l.scanWord(pos)
	tok.Kind = token.Text

	return tok, err
}

// scanWord scans a type annotation: a bare word ending at whitespace or
// any structural character.
func (l *Lexer) scanWord(pos token.Position) (token.Token, error) {
	start := l.pos

	for !l.eof() {
		ch := l.peek()
		if ch == ' ' || ch == '\t' || ch == '\n' ||
			ch == '!' || ch == '#' || ch == '"' || ch == ',' ||
			ch == '{' || ch == '}' || ch == '[' || ch == ']' {
			break
		}

		l.advance()
	}

	return token.Token{
		Kind: token.Ident,
		Text: string(l.input[start:l.pos]),
		Pos:  pos,
	}, nil
}

// scanText scans an unquoted value run, terminated by a structural
// character, a comment, or end of line. Trailing spaces are not part of
// the value.
func (l *Lexer) scanText(pos token.Position) (token.Token, error) {
	start := l.pos

	for !l.eof() {
		ch := l.peek()
		if ch == ',' || ch == ']' || ch == '}' || ch == '{' ||
			ch == '#' || ch == '\n' {
			break
		}

		l.advance()
	}

	text := strings.TrimRight(string(l.input[start:l.pos]), " \t")

	return token.Token{Kind: token.Text, Text: text, Pos: pos}, nil
}

// scanQuoted scans a quoted value. Quotes force structurally significant
// characters into the value verbatim; there are no escape sequences.
func (l *Lexer) scanQuoted(pos token.Position) (token.Token, error) {
	l.advance() // opening quote

	start := l.pos

	for !l.eof() {
		ch := l.peek()
		if ch == '\n' {
			break
		}

		if ch == '"' {
			text := string(l.input[start:l.pos])
			l.advance() // closing quote

			return token.Token{Kind: token.String, Text: text, Pos: pos}, nil
		}

		l.advance()
	}

	return token.Token{}, &Error{Msg: "unterminated quoted value", Pos: pos}
}

// scanCapture handles raw-capture mode: everything between the opening
// triple backtick and the next line containing only a triple backtick is
// preserved verbatim. The text following the opener on the same line is
// the language hint. The newline after the closing delimiter is left in
// the stream so the statement still terminates normally.
func (l *Lexer) scanCapture(pos token.Position) (token.Token, error) {
	l.pos += 3
	l.col += 3

	// Language hint: remainder of the opening line.
	hintStart := l.pos
	for !l.eof() && l.peek() != '\n' {
		l.advance()
	}

	hint := strings.TrimSpace(string(l.input[hintStart:l.pos]))

	if l.eof() {
		return token.Token{}, &Error{
			Msg: "unterminated multiline capture",
			Pos: pos,
		}
	}

	l.advance() // newline after the opener

	var lines []string

	for {
		if l.eof() {
			return token.Token{}, &Error{
				Msg: "unterminated multiline capture",
				Pos: pos,
			}
		}

		lineStart := l.pos
		for !l.eof() && l.peek() != '\n' {
			l.advance()
		}

		line := string(l.input[lineStart:l.pos])

		if strings.TrimSpace(line) == "```" {
			// Closing delimiter. The trailing newline, if any, remains in
			// the stream and terminates the statement.
			break
		}

		lines = append(lines, line)

		if l.eof() {
			return token.Token{}, &Error{
				Msg: "unterminated multiline capture",
				Pos: pos,
			}
		}

		l.advance() // newline, preserved via the join below
	}

	return token.Token{
		Kind: token.Multiline,
		Text: strings.Join(lines, "\n"),
		Hint: hint,
		Pos:  pos,
	}, nil
}

// Helper methods

func (l *Lexer) peek() rune {
	if l.eof() {
		return 0
	}

	r, _ := utf8.DecodeRune(l.input[l.pos:])

	return r
}

func (l *Lexer) peekN(n int) string {
	if l.pos+n > len(l.input) {
		return string(l.input[l.pos:])
	}

	return string(l.input[l.pos : l.pos+n])
}

func (l *Lexer) advance() {
	if l.eof() {
		return
	}

	r, size := utf8.DecodeRune(l.input[l.pos:])

	l.pos += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

func (l *Lexer) eof() bool {
	return l.pos >= len(l.input)
}

func (l *Lexer) position() token.Position {
	return token.Position{
		Offset: l.pos,
		Line:   l.line,
		Column: l.col,
	}
}

func (l *Lexer) skipSpaces() {
	for !l.eof() {
		ch := l.peek()
		if ch != ' ' && ch != '\t' && ch != '\r' {
			return
		}

		l.advance()
	}
}

func (l *Lexer) skipToEOL() {
	for !l.eof() && l.peek() != '\n' {
		l.advance()
	}
}
