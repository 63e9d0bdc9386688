package lang

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"

	"github.com/strataconf/strata/lang/lexer"
	"github.com/strataconf/strata/lang/token"
	"github.com/strataconf/strata/log"
)

// Option configures parsing behavior.
type Option func(*parser)

// WithLogger sets the structured logger for trace-level debugging.
// If not provided, the logger is zero-valued and all logging is a no-op.
func WithLogger(logger log.Logger) Option {
	return func(p *parser) {
		p.logger = logger
	}
}

// ParseReader parses a Document from an io.Reader.
func ParseReader(
	ctx context.Context,
	r io.Reader,
	opts ...Option,
) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, ErrLoad.Wrap(err)
	}

	return ParseString(ctx, string(data), opts...)
}

// ParseString parses a Document from a string. Parsing is a synchronous,
// side-effect-free computation: the first structural error aborts and is
// returned as a single diagnostic with its source location.
func ParseString(ctx context.Context, s string, opts ...Option) (*Document, error) {
	toks, err := lexer.New(s).Scan()
	if err != nil {
		var le *lexer.Error
		if errors.As(err, &le) {
			return nil, ErrLex.Withf("%s", le.Msg).WithPosition(le.Pos)
		}

		return nil, ErrLex.Wrap(err)
	}

	p := &parser{toks: toks}

	for _, opt := range opts {
		opt(p)
	}

	p.logger.TraceContext(ctx, "lex complete",
		slog.Int("token_count", len(toks)))

	doc, err := p.parseDocument()
	if err != nil {
		return nil, err
	}

	p.logger.TraceContext(ctx, "parse complete",
		slog.Int("entry_count", len(doc.Entries)))

	return doc, nil
}

// parser holds the parser state: a token slice with a cursor.
type parser struct {
	toks   []token.Token
	pos    int
	logger log.Logger
}

func (p *parser) cur() token.Token { return p.toks[p.pos] }

func (p *parser) advance() {
	if p.toks[p.pos].Kind != token.EOF {
		p.pos++
	}
}

func (p *parser) skipNewlines() {
	for p.cur().Kind == token.Newline {
		p.advance()
	}
}

// expectEnd consumes the newline terminating a statement.
func (p *parser) expectEnd() error {
	switch tok := p.cur(); tok.Kind {
	case token.Newline:
		p.advance()

		return nil

	case token.EOF:
		return nil

	default:
		return ErrParse.WithPosition(tok.Pos).
			Withf("expected end of line, found %s", tok.Kind)
	}
}

// parseDocument parses the entire input as a sequence of statements.
func (p *parser) parseDocument() (*Document, error) {
	doc := &Document{}

	for {
		p.skipNewlines()

		tok := p.cur()
		if tok.Kind == token.EOF {
			break
		}

		if tok.Kind == token.RBrace || tok.Kind == token.RBracket {
			return nil, ErrParse.WithPosition(tok.Pos).
				Withf("unexpected %s", tok.Kind)
		}

		e, err := p.parseStatement()
		if err != nil {
			return nil, err
		}

		// Directive entries share keys with the content they act on, so
		// only content entries occupy the unique key namespace.
		if e.Key != "" && !e.directive() {
			if prev, ok := doc.Get(e.Key); ok {
				return nil, ErrDuplicateKey.
					WithPosition(e.Pos).
					WithKey(e.Key).
					Withf("first declared at %s", prev.Pos)
			}
		}

		doc.append(e)
	}

	return doc, nil
}

// parseStatement parses one line-oriented statement:
//
//	key [!annotation] [value]
//
// A line beginning with a bang carries an empty key and the directive name
// as its annotation (e.g. "!base common.strata").
func (p *parser) parseStatement() (*Entry, error) {
	keyTok := p.cur()
	if keyTok.Kind != token.Ident {
		return nil, ErrParse.WithPosition(keyTok.Pos).
			Withf("expected key, found %s", keyTok.Kind)
	}

	p.advance()

	entry := &Entry{
		Key: keyTok.Text,
		Pos: keyTok.Pos,
	}

	if p.cur().Kind == token.Bang {
		p.advance()

		annTok := p.cur()
		if annTok.Kind != token.Ident || annTok.Text == "" {
			return nil, ErrParse.WithPosition(annTok.Pos).
				Withf("expected type annotation after '!'")
		}

		entry.Type = annTok.Text
		p.advance()
	}

	if entry.Key == "" && entry.Type == "" {
		return nil, ErrParse.WithPosition(keyTok.Pos).
			Withf("expected directive name after '!'")
	}

	value, err := p.parseValue(entry)
	if err != nil {
		return nil, err
	}

	entry.Value = value

	return entry, p.expectEnd()
}

// parseValue parses the value part of a statement, dispatching on the
// first token after the key and annotation.
func (p *parser) parseValue(entry *Entry) (*Value, error) {
	tok := p.cur()

	switch tok.Kind {
	case token.Newline, token.EOF:
		// A bare key is an empty scalar.
		return &Value{Kind: KindScalar, Pos: tok.Pos}, nil

	case token.LBrace:
		p.advance()

		if p.cur().Kind != token.Newline && p.cur().Kind != token.EOF {
			return p.parseInlineBlock(OrderModeFor(entry.Type), tok.Pos)
		}

		if err := p.expectEnd(); err != nil {
			return nil, err
		}

		if p.isTable(entry.Type) {
			return p.parseTable(tok.Pos)
		}

		return p.parseBlock(OrderModeFor(entry.Type), tok.Pos)

	case token.LBracket:
		p.advance()

		if p.cur().Kind == token.Newline {
			p.advance()

			return p.parseList(tok.Pos)
		}

		return p.parseInlineList(tok.Pos)

	case token.Multiline:
		p.advance()

		return p.multilineValue(entry, tok)

	case token.Text, token.String:
		p.advance()

		return &Value{Kind: KindScalar, Scalar: tok.Text, Pos: tok.Pos}, nil

	default:
		return nil, ErrParse.WithPosition(tok.Pos).
			Withf("expected value, found %s", tok.Kind)
	}
}

// parseInlineBlock parses a block opened and closed on one line:
//
//	server { port!int 8080 host localhost }
//
// Each entry is a key, an optional annotation, and an optional scalar;
// entries are separated by whitespace or commas. Nested containers need
// the multiline form.
func (p *parser) parseInlineBlock(mode OrderMode, openPos token.Position) (*Value, error) {
	block := NewBlock(mode)

	for {
		tok := p.cur()

		switch tok.Kind {
		case token.RBrace:
			p.advance()

			return &Value{Kind: KindBlock, Block: block, Pos: openPos}, nil

		case token.Comma:
			p.advance()

			continue

		case token.Newline, token.EOF:
			return nil, ErrParse.WithPosition(tok.Pos).
				Withf("expected '}' to close inline block opened at line %d",
					openPos.Line)

		case token.Ident:

		default:
			return nil, ErrParse.WithPosition(tok.Pos).
				Withf("expected key or '}' in inline block, found %s", tok.Kind)
		}

		e, err := p.parseInlineEntry(tok)
		if err != nil {
			return nil, err
		}

		if err := block.Define(e); err != nil {
			return nil, err
		}
	}
}

// parseInlineEntry parses one key-annotation-value group of an inline
// block. The key token is already current.
func (p *parser) parseInlineEntry(keyTok token.Token) (*Entry, error) {
	p.advance()

	entry := &Entry{Key: keyTok.Text, Pos: keyTok.Pos}

	if p.cur().Kind == token.Bang {
		p.advance()

		annTok := p.cur()
		if annTok.Kind != token.Ident || annTok.Text == "" {
			return nil, ErrParse.WithPosition(annTok.Pos).
				Withf("expected type annotation after '!'")
		}

		entry.Type = annTok.Text
		p.advance()
	}

	switch tok := p.cur(); tok.Kind {
	case token.Text, token.String:
		p.advance()

		entry.Value = &Value{Kind: KindScalar, Scalar: tok.Text, Pos: tok.Pos}

	case token.Comma, token.RBrace:
		// Bare key: an empty scalar, same as at end of line.
		entry.Value = &Value{Kind: KindScalar, Pos: tok.Pos}

	default:
		return nil, ErrParse.WithPosition(tok.Pos).
			Withf("inline block values must be scalars, found %s", tok.Kind)
	}

	return entry, nil
}

// isTable reports whether an opened brace starts a table: either the entry
// carries a "table" annotation, or the first inner key is exactly
// "columns" and the statement after it declares "rows". A block that
// happens to start with a "columns" key but has no row container stays an
// ordinary block.
func (p *parser) isTable(annotation string) bool {
	if annotation == "table" {
		return true
	}

	i := p.pos
	for p.toks[i].Kind == token.Newline {
		i++
	}

	if p.toks[i].Kind != token.Ident || p.toks[i].Text != "columns" {
		return false
	}

	// Skip to the end of the columns statement; its value is an inline
	// list, so the first newline terminates it.
	for p.toks[i].Kind != token.Newline {
		if p.toks[i].Kind == token.EOF {
			return false
		}

		i++
	}

	for p.toks[i].Kind == token.Newline {
		i++
	}

	return p.toks[i].Kind == token.Ident && p.toks[i].Text == "rows"
}

// multilineValue builds a multiline scalar. When the type annotation
// parses as a non-negative integer it is consumed as a dedent count:
// the content is dedented and the annotation cleared, so the entry
// round-trips through the formatter without double-dedenting.
func (p *parser) multilineValue(entry *Entry, tok token.Token) (*Value, error) {
	m := &Multiline{Content: tok.Text, Hint: tok.Hint}

	if entry.Type != "" {
		if n, err := strconv.Atoi(entry.Type); err == nil && n >= 0 {
			content, err := dedent(tok.Text, n)
			if err != nil {
				return nil, WrapError(err).WithPosition(tok.Pos).WithKey(entry.Key)
			}

			m.Content = content
			m.Dedent = n
			entry.Type = ""
		}
	}

	return &Value{Kind: KindMultiline, Multiline: m, Pos: tok.Pos}, nil
}

// parseBlock parses statements until the closing brace. openPos is the
// opening brace, recorded for unclosed-block diagnostics.
func (p *parser) parseBlock(mode OrderMode, openPos token.Position) (*Value, error) {
	block := NewBlock(mode)

	for {
		p.skipNewlines()

		tok := p.cur()

		switch tok.Kind {
		case token.EOF:
			return nil, ErrParse.WithPosition(tok.Pos).
				Withf("expected '}' to close block opened at line %d", openPos.Line)

		case token.RBrace:
			// The statement owning this block consumes the line end.
			p.advance()

			return &Value{Kind: KindBlock, Block: block, Pos: openPos}, nil

		case token.RBracket:
			return nil, ErrParse.WithPosition(tok.Pos).
				Withf("unexpected ']' inside block opened at line %d", openPos.Line)

		default:
			e, err := p.parseStatement()
			if err != nil {
				return nil, err
			}

			if err := block.Define(e); err != nil {
				return nil, err
			}
		}
	}
}

// parseList parses a multiline list: one item per line until the closing
// bracket.
func (p *parser) parseList(openPos token.Position) (*Value, error) {
	var items []*Value

	for {
		p.skipNewlines()

		tok := p.cur()

		switch tok.Kind {
		case token.EOF:
			return nil, ErrParse.WithPosition(tok.Pos).
				Withf("expected ']' to close list opened at line %d", openPos.Line)

		case token.RBracket:
			p.advance()

			return &Value{Kind: KindList, List: items, Pos: openPos}, nil

		case token.RBrace:
			return nil, ErrParse.WithPosition(tok.Pos).
				Withf("unexpected '}' inside list opened at line %d", openPos.Line)

		default:
			item, err := p.parseListItem(tok)
			if err != nil {
				return nil, err
			}

			items = append(items, item)

			if err := p.expectEnd(); err != nil {
				return nil, err
			}
		}
	}
}

// parseListItem parses a single item line of a multiline list.
func (p *parser) parseListItem(tok token.Token) (*Value, error) {
	switch tok.Kind {
	case token.LBrace:
		p.advance()

		if err := p.expectEnd(); err != nil {
			return nil, err
		}

		return p.parseBlock(OrderKeys, tok.Pos)

	case token.LBracket:
		p.advance()

		if p.cur().Kind == token.Newline {
			p.advance()

			return p.parseList(tok.Pos)
		}

		return p.parseInlineList(tok.Pos)

	case token.Multiline:
		p.advance()

		return &Value{
			Kind:      KindMultiline,
			Multiline: &Multiline{Content: tok.Text, Hint: tok.Hint},
			Pos:       tok.Pos,
		}, nil

	case token.String:
		p.advance()

		return &Value{Kind: KindScalar, Scalar: tok.Text, Pos: tok.Pos}, nil

	case token.Ident:
		// The line scanner splits an unquoted item at the first whitespace;
		// rejoin the remainder, if any.
		p.advance()

		text := tok.Text

		if rest := p.cur(); rest.Kind == token.Text {
			text += " " + rest.Text

			p.advance()
		}

		return &Value{Kind: KindScalar, Scalar: text, Pos: tok.Pos}, nil

	default:
		return nil, ErrParse.WithPosition(tok.Pos).
			Withf("expected list item, found %s", tok.Kind)
	}
}

// parseInlineList parses a comma-separated list closed on the same line.
func (p *parser) parseInlineList(openPos token.Position) (*Value, error) {
	var items []*Value

	if p.cur().Kind == token.RBracket {
		p.advance()

		return &Value{Kind: KindList, List: items, Pos: openPos}, nil
	}

	for {
		tok := p.cur()

		var item *Value

		switch tok.Kind {
		case token.Text, token.String:
			p.advance()

			item = &Value{Kind: KindScalar, Scalar: tok.Text, Pos: tok.Pos}

		case token.LBracket:
			p.advance()

			nested, err := p.parseInlineList(tok.Pos)
			if err != nil {
				return nil, err
			}

			item = nested

		default:
			return nil, ErrParse.WithPosition(tok.Pos).
				Withf("expected list item, found %s", tok.Kind)
		}

		items = append(items, item)

		switch sep := p.cur(); sep.Kind {
		case token.Comma:
			p.advance()

		case token.RBracket:
			p.advance()

			return &Value{Kind: KindList, List: items, Pos: openPos}, nil

		default:
			return nil, ErrParse.WithPosition(sep.Pos).
				Withf("expected ',' or ']', found %s", sep.Kind)
		}
	}
}

// parseTable parses a table body after its opening brace:
//
//	columns [a, b]
//	rows {
//	  [1, 2]
//	}
//
// The row container may equivalently be a bracketed list of rows; both
// forms appear in the wild and both normalize to the same model. Every
// row's arity must equal the column count.
func (p *parser) parseTable(openPos token.Position) (*Value, error) {
	p.skipNewlines()

	colKey := p.cur()
	if colKey.Kind != token.Ident || colKey.Text != "columns" {
		return nil, ErrParse.WithPosition(colKey.Pos).
			Withf("table block must declare 'columns' first")
	}

	p.advance()

	columns, err := p.parseScalarRow("columns")
	if err != nil {
		return nil, err
	}

	if err := p.expectEnd(); err != nil {
		return nil, err
	}

	p.skipNewlines()

	rowKey := p.cur()
	if rowKey.Kind != token.Ident || rowKey.Text != "rows" {
		return nil, ErrParse.WithPosition(rowKey.Pos).
			Withf("table block must declare 'rows' after 'columns'")
	}

	p.advance()

	var closer token.Kind

	switch open := p.cur(); open.Kind {
	case token.LBrace:
		closer = token.RBrace
	case token.LBracket:
		closer = token.RBracket
	default:
		return nil, ErrParse.WithPosition(open.Pos).
			Withf("expected '{' or '[' to open table rows, found %s", open.Kind)
	}

	rowsPos := p.cur().Pos
	p.advance()

	if err := p.expectEnd(); err != nil {
		return nil, err
	}

	table := &Table{Columns: columns}

	for {
		p.skipNewlines()

		tok := p.cur()

		switch tok.Kind {
		case token.EOF:
			return nil, ErrParse.WithPosition(tok.Pos).
				Withf("expected %s to close table rows opened at line %d",
					closer, rowsPos.Line)

		case closer:
			p.advance()

			if err := p.expectEnd(); err != nil {
				return nil, err
			}

			return p.closeTable(table, openPos)

		case token.LBracket:
			row, err := p.parseScalarRow("row")
			if err != nil {
				return nil, err
			}

			if len(row) != len(table.Columns) {
				return nil, ErrTableArity.WithPosition(tok.Pos).
					Withf("row has %d value(s), table declares %d column(s)",
						len(row), len(table.Columns))
			}

			table.Rows = append(table.Rows, row)

			if err := p.expectEnd(); err != nil {
				return nil, err
			}

		default:
			return nil, ErrParse.WithPosition(tok.Pos).
				Withf("expected bracketed row, found %s", tok.Kind)
		}
	}
}

// closeTable consumes the closing brace of the table block itself.
func (p *parser) closeTable(table *Table, openPos token.Position) (*Value, error) {
	p.skipNewlines()

	tok := p.cur()
	if tok.Kind != token.RBrace {
		return nil, ErrParse.WithPosition(tok.Pos).
			Withf("expected '}' to close table opened at line %d", openPos.Line)
	}

	p.advance()

	return &Value{Kind: KindTable, Table: table, Pos: openPos}, nil
}

// parseScalarRow parses an inline bracketed list of scalars, as used for
// table columns and rows.
func (p *parser) parseScalarRow(what string) ([]string, error) {
	open := p.cur()
	if open.Kind != token.LBracket {
		return nil, ErrParse.WithPosition(open.Pos).
			Withf("expected inline list for %s, found %s", what, open.Kind)
	}

	p.advance()

	list, err := p.parseInlineList(open.Pos)
	if err != nil {
		return nil, err
	}

	row := make([]string, len(list.List))

	for i, item := range list.List {
		if item.Kind != KindScalar {
			return nil, ErrParse.WithPosition(item.Pos).
				Withf("%s values must be scalars", what)
		}

		row[i] = item.Scalar
	}

	return row, nil
}
