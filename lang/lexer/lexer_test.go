package lexer

import (
	"errors"
	"testing"

	"github.com/strataconf/strata/lang/token"
)

// kinds collapses a token stream to its kind sequence, dropping the
// trailing EOF for brevity.
func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, 0, len(toks))

	for _, t := range toks {
		if t.Kind == token.EOF {
			break
		}

		out = append(out, t.Kind)
	}

	return out
}

func TestScan_Kinds(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []token.Kind
	}{
		{
			name:  "bare key",
			input: "verbose",
			want:  []token.Kind{token.Ident},
		},
		{
			name:  "key and value",
			input: "host localhost",
			want:  []token.Kind{token.Ident, token.Text},
		},
		{
			name:  "annotated key and value",
			input: "port!int 8080",
			want:  []token.Kind{token.Ident, token.Bang, token.Ident, token.Text},
		},
		{
			name:  "directive line",
			input: "!base common.strata",
			want:  []token.Kind{token.Ident, token.Bang, token.Ident, token.Text},
		},
		{
			name:  "block open and close",
			input: "server {\n}\n",
			want: []token.Kind{
				token.Ident, token.LBrace, token.Newline,
				token.RBrace, token.Newline,
			},
		},
		{
			name:  "inline list",
			input: "tags [a, b]",
			want: []token.Kind{
				token.Ident, token.LBracket,
				token.Text, token.Comma, token.Text,
				token.RBracket,
			},
		},
		{
			name:  "quoted value",
			input: `label "a, b"`,
			want:  []token.Kind{token.Ident, token.String},
		},
		{
			name:  "comment only",
			input: "# nothing here\n",
			want:  []token.Kind{token.Newline},
		},
		{
			name:  "trailing comment",
			input: "host localhost # dev box",
			want:  []token.Kind{token.Ident, token.Text},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := New(tt.input).Scan()
			if err != nil {
				t.Fatalf("scan error: %v", err)
			}

			got := kinds(toks)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}

			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("token %d: got %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestScan_InlineBlockWords(t *testing.T) {
	// Inside a brace with content before the line end, words alternate
	// between key and value position instead of forming one text run.
	toks, err := New("server { port!int 8080 host localhost }\n").Scan()
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}

	want := []struct {
		kind token.Kind
		text string
	}{
		{token.Ident, "server"},
		{token.LBrace, ""},
		{token.Ident, "port"},
		{token.Bang, ""},
		{token.Ident, "int"},
		{token.Text, "8080"},
		{token.Ident, "host"},
		{token.Text, "localhost"},
		{token.RBrace, ""},
		{token.Newline, ""},
	}

	for i, w := range want {
		if toks[i].Kind != w.kind || toks[i].Text != w.text {
			t.Errorf("token %d: got %v %q, want %v %q",
				i, toks[i].Kind, toks[i].Text, w.kind, w.text)
		}
	}
}

func TestScan_NewlineEndsInlineContext(t *testing.T) {
	// A brace followed by a newline opens an ordinary block; inner lines
	// keep free-text value runs.
	toks, err := New("server {\n  motd hello there\n}\n").Scan()
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}

	var motd token.Token
	for _, tok := range toks {
		if tok.Kind == token.Text {
			motd = tok
		}
	}

	if motd.Text != "hello there" {
		t.Fatalf("got %q, want %q", motd.Text, "hello there")
	}
}

func TestScan_KeyIsGreedy(t *testing.T) {
	// Brackets and dots are plain key characters at the start of a line,
	// so patch paths survive as single identifiers.
	toks, err := New("servers[*].cpu 4").Scan()
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}

	if toks[0].Kind != token.Ident || toks[0].Text != "servers[*].cpu" {
		t.Fatalf("got %v %q, want Ident \"servers[*].cpu\"", toks[0].Kind, toks[0].Text)
	}

	if toks[1].Kind != token.Text || toks[1].Text != "4" {
		t.Fatalf("got %v %q, want Text \"4\"", toks[1].Kind, toks[1].Text)
	}
}

func TestScan_TextTrimsTrailingSpace(t *testing.T) {
	toks, err := New("host localhost   \n").Scan()
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}

	if toks[1].Text != "localhost" {
		t.Fatalf("got %q, want %q", toks[1].Text, "localhost")
	}
}

func TestScan_QuotedPreservesStructuralChars(t *testing.T) {
	toks, err := New(`v "a, [b] {c} #d"`).Scan()
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}

	want := "a, [b] {c} #d"
	if toks[1].Kind != token.String || toks[1].Text != want {
		t.Fatalf("got %v %q, want String %q", toks[1].Kind, toks[1].Text, want)
	}
}

func TestScan_UnterminatedQuote(t *testing.T) {
	_, err := New(`v "oops`).Scan()
	if err == nil {
		t.Fatal("expected error")
	}

	var le *Error
	if !errors.As(err, &le) {
		t.Fatalf("expected *Error, got %T", err)
	}

	if le.Pos.Line != 1 {
		t.Errorf("got line %d, want 1", le.Pos.Line)
	}
}

func TestScan_Capture(t *testing.T) {
	input := "script ```bash\necho one\necho two\n```\n"

	toks, err := New(input).Scan()
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}

	if toks[1].Kind != token.Multiline {
		t.Fatalf("got %v, want Multiline", toks[1].Kind)
	}

	if toks[1].Hint != "bash" {
		t.Errorf("hint: got %q, want %q", toks[1].Hint, "bash")
	}

	want := "echo one\necho two"
	if toks[1].Text != want {
		t.Errorf("content: got %q, want %q", toks[1].Text, want)
	}
}

func TestScan_CapturePreservesStructure(t *testing.T) {
	input := "cfg ```\nkey { not parsed }\n# not a comment\n```\n"

	toks, err := New(input).Scan()
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}

	want := "key { not parsed }\n# not a comment"
	if toks[1].Text != want {
		t.Errorf("content: got %q, want %q", toks[1].Text, want)
	}
}

func TestScan_UnterminatedCapture(t *testing.T) {
	_, err := New("script ```\necho hi\n").Scan()
	if err == nil {
		t.Fatal("expected error")
	}

	var le *Error
	if !errors.As(err, &le) {
		t.Fatalf("expected *Error, got %T", err)
	}

	// Anchored at the opening delimiter, not the end of input.
	if le.Pos.Line != 1 {
		t.Errorf("got line %d, want 1", le.Pos.Line)
	}
}

func TestScan_Positions(t *testing.T) {
	toks, err := New("a 1\nb 2\n").Scan()
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}

	// a, 1, newline, b, ...
	if toks[0].Pos.Line != 1 || toks[0].Pos.Column != 1 {
		t.Errorf("token a: got %s", toks[0].Pos)
	}

	if toks[3].Pos.Line != 2 || toks[3].Pos.Column != 1 {
		t.Errorf("token b: got %s", toks[3].Pos)
	}
}
