package lang

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func formatNative(t *testing.T, doc *Document) string {
	t.Helper()

	var buf strings.Builder
	if err := doc.Format(&buf, 2); err != nil {
		t.Fatalf("format: %v", err)
	}

	return buf.String()
}

// roundTrip formats a document and reparses the result, asserting the
// projections stay byte-identical.
func roundTrip(t *testing.T, input string) {
	t.Helper()

	doc := mustParse(t, input)
	out := formatNative(t, doc)

	doc2, err := ParseString(context.Background(), out)
	if err != nil {
		t.Fatalf("reparse of formatted output: %v\n%s", err, out)
	}

	first, err := doc.Project()
	if err != nil {
		t.Fatalf("project: %v", err)
	}

	second, err := doc2.Project()
	if err != nil {
		t.Fatalf("project reparse: %v", err)
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)

	if string(a) != string(b) {
		t.Errorf("round trip changed projection:\n%s\n%s\nformatted:\n%s", a, b, out)
	}
}

func TestFormat_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "scalars",
			input: "host localhost\nport!int 8080\nratio!float 0.5\n",
		},
		{
			name:  "quoted value with comma",
			input: "greeting \"hello, world\"\n",
		},
		{
			name:  "empty value",
			input: "placeholder \"\"\n",
		},
		{
			name:  "bare key",
			input: "enabled\n",
		},
		{
			name:  "nested blocks",
			input: "server {\n  tls {\n    cert /etc/cert.pem\n  }\n}\n",
		},
		{
			name:  "insertion ordered block",
			input: "steps!seq {\n  build make\n  test check\n}\n",
		},
		{
			name:  "inline list",
			input: "tags [a, b, c]\n",
		},
		{
			name:  "empty list",
			input: "tags []\n",
		},
		{
			name:  "list of blocks",
			input: "servers [\n  {\n    host a\n  }\n  {\n    host b\n  }\n]\n",
		},
		{
			name:  "table",
			input: "limits!table {\n  columns [name, ceiling]\n  rows {\n    [requests, 1000]\n    [burst, 50]\n  }\n}\n",
		},
		{
			name:  "table with bracket rows",
			input: "limits {\n  columns [name, ceiling]\n  rows [\n    [requests, 1000]\n  ]\n}\n",
		},
		{
			name:  "multiline",
			input: "script ```bash\necho hi\n```\n",
		},
		{
			name:  "list with multiline item",
			input: "hooks [\n  warmup\n  ```sh\necho ready\n```\n]\n",
		},
		{
			name:  "inline block",
			input: "server { port!int 8080 host localhost }\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roundTrip(t, tt.input)
		})
	}
}

func TestFormat_DeclarationOrderPreserved(t *testing.T) {
	doc := mustParse(t, "zebra 1\nalpha 2\n")

	got := formatNative(t, doc)
	want := "zebra 1\nalpha 2\n"

	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormat_AnnotationWritten(t *testing.T) {
	doc := mustParse(t, "port!int 8080\n")

	got := formatNative(t, doc)
	if got != "port!int 8080\n" {
		t.Errorf("got %q", got)
	}
}

func TestFormat_QuotesStructuralChars(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"has, comma", `"has, comma"`},
		{"brace{", `"brace{"`},
		{"hash#tag", `"hash#tag"`},
		{"", `""`},
		{" padded ", `" padded "`},
	}

	for _, tt := range tests {
		if got := quoteScalar(tt.in); got != tt.want {
			t.Errorf("quoteScalar(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormat_MultilineDropsDedent(t *testing.T) {
	doc := mustParse(t, "script!2 ```\n  echo hi\n```\n")

	got := formatNative(t, doc)

	if !strings.HasPrefix(got, "script ```") {
		t.Errorf("dedent annotation survived formatting: %q", got)
	}

	if !strings.Contains(got, "\necho hi\n") {
		t.Errorf("dedented content lost: %q", got)
	}
}

func TestFormat_TableNormalizedToBlockRows(t *testing.T) {
	doc := mustParse(t, "limits {\n  columns [a]\n  rows [\n    [1]\n  ]\n}\n")

	got := formatNative(t, doc)

	if !strings.Contains(got, "rows {") {
		t.Errorf("rows not normalized to block form: %q", got)
	}
}

func TestFormat_IndentWidth(t *testing.T) {
	doc := mustParse(t, "server {\n  host a\n}\n")

	var buf strings.Builder
	if err := doc.Format(&buf, 4); err != nil {
		t.Fatalf("format: %v", err)
	}

	if !strings.Contains(buf.String(), "    host a") {
		t.Errorf("got %q", buf.String())
	}
}

func TestFormatJSON_TrailingNewline(t *testing.T) {
	doc := mustParse(t, "host localhost\n")

	var buf strings.Builder
	if err := doc.FormatJSON(&buf, 0); err != nil {
		t.Fatalf("format json: %v", err)
	}

	if buf.String() != "{\"host\":\"localhost\"}\n" {
		t.Errorf("got %q", buf.String())
	}
}

func TestFormatYAML_Projection(t *testing.T) {
	doc := mustParse(t, "server {\n  port!int 8080\n}\n")

	var buf strings.Builder
	if err := doc.FormatYAML(&buf, 2); err != nil {
		t.Fatalf("format yaml: %v", err)
	}

	want := "server:\n  port: 8080\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestFormatYAML_IndentWidth(t *testing.T) {
	doc := mustParse(t, "server {\n  port!int 8080\n}\n")

	var buf strings.Builder
	if err := doc.FormatYAML(&buf, 4); err != nil {
		t.Fatalf("format yaml: %v", err)
	}

	if !strings.Contains(buf.String(), "    port: 8080") {
		t.Errorf("got %q", buf.String())
	}
}
